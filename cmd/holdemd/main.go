package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/lox/holdemd/internal/server"
)

var version = "dev"

type CLI struct {
	Serve   ServeCmd         `cmd:"" default:"1" help:"Run the hold'em server."`
	Version kong.VersionFlag `help:"Print version and exit."`
}

type ServeCmd struct {
	Config string `short:"c" type:"existingfile" help:"Path to HCL config file."`
	Listen string `short:"l" help:"Override the listen address."`
	Debug  bool   `short:"d" help:"Enable debug logging."`
}

func (cmd *ServeCmd) Run() error {
	cfg := server.DefaultConfig()
	if cmd.Config != "" {
		loaded, err := server.LoadConfig(cmd.Config)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if cmd.Listen != "" {
		cfg.Server.Listen = cmd.Listen
	}

	level, err := log.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		return fmt.Errorf("bad log_level %q: %w", cfg.Server.LogLevel, err)
	}
	if cmd.Debug {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           level,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(cfg, logger)
	if err != nil {
		return err
	}

	logger.Info("starting holdemd", "version", version, "tables", len(cfg.Tables))
	return srv.Run(ctx)
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("holdemd"),
		kong.Description("Multi-table no-limit hold'em cash game server."),
		kong.Vars{"version": version},
	)
	ctx.FatalIfErrorf(ctx.Run())
}
