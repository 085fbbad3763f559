package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/holdemd/internal/auth"
	"github.com/lox/holdemd/internal/game"
)

// Config is the root HCL configuration.
type Config struct {
	Server *ServerConfig `hcl:"server,block"`
	Tables []TableConfig `hcl:"table,block"`
	Auth   *AuthConfig   `hcl:"auth,block"`
}

// ServerConfig holds the process-wide settings.
type ServerConfig struct {
	Listen           string `hcl:"listen,optional"`
	LogLevel         string `hcl:"log_level,optional"`
	DBPath           string `hcl:"db,optional"`
	StartingBankroll int64  `hcl:"starting_bankroll,optional"`
	ReadyTimeoutSecs int64  `hcl:"ready_timeout_seconds,optional"`
}

// ReadyTimeout is how long an inter-hand break lasts before the
// remaining seats are readied automatically.
func (c ServerConfig) ReadyTimeout() time.Duration {
	return time.Duration(c.ReadyTimeoutSecs) * time.Second
}

// TableConfig is one configured table.
type TableConfig struct {
	Name       string `hcl:"name,label"`
	MaxSeats   int    `hcl:"max_seats,optional"`
	SmallBlind int64  `hcl:"small_blind,optional"`
	BigBlind   int64  `hcl:"big_blind,optional"`
	MinBuyIn   int64  `hcl:"min_buy_in,optional"`
	MaxBuyIn   int64  `hcl:"max_buy_in,optional"`
}

// GameConfig converts to the engine's table configuration.
func (c TableConfig) GameConfig() game.TableConfig {
	return game.TableConfig{
		Name:       c.Name,
		MaxSeats:   c.MaxSeats,
		SmallBlind: c.SmallBlind,
		BigBlind:   c.BigBlind,
		MinBuyIn:   c.MinBuyIn,
		MaxBuyIn:   c.MaxBuyIn,
	}
}

// AuthConfig selects how bearer tokens are validated.
type AuthConfig struct {
	// Mode is "none" (token is the player id), "static" (token blocks
	// below) or "http" (external validation endpoint).
	Mode   string        `hcl:"mode,optional"`
	URL    string        `hcl:"url,optional"`
	Tokens []TokenConfig `hcl:"token,block"`
}

// TokenConfig maps one static token to a player.
type TokenConfig struct {
	Value  string `hcl:"value,label"`
	Player string `hcl:"player"`
}

// DefaultConfig returns the config used when no file is given: one
// 6-max table at 1/2 blinds with open auth.
func DefaultConfig() Config {
	cfg := Config{
		Tables: []TableConfig{{Name: "main"}},
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server == nil {
		c.Server = &ServerConfig{}
	}
	if c.Server.Listen == "" {
		c.Server.Listen = ":8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.DBPath == "" {
		c.Server.DBPath = "holdemd.db"
	}
	if c.Server.StartingBankroll == 0 {
		c.Server.StartingBankroll = 10000
	}
	if c.Server.ReadyTimeoutSecs == 0 {
		c.Server.ReadyTimeoutSecs = 30
	}
	for i := range c.Tables {
		t := &c.Tables[i]
		if t.MaxSeats == 0 {
			t.MaxSeats = 6
		}
		if t.SmallBlind == 0 {
			t.SmallBlind = 1
		}
		if t.BigBlind == 0 {
			t.BigBlind = t.SmallBlind * 2
		}
		if t.MinBuyIn == 0 {
			t.MinBuyIn = t.BigBlind * 20
		}
		if t.MaxBuyIn == 0 {
			t.MaxBuyIn = t.BigBlind * 200
		}
	}
	if c.Auth == nil {
		c.Auth = &AuthConfig{}
	}
	if c.Auth.Mode == "" {
		c.Auth.Mode = "none"
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if len(c.Tables) == 0 {
		return fmt.Errorf("at least one table block is required")
	}
	names := make(map[string]bool)
	for _, t := range c.Tables {
		if names[t.Name] {
			return fmt.Errorf("duplicate table %q", t.Name)
		}
		names[t.Name] = true
		if err := t.GameConfig().Validate(); err != nil {
			return err
		}
	}

	switch c.Auth.Mode {
	case "none":
	case "static":
		if len(c.Auth.Tokens) == 0 {
			return fmt.Errorf("auth mode static requires at least one token block")
		}
	case "http":
		if c.Auth.URL == "" {
			return fmt.Errorf("auth mode http requires url")
		}
	default:
		return fmt.Errorf("unknown auth mode %q", c.Auth.Mode)
	}

	if c.Server.StartingBankroll < 0 {
		return fmt.Errorf("starting_bankroll must not be negative")
	}
	return nil
}

// Validator builds the token validator selected by the auth block.
func (c *Config) Validator() auth.Validator {
	switch c.Auth.Mode {
	case "static":
		tokens := make(map[string]string, len(c.Auth.Tokens))
		for _, t := range c.Auth.Tokens {
			tokens[t.Value] = t.Player
		}
		return auth.NewStaticValidator(tokens)
	case "http":
		return auth.NewHTTPValidator(c.Auth.URL)
	default:
		return auth.NoopValidator{}
	}
}

// LoadConfig parses and validates an HCL config file.
func LoadConfig(path string) (Config, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	return ParseConfig(src, path)
}

// ParseConfig parses HCL config from a byte slice.
func ParseConfig(src []byte, filename string) (Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("parsing config: %s", diags.Error())
	}

	var cfg Config
	if diags := gohcl.DecodeBody(file.Body, &hcl.EvalContext{}, &cfg); diags.HasErrors() {
		return Config{}, fmt.Errorf("decoding config: %s", diags.Error())
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
