package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/lox/holdemd/internal/store"
)

const shutdownGrace = 5 * time.Second

// Server assembles the store, hub, registry and HTTP API into one
// runnable unit.
type Server struct {
	cfg      Config
	logger   *log.Logger
	store    *store.Store
	hub      *Hub
	registry *Registry
	router   *gin.Engine
}

// New opens the store and wires the server. Close is handled by Run.
func New(cfg Config, logger *log.Logger) (*Server, error) {
	st, err := store.Open(cfg.Server.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	prom := prometheus.NewRegistry()
	prom.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := NewMetrics(prom)

	hub := NewHub(logger, metrics)
	registry := NewRegistry(cfg, st, hub, logger, quartz.NewReal(), metrics)
	api := NewAPI(registry, st, hub, cfg.Validator(), logger)

	return &Server{
		cfg:      cfg,
		logger:   logger.WithPrefix("server"),
		store:    st,
		hub:      hub,
		registry: registry,
		router:   api.Router(prom),
	}, nil
}

// Run serves until ctx is cancelled, then drains coordinators and
// closes the store.
func (s *Server) Run(ctx context.Context) error {
	s.registry.Start(ctx)

	httpServer := &http.Server{
		Addr:    s.cfg.Server.Listen,
		Handler: s.router,
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		s.logger.Info("listening", "addr", s.cfg.Server.Listen)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	err := group.Wait()
	s.registry.Wait()
	if closeErr := s.store.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}
