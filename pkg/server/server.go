package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/getmockd/entityd/pkg/config"
	"github.com/getmockd/entityd/pkg/entity"
	"github.com/getmockd/entityd/pkg/logging"
	"github.com/getmockd/entityd/pkg/resource"
)

// Server serves one entity resource plus health, metrics and admin routes.
type Server struct {
	cfg      *config.Config
	log      *slog.Logger
	provider *entity.Provider
	feed     *entity.Feed
	metrics  *entity.MetricsObserver
	app      *resource.Application
	handler  http.Handler
	started  time.Time

	mu   sync.Mutex
	addr string
}

// Option is a functional option for configuring a Server.
type Option func(*Server)

// WithLogger sets the operational logger for the server.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// New builds a server from cfg with the given seed loaded into the store.
// A nil cfg uses config.Default().
func New(ctx context.Context, cfg *config.Config, seed []entity.Entity, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Server{
		cfg:     cfg,
		log:     logging.Nop(),
		metrics: entity.NewMetricsObserver(),
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	scope, err := cfg.Scope()
	if err != nil {
		return nil, err
	}

	s.feed = entity.NewFeed(cfg.Store.EventBuffer)
	store := entity.NewStore(cfg.Store.Name,
		entity.WithObserver(s.metrics),
		entity.WithFeed(s.feed),
	)
	if err := store.Load(seed); err != nil {
		return nil, fmt.Errorf("load seed: %w", err)
	}
	s.provider = entity.NewProvider(scope, store)

	res := resource.New(s.provider,
		resource.WithLogger(s.log),
		resource.WithFeed(s.feed),
		resource.WithMaxBodySize(cfg.Server.MaxBodySize),
		resource.WithMaxPageSize(cfg.Store.MaxPageSize),
	)
	s.app = resource.NewApplication("", cfg.Server.BasePath, s.log, res)

	mux := http.NewServeMux()
	if err := s.app.Register(ctx, mux); err != nil {
		return nil, fmt.Errorf("register routes: %w", err)
	}
	s.registerAdmin(mux)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	s.handler = chain(mux,
		recovery(s.log),
		accessLog(s.log),
		requestID,
	)

	s.log.Info("server configured",
		"resource", store.Name(),
		"basePath", cfg.Server.BasePath,
		"scope", scope,
		"seed", store.SeedCount(),
	)
	return s, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Store returns the process-wide store.
func (s *Server) Store() *entity.Store {
	return s.provider.Shared()
}

// Feed returns the change feed of the process-wide store.
func (s *Server) Feed() *entity.Feed {
	return s.feed
}

// Metrics returns the operation counters shared by every store.
func (s *Server) Metrics() *entity.MetricsObserver {
	return s.metrics
}

// Reload replaces the seed data and resets the store to it.
func (s *Server) Reload(seed []entity.Entity) error {
	if err := s.Store().Load(seed); err != nil {
		s.log.Error("seed reload rejected", "error", err)
		return err
	}
	s.log.Info("seed reloaded", "entities", len(seed))
	return nil
}

// Addr returns the address the server is listening on, or "" before Serve.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Server.Address())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Server.Address(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully within the configured shutdown timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.cfg.Server.ReadTimeoutDuration(),
		ReadHeaderTimeout: s.cfg.Server.ReadTimeoutDuration(),
		WriteTimeout:      s.cfg.Server.WriteTimeoutDuration(),
	}

	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.log.Info("server listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server: %w", err)
	case <-ctx.Done():
	}

	timeout := s.cfg.Server.ShutdownTimeoutDuration()
	if timeout <= 0 {
		timeout = config.DefaultShutdownTimeout * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.log.Info("server shutting down", "timeout", timeout)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server: %w", err)
	}
	return nil
}
