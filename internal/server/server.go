// Package server wires the reference backend: storage, handlers and middleware behind one http.Server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iudanet/rentsync/internal/server/handlers"
	"github.com/iudanet/rentsync/internal/server/middleware"
	"github.com/iudanet/rentsync/internal/server/storage/sqlite"
)

const (
	healthPath        = "/api/v1/health"
	readHeaderTimeout = 5 * time.Second
)

// Server представляет HTTP сервер эталонного бэкенда
type Server struct {
	logger  *slog.Logger
	limiter *middleware.RateLimiter
	handler http.Handler
	cfg     Config
}

// New assembles the router over store.
func New(cfg Config, store *sqlite.Storage, logger *slog.Logger) *Server {
	jwtConfig := handlers.JWTConfig{
		Secret:         []byte(cfg.JWTSecret),
		AccessTokenTTL: cfg.TokenTTL,
	}

	authHandler := handlers.NewAuthHandler(logger, store, jwtConfig)
	rowsHandler := handlers.NewRowsHandler(logger, store)
	healthHandler := handlers.NewHealthHandler(logger, store.DB())

	limiter := middleware.NewRateLimiter(cfg.AuthRate, cfg.AuthWindow, logger)
	requireAuth := middleware.AuthMiddleware(logger, jwtConfig)

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+healthPath, healthHandler.Health)
	mux.Handle("POST /api/v1/auth/register", limiter.Middleware(http.HandlerFunc(authHandler.Register)))
	mux.Handle("POST /api/v1/auth/login", limiter.Middleware(http.HandlerFunc(authHandler.Login)))
	mux.Handle("POST /api/v1/mutations", requireAuth(http.HandlerFunc(rowsHandler.Apply)))
	mux.Handle("GET /api/v1/rows/{collection}/{id}", requireAuth(http.HandlerFunc(rowsHandler.Get)))

	// recovery снаружи, чтобы паника в логировании тоже перехватывалась
	var handler http.Handler = mux
	handler = middleware.LoggingMiddleware(logger, healthPath)(handler)
	handler = middleware.RecoveryMiddleware(logger)(handler)

	return &Server{
		logger:  logger,
		limiter: limiter,
		handler: handler,
		cfg:     cfg,
	}
}

// Handler returns the root handler, used directly by tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.limiter.Run(gctx)
		return nil
	})

	g.Go(func() error {
		s.logger.Info("Server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
		defer cancel()

		s.logger.Info("Shutting down server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// ListenAndServe listens on the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}
