package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const shutdownTimeout = 10 * time.Second

// Server bundles the API handlers behind one mux.
type Server struct {
	logger    *slog.Logger
	modelAPI  *ModelAPI
	serverAPI *ServerAPI
	apiMux    *http.ServeMux
}

// NewServer creates the API handlers and registers their routes.
func NewServer(svc *ModelService, config *Config, logger *slog.Logger) *Server {
	server := &Server{
		logger:    logger,
		modelAPI:  NewModelAPI(svc, config.Generate.Length, logger),
		serverAPI: NewServerAPI(logger),
		apiMux:    http.NewServeMux(),
	}
	server.modelAPI.RegisterRoutes(server.apiMux)
	server.serverAPI.RegisterRoutes(server.apiMux)
	return server
}

// ServeHTTP dispatches to the API mux.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.apiMux.ServeHTTP(w, r)
}

// run hosts the API on addr until ctx is cancelled or SIGINT/SIGTERM
// arrives, then shuts down gracefully.
func (s *Server) run(ctx context.Context, addr string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting api server", "address", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		s.logger.Info("Signal received, stopping api server.")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Api server shutdown failed", "error", err)
		return err
	}
	s.logger.Info("Api server stopped.")
	return nil
}
