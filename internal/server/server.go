// Package server runs the HTTP and gRPC listeners until the context is
// cancelled, then drains them.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shashiranjanraj/coursemart/pkg/grpc"
	"github.com/shashiranjanraj/coursemart/pkg/logger"
)

// Config describes the listeners.
type Config struct {
	Port    string
	Handler http.Handler
	// GRPCPort enables the gRPC health endpoint when non-empty.
	GRPCPort string
	Health   grpc.HealthCheck
	// ShutdownTimeout bounds the drain of in-flight requests.
	ShutdownTimeout time.Duration
}

// Run serves until ctx is done or a listener fails.
func Run(ctx context.Context, cfg Config) error {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 15 * time.Second
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           cfg.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	if cfg.GRPCPort != "" {
		grpcSrv, _, err := grpc.Start(cfg.GRPCPort, cfg.Health)
		if err != nil {
			return err
		}
		defer grpc.Stop(grpcSrv)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http: server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: serve: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("http: server shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("http: shutdown: %w", err)
	}
	return nil
}
