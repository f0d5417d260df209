package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/opsloom/kubequery/internal/server"
)

// runHTTPServer runs the REST surface and blocks until the shutdown
// context is cancelled or the listener fails.
func runHTTPServer(ctx context.Context, sc *server.ServerContext, opts server.HTTPServerOptions) error {
	httpServer := server.NewHTTPServer(sc, opts)
	logger := sc.Logger()

	logger.Info("HTTP server starting",
		slog.String("addr", httpServer.Addr()),
		slog.Any("api_endpoints", []string{
			"/api/filter/query",
			"/api/agent/query",
			"/api/agent/diagnose",
			"/api/clusters",
		}),
		slog.Any("health_endpoints", []string{"/healthz", "/readyz"}))

	// Start server in goroutine
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(); err != nil && err != http.ErrServerClosed {
			serverDone <- err
		}
	}()

	// Wait for either shutdown signal or server completion
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
		logger.Info("HTTP server stopped normally")
	}

	logger.Info("HTTP server gracefully stopped")
	return nil
}
