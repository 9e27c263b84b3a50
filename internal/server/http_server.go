package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// CreateServer creates and configures an HTTP server with the specified port
// and handler. Read timeouts apply to the initial request only; upgraded
// WebSocket connections manage their own deadlines in the session pumps.
func CreateServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// ShutdownServer gracefully shuts down the HTTP server, waiting for in-flight
// requests up to timeout. WebSocket sessions are not covered by this: they
// are hijacked connections and are closed separately via Server.Shutdown.
func ShutdownServer(srv *http.Server, timeout time.Duration, log *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("http server shutdown error", "error", err)
		return err
	}

	log.Info("http server shutdown completed")
	return nil
}
