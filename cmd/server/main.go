package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/andreireporter13/terminal-messenger/internal/auth"
	"github.com/andreireporter13/terminal-messenger/internal/server"
	"github.com/andreireporter13/terminal-messenger/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so deferred cleanup always executes.
func run() error {
	// A missing .env file is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg, err := server.LoadConfig()
	if err != nil {
		return err
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	secret := cfg.TokenSecret
	if secret == "" {
		secret, err = ephemeralSecret()
		if err != nil {
			return err
		}
		log.Warn("MESSENGER_TOKEN_SECRET not set; using an ephemeral secret, issued tokens will not survive a restart")
	}

	users, err := store.NewCredentialStore()
	if err != nil {
		return err
	}
	tokens := auth.NewTokenService([]byte(secret), cfg.TokenValidity)

	srv := server.New(cfg, log, users, tokens)
	httpServer := server.CreateServer(cfg.Port, srv.Routes())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Port)
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownErr := server.ShutdownServer(httpServer, cfg.ShutdownTimeout, log)
	srv.Shutdown()
	return shutdownErr
}

func ephemeralSecret() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generating token secret: %w", err)
	}
	return hex.EncodeToString(raw), nil
}
