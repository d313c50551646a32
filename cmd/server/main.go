// Package main is the entry point for the doc-insight server.
//
// main only reads configuration, builds the logger and starts the server.
// Everything else lives under internal/.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/sakif/doc-insight/internal/config"
	"github.com/sakif/doc-insight/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	// Response helpers log through the default logger.
	slog.SetDefault(logger)

	if cfg.Session.Generated {
		logger.Warn("SECRET_KEY not set; using a random key, sessions will not survive a restart")
	}

	srv, err := server.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until the server is shut down (Ctrl+C or SIGTERM).
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
