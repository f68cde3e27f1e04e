// Command server runs the CourseHub HTTP API and browse page.
//
// Configuration comes from COURSEHUB_* environment variables, an optional
// .env file and an optional config.yaml (see internal/config).
package main

import (
	"log/slog"
	"os"

	"github.com/sakif/coursehub/internal/config"
	"github.com/sakif/coursehub/internal/logging"
	"github.com/sakif/coursehub/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT/SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
