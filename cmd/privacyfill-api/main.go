// Package main is the entry point for the privacyfill-api server.
// It serves the user ledger, subscription status, usage tracking, and
// the Lemon Squeezy webhook endpoint backing the PrivacyFill extension.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lobisloby/privacyfill/internal/config"
	"github.com/lobisloby/privacyfill/internal/database"
	"github.com/lobisloby/privacyfill/internal/http/routes"
	"github.com/lobisloby/privacyfill/internal/logging"
	"github.com/lobisloby/privacyfill/internal/repository"
	"github.com/lobisloby/privacyfill/internal/service"
	"github.com/lobisloby/privacyfill/internal/shutdown"
	"github.com/lobisloby/privacyfill/internal/version"
)

func main() {
	// Initialize logger with TTY detection and format control
	logger := logging.SetDefault()

	// Log version info first thing
	v := version.Get()
	logger.Info("starting privacyfill-api",
		"version", v.Version,
		"commit", v.Commit,
		"built", v.Date,
		"go_version", v.GoVersion,
	)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	// Run migrations (with logging for each migration applied)
	if err := database.MigrateWithLogger(db, logger); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	applied, err := database.GetAppliedMigrations(db)
	if err != nil {
		logger.Warn("failed to read schema version", "error", err)
	} else if len(applied) > 0 {
		logger.Info("database schema ready",
			"schema_version", applied[len(applied)-1].Timestamp,
			"migrations_applied", len(applied),
		)
	}

	// Initialize repositories and services
	repos := repository.NewRepositories(db)
	services := service.NewServices(cfg, repos, logger)

	if cfg.LemonSqueezyWebhookSecret == "" {
		logger.Warn("LEMONSQUEEZY_WEBHOOK_SECRET not set - webhook deliveries will be rejected")
	}

	router := routes.New(cfg, services, logger)

	// Scale-to-zero idle monitoring: health probes do not count as
	// traffic.
	idleMonitor := shutdown.NewIdleMonitor(shutdown.IdleMonitorConfig{
		Timeout:      cfg.IdleTimeout,
		Logger:       logger,
		ExcludePaths: []string{"/health"},
	})
	idleMonitor.Start()
	defer idleMonitor.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      idleMonitor.Middleware(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on signal or idle timeout
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

		select {
		case <-sigChan:
			logger.Info("shutting down server")
		case <-idleMonitor.ShutdownChan():
			logger.Info("shutting down server after idle timeout")
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
	}()

	logger.Info("starting server", "port", cfg.Port, "base_url", cfg.BaseURL)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
