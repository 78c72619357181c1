package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gabriel/source-connectors/internal/config"
	connectordefaults "github.com/gabriel/source-connectors/internal/connectors/defaults"
	"github.com/gabriel/source-connectors/internal/database"
	"github.com/gabriel/source-connectors/internal/fetch"
	apihttp "github.com/gabriel/source-connectors/internal/http"
	"github.com/gabriel/source-connectors/internal/notifications"
	"github.com/gabriel/source-connectors/internal/repository"
	"github.com/gabriel/source-connectors/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	db, err := database.Open(cfg.SQLitePath)
	if err != nil {
		slog.Error("failed to open sqlite", "path", cfg.SQLitePath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.ApplyMigrations(db, cfg.MigrationsPath); err != nil {
		slog.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	client := fetch.NewClient(cfg.FetchOptions())
	connectorRegistry, registryErr := connectordefaults.NewRegistry(connectordefaults.Options{
		ProfilesPath:   cfg.ProfilesPath,
		Doer:           client,
		Preferences:    repository.NewPreferenceRepository(db),
		Logger:         logger,
		FilterAttempts: cfg.FilterFetchAttempts,
	})
	if connectorRegistry == nil {
		slog.Error("failed to build connector registry", "error", registryErr)
		os.Exit(1)
	}
	if registryErr != nil {
		slog.Warn("connector registry loaded with warnings", "error", registryErr)
	}

	app := apihttp.NewServerWithRegistry(cfg, db, connectorRegistry)

	var notifier notifications.Notifier = notifications.LogNotifier{Logger: logger}
	if cfg.NotifyWebhookURL != "" {
		webhook, err := notifications.NewWebhookNotifier(cfg.NotifyWebhookURL, client)
		if err != nil {
			slog.Error("invalid webhook notifier", "error", err)
			os.Exit(1)
		}
		notifier = notifications.NewMultiNotifier(notifier, webhook)
	}

	pollerCtx, pollerCancel := context.WithCancel(context.Background())
	poller := scheduler.NewPoller(
		connectorRegistry,
		notifier,
		scheduler.PollerConfig{
			Interval:      time.Duration(cfg.WarmupMinutes) * time.Minute,
			HealthTimeout: cfg.HTTPTimeout,
		},
		logger,
	)
	if cfg.WarmupEnabled {
		poller.Start(pollerCtx)
	}

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server stopped", "error", err)
		}
	}()

	slog.Info("api started", "port", cfg.Port, "env", cfg.Environment, "connectors", len(connectorRegistry.All()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	slog.Info("shutting down server")
	pollerCancel()
	poller.StopWait(2 * time.Second)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
