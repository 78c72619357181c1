package http

import (
	"database/sql"
	"log/slog"

	"github.com/gabriel/source-connectors/internal/config"
	"github.com/gabriel/source-connectors/internal/connectors"
	connectordefaults "github.com/gabriel/source-connectors/internal/connectors/defaults"
	"github.com/gabriel/source-connectors/internal/fetch"
	"github.com/gabriel/source-connectors/internal/http/handlers"
	"github.com/gabriel/source-connectors/internal/repository"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func NewServer(cfg config.Config, db *sql.DB) *fiber.App {
	return NewServerWithRegistry(cfg, db, nil)
}

// NewServerWithRegistry serves the given registry, or the default native
// connectors plus the profiles under cfg.ProfilesPath when it is nil.
func NewServerWithRegistry(cfg config.Config, db *sql.DB, connectorRegistry *connectors.Registry) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: cfg.AppName,
	})

	app.Use(recover.New())

	preferences := repository.NewPreferenceRepository(db)
	if connectorRegistry == nil {
		loadedRegistry, err := connectordefaults.NewRegistry(connectordefaults.Options{
			ProfilesPath:   cfg.ProfilesPath,
			Doer:           fetch.NewClient(cfg.FetchOptions()),
			Preferences:    preferences,
			Logger:         slog.Default(),
			FilterAttempts: cfg.FilterFetchAttempts,
		})
		if err != nil {
			slog.Warn("site profiles loaded with warnings", "error", err)
		}
		connectorRegistry = loadedRegistry
	}

	health := handlers.NewHealthHandler(db, connectorRegistry)
	connectorHandlers := handlers.NewConnectorsHandler(connectorRegistry, 2*cfg.HTTPTimeout)
	preferenceHandlers := handlers.NewPreferencesHandler(preferences, connectorRegistry)

	app.Get("/health", health.Check)
	app.Get("/v1/health", health.Check)

	v1 := app.Group("/v1")
	v1.Get("/connectors", connectorHandlers.List)
	v1.Get("/connectors/health", connectorHandlers.Health)

	connector := v1.Group("/connectors/:key")
	connector.Get("/popular", connectorHandlers.Popular)
	connector.Get("/latest", connectorHandlers.Latest)
	connector.Get("/search", connectorHandlers.Search)
	connector.Get("/filters", connectorHandlers.Filters)
	connector.Post("/filters/refresh", connectorHandlers.RefreshFilters)
	connector.Get("/details", connectorHandlers.Details)
	connector.Get("/chapters", connectorHandlers.Chapters)
	connector.Get("/pages", connectorHandlers.Pages)
	connector.Get("/image", connectorHandlers.Image)
	connector.Get("/preferences", preferenceHandlers.List)
	connector.Delete("/preferences", preferenceHandlers.Delete)
	connector.Get("/preferences/:name", preferenceHandlers.Get)
	connector.Put("/preferences/:name", preferenceHandlers.Put)
	connector.Delete("/preferences/:name", preferenceHandlers.Delete)

	return app
}
