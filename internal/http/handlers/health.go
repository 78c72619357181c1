package handlers

import (
	"context"
	"database/sql"
	"time"

	"github.com/gabriel/source-connectors/internal/connectors"
	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	db       *sql.DB
	registry *connectors.Registry
}

func NewHealthHandler(db *sql.DB, registry *connectors.Registry) *HealthHandler {
	return &HealthHandler{db: db, registry: registry}
}

// Check reports the store and how many connectors are registered. It never
// calls upstream sites; /v1/connectors/health does that.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	connectorCount := len(h.registry.All())
	if err := h.db.PingContext(ctx); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":     "degraded",
			"db":         "down",
			"connectors": connectorCount,
			"time":       time.Now().UTC().Format(time.RFC3339),
		})
	}

	return c.JSON(fiber.Map{
		"status":     "ok",
		"db":         "up",
		"connectors": connectorCount,
		"time":       time.Now().UTC().Format(time.RFC3339),
	})
}
