package handlers

import (
	"strings"

	"github.com/gabriel/source-connectors/internal/connectors"
	"github.com/gabriel/source-connectors/internal/repository"
	"github.com/gofiber/fiber/v2"
)

type setPreferenceRequest struct {
	Value *string `json:"value"`
}

type PreferencesHandler struct {
	repo     *repository.PreferenceRepository
	registry *connectors.Registry
}

func NewPreferencesHandler(repo *repository.PreferenceRepository, registry *connectors.Registry) *PreferencesHandler {
	return &PreferencesHandler{repo: repo, registry: registry}
}

func (h *PreferencesHandler) List(c *fiber.Ctx) error {
	key, ok := h.connectorKey(c)
	if !ok {
		return notFound(c)
	}

	items, err := h.repo.List(c.Context(), key)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to list preferences"})
	}
	return c.JSON(fiber.Map{"items": items})
}

func (h *PreferencesHandler) Get(c *fiber.Ctx) error {
	key, ok := h.connectorKey(c)
	if !ok {
		return notFound(c)
	}

	name := strings.TrimSpace(c.Params("name"))
	value, found, err := h.repo.GetString(c.Context(), key, name)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to read preference"})
	}
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "preference not found"})
	}
	return c.JSON(fiber.Map{"name": name, "value": value})
}

func (h *PreferencesHandler) Put(c *fiber.Ctx) error {
	key, ok := h.connectorKey(c)
	if !ok {
		return notFound(c)
	}

	var req setPreferenceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid json body"})
	}
	if req.Value == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "value is required"})
	}

	name := strings.TrimSpace(c.Params("name"))
	if name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "preference name is required"})
	}
	if err := h.repo.SetString(c.Context(), key, name, *req.Value); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to save preference"})
	}
	return c.JSON(fiber.Map{"name": name, "value": *req.Value})
}

// Delete removes one preference, or every preference of the connector when no
// name is given.
func (h *PreferencesHandler) Delete(c *fiber.Ctx) error {
	key, ok := h.connectorKey(c)
	if !ok {
		return notFound(c)
	}

	var names []string
	if name := strings.TrimSpace(c.Params("name")); name != "" {
		names = append(names, name)
	}
	removed, err := h.repo.Delete(c.Context(), key, names...)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to delete preference"})
	}
	return c.JSON(fiber.Map{"removed": removed})
}

// connectorKey resolves the path key against the registry so preferences are
// always stored under the canonical connector key.
func (h *PreferencesHandler) connectorKey(c *fiber.Ctx) (string, bool) {
	connector, ok := h.registry.Get(c.Params("key"))
	if !ok {
		return "", false
	}
	return connector.Key(), true
}
