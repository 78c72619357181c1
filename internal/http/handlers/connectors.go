package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel/source-connectors/internal/connectors"
	"github.com/gabriel/source-connectors/internal/facets"
	"github.com/gabriel/source-connectors/internal/models"
	"github.com/gofiber/fiber/v2"
)

// FacetParamPrefix marks search query parameters that carry facet selections.
const FacetParamPrefix = "f."

const defaultOperationTimeout = 30 * time.Second

type ConnectorsHandler struct {
	registry *connectors.Registry
	timeout  time.Duration
}

func NewConnectorsHandler(registry *connectors.Registry, timeout time.Duration) *ConnectorsHandler {
	if timeout <= 0 {
		timeout = defaultOperationTimeout
	}
	return &ConnectorsHandler{registry: registry, timeout: timeout}
}

func (h *ConnectorsHandler) List(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"items": h.registry.List()})
}

func (h *ConnectorsHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
	defer cancel()
	return c.JSON(fiber.Map{"items": h.registry.Health(ctx)})
}

func (h *ConnectorsHandler) Popular(c *fiber.Ctx) error {
	return h.withConnector(c, func(ctx context.Context, connector connectors.Connector) (any, error) {
		return connector.ListPopular(ctx, pageParam(c))
	})
}

func (h *ConnectorsHandler) Latest(c *fiber.Ctx) error {
	return h.withConnector(c, func(ctx context.Context, connector connectors.Connector) (any, error) {
		return connector.ListLatest(ctx, pageParam(c))
	})
}

// Search reads facet selections from f.<facet key> parameters. Toggle values
// are written +value or -value.
func (h *ConnectorsHandler) Search(c *fiber.Ctx) error {
	return h.withConnector(c, func(ctx context.Context, connector connectors.Connector) (any, error) {
		query, err := url.ParseQuery(string(c.Request().URI().QueryString()))
		if err != nil {
			return nil, errors.Join(connectors.ErrInvalidInput, err)
		}
		selections := facets.ParseSelections(connector.DescribeFilters(), query, FacetParamPrefix)
		return connector.Search(ctx, pageParam(c), c.Query("q"), selections)
	})
}

func (h *ConnectorsHandler) Filters(c *fiber.Ctx) error {
	connector, ok := h.lookup(c)
	if !ok {
		return notFound(c)
	}
	return c.JSON(fiber.Map{"items": connector.DescribeFilters()})
}

func (h *ConnectorsHandler) RefreshFilters(c *fiber.Ctx) error {
	connector, ok := h.lookup(c)
	if !ok {
		return notFound(c)
	}
	connector.RefreshFilters()
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"items": connector.DescribeFilters()})
}

func (h *ConnectorsHandler) Details(c *fiber.Ctx) error {
	return h.withConnector(c, func(ctx context.Context, connector connectors.Connector) (any, error) {
		return connector.FetchDetails(ctx, models.Series{ID: c.Query("id")})
	})
}

func (h *ConnectorsHandler) Chapters(c *fiber.Ctx) error {
	return h.withConnector(c, func(ctx context.Context, connector connectors.Connector) (any, error) {
		chapters, err := connector.FetchChapters(ctx, models.Series{ID: c.Query("id")})
		return fiber.Map{"items": chapters}, err
	})
}

func (h *ConnectorsHandler) Pages(c *fiber.Ctx) error {
	return h.withConnector(c, func(ctx context.Context, connector connectors.Connector) (any, error) {
		pages, err := connector.FetchPages(ctx, models.Chapter{ID: c.Query("id"), SeriesID: c.Query("series")})
		return fiber.Map{"items": pages}, err
	})
}

func (h *ConnectorsHandler) Image(c *fiber.Ctx) error {
	return h.withConnector(c, func(ctx context.Context, connector connectors.Connector) (any, error) {
		image, err := connector.ResolveImage(ctx, models.Page{URL: c.Query("url")})
		return fiber.Map{"imageUrl": image}, err
	})
}

func (h *ConnectorsHandler) lookup(c *fiber.Ctx) (connectors.Connector, bool) {
	key, err := url.PathUnescape(c.Params("key"))
	if err != nil {
		return nil, false
	}
	return h.registry.Get(key)
}

func (h *ConnectorsHandler) withConnector(c *fiber.Ctx, run func(ctx context.Context, connector connectors.Connector) (any, error)) error {
	connector, ok := h.lookup(c)
	if !ok {
		return notFound(c)
	}

	ctx, cancel := context.WithTimeout(c.Context(), h.timeout)
	defer cancel()

	result, err := run(ctx, connector)
	if err != nil {
		return respondError(c, connector.Key(), err)
	}
	return c.JSON(result)
}

func pageParam(c *fiber.Ctx) int {
	page, err := strconv.Atoi(strings.TrimSpace(c.Query("page", "1")))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func notFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "connector not found"})
}

var errorStatus = map[connectors.ErrorKind]int{
	connectors.ErrorNotSupported: fiber.StatusNotImplemented,
	connectors.ErrorUpstream:     fiber.StatusBadGateway,
	connectors.ErrorParse:        fiber.StatusUnprocessableEntity,
	connectors.ErrorInvalid:      fiber.StatusBadRequest,
	connectors.ErrorInternal:     fiber.StatusInternalServerError,
}

func respondError(c *fiber.Ctx, key string, err error) error {
	kind := connectors.Classify(err)
	status, ok := errorStatus[kind]
	if !ok {
		status = fiber.StatusInternalServerError
	}
	if status >= fiber.StatusInternalServerError {
		slog.Warn("connector operation failed", "connector", key, "kind", kind, "error", err)
	}
	return c.Status(status).JSON(fiber.Map{"message": err.Error(), "kind": kind})
}
