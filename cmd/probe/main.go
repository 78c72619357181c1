package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gabriel/source-connectors/internal/config"
	"github.com/gabriel/source-connectors/internal/connectors"
	connectordefaults "github.com/gabriel/source-connectors/internal/connectors/defaults"
	"github.com/gabriel/source-connectors/internal/facets"
	"github.com/gabriel/source-connectors/internal/fetch"
	"github.com/gabriel/source-connectors/internal/models"
)

const facetFlagPrefix = "f."

type facetFlags []string

func (f *facetFlags) String() string {
	return strings.Join(*f, ",")
}

func (f *facetFlags) Set(value string) error {
	if !strings.Contains(value, "=") {
		return fmt.Errorf("facet %q must be key=value", value)
	}
	*f = append(*f, value)
	return nil
}

type probeRequest struct {
	Connector string
	Op        string
	Page      int
	Query     string
	ID        string
	SeriesID  string
	Facets    []string
}

func main() {
	var (
		profilesPath = flag.String("profiles", "", "Directory of connector profiles (defaults to PROFILES_PATH)")
		connectorKey = flag.String("connector", "", "Connector key or site URL")
		op           = flag.String("op", "popular", "One of popular, latest, search, filters, details, chapters, pages, image")
		page         = flag.Int("page", 1, "Listing page (1-based)")
		query        = flag.String("q", "", "Search text")
		id           = flag.String("id", "", "Series id, chapter id or page token depending on -op")
		seriesID     = flag.String("series", "", "Series id for -op pages")
		timeout      = flag.Duration("timeout", 30*time.Second, "Overall probe timeout")
		facetValues  facetFlags
	)
	flag.Var(&facetValues, "f", "Facet selection key=value (repeatable, +value includes, -value excludes)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	if strings.TrimSpace(*profilesPath) != "" {
		cfg.ProfilesPath = *profilesPath
	}

	registry, registryErr := connectordefaults.NewRegistry(connectordefaults.Options{
		ProfilesPath:   cfg.ProfilesPath,
		Doer:           fetch.NewClient(cfg.FetchOptions()),
		Logger:         logger,
		FilterAttempts: cfg.FilterFetchAttempts,
	})
	if registry == nil {
		slog.Error("failed to build connector registry", "error", registryErr)
		os.Exit(1)
	}
	if registryErr != nil {
		slog.Warn("connector registry loaded with warnings", "error", registryErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	request := probeRequest{
		Connector: *connectorKey,
		Op:        *op,
		Page:      *page,
		Query:     *query,
		ID:        *id,
		SeriesID:  *seriesID,
		Facets:    facetValues,
	}
	if err := runProbe(ctx, registry, request, os.Stdout); err != nil {
		slog.Error("probe failed", "connector", request.Connector, "op", request.Op, "kind", connectors.Classify(err), "error", err)
		os.Exit(1)
	}
}

func runProbe(ctx context.Context, registry *connectors.Registry, request probeRequest, out io.Writer) error {
	connector, ok := registry.Get(request.Connector)
	if !ok {
		return fmt.Errorf("%w: unknown connector %q", connectors.ErrInvalidInput, request.Connector)
	}

	result, err := dispatch(ctx, connector, request)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func dispatch(ctx context.Context, connector connectors.Connector, request probeRequest) (any, error) {
	switch strings.ToLower(strings.TrimSpace(request.Op)) {
	case "popular":
		return connector.ListPopular(ctx, request.Page)
	case "latest":
		return connector.ListLatest(ctx, request.Page)
	case "search":
		selections, err := parseFacetSelections(connector.DescribeFilters(), request.Facets)
		if err != nil {
			return nil, err
		}
		return connector.Search(ctx, request.Page, request.Query, selections)
	case "filters":
		return connector.DescribeFilters(), nil
	case "details":
		if err := requireID(request.ID); err != nil {
			return nil, err
		}
		return connector.FetchDetails(ctx, models.Series{ID: request.ID})
	case "chapters":
		if err := requireID(request.ID); err != nil {
			return nil, err
		}
		return connector.FetchChapters(ctx, models.Series{ID: request.ID})
	case "pages":
		if err := requireID(request.ID); err != nil {
			return nil, err
		}
		return connector.FetchPages(ctx, models.Chapter{ID: request.ID, SeriesID: request.SeriesID})
	case "image":
		if err := requireID(request.ID); err != nil {
			return nil, err
		}
		resolved, err := connector.ResolveImage(ctx, models.Page{URL: request.ID})
		if err != nil {
			return nil, err
		}
		return map[string]string{"imageUrl": resolved}, nil
	default:
		return nil, fmt.Errorf("%w: unknown op %q", connectors.ErrInvalidInput, request.Op)
	}
}

func requireID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: -id is required", connectors.ErrInvalidInput)
	}
	return nil
}

// parseFacetSelections reuses the HTTP query syntax so -f genre=+action behaves
// like ?f.genre=+action.
func parseFacetSelections(available []facets.Facet, raw []string) (facets.Selections, error) {
	values := url.Values{}
	for _, item := range raw {
		name, value, found := strings.Cut(item, "=")
		name = strings.TrimSpace(name)
		if !found || name == "" {
			return nil, errors.New("facet must be key=value")
		}
		values.Add(facetFlagPrefix+name, strings.TrimSpace(value))
	}
	return facets.ParseSelections(available, values, facetFlagPrefix), nil
}
