package connectors

import (
	"context"

	"github.com/gabriel/source-connectors/internal/facets"
	"github.com/gabriel/source-connectors/internal/models"
)

const (
	KindNative = "native"
	KindYAML   = "yaml"
)

// Capabilities lets hosts hide operations a connector cannot serve instead of
// calling them and showing a failure.
type Capabilities struct {
	Latest          bool `json:"latest"`
	Search          bool `json:"search"`
	Filters         bool `json:"filters"`
	ImageResolution bool `json:"imageResolution"`
}

// Connector translates one site into the canonical catalog model. Every method
// is an independent request/response operation; a failure in one never changes
// state used by another.
type Connector interface {
	Key() string
	Name() string
	Kind() string
	Hosts() []string
	Capabilities() Capabilities
	HealthCheck(ctx context.Context) error

	ListPopular(ctx context.Context, page int) (models.SeriesPage, error)
	ListLatest(ctx context.Context, page int) (models.SeriesPage, error)
	Search(ctx context.Context, page int, query string, selections facets.Selections) (models.SeriesPage, error)

	// DescribeFilters never blocks on the network. It may start a background
	// fetch of remote options.
	DescribeFilters() []facets.Facet
	// RefreshFilters discards the option cache and starts a new fetch.
	RefreshFilters()

	FetchDetails(ctx context.Context, series models.Series) (models.Series, error)
	FetchChapters(ctx context.Context, series models.Series) ([]models.Chapter, error)
	FetchPages(ctx context.Context, chapter models.Chapter) ([]models.Page, error)
	ResolveImage(ctx context.Context, page models.Page) (string, error)
}

// Preferences is the host key/value store, scoped by connector key.
type Preferences interface {
	GetString(ctx context.Context, connectorKey, name string) (string, bool, error)
	GetBool(ctx context.Context, connectorKey, name string) (bool, bool, error)
}

// PreferenceBaseURL overrides a connector's mirror domain.
const PreferenceBaseURL = "base_url"
