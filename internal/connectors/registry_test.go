package connectors_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/gabriel/source-connectors/internal/connectors"
	"github.com/gabriel/source-connectors/internal/facets"
	"github.com/gabriel/source-connectors/internal/fetch"
	"github.com/gabriel/source-connectors/internal/models"
	"github.com/gabriel/source-connectors/internal/normalize"
)

type fakeConnector struct {
	key    string
	name   string
	kind   string
	hosts  []string
	health error
}

func (f *fakeConnector) Key() string                           { return f.key }
func (f *fakeConnector) Name() string                          { return f.name }
func (f *fakeConnector) Kind() string                          { return f.kind }
func (f *fakeConnector) Hosts() []string                       { return f.hosts }
func (f *fakeConnector) Capabilities() connectors.Capabilities { return connectors.Capabilities{Search: true} }
func (f *fakeConnector) HealthCheck(context.Context) error     { return f.health }
func (f *fakeConnector) DescribeFilters() []facets.Facet       { return nil }
func (f *fakeConnector) RefreshFilters()                       {}
func (f *fakeConnector) ListPopular(context.Context, int) (models.SeriesPage, error) {
	return models.SeriesPage{}, nil
}
func (f *fakeConnector) ListLatest(context.Context, int) (models.SeriesPage, error) {
	return models.SeriesPage{}, connectors.Unsupported(f.key, "latest")
}
func (f *fakeConnector) Search(context.Context, int, string, facets.Selections) (models.SeriesPage, error) {
	return models.SeriesPage{}, nil
}
func (f *fakeConnector) FetchDetails(_ context.Context, s models.Series) (models.Series, error) {
	return s, nil
}
func (f *fakeConnector) FetchChapters(context.Context, models.Series) ([]models.Chapter, error) {
	return nil, nil
}
func (f *fakeConnector) FetchPages(context.Context, models.Chapter) ([]models.Page, error) {
	return nil, nil
}
func (f *fakeConnector) ResolveImage(context.Context, models.Page) (string, error) {
	return "", connectors.Unsupported(f.key, "image")
}

func TestRegistryRegisterListHealth(t *testing.T) {
	r := connectors.NewRegistry()

	if err := r.Register(&fakeConnector{key: "b", name: "B", kind: connectors.KindNative}); err != nil {
		t.Fatalf("register b: %v", err)
	}
	if err := r.Register(&fakeConnector{key: "a", name: "A", kind: connectors.KindYAML, health: errors.New("down")}); err != nil {
		t.Fatalf("register a: %v", err)
	}
	if err := r.Register(&fakeConnector{key: "a", name: "A again"}); err == nil {
		t.Fatalf("expected duplicate key to be rejected")
	}

	list := r.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 connectors, got %d", len(list))
	}
	if list[0].Key != "a" || list[1].Key != "b" {
		t.Fatalf("expected sorted keys a,b got %s,%s", list[0].Key, list[1].Key)
	}
	if !list[0].Capabilities.Search || list[0].Capabilities.Latest {
		t.Fatalf("expected capabilities in descriptor, got %+v", list[0].Capabilities)
	}

	health := r.Health(context.Background())
	if len(health) != 2 {
		t.Fatalf("expected 2 health items, got %d", len(health))
	}
	if health[0].Key != "a" || health[0].Healthy || health[0].Error != "down" {
		t.Fatalf("expected a unhealthy")
	}
	if health[1].Key != "b" || !health[1].Healthy {
		t.Fatalf("expected b healthy")
	}
}

func TestRegistryGetByKeyHostAndURL(t *testing.T) {
	r := connectors.NewRegistry()
	if err := r.Register(&fakeConnector{key: "kunmanga", name: "KunManga", kind: connectors.KindYAML, hosts: []string{"kunmanga.to"}}); err != nil {
		t.Fatalf("register kunmanga: %v", err)
	}
	if err := r.Register(&fakeConnector{key: "mangadex", name: "MangaDex", kind: connectors.KindNative, hosts: []string{"mangadex.org", "api.mangadex.org"}}); err != nil {
		t.Fatalf("register mangadex: %v", err)
	}

	tests := map[string]string{
		"kunmanga":                                 "kunmanga",
		" KunManga ":                               "kunmanga",
		"kunmanga.to":                              "kunmanga",
		"www.kunmanga.to":                          "kunmanga",
		"https://kunmanga.to/manga/solo-leveling/": "kunmanga",
		"https://api.mangadex.org/manga?limit=20":  "mangadex",
		"https://m.mangadex.org/title/abc":         "mangadex",
		"mangadex.cc":                              "mangadex",
	}
	for input, want := range tests {
		connector, ok := r.Get(input)
		if !ok {
			t.Fatalf("expected connector for %q", input)
		}
		if connector.Key() != want {
			t.Fatalf("%q: expected %s, got %s", input, want, connector.Key())
		}
	}

	for _, input := range []string{"", "unknown", "https://example.com/x"} {
		if _, ok := r.Get(input); ok {
			t.Fatalf("did not expect a connector for %q", input)
		}
	}
}

func TestRegistryRejectsSharedHost(t *testing.T) {
	r := connectors.NewRegistry()
	if err := r.Register(&fakeConnector{key: "one", hosts: []string{"example.com"}}); err != nil {
		t.Fatalf("register one: %v", err)
	}
	if err := r.Register(&fakeConnector{key: "two", hosts: []string{"www.example.com"}}); err == nil {
		t.Fatalf("expected shared host to be rejected")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want connectors.ErrorKind
	}{
		{connectors.Unsupported("x", "latest"), connectors.ErrorNotSupported},
		{connectors.Wrap("x", "details", &normalize.MissingFieldError{Field: "title", Selector: "h1"}), connectors.ErrorParse},
		{connectors.Wrap("x", "popular", &fetch.HTTPStatusError{URL: "https://x", StatusCode: 503}), connectors.ErrorUpstream},
		{connectors.Wrap("x", "pages", &fetch.TransportError{URL: "https://x", Err: errors.New("reset")}), connectors.ErrorUpstream},
		{connectors.Wrap("x", "chapters", fmt.Errorf("%w: bad id", connectors.ErrInvalidInput)), connectors.ErrorInvalid},
		{errors.New("boom"), connectors.ErrorInternal},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := connectors.Classify(tt.err); got != tt.want {
			t.Fatalf("Classify(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestWrapKeepsInnermostScope(t *testing.T) {
	inner := connectors.Wrap("a", "pages", errors.New("x"))
	outer := connectors.Wrap("b", "other", inner)

	var opErr *connectors.OperationError
	if !errors.As(outer, &opErr) || opErr.Connector != "a" || opErr.Op != "pages" {
		t.Fatalf("expected innermost operation to be kept, got %v", outer)
	}
	if connectors.Wrap("a", "pages", nil) != nil {
		t.Fatalf("expected nil to stay nil")
	}
}
