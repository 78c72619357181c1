package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/gabriel/source-connectors/internal/connectors"
	"github.com/gabriel/source-connectors/internal/facets"
	"github.com/gabriel/source-connectors/internal/models"
)

type stubConnector struct {
	lastQuery      string
	lastSelections facets.Selections
	lastChapter    models.Chapter
}

func (s *stubConnector) Key() string     { return "stub" }
func (s *stubConnector) Name() string    { return "Stub" }
func (s *stubConnector) Kind() string    { return connectors.KindNative }
func (s *stubConnector) Hosts() []string { return []string{"stub.test"} }
func (s *stubConnector) Capabilities() connectors.Capabilities {
	return connectors.Capabilities{Latest: true, Search: true, Filters: true}
}
func (s *stubConnector) HealthCheck(context.Context) error { return nil }
func (s *stubConnector) ListPopular(_ context.Context, page int) (models.SeriesPage, error) {
	return models.SeriesPage{Items: []models.Series{{ID: "one", Title: "One"}}, HasNextPage: page < 2}, nil
}
func (s *stubConnector) ListLatest(context.Context, int) (models.SeriesPage, error) {
	return models.SeriesPage{}, nil
}
func (s *stubConnector) Search(_ context.Context, _ int, query string, selections facets.Selections) (models.SeriesPage, error) {
	s.lastQuery = query
	s.lastSelections = selections
	return models.SeriesPage{}, nil
}
func (s *stubConnector) DescribeFilters() []facets.Facet {
	return []facets.Facet{{
		Key:     "genre",
		Label:   "Genre",
		Kind:    facets.KindToggle,
		Options: []facets.Option{{Label: "Action", Value: "action"}, {Label: "Drama", Value: "drama"}},
		Toggle:  facets.ToggleEncoding{Style: facets.ToggleParams, IncludeParam: "genre[]", ExcludeParam: "exclude[]"},
	}}
}
func (s *stubConnector) RefreshFilters() {}
func (s *stubConnector) FetchDetails(_ context.Context, series models.Series) (models.Series, error) {
	return models.Series{ID: series.ID, Title: "Details", Initialized: true}, nil
}
func (s *stubConnector) FetchChapters(context.Context, models.Series) ([]models.Chapter, error) {
	return nil, nil
}
func (s *stubConnector) FetchPages(_ context.Context, chapter models.Chapter) ([]models.Page, error) {
	s.lastChapter = chapter
	return []models.Page{{Index: 0, ImageURL: "https://stub.test/1.jpg"}}, nil
}
func (s *stubConnector) ResolveImage(context.Context, models.Page) (string, error) {
	return "", connectors.Unsupported("stub", "image")
}

func newStubRegistry(t *testing.T) (*connectors.Registry, *stubConnector) {
	t.Helper()
	stub := &stubConnector{}
	registry := connectors.NewRegistry()
	if err := registry.Register(stub); err != nil {
		t.Fatalf("register stub: %v", err)
	}
	return registry, stub
}

func TestRunProbeWritesListingAsJSON(t *testing.T) {
	registry, _ := newStubRegistry(t)

	var out bytes.Buffer
	if err := runProbe(context.Background(), registry, probeRequest{Connector: "https://stub.test/x", Op: "popular", Page: 1}, &out); err != nil {
		t.Fatalf("runProbe returned error: %v", err)
	}

	var decoded models.SeriesPage
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(decoded.Items) != 1 || decoded.Items[0].ID != "one" || !decoded.HasNextPage {
		t.Fatalf("unexpected output: %+v", decoded)
	}
}

func TestRunProbePassesFacetsToSearch(t *testing.T) {
	registry, stub := newStubRegistry(t)

	request := probeRequest{Connector: "stub", Op: "search", Page: 1, Query: "solo", Facets: []string{"genre=+action", "genre=-drama"}}
	if err := runProbe(context.Background(), registry, request, &bytes.Buffer{}); err != nil {
		t.Fatalf("runProbe returned error: %v", err)
	}

	if stub.lastQuery != "solo" {
		t.Fatalf("expected query solo, got %q", stub.lastQuery)
	}
	toggles := stub.lastSelections["genre"].Toggles
	if toggles["action"] != facets.Included || toggles["drama"] != facets.Excluded {
		t.Fatalf("unexpected toggles: %+v", toggles)
	}
}

func TestRunProbeForwardsSeriesToPages(t *testing.T) {
	registry, stub := newStubRegistry(t)

	request := probeRequest{Connector: "stub", Op: "pages", ID: "ch-1", SeriesID: "one"}
	if err := runProbe(context.Background(), registry, request, &bytes.Buffer{}); err != nil {
		t.Fatalf("runProbe returned error: %v", err)
	}
	if stub.lastChapter.ID != "ch-1" || stub.lastChapter.SeriesID != "one" {
		t.Fatalf("unexpected chapter: %+v", stub.lastChapter)
	}
}

func TestRunProbeRejectsBadInput(t *testing.T) {
	registry, _ := newStubRegistry(t)

	cases := []probeRequest{
		{Connector: "missing", Op: "popular"},
		{Connector: "stub", Op: "bogus"},
		{Connector: "stub", Op: "details"},
	}
	for _, request := range cases {
		err := runProbe(context.Background(), registry, request, &bytes.Buffer{})
		if !errors.Is(err, connectors.ErrInvalidInput) {
			t.Fatalf("expected invalid input for %+v, got %v", request, err)
		}
	}
}

func TestRunProbeSurfacesUnsupportedImage(t *testing.T) {
	registry, _ := newStubRegistry(t)

	err := runProbe(context.Background(), registry, probeRequest{Connector: "stub", Op: "image", ID: "token"}, &bytes.Buffer{})
	if connectors.Classify(err) != connectors.ErrorNotSupported {
		t.Fatalf("expected not supported, got %v", err)
	}
}

func TestParseFacetSelectionsRejectsMissingKey(t *testing.T) {
	if _, err := parseFacetSelections(nil, []string{"=action"}); err == nil {
		t.Fatal("expected error for empty facet key")
	}
}
