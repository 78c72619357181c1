package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gabriel/source-connectors/internal/connectors"
	"github.com/gabriel/source-connectors/internal/fetch"
	"github.com/gabriel/source-connectors/internal/models"
	"github.com/gabriel/source-connectors/internal/normalize"
)

const jsonProfile = `
key: jsonsite
name: JSON Site
base_url: BASE
language: en
popular:
  request:
    path: /api/series
    format: json
    query:
      offset: "{offset}"
      limit: "{limit}"
  items: data
  fields:
    id: {path: id}
    slug: {path: slug}
    title: {path: attributes.title}
    thumbnail: {path: attributes.cover, absolute: true}
  identifier:
    parts: [slug, id]
  pagination:
    strategy: count
    per_page: 2
    total: {path: total}
    offset: {path: offset}
search:
  request:
    path: /api/series
    format: json
    query:
      offset: "0"
      limit: "50"
  items: data
  fields:
    id: {path: id}
    slug: {path: slug}
    title: {path: attributes.title}
  identifier:
    parts: [slug, id]
  local_filter: true
  pagination:
    strategy: none
details:
  request:
    path: "/api/series/{id.id}"
    format: json
  title: {path: data.attributes.title}
  authors: {path: "data.relationships[].name", all: true}
  genres:
    - {path: "data.tags[].name", all: true}
  synopsis: {path: data.attributes.description}
  status: {path: data.attributes.status}
chapters:
  request:
    path: "/api/series/{id.id}/chapters"
    format: json
    query:
      page: "{page}"
  items: data
  fields:
    id: {path: id}
    name: {path: title}
    number: {path: chapter}
    date: {path: publishedAt}
  pagination:
    strategy: page_total
    total_pages: {path: pages}
pages:
  request:
    path: "/api/at-home/{id}"
    format: json
  vars:
    host: {path: baseUrl}
    hash: {path: chapter.hash}
  items: chapter.data
  image: {text: true}
  image_template: "{host}/data/{hash}/{value}"
image:
  request:
    path: "{url}"
  image:
    selector: "img#page"
    attr: src
    absolute: true
`

var jsonSeries = []map[string]any{
	{"id": "42", "slug": "solo-leveling", "attributes": map[string]any{"title": "Solo Leveling", "cover": "/covers/42.jpg"}},
	{"id": "43", "slug": "omniscient-reader", "attributes": map[string]any{"title": "Omniscient Reader", "cover": "/covers/43.jpg"}},
	{"id": "44", "slug": "bad#slug", "attributes": map[string]any{"title": "Broken Slug"}},
}

func jsonSiteHandler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/series", func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		end := min(offset+limit, len(jsonSeries))
		items := []map[string]any{}
		if offset < end {
			items = jsonSeries[offset:end]
		}
		writeJSON(t, w, map[string]any{"data": items, "offset": offset, "limit": limit, "total": len(jsonSeries)})
	})
	mux.HandleFunc("/api/series/42", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{"data": map[string]any{
			"attributes":    map[string]any{"title": "Solo Leveling", "description": "Gates.", "status": "Ongoing"},
			"relationships": []map[string]any{{"name": "Chugong"}, {"name": "DUBU"}},
			"tags":          []map[string]any{{"name": "Action"}, {"name": "Fantasy"}},
		}})
	})
	mux.HandleFunc("/api/series/42/chapters", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			writeJSON(t, w, map[string]any{"pages": 2, "data": []map[string]any{
				{"id": "c1", "chapter": "1", "title": "", "publishedAt": "2024-01-01T00:00:00Z"},
			}})
			return
		}
		writeJSON(t, w, map[string]any{"pages": 2, "data": []map[string]any{
			{"id": "c3", "chapter": "3", "title": "", "publishedAt": "2024-03-01T10:00:00Z"},
			{"id": "c2", "chapter": "2", "title": "The Test", "publishedAt": "yesterday"},
		}})
	})
	mux.HandleFunc("/api/at-home/c3", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{
			"baseUrl": "https://uploads.example",
			"chapter": map[string]any{"hash": "abc", "data": []string{"1.png", "2.png"}},
		})
	})
	mux.HandleFunc("/api/series/99", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body>maintenance</body></html>`)
	})
	mux.HandleFunc("/reader/7", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><img id="page" src="/img/7.jpg"></body></html>`)
	})
	return mux
}

func writeJSON(t *testing.T, w http.ResponseWriter, payload any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Errorf("encode: %v", err)
	}
}

func newJSONConnector(t *testing.T) (*Connector, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(jsonSiteHandler(t))
	t.Cleanup(server.Close)

	cfg, err := Parse([]byte(strings.Replace(jsonProfile, "BASE", server.URL, 1)))
	if err != nil {
		t.Fatalf("parse profile: %v", err)
	}
	connector, err := NewConnector(cfg, Options{
		Doer: fetch.NewClient(fetch.Options{Timeout: 5 * time.Second}),
		Now:  func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("new connector: %v", err)
	}
	return connector, server
}

func TestJSONProfileCountPaginationAndIdentifiers(t *testing.T) {
	connector, server := newJSONConnector(t)
	ctx := context.Background()

	first, err := connector.ListPopular(ctx, 1)
	if err != nil {
		t.Fatalf("popular page 1: %v", err)
	}
	if !first.HasNextPage || len(first.Items) != 2 {
		t.Fatalf("expected 2 items and a next page, got %+v", first)
	}
	if first.Items[0].ID != "solo-leveling#42" {
		t.Fatalf("expected packed identifier, got %q", first.Items[0].ID)
	}
	if first.Items[0].ThumbnailURL != server.URL+"/covers/42.jpg" {
		t.Fatalf("unexpected thumbnail %q", first.Items[0].ThumbnailURL)
	}

	second, err := connector.ListPopular(ctx, 2)
	if err != nil {
		t.Fatalf("popular page 2: %v", err)
	}
	if second.HasNextPage {
		t.Fatalf("expected last page at offset 2 of 3")
	}
	if len(second.Items) != 0 {
		t.Fatalf("expected entry with delimiter in its slug to be skipped, got %+v", second.Items)
	}
}

func TestJSONProfileLocalSearch(t *testing.T) {
	connector, _ := newJSONConnector(t)

	result, err := connector.Search(context.Background(), 1, "LEVEL", nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].Title != "Solo Leveling" {
		t.Fatalf("expected only the matching title, got %+v", result.Items)
	}
	if _, err := connector.ListLatest(context.Background(), 1); err == nil {
		t.Fatalf("expected latest to be unsupported")
	}
}

func TestJSONProfileDetailsChaptersPagesImage(t *testing.T) {
	connector, server := newJSONConnector(t)
	ctx := context.Background()

	series, err := connector.FetchDetails(ctx, models.Series{ID: "solo-leveling#42"})
	if err != nil {
		t.Fatalf("details: %v", err)
	}
	if series.ID != "solo-leveling#42" || series.Status != models.StatusOngoing || series.Synopsis != "Gates." {
		t.Fatalf("unexpected details %+v", series)
	}
	if strings.Join(series.Authors, ",") != "Chugong,DUBU" || strings.Join(series.Genres, ",") != "Action,Fantasy" {
		t.Fatalf("unexpected authors or genres %+v", series)
	}

	chapters, err := connector.FetchChapters(ctx, series)
	if err != nil {
		t.Fatalf("chapters: %v", err)
	}
	if len(chapters) != 3 {
		t.Fatalf("expected chapters from both pages, got %+v", chapters)
	}
	if chapters[0].ID != "c3" || chapters[0].Name != "Chapter 3" {
		t.Fatalf("expected name synthesized from number, got %+v", chapters[0])
	}
	yesterday := time.Date(2024, 3, 30, 0, 0, 0, 0, time.UTC).UnixMilli()
	if chapters[1].Name != "The Test" || chapters[1].UploadedAt != yesterday {
		t.Fatalf("unexpected relative date chapter %+v", chapters[1])
	}
	if chapters[2].Number != 1 {
		t.Fatalf("expected chapter 1 last, got %+v", chapters[2])
	}

	pages, err := connector.FetchPages(ctx, chapters[0])
	if err != nil {
		t.Fatalf("pages: %v", err)
	}
	if len(pages) != 2 || pages[1].ImageURL != "https://uploads.example/data/abc/2.png" {
		t.Fatalf("unexpected pages %+v", pages)
	}

	image, err := connector.ResolveImage(ctx, models.Page{URL: "/reader/7"})
	if err != nil {
		t.Fatalf("resolve image: %v", err)
	}
	if image != server.URL+"/img/7.jpg" {
		t.Fatalf("unexpected image %q", image)
	}
	if direct, _ := connector.ResolveImage(ctx, models.Page{ImageURL: "https://x/y.jpg"}); direct != "https://x/y.jpg" {
		t.Fatalf("expected direct image url to pass through, got %q", direct)
	}

	if _, err := connector.FetchDetails(ctx, models.Series{ID: "no-delimiter"}); err == nil {
		t.Fatalf("expected identifier without parts to be rejected")
	}
}

func TestJSONProfileUndecodableBodyIsParseError(t *testing.T) {
	connector, _ := newJSONConnector(t)

	_, err := connector.FetchDetails(context.Background(), models.Series{ID: "maintenance#99"})
	var decode *normalize.DecodeError
	if !errors.As(err, &decode) {
		t.Fatalf("expected decode error, got %v", err)
	}
	if connectors.Classify(err) != connectors.ErrorParse {
		t.Fatalf("expected parse classification, got %s", connectors.Classify(err))
	}
}
