package profile

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gabriel/source-connectors/internal/fetch"
)

func minimalProfile(key string, enabled bool) string {
	return fmt.Sprintf(`
key: %s
name: Site
enabled: %t
base_url: http://localhost:9999
popular:
  request:
    path: /popular
  items: article
  fields:
    id: {selector: a, attr: href}
    title: {selector: a}
  pagination:
    strategy: none
details:
  title: {selector: h1}
chapters:
  items: li
  fields:
    id: {selector: a, attr: href}
pages:
  items: img
`, key, enabled)
}

func writeProfile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadFromDir(t *testing.T) {
	tmpDir := t.TempDir()

	writeProfile(t, tmpDir, "a.yaml", minimalProfile("sitea", true))
	writeProfile(t, tmpDir, "b.yml", minimalProfile("siteb", false))
	writeProfile(t, tmpDir, "c.yaml", "key: [unterminated")
	writeProfile(t, tmpDir, "d.yaml", "key: sited\nname: D\nbase_url: http://localhost\npopular: {request: {path: /}, items: a, fields: {id: {attr: href}, title: {text: true}}}\n")
	writeProfile(t, tmpDir, "notes.txt", "ignored")

	loaded, err := LoadFromDir(tmpDir, Options{Doer: fetch.NewClient(fetch.Options{})})
	if err == nil {
		t.Fatalf("expected aggregated error for broken profiles")
	}
	if !strings.Contains(err.Error(), "c.yaml") || !strings.Contains(err.Error(), "d.yaml") {
		t.Fatalf("expected both broken files in error, got %v", err)
	}
	if len(loaded) != 1 || loaded[0].Key() != "sitea" {
		t.Fatalf("expected only sitea to load, got %d", len(loaded))
	}
}

func TestLoadFromMissingDir(t *testing.T) {
	loaded, err := LoadFromDir(filepath.Join(t.TempDir(), "missing"), Options{})
	if err != nil || loaded != nil {
		t.Fatalf("expected missing dir to be empty, got %v %v", loaded, err)
	}
}

func TestShippedProfilesLoad(t *testing.T) {
	loaded, err := LoadFromDir("../../../profiles", Options{Doer: fetch.NewClient(fetch.Options{})})
	if err != nil {
		t.Fatalf("load shipped profiles: %v", err)
	}
	if len(loaded) < 2 {
		t.Fatalf("expected at least 2 profiles, got %d", len(loaded))
	}
	for _, connector := range loaded {
		if len(connector.Hosts()) == 0 {
			t.Fatalf("%s: expected hosts", connector.Key())
		}
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	if _, err := Parse([]byte("key: x\nselectr: typo\n")); err == nil {
		t.Fatalf("expected unknown key to be rejected")
	}
}

func TestConfigValidation(t *testing.T) {
	base := func() Config {
		cfg, err := Parse([]byte(minimalProfile("x", true)))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		return cfg
	}

	cfg := base()
	if err := cfg.normalizeAndValidate(); err != nil {
		t.Fatalf("expected minimal profile to be valid: %v", err)
	}
	if cfg.Hosts[0] != "localhost" || cfg.HealthPath != "/" || cfg.Details.Request.Path != "{id}" {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
	if cfg.Popular.Fields["thumbnail"].Attrs == nil {
		t.Fatalf("expected default thumbnail candidates")
	}

	tests := map[string]func(*Config){
		"relative base url": func(c *Config) { c.BaseURL = "/relative" },
		"next without selector": func(c *Config) {
			c.Popular.Pagination = PaginationConfig{Strategy: "next_element"}
		},
		"count without total": func(c *Config) {
			c.Popular.Pagination = PaginationConfig{Strategy: "count", PerPage: 20}
		},
		"unknown strategy":    func(c *Config) { c.Popular.Pagination.Strategy = "infinite" },
		"missing title":       func(c *Config) { c.Details.Title = FieldSpec{} },
		"unknown status":      func(c *Config) { c.Details.StatusWhen = []StatusRule{{Selector: ".x", Status: "paused"}} },
		"identifier no field": func(c *Config) { c.Popular.Identifier.Parts = []string{"slug", "id"} },
		"sourced facet without request": func(c *Config) {
			c.Filters = &FiltersConfig{Facets: []FacetConfig{{Key: "genre", Param: "g", Source: &FacetSource{Items: "option"}}}}
		},
	}
	for name, mutate := range tests {
		cfg := base()
		mutate(&cfg)
		if err := cfg.normalizeAndValidate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestExpandTemplates(t *testing.T) {
	v := vars{"query": "one piece&co", "id": "/manga/x?y=1", "page": "2", "slug": "a b"}

	if got := expand("/search?q={query}&page={page}", v); got != "/search?q=one+piece%26co&page=2" {
		t.Fatalf("unexpected query expansion %q", got)
	}
	if got := expand("{id}", v); got != "/manga/x?y=1" {
		t.Fatalf("expected raw id, got %q", got)
	}
	if got := expand("/title/{slug|path}/{missing}", v); got != "/title/a%20b/" {
		t.Fatalf("unexpected path expansion %q", got)
	}
	if got := expandValue("{query}", v); got != "one piece&co" {
		t.Fatalf("expected unescaped value, got %q", got)
	}
}

func TestURLHelpers(t *testing.T) {
	if got := joinURL("https://a.test/", "manga/x"); got != "https://a.test/manga/x" {
		t.Fatalf("unexpected join %q", got)
	}
	if got := joinURL("https://a.test", "//cdn.test/x.jpg"); got != "https://cdn.test/x.jpg" {
		t.Fatalf("unexpected protocol relative join %q", got)
	}
	if got := relativeTo("https://a.test", "https://www.a.test/manga/x?p=1"); got != "/manga/x?p=1" {
		t.Fatalf("unexpected relative %q", got)
	}
	if got := relativeTo("https://a.test", "https://cdn.test/x.jpg"); got != "https://cdn.test/x.jpg" {
		t.Fatalf("expected foreign host to stay absolute, got %q", got)
	}
	if got := appendQuery("https://a.test/s?x=1", url.Values{"page": {"2"}}); got != "https://a.test/s?x=1&page=2" {
		t.Fatalf("unexpected query append %q", got)
	}
}
