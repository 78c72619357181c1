package profile

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gabriel/source-connectors/internal/facets"
	"github.com/gabriel/source-connectors/internal/models"
	"github.com/gabriel/source-connectors/internal/pagination"
)

const (
	FormatHTML = "html"
	FormatJSON = "json"
)

// Config is one site profile as written in YAML.
type Config struct {
	Key         string              `yaml:"key"`
	Name        string              `yaml:"name"`
	Enabled     *bool               `yaml:"enabled"`
	BaseURL     string              `yaml:"base_url"`
	Hosts       []string            `yaml:"hosts"`
	Language    string              `yaml:"language"`
	Charset     string              `yaml:"charset"`
	Timezone    string              `yaml:"timezone"`
	Headers     map[string]string   `yaml:"headers"`
	HealthPath  string              `yaml:"health_path"`
	DateFormats []string            `yaml:"date_formats"`
	Status      map[string][]string `yaml:"status"`

	Popular  *ListingConfig `yaml:"popular"`
	Latest   *ListingConfig `yaml:"latest"`
	Search   *ListingConfig `yaml:"search"`
	Filters  *FiltersConfig `yaml:"filters"`
	Details  DetailsConfig  `yaml:"details"`
	Chapters ChaptersConfig `yaml:"chapters"`
	Pages    PagesConfig    `yaml:"pages"`
	Image    *ImageConfig   `yaml:"image"`
}

// RequestConfig describes one HTTP call. String values are templates: {page},
// {query}, {id} and identifier part names expand to their values, and a
// "|query" or "|path" suffix escapes the value.
type RequestConfig struct {
	Method  string            `yaml:"method"`
	Path    string            `yaml:"path"`
	Query   map[string]string `yaml:"query"`
	Form    map[string]string `yaml:"form"`
	Headers map[string]string `yaml:"headers"`
	Format  string            `yaml:"format"`
}

// FieldSpec extracts a value from an HTML node (selector, attributes, text) or
// a JSON value (dotted path, "[]" fans out over arrays).
type FieldSpec struct {
	Selector string   `yaml:"selector"`
	Path     string   `yaml:"path"`
	Attr     string   `yaml:"attr"`
	Attrs    []string `yaml:"attrs"`
	OwnText  bool     `yaml:"own_text"`
	Text     bool     `yaml:"text"`
	From     string   `yaml:"from"`
	Regex    string   `yaml:"regex"`
	Trim     string   `yaml:"trim_prefix"`
	All      bool     `yaml:"all"`
	Split    string   `yaml:"split"`
	Absolute bool     `yaml:"absolute"`
	Relative bool     `yaml:"relative"`
	Default  string   `yaml:"default"`
}

// hasSource reports whether the field reads anything. Text selects the item's
// own text when no selector or path is given.
func (f FieldSpec) hasSource() bool {
	return f.Selector != "" || f.Path != "" || f.Attr != "" || len(f.Attrs) > 0 || f.From != "" || f.OwnText || f.Text
}

func (f FieldSpec) empty() bool {
	return !f.hasSource() && f.Default == ""
}

type PaginationConfig struct {
	Strategy      string    `yaml:"strategy"`
	NextSelector  string    `yaml:"next_selector"`
	DisabledClass string    `yaml:"disabled_class"`
	Total         FieldSpec `yaml:"total"`
	TotalPages    FieldSpec `yaml:"total_pages"`
	Offset        FieldSpec `yaml:"offset"`
	PerPage       int       `yaml:"per_page"`
}

type IdentifierConfig struct {
	Parts []string `yaml:"parts"`
}

type ListingConfig struct {
	Request     RequestConfig        `yaml:"request"`
	Items       string               `yaml:"items"`
	Fields      map[string]FieldSpec `yaml:"fields"`
	Identifier  IdentifierConfig     `yaml:"identifier"`
	Pagination  PaginationConfig     `yaml:"pagination"`
	LocalFilter bool                 `yaml:"local_filter"`
}

type FacetSource struct {
	Items     string    `yaml:"items"`
	ValueAttr string    `yaml:"value_attr"`
	Value     FieldSpec `yaml:"value"`
	Label     FieldSpec `yaml:"label"`
	SkipEmpty bool      `yaml:"skip_empty"`
}

type FacetConfig struct {
	Key     string                `yaml:"key"`
	Label   string                `yaml:"label"`
	Kind    string                `yaml:"kind"`
	Param   string                `yaml:"param"`
	Default string                `yaml:"default"`
	Options []facets.Option       `yaml:"options"`
	Toggle  facets.ToggleEncoding `yaml:"toggle"`
	Source  *FacetSource          `yaml:"source"`
}

type FiltersConfig struct {
	Request RequestConfig `yaml:"request"`
	Facets  []FacetConfig `yaml:"facets"`
}

type StatusRule struct {
	Selector string `yaml:"selector"`
	Status   string `yaml:"status"`
}

type DetailsConfig struct {
	Request    RequestConfig `yaml:"request"`
	Title      FieldSpec     `yaml:"title"`
	Thumbnail  FieldSpec     `yaml:"thumbnail"`
	Authors    FieldSpec     `yaml:"authors"`
	Artists    FieldSpec     `yaml:"artists"`
	Genres     []FieldSpec   `yaml:"genres"`
	Synopsis   FieldSpec     `yaml:"synopsis"`
	Status     FieldSpec     `yaml:"status"`
	StatusWhen []StatusRule  `yaml:"status_when"`
}

type ChaptersConfig struct {
	Request    RequestConfig        `yaml:"request"`
	Container  FieldSpec            `yaml:"container"`
	Items      string               `yaml:"items"`
	Fields     map[string]FieldSpec `yaml:"fields"`
	Identifier IdentifierConfig     `yaml:"identifier"`
	Pagination PaginationConfig     `yaml:"pagination"`
	MaxPages   int                  `yaml:"max_pages"`
}

// PrepareConfig is a request made before the main one whose extracted vars and
// cookies feed the main request templates.
type PrepareConfig struct {
	Request RequestConfig        `yaml:"request"`
	Vars    map[string]FieldSpec `yaml:"vars"`
	Cookies []string             `yaml:"cookies"`
}

type PagesConfig struct {
	Prepare       *PrepareConfig       `yaml:"prepare"`
	Request       RequestConfig        `yaml:"request"`
	Vars          map[string]FieldSpec `yaml:"vars"`
	Items         string               `yaml:"items"`
	Image         FieldSpec            `yaml:"image"`
	ImageTemplate string               `yaml:"image_template"`
	Tokens        bool                 `yaml:"tokens"`
}

type ImageConfig struct {
	Request RequestConfig `yaml:"request"`
	Image   FieldSpec     `yaml:"image"`
}

func (c *Config) normalizeAndValidate() error {
	c.Key = strings.ToLower(strings.TrimSpace(c.Key))
	c.Name = strings.TrimSpace(c.Name)
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")

	if c.Key == "" {
		return fmt.Errorf("key is required")
	}
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	parsed, err := url.Parse(c.BaseURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("base_url %q must be an absolute http(s) url", c.BaseURL)
	}
	if len(c.Hosts) == 0 {
		c.Hosts = []string{parsed.Hostname()}
	}
	if strings.TrimSpace(c.Language) == "" {
		c.Language = "en"
	}
	if strings.TrimSpace(c.HealthPath) == "" {
		c.HealthPath = "/"
	}

	if c.Popular == nil {
		return fmt.Errorf("popular is required")
	}
	for name, listing := range map[string]*ListingConfig{"popular": c.Popular, "latest": c.Latest, "search": c.Search} {
		if listing == nil {
			continue
		}
		if err := listing.normalizeAndValidate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	for name, listing := range map[string]*ListingConfig{"latest": c.Latest, "search": c.Search} {
		if listing != nil && strings.Join(listing.Identifier.Parts, ",") != strings.Join(c.Popular.Identifier.Parts, ",") {
			return fmt.Errorf("%s: identifier parts must match popular", name)
		}
	}

	if c.Filters != nil {
		if err := c.Filters.normalizeAndValidate(); err != nil {
			return fmt.Errorf("filters: %w", err)
		}
	}

	c.Details.Request.normalize("{id}")
	if c.Details.Title.empty() {
		return fmt.Errorf("details.title is required")
	}
	for _, rule := range c.Details.StatusWhen {
		if rule.Selector == "" || models.ParseStatus(rule.Status) == models.StatusUnknown {
			return fmt.Errorf("details.status_when needs a selector and a known status, got %q", rule.Status)
		}
	}

	c.Chapters.Request.normalize("{id}")
	if strings.TrimSpace(c.Chapters.Items) == "" {
		return fmt.Errorf("chapters.items is required")
	}
	if _, ok := c.Chapters.Fields["id"]; !ok {
		return fmt.Errorf("chapters.fields.id is required")
	}
	if err := validatePagination(&c.Chapters.Pagination, pagination.StrategyNone); err != nil {
		return fmt.Errorf("chapters: %w", err)
	}
	if c.Chapters.MaxPages <= 0 {
		c.Chapters.MaxPages = 50
	}
	if err := validateParts(c.Chapters.Identifier, c.Chapters.Fields); err != nil {
		return fmt.Errorf("chapters: %w", err)
	}

	if c.Pages.Prepare != nil {
		c.Pages.Prepare.Request.normalize("{id}")
	}
	c.Pages.Request.normalize("{id}")
	if strings.TrimSpace(c.Pages.Items) == "" {
		return fmt.Errorf("pages.items is required")
	}
	if c.Pages.Image.empty() {
		if c.Pages.Request.Format == FormatJSON {
			return fmt.Errorf("pages.image is required for json pages")
		}
		c.Pages.Image = FieldSpec{Attrs: defaultImageAttrs, Absolute: true}
	}

	if c.Image != nil {
		c.Image.Request.normalize("{url}")
		if c.Image.Image.empty() {
			c.Image.Image = FieldSpec{Selector: "img", Attrs: defaultImageAttrs, Absolute: true}
		}
	}

	return nil
}

func (l *ListingConfig) normalizeAndValidate() error {
	l.Request.normalize("")
	if l.Request.Path == "" {
		return fmt.Errorf("request.path is required")
	}
	if strings.TrimSpace(l.Items) == "" {
		return fmt.Errorf("items is required")
	}
	if _, ok := l.Fields["id"]; !ok {
		return fmt.Errorf("fields.id is required")
	}
	if _, ok := l.Fields["title"]; !ok {
		return fmt.Errorf("fields.title is required")
	}
	if _, ok := l.Fields["thumbnail"]; !ok && l.Request.Format == FormatHTML {
		l.Fields["thumbnail"] = FieldSpec{Selector: "img", Attrs: defaultImageAttrs, Absolute: true}
	}
	if err := validatePagination(&l.Pagination, pagination.StrategyNextElement); err != nil {
		return err
	}
	return validateParts(l.Identifier, l.Fields)
}

func (f *FiltersConfig) normalizeAndValidate() error {
	f.Request.normalize("")
	seen := map[string]bool{}
	for i := range f.Facets {
		facet := &f.Facets[i]
		facet.Key = strings.TrimSpace(facet.Key)
		if seen[facet.Key] {
			return fmt.Errorf("duplicate facet %q", facet.Key)
		}
		seen[facet.Key] = true
		if facet.Label == "" {
			facet.Label = facet.Key
		}
		if facet.Kind == "" {
			facet.Kind = string(facets.KindSelect)
		}
		if facet.Kind == string(facets.KindToggle) && facet.Toggle.Style == "" {
			facet.Toggle.Style = facets.TogglePrefix
		}
		if err := facet.static().Validate(); err != nil {
			return err
		}
		if facet.Source != nil {
			if facet.Source.Label.empty() {
				facet.Source.Label = FieldSpec{Text: true}
			}
			if f.Request.Path == "" {
				return fmt.Errorf("facet %q has a source but filters.request.path is empty", facet.Key)
			}
			if strings.TrimSpace(facet.Source.Items) == "" {
				return fmt.Errorf("facet %q: source.items is required", facet.Key)
			}
			if facet.Source.ValueAttr == "" && facet.Source.Value.empty() {
				facet.Source.ValueAttr = "value"
			}
		}
	}
	return nil
}

func (r *RequestConfig) normalize(defaultPath string) {
	r.Method = strings.ToUpper(strings.TrimSpace(r.Method))
	if r.Method == "" {
		r.Method = "GET"
	}
	r.Path = strings.TrimSpace(r.Path)
	if r.Path == "" {
		r.Path = defaultPath
	}
	r.Format = strings.ToLower(strings.TrimSpace(r.Format))
	if r.Format == "" {
		r.Format = FormatHTML
	}
}

func validatePagination(p *PaginationConfig, fallback pagination.Strategy) error {
	if strings.TrimSpace(p.Strategy) == "" {
		p.Strategy = string(fallback)
	}
	strategy, err := pagination.ParseStrategy(p.Strategy)
	if err != nil {
		return err
	}
	p.Strategy = string(strategy)

	switch strategy {
	case pagination.StrategyNextElement:
		if p.NextSelector == "" {
			return fmt.Errorf("pagination.next_selector is required for next_element")
		}
	case pagination.StrategyCount:
		if p.Total.empty() {
			return fmt.Errorf("pagination.total is required for count")
		}
		if p.PerPage <= 0 {
			return fmt.Errorf("pagination.per_page is required for count")
		}
	case pagination.StrategyPageTotal:
		if p.TotalPages.empty() {
			return fmt.Errorf("pagination.total_pages is required for page_total")
		}
	case pagination.StrategyPageSize:
		if p.PerPage <= 0 {
			return fmt.Errorf("pagination.per_page is required for page_size")
		}
	}
	return nil
}

func validateParts(identifier IdentifierConfig, fields map[string]FieldSpec) error {
	for _, part := range identifier.Parts {
		if _, ok := fields[part]; !ok {
			return fmt.Errorf("identifier part %q has no field", part)
		}
	}
	return nil
}

func (c *Config) isEnabled() bool {
	if c.Enabled == nil {
		return true
	}
	return *c.Enabled
}

func (f FacetConfig) static() facets.Facet {
	return facets.Facet{
		Key:     f.Key,
		Label:   f.Label,
		Kind:    facets.Kind(f.Kind),
		Param:   f.Param,
		Options: append([]facets.Option(nil), f.Options...),
		Default: f.Default,
		Toggle:  f.Toggle,
	}
}
