package profile

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gabriel/source-connectors/internal/connectors"
	"github.com/gabriel/source-connectors/internal/dates"
	"github.com/gabriel/source-connectors/internal/document"
	"github.com/gabriel/source-connectors/internal/facets"
	"github.com/gabriel/source-connectors/internal/fetch"
	"github.com/gabriel/source-connectors/internal/models"
	"github.com/gabriel/source-connectors/internal/normalize"
)

var defaultImageAttrs = []string{"data-src", "data-lazy-src", "data-original", "data-cfsrc", "srcset|first-url", "src|no-placeholder"}

type Options struct {
	Doer        fetch.Doer
	Preferences connectors.Preferences
	Logger      *slog.Logger
	// Now overrides the clock used for relative dates.
	Now            func() time.Time
	FilterAttempts int
	FilterTimeout  time.Duration
}

// Connector serves one site described entirely by a profile.
type Connector struct {
	config  Config
	doer    fetch.Doer
	prefs   connectors.Preferences
	logger  *slog.Logger
	extract *extractor
	dates   *dates.Normalizer
	status  normalize.StatusTable
	filters *facets.Registry
}

func NewConnector(cfg Config, opts Options) (*Connector, error) {
	if err := cfg.normalizeAndValidate(); err != nil {
		return nil, err
	}
	if opts.Doer == nil {
		return nil, fmt.Errorf("profile %s: doer is required", cfg.Key)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("connector", cfg.Key)

	ex := newExtractor()
	for _, spec := range cfg.fieldSpecs() {
		if err := ex.compile(spec); err != nil {
			return nil, fmt.Errorf("profile %s: %w", cfg.Key, err)
		}
	}

	locale := dates.LocaleFor(cfg.Language).WithLayouts(cfg.DateFormats...)
	if cfg.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("profile %s: timezone: %w", cfg.Key, err)
		}
		locale = locale.WithLocation(loc)
	}
	var dateOpts []dates.Option
	if opts.Now != nil {
		dateOpts = append(dateOpts, dates.WithClock(opts.Now))
	}

	status := normalize.DefaultStatusTable()
	if len(cfg.Status) > 0 {
		extra := map[models.Status][]string{}
		var order []models.Status
		for name, words := range cfg.Status {
			parsed := models.ParseStatus(name)
			if parsed == models.StatusUnknown {
				return nil, fmt.Errorf("profile %s: unknown status %q", cfg.Key, name)
			}
			extra[parsed] = words
		}
		for _, candidate := range []models.Status{models.StatusPublishingFinished, models.StatusCompleted, models.StatusHiatus, models.StatusCancelled, models.StatusOngoing} {
			if _, ok := extra[candidate]; ok {
				order = append(order, candidate)
			}
		}
		status = status.With(extra, order)
	}

	c := &Connector{
		config:  cfg,
		doer:    opts.Doer,
		prefs:   opts.Preferences,
		logger:  logger,
		extract: ex,
		dates:   dates.New(locale, dateOpts...),
		status:  status,
	}
	c.filters = c.newFilterRegistry(opts)
	return c, nil
}

func (c *Connector) Key() string {
	return c.config.Key
}

func (c *Connector) Name() string {
	return c.config.Name
}

func (c *Connector) Kind() string {
	return connectors.KindYAML
}

func (c *Connector) Hosts() []string {
	return append([]string(nil), c.config.Hosts...)
}

func (c *Connector) Capabilities() connectors.Capabilities {
	return connectors.Capabilities{
		Latest:          c.config.Latest != nil,
		Search:          c.config.Search != nil,
		Filters:         c.config.Filters != nil && len(c.config.Filters.Facets) > 0,
		ImageResolution: c.config.Image != nil,
	}
}

func (c *Connector) HealthCheck(ctx context.Context) error {
	endpoint := joinURL(c.baseURL(ctx), c.config.HealthPath)
	if _, err := c.doer.Do(ctx, fetch.Request{Method: http.MethodGet, URL: endpoint, Header: c.headers(ctx, nil, nil)}); err != nil {
		return fmt.Errorf("request health: %w", err)
	}
	return nil
}

// baseURL honours the host's mirror override when one is stored.
func (c *Connector) baseURL(ctx context.Context) string {
	if c.prefs == nil {
		return c.config.BaseURL
	}
	override, ok, err := c.prefs.GetString(ctx, c.config.Key, connectors.PreferenceBaseURL)
	if err != nil {
		c.logger.Warn("read base url preference", "error", err)
		return c.config.BaseURL
	}
	override = strings.TrimRight(strings.TrimSpace(override), "/")
	if !ok || override == "" {
		return c.config.BaseURL
	}
	return override
}

func (c *Connector) headers(ctx context.Context, extra map[string]string, v vars) http.Header {
	header := http.Header{}
	header.Set("Referer", c.baseURL(ctx)+"/")
	for key, value := range c.config.Headers {
		header.Set(key, expandValue(value, v))
	}
	for key, value := range extra {
		if expanded := expandValue(value, v); expanded != "" {
			header.Set(key, expanded)
		}
	}
	return header
}

// load performs one configured request and parses the answer. Extra values
// (encoded filters) go to the query string for GET and to the form for POST.
func (c *Connector) load(ctx context.Context, req RequestConfig, v vars, extra url.Values) (node, *fetch.Response, error) {
	base := c.baseURL(ctx)
	v = v.with(map[string]string{"base_url": base})

	target := joinURL(base, expand(req.Path, v))

	query := url.Values{}
	for key, value := range req.Query {
		if expanded := expandValue(value, v); expanded != "" {
			query.Set(key, expanded)
		}
	}
	form := url.Values{}
	for key, value := range req.Form {
		form.Set(key, expandValue(value, v))
	}
	if req.Method == http.MethodGet {
		mergeValues(query, extra)
	} else {
		mergeValues(form, extra)
	}
	target = appendQuery(target, query)

	var body []byte
	if len(form) > 0 {
		body = []byte(form.Encode())
	}

	res, err := c.doer.Do(ctx, fetch.Request{
		Method: req.Method,
		URL:    target,
		Header: c.headers(ctx, req.Headers, v),
		Body:   body,
	})
	if err != nil {
		return node{}, nil, err
	}

	pageURL := res.URL
	if pageURL == "" {
		pageURL = target
	}

	if req.Format == FormatJSON {
		payload, err := document.ParseJSON(res.Body)
		if err != nil {
			return node{}, nil, &normalize.DecodeError{Source: pageURL, Err: err}
		}
		return node{json: payload, pageURL: pageURL, siteURL: base}, res, nil
	}

	doc, err := document.ParseHTML(res.Body, pageURL, c.config.Charset)
	if err != nil {
		return node{}, nil, &normalize.DecodeError{Source: pageURL, Err: err}
	}
	return node{sel: doc.Selection, pageURL: pageURL, siteURL: base}, res, nil
}

func mergeValues(dst url.Values, src url.Values) {
	for key, values := range src {
		for _, value := range values {
			dst.Add(key, value)
		}
	}
}

// expandValue expands a template whose result is encoded later (query, form
// and header values), so nothing is escaped here.
func expandValue(template string, v vars) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		return v[placeholderPattern.FindStringSubmatch(match)[1]]
	})
}
