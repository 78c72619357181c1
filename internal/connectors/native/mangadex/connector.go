package mangadex

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel/source-connectors/internal/connectors"
	"github.com/gabriel/source-connectors/internal/dates"
	"github.com/gabriel/source-connectors/internal/facets"
	"github.com/gabriel/source-connectors/internal/fetch"
	"github.com/gabriel/source-connectors/internal/normalize"
)

const (
	key               = "mangadex"
	defaultAPIBaseURL = "https://api.mangadex.org"
	defaultCoversURL  = "https://uploads.mangadex.org"
	defaultLanguage   = "en"
	listingLimit      = 20
	feedLimit         = 500
	maxFeedPages      = 20

	// PreferenceDataSaver switches reader pages to the compressed image set.
	PreferenceDataSaver = "data_saver"
)

var titleIDPattern = regexp.MustCompile(`^[0-9a-fA-F-]{32,36}$`)

type Options struct {
	APIBaseURL  string
	CoversURL   string
	Hosts       []string
	Language    string
	Doer        fetch.Doer
	Preferences connectors.Preferences
	Logger      *slog.Logger
	// Now overrides the clock used for chapter dates.
	Now            func() time.Time
	FilterAttempts int
	FilterTimeout  time.Duration
}

type Connector struct {
	apiBaseURL  string
	coversURL   string
	allowedHost []string
	language    string
	doer        fetch.Doer
	prefs       connectors.Preferences
	logger      *slog.Logger
	dates       *dates.Normalizer
	status      normalize.StatusTable
	filters     *facets.Registry
}

func NewConnector(opts Options) *Connector {
	doer := opts.Doer
	if doer == nil {
		doer = fetch.NewClient(fetch.Options{Timeout: 10 * time.Second})
	}
	apiBaseURL := strings.TrimRight(strings.TrimSpace(opts.APIBaseURL), "/")
	if apiBaseURL == "" {
		apiBaseURL = defaultAPIBaseURL
	}
	coversURL := strings.TrimRight(strings.TrimSpace(opts.CoversURL), "/")
	if coversURL == "" {
		coversURL = defaultCoversURL
	}
	allowedHost := opts.Hosts
	if len(allowedHost) == 0 {
		allowedHost = []string{"mangadex.org"}
	}
	language := strings.TrimSpace(opts.Language)
	if language == "" {
		language = defaultLanguage
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("connector", key)

	var dateOpts []dates.Option
	if opts.Now != nil {
		dateOpts = append(dateOpts, dates.WithClock(opts.Now))
	}

	c := &Connector{
		apiBaseURL:  apiBaseURL,
		coversURL:   coversURL,
		allowedHost: allowedHost,
		language:    language,
		doer:        doer,
		prefs:       opts.Preferences,
		logger:      logger,
		dates:       dates.New(dates.LocaleFor("en"), dateOpts...),
		status:      normalize.DefaultStatusTable(),
	}
	c.filters = facets.NewRegistry(baseFacets(), c.loadTags, facets.Options{
		Name:        key,
		MaxAttempts: opts.FilterAttempts,
		Timeout:     opts.FilterTimeout,
		Logger:      logger,
	})
	return c
}

func (c *Connector) Key() string {
	return key
}

func (c *Connector) Name() string {
	return "MangaDex"
}

func (c *Connector) Kind() string {
	return connectors.KindNative
}

func (c *Connector) Hosts() []string {
	return append([]string(nil), c.allowedHost...)
}

func (c *Connector) Capabilities() connectors.Capabilities {
	return connectors.Capabilities{Latest: true, Search: true, Filters: true}
}

func (c *Connector) HealthCheck(ctx context.Context) error {
	if _, err := c.doer.Do(ctx, fetch.Request{Method: http.MethodGet, URL: c.endpoint(ctx, "/ping", nil)}); err != nil {
		return fmt.Errorf("request ping: %w", err)
	}
	return nil
}

// apiBase honours a mirror stored under the base_url preference.
func (c *Connector) apiBase(ctx context.Context) string {
	if c.prefs == nil {
		return c.apiBaseURL
	}
	override, ok, err := c.prefs.GetString(ctx, key, connectors.PreferenceBaseURL)
	if err != nil {
		c.logger.Warn("read base url preference", "error", err)
		return c.apiBaseURL
	}
	override = strings.TrimRight(strings.TrimSpace(override), "/")
	if !ok || override == "" {
		return c.apiBaseURL
	}
	return override
}

func (c *Connector) dataSaver(ctx context.Context) bool {
	if c.prefs == nil {
		return false
	}
	enabled, ok, err := c.prefs.GetBool(ctx, key, PreferenceDataSaver)
	if err != nil {
		c.logger.Warn("read data saver preference", "error", err)
		return false
	}
	return ok && enabled
}

func (c *Connector) endpoint(ctx context.Context, route string, values url.Values) string {
	target := c.apiBase(ctx) + route
	if len(values) > 0 {
		target += "?" + values.Encode()
	}
	return target
}

// getJSON fetches an API route and decodes the body into out.
func (c *Connector) getJSON(ctx context.Context, route string, values url.Values, out any) error {
	res, err := c.doer.Do(ctx, fetch.Request{
		Method: http.MethodGet,
		URL:    c.endpoint(ctx, route, values),
		Header: http.Header{"Accept": {"application/json"}},
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(res.Body, out); err != nil {
		return &normalize.DecodeError{Source: route, Err: err}
	}
	return nil
}

// seriesID accepts a bare title id or a mangadex.org/title/{id} URL.
func (c *Connector) seriesID(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: series id is required", connectors.ErrInvalidInput)
	}
	if titleIDPattern.MatchString(trimmed) {
		return strings.ToLower(trimmed), nil
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" {
		return "", fmt.Errorf("%w: invalid mangadex id %q", connectors.ErrInvalidInput, trimmed)
	}
	if !c.isAllowedHost(parsed.Hostname()) {
		return "", fmt.Errorf("%w: url does not belong to mangadex", connectors.ErrInvalidInput)
	}

	segments := strings.Split(strings.Trim(path.Clean(parsed.Path), "/"), "/")
	if len(segments) < 2 || segments[0] != "title" || !titleIDPattern.MatchString(segments[1]) {
		return "", fmt.Errorf("%w: mangadex url must match /title/{id}", connectors.ErrInvalidInput)
	}
	return strings.ToLower(segments[1]), nil
}

func (c *Connector) isAllowedHost(host string) bool {
	host = strings.ToLower(strings.TrimSpace(host))
	for _, allowed := range c.allowedHost {
		allowed = strings.ToLower(strings.TrimSpace(allowed))
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}

// pickLocalized prefers the connector language, then romanized and original
// Japanese, then anything non-empty.
func (c *Connector) pickLocalized(values map[string]string) string {
	if values == nil {
		return ""
	}
	for _, lang := range []string{c.language, "en", "ja-ro", "ja", "pt-br", "es"} {
		if value := strings.TrimSpace(values[lang]); value != "" {
			return value
		}
	}
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
