package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultTimeout   = 15 * time.Second
	defaultMaxBody   = 32 << 20
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	URL        string
}

// Doer is the only thing connectors need from the transport.
type Doer interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// HTTPStatusError is returned for any non-2xx upstream answer.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "http status error"
	}
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// TransportError wraps a request that never produced a response.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	if e == nil {
		return "transport error"
	}
	return fmt.Sprintf("request %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// BodyTooLargeError is returned when a response body exceeds the client limit.
type BodyTooLargeError struct {
	URL   string
	Limit int64
}

func (e *BodyTooLargeError) Error() string {
	return fmt.Sprintf("response from %s exceeds %d bytes", e.URL, e.Limit)
}

type Options struct {
	Timeout        time.Duration
	UserAgent      string
	DefaultHeaders map[string]string
	// MinInterval spaces requests to the same host. Zero disables limiting.
	MinInterval time.Duration
	HTTPClient  *http.Client
	// MaxBodyBytes caps how much of a response is read. Defaults to 32 MiB.
	MaxBodyBytes int64
}

type Client struct {
	httpClient     *http.Client
	userAgent      string
	defaultHeaders map[string]string
	minInterval    time.Duration
	maxBody        int64

	limitersMu sync.Mutex
	limiters   map[string]*rate.Limiter
}

func NewClient(opts Options) *Client {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	headers := map[string]string{
		"Accept":          "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9",
	}
	for key, value := range opts.DefaultHeaders {
		headers[key] = value
	}

	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBody
	}

	return &Client{
		httpClient:     client,
		userAgent:      userAgent,
		defaultHeaders: headers,
		minInterval:    opts.MinInterval,
		maxBody:        maxBody,
		limiters:       map[string]*rate.Limiter{},
	}
}

func (c *Client) Get(ctx context.Context, rawURL string, header http.Header) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, URL: rawURL, Header: header})
}

func (c *Client) Post(ctx context.Context, rawURL string, header http.Header, body []byte) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, URL: rawURL, Header: header, Body: body})
}

func (c *Client) Do(ctx context.Context, request Request) (*Response, error) {
	method := strings.ToUpper(strings.TrimSpace(request.Method))
	if method == "" {
		method = http.MethodGet
	}

	parsed, err := url.Parse(strings.TrimSpace(request.URL))
	if err != nil {
		return nil, fmt.Errorf("invalid request url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q", parsed.Scheme)
	}

	if limiter := c.limiterFor(parsed.Hostname()); limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("wait for rate limiter: %w", err)
		}
	}

	var body io.Reader
	if len(request.Body) > 0 {
		body = bytes.NewReader(request.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, parsed.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	for key, value := range c.defaultHeaders {
		req.Header.Set(key, value)
	}
	req.Header.Set("User-Agent", c.userAgent)
	for key, values := range request.Header {
		req.Header.Del(key)
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if method == http.MethodPost && len(request.Body) > 0 && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{URL: parsed.String(), Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, c.maxBody))
		return nil, &HTTPStatusError{URL: parsed.String(), StatusCode: res.StatusCode}
	}

	rawBody, err := io.ReadAll(io.LimitReader(res.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if int64(len(rawBody)) > c.maxBody {
		return nil, &BodyTooLargeError{URL: parsed.String(), Limit: c.maxBody}
	}

	finalURL := parsed.String()
	if res.Request != nil && res.Request.URL != nil {
		finalURL = res.Request.URL.String()
	}

	return &Response{
		StatusCode: res.StatusCode,
		Header:     res.Header,
		Body:       rawBody,
		URL:        finalURL,
	}, nil
}

func (c *Client) limiterFor(host string) *rate.Limiter {
	if c.minInterval <= 0 {
		return nil
	}
	host = strings.ToLower(host)

	c.limitersMu.Lock()
	defer c.limitersMu.Unlock()

	limiter, ok := c.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(c.minInterval), 1)
		c.limiters[host] = limiter
	}
	return limiter
}
