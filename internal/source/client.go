// Package source fetches pages of business records from the restaurant
// directory's public listing API.
package source

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/venue-ingest/internal/resilience"
)

// Query parameter names understood by the directory API.
const (
	ParamPageNumber = "page.number"
	ParamPageSize   = "page.size"
)

// DefaultMaxBodyBytes caps a listing response when Config.MaxBodyBytes is unset.
const DefaultMaxBodyBytes int64 = 8 << 20

// Config configures the directory API client.
type Config struct {
	BaseURL       string
	Headers       map[string]string // merged over DefaultHeaders, key by key
	Params        map[string]string // fixed extra query parameters
	Timeout       time.Duration
	RatePerSecond float64 // 0 disables the client-side rate cap
	Retry         resilience.RetryConfig
	HTTPClient    *http.Client
	MaxBodyBytes  int64 // larger responses fail the page
}

// DefaultHeaders returns a desktop browser header profile. The directory
// serves the JSON listing to browsers, so requests mirror one.
func DefaultHeaders() map[string]string {
	return map[string]string{
		"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Accept":          "application/json, text/plain, */*",
		"Accept-Language": "th-TH,th;q=0.9,en-US;q=0.8,en;q=0.7",
		"Referer":         "https://www.wongnai.com/",
	}
}

// Client issues page requests against the directory API.
type Client struct {
	base    *url.URL
	headers map[string]string
	params  map[string]string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
	maxBody int64
}

// New validates cfg and creates a Client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, eris.New("source: base url is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, eris.Wrapf(err, "source: parse base url %q", cfg.BaseURL)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, eris.Errorf("source: unsupported scheme %q", base.Scheme)
	}

	headers := DefaultHeaders()
	for k, v := range cfg.Headers {
		headers[http.CanonicalHeaderKey(k)] = v
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}

	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}

	return &Client{
		base:    base,
		headers: headers,
		params:  cfg.Params,
		http:    httpClient,
		limiter: limiter,
		retry:   cfg.Retry,
		maxBody: maxBody,
	}, nil
}

// envelope is the listing response wrapper; records live at page.entities.
type envelope struct {
	Page *struct {
		Entities *[]json.RawMessage `json:"entities"`
	} `json:"page"`
}

// FetchPage requests one page and returns its raw records. A missing
// page.entities path is a *FetchError, not an empty page.
func (c *Client) FetchPage(ctx context.Context, page, size int) ([]json.RawMessage, error) {
	if page < 1 || size < 1 {
		return nil, ErrInvalidPage
	}

	cfg := c.retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("fetch_page", page)
	}

	records, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]json.RawMessage, error) {
		return c.fetchOnce(ctx, page, size)
	})
	if err != nil {
		return nil, &FetchError{Page: page, Cause: err}
	}
	return records, nil
}

func (c *Client) fetchOnce(ctx context.Context, page, size int) ([]json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "rate limiter wait")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pageURL(page, size), nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "http request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, eris.Wrap(err, "read response body")
	}
	if int64(len(body)) > c.maxBody {
		return nil, eris.Errorf("response body exceeds %d bytes", c.maxBody)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := eris.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 200))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return nil, statusErr
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, eris.Wrap(err, "decode envelope")
	}
	if env.Page == nil || env.Page.Entities == nil {
		return nil, eris.New("malformed response: missing page.entities")
	}

	zap.L().Debug("fetched page",
		zap.String("component", "source"),
		zap.Int("page", page),
		zap.Int("records", len(*env.Page.Entities)),
	)
	return *env.Page.Entities, nil
}

// pageURL merges the paging and fixed parameters into the base URL's query.
func (c *Client) pageURL(page, size int) string {
	u := *c.base
	q := u.Query()
	for k, v := range c.params {
		q.Set(k, v)
	}
	q.Set(ParamPageNumber, strconv.Itoa(page))
	q.Set(ParamPageSize, strconv.Itoa(size))
	u.RawQuery = q.Encode()
	return u.String()
}

func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
