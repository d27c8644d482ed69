package content

import (
	"context"
	stdio "io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	errs "github.com/matzehuels/knowmap/pkg/errors"
	"github.com/matzehuels/knowmap/pkg/httputil"
	"github.com/matzehuels/knowmap/pkg/io"
	"github.com/matzehuels/knowmap/pkg/observability"
	"github.com/matzehuels/knowmap/pkg/source"
)

// DefaultTimeout bounds a single request to the content service.
const DefaultTimeout = 10 * time.Second

// maxBody caps how much of a response is read.
const maxBody = 64 << 20

// Client fetches node records from the content service.
type Client struct {
	base    *url.URL
	http    *http.Client
	cache   *httputil.Cache
	retry   httputil.Policy
	headers map[string]string
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient replaces the default client (timeout [DefaultTimeout]).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithCache caches decoded responses under the "content" namespace.
func WithCache(hc *httputil.Cache) Option {
	return func(c *Client) { c.cache = hc.Namespace("content") }
}

// WithRetry replaces [httputil.DefaultPolicy].
func WithRetry(p httputil.Policy) Option {
	return func(c *Client) { c.retry = p }
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers[key] = value }
}

// NewClient creates a client for the service rooted at baseURL,
// e.g. "https://content.example.org/api".
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if err := errs.ValidateURL(baseURL); err != nil {
		return nil, err
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "invalid content url")
	}
	c := &Client{
		base:    u,
		http:    &http.Client{Timeout: DefaultTimeout},
		retry:   httputil.DefaultPolicy,
		headers: map[string]string{"Accept": "application/json"},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Name returns "content".
func (c *Client) Name() string { return "content" }

// Load fetches the whole graph (empty focal) or the focal node's map, using
// the response cache when one is configured.
func (c *Client) Load(ctx context.Context, focal string) (*io.Document, error) {
	return c.Fetch(ctx, focal, false)
}

// Fetch is Load with control over the cache. With refresh set the cache is
// bypassed and overwritten.
func (c *Client) Fetch(ctx context.Context, focal string, refresh bool) (*io.Document, error) {
	endpoint, err := c.endpoint(focal)
	if err != nil {
		return nil, err
	}

	var doc io.Document
	err = c.cached(ctx, endpoint.RequestURI(), refresh, &doc, func() error {
		d, err := c.get(ctx, endpoint)
		if err != nil {
			return err
		}
		doc = *d
		return nil
	})
	if err != nil {
		return nil, err
	}
	if focal != "" && doc.KeyNode == "" {
		doc.KeyNode = focal
	}
	return &doc, nil
}

func (c *Client) endpoint(focal string) (*url.URL, error) {
	u := *c.base
	if focal == "" {
		u.Path += "/nodes"
		return &u, nil
	}
	if err := errs.ValidateNodeID(focal); err != nil {
		return nil, err
	}
	u.Path += "/nodes/" + focal
	u.RawPath = ""
	u.RawQuery = url.Values{"set": {"map"}}.Encode()
	return &u, nil
}

// cached returns the cached value for key or runs fetch under the retry
// policy and stores the result.
func (c *Client) cached(ctx context.Context, key string, refresh bool, v any, fetch func() error) error {
	if !refresh {
		if ok, _ := c.cache.Get(ctx, key, v); ok {
			observability.Cache().OnCacheHit(ctx, "http")
			return nil
		}
		observability.Cache().OnCacheMiss(ctx, "http")
	}
	if err := c.retry.Do(ctx, fetch); err != nil {
		return err
	}
	if err := c.cache.Set(ctx, key, v); err == nil && c.cache != nil {
		observability.Cache().OnCacheSet(ctx, "http", 0)
	}
	return nil
}

func (c *Client) get(ctx context.Context, u *url.URL) (*io.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, u.Host, u.Path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, u.Host, u.Path, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, httputil.Retryable(errs.Wrap(errs.ErrCodeNetwork, err, "GET %s", u.Path))
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, u.Host, u.Path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	data, err := stdio.ReadAll(stdio.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, httputil.Retryable(errs.Wrap(errs.ErrCodeNetwork, err, "read %s", u.Path))
	}
	return io.Decode(data, io.FormatJSON)
}

func checkStatus(resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return errs.New(errs.ErrCodeNotFound, "content service: %s not found", resp.Request.URL.Path)
	case code == http.StatusTooManyRequests:
		retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		return &errs.RateLimitedError{RetryAfter: retryAfter, Message: "content service rate limit"}
	case code >= 500:
		return httputil.Retryable(errs.New(errs.ErrCodeNetwork, "content service: status %d", code))
	default:
		return errs.New(errs.ErrCodeNetwork, "content service: unexpected status %d", code)
	}
}

var _ source.Source = (*Client)(nil)
