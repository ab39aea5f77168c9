package client

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/apigraph/pkg/buildinfo"
	"github.com/matzehuels/apigraph/pkg/cache"
	"github.com/matzehuels/apigraph/pkg/errors"
	"github.com/matzehuels/apigraph/pkg/httputil"
	"github.com/matzehuels/apigraph/pkg/jsonapi"
	"github.com/matzehuels/apigraph/pkg/model"
	"github.com/matzehuels/apigraph/pkg/observability"
	"github.com/matzehuels/apigraph/pkg/response"
)

const (
	httpTimeout = 30 * time.Second

	// maxBodySize bounds the size of a response body read into memory.
	maxBodySize = 32 << 20

	// RequestIDHeader carries the per-request correlation id.
	RequestIDHeader = "X-Request-ID"
)

// NewHTTPClient creates an HTTP client with the standard request timeout.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// Client fetches JSON:API documents with caching and retries.
// It is safe for concurrent use.
type Client struct {
	base     *url.URL
	http     *http.Client
	cache    cache.Cache
	keyer    cache.Keyer
	ttl      time.Duration
	headers  map[string]string
	logger   *log.Logger
	attempts int
	delay    time.Duration
	maxBody  int64

	group singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithCache stores fetched bodies in c for ttl. A ttl of zero never expires.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(cl *Client) {
		if c != nil {
			cl.cache = c
			cl.ttl = ttl
		}
	}
}

// WithKeyer sets the cache key builder. Defaults to cache.NewDefaultKeyer().
func WithKeyer(k cache.Keyer) Option {
	return func(cl *Client) {
		if k != nil {
			cl.keyer = k
		}
	}
}

// WithHeaders adds default headers to every request.
// They override the built-in JSON:API headers for the same key.
func WithHeaders(h map[string]string) Option {
	return func(cl *Client) {
		for k, v := range h {
			cl.headers[k] = v
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(cl *Client) {
		if h != nil {
			cl.http = h
		}
	}
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

// WithRetry sets the number of attempts and the initial backoff delay.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(cl *Client) {
		cl.attempts = attempts
		cl.delay = delay
	}
}

// New creates a Client. baseURL may be empty, in which case every fetch
// must use an absolute URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	c := &Client{
		http:  NewHTTPClient(),
		cache: cache.NewNullCache(),
		keyer: cache.NewDefaultKeyer(),
		headers: map[string]string{
			"Accept":     jsonapi.MediaType,
			"User-Agent": buildinfo.UserAgent(),
		},
		logger:   log.New(io.Discard),
		attempts: 3,
		delay:    time.Second,
		maxBody:  maxBodySize,
	}
	if baseURL != "" {
		if err := errors.ValidateURL(baseURL); err != nil {
			return nil, err
		}
		u, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/")
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse base URL")
		}
		c.base = u
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Resolve turns path into an absolute URL. Absolute URLs are returned as is;
// relative paths are resolved against the base URL.
func (c *Client) Resolve(path string) (string, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		if err := errors.ValidateURL(path); err != nil {
			return "", err
		}
		return path, nil
	}
	if c.base == nil {
		return "", errors.New(errors.ErrCodeInvalidInput, "relative path %q without a base URL", path)
	}
	if err := errors.ValidatePath(path); err != nil {
		return "", err
	}
	ref, err := url.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidPath, err, "parse path %q", path)
	}
	return c.base.ResolveReference(ref).String(), nil
}

// Fetch returns the raw body for path, from cache unless refresh is set.
// Concurrent fetches of the same URL share one request.
func (c *Client) Fetch(ctx context.Context, path string, refresh bool) ([]byte, error) {
	u, err := c.Resolve(path)
	if err != nil {
		return nil, err
	}
	host := ""
	if parsed, err := url.Parse(u); err == nil {
		host = parsed.Host
	}
	key := c.keyer.HTTPKey(host, u)

	if !refresh {
		if data, ok, err := c.cache.Get(ctx, key); err != nil {
			c.logger.Warn("cache read failed", "url", u, "err", err)
		} else if ok {
			observability.Cache().OnCacheHit(ctx, "http")
			c.logger.Debug("cache hit", "url", u)
			return data, nil
		}
		observability.Cache().OnCacheMiss(ctx, "http")
	}

	// The shared fetch outlives any one caller; each caller stops waiting
	// when its own context is done.
	ch := c.group.DoChan(key, func() (any, error) {
		fctx := context.WithoutCancel(ctx)
		var body []byte
		err := httputil.Retry(fctx, c.attempts, c.delay, func() error {
			var err error
			body, err = c.get(fctx, u)
			return err
		})
		if err != nil {
			return nil, err
		}
		if err := c.cache.Set(fctx, key, body, c.ttl); err != nil {
			c.logger.Warn("cache write failed", "url", u, "err", err)
		} else {
			observability.Cache().OnCacheSet(fctx, "http", len(body))
		}
		return body, nil
	})

	select {
	case <-ctx.Done():
		return nil, errors.Wrap(errors.ErrCodeTimeout, ctx.Err(), "GET %s", u)
	case res := <-ch:
		if res.Err != nil {
			return nil, unwrapRetryable(res.Err)
		}
		if res.Shared {
			c.logger.Debug("shared in-flight fetch", "url", u)
		}
		return res.Val.([]byte), nil
	}
}

// FetchAny fetches path and builds a Single or Collection from its shape.
func (c *Client) FetchAny(ctx context.Context, path string, t *model.Type, refresh bool, opts ...response.Option) (response.Response, error) {
	raw, err := c.Fetch(ctx, path, refresh)
	if err != nil {
		return nil, err
	}
	return response.Decode(raw, t, c.responseOptions(opts)...)
}

// FetchSingle fetches path and materializes it as a single-resource response.
func (c *Client) FetchSingle(ctx context.Context, path string, t *model.Type, refresh bool, opts ...response.Option) (*response.Single, error) {
	body, err := c.fetchBody(ctx, path, refresh)
	if err != nil {
		return nil, err
	}
	return response.NewSingle(body, t, c.responseOptions(opts)...)
}

// FetchCollection fetches path and materializes it as a collection response.
func (c *Client) FetchCollection(ctx context.Context, path string, t *model.Type, refresh bool, opts ...response.Option) (*response.Collection, error) {
	body, err := c.fetchBody(ctx, path, refresh)
	if err != nil {
		return nil, err
	}
	return response.NewCollection(body, t, c.responseOptions(opts)...)
}

func (c *Client) fetchBody(ctx context.Context, path string, refresh bool) (*jsonapi.Body, error) {
	raw, err := c.Fetch(ctx, path, refresh)
	if err != nil {
		return nil, err
	}
	return jsonapi.Decode(raw)
}

func (c *Client) responseOptions(opts []response.Option) []response.Option {
	return append([]response.Option{response.WithLogger(c.logger)}, opts...)
}

// get performs one GET request.
func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "build request")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	reqID := uuid.NewString()
	req.Header.Set(RequestIDHeader, reqID)

	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, req.URL.Host, req.URL.Path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, req.URL.Host, req.URL.Path, err)
		return nil, httputil.Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "GET %s", u))
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, req.URL.Host, req.URL.Path, resp.StatusCode, time.Since(start))
	c.logger.Debug("http response", "url", u, "status", resp.StatusCode, "request_id", reqID, "duration", time.Since(start))

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, httputil.Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "read body of %s", u))
	}
	if int64(len(body)) > c.maxBody {
		return nil, errors.New(errors.ErrCodeTooLarge, "response from %s exceeds %d bytes", u, c.maxBody)
	}
	if err := checkStatus(resp, body); err != nil {
		return nil, err
	}
	return body, nil
}

func checkStatus(resp *http.Response, body []byte) error {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return errors.New(errors.ErrCodeNotFound, "%s: %s", resp.Request.URL, apiMessage(code, body))
	case code == http.StatusTooManyRequests:
		retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		return &errors.RateLimitedError{RetryAfter: retryAfter, Message: apiMessage(code, body)}
	case code >= 500:
		return httputil.Retryable(errors.New(errors.ErrCodeNetwork, "%s: %s", resp.Request.URL, apiMessage(code, body)))
	default:
		return errors.New(errors.ErrCodeAPI, "%s: %s", resp.Request.URL, apiMessage(code, body))
	}
}

// apiMessage summarizes an error response, preferring JSON:API error objects.
func apiMessage(code int, body []byte) string {
	if doc, err := jsonapi.Decode(body); err == nil && len(doc.Errors) > 0 {
		return fmt.Sprintf("status %d: %s", code, doc.ErrorSummary())
	}
	return fmt.Sprintf("status %d", code)
}

// unwrapRetryable strips the retry marker so callers see the coded error.
func unwrapRetryable(err error) error {
	var re *httputil.RetryableError
	if stderrors.As(err, &re) {
		return re.Err
	}
	return err
}
