// Package httpclient is the shared HTTP layer for every API-backed command.
// It sets per-service headers, classifies failures into typed errors, retries
// transient ones with exponential backoff and can serve GETs from a cache.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"socialfetch/pkg/cache"
	errs "socialfetch/pkg/errors"
	"socialfetch/pkg/logger"
	"socialfetch/pkg/metrics"
	"socialfetch/pkg/retry"
)

// DefaultUserAgent identifies the tool to API operators
const DefaultUserAgent = "socialfetch/1.0 (+https://github.com/socialfetch/socialfetch)"

// maxErrorBody bounds how much of an error response is kept for messages
const maxErrorBody = 4096

// Cache is the subset of cache.Manager the client needs
type Cache interface {
	Lookup(ctx context.Context, key cache.Key) ([]byte, bool)
	Store(ctx context.Context, key cache.Key, body []byte, contentType string)
}

// Options configures a Client
type Options struct {
	// Service labels logs, metrics and cache keys, e.g. "x" or "serp"
	Service string
	Timeout time.Duration
	Headers map[string]string
	// Retry is the policy for transient failures; nil means a single attempt
	Retry *retry.Config
	// Cache serves repeated GETs; nil disables caching
	Cache Cache
	// Credential scopes cache entries to one token
	Credential string
	Logger     logger.Logger
	// Transport overrides the default round tripper, mainly for tests
	Transport http.RoundTripper
}

// Client is an API client with retry, logging and metrics
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	service    string
	retry      *retry.Config
	cache      Cache
	credential string
	logger     logger.Logger
}

// Response is a fully read HTTP response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// URL is the final URL after redirects
	URL string
}

// ContentType returns the response media type header
func (r *Response) ContentType() string {
	return r.Header.Get("Content-Type")
}

// New creates a Client
func New(opts Options) *Client {
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	service := opts.Service
	if service == "" {
		service = "http"
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: opts.Transport,
		},
		headers: map[string]string{
			"User-Agent": DefaultUserAgent,
		},
		service:    service,
		retry:      opts.Retry,
		cache:      opts.Cache,
		credential: opts.Credential,
		logger:     log.WithField("service", service),
	}
	c.SetHeaders(opts.Headers)
	return c
}

// SetHeader sets a header sent on every request
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetHeaders sets multiple headers at once
func (c *Client) SetHeaders(headers map[string]string) {
	for key, value := range headers {
		c.headers[key] = value
	}
}

// Service returns the label this client reports under
func (c *Client) Service() string {
	return c.service
}

// Do performs a single request without retries and returns the read body.
// Non-2xx responses come back as typed errors.
func (c *Client) Do(ctx context.Context, method, rawURL string, body []byte, headers map[string]string) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeValidation, err, "failed to create request")
	}

	resp, err := c.send(req, headers)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "failed to read response body")
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
		URL:        resp.Request.URL.String(),
	}, nil
}

// send applies headers, performs the round trip and records metrics
func (c *Client) send(req *http.Request, headers map[string]string) (*http.Response, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	metrics.RequestDuration.WithLabelValues(c.service).Observe(duration.Seconds())

	if err != nil {
		metrics.RequestsTotal.WithLabelValues(c.service, "error").Inc()
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":      req.Method,
			"url":         redactURL(req.URL),
			"error":       err.Error(),
			"duration_ms": duration.Milliseconds(),
		})
		return nil, errs.FromTransport(err)
	}

	metrics.RequestsTotal.WithLabelValues(c.service, strconv.Itoa(resp.StatusCode)).Inc()
	logger.LogRequest(c.logger, req.Method, redactURL(req.URL), resp.StatusCode, duration)
	return resp, nil
}

// checkResponseStatus turns a non-2xx response into a typed error.
// The body is drained into the error message.
func (c *Client) checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := errs.FromStatus(resp.StatusCode, string(snippet))

	fields := map[string]interface{}{
		"status": resp.StatusCode,
		"url":    redactURL(resp.Request.URL),
	}
	if apiErr.Type == errs.ErrorTypeRateLimit {
		if reset := resp.Header.Get("x-rate-limit-reset"); reset != "" {
			fields["rate_limit_reset"] = reset
		}
		if after := resp.Header.Get("Retry-After"); after != "" {
			fields["retry_after"] = after
		}
	}
	c.logger.WarnWithFields(fmt.Sprintf("%s response", apiErr.Type), fields)

	return apiErr
}

func (c *Client) retryConfig(ctx context.Context, name string) *retry.Config {
	if c.retry == nil {
		return &retry.Config{MaxRetries: 0, Context: ctx, Logger: c.logger, Name: name}
	}
	cfg := c.retry.WithContext(ctx).WithName(name)
	if cfg.Logger == nil {
		cfg.Logger = c.logger
	}
	return cfg
}

// Get performs a GET with retries, consulting the cache first when one is set
func (c *Client) Get(ctx context.Context, rawURL string, query url.Values) (*Response, error) {
	full, err := withQuery(rawURL, query)
	if err != nil {
		return nil, err
	}

	key := cache.Key{Service: c.service, URL: rawURL, Query: query, Credential: c.credential}
	if c.cache != nil {
		if body, ok := c.cache.Lookup(ctx, key); ok {
			return &Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: body, URL: full}, nil
		}
	}

	resp, err := retry.DoWithResult(func() (*Response, error) {
		return c.Do(ctx, http.MethodGet, full, nil, nil)
	}, c.retryConfig(ctx, c.service+" GET"))
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		c.cache.Store(ctx, key, resp.Body, resp.ContentType())
	}
	return resp, nil
}

// GetJSON performs a GET and decodes the JSON body into target
func (c *Client) GetJSON(ctx context.Context, rawURL string, query url.Values, target interface{}) error {
	resp, err := c.Get(ctx, rawURL, query)
	if err != nil {
		return err
	}
	return c.decode(resp, target)
}

// PostJSON sends payload as JSON with retries and decodes the response into
// target. A nil target discards the body.
func (c *Client) PostJSON(ctx context.Context, rawURL string, payload, target interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeValidation, err, "failed to encode request body")
	}

	resp, err := retry.DoWithResult(func() (*Response, error) {
		return c.Do(ctx, http.MethodPost, rawURL, body, map[string]string{"Content-Type": "application/json"})
	}, c.retryConfig(ctx, c.service+" POST"))
	if err != nil {
		return err
	}

	if target == nil {
		return nil
	}
	return c.decode(resp, target)
}

func (c *Client) decode(resp *Response, target interface{}) error {
	if err := json.Unmarshal(resp.Body, target); err != nil {
		preview := string(resp.Body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          resp.URL,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return errs.Wrap(errs.ErrorTypeParsing, err, "failed to parse JSON")
	}
	return nil
}

// SaveFunc persists a download body and returns the bytes written
type SaveFunc func(r io.Reader, contentType string) (int64, error)

// Download streams rawURL into save, retrying transient failures. Each retry
// restarts the body from the beginning.
func (c *Client) Download(ctx context.Context, rawURL string, save SaveFunc) (int64, error) {
	n, err := retry.DoWithResult(func() (int64, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return 0, errs.Wrap(errs.ErrorTypeValidation, err, "failed to create request")
		}

		resp, err := c.send(req, nil)
		if err != nil {
			return 0, err
		}
		defer resp.Body.Close()

		if err := c.checkResponseStatus(resp); err != nil {
			return 0, err
		}
		return save(resp.Body, resp.Header.Get("Content-Type"))
	}, c.retryConfig(ctx, c.service+" download"))

	if err == nil {
		metrics.DownloadBytesTotal.Add(float64(n))
	}
	return n, err
}

func withQuery(rawURL string, query url.Values) (string, error) {
	if len(query) == 0 {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", errs.Wrap(errs.ErrorTypeValidation, err, "invalid URL")
	}
	q := u.Query()
	for key, values := range query {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// redactURL drops credentials that some proxies accept as query parameters
func redactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	q := u.Query()
	changed := false
	for _, name := range []string{"api_key", "apikey", "key", "token", "access_token"} {
		if q.Has(name) {
			q.Set(name, "REDACTED")
			changed = true
		}
	}
	if !changed {
		return u.String()
	}
	cp := *u
	cp.RawQuery = q.Encode()
	return cp.String()
}
