// Package serp queries a Google SERP proxy service and archives the result
// pages it returns.
package serp

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	errs "socialfetch/pkg/errors"
	"socialfetch/pkg/httpclient"
	"socialfetch/pkg/logger"
	"socialfetch/pkg/paginate"
)

const (
	// PerRequest is the largest page the proxy returns
	PerRequest = 10
	// MaxTotal caps a single search
	MaxTotal = 100

	MethodGet   = "get"
	MethodPaged = "paged"
)

// Credentials for the proxy; any subset may be set
type Credentials struct {
	APIKey       string
	APIKeyHeader string
	BearerToken  string
}

// Headers builds the request headers for c
func (c Credentials) Headers() map[string]string {
	headers := map[string]string{"Accept": "application/json"}
	if c.APIKey != "" {
		name := c.APIKeyHeader
		if name == "" {
			name = "X-API-Key"
		}
		headers[name] = c.APIKey
	}
	if c.BearerToken != "" {
		headers["Authorization"] = "Bearer " + c.BearerToken
	}
	return headers
}

// Query describes one search
type Query struct {
	Q string
	// Max is the number of results wanted; capped at MaxTotal
	Max int
	// Start is the 1-based position of the first result
	Start  int
	Method string
}

// Search is the outcome of a query
type Search struct {
	Results []Result
	// Payload is the raw response, or a list of them when several GETs were made
	Payload  interface{}
	Method   string
	Endpoint string
	URL      string
	Params   interface{}
	Pages    int
}

// Client calls the SERP proxy
type Client struct {
	http    *httpclient.Client
	baseURL string
	logger  logger.Logger
}

// NewClient wraps an httpclient configured with Credentials.Headers
func NewClient(http *httpclient.Client, baseURL string, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Client{http: http, baseURL: strings.TrimRight(baseURL, "/"), logger: log}
}

// Validate checks a query before any request is made
func (q *Query) Validate() error {
	if strings.TrimSpace(q.Q) == "" {
		return errs.New(errs.ErrorTypeValidation, "search query is required")
	}
	if q.Max <= 0 {
		return errs.New(errs.ErrorTypeValidation, "--max-results must be positive")
	}
	if q.Start <= 0 {
		return errs.New(errs.ErrorTypeValidation, "--start must be >= 1")
	}
	switch q.Method {
	case "", MethodGet, MethodPaged:
	default:
		return errs.New(errs.ErrorTypeValidation, "unknown search method %q (use get or paged)", q.Method)
	}
	return nil
}

// Search runs q with the selected method
func (c *Client) Search(ctx context.Context, q Query) (*Search, error) {
	if c.baseURL == "" {
		return nil, errs.New(errs.ErrorTypeValidation, "SERP base URL is required (--base-url or GOOGLE_SERP_BASE_URL)")
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if q.Max > MaxTotal {
		c.logger.WarnWithFields("API max is 100 results, capping", map[string]interface{}{
			"requested": q.Max,
		})
		q.Max = MaxTotal
	}

	var (
		s   *Search
		err error
	)
	if q.Method == MethodPaged {
		s, err = c.searchPaged(ctx, q)
	} else {
		s, err = c.searchGet(ctx, q)
	}
	if err != nil {
		return nil, err
	}

	Rank(s.Results)
	if len(s.Results) == 0 {
		c.logger.Warn("No URLs found in API response, check api_response.json")
	}
	return s, nil
}

// searchGet pages GET /search on the client side, num=min(10, remaining)
func (c *Client) searchGet(ctx context.Context, q Query) (*Search, error) {
	endpoint := c.baseURL + "/search"
	norm := NewNormalizer()
	var payloads []interface{}
	var firstURL string

	page := func(ctx context.Context, req paginate.Request) (*paginate.Page[Result], error) {
		start, err := paginate.ParseOffset(req.Cursor)
		if err != nil {
			return nil, err
		}
		params := url.Values{
			"q":     {q.Q},
			"num":   {strconv.Itoa(req.PageSize)},
			"start": {strconv.Itoa(start)},
		}

		var payload interface{}
		if err := c.http.GetJSON(ctx, endpoint, params, &payload); err != nil {
			return nil, err
		}
		payloads = append(payloads, payload)
		if firstURL == "" {
			firstURL = endpoint + "?" + params.Encode()
		}

		raw := FindResultsList(payload)
		next := ""
		if len(raw) >= req.PageSize {
			next = paginate.OffsetCursor(start + len(raw))
		}
		return &paginate.Page[Result]{Items: norm.Add(raw), Next: next}, nil
	}

	res, err := paginate.Fetch(ctx, page, paginate.Options{
		Target:      q.Q,
		Max:         q.Max,
		PageSize:    PerRequest,
		StartCursor: paginate.OffsetCursor(q.Start),
		Logger:      c.logger,
		Source:      "serp",
	})
	if err != nil {
		return nil, err
	}

	var payload interface{} = payloads
	if len(payloads) == 1 {
		payload = payloads[0]
	}

	return &Search{
		Results:  res.Items,
		Payload:  payload,
		Method:   "GET",
		Endpoint: "/search",
		URL:      firstURL,
		Params: map[string]interface{}{
			"q":     q.Q,
			"num":   min(q.Max, PerRequest),
			"start": q.Start,
			"pages": res.Pages,
		},
		Pages: res.Pages,
	}, nil
}

type pagedBody struct {
	Q            string `json:"q"`
	Start        int    `json:"start"`
	Num          int    `json:"num"`
	PerRequest   int    `json:"per_request"`
	TotalResults int    `json:"total_results"`
}

// searchPaged lets the proxy do the paging with one POST /search/paged
func (c *Client) searchPaged(ctx context.Context, q Query) (*Search, error) {
	endpoint := c.baseURL + "/search/paged"
	body := pagedBody{
		Q:            q.Q,
		Start:        q.Start,
		Num:          PerRequest,
		PerRequest:   PerRequest,
		TotalResults: q.Max,
	}

	var payload interface{}
	if err := c.http.PostJSON(ctx, endpoint, body, &payload); err != nil {
		return nil, err
	}

	results := NewNormalizer().Add(FindResultsList(payload))
	if len(results) > q.Max {
		results = results[:q.Max]
	}

	return &Search{
		Results:  results,
		Payload:  payload,
		Method:   "POST",
		Endpoint: "/search/paged",
		URL:      endpoint,
		Params:   body,
		Pages:    1,
	}, nil
}
