// Package arxiv searches the arXiv export API by author or topic and
// downloads the matching PDFs.
package arxiv

import (
	"context"
	"net/url"
	"strconv"

	"socialfetch/pkg/httpclient"
	"socialfetch/pkg/logger"
	"socialfetch/pkg/paginate"
	"socialfetch/pkg/ratelimit"
)

const (
	DefaultBaseURL = "https://export.arxiv.org/api/query"

	// MaxAPIResults is the deepest offset the API will serve
	MaxAPIResults = 30000
	// MaxPageSize is the largest max_results the API accepts per call
	MaxPageSize     = 2000
	DefaultPageSize = 100
)

// Client queries the arXiv API
type Client struct {
	http    *httpclient.Client
	baseURL string
	pacer   ratelimit.Limiter
	logger  logger.Logger
}

// Results is the outcome of a query
type Results struct {
	Query   string
	Entries []Entry
	// TotalAvailable is opensearch:totalResults from the last page
	TotalAvailable int
	Pages          int
}

// NewClient wraps an httpclient. pacer separates page requests (--api-delay).
func NewClient(http *httpclient.Client, baseURL string, pacer ratelimit.Limiter, log logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Client{http: http, baseURL: baseURL, pacer: pacer, logger: log}
}

// FeedHeaders are sent with every API request
func FeedHeaders(userAgent string) map[string]string {
	return map[string]string{
		"User-Agent": userAgent,
		"Accept":     "application/atom+xml",
	}
}

// Query pages through the API until s.Effective() entries are collected,
// a batch comes back short or empty, or the offset passes totalResults.
func (c *Client) Query(ctx context.Context, s Search) (*Results, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	target := s.Effective()
	if target < s.Max {
		c.logger.WarnWithFields("requested results capped by arXiv API limit", map[string]interface{}{
			"requested": s.Max,
			"capped_to": target,
		})
	}

	query := BuildQuery(s.Author, s.Topic)
	c.logger.WithField("search_query", query).Info("Querying arXiv")

	total := 0
	page := func(ctx context.Context, req paginate.Request) (*paginate.Page[Entry], error) {
		start, err := paginate.ParseOffset(req.Cursor)
		if err != nil {
			return nil, err
		}
		params := url.Values{
			"search_query": {query},
			"start":        {strconv.Itoa(start)},
			"max_results":  {strconv.Itoa(req.PageSize)},
			"sortBy":       {s.SortBy},
			"sortOrder":    {s.SortOrder},
		}

		resp, err := c.http.Get(ctx, c.baseURL, params)
		if err != nil {
			return nil, err
		}
		n, entries, err := ParseFeed(resp.Body)
		if err != nil {
			return nil, err
		}
		total = n
		c.logger.DebugWithFields("arXiv page", map[string]interface{}{
			"start":         start,
			"batch":         req.PageSize,
			"entries":       len(entries),
			"total_results": n,
		})

		next := start + len(entries)
		if len(entries) < req.PageSize || (total > 0 && next >= total) {
			return &paginate.Page[Entry]{Items: entries}, nil
		}
		return &paginate.Page[Entry]{Items: entries, Next: paginate.OffsetCursor(next)}, nil
	}

	res, err := paginate.Fetch(ctx, page, paginate.Options{
		Target:      query,
		Max:         target,
		PageSize:    min(s.PageSize, MaxPageSize),
		StartCursor: paginate.OffsetCursor(s.Start),
		Pacer:       c.pacer,
		Logger:      c.logger,
		Source:      "arxiv",
	})
	if err != nil {
		return nil, err
	}

	return &Results{
		Query:          query,
		Entries:        res.Items,
		TotalAvailable: total,
		Pages:          res.Pages,
	}, nil
}
