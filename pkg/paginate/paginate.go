// Package paginate drives cursor- and offset-based list endpoints until a
// result cap is reached or the remote side runs out of pages.
package paginate

import (
	"context"
	"fmt"
	"strconv"

	errs "socialfetch/pkg/errors"
	"socialfetch/pkg/logger"
	"socialfetch/pkg/metrics"
	"socialfetch/pkg/ratelimit"
)

// Request describes one page call
type Request struct {
	// Target is the username, query or search expression being fetched
	Target string
	// Cursor is an opaque continuation token or a numeric offset; empty on the first page
	Cursor string
	// PageSize is the number of items to ask for on this page
	PageSize int
}

// Page is the result of a single round trip
type Page[T any] struct {
	Items []T
	// Next is the cursor for the following page; empty means there is none
	Next string
}

// Result accumulates pages in arrival order
type Result[T any] struct {
	Items []T
	Count int
	// Done is set once the cap is hit or the API reports no further page
	Done  bool
	Pages int
}

// PageFunc fetches one page
type PageFunc[T any] func(ctx context.Context, req Request) (*Page[T], error)

// Options controls a Fetch run
type Options struct {
	Target string
	// Max caps the number of items; 0 is unbounded
	Max int
	// PageSize is the per-call upper bound; 0 leaves sizing to the API
	PageSize    int
	StartCursor string
	// Pacer is waited on before every page; an Interval lets the first
	// through at once and spaces the rest
	Pacer  ratelimit.Limiter
	Logger logger.Logger
	// Source labels metrics and logs, e.g. "x" or "arxiv"
	Source string
}

// Fetch calls fn until opts.Max items are collected or there is no next page.
// An error from fn aborts the run; items already collected are discarded.
func Fetch[T any](ctx context.Context, fn PageFunc[T], opts Options) (*Result[T], error) {
	log := opts.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	source := opts.Source
	if source == "" {
		source = "unknown"
	}

	res := &Result[T]{Items: make([]T, 0, initialCap(opts.Max))}
	cursor := opts.StartCursor

	for !res.Done {
		if opts.Pacer != nil {
			if err := opts.Pacer.Wait(ctx); err != nil {
				return nil, err
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req := Request{
			Target:   opts.Target,
			Cursor:   cursor,
			PageSize: pageSize(opts.PageSize, opts.Max, res.Count),
		}

		page, err := fn(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", res.Pages+1, err)
		}
		res.Pages++
		metrics.PagesFetchedTotal.WithLabelValues(source).Inc()

		if page == nil || len(page.Items) == 0 {
			res.Done = true
			break
		}

		items := page.Items
		if opts.Max > 0 && res.Count+len(items) > opts.Max {
			items = items[:opts.Max-res.Count]
		}
		res.Items = append(res.Items, items...)
		res.Count += len(items)
		metrics.ItemsFetchedTotal.WithLabelValues(source).Add(float64(len(items)))
		logger.LogFetchProgress(log, source, res.Pages, res.Count, opts.Max)

		if (opts.Max > 0 && res.Count >= opts.Max) || page.Next == "" {
			res.Done = true
			break
		}
		cursor = page.Next
	}

	return res, nil
}

func pageSize(perPage, max, count int) int {
	if max <= 0 {
		return perPage
	}
	remaining := max - count
	if perPage <= 0 || remaining < perPage {
		return remaining
	}
	return perPage
}

func initialCap(max int) int {
	if max > 0 && max <= 1000 {
		return max
	}
	return 0
}

// OffsetCursor encodes a numeric offset as a cursor
func OffsetCursor(n int) string {
	return strconv.Itoa(n)
}

// ParseOffset decodes a cursor produced by OffsetCursor; empty means 0
func ParseOffset(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(cursor)
	if err != nil || n < 0 {
		return 0, errs.New(errs.ErrorTypeParsing, "invalid offset cursor %q", cursor)
	}
	return n, nil
}
