package serp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "socialfetch/pkg/errors"
	"socialfetch/pkg/httpclient"
	"socialfetch/pkg/logger"
)

type searchCall struct {
	num, start int
}

type fakeSERP struct {
	total int

	mu      sync.Mutex
	calls   []searchCall
	headers http.Header
	posted  map[string]interface{}
}

func (f *fakeSERP) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		num, _ := strconv.Atoi(r.URL.Query().Get("num"))
		start, _ := strconv.Atoi(r.URL.Query().Get("start"))

		f.mu.Lock()
		f.calls = append(f.calls, searchCall{num, start})
		f.headers = r.Header.Clone()
		f.mu.Unlock()

		var items []map[string]string
		for i := start; i < start+num && i <= f.total; i++ {
			items = append(items, map[string]string{
				"title":   fmt.Sprintf("Result %d", i),
				"link":    fmt.Sprintf("https://site%d.example/page", i),
				"snippet": "snippet",
			})
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"organic_results": items})
	})
	mux.HandleFunc("/search/paged", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		json.NewDecoder(r.Body).Decode(&f.posted)
		f.mu.Unlock()

		total := int(f.posted["total_results"].(float64))
		var items []map[string]string
		for i := 1; i <= total && i <= f.total; i++ {
			items = append(items, map[string]string{"url": fmt.Sprintf("https://p%d.example", i)})
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"results": items, "pages": 3})
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeSERP, tl logger.Logger) *Client {
	t.Helper()
	server := httptest.NewServer(f.handler())
	t.Cleanup(server.Close)

	creds := Credentials{APIKey: "k-123", APIKeyHeader: "X-Custom-Key", BearerToken: "b-456"}
	hc := httpclient.New(httpclient.Options{Service: "serp", Headers: creds.Headers(), Logger: logger.NewNopLogger()})
	return NewClient(hc, server.URL+"/", tl)
}

func TestSearchGetPagesTwentyFiveAsTenTenFive(t *testing.T) {
	f := &fakeSERP{total: 1000}
	client := newTestClient(t, f, logger.NewTestLogger())

	s, err := client.Search(context.Background(), Query{Q: "Rob Pike", Max: 25, Start: 1})
	require.NoError(t, err)

	assert.Equal(t, []searchCall{{10, 1}, {10, 11}, {5, 21}}, f.calls)
	require.Len(t, s.Results, 25)
	assert.Equal(t, 1, s.Results[0].Rank)
	assert.Equal(t, 25, s.Results[24].Rank)
	assert.Equal(t, "https://site25.example/page", s.Results[24].URL)
	assert.Equal(t, "GET", s.Method)
	assert.Equal(t, 3, s.Pages)

	payloads, ok := s.Payload.([]interface{})
	require.True(t, ok, "multi-page runs keep every payload")
	assert.Len(t, payloads, 3)
}

func TestSearchGetSinglePage(t *testing.T) {
	f := &fakeSERP{total: 1000}
	client := newTestClient(t, f, logger.NewTestLogger())

	s, err := client.Search(context.Background(), Query{Q: "golang", Max: 7, Start: 1})
	require.NoError(t, err)

	assert.Equal(t, []searchCall{{7, 1}}, f.calls)
	assert.Len(t, s.Results, 7)
	_, isMap := s.Payload.(map[string]interface{})
	assert.True(t, isMap)

	assert.Equal(t, "k-123", f.headers.Get("X-Custom-Key"))
	assert.Equal(t, "Bearer b-456", f.headers.Get("Authorization"))
	assert.Equal(t, "application/json", f.headers.Get("Accept"))
}

func TestSearchGetStopsWhenResultsRunOut(t *testing.T) {
	f := &fakeSERP{total: 14}
	client := newTestClient(t, f, logger.NewTestLogger())

	s, err := client.Search(context.Background(), Query{Q: "rare", Max: 50, Start: 1})
	require.NoError(t, err)

	assert.Len(t, s.Results, 14)
	assert.Len(t, f.calls, 2)
}

func TestSearchPaged(t *testing.T) {
	f := &fakeSERP{total: 1000}
	tl := logger.NewTestLogger()
	client := newTestClient(t, f, tl)

	s, err := client.Search(context.Background(), Query{Q: "Sam Altman", Max: 150, Start: 1, Method: MethodPaged})
	require.NoError(t, err)

	assert.Len(t, s.Results, 100)
	assert.Equal(t, "POST", s.Method)
	assert.Equal(t, "/search/paged", s.Endpoint)
	assert.Equal(t, float64(100), f.posted["total_results"])
	assert.Equal(t, float64(10), f.posted["per_request"])
	assert.Equal(t, "Sam Altman", f.posted["q"])
	assert.True(t, tl.HasMessage("capping"))
	assert.Empty(t, f.calls)
}

func TestSearchValidation(t *testing.T) {
	client := newTestClient(t, &fakeSERP{}, logger.NewTestLogger())

	tests := []Query{
		{Q: "", Max: 10, Start: 1},
		{Q: "x", Max: 0, Start: 1},
		{Q: "x", Max: 10, Start: 0},
		{Q: "x", Max: 10, Start: 1, Method: "scrape"},
	}
	for _, q := range tests {
		_, err := client.Search(context.Background(), q)
		assert.True(t, errs.Is(err, errs.ErrorTypeValidation), "query %+v", q)
	}

	noBase := NewClient(httpclient.New(httpclient.Options{Logger: logger.NewNopLogger()}), "", logger.NewNopLogger())
	_, err := noBase.Search(context.Background(), Query{Q: "x", Max: 1, Start: 1})
	assert.True(t, errs.Is(err, errs.ErrorTypeValidation))
}

func TestCredentialsHeadersDefaults(t *testing.T) {
	h := Credentials{APIKey: "k"}.Headers()
	assert.Equal(t, "k", h["X-API-Key"])
	_, hasAuth := h["Authorization"]
	assert.False(t, hasAuth)
}
