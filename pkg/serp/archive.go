package serp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"socialfetch/internal/downloader"
	errs "socialfetch/pkg/errors"
	"socialfetch/pkg/logger"
	"socialfetch/pkg/ratelimit"
	"socialfetch/pkg/storage"
)

const resultsDirName = "html_results"

// Summary is the search_results.json document
type Summary struct {
	RunID               string      `json:"run_id"`
	TargetName          string      `json:"target_name"`
	RequestedMaxResults int         `json:"requested_max_results"`
	ResultsFound        int         `json:"results_found"`
	ResultsSaved        int         `json:"results_saved"`
	UsedSearchMethod    string      `json:"used_search_method"`
	UsedSearchEndpoint  string      `json:"used_search_endpoint"`
	UsedSearchURL       string      `json:"used_search_url"`
	UsedSearchParams    interface{} `json:"used_search_params"`
	GeneratedAt         string      `json:"generated_at"`
	Results             []Result    `json:"results"`
}

// Archiver writes a search and its result pages to an output directory
type Archiver struct {
	// Fetcher downloads result pages; nil skips page archiving
	Fetcher     downloader.Fetcher
	Concurrency int
	Limiter     ratelimit.Limiter
	Progress    downloader.Observer
	Logger      logger.Logger
	// RunID is written to search_results.json; generated when empty
	RunID string
}

// PageHeaders are sent when fetching result pages
func PageHeaders() map[string]string {
	return map[string]string{
		"User-Agent": "Mozilla/5.0 (compatible; socialfetch/1.0)",
		"Accept":     "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	}
}

// DefaultOutputDir is results/search_<query>_<timestamp>
func DefaultOutputDir(base, query string, now time.Time) string {
	if base == "" {
		base = "results"
	}
	name := fmt.Sprintf("search_%s_%s", storage.SanitizeName(query, 60), now.Format("20060102_150405"))
	return filepath.Join(base, name)
}

// Save writes api_response.json, the archived pages, index.html and
// search_results.json under outDir
func (a *Archiver) Save(ctx context.Context, outDir, target string, requested int, s *Search) (*Summary, error) {
	log := a.Logger
	if log == nil {
		log = logger.GetLogger()
	}

	if err := storage.WriteJSON(filepath.Join(outDir, "api_response.json"), s.Payload); err != nil {
		return nil, err
	}
	log.WithField("path", filepath.Join(outDir, "api_response.json")).Info("Saved raw API response")

	saved := 0
	if a.Fetcher != nil && len(s.Results) > 0 {
		n, err := a.archivePages(ctx, outDir, s.Results, log)
		if err != nil {
			return nil, err
		}
		saved = n
	} else {
		for i := range s.Results {
			s.Results[i].Status = "skipped"
		}
	}

	index, err := RenderIndex(target, s.Results)
	if err != nil {
		return nil, err
	}
	if _, err := writeFile(outDir, "index.html", index); err != nil {
		return nil, err
	}

	runID := a.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	summary := &Summary{
		RunID:               runID,
		TargetName:          target,
		RequestedMaxResults: requested,
		ResultsFound:        len(s.Results),
		ResultsSaved:        saved,
		UsedSearchMethod:    s.Method,
		UsedSearchEndpoint:  s.Endpoint,
		UsedSearchURL:       s.URL,
		UsedSearchParams:    s.Params,
		GeneratedAt:         time.Now().Format(time.RFC3339),
		Results:             s.Results,
	}
	if err := storage.WriteJSON(filepath.Join(outDir, "search_results.json"), summary); err != nil {
		return nil, err
	}
	return summary, nil
}

func (a *Archiver) archivePages(ctx context.Context, outDir string, results []Result, log logger.Logger) (int, error) {
	artifacts, err := storage.NewArtifactStore(filepath.Join(outDir, resultsDirName), true)
	if err != nil {
		return 0, err
	}
	store := newPageStore(artifacts)

	jobs := make([]downloader.Job, len(results))
	for i, r := range results {
		name := PageFileName(r.Rank, r.URL)
		store.urls[name] = r.URL
		jobs[i] = downloader.Job{URL: r.URL, Name: name}
	}

	outcomes := downloader.RunObserved(ctx, a.Concurrency, a.Fetcher, store, a.Limiter, log, a.Progress, jobs)

	saved := 0
	for i, o := range outcomes {
		r := &results[i]
		r.LocalFile = filepath.ToSlash(filepath.Join(resultsDirName, o.Job.Name))
		r.ContentType = o.ContentType
		if o.Status == downloader.StatusError {
			r.Status = "failed"
			r.FetchError = o.Error.Error()
			var apiErr *errs.Error
			if errors.As(o.Error, &apiErr) {
				r.StatusCode = apiErr.Code
			}
			log.WithField("rank", r.Rank).WithField("url", r.URL).Warn("Result page failed")
			continue
		}
		r.Status = "saved"
		r.StatusCode = 200
		r.PageTitle = store.title(o.Job.Name)
		if r.Title == "" {
			r.Title = r.PageTitle
		}
		saved++
		log.WithField("rank", r.Rank).WithField("file", r.LocalFile).Info("Result page saved")
	}
	return saved, nil
}

// PageFileName is NNN_<domain>.html
func PageFileName(rank int, rawURL string) string {
	host := "unknown"
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Host
	}
	return fmt.Sprintf("%03d_%s.html", rank, storage.SanitizeName(host, 60))
}

// pageStore keeps HTML bodies and replaces anything else with a stub page
type pageStore struct {
	*storage.ArtifactStore
	urls   map[string]string
	mu     sync.Mutex
	titles map[string]string
}

func newPageStore(a *storage.ArtifactStore) *pageStore {
	return &pageStore{ArtifactStore: a, urls: map[string]string{}, titles: map[string]string{}}
}

func (p *pageStore) SaveTyped(name string, r io.Reader, contentType string) (int64, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return 0, errs.Wrap(errs.ErrorTypeNetwork, err, "failed to read result page")
	}

	if !IsHTML(contentType, body) {
		return p.SaveBytes(name, []byte(NonHTMLWrapper(p.urls[name], contentType, 200)))
	}

	if title := ExtractTitle(body); title != "" {
		p.mu.Lock()
		p.titles[name] = title
		p.mu.Unlock()
	}
	return p.SaveBytes(name, body)
}

func (p *pageStore) title(name string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.titles[name]
}

// IsHTML sniffs the content type header and the first 2KiB of the body
func IsHTML(contentType string, body []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "text/html") {
		return true
	}
	head := body
	if len(head) > 2048 {
		head = head[:2048]
	}
	return bytes.Contains(bytes.ToLower(head), []byte("<html"))
}

// ExtractTitle returns the document <title>, or "" when absent
func ExtractTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(doc.Find("head title").First().Text()), " ")
}

// NonHTMLWrapper is saved in place of PDFs, images and other non-HTML results
func NonHTMLWrapper(rawURL, contentType string, status int) string {
	if contentType == "" {
		contentType = "unknown"
	}
	u := html.EscapeString(rawURL)
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8">
    <title>Non-HTML result</title>
  </head>
  <body>
    <h1>Non-HTML content skipped</h1>
    <p>URL: <a href="%s">%s</a></p>
    <p>Status: %d</p>
    <p>Content-Type: %s</p>
  </body>
</html>
`, u, u, status, html.EscapeString(contentType))
}

func writeFile(dir, name string, data []byte) (string, error) {
	store, err := storage.NewArtifactStore(dir, true)
	if err != nil {
		return "", err
	}
	if _, err := store.SaveBytes(name, data); err != nil {
		return "", err
	}
	return store.Path(name), nil
}
