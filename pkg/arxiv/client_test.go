package arxiv

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"socialfetch/pkg/httpclient"
	"socialfetch/pkg/logger"
)

type feedCall struct {
	start, max int
}

// fakeArxiv serves `total` entries; reported overrides opensearch:totalResults
type fakeArxiv struct {
	total    int
	reported int

	mu     sync.Mutex
	calls  []feedCall
	params []string
	agent  string
}

func (f *fakeArxiv) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, _ := strconv.Atoi(q.Get("start"))
	max, _ := strconv.Atoi(q.Get("max_results"))

	f.mu.Lock()
	f.calls = append(f.calls, feedCall{start, max})
	f.params = append(f.params, q.Get("search_query")+"|"+q.Get("sortBy")+"|"+q.Get("sortOrder"))
	f.agent = r.Header.Get("User-Agent")
	f.mu.Unlock()

	reported := f.total
	if f.reported > 0 {
		reported = f.reported
	}

	var b strings.Builder
	b.WriteString(`<feed xmlns="http://www.w3.org/2005/Atom" xmlns:opensearch="http://a9.com/-/spec/opensearch/1.1/">`)
	fmt.Fprintf(&b, "<opensearch:totalResults>%d</opensearch:totalResults>", reported)
	for i := start; i < start+max && i < f.total; i++ {
		fmt.Fprintf(&b, "<entry><id>http://arxiv.org/abs/2401.%05dv1</id><title>Paper %d</title></entry>", i, i)
	}
	b.WriteString("</feed>")

	w.Header().Set("Content-Type", "application/atom+xml")
	w.Write([]byte(b.String()))
}

func newArxivClient(t *testing.T, f *fakeArxiv) *Client {
	t.Helper()
	server := httptest.NewServer(f)
	t.Cleanup(server.Close)

	hc := httpclient.New(httpclient.Options{
		Service: "arxiv",
		Headers: FeedHeaders("socialfetch-test/1.0"),
		Logger:  logger.NewNopLogger(),
	})
	return NewClient(hc, server.URL+"/api/query", nil, logger.NewNopLogger())
}

func TestQueryBatchesUpToMax(t *testing.T) {
	f := &fakeArxiv{total: 1000}
	c := newArxivClient(t, f)

	res, err := c.Query(context.Background(), Search{Author: "Geoffrey Hinton", Max: 250, PageSize: 100})
	require.NoError(t, err)

	assert.Equal(t, []feedCall{{0, 100}, {100, 100}, {200, 50}}, f.calls)
	require.Len(t, res.Entries, 250)
	assert.Equal(t, "2401.00000v1", res.Entries[0].ArxivID)
	assert.Equal(t, "2401.00249v1", res.Entries[249].ArxivID)
	assert.Equal(t, 1000, res.TotalAvailable)
	assert.Equal(t, `au:"Geoffrey Hinton"|relevance|descending`, f.params[0])
	assert.Equal(t, "socialfetch-test/1.0", f.agent)
}

func TestQueryStopsOnShortBatch(t *testing.T) {
	f := &fakeArxiv{total: 150}
	c := newArxivClient(t, f)

	res, err := c.Query(context.Background(), Search{Topic: "llm", Max: 1000, PageSize: 100})
	require.NoError(t, err)

	assert.Len(t, res.Entries, 150)
	assert.Equal(t, []feedCall{{0, 100}, {100, 100}}, f.calls)
}

func TestQueryStopsAtTotalResults(t *testing.T) {
	f := &fakeArxiv{total: 1000, reported: 200}
	c := newArxivClient(t, f)

	res, err := c.Query(context.Background(), Search{Topic: "llm", Max: 1000, PageSize: 100})
	require.NoError(t, err)

	assert.Len(t, res.Entries, 200)
	assert.Len(t, f.calls, 2)
}

func TestQueryStopsOnEmptyBatch(t *testing.T) {
	f := &fakeArxiv{total: 0, reported: 5000}
	c := newArxivClient(t, f)

	res, err := c.Query(context.Background(), Search{Topic: "nothing", Max: 10})
	require.NoError(t, err)

	assert.Empty(t, res.Entries)
	assert.Len(t, f.calls, 1)
}

func TestQueryHonoursStartAndSort(t *testing.T) {
	f := &fakeArxiv{total: 1000}
	c := newArxivClient(t, f)

	_, err := c.Query(context.Background(), Search{
		Topic: "vision", Max: 5, Start: 40, SortBy: "submittedDate", SortOrder: "ascending",
	})
	require.NoError(t, err)

	assert.Equal(t, []feedCall{{40, 5}}, f.calls)
	assert.Equal(t, "all:vision|submittedDate|ascending", f.params[0])
}

func pdfServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/pdf/", func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "missing") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.5 " + r.URL.Path))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestDownloaderStatuses(t *testing.T) {
	server := pdfServer(t)
	pdfDir := filepath.Join(t.TempDir(), "pdfs")
	require.NoError(t, os.MkdirAll(pdfDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(pdfDir, PDFFileName(2, "2401.2")), []byte("old"), 0644))

	entries := []Entry{
		{ArxivID: "2401.1", PDFURL: server.URL + "/pdf/2401.1"},
		{ArxivID: "2401.2", PDFURL: server.URL + "/pdf/2401.2"},
		{ArxivID: "2401.3"},
		{ArxivID: "2401.4", PDFURL: server.URL + "/pdf/missing"},
	}

	d := &Downloader{
		Fetcher: httpclient.New(httpclient.Options{Service: "arxiv-pdf", Logger: logger.NewNopLogger()}),
		Logger:  logger.NewNopLogger(),
	}
	downloaded, failed, err := d.Download(context.Background(), pdfDir, entries)
	require.NoError(t, err)

	assert.Equal(t, 1, downloaded)
	assert.Equal(t, 2, failed)
	assert.Equal(t, StatusDownloaded, entries[0].DownloadStatus)
	assert.Equal(t, StatusExists, entries[1].DownloadStatus)
	assert.Equal(t, StatusNoPDFURL, entries[2].DownloadStatus)
	assert.Equal(t, StatusError, entries[3].DownloadStatus)
	assert.NotEmpty(t, entries[3].DownloadError)

	assert.Equal(t, filepath.Join(pdfDir, "0001_2401.1.pdf"), entries[0].PDFFile)
	data, err := os.ReadFile(entries[0].PDFFile)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.5 /pdf/2401.1", string(data))

	old, err := os.ReadFile(entries[1].PDFFile)
	require.NoError(t, err)
	assert.Equal(t, "old", string(old), "existing files are kept without --overwrite")
}

func TestDownloaderOverwrite(t *testing.T) {
	server := pdfServer(t)
	pdfDir := t.TempDir()
	path := filepath.Join(pdfDir, PDFFileName(1, "2401.9"))
	require.NoError(t, os.WriteFile(path, []byte("old"), 0644))

	entries := []Entry{{ArxivID: "2401.9", PDFURL: server.URL + "/pdf/2401.9"}}
	d := &Downloader{
		Fetcher:   httpclient.New(httpclient.Options{Logger: logger.NewNopLogger()}),
		Overwrite: true,
		Logger:    logger.NewNopLogger(),
	}
	downloaded, _, err := d.Download(context.Background(), pdfDir, entries)
	require.NoError(t, err)

	assert.Equal(t, 1, downloaded)
	data, _ := os.ReadFile(path)
	assert.Equal(t, "%PDF-1.5 /pdf/2401.9", string(data))
}

func TestPDFFileName(t *testing.T) {
	assert.Equal(t, "0007_1706.03762v7.pdf", PDFFileName(7, "1706.03762v7"))
	assert.Equal(t, "0012_hep-th_9901001v1.pdf", PDFFileName(12, "hep-th/9901001v1"))
	assert.Equal(t, "0001_paper.pdf", PDFFileName(1, ""))
}

func TestRunWritesMetadata(t *testing.T) {
	f := &fakeArxiv{total: 3}
	c := newArxivClient(t, f)
	outDir := t.TempDir()

	md, err := Run(context.Background(), c, nil, Search{Topic: "graph neural networks", Max: 10}, RunOptions{OutputDir: outDir})
	require.NoError(t, err)

	assert.Equal(t, 3, md.RetrievedResults)
	assert.Equal(t, 10, md.EffectiveRequestedResults)
	assert.Nil(t, md.Author)
	for _, e := range md.Entries {
		assert.Equal(t, StatusSkipped, e.DownloadStatus)
	}

	raw, err := os.ReadFile(filepath.Join(outDir, "metadata.json"))
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, `all:"graph neural networks"`, doc["search_query"])
	assert.Nil(t, doc["author"])
	assert.Equal(t, "graph neural networks", doc["topic"])
	assert.Equal(t, filepath.Join(outDir, "pdfs"), doc["pdf_dir"])
	assert.NotEmpty(t, doc["run_id"])
	assert.Len(t, doc["entries"], 3)
}

func TestRunKeepsCallerRunID(t *testing.T) {
	c := newArxivClient(t, &fakeArxiv{total: 1})
	outDir := t.TempDir()

	md, err := Run(context.Background(), c, nil, Search{Topic: "lattices", Max: 1}, RunOptions{OutputDir: outDir, RunID: "run-42"})
	require.NoError(t, err)
	assert.Equal(t, "run-42", md.RunID)

	raw, err := os.ReadFile(filepath.Join(outDir, "metadata.json"))
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "run-42", doc["run_id"])
}

func TestRunOptionsMetadataPath(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "metadata.json"), RunOptions{OutputDir: "out"}.MetadataPath())
	assert.Equal(t, filepath.Join("out", "meta.json"), RunOptions{OutputDir: "out", MetadataFile: "meta.json"}.MetadataPath())
	abs := filepath.Join(t.TempDir(), "m.json")
	assert.Equal(t, abs, RunOptions{OutputDir: "out", MetadataFile: abs}.MetadataPath())
}
