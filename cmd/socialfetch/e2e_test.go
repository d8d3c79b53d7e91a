package main

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
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
	errs "socialfetch/pkg/errors"
)

// isolate keeps config files, the credential store and secrets of the
// developer's machine out of the run
func isolate(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("X_BEARER_TOKEN", "")
	t.Setenv("SOCIALFETCH_LOG_LEVEL", "error")
	keyring.MockInit()
}

// execute runs the CLI with args and resets every flag afterwards, since
// cobra keeps parsed values on the package-level commands
func execute(t *testing.T, args ...string) error {
	t.Helper()
	t.Cleanup(func() { resetFlags(rootCmd) })

	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(context.Background())
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// fakeArxiv serves a feed whose PDF links point back at itself
func fakeArxiv(t *testing.T, total int, pdfHits *int32) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/api/query", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		start, _ := strconv.Atoi(q.Get("start"))
		max, _ := strconv.Atoi(q.Get("max_results"))

		var b strings.Builder
		b.WriteString(`<feed xmlns="http://www.w3.org/2005/Atom" xmlns:opensearch="http://a9.com/-/spec/opensearch/1.1/">`)
		fmt.Fprintf(&b, "<opensearch:totalResults>%d</opensearch:totalResults>", total)
		for i := start; i < start+max && i < total; i++ {
			id := fmt.Sprintf("2401.%05dv1", i)
			fmt.Fprintf(&b, `<entry><id>http://arxiv.org/abs/%s</id><title>Paper %d</title>`, id, i)
			fmt.Fprintf(&b, `<link title="pdf" href="%s/pdf/%s" rel="related" type="application/pdf"/></entry>`, srv.URL, id)
		}
		b.WriteString("</feed>")
		w.Header().Set("Content-Type", "application/atom+xml")
		fmt.Fprint(w, b.String())
	})
	mux.HandleFunc("/pdf/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(pdfHits, 1)
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprint(w, "%PDF-1.4 "+strings.TrimPrefix(r.URL.Path, "/pdf/"))
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestArxivEndToEnd(t *testing.T) {
	isolate(t)
	var hits int32
	srv := fakeArxiv(t, 50, &hits)
	out := t.TempDir()

	err := execute(t, "arxiv", "-q",
		"--topic", "graph neural networks",
		"-n", "3",
		"--base-url", srv.URL+"/api/query",
		"--api-delay", "0",
		"--download-delay", "0",
		"-o", out,
	)
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))

	data, err := os.ReadFile(filepath.Join(out, "metadata.json"))
	require.NoError(t, err)

	var md struct {
		SearchQuery      string `json:"search_query"`
		RetrievedResults int    `json:"retrieved_results"`
		TotalAvailable   int    `json:"total_available"`
		DownloadedCount  int    `json:"downloaded_count"`
		Entries          []struct {
			ArxivID        string `json:"arxiv_id"`
			DownloadStatus string `json:"download_status"`
			PDFFile        string `json:"pdf_file"`
		} `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(data, &md))
	assert.Equal(t, `all:"graph neural networks"`, md.SearchQuery)
	assert.Equal(t, 3, md.RetrievedResults)
	assert.Equal(t, 50, md.TotalAvailable)
	assert.Equal(t, 3, md.DownloadedCount)
	require.Len(t, md.Entries, 3)
	for _, e := range md.Entries {
		assert.Equal(t, "downloaded", e.DownloadStatus)
		assert.FileExists(t, e.PDFFile)
	}
	assert.FileExists(t, filepath.Join(out, "pdfs", "0001_2401.00000v1.pdf"))
}

func TestArxivNoDownload(t *testing.T) {
	isolate(t)
	var hits int32
	srv := fakeArxiv(t, 5, &hits)
	out := t.TempDir()

	err := execute(t, "arxiv", "-q", "--author", "Hinton", "-n", "10",
		"--base-url", srv.URL+"/api/query", "--api-delay", "0", "--no-download", "-o", out)
	require.NoError(t, err)
	assert.Zero(t, atomic.LoadInt32(&hits))
	assert.NoDirExists(t, filepath.Join(out, "pdfs"))
	assert.FileExists(t, filepath.Join(out, "metadata.json"))
}

func TestArxivRequiresAuthorOrTopic(t *testing.T) {
	isolate(t)

	err := execute(t, "arxiv", "-q", "-o", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, 2, errs.ExitCode(err))
}

func TestXPostsEndToEnd(t *testing.T) {
	isolate(t)
	t.Setenv("X_BEARER_TOKEN", "test-token")

	var auth atomic.Value
	mux := http.NewServeMux()
	mux.HandleFunc("/2/users/by/username/jack", func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"data":{"id":"12","name":"jack","username":"jack"}}`)
	})
	mux.HandleFunc("/2/users/12/tweets", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[
			{"id":"3","text":"three","public_metrics":{"like_count":3}},
			{"id":"2","text":"two"},
			{"id":"1","text":"one"}
		],"meta":{"result_count":3}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "jack.json")
	err := execute(t, "x-posts", "@jack", "-q", "-n", "2", "--base-url", srv.URL+"/2", "-o", path)
	require.NoError(t, err)
	assert.Equal(t, "Bearer test-token", auth.Load())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var out struct {
		User struct {
			Username string `json:"username"`
		} `json:"user"`
		TweetCount int `json:"tweet_count"`
		Tweets     []struct {
			ID    string `json:"id"`
			Likes int    `json:"likes"`
		} `json:"tweets"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "jack", out.User.Username)
	assert.Equal(t, 2, out.TweetCount)
	require.Len(t, out.Tweets, 2)
	assert.Equal(t, "3", out.Tweets[0].ID)
	assert.Equal(t, 3, out.Tweets[0].Likes)
}

func TestXPostsWithoutTokenIsAuthError(t *testing.T) {
	isolate(t)

	err := execute(t, "x-posts", "jack", "-q")
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeAuth, errs.TypeOf(err))
}
