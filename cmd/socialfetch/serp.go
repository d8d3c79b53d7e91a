package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"socialfetch/pkg/serp"
	"socialfetch/pkg/sink"
)

var (
	serpMaxResults int
	serpStart      int
	serpOutputDir  string
	serpMethod     string
	serpNoDownload bool
)

var serpCmd = &cobra.Command{
	Use:   "serp <query>",
	Short: "Search Google through a SERP proxy and archive the result pages",
	Long: `Query a Google SERP proxy and archive everything it returns:

  api_response.json     raw proxy response (a list when several pages were fetched)
  html_results/         one file per result page
  index.html            table of results linking to the archived pages
  search_results.json   normalized results and run summary

The proxy root comes from --base-url or GOOGLE_SERP_BASE_URL. Credentials are
GOOGLE_SERP_API_KEY (sent as GOOGLE_SERP_API_KEY_HEADER, default X-API-Key)
and/or GOOGLE_SERP_BEARER_TOKEN. At most 100 results are fetched.`,
	Example: `  socialfetch serp "Rob Pike"
  socialfetch serp "golang generics" -n 25 --start 11
  socialfetch serp "site:go.dev release notes" --method paged --no-download`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSerp,
}

func init() {
	rootCmd.AddCommand(serpCmd)

	f := serpCmd.Flags()
	f.IntVarP(&serpMaxResults, "max-results", "n", 10, "number of results (max 100)")
	f.IntVar(&serpStart, "start", 1, "1-based position of the first result")
	f.StringVarP(&serpOutputDir, "output-dir", "o", "", "output directory (default results/search_<query>_<timestamp>)")
	f.StringVar(&serpMethod, "method", serp.MethodGet, "get: page client-side; paged: let the proxy page")
	f.BoolVar(&serpNoDownload, "no-download", false, "do not fetch the result pages")
	f.String("base-url", "", "SERP proxy base URL")
	f.Float64("timeout", 20, "request timeout in seconds")
	f.Int("concurrency", 1, "parallel result page downloads")
	f.Int("max-retries", 3, "retries for 429, 5xx and network errors")
	f.Float64("retry-backoff", 2, "initial retry backoff in seconds, doubled on each retry")
}

func runSerp(cmd *cobra.Command, args []string) error {
	q := serp.Query{
		Q:      strings.TrimSpace(strings.Join(args, " ")),
		Max:    serpMaxResults,
		Start:  serpStart,
		Method: serpMethod,
	}
	if err := q.Validate(); err != nil {
		return err
	}

	a, err := setup(cmd, map[string]string{
		"base-url": "serp-base-url",
		"timeout":  "serp-timeout",
	})
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	cfg := a.cfg
	creds := serp.Credentials{
		APIKey:       cfg.SERP.APIKey,
		APIKeyHeader: cfg.SERP.APIKeyHeader,
		BearerToken:  cfg.SERP.BearerToken,
	}
	hc := a.newClient("serp", cfg.SERP.Timeout, creds.Headers(), creds.APIKey+creds.BearerToken,
		a.retryPolicy(ctx, cfg.Retry.MaxRetries, cfg.Retry.InitialBackoff))
	client := serp.NewClient(hc, cfg.SERP.BaseURL, a.log)

	search, err := client.Search(ctx, q)
	if err != nil {
		return err
	}
	a.printer.Info("Results found", fmt.Sprintf("%d (%d request(s))", len(search.Results), search.Pages))

	outDir := serpOutputDir
	if outDir == "" {
		outDir = serp.DefaultOutputDir(cfg.Output.BaseDirectory, q.Q, time.Now())
	}

	archiver := &serp.Archiver{
		Concurrency: cfg.Download.Concurrency,
		Logger:      a.log,
		RunID:       a.runID,
	}
	progress := a.progress("pages")
	if !serpNoDownload {
		// Result pages are third-party sites; a failure is recorded, not retried
		archiver.Fetcher = a.newClient("serp-pages", cfg.Download.Timeout, serp.PageHeaders(), "", nil)
		if progress != nil {
			archiver.Progress = progress
		}
	}

	summary, err := archiver.Save(ctx, outDir, q.Q, q.Max, search)
	if err != nil {
		return err
	}
	if progress != nil && !serpNoDownload && len(search.Results) > 0 {
		progress.Finish()
	}

	if err := a.export(ctx, sink.Records("serp", q.Q, summary.RunID, summary.Results, func(r serp.Result) string { return r.URL })); err != nil {
		return err
	}

	a.printer.Info("Output directory", outDir)
	a.printer.Info("Index", filepath.Join(outDir, "index.html"))
	a.notifier.Success("serp", fmt.Sprintf("%d results, %d pages saved", summary.ResultsFound, summary.ResultsSaved))
	return nil
}
