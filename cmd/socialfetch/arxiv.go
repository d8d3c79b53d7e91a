package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"socialfetch/pkg/arxiv"
	"socialfetch/pkg/ratelimit"
	"socialfetch/pkg/sink"
)

var (
	arxivAuthor       string
	arxivTopic        string
	arxivMaxResults   int
	arxivStart        int
	arxivSortBy       string
	arxivSortOrder    string
	arxivOutputDir    string
	arxivMetadataFile string
	arxivNoDownload   bool
)

var arxivCmd = &cobra.Command{
	Use:   "arxiv",
	Short: "Search arXiv by author and/or topic and download the PDFs",
	Long: `Search the arXiv API and download the matching papers.

Papers are saved as <output-dir>/pdfs/NNNN_<arxiv-id>.pdf and every entry,
with its download status, is listed in <output-dir>/metadata.json.
The API asks clients to keep at least 3 seconds between requests; keep
--api-delay at or above that.`,
	Example: `  socialfetch arxiv --author "Yoshua Bengio" -n 25
  socialfetch arxiv --topic "diffusion models" --sort-by submittedDate -n 100
  socialfetch arxiv --author Hinton --topic "capsule networks" --no-download`,
	Args: cobra.NoArgs,
	RunE: runArxiv,
}

func init() {
	rootCmd.AddCommand(arxivCmd)

	f := arxivCmd.Flags()
	f.StringVar(&arxivAuthor, "author", "", "author name (au: term)")
	f.StringVar(&arxivTopic, "topic", "", "topic or keywords (all: term)")
	f.IntVarP(&arxivMaxResults, "max-results", "n", 10, "number of papers")
	f.IntVar(&arxivStart, "start", 0, "0-based offset into the results")
	f.Int("page-size", arxiv.DefaultPageSize, "entries per API request (max 2000)")
	f.StringVar(&arxivSortBy, "sort-by", "relevance", strings.Join(arxiv.SortByValues, "|"))
	f.StringVar(&arxivSortOrder, "sort-order", "descending", strings.Join(arxiv.SortOrderValues, "|"))
	f.StringVarP(&arxivOutputDir, "output-dir", "o", arxiv.DefaultOutputDir, "output directory")
	f.StringVar(&arxivMetadataFile, "metadata-file", "", "metadata file (default <output-dir>/metadata.json)")
	f.BoolVar(&arxivNoDownload, "no-download", false, "only write metadata")
	f.Bool("overwrite", false, "replace PDFs that already exist")
	f.Int("concurrency", 1, "parallel PDF downloads")
	f.String("base-url", arxiv.DefaultBaseURL, "arXiv API endpoint")
	f.Float64("timeout", 30, "request timeout in seconds")
	f.String("user-agent", "", "User-Agent header for API and PDF requests")
	f.Float64("api-delay", 3, "seconds between API requests")
	f.Float64("download-delay", 1, "seconds between PDF downloads")
	f.Int("max-retries", 5, "retries for 429, 5xx and network errors")
	f.Float64("retry-backoff", 5, "initial retry backoff in seconds, doubled on each retry")
}

func runArxiv(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd, map[string]string{
		"base-url":      "arxiv-base-url",
		"timeout":       "arxiv-timeout",
		"max-retries":   "arxiv-max-retries",
		"retry-backoff": "arxiv-retry-backoff",
	})
	if err != nil {
		return err
	}
	defer a.close()

	cfg := a.cfg
	s := arxiv.Search{
		Author:    arxivAuthor,
		Topic:     arxivTopic,
		Max:       arxivMaxResults,
		Start:     arxivStart,
		PageSize:  cfg.Arxiv.PageSize,
		SortBy:    arxivSortBy,
		SortOrder: arxivSortOrder,
	}
	if err := s.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	policy := a.retryPolicy(ctx, cfg.Arxiv.MaxRetries, cfg.Arxiv.RetryBackoff)
	hc := a.newClient("arxiv", cfg.Arxiv.Timeout, arxiv.FeedHeaders(cfg.Arxiv.UserAgent), "", policy)
	client := arxiv.NewClient(hc, cfg.Arxiv.BaseURL, ratelimit.ForDelay(cfg.Arxiv.APIDelay), a.log)

	progress := a.progress("pdfs")
	var d *arxiv.Downloader
	if !arxivNoDownload {
		d = &arxiv.Downloader{
			Fetcher:     a.newClient("arxiv-pdf", cfg.Download.Timeout, map[string]string{"User-Agent": cfg.Arxiv.UserAgent}, "", policy),
			Concurrency: cfg.Download.Concurrency,
			Limiter:     ratelimit.ForDelay(cfg.Arxiv.DownloadDelay),
			Overwrite:   cfg.Output.OverwriteExisting,
			Logger:      a.log,
		}
		if progress != nil {
			d.Progress = progress
		}
	}

	md, err := arxiv.Run(ctx, client, d, s, arxiv.RunOptions{
		OutputDir:    arxivOutputDir,
		MetadataFile: arxivMetadataFile,
		NoDownload:   arxivNoDownload,
		RunID:        a.runID,
	})
	if d != nil && progress != nil && md != nil {
		progress.Finish()
	}
	if err != nil {
		return err
	}

	if err := a.export(ctx, sink.Records("arxiv", md.SearchQuery, md.RunID, md.Entries, func(e arxiv.Entry) string { return e.ArxivID })); err != nil {
		return err
	}

	a.printer.Info("Query", md.SearchQuery)
	a.printer.Info("Retrieved", fmt.Sprintf("%d of %d available", md.RetrievedResults, md.TotalAvailable))
	if !arxivNoDownload {
		a.printer.Info("PDFs", fmt.Sprintf("%d downloaded, %d failed (%s)", md.DownloadedCount, md.DownloadFailedCount, md.PDFDir))
	}
	a.printer.Info("Metadata", arxiv.RunOptions{OutputDir: md.OutputDir, MetadataFile: arxivMetadataFile}.MetadataPath())
	a.notifier.Success("arxiv", fmt.Sprintf("%d papers for %s", md.RetrievedResults, md.SearchQuery))
	return nil
}
