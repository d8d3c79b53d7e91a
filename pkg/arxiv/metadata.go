package arxiv

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"socialfetch/pkg/storage"
)

// DefaultOutputDir is where runs land without -o
const DefaultOutputDir = "results/arxiv_downloads"

// Metadata is the document written next to the PDFs
type Metadata struct {
	RunID                     string  `json:"run_id"`
	GeneratedAtUTC            string  `json:"generated_at_utc"`
	SearchQuery               string  `json:"search_query"`
	Author                    *string `json:"author"`
	Topic                     *string `json:"topic"`
	RequestedResults          int     `json:"requested_results"`
	EffectiveRequestedResults int     `json:"effective_requested_results"`
	RetrievedResults          int     `json:"retrieved_results"`
	TotalAvailable            int     `json:"total_available"`
	DownloadedCount           int     `json:"downloaded_count"`
	DownloadFailedCount       int     `json:"download_failed_count"`
	OutputDir                 string  `json:"output_dir"`
	PDFDir                    string  `json:"pdf_dir"`
	Entries                   []Entry `json:"entries"`
}

// RunOptions controls where a run writes
type RunOptions struct {
	OutputDir string
	// MetadataFile is relative to OutputDir unless absolute
	MetadataFile string
	NoDownload   bool
	// RunID ties the metadata to the invocation's log lines; a fresh one is
	// generated when empty
	RunID string
}

// MetadataPath resolves the metadata file location
func (o RunOptions) MetadataPath() string {
	name := o.MetadataFile
	if name == "" {
		name = "metadata.json"
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(o.OutputDir, name)
}

// Run queries, downloads and writes the metadata file. The metadata is
// returned even when writing it fails.
func Run(ctx context.Context, c *Client, d *Downloader, s Search, opts RunOptions) (*Metadata, error) {
	if opts.OutputDir == "" {
		opts.OutputDir = DefaultOutputDir
	}
	pdfDir := filepath.Join(opts.OutputDir, "pdfs")

	res, err := c.Query(ctx, s)
	if err != nil {
		return nil, err
	}
	c.logger.InfoWithFields("arXiv search complete", map[string]interface{}{
		"retrieved":       len(res.Entries),
		"requested":       s.Effective(),
		"total_available": res.TotalAvailable,
	})

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	md := &Metadata{
		RunID:                     runID,
		SearchQuery:               res.Query,
		Author:                    optional(s.Author),
		Topic:                     optional(s.Topic),
		RequestedResults:          s.Max,
		EffectiveRequestedResults: s.Effective(),
		RetrievedResults:          len(res.Entries),
		TotalAvailable:            res.TotalAvailable,
		OutputDir:                 opts.OutputDir,
		PDFDir:                    pdfDir,
		Entries:                   res.Entries,
	}

	if opts.NoDownload || d == nil {
		MarkSkipped(md.Entries)
	} else {
		downloaded, failed, err := d.Download(ctx, pdfDir, md.Entries)
		md.DownloadedCount = downloaded
		md.DownloadFailedCount = failed
		if err != nil {
			return md, err
		}
	}

	md.GeneratedAtUTC = time.Now().UTC().Format(time.RFC3339Nano)
	path := opts.MetadataPath()
	if err := storage.WriteJSON(path, md); err != nil {
		return md, err
	}
	c.logger.WithField("path", path).Info("Metadata written")
	return md, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
