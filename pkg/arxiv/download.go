package arxiv

import (
	"context"
	"fmt"
	"path/filepath"

	"socialfetch/internal/downloader"
	"socialfetch/pkg/logger"
	"socialfetch/pkg/ratelimit"
	"socialfetch/pkg/storage"
)

// Download statuses recorded on each entry
const (
	StatusPending    = "pending"
	StatusDownloaded = "downloaded"
	StatusExists     = "exists"
	StatusNoPDFURL   = "no_pdf_url"
	StatusError      = "error"
	StatusSkipped    = "skipped"
)

// Downloader saves entry PDFs under a pdfs/ directory
type Downloader struct {
	Fetcher     downloader.Fetcher
	Concurrency int
	// Limiter paces downloads (--download-delay); nil means no pacing
	Limiter   ratelimit.Limiter
	Overwrite bool
	// Progress, when set, sees every finished download
	Progress downloader.Observer
	Logger   logger.Logger
}

// PDFFileName is NNNN_<sanitized-id>.pdf with a 1-based position
func PDFFileName(position int, arxivID string) string {
	if arxivID == "" {
		arxivID = "paper"
	}
	return fmt.Sprintf("%04d_%s.pdf", position, storage.SanitizeName(arxivID, 80))
}

// Download fetches every entry with a pdf_url and records the outcome on the
// entry. It returns the downloaded and failed counts; existing files count
// as neither.
func (d *Downloader) Download(ctx context.Context, pdfDir string, entries []Entry) (int, int, error) {
	log := d.Logger
	if log == nil {
		log = logger.GetLogger()
	}

	store, err := storage.NewArtifactStore(pdfDir, d.Overwrite)
	if err != nil {
		return 0, 0, err
	}

	var (
		jobs     []downloader.Job
		entryIdx []int
		failed   int
	)
	for i := range entries {
		e := &entries[i]
		name := PDFFileName(i+1, e.ArxivID)
		e.PDFFile = filepath.Join(pdfDir, name)

		if e.PDFURL == "" {
			e.DownloadStatus = StatusNoPDFURL
			failed++
			continue
		}
		jobs = append(jobs, downloader.Job{URL: e.PDFURL, Name: name})
		entryIdx = append(entryIdx, i)
	}

	downloaded := 0
	for _, r := range downloader.RunObserved(ctx, d.Concurrency, d.Fetcher, store, d.Limiter, log, d.Progress, jobs) {
		e := &entries[entryIdx[r.Job.Index]]
		switch r.Status {
		case downloader.StatusExists:
			e.DownloadStatus = StatusExists
		case downloader.StatusDownloaded:
			e.DownloadStatus = StatusDownloaded
			downloaded++
		default:
			e.DownloadStatus = StatusError
			if r.Error != nil {
				e.DownloadError = r.Error.Error()
			}
			failed++
			log.WithField("arxiv_id", e.ArxivID).WithError(r.Error).Warn("PDF download failed")
		}
	}

	if err := ctx.Err(); err != nil {
		return downloaded, failed, err
	}
	return downloaded, failed, nil
}

// MarkSkipped records that downloads were turned off
func MarkSkipped(entries []Entry) {
	for i := range entries {
		entries[i].DownloadStatus = StatusSkipped
	}
}
