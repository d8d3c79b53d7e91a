package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"socialfetch/internal/downloader"
)

const barWidth = 20

// Progress renders a single updating line for a batch of downloads. It
// satisfies downloader.Observer. On a non-terminal writer only the final
// summary is printed.
type Progress struct {
	mu     sync.Mutex
	p      *Printer
	label  string
	total  int
	done   int
	exists int
	failed int
	bytes  int64
	start  time.Time
	inline bool
	now    func() time.Time
}

var _ downloader.BatchObserver = (*Progress)(nil)

// NewProgress starts tracking total downloads. A total of 0 is filled in
// by Begin when the batch starts.
func NewProgress(p *Printer, label string, total int) *Progress {
	return &Progress{
		p:      p,
		label:  label,
		total:  total,
		start:  time.Now(),
		inline: IsTerminal(p.Writer()),
		now:    time.Now,
	}
}

// Begin sets the batch size
func (pr *Progress) Begin(total int) {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	pr.total = total
	pr.start = pr.now()
}

// Observe records one finished download
func (pr *Progress) Observe(r downloader.Result) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	switch r.Status {
	case downloader.StatusDownloaded:
		pr.done++
		pr.bytes += r.Size
	case downloader.StatusExists:
		pr.exists++
	default:
		pr.failed++
	}

	if pr.inline {
		fmt.Fprintf(pr.p.Writer(), "\r%s\r%s", strings.Repeat(" ", 100), pr.line())
	}
}

// Line returns the current progress line without printing it
func (pr *Progress) Line() string {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	return pr.line()
}

func (pr *Progress) line() string {
	finished := pr.done + pr.exists + pr.failed
	filled := 0
	if pr.total > 0 {
		filled = finished * barWidth / pr.total
	}
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("━", filled) + strings.Repeat("─", barWidth-filled)

	line := fmt.Sprintf("%s [%s] %d/%d • %s", pr.p.Cyan(pr.label), bar, finished, pr.total, FormatBytes(pr.bytes))
	if pr.exists > 0 {
		line += fmt.Sprintf(" • %d existing", pr.exists)
	}
	if pr.failed > 0 {
		line += " • " + pr.p.Red(fmt.Sprintf("%d errors", pr.failed))
	}
	return line
}

// Finish prints the summary line
func (pr *Progress) Finish() {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	if pr.inline {
		fmt.Fprintln(pr.p.Writer())
	}
	elapsed := pr.now().Sub(pr.start)
	fmt.Fprintf(pr.p.Writer(), "%s %s: %d downloaded, %d existing, %d failed (%s in %s)\n",
		pr.p.Green("✓"), pr.label, pr.done, pr.exists, pr.failed, FormatBytes(pr.bytes), FormatDuration(elapsed))
}

// FormatDuration formats a duration in a human-readable way
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

// FormatBytes formats bytes in a human-readable way
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
