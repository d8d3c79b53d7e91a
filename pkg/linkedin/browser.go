package linkedin

import (
	"context"
	"time"

	"socialfetch/pkg/browserbase"
	"socialfetch/pkg/logger"
	"socialfetch/pkg/retry"
)

// Browser runs LinkedIn flows on a remote page
type Browser struct {
	Page   browserbase.Page
	Logger logger.Logger

	// Settle is the pause after a navigation for client-side rendering
	Settle time.Duration
	// LoginRedirectTimeout bounds the wait for the login form to redirect
	LoginRedirectTimeout time.Duration
	// CheckpointTimeout bounds the wait for a security checkpoint to clear
	CheckpointTimeout time.Duration
	PollInterval      time.Duration
	ScrollDelay       time.Duration
	ScrollStep        int
	// MaxScrolls stops the post loop on pages that never fill up
	MaxScrolls int

	Sleep retry.SleepFunc
	Now   func() time.Time
}

// NewBrowser returns a Browser with the timings used against linkedin.com
func NewBrowser(page browserbase.Page, log logger.Logger) *Browser {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Browser{
		Page:                 page,
		Logger:               log,
		Settle:               3 * time.Second,
		LoginRedirectTimeout: 30 * time.Second,
		CheckpointTimeout:    180 * time.Second,
		PollInterval:         5 * time.Second,
		ScrollDelay:          2 * time.Second,
		ScrollStep:           1000,
		MaxScrolls:           10,
		Sleep:                retry.Wait,
		Now:                  time.Now,
	}
}

func (b *Browser) sleep(ctx context.Context, d time.Duration) error {
	if b.Sleep == nil {
		return retry.Wait(ctx, d)
	}
	return b.Sleep(ctx, d)
}

func (b *Browser) now() time.Time {
	if b.Now == nil {
		return time.Now()
	}
	return b.Now()
}

// open navigates and waits Settle
func (b *Browser) open(ctx context.Context, url string) error {
	if err := b.Page.Navigate(ctx, url); err != nil {
		return err
	}
	return b.sleep(ctx, b.Settle)
}

func (b *Browser) anyExists(ctx context.Context, selectors []string) (bool, error) {
	for _, sel := range selectors {
		found, err := b.Page.Exists(ctx, sel)
		if err != nil {
			return false, err
		}
		if found {
			return true, nil
		}
	}
	return false, nil
}
