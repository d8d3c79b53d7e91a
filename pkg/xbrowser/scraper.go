// Package xbrowser reads an X profile timeline through a remote browser.
//
// Deprecated: use the API-backed xapi package; the rendered timeline shows
// only what X serves to the browser session and breaks on markup changes.
package xbrowser

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"socialfetch/pkg/browserbase"
	errs "socialfetch/pkg/errors"
	"socialfetch/pkg/logger"
	"socialfetch/pkg/retry"
)

// User is the timeline owner
type User struct {
	Username   string `json:"username"`
	Name       string `json:"name,omitempty"`
	ProfileURL string `json:"profile_url"`
}

// Output is the x-browser document
type Output struct {
	User      User    `json:"user"`
	PostCount int     `json:"post_count"`
	Posts     []Tweet `json:"posts"`
	ScrapedAt string  `json:"scraped_at"`
}

// Scraper scrolls a profile timeline
type Scraper struct {
	Page        browserbase.Page
	Logger      logger.Logger
	Settle      time.Duration
	LoadTimeout time.Duration
	ScrollDelay time.Duration
	ScrollStep  int
	MaxScrolls  int
	Sleep       retry.SleepFunc
	Now         func() time.Time
}

// NewScraper returns a Scraper with default timings
func NewScraper(page browserbase.Page, log logger.Logger) *Scraper {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Scraper{
		Page:        page,
		Logger:      log,
		Settle:      3 * time.Second,
		LoadTimeout: 30 * time.Second,
		ScrollDelay: 2 * time.Second,
		ScrollStep:  1500,
		MaxScrolls:  20,
		Sleep:       retry.Wait,
		Now:         time.Now,
	}
}

// Scrape collects up to max posts from x.com/<username>
func (s *Scraper) Scrape(ctx context.Context, username string, max int) (*Output, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return nil, errs.New(errs.ErrorTypeValidation, "username is required")
	}
	if max <= 0 {
		return nil, errs.New(errs.ErrorTypeValidation, "--max-posts must be positive")
	}

	profileURL := xHost + "/" + username
	s.Logger.WithField("url", profileURL).Info("Opening timeline")
	if err := s.Page.Navigate(ctx, profileURL); err != nil {
		return nil, err
	}
	if err := s.Sleep(ctx, s.Settle); err != nil {
		return nil, err
	}

	if err := s.Page.WaitVisible(ctx, tweetSelector, s.LoadTimeout); err != nil {
		wall, werr := s.Page.Exists(ctx, loginWallSel)
		if werr == nil && wall {
			return nil, errs.New(errs.ErrorTypeAuth, "X requires a logged-in session to show @%s", username)
		}
		return nil, errs.Wrap(errs.ErrorTypeNotFound, err, "no posts rendered for @"+username)
	}

	html, err := s.Page.HTML(ctx)
	if err != nil {
		return nil, err
	}
	user := User{Username: username, ProfileURL: profileURL}
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		user.Name = displayName(doc)
	}

	posts, err := s.collect(ctx, max)
	if err != nil {
		return nil, err
	}
	return &Output{
		User:      user,
		PostCount: len(posts),
		Posts:     posts,
		ScrapedAt: s.Now().UTC().Format(time.RFC3339),
	}, nil
}

// collect keeps tweets across passes since X virtualizes the timeline and
// drops off-screen articles from the DOM.
func (s *Scraper) collect(ctx context.Context, max int) ([]Tweet, error) {
	seen := make(map[string]bool)
	var posts []Tweet
	stalled := 0

	for scroll := 0; len(posts) < max && scroll < s.MaxScrolls; scroll++ {
		html, err := s.Page.HTML(ctx)
		if err != nil {
			return nil, err
		}
		found, err := ExtractTweets(html)
		if err != nil {
			return nil, err
		}

		added := 0
		for _, t := range found {
			if len(posts) >= max {
				break
			}
			if seen[t.Key()] {
				continue
			}
			seen[t.Key()] = true
			posts = append(posts, t)
			added++
		}
		if len(posts) >= max {
			break
		}

		if added == 0 {
			stalled++
			if stalled >= 2 {
				s.Logger.Info("Timeline stopped growing")
				break
			}
		} else {
			stalled = 0
		}

		if err := s.Page.Scroll(ctx, s.ScrollStep); err != nil {
			return nil, err
		}
		if err := s.Sleep(ctx, s.ScrollDelay); err != nil {
			return nil, err
		}
	}

	s.Logger.WithField("count", len(posts)).Info("Collected posts")
	return posts, nil
}
