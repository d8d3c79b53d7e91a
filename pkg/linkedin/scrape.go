package linkedin

import (
	"context"
	"strings"
	"time"

	errs "socialfetch/pkg/errors"
	"socialfetch/pkg/storage"
)

// Output is the linkedin posts document
type Output struct {
	User      *User  `json:"user"`
	PostCount int    `json:"post_count"`
	Posts     []Post `json:"posts"`
	ScrapedAt string `json:"scraped_at"`
}

// ScrapePosts reads the profile header, then scrolls the activity page
// until max posts are collected or the page stops producing new ones.
func (b *Browser) ScrapePosts(ctx context.Context, profile *Profile, max int) (*Output, error) {
	if max <= 0 {
		return nil, errs.New(errs.ErrorTypeValidation, "--max-posts must be positive")
	}

	b.Logger.WithField("url", profile.URL).Info("Opening profile")
	html, err := b.visitProfile(ctx, profile)
	if err != nil {
		return nil, err
	}

	user, err := ExtractUser(html, profile)
	if err != nil {
		return nil, err
	}
	if user.Name != "" {
		b.Logger.WithField("name", user.Name).Info("Found profile")
	}

	if err := b.open(ctx, profile.ActivityURL()); err != nil {
		return nil, err
	}
	posts, err := b.collectPosts(ctx, max)
	if err != nil {
		return nil, err
	}

	return &Output{
		User:      user,
		PostCount: len(posts),
		Posts:     posts,
		ScrapedAt: b.now().UTC().Format(time.RFC3339),
	}, nil
}

// visitProfile opens the profile and rejects auth walls and missing pages
func (b *Browser) visitProfile(ctx context.Context, profile *Profile) (string, error) {
	if err := b.open(ctx, profile.URL); err != nil {
		return "", err
	}

	wall, err := b.LoginRequired(ctx)
	if err != nil {
		return "", err
	}
	if wall {
		return "", errs.New(errs.ErrorTypeAuth, "still seeing login wall after authentication; the account may be blocked or need verification")
	}

	html, err := b.Page.HTML(ctx)
	if err != nil {
		return "", err
	}
	if strings.Contains(html, "Page not found") {
		return "", errs.New(errs.ErrorTypeNotFound, "profile not found at %s", profile.URL)
	}
	return html, nil
}

func (b *Browser) collectPosts(ctx context.Context, max int) ([]Post, error) {
	seen := make(map[string]bool)
	posts := make([]Post, 0, max)
	stalled := 0

	for scroll := 0; len(posts) < max && scroll < b.MaxScrolls; scroll++ {
		html, err := b.Page.HTML(ctx)
		if err != nil {
			return nil, err
		}
		found, err := ExtractPosts(html)
		if err != nil {
			return nil, err
		}

		added := 0
		for _, p := range found {
			if len(posts) >= max {
				break
			}
			if seen[p.Key()] {
				continue
			}
			seen[p.Key()] = true
			posts = append(posts, p)
			added++
		}
		b.Logger.DebugWithFields("collected posts", map[string]interface{}{
			"collected": len(posts),
			"added":     added,
			"max":       max,
			"scroll":    scroll,
		})
		if len(posts) >= max {
			break
		}

		// The feed is virtualized, so the DOM size says nothing; only new posts count
		if added == 0 {
			stalled++
			if stalled >= 2 {
				b.Logger.Info("Activity page stopped growing")
				break
			}
		} else {
			stalled = 0
		}

		if err := b.Page.Scroll(ctx, b.ScrollStep); err != nil {
			return nil, err
		}
		if err := b.sleep(ctx, b.ScrollDelay); err != nil {
			return nil, err
		}
	}

	b.Logger.WithField("count", len(posts)).Info("Collected posts")
	return posts, nil
}

// Archive lists the files written by ArchiveHTML
type Archive struct {
	ProfileFile  string `json:"profile_file"`
	ActivityFile string `json:"activity_file"`
}

// ArchiveHTML saves the rendered profile and activity pages into store as
// profile_<ts>.html and activity_<ts>.html.
func (b *Browser) ArchiveHTML(ctx context.Context, profile *Profile, store *storage.ArtifactStore) (*Archive, error) {
	if _, err := b.visitProfile(ctx, profile); err != nil {
		return nil, err
	}
	ts := b.now().Format("20060102_150405")

	profileFile, err := b.scrollAndSave(ctx, store, "profile_"+ts+".html", 3, 800)
	if err != nil {
		return nil, err
	}

	if err := b.open(ctx, profile.ActivityURL()); err != nil {
		return nil, err
	}
	activityFile, err := b.scrollAndSave(ctx, store, "activity_"+ts+".html", b.MaxScrolls, b.ScrollStep)
	if err != nil {
		return nil, err
	}

	return &Archive{ProfileFile: profileFile, ActivityFile: activityFile}, nil
}

func (b *Browser) scrollAndSave(ctx context.Context, store *storage.ArtifactStore, name string, scrolls, step int) (string, error) {
	for i := 0; i < scrolls; i++ {
		if err := b.Page.Scroll(ctx, step); err != nil {
			return "", err
		}
		if err := b.sleep(ctx, b.ScrollDelay); err != nil {
			return "", err
		}
	}

	html, err := b.Page.HTML(ctx)
	if err != nil {
		return "", err
	}
	if _, err := store.SaveBytes(name, []byte(html)); err != nil {
		return "", err
	}
	b.Logger.WithField("file", store.Path(name)).Info("Saved page HTML")
	return store.Path(name), nil
}
