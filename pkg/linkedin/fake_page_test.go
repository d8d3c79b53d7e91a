package linkedin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// fakePage serves canned HTML per URL and evaluates selectors with goquery
type fakePage struct {
	url       string
	pages     map[string]func(scrolls int) string
	redirects map[string]string
	onClick   map[string]func(p *fakePage)
	filled    map[string]string
	visited   []string
	scrolls   int
}

func newFakePage() *fakePage {
	return &fakePage{
		pages:     map[string]func(int) string{},
		redirects: map[string]string{},
		onClick:   map[string]func(*fakePage){},
		filled:    map[string]string{},
	}
}

func (p *fakePage) static(url, html string) {
	p.pages[url] = func(int) string { return html }
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.visited = append(p.visited, url)
	p.scrolls = 0
	if to, ok := p.redirects[url]; ok {
		url = to
	}
	p.url = url
	return nil
}

func (p *fakePage) URL(ctx context.Context) (string, error) { return p.url, nil }

func (p *fakePage) HTML(ctx context.Context) (string, error) {
	if render, ok := p.pages[p.url]; ok {
		return render(p.scrolls), nil
	}
	return "<html><body></body></html>", nil
}

func (p *fakePage) Exists(ctx context.Context, selector string) (bool, error) {
	html, _ := p.HTML(ctx)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false, err
	}
	return doc.Find(selector).Length() > 0, nil
}

func (p *fakePage) Fill(ctx context.Context, selector, value string) error {
	p.filled[selector] = value
	return nil
}

func (p *fakePage) Click(ctx context.Context, selector string) error {
	if fn, ok := p.onClick[selector]; ok {
		fn(p)
	}
	return nil
}

func (p *fakePage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	found, err := p.Exists(ctx, selector)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("timeout waiting for %s", selector)
	}
	return nil
}

func (p *fakePage) Scroll(ctx context.Context, dy int) error {
	p.scrolls++
	return nil
}

// fakeClock advances only when slept on
type fakeClock struct {
	now    time.Time
	slept  time.Duration
	sleeps int
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.now = c.now.Add(d)
	c.slept += d
	c.sleeps++
	return ctx.Err()
}
