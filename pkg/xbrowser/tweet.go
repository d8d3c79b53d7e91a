package xbrowser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	errs "socialfetch/pkg/errors"
)

// Tweet is a post as rendered on the profile timeline
type Tweet struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at,omitempty"`
	URL       string `json:"url,omitempty"`
	Replies   string `json:"replies,omitempty"`
	Reposts   string `json:"reposts,omitempty"`
	Likes     string `json:"likes,omitempty"`
}

var (
	statusPathRe = regexp.MustCompile(`^/([^/]+)/status/(\d+)`)
	leadingNumRe = regexp.MustCompile(`^\s*([\d.,]+[KMB]?)`)
)

// ExtractTweets returns the tweets in html in page order
func ExtractTweets(html string) ([]Tweet, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeParsing, err, "failed to parse timeline HTML")
	}

	var tweets []Tweet
	doc.Find(tweetSelector).Each(func(_ int, article *goquery.Selection) {
		t := Tweet{
			Text: strings.TrimSpace(article.Find(tweetTextSel).First().Text()),
		}

		timeEl := article.Find("time").First()
		t.CreatedAt = timeEl.AttrOr("datetime", "")
		href := timeEl.ParentsFiltered("a").First().AttrOr("href", "")
		if href == "" {
			href = article.Find(`a[href*="/status/"]`).First().AttrOr("href", "")
		}
		if m := statusPathRe.FindStringSubmatch(href); m != nil {
			t.ID = m[2]
			t.URL = xHost + m[0]
		}

		t.Replies = metric(article, replySelector)
		t.Reposts = metric(article, repostSelector)
		t.Likes = metric(article, likeSelector)

		if t.ID != "" || t.Text != "" {
			tweets = append(tweets, t)
		}
	})
	return tweets, nil
}

// metric reads the count from a button's aria-label, e.g. "1.2K Likes. Like"
func metric(article *goquery.Selection, selector string) string {
	label := article.Find(selector).First().AttrOr("aria-label", "")
	if m := leadingNumRe.FindStringSubmatch(label); m != nil {
		return m[1]
	}
	return ""
}

// Key identifies a tweet across scroll passes
func (t Tweet) Key() string {
	if t.ID != "" {
		return t.ID
	}
	return t.Text
}

// displayName reads the profile header name
func displayName(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find(userNameSelector).Find("span").First().Text())
}
