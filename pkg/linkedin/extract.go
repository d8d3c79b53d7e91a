package linkedin

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	errs "socialfetch/pkg/errors"
)

// Post is one activity item
type Post struct {
	ID        string `json:"id,omitempty"`
	Text      string `json:"text"`
	Author    string `json:"author,omitempty"`
	PostedAt  string `json:"posted_at,omitempty"`
	Reactions string `json:"reactions,omitempty"`
	Comments  string `json:"comments,omitempty"`
	Reposts   string `json:"reposts,omitempty"`
	URL       string `json:"url,omitempty"`
}

// User is what the profile header shows
type User struct {
	ProfileURL  string `json:"profile_url"`
	Username    string `json:"username,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
	IsCompany   bool   `json:"is_company,omitempty"`
	Name        string `json:"name,omitempty"`
	Headline    string `json:"headline,omitempty"`
	Location    string `json:"location,omitempty"`
	Connections string `json:"connections,omitempty"`
	Followers   string `json:"followers,omitempty"`
}

var (
	postSelector = `[data-urn*="activity"], .feed-shared-update-v2, .occludable-update`

	textSelectors = []string{
		".feed-shared-update-v2__description",
		`.break-words span[dir="ltr"]`,
		".feed-shared-text",
		".update-components-text",
	}
	authorSelectors = []string{
		".update-components-actor__name",
		".feed-shared-actor__name",
		".update-components-actor__title",
	}
	timeSelectors = []string{
		".update-components-actor__sub-description",
		".feed-shared-actor__sub-description",
		"time",
	}
	nameSelectors = []string{
		"h1.text-heading-xlarge",
		".pv-top-card--list li:first-child",
		"h1.top-card-layout__title",
		".top-card__title",
	}
	headlineSelectors = []string{
		".text-body-medium.break-words",
		".pv-top-card--headline",
		".top-card__subline-row:first-child",
	}
	locationSelectors = []string{
		".text-body-small.inline.t-black--light.break-words",
		".pv-top-card--location",
		".top-card__subline-row .top-card__flavor",
	}

	reactionsRe   = regexp.MustCompile(`(?i)\b\d[\d,.]*[KMB]?\s+(?:reactions?|likes?)\b`)
	commentsRe    = regexp.MustCompile(`(?i)\b\d[\d,.]*[KMB]?\s+comments?\b`)
	repostsRe     = regexp.MustCompile(`(?i)\b\d[\d,.]*[KMB]?\s+reposts?\b`)
	connectionsRe = regexp.MustCompile(`(?i)\b\d[\d,]*\+?\s+connections\b`)
	followersRe   = regexp.MustCompile(`(?i)\b\d[\d,.]*[KMB]?\s+followers\b`)
)

const fallbackTextLen = 500

func parse(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeParsing, err, "failed to parse page HTML")
	}
	return doc, nil
}

// ExtractPosts returns the posts in html in page order. Nested matches
// (a post wrapper inside another) are reported once.
func ExtractPosts(html string) ([]Post, error) {
	doc, err := parse(html)
	if err != nil {
		return nil, err
	}

	var posts []Post
	doc.Find(postSelector).Each(func(_ int, s *goquery.Selection) {
		if s.ParentsFiltered(postSelector).Length() > 0 {
			return
		}
		if p, ok := extractPost(s); ok {
			posts = append(posts, p)
		}
	})
	return posts, nil
}

func extractPost(s *goquery.Selection) (Post, bool) {
	var p Post
	p.ID, _ = s.Attr("data-urn")
	if p.ID == "" {
		s.Find("[data-urn]").EachWithBreak(func(_ int, inner *goquery.Selection) bool {
			p.ID, _ = inner.Attr("data-urn")
			return p.ID == ""
		})
	}
	if strings.HasPrefix(p.ID, "urn:li:activity:") {
		p.URL = baseURL + "/feed/update/" + p.ID + "/"
	}

	p.Text = firstText(s, textSelectors)
	if p.Text == "" {
		p.Text = truncate(cleanText(s.Text()), fallbackTextLen)
	}
	p.Author = firstText(s, authorSelectors)
	p.PostedAt = firstText(s, timeSelectors)

	all := cleanText(s.Text())
	p.Reactions = reactionsRe.FindString(all)
	p.Comments = commentsRe.FindString(all)
	p.Reposts = repostsRe.FindString(all)

	return p, p.Text != "" || p.ID != ""
}

// ExtractUser reads the profile header
func ExtractUser(html string, profile *Profile) (*User, error) {
	doc, err := parse(html)
	if err != nil {
		return nil, err
	}

	u := &User{ProfileURL: profile.URL}
	if profile.IsCompany {
		u.CompanyName = profile.Handle
		u.IsCompany = true
	} else {
		u.Username = profile.Handle
	}

	u.Name = firstText(doc.Selection, nameSelectors)
	u.Headline = firstText(doc.Selection, headlineSelectors)
	u.Location = firstText(doc.Selection, locationSelectors)

	body := cleanText(doc.Find("body").Text())
	u.Connections = connectionsRe.FindString(body)
	u.Followers = followersRe.FindString(body)
	return u, nil
}

// Key identifies a post across scroll passes
func (p Post) Key() string {
	if p.ID != "" {
		return p.ID
	}
	return truncate(p.Text, 50)
}

func firstText(s *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		if found := s.Find(sel).First(); found.Length() > 0 {
			if text := cleanText(found.Text()); text != "" {
				return text
			}
		}
	}
	return ""
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
