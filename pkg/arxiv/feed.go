package arxiv

import (
	"encoding/xml"
	"strconv"
	"strings"

	errs "socialfetch/pkg/errors"
)

// Entry is one paper from the Atom feed plus its download outcome
type Entry struct {
	Title          string   `json:"title"`
	IDURL          string   `json:"id_url"`
	ArxivID        string   `json:"arxiv_id"`
	Published      string   `json:"published"`
	Updated        string   `json:"updated"`
	Summary        string   `json:"summary"`
	Authors        []string `json:"authors"`
	Categories     []string `json:"categories"`
	PDFURL         string   `json:"pdf_url"`
	DownloadStatus string   `json:"download_status"`
	PDFFile        string   `json:"pdf_file"`
	DownloadError  string   `json:"download_error,omitempty"`
}

type atomFeed struct {
	XMLName      xml.Name    `xml:"http://www.w3.org/2005/Atom feed"`
	TotalResults string      `xml:"http://a9.com/-/spec/opensearch/1.1/ totalResults"`
	Entries      []atomEntry `xml:"http://www.w3.org/2005/Atom entry"`
}

type atomEntry struct {
	ID         string         `xml:"http://www.w3.org/2005/Atom id"`
	Title      string         `xml:"http://www.w3.org/2005/Atom title"`
	Published  string         `xml:"http://www.w3.org/2005/Atom published"`
	Updated    string         `xml:"http://www.w3.org/2005/Atom updated"`
	Summary    string         `xml:"http://www.w3.org/2005/Atom summary"`
	Authors    []atomAuthor   `xml:"http://www.w3.org/2005/Atom author"`
	Categories []atomCategory `xml:"http://www.w3.org/2005/Atom category"`
	Links      []atomLink     `xml:"http://www.w3.org/2005/Atom link"`
}

type atomAuthor struct {
	Name string `xml:"http://www.w3.org/2005/Atom name"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}

type atomLink struct {
	Href  string `xml:"href,attr"`
	Rel   string `xml:"rel,attr"`
	Title string `xml:"title,attr"`
}

// ParseFeed decodes an Atom response into entries and the reported total.
// An unparseable totalResults counts as 0.
func ParseFeed(data []byte) (int, []Entry, error) {
	var feed atomFeed
	if err := xml.Unmarshal(data, &feed); err != nil {
		return 0, nil, errs.Wrap(errs.ErrorTypeParsing, err, "failed to parse arXiv feed")
	}

	total, err := strconv.Atoi(strings.TrimSpace(feed.TotalResults))
	if err != nil {
		total = 0
	}

	entries := make([]Entry, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		entries = append(entries, e.toEntry())
	}
	return total, entries, nil
}

func (e atomEntry) toEntry() Entry {
	idURL := collapse(e.ID)
	arxivID := idURL
	if i := strings.Index(idURL, "/abs/"); i >= 0 {
		arxivID = idURL[i+len("/abs/"):]
	}

	authors := make([]string, 0, len(e.Authors))
	for _, a := range e.Authors {
		authors = append(authors, collapse(a.Name))
	}
	categories := []string{}
	for _, c := range e.Categories {
		if c.Term != "" {
			categories = append(categories, c.Term)
		}
	}

	return Entry{
		Title:          collapse(e.Title),
		IDURL:          idURL,
		ArxivID:        arxivID,
		Published:      collapse(e.Published),
		Updated:        collapse(e.Updated),
		Summary:        collapse(e.Summary),
		Authors:        authors,
		Categories:     categories,
		PDFURL:         e.pdfURL(idURL),
		DownloadStatus: StatusPending,
	}
}

// pdfURL prefers the related pdf link and falls back to rewriting /abs/
func (e atomEntry) pdfURL(idURL string) string {
	for _, l := range e.Links {
		if l.Title == "pdf" && l.Rel == "related" && l.Href != "" {
			return l.Href
		}
	}
	if strings.Contains(idURL, "/abs/") {
		return strings.Replace(idURL, "/abs/", "/pdf/", 1)
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
