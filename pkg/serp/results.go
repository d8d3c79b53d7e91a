package serp

import (
	"sort"
	"strings"
)

// Result is one normalized search hit
type Result struct {
	Rank    int                    `json:"rank"`
	Title   string                 `json:"title"`
	URL     string                 `json:"url"`
	Snippet string                 `json:"snippet"`
	Raw     map[string]interface{} `json:"raw"`

	// Filled in when the result page is archived
	PageTitle   string `json:"page_title,omitempty"`
	LocalFile   string `json:"local_file,omitempty"`
	Status      string `json:"status,omitempty"`
	FetchError  string `json:"fetch_error,omitempty"`
	StatusCode  int    `json:"status_code,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

var (
	listKeys    = []string{"results", "items", "organic_results", "search_results", "data"}
	urlKeys     = []string{"url", "link", "href", "target_url", "result_url"}
	titleKeys   = []string{"title", "name", "headline"}
	snippetKeys = []string{"snippet", "description", "summary", "body"}
)

// FindResultsList locates the list of result objects in an arbitrary payload.
// Well-known keys win; otherwise the list of objects with the most url-like
// entries anywhere in the document is used. Object keys are walked in sorted
// order and the first list reaching the top score wins a tie.
func FindResultsList(payload interface{}) []interface{} {
	switch p := payload.(type) {
	case []interface{}:
		return p
	case map[string]interface{}:
		for _, key := range listKeys {
			if list, ok := p[key].([]interface{}); ok {
				return list
			}
		}
	default:
		return nil
	}

	var (
		best      []interface{}
		bestScore int
	)
	var walk func(node interface{})
	walk = func(node interface{}) {
		switch n := node.(type) {
		case map[string]interface{}:
			keys := make([]string, 0, len(n))
			for k := range n {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				walk(n[k])
			}
		case []interface{}:
			if len(n) > 0 && allObjects(n) {
				score := 0
				for _, item := range n {
					if looksLikeResult(item.(map[string]interface{})) {
						score++
					}
				}
				if score > bestScore {
					best, bestScore = n, score
				}
			}
			for _, v := range n {
				walk(v)
			}
		}
	}
	walk(payload)
	return best
}

func allObjects(list []interface{}) bool {
	for _, item := range list {
		if _, ok := item.(map[string]interface{}); !ok {
			return false
		}
	}
	return true
}

func looksLikeResult(item map[string]interface{}) bool {
	for key := range item {
		switch strings.ToLower(key) {
		case "url", "link", "href":
			return true
		}
	}
	return false
}

// PickURL returns the first absolute http(s) URL among the known fields
func PickURL(item map[string]interface{}) string {
	for _, key := range urlKeys {
		if v, ok := item[key].(string); ok && (strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://")) {
			return v
		}
	}
	return ""
}

func firstString(item map[string]interface{}, keys []string) string {
	for _, key := range keys {
		if v, ok := item[key].(string); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

// NormalizeResult maps a raw result object to a Result. It returns false for
// objects without a usable URL.
func NormalizeResult(item map[string]interface{}, rank int) (Result, bool) {
	u := PickURL(item)
	if u == "" {
		return Result{}, false
	}
	return Result{
		Rank:    rank,
		Title:   firstString(item, titleKeys),
		URL:     u,
		Snippet: firstString(item, snippetKeys),
		Raw:     item,
	}, true
}

// Normalizer turns raw result lists into deduplicated Results across pages
type Normalizer struct {
	seen map[string]bool
}

// NewNormalizer creates an empty Normalizer
func NewNormalizer() *Normalizer {
	return &Normalizer{seen: make(map[string]bool)}
}

// Add normalizes raw and drops non-objects, URL-less items and duplicates.
// Ranks are assigned later by Rank.
func (n *Normalizer) Add(raw []interface{}) []Result {
	var out []Result
	for _, item := range raw {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		r, ok := NormalizeResult(obj, 0)
		if !ok || n.seen[r.URL] {
			continue
		}
		n.seen[r.URL] = true
		out = append(out, r)
	}
	return out
}

// Rank numbers results from 1 in order
func Rank(results []Result) {
	for i := range results {
		results[i].Rank = i + 1
	}
}
