package arxiv

import (
	"strings"

	errs "socialfetch/pkg/errors"
)

// Sort keys accepted by the API
var (
	SortByValues    = []string{"relevance", "lastUpdatedDate", "submittedDate"}
	SortOrderValues = []string{"ascending", "descending"}
)

// Search describes one arXiv query run
type Search struct {
	Author string
	Topic  string
	// Max is the number of entries wanted
	Max int
	// Start is the 0-based offset into the result set
	Start     int
	PageSize  int
	SortBy    string
	SortOrder string
}

// normalizeTerm collapses whitespace and quotes multi-word terms
func normalizeTerm(term string) string {
	term = strings.Join(strings.Fields(term), " ")
	if strings.Contains(term, " ") {
		term = `"` + strings.ReplaceAll(term, `"`, "") + `"`
	}
	return term
}

// BuildQuery turns author and topic into a search_query expression,
// e.g. au:"Geoffrey Hinton" AND all:"capsule network"
func BuildQuery(author, topic string) string {
	var clauses []string
	if a := normalizeTerm(author); a != "" {
		clauses = append(clauses, "au:"+a)
	}
	if t := normalizeTerm(topic); t != "" {
		clauses = append(clauses, "all:"+t)
	}
	return strings.Join(clauses, " AND ")
}

// Validate checks s and fills defaults for sort and page size
func (s *Search) Validate() error {
	if strings.TrimSpace(s.Author) == "" && strings.TrimSpace(s.Topic) == "" {
		return errs.New(errs.ErrorTypeValidation, "provide at least one of --author or --topic")
	}
	if s.Max <= 0 {
		return errs.New(errs.ErrorTypeValidation, "--max-results must be >= 1")
	}
	if s.Start < 0 {
		return errs.New(errs.ErrorTypeValidation, "--start must be >= 0")
	}
	if s.Start >= MaxAPIResults {
		return errs.New(errs.ErrorTypeValidation, "--start must be < %d due to arXiv API limits", MaxAPIResults)
	}
	if s.PageSize == 0 {
		s.PageSize = DefaultPageSize
	}
	if s.PageSize < 0 || s.PageSize > MaxPageSize {
		return errs.New(errs.ErrorTypeValidation, "--page-size must be in [1, %d]", MaxPageSize)
	}
	if s.SortBy == "" {
		s.SortBy = "relevance"
	}
	if !oneOf(s.SortBy, SortByValues) {
		return errs.New(errs.ErrorTypeValidation, "--sort-by must be one of %s", strings.Join(SortByValues, ", "))
	}
	if s.SortOrder == "" {
		s.SortOrder = "descending"
	}
	if !oneOf(s.SortOrder, SortOrderValues) {
		return errs.New(errs.ErrorTypeValidation, "--sort-order must be one of %s", strings.Join(SortOrderValues, ", "))
	}
	return nil
}

// Effective is Max capped so that Start+Max stays inside the API window
func (s *Search) Effective() int {
	if allowed := MaxAPIResults - s.Start; s.Max > allowed {
		return allowed
	}
	return s.Max
}

func oneOf(v string, values []string) bool {
	for _, x := range values {
		if v == x {
			return true
		}
	}
	return false
}
