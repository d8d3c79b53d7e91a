// Package linkedin reads a LinkedIn profile's recent activity through a
// logged-in remote browser.
package linkedin

import (
	"net/url"
	"strings"

	errs "socialfetch/pkg/errors"
)

const baseURL = "https://www.linkedin.com"

// Profile is a canonical person or company page
type Profile struct {
	// URL always ends with a slash, e.g. https://www.linkedin.com/in/jdoe/
	URL       string
	Handle    string
	IsCompany bool
}

// NormalizeProfile accepts a bare handle or a profile URL. URLs must point
// at /in/<handle> or /company/<handle>; anything after the handle is dropped.
func NormalizeProfile(input string) (*Profile, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, errs.New(errs.ErrorTypeValidation, "profile is required")
	}

	if !strings.HasPrefix(input, "http") {
		handle := strings.Trim(strings.TrimPrefix(input, "@"), "/ ")
		if handle == "" || strings.Contains(handle, "/") {
			return nil, errs.New(errs.ErrorTypeValidation, "invalid LinkedIn username %q", input)
		}
		return &Profile{URL: baseURL + "/in/" + handle + "/", Handle: handle}, nil
	}

	u, err := url.Parse(input)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeValidation, err, "invalid LinkedIn URL")
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+1 < len(segments); i++ {
		kind := segments[i]
		if (kind == "in" || kind == "company") && segments[i+1] != "" {
			handle := segments[i+1]
			return &Profile{
				URL:       u.Scheme + "://" + u.Host + "/" + kind + "/" + handle + "/",
				Handle:    handle,
				IsCompany: kind == "company",
			}, nil
		}
	}
	return nil, errs.New(errs.ErrorTypeValidation, "invalid LinkedIn URL %q: expected /in/ or /company/", input)
}

// ActivityURL is the page listing the profile's posts
func (p *Profile) ActivityURL() string {
	if p.IsCompany {
		return p.URL + "posts/"
	}
	return p.URL + "recent-activity/all/"
}
