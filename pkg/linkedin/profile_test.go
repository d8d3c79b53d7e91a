package linkedin

import (
	"testing"

	errs "socialfetch/pkg/errors"
)

func TestNormalizeProfile(t *testing.T) {
	tests := []struct {
		input       string
		wantURL     string
		wantHandle  string
		wantCompany bool
		wantErr     bool
	}{
		{"jdoe", "https://www.linkedin.com/in/jdoe/", "jdoe", false, false},
		{"@jdoe", "https://www.linkedin.com/in/jdoe/", "jdoe", false, false},
		{"https://www.linkedin.com/in/jdoe", "https://www.linkedin.com/in/jdoe/", "jdoe", false, false},
		{"https://www.linkedin.com/in/jdoe/recent-activity/all/?trk=x", "https://www.linkedin.com/in/jdoe/", "jdoe", false, false},
		{"https://linkedin.com/company/acme/posts/", "https://linkedin.com/company/acme/", "acme", true, false},
		{"https://www.linkedin.com/feed/", "", "", false, true},
		{"a/b", "", "", false, true},
		{"", "", "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			p, err := NormalizeProfile(tt.input)
			if tt.wantErr {
				if !errs.Is(err, errs.ErrorTypeValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.URL != tt.wantURL || p.Handle != tt.wantHandle || p.IsCompany != tt.wantCompany {
				t.Errorf("NormalizeProfile(%q) = %+v", tt.input, p)
			}
		})
	}
}

func TestActivityURL(t *testing.T) {
	person := &Profile{URL: "https://www.linkedin.com/in/jdoe/"}
	if got := person.ActivityURL(); got != "https://www.linkedin.com/in/jdoe/recent-activity/all/" {
		t.Errorf("person activity = %s", got)
	}

	company := &Profile{URL: "https://www.linkedin.com/company/acme/", IsCompany: true}
	if got := company.ActivityURL(); got != "https://www.linkedin.com/company/acme/posts/" {
		t.Errorf("company activity = %s", got)
	}
}
