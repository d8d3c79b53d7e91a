package auth

import (
	"fmt"
	"io"
	"strings"
)

var guides = map[string][]string{
	"x": {
		"Create a project and app at https://developer.x.com/en/portal/dashboard",
		"Open the app's 'Keys and tokens' tab",
		"Generate the Bearer Token (app-only auth) and paste it below",
		"Reading user tweets needs at least the Basic access tier",
	},
	"serp": {
		"Ask the operator of your SERP proxy for an API key or bearer token",
		"Set GOOGLE_SERP_BASE_URL to the proxy root, e.g. https://serp.example.com",
		"If the proxy expects a header other than X-API-Key, set GOOGLE_SERP_API_KEY_HEADER",
	},
	"browserbase": {
		"Sign in at https://www.browserbase.com and open Settings",
		"Copy the API key and the project ID",
		"Export BROWSERBASE_PROJECT_ID; the API key is stored here",
	},
	"linkedin": {
		"Use a dedicated account; automated browsing may trigger checkpoints",
		"Export LINKEDIN_EMAIL; the password is stored here",
		"For authenticator-app 2FA, store the base32 setup key as totp_secret",
	},
}

// ShowGuide writes setup instructions for a service
func ShowGuide(w io.Writer, service string) {
	steps, ok := guides[service]
	if !ok {
		return
	}

	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintf(w, "Setting up %s credentials\n", service)
	fmt.Fprintln(w, strings.Repeat("=", 72))
	for i, step := range steps {
		fmt.Fprintf(w, "  %d. %s\n", i+1, step)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Secrets are kept in the system keychain when available, otherwise in an")
	fmt.Fprintln(w, "encrypted file under your config directory. Never share them.")
	fmt.Fprintln(w)
}
