package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// Key identifies a cached API response.
type Key struct {
	// Service is the upstream API, e.g. "x" or "arxiv"
	Service string
	// Method is the HTTP method; GET when empty
	Method string
	// URL is the request URL without its query string
	URL string
	// Query holds the request parameters
	Query url.Values
	// Credential scopes entries to one API token without storing it
	Credential string
}

// String generates a deterministic key of the form
// socialfetch:<service>:<method>:<url>?<sorted query>[:cred=<hash>]
func (k Key) String() string {
	method := k.Method
	if method == "" {
		method = "GET"
	}

	target := strings.TrimRight(k.URL, "/")
	if len(k.Query) > 0 {
		// Encode sorts by parameter name
		target += "?" + k.Query.Encode()
	}

	parts := []string{"socialfetch", k.Service, strings.ToUpper(method), target}
	if k.Credential != "" {
		sum := sha256.Sum256([]byte(k.Credential))
		parts = append(parts, "cred="+hex.EncodeToString(sum[:8]))
	}
	return strings.Join(parts, ":")
}
