// Package browserbase manages Browserbase cloud browser contexts and
// sessions and drives the remote browser over CDP.
package browserbase

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	errs "socialfetch/pkg/errors"
	"socialfetch/pkg/httpclient"
	"socialfetch/pkg/logger"
	"socialfetch/pkg/session"
)

// DefaultBaseURL is the Browserbase REST API root
const DefaultBaseURL = "https://api.browserbase.com"

// Context is a persistent browser profile (cookies, storage)
type Context struct {
	ID        string `json:"id"`
	ProjectID string `json:"projectId,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// Session is a running remote browser
type Session struct {
	ID         string `json:"id"`
	Status     string `json:"status,omitempty"`
	ConnectURL string `json:"connectUrl"`
	ProjectID  string `json:"projectId,omitempty"`
}

type contextSettings struct {
	ID      string `json:"id"`
	Persist bool   `json:"persist"`
}

type browserSettings struct {
	Context *contextSettings `json:"context,omitempty"`
}

type createSessionRequest struct {
	ProjectID       string          `json:"projectId"`
	BrowserSettings browserSettings `json:"browserSettings"`
}

type updateSessionRequest struct {
	ProjectID string `json:"projectId"`
	Status    string `json:"status"`
}

// Client calls the Browserbase REST API
type Client struct {
	http      *httpclient.Client
	baseURL   string
	projectID string
	logger    logger.Logger
}

// AuthHeaders returns the API key header
func AuthHeaders(apiKey string) map[string]string {
	return map[string]string{"X-BB-API-Key": apiKey}
}

// NewClient wraps an httpclient that carries AuthHeaders. baseURL is the API
// root; a trailing /v1 is dropped since every path already carries it.
func NewClient(http *httpclient.Client, baseURL, projectID string, log logger.Logger) (*Client, error) {
	if projectID == "" {
		return nil, errs.New(errs.ErrorTypeAuth, "BROWSERBASE_PROJECT_ID must be set")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Client{
		http:      http,
		baseURL:   strings.TrimSuffix(strings.TrimRight(baseURL, "/"), "/v1"),
		projectID: projectID,
		logger:    log,
	}, nil
}

// CreateContext makes a new persistent context
func (c *Client) CreateContext(ctx context.Context) (*Context, error) {
	var out Context
	body := map[string]string{"projectId": c.projectID}
	if err := c.http.PostJSON(ctx, c.baseURL+"/v1/contexts", body, &out); err != nil {
		return nil, fmt.Errorf("create context: %w", err)
	}
	if out.ID == "" {
		return nil, errs.New(errs.ErrorTypeParsing, "create context: response has no id")
	}
	return &out, nil
}

// GetContext fetches a context by id; unknown ids give a not_found error
func (c *Client) GetContext(ctx context.Context, id string) (*Context, error) {
	var out Context
	if err := c.http.GetJSON(ctx, c.baseURL+"/v1/contexts/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateSession starts a browser bound to contextID with persist enabled
func (c *Client) CreateSession(ctx context.Context, contextID string) (*Session, error) {
	req := createSessionRequest{ProjectID: c.projectID}
	if contextID != "" {
		req.BrowserSettings.Context = &contextSettings{ID: contextID, Persist: true}
	}

	var out Session
	if err := c.http.PostJSON(ctx, c.baseURL+"/v1/sessions", req, &out); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if out.ConnectURL == "" {
		return nil, errs.New(errs.ErrorTypeParsing, "create session: response has no connectUrl")
	}
	return &out, nil
}

// ReleaseSession asks Browserbase to shut the session down
func (c *Client) ReleaseSession(ctx context.Context, id string) error {
	req := updateSessionRequest{ProjectID: c.projectID, Status: "REQUEST_RELEASE"}
	if err := c.http.PostJSON(ctx, c.baseURL+"/v1/sessions/"+url.PathEscape(id), req, nil); err != nil {
		return fmt.Errorf("release session %s: %w", id, err)
	}
	return nil
}

// EnsureContext reuses the context saved in store while Browserbase still
// knows it, otherwise creates one and saves its id.
func (c *Client) EnsureContext(ctx context.Context, store *session.Store) (string, error) {
	id, err := store.Load()
	if err != nil {
		return "", err
	}

	if id != "" {
		_, err := c.GetContext(ctx, id)
		if err == nil {
			c.logger.WithField("context_id", id).Info("Using saved context (preserves login session)")
			return id, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		c.logger.WithField("context_id", id).WithError(err).Warn("Saved context no longer valid")
	}

	created, err := c.CreateContext(ctx)
	if err != nil {
		return "", err
	}
	if err := store.Save(created.ID); err != nil {
		return "", err
	}
	c.logger.WithField("context_id", created.ID).Info("New persistent context created")
	return created.ID, nil
}
