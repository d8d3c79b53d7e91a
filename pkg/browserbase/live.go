package browserbase

import (
	"context"
	"time"

	"socialfetch/pkg/session"
)

// Live is an open Browserbase session with a connected page
type Live struct {
	Session *Session
	Page    Page

	client     *Client
	disconnect func()
}

// Connector attaches to a session's CDP endpoint; Connect in production
type Connector func(ctx context.Context, connectURL string) (Page, func(), error)

// Open resolves the persistent context through store, starts a session on
// it and connects. Close must be called to release the session.
func (c *Client) Open(ctx context.Context, store *session.Store, connect Connector) (*Live, error) {
	if connect == nil {
		connect = Connect
	}

	contextID, err := c.EnsureContext(ctx, store)
	if err != nil {
		return nil, err
	}

	s, err := c.CreateSession(ctx, contextID)
	if err != nil {
		return nil, err
	}
	c.logger.WithField("session_id", s.ID).Info("Browserbase session created")

	page, disconnect, err := connect(ctx, s.ConnectURL)
	if err != nil {
		c.release(s.ID)
		return nil, err
	}
	return &Live{Session: s, Page: page, client: c, disconnect: disconnect}, nil
}

// Close drops the CDP connection and releases the session. It runs on a
// fresh context so an interrupted run still frees the remote browser.
func (l *Live) Close() error {
	if l.disconnect != nil {
		l.disconnect()
	}
	return l.client.release(l.Session.ID)
}

func (c *Client) release(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c.logger.WithField("session_id", id).Info("Closing Browserbase session")
	if err := c.ReleaseSession(ctx, id); err != nil {
		c.logger.WithError(err).Warn("Failed to release Browserbase session")
		return err
	}
	return nil
}
