package main

import (
	"context"

	"socialfetch/pkg/browserbase"
	"socialfetch/pkg/session"
)

// openBrowser starts a Browserbase session on the persistent context kept in
// sessionFile. reset forgets the stored context first, forcing a fresh login.
// The caller must Close the returned session.
func (a *app) openBrowser(ctx context.Context, sessionFile string, reset bool) (*browserbase.Live, error) {
	cfg := a.cfg
	if err := requireSecret(cfg.Browserbase.APIKey, "BROWSERBASE_API_KEY", "browserbase"); err != nil {
		return nil, err
	}

	hc := a.newClient("browserbase", cfg.Browserbase.Timeout, browserbase.AuthHeaders(cfg.Browserbase.APIKey), cfg.Browserbase.APIKey,
		a.retryPolicy(ctx, cfg.Retry.MaxRetries, cfg.Retry.InitialBackoff))
	client, err := browserbase.NewClient(hc, cfg.Browserbase.BaseURL, cfg.Browserbase.ProjectID, a.log)
	if err != nil {
		return nil, err
	}

	store := session.NewStore(sessionFile, a.log)
	if reset {
		if err := store.Delete(); err != nil {
			return nil, err
		}
	}

	return client.Open(ctx, store, nil)
}

// closeBrowser releases the remote session; failures are already logged
func closeBrowser(live *browserbase.Live) {
	_ = live.Close()
}
