// Package retry wraps a single call with exponential backoff.
//
// A permanently failing operation runs MaxRetries+1 times. Before retry i the
// wrapper sleeps BaseDelay * 2^(i-1), so an initial backoff of 2s yields sleeps
// of 2s, 4s, 8s and so on. Only network errors, 429 and 5xx responses (typed
// errors from pkg/errors) are retried by default.
//
//	cfg := retry.NewConfig(ctx, 3, 2*time.Second, log)
//	body, err := retry.DoWithResult(func() ([]byte, error) {
//		return fetchPage(ctx, cursor)
//	}, cfg)
package retry
