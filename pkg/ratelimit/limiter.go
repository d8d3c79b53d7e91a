package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter paces outbound requests
type Limiter interface {
	// Allow reports whether a request may proceed now and consumes a slot if so
	Allow() bool
	// Wait blocks until a request may proceed or ctx is done
	Wait(ctx context.Context) error
	// Reset forgets previous requests
	Reset()
}

// Interval enforces a minimum gap between consecutive requests. The first
// request is never delayed, so a single-page fetch pays no pacing cost.
type Interval struct {
	gap  time.Duration
	last time.Time
	mu   sync.Mutex
	now  func() time.Time
}

// NewInterval creates a pacer that spaces requests gap apart
func NewInterval(gap time.Duration) *Interval {
	return &Interval{gap: gap, now: time.Now}
}

// Allow checks if the gap since the last request has elapsed
func (iv *Interval) Allow() bool {
	iv.mu.Lock()
	defer iv.mu.Unlock()

	now := iv.now()
	if iv.last.IsZero() || now.Sub(iv.last) >= iv.gap {
		iv.last = now
		return true
	}
	return false
}

// Wait sleeps out the remainder of the gap
func (iv *Interval) Wait(ctx context.Context) error {
	iv.mu.Lock()
	var remaining time.Duration
	if !iv.last.IsZero() {
		remaining = iv.gap - iv.now().Sub(iv.last)
	}
	iv.mu.Unlock()

	if remaining > 0 {
		if err := sleep(ctx, remaining); err != nil {
			return err
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}

	iv.mu.Lock()
	iv.last = iv.now()
	iv.mu.Unlock()
	return nil
}

// Reset lets the next request through immediately
func (iv *Interval) Reset() {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	iv.last = time.Time{}
}

// Gap returns the configured spacing
func (iv *Interval) Gap() time.Duration {
	return iv.gap
}

// TokenBucket implements a token bucket rate limiter
type TokenBucket struct {
	capacity     int           // Maximum number of tokens
	tokens       int           // Current number of tokens
	refillPeriod time.Duration // Period after which bucket is refilled
	lastRefill   time.Time     // Last time the bucket was refilled
	mu           sync.Mutex
}

// NewTokenBucket creates a new token bucket rate limiter
func NewTokenBucket(capacity int, refillPeriod time.Duration) *TokenBucket {
	if capacity < 1 {
		capacity = 1
	}
	return &TokenBucket{
		capacity:     capacity,
		tokens:       capacity,
		refillPeriod: refillPeriod,
		lastRefill:   time.Now(),
	}
}

// Allow takes a token if one is available
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()

	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available or ctx is done
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for !tb.Allow() {
		tb.mu.Lock()
		untilRefill := tb.refillPeriod - time.Since(tb.lastRefill)
		tb.mu.Unlock()

		if untilRefill <= 0 {
			untilRefill = 10 * time.Millisecond
		}
		if err := sleep(ctx, untilRefill); err != nil {
			return err
		}
	}
	return nil
}

// Reset refills the bucket
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = tb.capacity
	tb.lastRefill = time.Now()
}

func (tb *TokenBucket) refill() {
	now := time.Now()
	if now.Sub(tb.lastRefill) >= tb.refillPeriod {
		tb.tokens = tb.capacity
		tb.lastRefill = now
	}
}

// Unlimited never blocks
type Unlimited struct{}

func (Unlimited) Allow() bool                    { return true }
func (Unlimited) Wait(ctx context.Context) error { return ctx.Err() }
func (Unlimited) Reset()                         {}

// ForDelay returns an Interval for positive gaps and Unlimited otherwise
func ForDelay(gap time.Duration) Limiter {
	if gap <= 0 {
		return Unlimited{}
	}
	return NewInterval(gap)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
