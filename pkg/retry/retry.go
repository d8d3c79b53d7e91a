package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "socialfetch/pkg/errors"
	"socialfetch/pkg/logger"
	"socialfetch/pkg/metrics"
)

// Operation is a function that performs an operation that might need retrying
type Operation func() error

// OperationWithResult is a function that returns a result and might need retrying
type OperationWithResult[T any] func() (T, error)

// SleepFunc blocks for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Config holds retry configuration
type Config struct {
	// MaxRetries is the number of retries after the first attempt.
	// A permanently failing operation runs MaxRetries+1 times.
	MaxRetries int
	// Backoff strategy to use
	Backoff BackoffStrategy
	// RetryIf determines if an error should be retried
	RetryIf func(error) bool
	// OnRetry is called before each retry sleep
	OnRetry func(attempt int, err error, delay time.Duration)
	// Sleep replaces Wait, mainly for tests
	Sleep SleepFunc
	// Context for cancellation
	Context context.Context
	// Logger for retry attempts
	Logger logger.Logger
	// Name identifies the operation in logs
	Name string
}

// NewConfig builds the policy used by the HTTP clients: exponential doubling
// from initialBackoff with up to maxRetries retries.
func NewConfig(ctx context.Context, maxRetries int, initialBackoff time.Duration, log logger.Logger) *Config {
	return &Config{
		MaxRetries: maxRetries,
		Backoff:    NewExponentialBackoff(initialBackoff),
		RetryIf:    DefaultRetryIf,
		Context:    ctx,
		Logger:     log,
	}
}

// DefaultConfig returns a retry configuration with sensible defaults
func DefaultConfig() *Config {
	return NewConfig(context.Background(), 3, 2*time.Second, logger.GetLogger())
}

// DefaultRetryIf retries transient failures: network errors, 429 and 5xx
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	// Client timeouts arrive as typed network errors and are retried
	var apiErr *errs.Error
	if errors.As(err, &apiErr) {
		return errs.IsRetryable(apiErr.Type)
	}

	// Untyped errors are not retried; callers classify transport failures
	return false
}

// Do executes an operation with retry logic
func Do(op Operation, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = DefaultRetryIf
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = Wait
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	maxAttempts := cfg.MaxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; ; attempt++ {
		err := op()
		if err == nil {
			if attempt > 1 {
				log.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"operation": cfg.Name,
					"attempt":   attempt,
				})
			}
			return nil
		}

		if !retryIf(err) {
			return err
		}

		errType := string(errs.TypeOf(err))
		if attempt >= maxAttempts {
			metrics.RetryExhaustedTotal.WithLabelValues(errType).Inc()
			log.ErrorWithFields("max retries exceeded", map[string]interface{}{
				"operation":  cfg.Name,
				"attempts":   attempt,
				"last_error": err.Error(),
			})
			return fmt.Errorf("giving up after %d attempts: %w", attempt, err)
		}

		var delay time.Duration
		if cfg.Backoff != nil {
			delay = cfg.Backoff.NextDelay(attempt)
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}

		metrics.RetriesTotal.WithLabelValues(errType).Inc()
		metrics.RetryBackoffSeconds.WithLabelValues(errType).Observe(delay.Seconds())
		log.WarnWithFields("retrying operation", map[string]interface{}{
			"operation":   cfg.Name,
			"attempt":     attempt,
			"error":       err.Error(),
			"delay_ms":    delay.Milliseconds(),
			"max_retries": cfg.MaxRetries,
		})

		if err := sleep(ctx, delay); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}
	}
}

// DoWithResult executes an operation that returns a result with retry logic
func DoWithResult[T any](op OperationWithResult[T], cfg *Config) (T, error) {
	var result T

	err := Do(func() error {
		var opErr error
		result, opErr = op()
		return opErr
	}, cfg)

	return result, err
}

// WithContext returns a copy of cfg bound to ctx
func (c *Config) WithContext(ctx context.Context) *Config {
	cp := *c
	cp.Context = ctx
	return &cp
}

// WithName returns a copy of cfg with an operation name for logging
func (c *Config) WithName(name string) *Config {
	cp := *c
	cp.Name = name
	return &cp
}
