// Package retry implements the shared call-with-backoff policy used for every
// outbound API. Only rate-limit errors are retried; anything else propagates
// on the first attempt.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/consultorio-ai/citabot/pkg/logging"
)

// Exhaustion decides what happens once the attempt ceiling is reached while
// still rate limited.
type Exhaustion int

const (
	// Fail surfaces the last rate-limit error to the caller.
	Fail Exhaustion = iota
	// Suppress logs the exhaustion and reports success. Used for outbound
	// messages: a reply that cannot be delivered must not fail the webhook
	// task that already acknowledged the inbound request.
	Suppress
)

// Policy parameterizes Do. Delay before attempt i (zero-based) is
// BaseDelay * 2^i.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	OnExhausted Exhaustion

	// Sleep overrides the backoff sleep, for tests. Nil uses a
	// context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// RateLimitError marks an upstream throttling response. Callers wrap 429-class
// failures in it so Do knows the attempt may be retried.
type RateLimitError struct {
	Err error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: %v", e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// RateLimited wraps err as retryable. Nil stays nil.
func RateLimited(err error) error {
	if err == nil {
		return nil
	}
	return &RateLimitError{Err: err}
}

// IsRateLimited reports whether err carries a RateLimitError anywhere in its
// chain.
func IsRateLimited(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// Do invokes fn until it succeeds, returns a non-retryable error, or the
// rate-limit attempt ceiling is exhausted.
func Do(ctx context.Context, p Policy, logger *logging.Logger, op string, fn func(ctx context.Context) error) error {
	if logger == nil {
		logger = logging.Default()
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = defaultSleep
	}

	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !IsRateLimited(err) {
			return err
		}
		lastErr = err

		if attempt == p.MaxAttempts-1 {
			break
		}
		delay := p.BaseDelay << uint(attempt)
		logger.Warn("rate limited, backing off",
			"op", op,
			"attempt", attempt+1,
			"max_attempts", p.MaxAttempts,
			"delay", delay.String(),
		)
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}

	if p.OnExhausted == Suppress {
		logger.Error("rate limit retries exhausted, dropping call",
			"op", op,
			"attempts", p.MaxAttempts,
			"error", lastErr,
		)
		return nil
	}
	return fmt.Errorf("retry: %s exhausted %d attempts: %w", op, p.MaxAttempts, lastErr)
}

func defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
