package httputil

import (
	"context"
	"errors"
	"time"

	errs "github.com/matzehuels/knowmap/pkg/errors"
)

// RetryableError marks a transient failure (network error, 5xx response)
// that [Retry] should attempt again.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err as a [RetryableError]. A nil err stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// Policy controls [Policy.Do].
type Policy struct {
	Attempts int           // total tries, at least 1
	Delay    time.Duration // wait before the second try
	MaxDelay time.Duration // cap on the doubled delay; 0 means uncapped
}

// DefaultPolicy is three attempts starting at one second.
var DefaultPolicy = Policy{Attempts: 3, Delay: time.Second, MaxDelay: 10 * time.Second}

// Do runs fn until it succeeds, returns a non-retryable error, or the
// attempts run out. The delay doubles after each failure. A
// [errs.RateLimitedError] carrying RetryAfter is retried after that many
// seconds instead. Returns the last error, or ctx.Err() if cancelled while
// waiting.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := max(p.Attempts, 1)
	delay := p.Delay
	var lastErr error

	for i := range attempts {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		wait, ok := retryDelay(lastErr, delay)
		if !ok {
			return lastErr
		}
		if i == attempts-1 {
			break
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return lastErr
}

// Retry runs fn with attempts tries and an initial delay.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	return Policy{Attempts: attempts, Delay: delay}.Do(ctx, fn)
}

// RetryWithBackoff runs fn under [DefaultPolicy].
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return DefaultPolicy.Do(ctx, fn)
}

func retryDelay(err error, delay time.Duration) (time.Duration, bool) {
	var rl *errs.RateLimitedError
	if errors.As(err, &rl) {
		if rl.RetryAfter > 0 {
			return time.Duration(rl.RetryAfter) * time.Second, true
		}
		return delay, true
	}
	return delay, errors.As(err, new(*RetryableError))
}
