package httputil

import (
	"context"
	"errors"
	"testing"
	"time"

	errs "github.com/matzehuels/knowmap/pkg/errors"
)

func TestRetry(t *testing.T) {
	transient := Retryable(errors.New("502"))
	permanent := errors.New("404")

	tests := []struct {
		name      string
		results   []error
		wantCalls int
		wantErr   error
	}{
		{"success", []error{nil}, 1, nil},
		{"recovers", []error{transient, transient, nil}, 3, nil},
		{"permanent", []error{permanent, nil}, 1, permanent},
		{"exhausted", []error{transient, transient, transient}, 3, transient},
		{"rateLimited", []error{&errs.RateLimitedError{}, nil}, 2, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(context.Background(), 3, time.Millisecond, func() error {
				e := tt.results[calls]
				calls++
				return e
			})
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if !errors.Is(err, tt.wantErr) && err != tt.wantErr {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetryCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, 5, time.Hour, func() error {
		calls++
		cancel()
		return Retryable(errors.New("timeout"))
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryDelay(t *testing.T) {
	if d, ok := retryDelay(&errs.RateLimitedError{RetryAfter: 2}, time.Second); !ok || d != 2*time.Second {
		t.Errorf("RetryAfter delay = %v, %v", d, ok)
	}
	if _, ok := retryDelay(errors.New("x"), time.Second); ok {
		t.Error("plain errors should not be retried")
	}
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should be nil")
	}
}
