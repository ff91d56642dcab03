package client

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"time"
)

// Policy is a composable retry policy: bounded attempts, exponential backoff
// with full jitter, and a retriable predicate. It is independent of the HTTP
// call it wraps so the backoff behavior can be tested on its own.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Retriable decides whether an error is worth another attempt.
	// Defaults to RetriableError when nil.
	Retriable func(error) bool
	// rand is the jitter source; tests may seed it for reproducibility.
	rand *rand.Rand
}

// DefaultPolicy returns the extraction service retry policy: 3 attempts,
// 1s base delay, 10s cap.
func DefaultPolicy(maxAttempts int) Policy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return Policy{
		MaxAttempts: maxAttempts,
		BaseDelay:   time.Second,
		MaxDelay:    10 * time.Second,
	}
}

// Do runs fn until it succeeds, the attempts are exhausted, a non-retriable
// error occurs, or the context is done. The last error is returned.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	retriable := p.Retriable
	if retriable == nil {
		retriable = RetriableError
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !retriable(lastErr) {
			return lastErr
		}
		if attempt == p.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Backoff(attempt)):
		}
	}

	return lastErr
}

// Backoff returns the jittered delay before the next attempt: a uniformly
// random duration in [0, min(MaxDelay, BaseDelay*2^(attempt-1))].
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	ceiling := p.BaseDelay << (attempt - 1)
	if ceiling > p.MaxDelay || ceiling <= 0 {
		ceiling = p.MaxDelay
	}
	if ceiling <= 0 {
		return 0
	}

	if p.rand != nil {
		return time.Duration(p.rand.Int63n(int64(ceiling) + 1))
	}
	return time.Duration(rand.Int63n(int64(ceiling) + 1))
}

// StatusError reports a non-2xx response from the extraction service.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("extraction service returned status %d", e.StatusCode)
}

// RetriableError reports whether an extraction failure is transient: network
// errors, timeouts, and 5xx responses. 4xx responses are permanent and
// propagate immediately.
func RetriableError(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// Everything else (malformed bodies, cancellation) is permanent.
	return false
}
