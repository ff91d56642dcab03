package client

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPolicyStopsOnNonRetriable(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return &StatusError{StatusCode: 422}
	})

	if calls != 1 {
		t.Fatalf("4xx must never be retried, got %d attempts", calls)
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != 422 {
		t.Fatalf("expected status error 422, got %v", err)
	}
}

func TestPolicyRetriesServerErrors(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &StatusError{StatusCode: 503}
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestPolicyExhaustsAttempts(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return &StatusError{StatusCode: 500}
	})

	if calls != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", calls)
	}
	if err == nil {
		t.Fatal("expected final error after exhaustion")
	}
}

func TestPolicyHonorsContextCancellation(t *testing.T) {
	p := Policy{MaxAttempts: 5, BaseDelay: time.Second, MaxDelay: 10 * time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := p.Do(ctx, func(ctx context.Context) error {
		calls++
		return &StatusError{StatusCode: 500}
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 attempt before cancellation, got %d", calls)
	}
}

func TestBackoffStaysWithinJitterBounds(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 10 * time.Second}

	for attempt := 1; attempt <= 10; attempt++ {
		ceiling := p.BaseDelay << (attempt - 1)
		if ceiling > p.MaxDelay || ceiling <= 0 {
			ceiling = p.MaxDelay
		}
		for i := 0; i < 50; i++ {
			d := p.Backoff(attempt)
			if d < 0 || d > ceiling {
				t.Fatalf("attempt %d: backoff %v outside [0, %v]", attempt, d, ceiling)
			}
		}
	}
}

func TestRetriableErrorClassification(t *testing.T) {
	if RetriableError(&StatusError{StatusCode: 400}) {
		t.Fatal("400 must not be retriable")
	}
	if RetriableError(&StatusError{StatusCode: 404}) {
		t.Fatal("404 must not be retriable")
	}
	if !RetriableError(&StatusError{StatusCode: 500}) {
		t.Fatal("500 must be retriable")
	}
	if !RetriableError(&StatusError{StatusCode: 503}) {
		t.Fatal("503 must be retriable")
	}
	if !RetriableError(context.DeadlineExceeded) {
		t.Fatal("timeouts must be retriable")
	}
	if RetriableError(errors.New("malformed body")) {
		t.Fatal("unclassified errors must not be retriable")
	}
}
