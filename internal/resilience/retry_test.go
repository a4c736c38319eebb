package resilience

import (
	"context"
	"testing"
	"time"

	clierr "solflow/internal/errors"
)

func TestRetryStopsOnSuccess(t *testing.T) {
	policy := NewRetryPolicy(2, time.Millisecond)
	calls := 0
	err := policy.Do(context.Background(), func() error {
		calls++
		if calls < 2 {
			return clierr.New(clierr.CodeNetwork, "transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestRetryDoesNotRetryTerminalErrors(t *testing.T) {
	policy := NewRetryPolicy(3, time.Millisecond)
	calls := 0
	err := policy.Do(context.Background(), func() error {
		calls++
		return clierr.New(clierr.CodeValidation, "amount too large")
	})
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
	if clierr.CodeOf(err) != clierr.CodeValidation {
		t.Fatalf("unexpected code: %v", clierr.CodeOf(err))
	}
}

func TestRetryExhaustsBudget(t *testing.T) {
	policy := NewRetryPolicy(2, time.Millisecond)
	calls := 0
	err := policy.Do(context.Background(), func() error {
		calls++
		return clierr.New(clierr.CodeNetwork, "timeout")
	})
	if calls != 3 {
		t.Fatalf("expected 3 attempts (1 + 2 retries), got %d", calls)
	}
	if clierr.CodeOf(err) != clierr.CodeNetwork {
		t.Fatalf("unexpected code: %v", clierr.CodeOf(err))
	}
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	policy := NewRetryPolicy(5, 50*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := policy.Do(ctx, func() error {
		calls++
		return clierr.New(clierr.CodeNetwork, "timeout")
	})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if calls > 2 {
		t.Fatalf("expected retries to stop after cancellation, got %d calls", calls)
	}
}
