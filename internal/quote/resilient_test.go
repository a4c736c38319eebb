package quote

import (
	"context"
	"testing"
	"time"

	clierr "solflow/internal/errors"
	"solflow/internal/resilience"
)

type scriptedProvider struct {
	calls int
	fn    func(call int) (Quote, error)
}

func (s *scriptedProvider) Quote(_ context.Context, _ Request) (Quote, error) {
	s.calls++
	return s.fn(s.calls)
}

func TestResilientRetriesTransientFailures(t *testing.T) {
	provider := &scriptedProvider{fn: func(call int) (Quote, error) {
		if call < 3 {
			return Quote{}, clierr.New(clierr.CodeNetwork, "timeout")
		}
		return Quote{Provider: "jupiter"}, nil
	}}
	r := NewResilient(provider,
		resilience.NewRetryPolicy(2, time.Millisecond),
		resilience.NewCircuitBreaker(5, time.Minute), nil)

	got, err := r.Quote(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Quote failed: %v", err)
	}
	if got.Provider != "jupiter" {
		t.Fatalf("unexpected quote: %+v", got)
	}
	if provider.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", provider.calls)
	}
}

func TestResilientSurfacesQuoteUnavailableOnExhaustion(t *testing.T) {
	provider := &scriptedProvider{fn: func(int) (Quote, error) {
		return Quote{}, clierr.New(clierr.CodeNetwork, "timeout")
	}}
	r := NewResilient(provider,
		resilience.NewRetryPolicy(2, time.Millisecond),
		resilience.NewCircuitBreaker(5, time.Minute), nil)

	_, err := r.Quote(context.Background(), Request{})
	if clierr.CodeOf(err) != clierr.CodeQuoteUnavailable {
		t.Fatalf("unexpected code: %v", clierr.CodeOf(err))
	}
	if provider.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", provider.calls)
	}
}

func TestResilientPassesThroughTerminalErrors(t *testing.T) {
	provider := &scriptedProvider{fn: func(int) (Quote, error) {
		return Quote{}, clierr.New(clierr.CodeUnsupported, "pair not supported")
	}}
	r := NewResilient(provider,
		resilience.NewRetryPolicy(2, time.Millisecond),
		resilience.NewCircuitBreaker(5, time.Minute), nil)

	_, err := r.Quote(context.Background(), Request{})
	if clierr.CodeOf(err) != clierr.CodeUnsupported {
		t.Fatalf("unexpected code: %v", clierr.CodeOf(err))
	}
	if provider.calls != 1 {
		t.Fatalf("terminal errors must not retry, got %d calls", provider.calls)
	}
}

// Mirrors the breaker lifecycle: repeated provider failures open the
// breaker, open-breaker calls never reach the provider, and after the
// cool-down the next call probes the network again.
func TestResilientBreakerLifecycle(t *testing.T) {
	provider := &scriptedProvider{fn: func(int) (Quote, error) {
		return Quote{}, clierr.New(clierr.CodeNetwork, "unreachable")
	}}
	r := NewResilient(provider,
		resilience.NewRetryPolicy(0, time.Millisecond),
		resilience.NewCircuitBreaker(5, 50*time.Millisecond), nil)

	for i := 0; i < 6; i++ {
		if _, err := r.Quote(context.Background(), Request{}); err == nil {
			t.Fatal("expected failure")
		}
	}
	// Breaker opened at the 5th failure; the 6th call short-circuited.
	if provider.calls != 5 {
		t.Fatalf("expected 5 provider calls before short-circuit, got %d", provider.calls)
	}

	time.Sleep(60 * time.Millisecond)
	if _, err := r.Quote(context.Background(), Request{}); err == nil {
		t.Fatal("expected failure")
	}
	if provider.calls != 6 {
		t.Fatalf("expected a probe call after cool-down, got %d calls", provider.calls)
	}
}
