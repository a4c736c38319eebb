package resilience

import (
	"testing"
	"time"
)

func TestBreakerOpensAtThreshold(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)
	for i := 0; i < 2; i++ {
		cb.OnFailure()
	}
	if !cb.Allow() {
		t.Fatal("breaker opened before threshold")
	}
	cb.OnFailure()
	if cb.Allow() {
		t.Fatal("breaker should be open after threshold failures")
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)
	cb.OnFailure()
	cb.OnFailure()
	cb.OnSuccess()
	cb.OnFailure()
	cb.OnFailure()
	if !cb.Allow() {
		t.Fatal("failure count should reset on success")
	}
}

func TestBreakerReopensProbeAfterCooldown(t *testing.T) {
	current := time.Unix(1_700_000_000, 0)
	cb := NewCircuitBreaker(5, 60*time.Second)
	cb.now = func() time.Time { return current }

	for i := 0; i < 5; i++ {
		cb.OnFailure()
	}
	if cb.Allow() {
		t.Fatal("breaker should be open")
	}

	current = current.Add(30 * time.Second)
	if cb.Allow() {
		t.Fatal("breaker should still be open mid cool-down")
	}

	current = current.Add(31 * time.Second)
	if !cb.Allow() {
		t.Fatal("breaker should allow a probe after cool-down")
	}
	// One more failure must not immediately re-open: count was reset.
	cb.OnFailure()
	if !cb.Allow() {
		t.Fatal("a single post-probe failure must not re-open the breaker")
	}
}
