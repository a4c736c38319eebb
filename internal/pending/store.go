// Package pending holds the at-most-one prepared action per owner that
// is waiting on a confirmation. The store is the single source of truth
// for what a "yes" refers to.
package pending

import (
	"context"
	"sync"
	"time"

	"solflow/internal/intent"
	"solflow/internal/quote"
)

// Action is a prepared operation awaiting confirm or cancel. Exactly
// one of Transfer, Swap, CrossChain is set, matching Kind.
type Action struct {
	ID         string
	Owner      string
	Kind       intent.Kind
	Transfer   *intent.Transfer
	Swap       *intent.Swap
	CrossChain *intent.CrossChainSwap
	Quote      *quote.Quote
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

func (a *Action) expiredAt(now time.Time) bool {
	return !now.Before(a.ExpiresAt)
}

// TakeResult distinguishes the three outcomes of a confirm-time claim.
type TakeResult int

const (
	TakeNone TakeResult = iota
	TakeExpired
	TakeOK
)

// Store is an owner-keyed map of pending actions. A new Put for an
// owner replaces whatever was there.
type Store struct {
	mu      sync.Mutex
	actions map[string]*Action
	now     func() time.Time
}

func NewStore() *Store {
	return &Store{
		actions: make(map[string]*Action),
		now:     time.Now,
	}
}

func (s *Store) Put(a *Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions[a.Owner] = a
}

// Get returns the owner's pending action. Expired entries are removed
// and reported as absent.
func (s *Store) Get(owner string) (*Action, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.actions[owner]
	if !ok {
		return nil, false
	}
	if a.expiredAt(s.now()) {
		delete(s.actions, owner)
		return nil, false
	}
	return a, true
}

func (s *Store) Clear(owner string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.actions[owner]
	if !ok {
		return false
	}
	delete(s.actions, owner)
	return !a.expiredAt(s.now())
}

// Take atomically removes and returns the owner's pending action. An
// entry past its deadline is removed but reported as TakeExpired so the
// caller can explain why the confirmation no longer applies. Under
// concurrent confirms exactly one caller gets TakeOK.
func (s *Store) Take(owner string) (*Action, TakeResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.actions[owner]
	if !ok {
		return nil, TakeNone
	}
	delete(s.actions, owner)
	if a.expiredAt(s.now()) {
		return a, TakeExpired
	}
	return a, TakeOK
}

// Sweep drops every expired entry and reports how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for owner, a := range s.actions {
		if a.expiredAt(now) {
			delete(s.actions, owner)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep on the given interval until ctx is done.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
}
