package store

import (
	"context"
	"sync"
)

// MemoryStore keeps purchase history in memory. Suited to tests and demo
// runs where persistence across restarts does not matter.
type MemoryStore struct {
	mu        sync.Mutex
	purchased map[string]bool
	order     []string

	// FailNext makes the next MarkPurchased fail; used to exercise the
	// engine's persistence-failure path in tests.
	FailNext bool
}

// NewMemoryStore creates an empty in-memory purchase store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{purchased: make(map[string]bool)}
}

func (s *MemoryStore) MarkPurchased(_ context.Context, offerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailNext {
		s.FailNext = false
		return errFailNext
	}
	if !s.purchased[offerID] {
		s.purchased[offerID] = true
		s.order = append(s.order, offerID)
	}
	return nil
}

func (s *MemoryStore) HasPurchased(_ context.Context, offerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.purchased[offerID], nil
}

func (s *MemoryStore) ListPurchased(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...), nil
}

var errFailNext = injectedError("injected persistence failure")

type injectedError string

func (e injectedError) Error() string { return string(e) }
