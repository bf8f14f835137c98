package receipt

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store for development mode and tests. The
// mutex serializes writes to a given record, so the conditional update in
// UpdateReview is atomic.
type MemoryStore struct {
	mu       sync.RWMutex
	receipts map[string]*DecisionReceipt
	order    []string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{receipts: make(map[string]*DecisionReceipt)}
}

// Create persists a copy of the receipt.
func (s *MemoryStore) Create(ctx context.Context, r *DecisionReceipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.receipts[r.ID]; exists {
		return &PersistenceError{Op: "create", Err: fmt.Errorf("duplicate id %s", r.ID)}
	}
	s.receipts[r.ID] = r.Clone()
	s.order = append(s.order, r.ID)
	return nil
}

// GetByID returns a copy of the receipt or ErrNotFound.
func (s *MemoryStore) GetByID(ctx context.Context, id string) (*DecisionReceipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.receipts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

// List returns up to limit receipts, most recent first.
func (s *MemoryStore) List(ctx context.Context, limit int) ([]DecisionReceipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]DecisionReceipt, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.receipts[id].Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListAll returns every receipt in creation order.
func (s *MemoryStore) ListAll(ctx context.Context) ([]DecisionReceipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]DecisionReceipt, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.receipts[id].Clone())
	}
	return out, nil
}

// UpdateReview applies the terminal status and review metadata iff the
// receipt is still PENDING.
func (s *MemoryStore) UpdateReview(ctx context.Context, id string, status ApprovalStatus, meta ReviewMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.receipts[id]
	if !ok {
		return ErrNotFound
	}
	if r.ApprovalStatus != StatusPending {
		return ErrInvalidTransition
	}
	r.ApprovalStatus = status
	r.ReviewMetadata = &meta
	return nil
}

var _ Store = (*MemoryStore)(nil)
