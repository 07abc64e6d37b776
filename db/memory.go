package db

import (
	"context"
	"sync"
	"time"

	"matali-pricing/core/types"
	apperrors "matali-pricing/internal/errors"
)

// MemoryQuoteStore keeps quotes in memory. Stored quotes are copied on the way
// in and out so callers cannot mutate history.
type MemoryQuoteStore struct {
	mu     sync.RWMutex
	quotes map[string]*types.Quote
}

// NewMemoryQuoteStore creates an empty store
func NewMemoryQuoteStore() *MemoryQuoteStore {
	return &MemoryQuoteStore{quotes: make(map[string]*types.Quote)}
}

func (s *MemoryQuoteStore) Save(ctx context.Context, q *types.Quote) error {
	if err := checkNew(q); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.quotes[q.ID]; exists {
		return duplicate(q.ID)
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	s.quotes[q.ID] = cloneQuote(q)
	return nil
}

func (s *MemoryQuoteStore) Get(ctx context.Context, id string) (*types.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.quotes[id]
	if !ok {
		return nil, apperrors.NotFound("quote", id)
	}
	return cloneQuote(q), nil
}

func (s *MemoryQuoteStore) List(ctx context.Context, filter *ListFilter) ([]*types.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*types.Quote
	for _, q := range s.quotes {
		if filter.matches(q) {
			out = append(out, cloneQuote(q))
		}
	}
	return filter.page(out), nil
}

func (s *MemoryQuoteStore) UpdateStatus(ctx context.Context, id string, status types.QuoteStatus) (*types.Quote, error) {
	if err := checkStatus(status); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.quotes[id]
	if !ok {
		return nil, apperrors.NotFound("quote", id)
	}
	q.Status = status
	return cloneQuote(q), nil
}

func (s *MemoryQuoteStore) Close() error {
	return nil
}

func cloneQuote(q *types.Quote) *types.Quote {
	c := *q
	c.Lines = append([]types.QuoteLine(nil), q.Lines...)
	return &c
}
