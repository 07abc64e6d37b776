// Package pricing - Tier table store
// Tables are never modified in place. A reload builds a new table and swaps
// the pointer, so readers see either the old table or the new one.
package pricing

import (
	"sync/atomic"
	"time"

	"matali-pricing/core/determinism"
	apperrors "matali-pricing/internal/errors"
)

// Snapshot is a loaded table plus where and when it came from
type Snapshot struct {
	Table    *TierTable
	Source   string
	LoadedAt time.Time
}

// Hash returns the table's content hash
func (s *Snapshot) Hash() determinism.ContentHash {
	return s.Table.Hash()
}

// Store holds the current tier table
type Store struct {
	current atomic.Pointer[Snapshot]
	version atomic.Int64
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{}
}

// NewStoreWith creates a store already holding table
func NewStoreWith(table *TierTable, source string) *Store {
	s := &Store{}
	s.Swap(table, source)
	return s
}

// Swap installs table and returns the previous snapshot (nil on first load)
func (s *Store) Swap(table *TierTable, source string) *Snapshot {
	next := &Snapshot{Table: table, Source: source, LoadedAt: time.Now().UTC()}
	prev := s.current.Swap(next)
	s.version.Add(1)
	return prev
}

// Current returns the installed snapshot or nil
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Table returns the installed table, or an error when nothing is loaded yet
func (s *Store) Table() (*TierTable, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, apperrors.NoTable()
	}
	return snap.Table, nil
}

// Version counts successful swaps
func (s *Store) Version() int64 {
	return s.version.Load()
}
