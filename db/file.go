package db

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"matali-pricing/core/types"
	apperrors "matali-pricing/internal/errors"
)

// FileQuoteStore writes one JSON document per quote into a directory
type FileQuoteStore struct {
	dir string
	mu  sync.RWMutex
}

// NewFileQuoteStore creates dir if needed
func NewFileQuoteStore(dir string) (*FileQuoteStore, error) {
	if dir == "" {
		dir = "data/quotes"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, apperrors.Storage("create quote directory", err)
	}
	return &FileQuoteStore{dir: dir}, nil
}

func (s *FileQuoteStore) path(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\.`) {
		return "", apperrors.Newf(apperrors.TypeInput, "invalid quote id %q", id)
	}
	return filepath.Join(s.dir, id+".json"), nil
}

func (s *FileQuoteStore) Save(ctx context.Context, q *types.Quote) error {
	if err := checkNew(q); err != nil {
		return err
	}
	path, err := s.path(q.ID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(path); err == nil {
		return duplicate(q.ID)
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	return s.write(path, q)
}

func (s *FileQuoteStore) write(path string, q *types.Quote) error {
	data, err := json.MarshalIndent(q, "", "  ")
	if err != nil {
		return apperrors.Storage("marshal quote", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return apperrors.Storage("write quote", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return apperrors.Storage("write quote", err)
	}
	return nil
}

func (s *FileQuoteStore) read(path string) (*types.Quote, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var q types.Quote
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, apperrors.Storage("decode quote "+filepath.Base(path), err)
	}
	return &q, nil
}

func (s *FileQuoteStore) Get(ctx context.Context, id string) (*types.Quote, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, err := s.read(path)
	if os.IsNotExist(err) {
		return nil, apperrors.NotFound("quote", id)
	}
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (s *FileQuoteStore) List(ctx context.Context, filter *ListFilter) ([]*types.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, apperrors.Storage("read quote directory", err)
	}

	var out []*types.Quote
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		q, err := s.read(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		if filter.matches(q) {
			out = append(out, q)
		}
	}
	return filter.page(out), nil
}

func (s *FileQuoteStore) UpdateStatus(ctx context.Context, id string, status types.QuoteStatus) (*types.Quote, error) {
	if err := checkStatus(status); err != nil {
		return nil, err
	}
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	q, err := s.read(path)
	if os.IsNotExist(err) {
		return nil, apperrors.NotFound("quote", id)
	}
	if err != nil {
		return nil, err
	}
	q.Status = status
	if err := s.write(path, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *FileQuoteStore) Close() error {
	return nil
}
