// Package db stores quote history.
// Backends: memory (default), JSON files, PostgreSQL and MySQL.
package db

import (
	"context"
	"sort"
	"strings"
	"time"

	"matali-pricing/core/types"
	apperrors "matali-pricing/internal/errors"
)

// Driver names a quote store backend
type Driver string

const (
	DriverMemory   Driver = "memory"
	DriverFile     Driver = "file"
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
)

// QuoteStore is the quote history interface
type QuoteStore interface {
	// Save stores a new quote
	Save(ctx context.Context, q *types.Quote) error

	// Get retrieves a quote by ID
	Get(ctx context.Context, id string) (*types.Quote, error)

	// List returns quotes matching filter, newest first
	List(ctx context.Context, filter *ListFilter) ([]*types.Quote, error)

	// UpdateStatus records the customer's answer
	UpdateStatus(ctx context.Context, id string, status types.QuoteStatus) (*types.Quote, error)

	// Close releases the backend
	Close() error
}

// ListFilter filters quote listing
type ListFilter struct {
	Customer string
	Status   types.QuoteStatus
	Since    time.Time
	Until    time.Time
	Limit    int
	Offset   int
}

// Open creates a store for driver. dsn is a connection string for SQL drivers
// and a directory for the file driver.
func Open(ctx context.Context, driver Driver, dsn string) (QuoteStore, error) {
	switch driver {
	case "", DriverMemory:
		return NewMemoryQuoteStore(), nil
	case DriverFile:
		return NewFileQuoteStore(dsn)
	case DriverPostgres, DriverMySQL:
		return OpenSQL(ctx, driver, dsn)
	default:
		return nil, apperrors.NotSupported("quote store driver " + string(driver))
	}
}

func (f *ListFilter) matches(q *types.Quote) bool {
	if f == nil {
		return true
	}
	if f.Customer != "" && !strings.EqualFold(f.Customer, q.Customer) {
		return false
	}
	if f.Status != "" && q.Status != f.Status {
		return false
	}
	if !f.Since.IsZero() && q.CreatedAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && q.CreatedAt.After(f.Until) {
		return false
	}
	return true
}

// page sorts newest first and applies offset and limit
func (f *ListFilter) page(quotes []*types.Quote) []*types.Quote {
	sort.SliceStable(quotes, func(i, j int) bool {
		if !quotes[i].CreatedAt.Equal(quotes[j].CreatedAt) {
			return quotes[i].CreatedAt.After(quotes[j].CreatedAt)
		}
		return quotes[i].ID < quotes[j].ID
	})
	if f == nil {
		return quotes
	}
	if f.Offset > 0 {
		if f.Offset >= len(quotes) {
			return nil
		}
		quotes = quotes[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(quotes) {
		quotes = quotes[:f.Limit]
	}
	return quotes
}

func checkNew(q *types.Quote) error {
	if q == nil || q.ID == "" {
		return apperrors.Input("quote id is required")
	}
	if !q.Status.Valid() {
		return apperrors.Newf(apperrors.TypeInput, "invalid quote status %q", q.Status)
	}
	return nil
}

func checkStatus(status types.QuoteStatus) error {
	if !status.Valid() {
		return apperrors.Newf(apperrors.TypeInput,
			"invalid quote status %q (use pending, accepted or rejected)", status)
	}
	return nil
}

func duplicate(id string) error {
	return apperrors.Newf(apperrors.TypeValidation, "quote %s already exists", id).WithContext("quote_id", id)
}
