// ABOUTME: Repository contracts for durable credential storage
// ABOUTME: Exactly one TokenRecord is current at any moment; Save replaces it atomically

package repository

import (
	"context"
	"errors"
	"sync"

	"cafe24-admin/models"
)

// ErrTokenNotFound is returned when no credential record has been stored yet,
// or the stored record is unreadable. Callers must run the out-of-band
// authorization flow to recover.
var ErrTokenNotFound = errors.New("token record not found")

// TokenRepository stores the single TokenRecord for this process.
type TokenRepository interface {
	Load(ctx context.Context) (*models.TokenRecord, error)
	Save(ctx context.Context, record *models.TokenRecord) error
}

// InMemoryTokenRepository keeps the record in process memory. Used by tests
// and as a fallback when no durable path is configured.
type InMemoryTokenRepository struct {
	mu     sync.RWMutex
	record *models.TokenRecord
}

// NewInMemoryTokenRepository creates an empty in-memory store.
func NewInMemoryTokenRepository() *InMemoryTokenRepository {
	return &InMemoryTokenRepository{}
}

// Load returns the stored record or ErrTokenNotFound.
func (r *InMemoryTokenRepository) Load(ctx context.Context) (*models.TokenRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.record == nil {
		return nil, ErrTokenNotFound
	}
	return r.record.Clone(), nil
}

// Save replaces the stored record.
func (r *InMemoryTokenRepository) Save(ctx context.Context, record *models.TokenRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record = record.Clone()
	return nil
}
