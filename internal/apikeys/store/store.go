package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/apikeys/internal/apikeys/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. Repositories hang off the store so a Tx can hand out the
// same repositories bound to the transaction, and nobody can start a
// transaction inside one by accident.
type Store interface {
	APIKeys() APIKeys

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error, the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type APIKeys interface {
	// Create inserts a new key. A clashing id or prefix yields ErrAlreadyExists.
	Create(ctx context.Context, k domain.APIKey) error

	GetByID(ctx context.Context, id string) (domain.APIKey, error)

	// GetByPrefix is the validation lookup.
	GetByPrefix(ctx context.Context, prefix string) (domain.APIKey, error)

	// Update writes only the fields set in patch, bumps updated_at to at and
	// returns the stored record.
	Update(ctx context.Context, id string, patch domain.APIKeyPatch, at time.Time) (domain.APIKey, error)

	// CountByOwner counts every key of the owner, revoked ones included.
	CountByOwner(ctx context.Context, ownerID string) (int, error)

	// ListByOwner returns the owner's keys, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]domain.APIKey, error)

	// ListExpiredBetween returns active keys whose expiry falls in (from, to].
	ListExpiredBetween(ctx context.Context, from, to time.Time) ([]domain.APIKey, error)
}
