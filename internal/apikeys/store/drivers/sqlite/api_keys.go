package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/apikeys/internal/apikeys/domain"
	"github.com/aussiebroadwan/apikeys/internal/apikeys/store"
)

const apiKeyColumns = `id, owner_id, name, key_hash, key_prefix, scopes, last_used_at,
	last_used_ip, expires_at, is_active, created_at, updated_at`

const (
	createAPIKey = `INSERT INTO api_keys (` + apiKeyColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	getAPIKeyByID = `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE id = ?`

	getAPIKeyByPrefix = `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE key_prefix = ?`

	countAPIKeysByOwner = `SELECT COUNT(*) FROM api_keys WHERE owner_id = ?`

	listAPIKeysByOwner = `SELECT ` + apiKeyColumns + ` FROM api_keys
	WHERE owner_id = ? ORDER BY created_at DESC, id DESC`

	listAPIKeysExpiredBetween = `SELECT ` + apiKeyColumns + ` FROM api_keys
	WHERE is_active = 1 AND expires_at > ? AND expires_at <= ?
	ORDER BY expires_at`
)

type apiKeysRepo struct {
	db dbtx
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAPIKey(row rowScanner) (domain.APIKey, error) {
	var (
		k          domain.APIKey
		scopes     sql.NullString
		lastUsedAt sql.NullInt64
		expiresAt  sql.NullInt64
		createdAt  int64
		updatedAt  int64
	)
	err := row.Scan(&k.ID, &k.OwnerID, &k.Name, &k.KeyHash, &k.KeyPrefix, &scopes,
		&lastUsedAt, &k.LastUsedIP, &expiresAt, &k.IsActive, &createdAt, &updatedAt)
	if err != nil {
		return domain.APIKey{}, err
	}

	if k.Scopes, err = mapScopes(scopes); err != nil {
		return domain.APIKey{}, fmt.Errorf("decode scopes of %s: %w", k.ID, err)
	}
	k.LastUsedAt = mapNullTimePtr(lastUsedAt)
	k.ExpiresAt = mapNullTimePtr(expiresAt)
	k.CreatedAt = mapTime(createdAt)
	k.UpdatedAt = mapTime(updatedAt)
	return k, nil
}

func (r *apiKeysRepo) Create(ctx context.Context, k domain.APIKey) error {
	scopes, err := mapScopesNull(k.Scopes)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, createAPIKey,
		k.ID, k.OwnerID, k.Name, k.KeyHash, k.KeyPrefix, scopes,
		mapOptionalTime(k.LastUsedAt), k.LastUsedIP, mapOptionalTime(k.ExpiresAt),
		k.IsActive, mapTimeMillis(k.CreatedAt), mapTimeMillis(k.UpdatedAt),
	)
	return mapConstraint(err)
}

func (r *apiKeysRepo) GetByID(ctx context.Context, id string) (domain.APIKey, error) {
	k, err := scanAPIKey(r.db.QueryRowContext(ctx, getAPIKeyByID, id))
	if err != nil {
		return domain.APIKey{}, mapNotFound(err)
	}
	return k, nil
}

func (r *apiKeysRepo) GetByPrefix(ctx context.Context, prefix string) (domain.APIKey, error) {
	k, err := scanAPIKey(r.db.QueryRowContext(ctx, getAPIKeyByPrefix, prefix))
	if err != nil {
		return domain.APIKey{}, mapNotFound(err)
	}
	return k, nil
}

func (r *apiKeysRepo) Update(
	ctx context.Context,
	id string,
	patch domain.APIKeyPatch,
	at time.Time,
) (domain.APIKey, error) {
	sets := []string{"updated_at = ?"}
	args := []any{mapTimeMillis(at)}

	set := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if patch.Name != nil {
		set("name", *patch.Name)
	}
	if patch.Scopes != nil {
		scopes, err := mapScopesNull(*patch.Scopes)
		if err != nil {
			return domain.APIKey{}, err
		}
		set("scopes", scopes)
	}
	if patch.ClearExpiry {
		set("expires_at", nil)
	} else if patch.ExpiresAt != nil {
		set("expires_at", mapTimeMillis(*patch.ExpiresAt))
	}
	if patch.IsActive != nil {
		set("is_active", *patch.IsActive)
	}
	if patch.LastUsedAt != nil {
		set("last_used_at", mapTimeMillis(*patch.LastUsedAt))
	}
	if patch.LastUsedIP != nil {
		set("last_used_ip", *patch.LastUsedIP)
	}

	args = append(args, id)
	query := `UPDATE api_keys SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return domain.APIKey{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.APIKey{}, store.ErrNotFound
	}

	return r.GetByID(ctx, id)
}

func (r *apiKeysRepo) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, countAPIKeysByOwner, ownerID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *apiKeysRepo) ListByOwner(ctx context.Context, ownerID string) ([]domain.APIKey, error) {
	return r.list(ctx, listAPIKeysByOwner, ownerID)
}

func (r *apiKeysRepo) ListExpiredBetween(ctx context.Context, from, to time.Time) ([]domain.APIKey, error) {
	return r.list(ctx, listAPIKeysExpiredBetween, mapTimeMillis(from), mapTimeMillis(to))
}

func (r *apiKeysRepo) list(ctx context.Context, query string, args ...any) ([]domain.APIKey, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []domain.APIKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
