package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/apikeys/internal/apikeys/domain"
	"github.com/aussiebroadwan/apikeys/internal/apikeys/store"
	"github.com/jackc/pgx/v5"
)

const apiKeyColumns = `id, owner_id, name, key_hash, key_prefix, scopes, last_used_at,
	last_used_ip, expires_at, is_active, created_at, updated_at`

const (
	createAPIKey = `INSERT INTO api_keys (` + apiKeyColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	getAPIKeyByID = `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE id = $1`

	getAPIKeyByPrefix = `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE key_prefix = $1`

	countAPIKeysByOwner = `SELECT COUNT(*) FROM api_keys WHERE owner_id = $1`

	listAPIKeysByOwner = `SELECT ` + apiKeyColumns + ` FROM api_keys
	WHERE owner_id = $1 ORDER BY created_at DESC, id DESC`

	listAPIKeysExpiredBetween = `SELECT ` + apiKeyColumns + ` FROM api_keys
	WHERE is_active AND expires_at > $1 AND expires_at <= $2
	ORDER BY expires_at`
)

type apiKeysRepo struct {
	db dbtx
}

func scanAPIKey(row pgx.Row) (domain.APIKey, error) {
	var (
		k      domain.APIKey
		scopes []byte
	)
	err := row.Scan(&k.ID, &k.OwnerID, &k.Name, &k.KeyHash, &k.KeyPrefix, &scopes,
		&k.LastUsedAt, &k.LastUsedIP, &k.ExpiresAt, &k.IsActive, &k.CreatedAt, &k.UpdatedAt)
	if err != nil {
		return domain.APIKey{}, err
	}

	if k.Scopes, err = mapScopes(scopes); err != nil {
		return domain.APIKey{}, fmt.Errorf("decode scopes of %s: %w", k.ID, err)
	}
	k.CreatedAt = k.CreatedAt.UTC()
	k.UpdatedAt = k.UpdatedAt.UTC()
	k.LastUsedAt = utcPtr(k.LastUsedAt)
	k.ExpiresAt = utcPtr(k.ExpiresAt)
	return k, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func (r *apiKeysRepo) Create(ctx context.Context, k domain.APIKey) error {
	scopes, err := mapScopesJSON(k.Scopes)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, createAPIKey,
		k.ID, k.OwnerID, k.Name, k.KeyHash, k.KeyPrefix, scopes,
		k.LastUsedAt, k.LastUsedIP, k.ExpiresAt, k.IsActive, k.CreatedAt, k.UpdatedAt,
	)
	return mapConstraint(err)
}

func (r *apiKeysRepo) GetByID(ctx context.Context, id string) (domain.APIKey, error) {
	k, err := scanAPIKey(r.db.QueryRow(ctx, getAPIKeyByID, id))
	if err != nil {
		return domain.APIKey{}, mapNotFound(err)
	}
	return k, nil
}

func (r *apiKeysRepo) GetByPrefix(ctx context.Context, prefix string) (domain.APIKey, error) {
	k, err := scanAPIKey(r.db.QueryRow(ctx, getAPIKeyByPrefix, prefix))
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
	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}

	set("updated_at", at)
	if patch.Name != nil {
		set("name", *patch.Name)
	}
	if patch.Scopes != nil {
		scopes, err := mapScopesJSON(*patch.Scopes)
		if err != nil {
			return domain.APIKey{}, err
		}
		set("scopes", scopes)
	}
	if patch.ClearExpiry {
		set("expires_at", nil)
	} else if patch.ExpiresAt != nil {
		set("expires_at", *patch.ExpiresAt)
	}
	if patch.IsActive != nil {
		set("is_active", *patch.IsActive)
	}
	if patch.LastUsedAt != nil {
		set("last_used_at", *patch.LastUsedAt)
	}
	if patch.LastUsedIP != nil {
		set("last_used_ip", *patch.LastUsedIP)
	}

	args = append(args, id)
	query := `UPDATE api_keys SET ` + strings.Join(sets, ", ") +
		` WHERE id = $` + strconv.Itoa(len(args)) + ` RETURNING ` + apiKeyColumns

	k, err := scanAPIKey(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return domain.APIKey{}, mapNotFound(err)
	}
	return k, nil
}

func (r *apiKeysRepo) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, countAPIKeysByOwner, ownerID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *apiKeysRepo) ListByOwner(ctx context.Context, ownerID string) ([]domain.APIKey, error) {
	return r.list(ctx, listAPIKeysByOwner, ownerID)
}

func (r *apiKeysRepo) ListExpiredBetween(ctx context.Context, from, to time.Time) ([]domain.APIKey, error) {
	return r.list(ctx, listAPIKeysExpiredBetween, from, to)
}

func (r *apiKeysRepo) list(ctx context.Context, query string, args ...any) ([]domain.APIKey, error) {
	rows, err := r.db.Query(ctx, query, args...)
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

var _ store.APIKeys = (*apiKeysRepo)(nil)
