package db

import (
	"context"

	"github.com/google/uuid"

	"github.com/auditflow/backend/internal/model"
)

const apiKeyColumns = `id, name, description, key_hash, key_prefix, is_active, last_used_at, user_id, created_at, updated_at`

func (db *Postgres) CreateApiKey(ctx context.Context, userID uuid.UUID, name string, description *string, keyHash, keyPrefix string) (*model.ApiKey, error) {
	query := `
		INSERT INTO api_keys (id, name, description, key_hash, key_prefix, is_active, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, $6, NOW(), NOW())
		RETURNING ` + apiKeyColumns
	return scanApiKey(db.Pool.QueryRow(ctx, query, uuid.New(), name, description, keyHash, keyPrefix, userID))
}

// GetActiveApiKeyByHash looks a key up by its deterministic hash among
// active keys only. Inactive keys fail authentication the same way as
// absent ones.
func (db *Postgres) GetActiveApiKeyByHash(ctx context.Context, keyHash string) (*model.ApiKey, error) {
	query := `
		SELECT ` + apiKeyColumns + `
		FROM api_keys
		WHERE key_hash = $1 AND is_active = TRUE
	`
	return scanApiKey(db.Pool.QueryRow(ctx, query, keyHash))
}

func (db *Postgres) GetApiKeyByID(ctx context.Context, userID, keyID uuid.UUID) (*model.ApiKey, error) {
	query := `
		SELECT ` + apiKeyColumns + `
		FROM api_keys
		WHERE id = $1 AND user_id = $2
	`
	return scanApiKey(db.Pool.QueryRow(ctx, query, keyID, userID))
}

func (db *Postgres) ListApiKeys(ctx context.Context, userID uuid.UUID, includeInactive bool) ([]model.ApiKey, error) {
	query := `
		SELECT ` + apiKeyColumns + `
		FROM api_keys
		WHERE user_id = $1
	`
	if !includeInactive {
		query += ` AND is_active = TRUE`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []model.ApiKey
	for rows.Next() {
		key, err := scanApiKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, *key)
	}
	if keys == nil {
		keys = []model.ApiKey{}
	}
	return keys, rows.Err()
}

func (db *Postgres) TouchApiKey(ctx context.Context, keyID uuid.UUID) error {
	query := `
		UPDATE api_keys
		SET last_used_at = NOW()
		WHERE id = $1
	`
	_, err := db.Pool.Exec(ctx, query, keyID)
	return err
}

func (db *Postgres) DeactivateApiKey(ctx context.Context, userID, keyID uuid.UUID) (bool, error) {
	query := `
		UPDATE api_keys
		SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`
	tag, err := db.Pool.Exec(ctx, query, keyID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// RotateApiKey replaces the stored hash and prefix, re-activating the
// key. The previous raw value stops authenticating immediately.
func (db *Postgres) RotateApiKey(ctx context.Context, userID, keyID uuid.UUID, keyHash, keyPrefix string) (*model.ApiKey, error) {
	query := `
		UPDATE api_keys
		SET key_hash = $3, key_prefix = $4, is_active = TRUE, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + apiKeyColumns
	return scanApiKey(db.Pool.QueryRow(ctx, query, keyID, userID, keyHash, keyPrefix))
}

func scanApiKey(row rowScanner) (*model.ApiKey, error) {
	var key model.ApiKey
	err := row.Scan(
		&key.ID,
		&key.Name,
		&key.Description,
		&key.KeyHash,
		&key.KeyPrefix,
		&key.IsActive,
		&key.LastUsedAt,
		&key.UserID,
		&key.CreatedAt,
		&key.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &key, nil
}
