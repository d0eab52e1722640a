package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/maheshrc27/voicepost/internal/models"
)

type ApiKeyRepository interface {
	GetUserIDByKey(ctx context.Context, apiKey string) (int64, bool, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.ApiKey, error)
	Create(ctx context.Context, apiKey *models.ApiKey) (int64, error)
	RemoveForUser(ctx context.Context, keyID, userID int64) (bool, error)
}

type apiKeyRepository struct {
	db *sql.DB
}

func NewApiKeyRepository(db *sql.DB) ApiKeyRepository {
	return &apiKeyRepository{db: db}
}

func (r *apiKeyRepository) GetUserIDByKey(ctx context.Context, apiKey string) (int64, bool, error) {
	var userID int64
	err := r.db.QueryRowContext(ctx, "SELECT user_id FROM api_keys WHERE api_key = $1", apiKey).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		slog.Info(err.Error())
		return 0, false, err
	}
	return userID, true, nil
}

func (r *apiKeyRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.ApiKey, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, user_id, api_key, created_at FROM api_keys WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var apiKeys []*models.ApiKey
	for rows.Next() {
		var apiKey models.ApiKey
		if err := rows.Scan(&apiKey.ID, &apiKey.UserID, &apiKey.ApiKey, &apiKey.CreatedAt); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		apiKeys = append(apiKeys, &apiKey)
	}
	return apiKeys, rows.Err()
}

func (r *apiKeyRepository) Create(ctx context.Context, apiKey *models.ApiKey) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, "INSERT INTO api_keys (user_id, api_key) VALUES ($1, $2) RETURNING id", apiKey.UserID, apiKey.ApiKey).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

// RemoveForUser deletes the key only when it belongs to userID.
func (r *apiKeyRepository) RemoveForUser(ctx context.Context, keyID, userID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM api_keys WHERE id = $1 AND user_id = $2`, keyID, userID)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}
