package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/maheshrc27/voicepost/internal/models"
)

type SettingsRepository interface {
	GetByUserID(ctx context.Context, userID int64) (*models.Settings, bool, error)
	Upsert(ctx context.Context, s *models.Settings) error
}

type settingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) GetByUserID(ctx context.Context, userID int64) (*models.Settings, bool, error) {
	query := `SELECT id, user_id, system_prompt, model, auto_post, created_at, updated_at FROM settings WHERE user_id = $1`
	row := r.db.QueryRowContext(ctx, query, userID)

	var settings models.Settings
	err := row.Scan(&settings.ID, &settings.UserID, &settings.SystemPrompt, &settings.Model, &settings.AutoPost, &settings.CreatedAt, &settings.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		slog.Info(err.Error())
		return nil, false, err
	}
	return &settings, true, nil
}

func (r *settingsRepository) Upsert(ctx context.Context, s *models.Settings) error {
	query := `
		INSERT INTO settings (user_id, system_prompt, model, auto_post)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET system_prompt = EXCLUDED.system_prompt,
			model = EXCLUDED.model,
			auto_post = EXCLUDED.auto_post,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := r.db.ExecContext(ctx, query, s.UserID, s.SystemPrompt, s.Model, s.AutoPost); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
