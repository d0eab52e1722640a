package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/maheshrc27/voicepost/internal/models"
)

type DraftRepository interface {
	Create(ctx context.Context, d *models.Draft) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Draft, error)
	GetByRecordingID(ctx context.Context, recordingID int64) (*models.Draft, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.Draft, error)
	UpdateTweets(ctx context.Context, id int64, mode models.DraftMode, tweets models.DraftTweets) error
	ClaimPublish(ctx context.Context, id int64, now, staleBefore time.Time) (bool, error)
	ReleasePublish(ctx context.Context, id int64) error
}

type draftRepository struct {
	db *sql.DB
}

func NewDraftRepository(db *sql.DB) DraftRepository {
	return &draftRepository{db: db}
}

const draftColumns = `id, recording_id, user_id, mode, tweets, original_text, created_at, updated_at`

func scanDraft(row interface{ Scan(...interface{}) error }) (*models.Draft, error) {
	var d models.Draft
	var mode string
	err := row.Scan(&d.ID, &d.RecordingID, &d.UserID, &mode, &d.Tweets, &d.OriginalText, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.Mode = models.DraftMode(mode)
	return &d, nil
}

func (r *draftRepository) Create(ctx context.Context, d *models.Draft) (int64, error) {
	query := `
		INSERT INTO drafts (recording_id, user_id, mode, tweets, original_text)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query, d.RecordingID, d.UserID, string(d.Mode), d.Tweets.Normalize(), d.OriginalText).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *draftRepository) GetByID(ctx context.Context, id int64) (*models.Draft, error) {
	return r.getOne(ctx, `SELECT `+draftColumns+` FROM drafts WHERE id = $1`, id)
}

func (r *draftRepository) GetByRecordingID(ctx context.Context, recordingID int64) (*models.Draft, error) {
	return r.getOne(ctx, `SELECT `+draftColumns+` FROM drafts WHERE recording_id = $1`, recordingID)
}

func (r *draftRepository) getOne(ctx context.Context, query string, arg int64) (*models.Draft, error) {
	d, err := scanDraft(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return d, nil
}

func (r *draftRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.Draft, error) {
	query := `SELECT ` + draftColumns + ` FROM drafts WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var drafts []*models.Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		drafts = append(drafts, d)
	}
	return drafts, rows.Err()
}

func (r *draftRepository) UpdateTweets(ctx context.Context, id int64, mode models.DraftMode, tweets models.DraftTweets) error {
	query := `
		UPDATE drafts
		SET mode = $1,
			tweets = $2,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $3
	`
	_, err := r.db.ExecContext(ctx, query, string(mode), tweets.Normalize(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// ClaimPublish marks the draft as being published. It fails to claim while
// another claim newer than staleBefore is held.
func (r *draftRepository) ClaimPublish(ctx context.Context, id int64, now, staleBefore time.Time) (bool, error) {
	query := `
		UPDATE drafts
		SET publishing_since = $2
		WHERE id = $1 AND (publishing_since IS NULL OR publishing_since < $3)
	`
	result, err := r.db.ExecContext(ctx, query, id, now, staleBefore)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

func (r *draftRepository) ReleasePublish(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE drafts SET publishing_since = NULL WHERE id = $1`, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
