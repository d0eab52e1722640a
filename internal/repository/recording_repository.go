package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/maheshrc27/voicepost/internal/models"
)

type RecordingRepository interface {
	Create(ctx context.Context, tx *sql.Tx, rec *models.Recording) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Recording, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.Recording, error)
	CompareAndSetStatus(ctx context.Context, id int64, from, to models.RecordingStatus) (bool, error)
	SetFailed(ctx context.Context, id int64, from models.RecordingStatus, reason string) (bool, error)
	UpdateUpload(ctx context.Context, id int64, fileSize int64, durationSeconds float64) error
	Remove(ctx context.Context, id int64) error
}

type recordingRepository struct {
	db *sql.DB
}

func NewRecordingRepository(db *sql.DB) RecordingRepository {
	return &recordingRepository{db: db}
}

const recordingColumns = `id, user_id, storage_key, content_type, status, file_size, duration_seconds, error_message, created_at, updated_at`

func scanRecording(row interface{ Scan(...interface{}) error }) (*models.Recording, error) {
	var rec models.Recording
	var status string
	err := row.Scan(&rec.ID, &rec.UserID, &rec.StorageKey, &rec.ContentType, &status,
		&rec.FileSize, &rec.DurationSeconds, &rec.ErrorMessage, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rec.Status = models.ParseRecordingStatus(status)
	return &rec, nil
}

func (r *recordingRepository) Create(ctx context.Context, tx *sql.Tx, rec *models.Recording) (int64, error) {
	query := `
		INSERT INTO recordings (user_id, storage_key, content_type, status, file_size, duration_seconds)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	var id int64
	err := pick(r.db, tx).QueryRowContext(ctx, query,
		rec.UserID, rec.StorageKey, rec.ContentType, string(models.RecordingUploaded), rec.FileSize, rec.DurationSeconds,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *recordingRepository) GetByID(ctx context.Context, id int64) (*models.Recording, error) {
	query := `SELECT ` + recordingColumns + ` FROM recordings WHERE id = $1`
	rec, err := scanRecording(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return rec, nil
}

func (r *recordingRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.Recording, error) {
	query := `SELECT ` + recordingColumns + ` FROM recordings WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var recordings []*models.Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		recordings = append(recordings, rec)
	}
	return recordings, rows.Err()
}

// CompareAndSetStatus moves the recording to `to` only while it is still in
// `from`. It reports false when another writer got there first.
func (r *recordingRepository) CompareAndSetStatus(ctx context.Context, id int64, from, to models.RecordingStatus) (bool, error) {
	query := `
		UPDATE recordings
		SET status = $1,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND status = $3
	`
	result, err := r.db.ExecContext(ctx, query, string(to), id, string(from))
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

func (r *recordingRepository) SetFailed(ctx context.Context, id int64, from models.RecordingStatus, reason string) (bool, error) {
	query := `
		UPDATE recordings
		SET status = $1,
			error_message = $2,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $3 AND status = $4
	`
	result, err := r.db.ExecContext(ctx, query, string(models.RecordingFailed), reason, id, string(from))
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

func (r *recordingRepository) UpdateUpload(ctx context.Context, id int64, fileSize int64, durationSeconds float64) error {
	query := `
		UPDATE recordings
		SET file_size = $1,
			duration_seconds = $2,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $3
	`
	if _, err := r.db.ExecContext(ctx, query, fileSize, durationSeconds, id); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *recordingRepository) Remove(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM recordings WHERE id = $1`, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
