package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/maheshrc27/voicepost/internal/models"
)

// Transcripts are written once per recording and never updated.
type TranscriptRepository interface {
	Create(ctx context.Context, t *models.Transcript) (int64, error)
	GetByRecordingID(ctx context.Context, recordingID int64) (*models.Transcript, error)
}

type transcriptRepository struct {
	db *sql.DB
}

func NewTranscriptRepository(db *sql.DB) TranscriptRepository {
	return &transcriptRepository{db: db}
}

func (r *transcriptRepository) Create(ctx context.Context, t *models.Transcript) (int64, error) {
	query := `
		INSERT INTO transcripts (recording_id, text, confidence, language)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	var id int64
	if err := r.db.QueryRowContext(ctx, query, t.RecordingID, t.Text, t.Confidence, t.Language).Scan(&id); err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *transcriptRepository) GetByRecordingID(ctx context.Context, recordingID int64) (*models.Transcript, error) {
	query := `SELECT id, recording_id, text, confidence, language, created_at FROM transcripts WHERE recording_id = $1`
	var t models.Transcript
	err := r.db.QueryRowContext(ctx, query, recordingID).Scan(&t.ID, &t.RecordingID, &t.Text, &t.Confidence, &t.Language, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &t, nil
}
