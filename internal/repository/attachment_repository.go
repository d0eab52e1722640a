package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/maheshrc27/voicepost/internal/models"
)

type AttachmentRepository interface {
	Create(ctx context.Context, a *models.Attachment) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Attachment, error)
	ListByDraftID(ctx context.Context, draftID int64) ([]*models.Attachment, error)
	Remove(ctx context.Context, id int64) error
}

type attachmentRepository struct {
	db *sql.DB
}

func NewAttachmentRepository(db *sql.DB) AttachmentRepository {
	return &attachmentRepository{db: db}
}

const attachmentColumns = `id, draft_id, user_id, storage_key, file_name, file_size, mime_type, media_type, created_at`

func scanAttachment(row interface{ Scan(...interface{}) error }) (*models.Attachment, error) {
	var a models.Attachment
	var mediaType string
	err := row.Scan(&a.ID, &a.DraftID, &a.UserID, &a.StorageKey, &a.FileName, &a.FileSize, &a.MimeType, &mediaType, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.MediaType = models.MediaType(mediaType)
	return &a, nil
}

func (r *attachmentRepository) Create(ctx context.Context, a *models.Attachment) (int64, error) {
	query := `
		INSERT INTO attachments (draft_id, user_id, storage_key, file_name, file_size, mime_type, media_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query, a.DraftID, a.UserID, a.StorageKey, a.FileName, a.FileSize, a.MimeType, string(a.MediaType)).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *attachmentRepository) GetByID(ctx context.Context, id int64) (*models.Attachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM attachments WHERE id = $1`
	a, err := scanAttachment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return a, nil
}

func (r *attachmentRepository) ListByDraftID(ctx context.Context, draftID int64) ([]*models.Attachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM attachments WHERE draft_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, draftID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var attachments []*models.Attachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}

func (r *attachmentRepository) Remove(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM attachments WHERE id = $1`, id); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
