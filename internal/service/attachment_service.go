package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/h2non/filetype"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/maheshrc27/voicepost/internal/models"
	"github.com/maheshrc27/voicepost/internal/repository"
	"github.com/maheshrc27/voicepost/internal/transfer"
)

type AttachmentService interface {
	CreateAttachment(ctx context.Context, userID, draftID int64, req transfer.AttachmentCreation) (*transfer.AttachmentTarget, error)
	ListAttachments(ctx context.Context, userID, draftID int64) ([]*models.Attachment, error)
	RemoveAttachment(ctx context.Context, userID, attachmentID int64) error
}

type attachmentService struct {
	ar      repository.AttachmentRepository
	dr      repository.DraftRepository
	rr      repository.RecordingRepository
	storage StorageService
}

func NewAttachmentService(
	ar repository.AttachmentRepository,
	dr repository.DraftRepository,
	rr repository.RecordingRepository,
	storage StorageService) AttachmentService {
	return &attachmentService{ar: ar, dr: dr, rr: rr, storage: storage}
}

func (s *attachmentService) ownedDraft(ctx context.Context, userID, draftID int64) (*models.Draft, error) {
	draft, err := s.dr.GetByID(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if draft == nil || draft.UserID != userID {
		return nil, fmt.Errorf("draft %d: %w", draftID, ErrNotFound)
	}
	return draft, nil
}

// CreateAttachment registers the media and returns where to upload it.
// Size ceilings depend on the media type. Only a draft that is ready to
// post takes new media.
func (s *attachmentService) CreateAttachment(ctx context.Context, userID, draftID int64, req transfer.AttachmentCreation) (*transfer.AttachmentTarget, error) {
	mime := strings.ToLower(strings.TrimSpace(req.MimeType))
	mediaType, ok := models.MediaTypeFromMime(mime)
	if !ok || !filetype.IsMIMESupported(mime) {
		return nil, validationErrorf("unsupported media type %q", req.MimeType)
	}
	if err := mediaType.CheckSize(req.FileSize); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	draft, err := s.ownedDraft(ctx, userID, draftID)
	if err != nil {
		return nil, err
	}
	rec, err := s.rr.GetByID(ctx, draft.RecordingID)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.Status != models.RecordingReady {
		return nil, fmt.Errorf("%w: draft %d no longer takes attachments", ErrInvalidTransition, draft.ID)
	}

	existing, err := s.ar.ListByDraftID(ctx, draft.ID)
	if err != nil {
		return nil, err
	}
	if len(existing) >= maxTweetMedia {
		return nil, validationErrorf("a tweet carries at most %d attachments", maxTweetMedia)
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("attachments/%d/%s.%s", userID, id, strings.SplitN(mime, "/", 2)[1])

	uploadURL, err := s.storage.CreateUploadTarget(ctx, key, mime)
	if err != nil {
		return nil, err
	}

	a := &models.Attachment{
		DraftID:    draft.ID,
		UserID:     userID,
		StorageKey: key,
		FileName:   req.FileName,
		FileSize:   req.FileSize,
		MimeType:   mime,
		MediaType:  mediaType,
	}
	if a.ID, err = s.ar.Create(ctx, a); err != nil {
		return nil, err
	}

	return &transfer.AttachmentTarget{Attachment: a, UploadURL: uploadURL}, nil
}

func (s *attachmentService) ListAttachments(ctx context.Context, userID, draftID int64) ([]*models.Attachment, error) {
	if _, err := s.ownedDraft(ctx, userID, draftID); err != nil {
		return nil, err
	}
	return s.ar.ListByDraftID(ctx, draftID)
}

func (s *attachmentService) RemoveAttachment(ctx context.Context, userID, attachmentID int64) error {
	a, err := s.ar.GetByID(ctx, attachmentID)
	if err != nil {
		return err
	}
	if a == nil || a.UserID != userID {
		return fmt.Errorf("attachment %d: %w", attachmentID, ErrNotFound)
	}
	if err := s.ar.Remove(ctx, a.ID); err != nil {
		return err
	}
	s.storage.Remove(ctx, a.StorageKey)
	return nil
}
