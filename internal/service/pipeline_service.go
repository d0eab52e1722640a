package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	config "github.com/maheshrc27/voicepost/configs"
	"github.com/maheshrc27/voicepost/internal/models"
	"github.com/maheshrc27/voicepost/internal/repository"
	"github.com/maheshrc27/voicepost/internal/transfer"
)

// TaskEnqueuer hands work to the background queue.
type TaskEnqueuer interface {
	EnqueueProcessRecording(ctx context.Context, recordingID int64, autoPost *bool) error
	EnqueuePublishDraft(ctx context.Context, userID, draftID int64) error
}

// ProcessOptions carries what the queue knows about one processing run.
type ProcessOptions struct {
	// AutoPost overrides the user's setting when set.
	AutoPost *bool
	// WillRetry is set when the queue delivers the task again after an
	// error. A transient stage error then leaves the recording where it is.
	WillRetry bool
}

// PipelineService drives a recording through
// uploaded → transcribing → drafting → ready, and on to posted when
// auto-post is on. Every stage failure lands the recording in failed.
type PipelineService interface {
	CreateRecording(ctx context.Context, userID int64, req transfer.RecordingCreation) (*transfer.UploadTarget, error)
	Ingest(ctx context.Context, userID, recordingID int64, req transfer.IngestRequest) (*models.Recording, error)
	Process(ctx context.Context, recordingID int64, opts ProcessOptions) error
	Get(ctx context.Context, userID, recordingID int64) (*transfer.RecordingDetail, error)
	List(ctx context.Context, userID int64) ([]*models.Recording, error)
	Delete(ctx context.Context, userID, recordingID int64) error
	GetDraft(ctx context.Context, userID, draftID int64) (*models.Draft, error)
	UpdateDraft(ctx context.Context, userID, draftID int64, texts []string) (*models.Draft, error)
}

type pipelineService struct {
	timeouts      config.Timeouts
	rr            repository.RecordingRepository
	tr            repository.TranscriptRepository
	dr            repository.DraftRepository
	storage       StorageService
	transcription TranscriptionService
	drafting      DraftingService
	publish       PublishService
	settings      SettingsService
	enqueuer      TaskEnqueuer
}

func NewPipelineService(
	cfg config.Config,
	rr repository.RecordingRepository,
	tr repository.TranscriptRepository,
	dr repository.DraftRepository,
	storage StorageService,
	transcription TranscriptionService,
	drafting DraftingService,
	publish PublishService,
	settings SettingsService,
	enqueuer TaskEnqueuer) PipelineService {
	timeouts := cfg.Timeouts
	if timeouts.Transcription <= 0 {
		timeouts.Transcription = 30 * time.Second
	}
	if timeouts.Drafting <= 0 {
		timeouts.Drafting = 30 * time.Second
	}
	return &pipelineService{
		timeouts:      timeouts,
		rr:            rr,
		tr:            tr,
		dr:            dr,
		storage:       storage,
		transcription: transcription,
		drafting:      drafting,
		publish:       publish,
		settings:      settings,
		enqueuer:      enqueuer,
	}
}

func isAudioContentType(contentType string) bool {
	base := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	return strings.HasPrefix(base, "audio/") || base == "video/webm"
}

func (s *pipelineService) CreateRecording(ctx context.Context, userID int64, req transfer.RecordingCreation) (*transfer.UploadTarget, error) {
	if userID == 0 {
		return nil, validationErrorf("user id is required")
	}
	if !isAudioContentType(req.ContentType) {
		return nil, validationErrorf("content type %q is not audio", req.ContentType)
	}
	if req.FileSize < 0 || req.DurationSeconds < 0 {
		return nil, validationErrorf("file size and duration cannot be negative")
	}

	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	key := fmt.Sprintf("recordings/%d/%s.%s", userID, id, audioExtension(req.ContentType, nil))

	uploadURL, err := s.storage.CreateUploadTarget(ctx, key, req.ContentType)
	if err != nil {
		return nil, err
	}

	rec := &models.Recording{
		UserID:          userID,
		StorageKey:      key,
		ContentType:     req.ContentType,
		Status:          models.RecordingUploaded,
		FileSize:        req.FileSize,
		DurationSeconds: req.DurationSeconds,
	}
	rec.ID, err = s.rr.Create(ctx, nil, rec)
	if err != nil {
		return nil, err
	}

	return &transfer.UploadTarget{Recording: rec, UploadURL: uploadURL}, nil
}

func (s *pipelineService) ownedRecording(ctx context.Context, userID, recordingID int64) (*models.Recording, error) {
	rec, err := s.rr.GetByID(ctx, recordingID)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.UserID != userID {
		return nil, fmt.Errorf("recording %d: %w", recordingID, ErrNotFound)
	}
	return rec, nil
}

// Ingest claims the recording with a compare-and-swap on its status, so two
// concurrent or repeated calls cannot both enqueue processing.
func (s *pipelineService) Ingest(ctx context.Context, userID, recordingID int64, req transfer.IngestRequest) (*models.Recording, error) {
	rec, err := s.ownedRecording(ctx, userID, recordingID)
	if err != nil {
		return nil, err
	}
	if rec.Status != models.RecordingUploaded {
		return nil, fmt.Errorf("%w: recording %d is already %s", ErrInvalidTransition, rec.ID, rec.Status)
	}

	if req.FileSize > 0 || req.DurationSeconds > 0 {
		if err := s.rr.UpdateUpload(ctx, rec.ID, req.FileSize, req.DurationSeconds); err != nil {
			return nil, err
		}
		rec.FileSize, rec.DurationSeconds = req.FileSize, req.DurationSeconds
	}

	ok, err := moveRecording(ctx, s.rr, rec.ID, models.RecordingUploaded, models.RecordingTranscribing)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: recording %d was ingested concurrently", ErrInvalidTransition, rec.ID)
	}
	rec.Status = models.RecordingTranscribing

	if err := s.enqueuer.EnqueueProcessRecording(ctx, rec.ID, req.AutoPost); err != nil {
		slog.Error("failed to enqueue recording", "recording_id", rec.ID, "error", err)
		s.fail(ctx, rec, models.RecordingTranscribing, "could not queue processing")
		return nil, fmt.Errorf("enqueue recording %d: %w", rec.ID, err)
	}

	slog.Info("recording ingested", "recording_id", rec.ID, "user_id", userID, "auto_post_override", req.AutoPost != nil)
	return rec, nil
}

// Process runs the transcription and drafting stages. It acts on a
// recording that is transcribing or drafting and skips the stages whose
// output is already stored, so a redelivered task picks up where the last
// run stopped.
func (s *pipelineService) Process(ctx context.Context, recordingID int64, opts ProcessOptions) error {
	rec, err := s.rr.GetByID(ctx, recordingID)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("recording %d: %w", recordingID, ErrNotFound)
	}
	if rec.Status != models.RecordingTranscribing && rec.Status != models.RecordingDrafting {
		return fmt.Errorf("%w: recording %d is %s", ErrInvalidTransition, rec.ID, rec.Status)
	}

	transcript, err := s.tr.GetByRecordingID(ctx, rec.ID)
	if err != nil {
		return s.stageFailed(ctx, rec, opts, "could not load transcript", err)
	}
	if transcript == nil {
		if rec.Status != models.RecordingTranscribing {
			return s.fail(ctx, rec, rec.Status, "transcript is missing")
		}
		if transcript, err = s.transcribe(ctx, rec, opts); err != nil {
			return err
		}
	}
	if rec.Status == models.RecordingTranscribing {
		if err := s.advance(ctx, rec, opts, models.RecordingDrafting); err != nil {
			return err
		}
	}

	draft, err := s.dr.GetByRecordingID(ctx, rec.ID)
	if err != nil {
		return s.stageFailed(ctx, rec, opts, "could not load draft", err)
	}
	if draft == nil {
		if draft, err = s.writeDraft(ctx, rec, transcript, opts); err != nil {
			return err
		}
	}

	autoPost := false
	if opts.AutoPost != nil {
		autoPost = *opts.AutoPost
	} else if autoPost, err = s.settings.AutoPost(ctx, rec.UserID); err != nil {
		return s.stageFailed(ctx, rec, opts, "could not load settings", err)
	}

	if err := s.advance(ctx, rec, opts, models.RecordingReady); err != nil {
		return err
	}

	slog.Info("recording ready", "recording_id", rec.ID, "draft_id", draft.ID, "mode", draft.Mode, "tweets", len(draft.Tweets), "auto_post", autoPost)

	if autoPost {
		if _, err := s.publish.PublishDraft(ctx, rec.UserID, draft.ID); err != nil {
			slog.Warn("auto-post failed, draft left ready", "recording_id", rec.ID, "draft_id", draft.ID, "error", err)
		}
	}
	return nil
}

func (s *pipelineService) transcribe(ctx context.Context, rec *models.Recording, opts ProcessOptions) (*models.Transcript, error) {
	audio, err := s.storage.Download(ctx, rec.StorageKey)
	if err != nil {
		return nil, s.stageFailed(ctx, rec, opts, "audio download failed", err)
	}

	tctx, cancel := context.WithTimeout(ctx, s.timeouts.Transcription)
	tr, err := s.transcription.Transcribe(tctx, audio, rec.ContentType)
	cancel()
	if err != nil {
		return nil, s.stageFailed(ctx, rec, opts, "transcription failed", err)
	}
	if tr.Text == "" {
		return nil, s.fail(ctx, rec, rec.Status, "no speech detected", ErrTranscriptionFailed)
	}

	transcript := &models.Transcript{
		RecordingID: rec.ID,
		Text:        tr.Text,
		Confidence:  tr.Confidence,
		Language:    tr.Language,
	}
	if transcript.ID, err = s.tr.Create(ctx, transcript); err != nil {
		return nil, s.stageFailed(ctx, rec, opts, "could not save transcript", err)
	}
	return transcript, nil
}

func (s *pipelineService) writeDraft(ctx context.Context, rec *models.Recording, transcript *models.Transcript, opts ProcessOptions) (*models.Draft, error) {
	options, err := s.settings.DraftOptions(ctx, rec.UserID)
	if err != nil {
		return nil, s.stageFailed(ctx, rec, opts, "could not load settings", err)
	}

	dctx, cancel := context.WithTimeout(ctx, s.timeouts.Drafting)
	result, err := s.drafting.Draft(dctx, transcript.Text, options)
	cancel()
	if err != nil {
		return nil, s.stageFailed(ctx, rec, opts, "drafting failed", err)
	}

	draft := &models.Draft{
		RecordingID:  rec.ID,
		UserID:       rec.UserID,
		Mode:         result.Mode,
		Tweets:       result.Tweets,
		OriginalText: transcript.Text,
	}
	if draft.ID, err = s.dr.Create(ctx, draft); err != nil {
		return nil, s.stageFailed(ctx, rec, opts, "could not save draft", err)
	}
	return draft, nil
}

// moveRecording applies a status change that must be one forward step of the
// pipeline, guarded by the status the caller expects.
func moveRecording(ctx context.Context, rr repository.RecordingRepository, id int64, from, to models.RecordingStatus) (bool, error) {
	if !from.CanTransition(to) {
		return false, fmt.Errorf("%w: recording %d cannot go from %s to %s", ErrInvalidTransition, id, from, to)
	}
	return rr.CompareAndSetStatus(ctx, id, from, to)
}

func (s *pipelineService) advance(ctx context.Context, rec *models.Recording, opts ProcessOptions, to models.RecordingStatus) error {
	ok, err := moveRecording(ctx, s.rr, rec.ID, rec.Status, to)
	if err != nil {
		return s.stageFailed(ctx, rec, opts, "could not update status", err)
	}
	if !ok {
		return fmt.Errorf("%w: recording %d left %s", ErrInvalidTransition, rec.ID, rec.Status)
	}
	rec.Status = to
	return nil
}

// stageFailed fails the recording unless the error is transient and the
// queue will run the task again.
func (s *pipelineService) stageFailed(ctx context.Context, rec *models.Recording, opts ProcessOptions, reason string, cause error) error {
	if opts.WillRetry && isTransient(cause) {
		slog.Warn("pipeline stage failed, recording kept for retry", "recording_id", rec.ID, "stage", rec.Status, "error", cause)
		return fmt.Errorf("%s: %w", reason, cause)
	}
	return s.fail(ctx, rec, rec.Status, reason, cause)
}

func isTransient(err error) bool {
	return !errors.Is(err, ErrNotFound) &&
		!errors.Is(err, ErrValidation) &&
		!errors.Is(err, ErrInvalidTransition)
}

// fail moves the recording from `from` to failed and returns the cause
// wrapped with the reason and ErrRecordingFailed.
func (s *pipelineService) fail(ctx context.Context, rec *models.Recording, from models.RecordingStatus, reason string, causes ...error) error {
	message := reason
	err := fmt.Errorf("%w: %s", ErrRecordingFailed, reason)
	if len(causes) > 0 {
		cause := errors.Join(causes...)
		message = reason + ": " + cause.Error()
		err = fmt.Errorf("%w: %s: %w", ErrRecordingFailed, reason, cause)
	}

	// Outlives a cancelled stage context.
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if ok, ferr := s.rr.SetFailed(fctx, rec.ID, from, message); ferr != nil {
		slog.Error("failed to mark recording failed", "recording_id", rec.ID, "error", ferr)
	} else if ok {
		rec.Status = models.RecordingFailed
		rec.ErrorMessage = message
	}

	slog.Info("recording failed", "recording_id", rec.ID, "stage", from, "error", err)
	return err
}

func (s *pipelineService) Get(ctx context.Context, userID, recordingID int64) (*transfer.RecordingDetail, error) {
	rec, err := s.ownedRecording(ctx, userID, recordingID)
	if err != nil {
		return nil, err
	}

	transcript, err := s.tr.GetByRecordingID(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	draft, err := s.dr.GetByRecordingID(ctx, rec.ID)
	if err != nil {
		return nil, err
	}

	return &transfer.RecordingDetail{Recording: rec, Transcript: transcript, Draft: draft}, nil
}

func (s *pipelineService) List(ctx context.Context, userID int64) ([]*models.Recording, error) {
	return s.rr.ListByUserID(ctx, userID)
}

// Delete removes the row first; the blob goes best-effort afterwards.
func (s *pipelineService) Delete(ctx context.Context, userID, recordingID int64) error {
	rec, err := s.ownedRecording(ctx, userID, recordingID)
	if err != nil {
		return err
	}
	if err := s.rr.Remove(ctx, rec.ID); err != nil {
		return err
	}
	s.storage.Remove(ctx, rec.StorageKey)
	return nil
}

func (s *pipelineService) GetDraft(ctx context.Context, userID, draftID int64) (*models.Draft, error) {
	draft, err := s.dr.GetByID(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if draft == nil || draft.UserID != userID {
		return nil, fmt.Errorf("draft %d: %w", draftID, ErrNotFound)
	}
	return draft, nil
}

// UpdateDraft replaces the tweets of a draft that has not been posted yet.
// Counts and mode are recomputed from the new text.
func (s *pipelineService) UpdateDraft(ctx context.Context, userID, draftID int64, texts []string) (*models.Draft, error) {
	draft, err := s.GetDraft(ctx, userID, draftID)
	if err != nil {
		return nil, err
	}

	rec, err := s.rr.GetByID(ctx, draft.RecordingID)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.Status != models.RecordingReady {
		return nil, fmt.Errorf("%w: draft %d can no longer be edited", ErrInvalidTransition, draftID)
	}

	tweets := make(models.DraftTweets, 0, len(texts))
	for i, text := range texts {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		tw := models.NewDraftTweet(text)
		if tw.CharCount > models.TweetLimit {
			return nil, validationErrorf("tweet %d has %d characters, the limit is %d", i+1, tw.CharCount, models.TweetLimit)
		}
		tweets = append(tweets, tw)
	}
	if len(tweets) == 0 {
		return nil, validationErrorf("a draft needs at least one tweet")
	}

	mode := models.ModeFor(len(tweets))
	if err := s.dr.UpdateTweets(ctx, draft.ID, mode, tweets); err != nil {
		return nil, err
	}

	draft.Mode = mode
	draft.Tweets = tweets
	return draft, nil
}
