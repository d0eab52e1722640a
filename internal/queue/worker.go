package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/voicepost/internal/service"
)

// Register wires the task handlers into mux.
func (j *Queue) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskTypeProcessRecording, j.HandleProcessRecordingTask)
	mux.HandleFunc(TaskTypePublishDraft, j.HandlePublishDraftTask)
}

func (j *Queue) HandleProcessRecordingTask(ctx context.Context, task *asynq.Task) error {
	var payload ProcessRecordingPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}

	opts := service.ProcessOptions{AutoPost: payload.AutoPost, WillRetry: willRetry(ctx)}
	if err := j.pipeline.Process(ctx, payload.RecordingID, opts); err != nil {
		slog.Info("processing recording failed", "recording_id", payload.RecordingID, "error", err)
		return withRetryPolicy(err)
	}
	return nil
}

func (j *Queue) HandlePublishDraftTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishDraftPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}

	if _, err := j.publish.PublishDraft(ctx, payload.UserID, payload.DraftID); err != nil {
		slog.Info("publishing draft failed", "draft_id", payload.DraftID, "error", err)
		return withRetryPolicy(err)
	}
	return nil
}

// willRetry reports whether asynq delivers the task again if this run fails.
// Tasks run outside an asynq worker are never retried.
func willRetry(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return false
	}
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	if !ok {
		return false
	}
	return retried < maxRetry
}

// withRetryPolicy marks errors that a retry cannot fix. A partial thread is
// retried; the next run continues after the tweets already posted.
func withRetryPolicy(err error) error {
	switch {
	case errors.Is(err, service.ErrRecordingFailed),
		errors.Is(err, service.ErrPublishInProgress),
		errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrPermissionDenied),
		service.NeedsReconnect(err):
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	default:
		return err
	}
}
