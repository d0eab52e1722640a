package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/alitto/pond/v2"
	"github.com/hibiken/asynq"
)

// InlineClient runs tasks in-process on a bounded pool. It stands in for
// Client when no Redis is configured; tasks are not retried and do not
// survive a restart.
type InlineClient struct {
	pool  pond.Pool
	queue *Queue
}

func NewInlineClient(concurrency int) *InlineClient {
	return &InlineClient{pool: pond.NewPool(concurrency)}
}

// Attach sets the handlers tasks are dispatched to. It must be called
// before the first enqueue.
func (c *InlineClient) Attach(q *Queue) {
	c.queue = q
}

func (c *InlineClient) EnqueueProcessRecording(_ context.Context, recordingID int64, autoPost *bool) error {
	payload := ProcessRecordingPayload{RecordingID: recordingID, AutoPost: autoPost}
	return c.submit(TaskTypeProcessRecording, payload, func(ctx context.Context, task *asynq.Task) error {
		return c.queue.HandleProcessRecordingTask(ctx, task)
	})
}

func (c *InlineClient) EnqueuePublishDraft(_ context.Context, userID, draftID int64) error {
	payload := PublishDraftPayload{UserID: userID, DraftID: draftID}
	return c.submit(TaskTypePublishDraft, payload, func(ctx context.Context, task *asynq.Task) error {
		return c.queue.HandlePublishDraftTask(ctx, task)
	})
}

func (c *InlineClient) submit(taskType string, payload interface{}, handle asynq.HandlerFunc) error {
	if c.queue == nil {
		return errors.New("inline queue has no handlers attached")
	}
	if c.pool.Stopped() {
		return errors.New("inline queue is stopped")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	task := asynq.NewTask(taskType, data)

	// The request context ends with the response; tasks get their own.
	c.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
		defer cancel()
		if err := handle(ctx, task); err != nil {
			slog.Info("inline task failed", "type", taskType, "error", err)
		}
	})

	slog.Info("task submitted inline", "type", taskType, "payload", payload)
	return nil
}

// Stop waits for running tasks to finish.
func (c *InlineClient) Stop() {
	c.pool.StopAndWait()
}
