package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	processMaxRetry = 3
	publishMaxRetry = 2
	taskTimeout     = 5 * time.Minute
)

// Client enqueues pipeline tasks. It satisfies service.TaskEnqueuer.
type Client struct {
	asynqClient *asynq.Client
}

func NewClient(asynqClient *asynq.Client) *Client {
	return &Client{asynqClient: asynqClient}
}

func (c *Client) EnqueueProcessRecording(ctx context.Context, recordingID int64, autoPost *bool) error {
	payload := ProcessRecordingPayload{RecordingID: recordingID, AutoPost: autoPost}
	return c.enqueue(ctx, TaskTypeProcessRecording, payload, asynq.MaxRetry(processMaxRetry))
}

func (c *Client) EnqueuePublishDraft(ctx context.Context, userID, draftID int64) error {
	payload := PublishDraftPayload{UserID: userID, DraftID: draftID}
	return c.enqueue(ctx, TaskTypePublishDraft, payload, asynq.MaxRetry(publishMaxRetry))
}

func (c *Client) enqueue(ctx context.Context, taskType string, payload interface{}, opts ...asynq.Option) error {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	task := asynq.NewTask(taskType, taskPayload)

	opts = append(opts, asynq.Timeout(taskTimeout))
	info, err := c.asynqClient.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return err
	}

	slog.Info("task enqueued", "type", taskType, "task_id", info.ID, "payload", payload)
	return nil
}
