package queue

import (
	"github.com/maheshrc27/voicepost/internal/service"
)

const (
	TaskTypeProcessRecording = "recording:process"
	TaskTypePublishDraft     = "draft:publish"
)

type ProcessRecordingPayload struct {
	RecordingID int64 `json:"recording_id"`
	AutoPost    *bool `json:"auto_post,omitempty"`
}

type PublishDraftPayload struct {
	UserID  int64 `json:"user_id"`
	DraftID int64 `json:"draft_id"`
}

// Queue runs the background half of the pipeline.
type Queue struct {
	pipeline service.PipelineService
	publish  service.PublishService
}

func NewQueue(pipeline service.PipelineService, publish service.PublishService) *Queue {
	return &Queue{
		pipeline: pipeline,
		publish:  publish,
	}
}
