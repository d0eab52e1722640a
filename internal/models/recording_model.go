package models

import "time"

type RecordingStatus string

const (
	RecordingUploaded     RecordingStatus = "uploaded"
	RecordingTranscribing RecordingStatus = "transcribing"
	RecordingDrafting     RecordingStatus = "drafting"
	RecordingReady        RecordingStatus = "ready"
	RecordingPosted       RecordingStatus = "posted"
	RecordingFailed       RecordingStatus = "failed"

	// RecordingUnknown is what a value outside the closed set parses to.
	// Callers treat it as non-terminal.
	RecordingUnknown RecordingStatus = "unknown"
)

var recordingTransitions = map[RecordingStatus][]RecordingStatus{
	RecordingUploaded:     {RecordingTranscribing, RecordingFailed},
	RecordingTranscribing: {RecordingDrafting, RecordingFailed},
	RecordingDrafting:     {RecordingReady, RecordingFailed},
	RecordingReady:        {RecordingPosted, RecordingFailed},
}

func ParseRecordingStatus(s string) RecordingStatus {
	switch st := RecordingStatus(s); st {
	case RecordingUploaded, RecordingTranscribing, RecordingDrafting,
		RecordingReady, RecordingPosted, RecordingFailed:
		return st
	default:
		return RecordingUnknown
	}
}

// CanTransition reports whether to is a single forward step from s.
func (s RecordingStatus) CanTransition(to RecordingStatus) bool {
	for _, next := range recordingTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type Recording struct {
	ID              int64           `db:"id" json:"id"`
	UserID          int64           `db:"user_id" json:"user_id"`
	StorageKey      string          `db:"storage_key" json:"storage_key"`
	ContentType     string          `db:"content_type" json:"content_type"`
	Status          RecordingStatus `db:"status" json:"status"`
	FileSize        int64           `db:"file_size" json:"file_size"`
	DurationSeconds float64         `db:"duration_seconds" json:"duration_seconds"`
	ErrorMessage    string          `db:"error_message" json:"error_message,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}
