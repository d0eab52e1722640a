package transfer

import "github.com/maheshrc27/voicepost/internal/models"

type RecordingCreation struct {
	ContentType     string  `json:"content_type"`
	FileSize        int64   `json:"file_size"`
	DurationSeconds float64 `json:"duration_seconds"`
}

type UploadTarget struct {
	Recording *models.Recording `json:"recording"`
	UploadURL string            `json:"upload_url"`
}

// IngestRequest is sent once the browser has finished the upload. AutoPost
// overrides the user's setting when present.
type IngestRequest struct {
	AutoPost        *bool   `json:"auto_post"`
	FileSize        int64   `json:"file_size"`
	DurationSeconds float64 `json:"duration_seconds"`
}

type RecordingDetail struct {
	Recording  *models.Recording  `json:"recording"`
	Transcript *models.Transcript `json:"transcript,omitempty"`
	Draft      *models.Draft      `json:"draft,omitempty"`
}

type DraftUpdate struct {
	Tweets []string `json:"tweets"`
}

type AttachmentCreation struct {
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
	FileSize int64  `json:"file_size"`
}

type AttachmentTarget struct {
	Attachment *models.Attachment `json:"attachment"`
	UploadURL  string             `json:"upload_url"`
}

// SettingsUpdate changes only the fields that are present.
type SettingsUpdate struct {
	SystemPrompt *string `json:"system_prompt"`
	Model        *string `json:"model"`
	AutoPost     *bool   `json:"auto_post"`
}
