package models

import (
	"fmt"
	"strings"
	"time"
)

type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
	MediaGIF   MediaType = "gif"
)

const (
	MaxImageSize int64 = 5 << 20
	MaxGIFSize   int64 = 15 << 20
	MaxVideoSize int64 = 512 << 20
)

func MediaTypeFromMime(mime string) (MediaType, bool) {
	mime = strings.ToLower(strings.TrimSpace(mime))
	switch {
	case mime == "image/gif":
		return MediaGIF, true
	case strings.HasPrefix(mime, "image/"):
		return MediaImage, true
	case strings.HasPrefix(mime, "video/"):
		return MediaVideo, true
	default:
		return "", false
	}
}

func (m MediaType) MaxSize() int64 {
	switch m {
	case MediaImage:
		return MaxImageSize
	case MediaGIF:
		return MaxGIFSize
	case MediaVideo:
		return MaxVideoSize
	default:
		return 0
	}
}

func (m MediaType) CheckSize(size int64) error {
	if size <= 0 {
		return fmt.Errorf("file size must be positive")
	}
	if max := m.MaxSize(); size > max {
		return fmt.Errorf("%s exceeds %d bytes", m, max)
	}
	return nil
}

type Attachment struct {
	ID         int64     `db:"id" json:"id"`
	DraftID    int64     `db:"draft_id" json:"draft_id"`
	UserID     int64     `db:"user_id" json:"user_id"`
	StorageKey string    `db:"storage_key" json:"storage_key"`
	FileName   string    `db:"file_name" json:"file_name"`
	FileSize   int64     `db:"file_size" json:"file_size"`
	MimeType   string    `db:"mime_type" json:"mime_type"`
	MediaType  MediaType `db:"media_type" json:"media_type"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
