package models

import "time"

type Transcript struct {
	ID          int64     `db:"id" json:"id"`
	RecordingID int64     `db:"recording_id" json:"recording_id"`
	Text        string    `db:"text" json:"text"`
	Confidence  float64   `db:"confidence" json:"confidence"`
	Language    string    `db:"language" json:"language"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
