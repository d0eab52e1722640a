package models

import "time"

// Post is one attempt at publishing a draft. A failed attempt keeps the
// ids of the tweets that made it out before the failure.
type Post struct {
	ID           int64      `db:"id" json:"id"`
	UserID       int64      `db:"user_id" json:"user_id"`
	RecordingID  int64      `db:"recording_id" json:"recording_id"`
	DraftID      int64      `db:"draft_id" json:"draft_id"`
	AccountID    int64      `db:"account_id" json:"account_id"`
	TweetIDs     []string   `db:"tweet_ids" json:"tweet_ids"`
	PostedAt     *time.Time `db:"posted_at" json:"posted_at,omitempty"`
	ErrorMessage string     `db:"error_message" json:"error_message,omitempty"`
	RetryCount   int        `db:"retry_count" json:"retry_count"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

func (p *Post) Succeeded() bool {
	return p.ErrorMessage == "" && p.PostedAt != nil
}
