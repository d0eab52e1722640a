package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
	"unicode/utf8"
)

type DraftMode string

const (
	DraftModeTweet  DraftMode = "tweet"
	DraftModeThread DraftMode = "thread"
)

// TweetLimit is the character ceiling of a single tweet.
const TweetLimit = 280

// ModeFor picks the mode matching a number of tweets.
func ModeFor(n int) DraftMode {
	if n > 1 {
		return DraftModeThread
	}
	return DraftModeTweet
}

type DraftTweet struct {
	Text      string `json:"text"`
	CharCount int    `json:"char_count"`
}

// NewDraftTweet counts characters as Unicode code points.
func NewDraftTweet(text string) DraftTweet {
	return DraftTweet{Text: text, CharCount: utf8.RuneCountInString(text)}
}

// DraftTweets is stored as a JSONB column.
type DraftTweets []DraftTweet

func (t DraftTweets) Value() (driver.Value, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t)
}

func (t *DraftTweets) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	case nil:
		*t = nil
		return nil
	default:
		return errors.New("unsupported type for draft tweets")
	}
	return json.Unmarshal(data, t)
}

// Normalize recomputes every char count from the text.
func (t DraftTweets) Normalize() DraftTweets {
	out := make(DraftTweets, 0, len(t))
	for _, tw := range t {
		out = append(out, NewDraftTweet(tw.Text))
	}
	return out
}

func (t DraftTweets) Texts() []string {
	texts := make([]string, len(t))
	for i, tw := range t {
		texts[i] = tw.Text
	}
	return texts
}

type Draft struct {
	ID           int64       `db:"id" json:"id"`
	RecordingID  int64       `db:"recording_id" json:"recording_id"`
	UserID       int64       `db:"user_id" json:"user_id"`
	Mode         DraftMode   `db:"mode" json:"mode"`
	Tweets       DraftTweets `db:"tweets" json:"tweets"`
	OriginalText string      `db:"original_text" json:"original_text"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
}
