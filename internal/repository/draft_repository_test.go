package repository

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/maheshrc27/voicepost/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type normalizedTweets struct{}

func (normalizedTweets) Match(v driver.Value) bool {
	b, ok := v.([]byte)
	if !ok {
		return false
	}
	var tweets []models.DraftTweet
	if err := json.Unmarshal(b, &tweets); err != nil {
		return false
	}
	for _, tw := range tweets {
		if tw.CharCount != len([]rune(tw.Text)) {
			return false
		}
	}
	return len(tweets) > 0
}

func TestDraftCreateStoresRecomputedCounts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO drafts")).
		WithArgs(int64(1), int64(2), "thread", normalizedTweets{}, "raw transcript").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(31))

	id, err := NewDraftRepository(db).Create(context.Background(), &models.Draft{
		RecordingID:  1,
		UserID:       2,
		Mode:         models.DraftModeThread,
		Tweets:       models.DraftTweets{{Text: "first", CharCount: 500}, {Text: "second", CharCount: 1}},
		OriginalText: "raw transcript",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(31), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDraftGetByIDDecodesTweets(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	cols := []string{"id", "recording_id", "user_id", "mode", "tweets", "original_text", "created_at", "updated_at"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM drafts WHERE id = $1")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(3, 1, 2, "tweet", []byte(`[{"text":"hi","char_count":2}]`), "hi", now, now))

	d, err := NewDraftRepository(db).GetByID(context.Background(), 3)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, models.DraftModeTweet, d.Mode)
	assert.Equal(t, models.DraftTweets{{Text: "hi", CharCount: 2}}, d.Tweets)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDraftClaimPublish(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	stale := now.Add(-10 * time.Minute)
	mock.ExpectExec(regexp.QuoteMeta("SET publishing_since = $2")).
		WithArgs(int64(5), now, stale).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET publishing_since = $2")).
		WithArgs(int64(5), now, stale).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("SET publishing_since = NULL WHERE id = $1")).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewDraftRepository(db)
	ok, err := repo.ClaimPublish(context.Background(), 5, now, stale)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ClaimPublish(context.Background(), 5, now, stale)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.ReleasePublish(context.Background(), 5))
	require.NoError(t, mock.ExpectationsWereMet())
}
