package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/lib/pq"
	"github.com/maheshrc27/voicepost/internal/models"
)

type PostRepository interface {
	Create(ctx context.Context, post *models.Post) (int64, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.Post, error)
	ListByDraftID(ctx context.Context, draftID int64) ([]*models.Post, error)
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, user_id, recording_id, draft_id, account_id, tweet_ids, posted_at, error_message, retry_count, created_at`

func (r *postRepository) Create(ctx context.Context, post *models.Post) (int64, error) {
	query := `
		INSERT INTO posts (user_id, recording_id, draft_id, account_id, tweet_ids, posted_at, error_message, retry_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	var postedAt sql.NullTime
	if post.PostedAt != nil {
		postedAt = sql.NullTime{Time: *post.PostedAt, Valid: true}
	}
	errorMessage := sql.NullString{String: post.ErrorMessage, Valid: post.ErrorMessage != ""}
	tweetIDs := post.TweetIDs
	if tweetIDs == nil {
		tweetIDs = []string{}
	}

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		post.UserID, post.RecordingID, post.DraftID, post.AccountID,
		pq.Array(tweetIDs), postedAt, errorMessage, post.RetryCount,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *postRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	return r.list(ctx, `SELECT `+postColumns+` FROM posts WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *postRepository) ListByDraftID(ctx context.Context, draftID int64) ([]*models.Post, error) {
	return r.list(ctx, `SELECT `+postColumns+` FROM posts WHERE draft_id = $1 ORDER BY created_at DESC, id DESC`, draftID)
}

func (r *postRepository) list(ctx context.Context, query string, arg int64) ([]*models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		var post models.Post
		var tweetIDs pq.StringArray
		var postedAt sql.NullTime
		var errorMessage sql.NullString
		err := rows.Scan(&post.ID, &post.UserID, &post.RecordingID, &post.DraftID, &post.AccountID,
			&tweetIDs, &postedAt, &errorMessage, &post.RetryCount, &post.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		post.TweetIDs = []string(tweetIDs)
		if postedAt.Valid {
			t := postedAt.Time
			post.PostedAt = &t
		}
		post.ErrorMessage = errorMessage.String
		posts = append(posts, &post)
	}
	return posts, rows.Err()
}
