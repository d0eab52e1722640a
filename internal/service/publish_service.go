package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/h2non/filetype"
	"github.com/maheshrc27/voicepost/internal/models"
	"github.com/maheshrc27/voicepost/internal/repository"
)

const (
	// maxTweetMedia is Twitter's per-tweet media limit.
	maxTweetMedia = 4

	// publishClaimTTL bounds how long a crashed publisher keeps a draft
	// claimed.
	publishClaimTTL = 10 * time.Minute
)

type PublishService interface {
	PublishDraft(ctx context.Context, userID, draftID int64) (*models.Post, error)
	EnqueuePublish(ctx context.Context, userID, draftID int64) error
	ListPosts(ctx context.Context, userID int64) ([]*models.Post, error)
}

type publishService struct {
	dr       repository.DraftRepository
	rr       repository.RecordingRepository
	pr       repository.PostRepository
	ar       repository.AttachmentRepository
	storage  StorageService
	auth     TwitterAuthService
	twitter  TwitterClient
	enqueuer TaskEnqueuer
	now      func() time.Time
}

func NewPublishService(
	dr repository.DraftRepository,
	rr repository.RecordingRepository,
	pr repository.PostRepository,
	ar repository.AttachmentRepository,
	storage StorageService,
	auth TwitterAuthService,
	twitter TwitterClient,
	enqueuer TaskEnqueuer) PublishService {
	return &publishService{
		dr:       dr,
		rr:       rr,
		pr:       pr,
		ar:       ar,
		storage:  storage,
		auth:     auth,
		twitter:  twitter,
		enqueuer: enqueuer,
		now:      time.Now,
	}
}

// loadPublishable returns the draft and its recording when the user owns
// them and the recording is waiting to be posted.
func (s *publishService) loadPublishable(ctx context.Context, userID, draftID int64) (*models.Draft, *models.Recording, error) {
	draft, err := s.dr.GetByID(ctx, draftID)
	if err != nil {
		return nil, nil, err
	}
	if draft == nil || draft.UserID != userID {
		return nil, nil, fmt.Errorf("draft %d: %w", draftID, ErrNotFound)
	}

	rec, err := s.rr.GetByID(ctx, draft.RecordingID)
	if err != nil {
		return nil, nil, err
	}
	if rec == nil || rec.UserID != userID {
		return nil, nil, fmt.Errorf("recording %d: %w", draft.RecordingID, ErrNotFound)
	}
	if rec.Status != models.RecordingReady {
		return nil, nil, fmt.Errorf("%w: recording %d is %s", ErrInvalidTransition, rec.ID, rec.Status)
	}
	if len(draft.Tweets) == 0 {
		return nil, nil, validationErrorf("draft %d has no tweets", draftID)
	}
	return draft, rec, nil
}

// PublishDraft posts the draft as a tweet or thread from the user's own
// account. The draft is claimed first, so only one publisher can be posting
// it at a time. A failed attempt is still recorded as a post row carrying
// the error and the prefix of the thread that went out; the recording stays
// ready and the next attempt continues after that prefix.
func (s *publishService) PublishDraft(ctx context.Context, userID, draftID int64) (*models.Post, error) {
	if _, _, err := s.loadPublishable(ctx, userID, draftID); err != nil {
		return nil, err
	}

	now := s.now()
	claimed, err := s.dr.ClaimPublish(ctx, draftID, now, now.Add(-publishClaimTTL))
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, fmt.Errorf("draft %d: %w", draftID, ErrPublishInProgress)
	}
	defer s.release(ctx, draftID)

	// A publisher that finished before the claim has moved the recording on.
	draft, rec, err := s.loadPublishable(ctx, userID, draftID)
	if err != nil {
		return nil, err
	}

	acc, err := s.auth.ResolveAccountForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	token, err := s.auth.AccessToken(ctx, acc)
	if err != nil {
		if errors.Is(err, ErrRefreshFailed) {
			return nil, fmt.Errorf("%w: %w", ErrAuthExpired, err)
		}
		return nil, err
	}

	prefix, err := s.postedPrefix(ctx, draft.ID)
	if err != nil {
		return nil, err
	}

	texts := draft.Tweets.Texts()
	if len(prefix) > len(texts) {
		prefix = prefix[:len(texts)]
	}
	tweets := make([]ThreadTweet, 0, len(texts)-len(prefix))
	for _, text := range texts[len(prefix):] {
		tweets = append(tweets, ThreadTweet{Text: text})
	}

	if len(prefix) == 0 {
		mediaIDs, err := s.uploadAttachments(ctx, token, draft.ID)
		if err != nil {
			return nil, err
		}
		tweets[0].MediaIDs = mediaIDs
	} else if len(tweets) > 0 {
		tweets[0].ReplyTo = prefix[len(prefix)-1]
		slog.Info("continuing partially posted thread", "draft_id", draft.ID, "posted", len(prefix), "remaining", len(tweets))
	}

	ids, postErr := s.twitter.PostThread(ctx, token, tweets)

	post := &models.Post{
		UserID:      userID,
		RecordingID: rec.ID,
		DraftID:     draft.ID,
		AccountID:   acc.ID,
		TweetIDs:    append(append([]string(nil), prefix...), ids...),
	}
	if postErr != nil {
		post.ErrorMessage = postErr.Error()
		var te *ThreadError
		if errors.As(postErr, &te) {
			post.RetryCount = te.Retries
		}
	} else {
		posted := s.now().UTC()
		post.PostedAt = &posted
	}

	id, err := s.pr.Create(ctx, post)
	if err != nil {
		slog.Error("failed to record post", "draft_id", draft.ID, "tweet_ids", post.TweetIDs, "error", err)
	}
	post.ID = id

	if postErr != nil {
		slog.Info("publishing draft failed", "draft_id", draft.ID, "posted", len(post.TweetIDs), "error", postErr)
		return post, postErr
	}

	ok, err := moveRecording(ctx, s.rr, rec.ID, models.RecordingReady, models.RecordingPosted)
	if err != nil {
		slog.Error("failed to mark recording posted", "recording_id", rec.ID, "error", err)
	} else if !ok {
		slog.Warn("recording left ready before it was marked posted", "recording_id", rec.ID)
	}

	slog.Info("draft published", "draft_id", draft.ID, "recording_id", rec.ID, "tweets", len(post.TweetIDs))
	return post, nil
}

func (s *publishService) release(ctx context.Context, draftID int64) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.dr.ReleasePublish(rctx, draftID); err != nil {
		slog.Warn("failed to release draft", "draft_id", draftID, "error", err)
	}
}

// postedPrefix returns the tweet ids the latest attempt got out before it
// failed, or nil when there is nothing to continue.
func (s *publishService) postedPrefix(ctx context.Context, draftID int64) ([]string, error) {
	posts, err := s.pr.ListByDraftID(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 || posts[0].Succeeded() {
		return nil, nil
	}
	return posts[0].TweetIDs, nil
}

func (s *publishService) uploadAttachments(ctx context.Context, token string, draftID int64) ([]string, error) {
	attachments, err := s.ar.ListByDraftID(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if len(attachments) > maxTweetMedia {
		return nil, validationErrorf("a tweet carries at most %d attachments", maxTweetMedia)
	}

	ids := make([]string, 0, len(attachments))
	for _, a := range attachments {
		data, err := s.storage.Download(ctx, a.StorageKey)
		if err != nil {
			return nil, err
		}
		if err := checkAttachmentContent(a, data); err != nil {
			return nil, err
		}
		id, err := s.twitter.UploadMedia(ctx, token, data, a.MimeType, a.MediaType)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// checkAttachmentContent sniffs bytes the browser uploaded straight to
// storage against the media type declared when the attachment was created.
func checkAttachmentContent(a *models.Attachment, data []byte) error {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return validationErrorf("attachment %d is not a recognized media file", a.ID)
	}
	got, ok := models.MediaTypeFromMime(kind.MIME.Value)
	if !ok || got != a.MediaType {
		return validationErrorf("attachment %d holds %s, not %s", a.ID, kind.MIME.Value, a.MediaType)
	}
	return nil
}

// EnqueuePublish checks the draft up front so the caller gets a useful
// error instead of a silently dropped task.
func (s *publishService) EnqueuePublish(ctx context.Context, userID, draftID int64) error {
	if _, _, err := s.loadPublishable(ctx, userID, draftID); err != nil {
		return err
	}
	return s.enqueuer.EnqueuePublishDraft(ctx, userID, draftID)
}

func (s *publishService) ListPosts(ctx context.Context, userID int64) ([]*models.Post, error) {
	return s.pr.ListByUserID(ctx, userID)
}
