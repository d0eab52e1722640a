package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/imroc/req/v3"
	config "github.com/maheshrc27/voicepost/configs"
	"github.com/maheshrc27/voicepost/internal/models"
	"github.com/maheshrc27/voicepost/internal/transfer"
	"github.com/tidwall/gjson"
)

const (
	interPostDelay   = 500 * time.Millisecond
	rateLimitBackoff = 5 * time.Second
)

// ThreadTweet is one tweet of a thread. ReplyTo is only read on the first
// tweet, to continue a thread that is already on Twitter.
type ThreadTweet struct {
	Text     string
	MediaIDs []string
	ReplyTo  string
}

// TwitterClient talks to the Twitter/X v2 REST API on behalf of one user
// access token.
type TwitterClient interface {
	PostThread(ctx context.Context, accessToken string, tweets []ThreadTweet) ([]string, error)
	UploadMedia(ctx context.Context, accessToken string, data []byte, mimeType string, mediaType models.MediaType) (string, error)
	Me(ctx context.Context, accessToken string) (*transfer.TwitterUser, error)
	Revoke(ctx context.Context, accessToken string) error
}

type twitterClient struct {
	client           *req.Client
	baseURL          string
	clientID         string
	clientSecret     string
	postTimeout      time.Duration
	interPostDelay   time.Duration
	rateLimitBackoff time.Duration
	sleep            func(ctx context.Context, d time.Duration) error
}

func NewTwitterClient(cfg config.Config) TwitterClient {
	return newTwitterClient(cfg)
}

func newTwitterClient(cfg config.Config) *twitterClient {
	postTimeout := cfg.Timeouts.Post
	if postTimeout <= 0 {
		postTimeout = 10 * time.Second
	}
	return &twitterClient{
		client:           req.C().SetUserAgent("voicepost/1.0"),
		baseURL:          strings.TrimRight(cfg.Twitter.APIBaseURL, "/"),
		clientID:         cfg.Twitter.ClientID,
		clientSecret:     cfg.Twitter.ClientSecret,
		postTimeout:      postTimeout,
		interPostDelay:   interPostDelay,
		rateLimitBackoff: rateLimitBackoff,
		sleep:            sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// PostThread posts tweets strictly in order, each one replying to the one
// before it. A rate limited tweet is retried once after a backoff; any other
// failure stops the thread. On failure the returned ids and the
// *ThreadError both hold the tweets that were already posted.
func (c *twitterClient) PostThread(ctx context.Context, accessToken string, tweets []ThreadTweet) ([]string, error) {
	ids := make([]string, 0, len(tweets))

	for i, tw := range tweets {
		if i > 0 {
			if err := c.sleep(ctx, c.interPostDelay); err != nil {
				return ids, &ThreadError{Posted: ids, Index: i, Err: err}
			}
		}

		replyTo := tw.ReplyTo
		if i > 0 {
			replyTo = ids[i-1]
		}

		retries := 0
		id, err := c.postTweet(ctx, accessToken, tw, replyTo)
		if errors.Is(err, ErrRateLimited) {
			slog.Warn("rate limited while posting thread, backing off", "index", i, "backoff", c.rateLimitBackoff)
			if err := c.sleep(ctx, c.rateLimitBackoff); err != nil {
				return ids, &ThreadError{Posted: ids, Index: i, Err: err}
			}
			retries++
			id, err = c.postTweet(ctx, accessToken, tw, replyTo)
		}
		if err != nil {
			slog.Info("thread posting stopped", "index", i, "posted", len(ids), "error", err)
			return ids, &ThreadError{Posted: ids, Index: i, Retries: retries, Err: err}
		}

		ids = append(ids, id)
	}

	return ids, nil
}

func (c *twitterClient) postTweet(ctx context.Context, accessToken string, tw ThreadTweet, replyTo string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.postTimeout)
	defer cancel()

	body := transfer.CreateTweetRequest{Text: tw.Text}
	if replyTo != "" {
		body.Reply = &transfer.TweetReply{InReplyToTweetID: replyTo}
	}
	if len(tw.MediaIDs) > 0 {
		body.Media = &transfer.TweetMedia{MediaIDs: tw.MediaIDs}
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBearerAuthToken(accessToken).
		SetBodyJsonMarshal(body).
		Post(c.baseURL + "/2/tweets")
	if err != nil {
		return "", fmt.Errorf("%w: post tweet: %v", ErrProvider, err)
	}

	raw := resp.String()
	if err := classifyTwitterResponse(resp.StatusCode, raw); err != nil {
		return "", err
	}

	id := gjson.Get(raw, "data.id").String()
	if id == "" {
		return "", fmt.Errorf("%w: tweet created without id: %s", ErrProvider, truncateDetail(raw))
	}
	return id, nil
}

// classifyTwitterResponse maps a Twitter response onto the error taxonomy.
// Twitter sometimes reports rate limiting in the body rather than the status
// line.
func classifyTwitterResponse(status int, body string) error {
	if status == http.StatusTooManyRequests || gjson.Get(body, "status").Int() == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	switch {
	case status == http.StatusUnauthorized:
		return ErrAuthExpired
	case status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrPermissionDenied, twitterErrorDetail(body))
	case status >= 300:
		return fmt.Errorf("%w: twitter status %d: %s", ErrProvider, status, twitterErrorDetail(body))
	}
	return nil
}

func twitterErrorDetail(body string) string {
	for _, path := range []string{"detail", "errors.0.message", "title", "error_description", "error"} {
		if v := gjson.Get(body, path); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return truncateDetail(body)
}

func truncateDetail(s string) string {
	const limit = 300
	if len(s) > limit {
		return s[:limit]
	}
	return s
}

// UploadMedia uses the one-shot v2 media upload. Videos need the chunked
// INIT/APPEND/FINALIZE flow and are rejected.
func (c *twitterClient) UploadMedia(ctx context.Context, accessToken string, data []byte, mimeType string, mediaType models.MediaType) (string, error) {
	var category string
	switch mediaType {
	case models.MediaImage:
		category = "tweet_image"
	case models.MediaGIF:
		category = "tweet_gif"
	default:
		// TODO: chunked upload for tweet_video
		return "", validationErrorf("%s attachments cannot be uploaded yet", mediaType)
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBearerAuthToken(accessToken).
		SetFileBytes("media", "upload", data).
		SetFormData(map[string]string{
			"media_category": category,
			"media_type":     mimeType,
		}).
		Post(c.baseURL + "/2/media/upload")
	if err != nil {
		return "", fmt.Errorf("%w: upload media: %v", ErrProvider, err)
	}

	raw := resp.String()
	if err := classifyTwitterResponse(resp.StatusCode, raw); err != nil {
		return "", err
	}

	id := gjson.Get(raw, "data.id").String()
	if id == "" {
		id = gjson.Get(raw, "media_id_string").String()
	}
	if id == "" {
		return "", fmt.Errorf("%w: media uploaded without id: %s", ErrProvider, truncateDetail(raw))
	}
	return id, nil
}

func (c *twitterClient) Me(ctx context.Context, accessToken string) (*transfer.TwitterUser, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBearerAuthToken(accessToken).
		SetQueryParam("user.fields", "profile_image_url").
		Get(c.baseURL + "/2/users/me")
	if err != nil {
		return nil, fmt.Errorf("%w: fetch profile: %v", ErrProvider, err)
	}

	raw := resp.String()
	if err := classifyTwitterResponse(resp.StatusCode, raw); err != nil {
		return nil, err
	}

	data := gjson.Get(raw, "data")
	user := &transfer.TwitterUser{
		ID:              data.Get("id").String(),
		Name:            data.Get("name").String(),
		Username:        data.Get("username").String(),
		ProfileImageURL: data.Get("profile_image_url").String(),
	}
	if user.ID == "" {
		return nil, fmt.Errorf("%w: profile without id", ErrProvider)
	}
	return user, nil
}

func (c *twitterClient) Revoke(ctx context.Context, accessToken string) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBasicAuth(c.clientID, c.clientSecret).
		SetFormData(map[string]string{
			"token":           accessToken,
			"token_type_hint": "access_token",
			"client_id":       c.clientID,
		}).
		Post(c.baseURL + "/2/oauth2/revoke")
	if err != nil {
		return fmt.Errorf("%w: revoke: %v", ErrProvider, err)
	}
	return classifyTwitterResponse(resp.StatusCode, resp.String())
}
