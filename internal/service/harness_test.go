package service

import (
	"context"
	"testing"
	"time"

	config "github.com/maheshrc27/voicepost/configs"
	"github.com/maheshrc27/voicepost/internal/models"
	"github.com/maheshrc27/voicepost/internal/transfer"
	"github.com/maheshrc27/voicepost/pkg/utils"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

const exampleSentence = "Building an AI product that converts voice to Twitter posts."

type harness struct {
	cfg           config.Config
	recordings    *fakeRecordings
	transcripts   *fakeTranscripts
	drafts        *fakeDrafts
	posts         *fakePosts
	attachments   *fakeAttachments
	accounts      *fakeAccounts
	settingsRepo  *fakeSettings
	storage       *fakeStorage
	transcription *fakeTranscription
	drafting      *fakeDrafting
	twitter       *fakeTwitterClient
	enqueuer      *fakeEnqueuer
	sessions      AuthSessionStore

	auth     TwitterAuthService
	settings SettingsService
	publish  PublishService
	pipeline PipelineService
}

func testConfig() config.Config {
	cfg := config.Config{SecretKey: testSecret}
	cfg.Drafting = config.Drafting{SystemPrompt: "default prompt", Model: "gpt-4o-mini", Temperature: 0.7, MaxTokens: 500}
	cfg.Timeouts = config.Timeouts{Transcription: time.Second, Drafting: time.Second, Post: time.Second}
	cfg.Twitter = config.Twitter{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURI:  "http://localhost:3000/auth/twitter/callback",
		Scopes:       []string{"tweet.read", "tweet.write", "users.read", "offline.access"},
		AuthURL:      "https://twitter.com/i/oauth2/authorize",
		TokenURL:     "http://127.0.0.1:1/unused",
	}
	return cfg
}

func newHarness(t *testing.T, configure ...func(*config.Config)) *harness {
	t.Helper()
	cfg := testConfig()
	for _, fn := range configure {
		fn(&cfg)
	}

	h := &harness{
		cfg:          cfg,
		recordings:   newFakeRecordings(),
		transcripts:  newFakeTranscripts(),
		drafts:       newFakeDrafts(),
		posts:        &fakePosts{},
		attachments:  newFakeAttachments(),
		accounts:     &fakeAccounts{},
		settingsRepo: &fakeSettings{},
		storage:      newFakeStorage(),
		transcription: &fakeTranscription{result: &Transcription{
			Text: exampleSentence, Confidence: 0.9, Language: "english", DurationSeconds: 4,
		}},
		drafting: &fakeDrafting{result: parseDraft(`{"mode":"tweet","tweets":[{"text":"` + exampleSentence + `","char_count":63}]}`)},
		twitter:  &fakeTwitterClient{profile: &transfer.TwitterUser{ID: "42", Name: "Jane", Username: "jane"}},
		enqueuer: &fakeEnqueuer{},
		sessions: NewMemoryAuthSessionStore(),
	}

	h.auth = NewTwitterAuthService(cfg, h.accounts, h.sessions, h.twitter)
	h.settings = NewSettingsService(cfg, h.settingsRepo)
	h.publish = NewPublishService(h.drafts, h.recordings, h.posts, h.attachments, h.storage, h.auth, h.twitter, h.enqueuer)
	h.pipeline = NewPipelineService(cfg, h.recordings, h.transcripts, h.drafts, h.storage,
		h.transcription, h.drafting, h.publish, h.settings, h.enqueuer)
	return h
}

// connect stores a twitter account whose plaintext access token is
// accessToken.
func (h *harness) connect(t *testing.T, userID int64, accessToken, refreshToken string, expiresAt time.Time) *models.SocialAccount {
	t.Helper()
	acc := &models.SocialAccount{
		UserID:          userID,
		Platform:        models.PlatformTwitter,
		AccountID:       "42",
		AccountUsername: "jane",
		TokenExpiresAt:  expiresAt,
	}
	var err error
	acc.AccessToken, err = utils.Encrypt([]byte(accessToken), []byte(testSecret))
	require.NoError(t, err)
	if refreshToken != "" {
		acc.RefreshToken, err = utils.Encrypt([]byte(refreshToken), []byte(testSecret))
		require.NoError(t, err)
	}
	acc.ID, err = h.accounts.Create(context.Background(), nil, acc)
	require.NoError(t, err)
	return acc
}

// uploadedRecording creates a recording and puts its audio in storage.
func (h *harness) uploadedRecording(t *testing.T, userID int64) *models.Recording {
	t.Helper()
	target, err := h.pipeline.CreateRecording(context.Background(), userID, transfer.RecordingCreation{ContentType: "audio/webm"})
	require.NoError(t, err)
	require.NoError(t, h.storage.Upload(context.Background(), target.Recording.StorageKey, []byte("webm-audio"), "audio/webm"))
	return target.Recording
}

// readyDraft runs a recording through the pipeline without auto-post.
func (h *harness) readyDraft(t *testing.T, userID int64) *models.Draft {
	t.Helper()
	ctx := context.Background()
	rec := h.uploadedRecording(t, userID)
	_, err := h.pipeline.Ingest(ctx, userID, rec.ID, transfer.IngestRequest{AutoPost: boolPtr(false)})
	require.NoError(t, err)
	require.NoError(t, h.pipeline.Process(ctx, rec.ID, ProcessOptions{AutoPost: boolPtr(false)}))

	draft, err := h.drafts.GetByRecordingID(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, draft)
	return draft
}

func boolPtr(b bool) *bool {
	return &b
}
