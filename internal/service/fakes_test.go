package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/maheshrc27/voicepost/internal/models"
	"github.com/maheshrc27/voicepost/internal/repository"
	"github.com/maheshrc27/voicepost/internal/transfer"
)

type fakeRecordings struct {
	mu      sync.Mutex
	nextID  int64
	rows    map[int64]*models.Recording
	history map[int64][]models.RecordingStatus
}

func newFakeRecordings() *fakeRecordings {
	return &fakeRecordings{rows: map[int64]*models.Recording{}, history: map[int64][]models.RecordingStatus{}}
}

func (f *fakeRecordings) Create(_ context.Context, _ *sql.Tx, rec *models.Recording) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c := *rec
	c.ID = f.nextID
	c.Status = models.RecordingUploaded
	f.rows[c.ID] = &c
	f.history[c.ID] = []models.RecordingStatus{c.Status}
	return c.ID, nil
}

func (f *fakeRecordings) GetByID(_ context.Context, id int64) (*models.Recording, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	c := *rec
	return &c, nil
}

func (f *fakeRecordings) ListByUserID(_ context.Context, userID int64) ([]*models.Recording, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Recording
	for _, rec := range f.rows {
		if rec.UserID == userID {
			c := *rec
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeRecordings) CompareAndSetStatus(_ context.Context, id int64, from, to models.RecordingStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.rows[id]
	if !ok || rec.Status != from {
		return false, nil
	}
	if !from.CanTransition(to) {
		return false, fmt.Errorf("illegal transition %s -> %s", from, to)
	}
	rec.Status = to
	f.history[id] = append(f.history[id], to)
	return true, nil
}

func (f *fakeRecordings) SetFailed(_ context.Context, id int64, from models.RecordingStatus, reason string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.rows[id]
	if !ok || rec.Status != from {
		return false, nil
	}
	rec.Status = models.RecordingFailed
	rec.ErrorMessage = reason
	f.history[id] = append(f.history[id], models.RecordingFailed)
	return true, nil
}

func (f *fakeRecordings) UpdateUpload(_ context.Context, id int64, fileSize int64, durationSeconds float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec, ok := f.rows[id]; ok {
		rec.FileSize, rec.DurationSeconds = fileSize, durationSeconds
	}
	return nil
}

func (f *fakeRecordings) Remove(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, id)
	return nil
}

func (f *fakeRecordings) statusHistory(id int64) []models.RecordingStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.RecordingStatus(nil), f.history[id]...)
}

type fakeTranscripts struct {
	mu   sync.Mutex
	rows map[int64]*models.Transcript
}

func newFakeTranscripts() *fakeTranscripts {
	return &fakeTranscripts{rows: map[int64]*models.Transcript{}}
}

func (f *fakeTranscripts) Create(_ context.Context, t *models.Transcript) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[t.RecordingID]; ok {
		return 0, errors.New("duplicate transcript")
	}
	c := *t
	c.ID = int64(len(f.rows) + 1)
	f.rows[t.RecordingID] = &c
	return c.ID, nil
}

func (f *fakeTranscripts) GetByRecordingID(_ context.Context, recordingID int64) (*models.Transcript, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[recordingID], nil
}

type fakeDrafts struct {
	mu      sync.Mutex
	nextID  int64
	rows    map[int64]*models.Draft
	claimed map[int64]time.Time
}

func newFakeDrafts() *fakeDrafts {
	return &fakeDrafts{rows: map[int64]*models.Draft{}, claimed: map[int64]time.Time{}}
}

func (f *fakeDrafts) Create(_ context.Context, d *models.Draft) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c := *d
	c.ID = f.nextID
	c.Tweets = d.Tweets.Normalize()
	f.rows[c.ID] = &c
	return c.ID, nil
}

func (f *fakeDrafts) GetByID(_ context.Context, id int64) (*models.Draft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	c := *d
	return &c, nil
}

func (f *fakeDrafts) GetByRecordingID(_ context.Context, recordingID int64) (*models.Draft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.rows {
		if d.RecordingID == recordingID {
			c := *d
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeDrafts) ListByUserID(_ context.Context, userID int64) ([]*models.Draft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Draft
	for _, d := range f.rows {
		if d.UserID == userID {
			c := *d
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeDrafts) UpdateTweets(_ context.Context, id int64, mode models.DraftMode, tweets models.DraftTweets) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.rows[id]
	if !ok {
		return sql.ErrNoRows
	}
	d.Mode = mode
	d.Tweets = tweets.Normalize()
	return nil
}

func (f *fakeDrafts) ClaimPublish(_ context.Context, id int64, now, staleBefore time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return false, nil
	}
	if since, ok := f.claimed[id]; ok && !since.Before(staleBefore) {
		return false, nil
	}
	f.claimed[id] = now
	return true, nil
}

func (f *fakeDrafts) ReleasePublish(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.claimed, id)
	return nil
}

func (f *fakeDrafts) isClaimed(id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.claimed[id]
	return ok
}

type fakePosts struct {
	mu   sync.Mutex
	rows []*models.Post
}

func (f *fakePosts) Create(_ context.Context, p *models.Post) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *p
	c.ID = int64(len(f.rows) + 1)
	f.rows = append(f.rows, &c)
	return c.ID, nil
}

func (f *fakePosts) ListByUserID(_ context.Context, userID int64) ([]*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Post
	for _, p := range f.rows {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePosts) ListByDraftID(_ context.Context, draftID int64) ([]*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Post
	for i := len(f.rows) - 1; i >= 0; i-- {
		if p := f.rows[i]; p.DraftID == draftID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeAttachments struct {
	mu   sync.Mutex
	rows map[int64]*models.Attachment
}

func newFakeAttachments() *fakeAttachments {
	return &fakeAttachments{rows: map[int64]*models.Attachment{}}
}

func (f *fakeAttachments) Create(_ context.Context, a *models.Attachment) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *a
	c.ID = int64(len(f.rows) + 1)
	f.rows[c.ID] = &c
	return c.ID, nil
}

func (f *fakeAttachments) GetByID(_ context.Context, id int64) (*models.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[id], nil
}

func (f *fakeAttachments) ListByDraftID(_ context.Context, draftID int64) ([]*models.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Attachment
	for _, a := range f.rows {
		if a.DraftID == draftID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeAttachments) Remove(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, id)
	return nil
}

type fakeAccounts struct {
	mu          sync.Mutex
	rows        []*models.SocialAccount
	setTokenErr error
}

func (f *fakeAccounts) Create(_ context.Context, _ *sql.Tx, sa *models.SocialAccount) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *sa
	c.ID = int64(len(f.rows) + 1)
	c.CreatedAt = time.Now()
	f.rows = append(f.rows, &c)
	return c.ID, nil
}

func (f *fakeAccounts) GetByID(_ context.Context, id int64) (*models.SocialAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sa := range f.rows {
		if sa.ID == id {
			c := *sa
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeAccounts) GetLatestValidByUserID(_ context.Context, userID int64, platform string) (*models.SocialAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.rows) - 1; i >= 0; i-- {
		sa := f.rows[i]
		if sa.UserID == userID && sa.Platform == platform && sa.AccessToken != models.DisconnectedToken {
			c := *sa
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeAccounts) ListByUserID(_ context.Context, userID int64) ([]*models.SocialAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.SocialAccount
	for _, sa := range f.rows {
		if sa.UserID == userID {
			c := *sa
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeAccounts) ListExpiring(_ context.Context, before time.Time) ([]*models.SocialAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.SocialAccount
	for _, sa := range f.rows {
		if sa.TokenExpiresAt.Before(before) && sa.IsConnected() && sa.RefreshToken != "" {
			c := *sa
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeAccounts) SetToken(_ context.Context, id int64, oldAccessToken string, sa *models.SocialAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setTokenErr != nil {
		return f.setTokenErr
	}
	for _, row := range f.rows {
		if row.ID == id && row.AccessToken == oldAccessToken {
			row.AccessToken = sa.AccessToken
			if sa.RefreshToken != "" {
				row.RefreshToken = sa.RefreshToken
			}
			row.TokenExpiresAt = sa.TokenExpiresAt
			row.NeedsReauth = false
			return nil
		}
	}
	return repository.ErrTokenChanged
}

func (f *fakeAccounts) SetNeedsReauth(_ context.Context, id int64, needsReauth bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.ID == id {
			row.NeedsReauth = needsReauth
		}
	}
	return nil
}

func (f *fakeAccounts) Disconnect(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.ID == id {
			row.AccessToken = models.DisconnectedToken
			row.RefreshToken = ""
			row.TokenExpiresAt = time.Unix(0, 0).UTC()
			return nil
		}
	}
	return sql.ErrNoRows
}

type fakeSettings struct {
	mu   sync.Mutex
	rows map[int64]*models.Settings
}

func (f *fakeSettings) GetByUserID(_ context.Context, userID int64) (*models.Settings, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[userID]
	if !ok {
		return nil, false, nil
	}
	c := *s
	return &c, true, nil
}

func (f *fakeSettings) Upsert(_ context.Context, s *models.Settings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rows == nil {
		f.rows = map[int64]*models.Settings{}
	}
	c := *s
	f.rows[s.UserID] = &c
	return nil
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	removed []string
	err     error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}}
}

func (f *fakeStorage) CreateUploadTarget(_ context.Context, key, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://upload.test/" + key, nil
}

func (f *fakeStorage) Upload(_ context.Context, key string, data []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeStorage) Download(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: object %s", ErrNotFound, key)
	}
	return data, nil
}

func (f *fakeStorage) Remove(_ context.Context, key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, key)
	delete(f.objects, key)
}

func (f *fakeStorage) Ping(context.Context) error {
	return f.err
}

type fakeTranscription struct {
	result *Transcription
	err    error
}

func (f *fakeTranscription) Transcribe(context.Context, []byte, string) (*Transcription, error) {
	return f.result, f.err
}

type fakeDrafting struct {
	result  *DraftResult
	err     error
	gotOpts DraftOptions
}

func (f *fakeDrafting) Draft(_ context.Context, _ string, opts DraftOptions) (*DraftResult, error) {
	f.gotOpts = opts
	return f.result, f.err
}

type fakeTwitterClient struct {
	mu        sync.Mutex
	threads   [][]ThreadTweet
	tokens    []string
	uploads   int
	revoked   []string
	lastTweet int
	// postErr fails a thread after failAfter tweets went out.
	postErr   error
	failAfter int
	profile   *transfer.TwitterUser
	meErr     error
}

func (f *fakeTwitterClient) PostThread(_ context.Context, token string, tweets []ThreadTweet) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threads = append(f.threads, tweets)
	f.tokens = append(f.tokens, token)
	n := len(tweets)
	if f.postErr != nil && f.failAfter < n {
		n = f.failAfter
	}
	ids := make([]string, n)
	for i := range ids {
		f.lastTweet++
		ids[i] = fmt.Sprintf("tw-%d", f.lastTweet)
	}
	if f.postErr != nil {
		return ids, &ThreadError{Posted: ids, Index: n, Err: f.postErr}
	}
	return ids, nil
}

func (f *fakeTwitterClient) UploadMedia(context.Context, string, []byte, string, models.MediaType) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	return fmt.Sprintf("media-%d", f.uploads), nil
}

func (f *fakeTwitterClient) Me(context.Context, string) (*transfer.TwitterUser, error) {
	if f.meErr != nil {
		return nil, f.meErr
	}
	return f.profile, nil
}

func (f *fakeTwitterClient) Revoke(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, token)
	return nil
}

func (f *fakeTwitterClient) postCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.threads)
}

type processCall struct {
	RecordingID int64
	AutoPost    *bool
}

type fakeEnqueuer struct {
	mu      sync.Mutex
	process []processCall
	publish []int64
	err     error
}

func (f *fakeEnqueuer) EnqueueProcessRecording(_ context.Context, recordingID int64, autoPost *bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.process = append(f.process, processCall{recordingID, autoPost})
	return nil
}

func (f *fakeEnqueuer) EnqueuePublishDraft(_ context.Context, _ int64, draftID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.publish = append(f.publish, draftID)
	return nil
}
