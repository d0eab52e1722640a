package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	config "github.com/maheshrc27/voicepost/configs"
	"github.com/maheshrc27/voicepost/internal/models"
	"github.com/maheshrc27/voicepost/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// tokenEndpoint accepts a code exchange only when the verifier matches the
// challenge sent on the authorization URL.
type tokenEndpoint struct {
	challenge string
	exchanges int
}

func (e *tokenEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	e.exchanges++
	w.Header().Set("Content-Type", "application/json")
	if r.PostForm.Get("code") != "good-code" ||
		oauth2.S256ChallengeFromVerifier(r.PostForm.Get("code_verifier")) != e.challenge {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_request"}`))
		return
	}
	_, _ = w.Write([]byte(`{"access_token":"access-1","refresh_token":"refresh-1","token_type":"bearer","expires_in":7200}`))
}

func newAuthHarness(t *testing.T) (*harness, *tokenEndpoint) {
	t.Helper()
	endpoint := &tokenEndpoint{}
	srv := httptest.NewServer(endpoint)
	t.Cleanup(srv.Close)
	return newHarness(t, func(cfg *config.Config) { cfg.Twitter.TokenURL = srv.URL }), endpoint
}

func beginAuth(t *testing.T, h *harness, endpoint *tokenEndpoint, userID int64) (*AuthStart, url.Values) {
	t.Helper()
	start, err := h.auth.BeginAuth(context.Background(), userID)
	require.NoError(t, err)
	u, err := url.Parse(start.AuthorizationURL)
	require.NoError(t, err)
	endpoint.challenge = u.Query().Get("code_challenge")
	return start, u.Query()
}

func TestBeginAuthBuildsPKCEURL(t *testing.T) {
	h, endpoint := newAuthHarness(t)

	start, q := beginAuth(t, h, endpoint, 1)
	assert.NotEmpty(t, start.SessionID)
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "client", q.Get("client_id"))
	assert.Equal(t, "http://localhost:3000/auth/twitter/callback", q.Get("redirect_uri"))
	assert.Equal(t, "tweet.read tweet.write users.read offline.access", q.Get("scope"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.NotEmpty(t, q.Get("code_challenge"))
	assert.NotEmpty(t, q.Get("state"))

	_, err := h.auth.BeginAuth(context.Background(), 0)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCompleteAuthStoresEncryptedTokens(t *testing.T) {
	h, endpoint := newAuthHarness(t)
	ctx := context.Background()
	start, q := beginAuth(t, h, endpoint, 7)

	acc, err := h.auth.CompleteAuth(ctx, start.SessionID, "good-code", q.Get("state"))
	require.NoError(t, err)
	assert.Equal(t, int64(7), acc.UserID)
	assert.Equal(t, "42", acc.AccountID)
	assert.Equal(t, "jane", acc.AccountUsername)
	assert.False(t, acc.NeedsReauth)
	assert.NotEqual(t, "access-1", acc.AccessToken)

	plain, err := utils.Decrypt(acc.AccessToken, []byte(testSecret))
	require.NoError(t, err)
	assert.Equal(t, "access-1", plain)

	resolved, err := h.auth.ResolveAccountForUser(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, acc.ID, resolved.ID)

	_, err = h.auth.CompleteAuth(ctx, start.SessionID, "good-code", q.Get("state"))
	assert.ErrorIs(t, err, ErrStateMismatch, "a session completes once")
	assert.Equal(t, 1, endpoint.exchanges)
}

func TestCompleteAuthStateMismatchConsumesSession(t *testing.T) {
	h, endpoint := newAuthHarness(t)
	ctx := context.Background()
	start, q := beginAuth(t, h, endpoint, 1)

	_, err := h.auth.CompleteAuth(ctx, start.SessionID, "good-code", "forged")
	assert.ErrorIs(t, err, ErrStateMismatch)

	_, err = h.auth.CompleteAuth(ctx, start.SessionID, "good-code", q.Get("state"))
	assert.ErrorIs(t, err, ErrStateMismatch)
	assert.Equal(t, 0, endpoint.exchanges)
	assert.Empty(t, h.accounts.rows)
}

func TestCompleteAuthUnknownSession(t *testing.T) {
	h, _ := newAuthHarness(t)

	_, err := h.auth.CompleteAuth(context.Background(), "missing", "good-code", "state")
	assert.ErrorIs(t, err, ErrStateMismatch)
	_, err = h.auth.CompleteAuth(context.Background(), "", "good-code", "state")
	assert.ErrorIs(t, err, ErrStateMismatch)
}

func TestCompleteAuthRejectedCode(t *testing.T) {
	h, endpoint := newAuthHarness(t)
	start, q := beginAuth(t, h, endpoint, 1)

	_, err := h.auth.CompleteAuth(context.Background(), start.SessionID, "bad-code", q.Get("state"))
	assert.ErrorIs(t, err, ErrProvider)
	assert.Empty(t, h.accounts.rows)
}

func TestCompleteAuthProfileForbidden(t *testing.T) {
	h, endpoint := newAuthHarness(t)
	h.twitter.meErr = ErrPermissionDenied
	start, q := beginAuth(t, h, endpoint, 1)

	acc, err := h.auth.CompleteAuth(context.Background(), start.SessionID, "good-code", q.Get("state"))
	require.NoError(t, err)
	assert.Equal(t, "unknown", acc.AccountUsername)
	assert.True(t, acc.NeedsReauth)
}

func TestDisconnect(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	acc := h.connect(t, 1, "live-token", "live-refresh", time.Now().Add(time.Hour))

	assert.ErrorIs(t, h.auth.Disconnect(ctx, 2, acc.ID), ErrNotFound)
	assert.Empty(t, h.twitter.revoked)

	require.NoError(t, h.auth.Disconnect(ctx, 1, acc.ID))
	assert.Equal(t, []string{"live-token"}, h.twitter.revoked)

	stored, _ := h.accounts.GetByID(ctx, acc.ID)
	require.NotNil(t, stored)
	assert.Equal(t, models.DisconnectedToken, stored.AccessToken)
	assert.Empty(t, stored.RefreshToken)

	_, err := h.auth.ResolveAccountForUser(ctx, 1)
	assert.ErrorIs(t, err, ErrNoAccountConnected)

	accounts, err := h.auth.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestAccessTokenKeepsLiveToken(t *testing.T) {
	h := newHarness(t)
	acc := h.connect(t, 1, "live-token", "", time.Now().Add(time.Hour))

	token, err := h.auth.AccessToken(context.Background(), acc)
	require.NoError(t, err)
	assert.Equal(t, "live-token", token)
}

// refreshEndpoint answers refresh grants with status and body after running
// before, which stands in for a refresh that raced this one.
func refreshEndpoint(t *testing.T, status int, body string, before *func()) *harness {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if *before != nil {
			(*before)()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return newHarness(t, func(cfg *config.Config) { cfg.Twitter.TokenURL = srv.URL })
}

// storeWinner returns a func that replaces the account's token the way a
// concurrent refresh would.
func storeWinner(t *testing.T, h *harness, acc *models.SocialAccount) func() {
	t.Helper()
	winner := &models.SocialAccount{TokenExpiresAt: time.Now().Add(2 * time.Hour)}
	var err error
	winner.AccessToken, err = utils.Encrypt([]byte("winner-token"), []byte(testSecret))
	require.NoError(t, err)
	startedFrom := acc.AccessToken
	return func() {
		assert.NoError(t, h.accounts.SetToken(context.Background(), acc.ID, startedFrom, winner))
	}
}

func TestRefreshLosingRaceReturnsStoredToken(t *testing.T) {
	var before func()
	h := refreshEndpoint(t, http.StatusOK, `{"access_token":"late-token","refresh_token":"late-refresh","token_type":"bearer","expires_in":7200}`, &before)
	acc := h.connect(t, 1, "stale-token", "old-refresh", time.Now().Add(-time.Minute))
	before = storeWinner(t, h, acc)

	token, err := h.auth.Refresh(context.Background(), acc)
	require.NoError(t, err)
	assert.Equal(t, "winner-token", token)

	stored, _ := h.accounts.GetByID(context.Background(), acc.ID)
	plain, err := utils.Decrypt(stored.AccessToken, []byte(testSecret))
	require.NoError(t, err)
	assert.Equal(t, "winner-token", plain)
	assert.False(t, stored.NeedsReauth)
}

func TestRefreshRejectedAfterConcurrentRotation(t *testing.T) {
	var before func()
	h := refreshEndpoint(t, http.StatusBadRequest, `{"error":"invalid_grant"}`, &before)
	acc := h.connect(t, 1, "stale-token", "rotated-refresh", time.Now().Add(-time.Minute))
	before = storeWinner(t, h, acc)

	token, err := h.auth.Refresh(context.Background(), acc)
	require.NoError(t, err)
	assert.Equal(t, "winner-token", token)

	stored, _ := h.accounts.GetByID(context.Background(), acc.ID)
	assert.False(t, stored.NeedsReauth)
}

func TestRefreshReportsStoreFailure(t *testing.T) {
	var before func()
	h := refreshEndpoint(t, http.StatusOK, `{"access_token":"fresh-token","refresh_token":"fresh-refresh","token_type":"bearer","expires_in":7200}`, &before)
	acc := h.connect(t, 1, "stale-token", "old-refresh", time.Now().Add(-time.Minute))
	h.accounts.setTokenErr = errors.New("connection refused")

	token, err := h.auth.Refresh(context.Background(), acc)
	assert.ErrorContains(t, err, "connection refused")
	assert.Empty(t, token)
}
