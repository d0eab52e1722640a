package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	config "github.com/maheshrc27/voicepost/configs"
	"github.com/maheshrc27/voicepost/internal/models"
	"github.com/maheshrc27/voicepost/internal/repository"
	"github.com/maheshrc27/voicepost/internal/transfer"
	"github.com/maheshrc27/voicepost/pkg/utils"
	"golang.org/x/oauth2"
)

// AuthStart is what the browser needs to leave for Twitter and come back.
type AuthStart struct {
	AuthorizationURL string
	SessionID        string
}

// TwitterAuthService runs the OAuth2 PKCE flow against Twitter and owns the
// stored tokens of connected accounts.
type TwitterAuthService interface {
	BeginAuth(ctx context.Context, userID int64) (*AuthStart, error)
	CompleteAuth(ctx context.Context, sessionID, code, state string) (*models.SocialAccount, error)
	ResolveAccountForUser(ctx context.Context, userID int64) (*models.SocialAccount, error)
	Refresh(ctx context.Context, acc *models.SocialAccount) (string, error)
	AccessToken(ctx context.Context, acc *models.SocialAccount) (string, error)
	Disconnect(ctx context.Context, userID, accountID int64) error
	List(ctx context.Context, userID int64) ([]*models.SocialAccount, error)
}

type twitterAuthService struct {
	cfg    config.Config
	oauth  *oauth2.Config
	sa     repository.SocialAccountRepository
	store  AuthSessionStore
	client TwitterClient
}

func NewTwitterAuthService(cfg config.Config, sa repository.SocialAccountRepository, store AuthSessionStore, client TwitterClient) TwitterAuthService {
	return &twitterAuthService{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.Twitter.ClientID,
			ClientSecret: cfg.Twitter.ClientSecret,
			RedirectURL:  cfg.Twitter.RedirectURI,
			Scopes:       cfg.Twitter.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.Twitter.AuthURL,
				TokenURL:  cfg.Twitter.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		sa:     sa,
		store:  store,
		client: client,
	}
}

func (s *twitterAuthService) BeginAuth(ctx context.Context, userID int64) (*AuthStart, error) {
	if userID == 0 {
		return nil, validationErrorf("user id is required")
	}

	state, err := utils.GenerateRandomKey(24)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	verifier := oauth2.GenerateVerifier()
	sessionID := uuid.NewString()

	err = s.store.Save(ctx, sessionID, &AuthSession{
		UserID:       userID,
		State:        state,
		CodeVerifier: verifier,
		CreatedAt:    time.Now(),
	}, AuthSessionTTL)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("save auth session: %w", err)
	}

	return &AuthStart{
		AuthorizationURL: s.oauth.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)),
		SessionID:        sessionID,
	}, nil
}

// CompleteAuth consumes the session whatever the outcome, so a callback
// can never be replayed.
func (s *twitterAuthService) CompleteAuth(ctx context.Context, sessionID, code, state string) (*models.SocialAccount, error) {
	if sessionID == "" || state == "" {
		return nil, ErrStateMismatch
	}

	session, err := s.store.Take(ctx, sessionID)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("load auth session: %w", err)
	}
	if session == nil {
		slog.Warn("twitter callback without a live session", "session_id", sessionID)
		return nil, ErrStateMismatch
	}
	if subtle.ConstantTimeCompare([]byte(session.State), []byte(state)) != 1 {
		slog.Warn("twitter callback state mismatch", "user_id", session.UserID)
		return nil, ErrStateMismatch
	}
	if code == "" {
		return nil, validationErrorf("authorization code is missing")
	}

	token, err := s.oauth.Exchange(ctx, code, oauth2.VerifierOption(session.CodeVerifier))
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("%w: code exchange: %v", ErrProvider, err)
	}

	needsReauth := false
	profile, err := s.client.Me(ctx, token.AccessToken)
	if err != nil {
		if !errors.Is(err, ErrPermissionDenied) {
			return nil, err
		}
		slog.Warn("profile lookup forbidden, storing placeholder profile", "user_id", session.UserID)
		profile = placeholderProfile()
		needsReauth = true
	}

	acc := &models.SocialAccount{
		UserID:          session.UserID,
		Platform:        models.PlatformTwitter,
		AccountID:       profile.ID,
		AccountName:     profile.Name,
		AccountUsername: profile.Username,
		ProfilePicture:  profile.ProfileImageURL,
		TokenExpiresAt:  token.Expiry,
		NeedsReauth:     needsReauth,
	}
	if acc.AccessToken, err = s.encrypt(token.AccessToken); err != nil {
		return nil, err
	}
	if acc.RefreshToken, err = s.encrypt(token.RefreshToken); err != nil {
		return nil, err
	}

	id, err := s.sa.Create(ctx, nil, acc)
	if err != nil {
		return nil, err
	}
	acc.ID = id

	slog.Info("twitter account connected", "user_id", acc.UserID, "account_id", acc.ID, "username", acc.AccountUsername)
	return acc, nil
}

// ResolveAccountForUser never falls back to another user's account.
func (s *twitterAuthService) ResolveAccountForUser(ctx context.Context, userID int64) (*models.SocialAccount, error) {
	acc, err := s.sa.GetLatestValidByUserID(ctx, userID, models.PlatformTwitter)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, ErrNoAccountConnected
	}
	return acc, nil
}

// Refresh trades the stored refresh token for a new access token. When
// another refresh of the same account stored first, its token is returned.
func (s *twitterAuthService) Refresh(ctx context.Context, acc *models.SocialAccount) (string, error) {
	if acc.RefreshToken == "" {
		return "", fmt.Errorf("%w: account %d has no refresh token", ErrRefreshFailed, acc.ID)
	}

	refreshToken, err := utils.Decrypt(acc.RefreshToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	startedFrom := acc.AccessToken
	expired := &oauth2.Token{RefreshToken: refreshToken, Expiry: time.Now().Add(-time.Minute)}
	token, err := s.oauth.TokenSource(ctx, expired).Token()
	if err != nil {
		slog.Info(err.Error())
		// The refresh token may have been rotated by a refresh that won.
		current, cerr := s.storedToken(ctx, acc, startedFrom)
		switch {
		case cerr != nil:
			slog.Warn("could not re-read account after failed refresh", "account_id", acc.ID, "error", cerr)
		case current != "":
			return current, nil
		default:
			if err := s.sa.SetNeedsReauth(ctx, acc.ID, true); err != nil {
				slog.Warn("could not flag account for reauth", "account_id", acc.ID, "error", err)
			}
		}
		return "", fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	updated := &models.SocialAccount{TokenExpiresAt: token.Expiry}
	if updated.AccessToken, err = s.encrypt(token.AccessToken); err != nil {
		return "", err
	}
	if updated.RefreshToken, err = s.encrypt(token.RefreshToken); err != nil {
		return "", err
	}

	if err := s.sa.SetToken(ctx, acc.ID, startedFrom, updated); err != nil {
		if !errors.Is(err, repository.ErrTokenChanged) {
			return "", fmt.Errorf("store refreshed token: %w", err)
		}
		current, cerr := s.storedToken(ctx, acc, startedFrom)
		if cerr != nil {
			return "", cerr
		}
		if current == "" {
			return "", err
		}
		slog.Info("refresh lost to a concurrent one, using its token", "account_id", acc.ID)
		return current, nil
	}

	acc.AccessToken = updated.AccessToken
	acc.RefreshToken = updated.RefreshToken
	acc.TokenExpiresAt = updated.TokenExpiresAt
	acc.NeedsReauth = false
	return token.AccessToken, nil
}

// storedToken re-reads the account and returns its plaintext access token
// when it no longer matches startedFrom, adopting the stored row into acc.
// It returns "" when the row is unchanged.
func (s *twitterAuthService) storedToken(ctx context.Context, acc *models.SocialAccount, startedFrom string) (string, error) {
	row, err := s.sa.GetByID(ctx, acc.ID)
	if err != nil {
		return "", err
	}
	if row == nil || !row.IsConnected() {
		return "", fmt.Errorf("account %d: %w", acc.ID, ErrNoAccountConnected)
	}
	if row.AccessToken == startedFrom {
		return "", nil
	}
	token, err := utils.Decrypt(row.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return "", fmt.Errorf("decrypt access token: %w", err)
	}
	*acc = *row
	return token, nil
}

// AccessToken returns a usable plaintext token, refreshing first when the
// stored one has expired.
func (s *twitterAuthService) AccessToken(ctx context.Context, acc *models.SocialAccount) (string, error) {
	if !acc.IsConnected() {
		return "", ErrNoAccountConnected
	}
	if acc.TokenExpired(time.Now()) {
		return s.Refresh(ctx, acc)
	}
	token, err := utils.Decrypt(acc.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return "", fmt.Errorf("decrypt access token: %w", err)
	}
	return token, nil
}

// Disconnect revokes at Twitter when it can and always blanks the stored
// credentials. The row stays so posts keep their account.
func (s *twitterAuthService) Disconnect(ctx context.Context, userID, accountID int64) error {
	acc, err := s.sa.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if acc == nil || acc.UserID != userID {
		return fmt.Errorf("account %d: %w", accountID, ErrNotFound)
	}

	if acc.IsConnected() {
		if token, err := utils.Decrypt(acc.AccessToken, []byte(s.cfg.SecretKey)); err == nil {
			if err := s.client.Revoke(ctx, token); err != nil {
				slog.Warn("twitter revoke failed", "account_id", accountID, "error", err)
			}
		}
	}

	if err := s.sa.Disconnect(ctx, accountID); err != nil {
		return err
	}
	slog.Info("twitter account disconnected", "user_id", userID, "account_id", accountID)
	return nil
}

func (s *twitterAuthService) List(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	if userID == 0 {
		return nil, validationErrorf("user id is required")
	}
	return s.sa.ListByUserID(ctx, userID)
}

func (s *twitterAuthService) encrypt(token string) (string, error) {
	if token == "" {
		return "", nil
	}
	return utils.Encrypt([]byte(token), []byte(s.cfg.SecretKey))
}

func placeholderProfile() *transfer.TwitterUser {
	return &transfer.TwitterUser{Name: "unknown", Username: "unknown"}
}
