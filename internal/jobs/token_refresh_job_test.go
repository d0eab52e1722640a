package job

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/maheshrc27/voicepost/internal/models"
	"github.com/maheshrc27/voicepost/internal/repository"
	"github.com/maheshrc27/voicepost/internal/service"
	"github.com/stretchr/testify/assert"
)

type stubAccounts struct {
	repository.SocialAccountRepository
	accounts  []*models.SocialAccount
	gotBefore time.Time
	err       error
}

func (s *stubAccounts) ListExpiring(_ context.Context, before time.Time) ([]*models.SocialAccount, error) {
	s.gotBefore = before
	return s.accounts, s.err
}

type stubAuth struct {
	service.TwitterAuthService
	mu        sync.Mutex
	refreshed []int64
	failFor   int64
}

func (s *stubAuth) Refresh(_ context.Context, acc *models.SocialAccount) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acc.ID == s.failFor {
		return "", service.ErrRefreshFailed
	}
	s.refreshed = append(s.refreshed, acc.ID)
	return "token", nil
}

func TestTokenRefreshJobRefreshesExpiring(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	accounts := &stubAccounts{}
	for i := int64(1); i <= 25; i++ {
		accounts.accounts = append(accounts.accounts, &models.SocialAccount{ID: i, Platform: models.PlatformTwitter})
	}
	auth := &stubAuth{failFor: 7}

	job := NewTokenRefreshJob(accounts, auth)
	job.now = func() time.Time { return now }

	assert.Equal(t, 24, job.Run(context.Background()))
	assert.Equal(t, now.Add(30*time.Minute), accounts.gotBefore)
	assert.Len(t, auth.refreshed, 24)
	assert.NotContains(t, auth.refreshed, int64(7))
}

func TestTokenRefreshJobListError(t *testing.T) {
	auth := &stubAuth{}
	job := NewTokenRefreshJob(&stubAccounts{err: errors.New("db down")}, auth)

	assert.Equal(t, 0, job.Run(context.Background()))
	assert.Empty(t, auth.refreshed)
}
