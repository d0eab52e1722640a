package service

import (
	"context"
	"testing"
	"time"

	"github.com/maheshrc27/voicepost/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers map[int64]*models.User

func (f fakeUsers) GetByID(_ context.Context, id int64) (*models.User, bool, error) {
	u, ok := f[id]
	return u, ok, nil
}

func (f fakeUsers) UpsertByEmail(_ context.Context, u *models.User) (int64, error) {
	u.ID = int64(len(f) + 1)
	f[u.ID] = u
	return u.ID, nil
}

func TestProfile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	users := fakeUsers{1: {ID: 1, Email: "jane@example.com", Name: "Jane"}}
	svc := NewUserService(users, h.accounts, h.settings)

	profile, err := svc.Profile(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", profile.User.Email)
	assert.Nil(t, profile.Twitter)
	assert.False(t, profile.CanPost)

	acc := h.connect(t, 1, "token", "refresh", time.Now().Add(-time.Minute))
	require.NoError(t, h.settingsRepo.Upsert(ctx, &models.Settings{UserID: 1, AutoPost: true}))

	profile, err = svc.Profile(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, profile.Twitter)
	assert.Equal(t, acc.ID, profile.Twitter.AccountID)
	assert.Equal(t, "jane", profile.Twitter.Username)
	assert.True(t, profile.CanPost)
	assert.True(t, profile.AutoPost)

	require.NoError(t, h.accounts.SetNeedsReauth(ctx, acc.ID, true))
	profile, err = svc.Profile(ctx, 1)
	require.NoError(t, err)
	assert.True(t, profile.Twitter.NeedsReconnect)
	assert.False(t, profile.CanPost)

	_, err = svc.Profile(ctx, 2)
	assert.ErrorIs(t, err, ErrNotFound)
}
