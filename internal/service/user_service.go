package service

import (
	"context"
	"fmt"
	"time"

	"github.com/maheshrc27/voicepost/internal/models"
	"github.com/maheshrc27/voicepost/internal/repository"
	"github.com/maheshrc27/voicepost/internal/transfer"
)

// UserService assembles the account overview a client shows after login.
type UserService interface {
	Profile(ctx context.Context, userID int64) (*transfer.UserProfile, error)
}

type userService struct {
	users    repository.UserRepository
	accounts repository.SocialAccountRepository
	settings SettingsService
}

func NewUserService(users repository.UserRepository, accounts repository.SocialAccountRepository, settings SettingsService) UserService {
	return &userService{
		users:    users,
		accounts: accounts,
		settings: settings,
	}
}

// Profile reports the Twitter account drafts would be posted from. CanPost
// is false when that account has to be connected again first.
func (s *userService) Profile(ctx context.Context, userID int64) (*transfer.UserProfile, error) {
	user, isExist, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !isExist {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}

	acc, err := s.accounts.GetLatestValidByUserID(ctx, userID, models.PlatformTwitter)
	if err != nil {
		return nil, err
	}
	settings, err := s.settings.GetSettingsInfo(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := &transfer.UserProfile{User: user, AutoPost: settings.AutoPost}
	if acc != nil {
		profile.Twitter = &transfer.TwitterConnection{
			AccountID:      acc.ID,
			Username:       acc.AccountUsername,
			NeedsReconnect: acc.NeedsReauth || (acc.TokenExpired(time.Now()) && acc.RefreshToken == ""),
		}
		profile.CanPost = !profile.Twitter.NeedsReconnect
	}
	return profile, nil
}
