package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	config "github.com/maheshrc27/voicepost/configs"
	"github.com/maheshrc27/voicepost/internal/models"
	"github.com/maheshrc27/voicepost/internal/repository"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	googleoauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// AuthService signs users in with Google.
type AuthService interface {
	LoginURL(state string) string
	LoginCallback(ctx context.Context, code string) (int64, error)
}

type authService struct {
	oauth *oauth2.Config
	u     repository.UserRepository
}

func NewAuthService(cfg config.Config, u repository.UserRepository) AuthService {
	return &authService{
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURI,
			Scopes:       []string{googleoauth2.UserinfoEmailScope, googleoauth2.UserinfoProfileScope},
			Endpoint:     google.Endpoint,
		},
		u: u,
	}
}

func (s *authService) LoginURL(state string) string {
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (s *authService) LoginCallback(ctx context.Context, code string) (int64, error) {
	if code == "" {
		return 0, validationErrorf("authorization code is missing")
	}
	if s.oauth.ClientID == "" || s.oauth.ClientSecret == "" || s.oauth.RedirectURL == "" {
		err := errors.New("google oauth2 configuration is incomplete")
		slog.Info(err.Error())
		return 0, err
	}

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return 0, fmt.Errorf("%w: google code exchange: %v", ErrProvider, err)
	}

	svc, err := googleoauth2.NewService(ctx, option.WithTokenSource(s.oauth.TokenSource(ctx, token)))
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		slog.Info(err.Error())
		return 0, fmt.Errorf("%w: google userinfo: %v", ErrProvider, err)
	}
	if info.Email == "" {
		return 0, validationErrorf("google account has no email")
	}

	userID, err := s.u.UpsertByEmail(ctx, &models.User{
		GoogleID:       info.Id,
		Email:          info.Email,
		Name:           info.Name,
		ProfilePicture: info.Picture,
	})
	if err != nil {
		return 0, err
	}

	slog.Info("user signed in", "user_id", userID)
	return userID, nil
}
