package service

import (
	"context"
	"strings"

	config "github.com/maheshrc27/voicepost/configs"
	"github.com/maheshrc27/voicepost/internal/models"
	"github.com/maheshrc27/voicepost/internal/repository"
	"github.com/maheshrc27/voicepost/internal/transfer"
)

const maxSystemPrompt = 8000

// SettingsService layers a user's saved preferences over the configured
// defaults. The shared config is never modified.
type SettingsService interface {
	GetSettingsInfo(ctx context.Context, userID int64) (*models.Settings, error)
	UpdateSettings(ctx context.Context, userID int64, update transfer.SettingsUpdate) error
	DraftOptions(ctx context.Context, userID int64) (DraftOptions, error)
	AutoPost(ctx context.Context, userID int64) (bool, error)
}

type settingsService struct {
	defaults config.Drafting
	sr       repository.SettingsRepository
}

func NewSettingsService(cfg config.Config, sr repository.SettingsRepository) SettingsService {
	return &settingsService{
		defaults: cfg.Drafting,
		sr:       sr,
	}
}

// GetSettingsInfo returns the effective settings, defaults filled in.
func (s *settingsService) GetSettingsInfo(ctx context.Context, userID int64) (*models.Settings, error) {
	settings, isExist, err := s.sr.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !isExist {
		settings = &models.Settings{UserID: userID, AutoPost: s.defaults.AutoPost}
	}

	effective := *settings
	if strings.TrimSpace(effective.SystemPrompt) == "" {
		effective.SystemPrompt = s.defaults.SystemPrompt
	}
	if strings.TrimSpace(effective.Model) == "" {
		effective.Model = s.defaults.Model
	}
	return &effective, nil
}

// UpdateSettings merges the update into the stored row. A prompt equal to
// the configured default is stored as unset so it follows later changes to
// the default.
func (s *settingsService) UpdateSettings(ctx context.Context, userID int64, update transfer.SettingsUpdate) error {
	if userID == 0 {
		return validationErrorf("user id is required")
	}

	next, isExist, err := s.sr.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if !isExist {
		next = &models.Settings{UserID: userID, AutoPost: s.defaults.AutoPost}
	}

	if update.SystemPrompt != nil {
		prompt := strings.TrimSpace(*update.SystemPrompt)
		if len(prompt) > maxSystemPrompt {
			return validationErrorf("system prompt is too long")
		}
		if prompt == s.defaults.SystemPrompt {
			prompt = ""
		}
		next.SystemPrompt = prompt
	}
	if update.Model != nil {
		next.Model = strings.TrimSpace(*update.Model)
	}
	if update.AutoPost != nil {
		next.AutoPost = *update.AutoPost
	}
	return s.sr.Upsert(ctx, next)
}

func (s *settingsService) DraftOptions(ctx context.Context, userID int64) (DraftOptions, error) {
	settings, err := s.GetSettingsInfo(ctx, userID)
	if err != nil {
		return DraftOptions{}, err
	}
	return DraftOptions{
		SystemPrompt: settings.SystemPrompt,
		Model:        settings.Model,
		Temperature:  s.defaults.Temperature,
		MaxTokens:    s.defaults.MaxTokens,
	}, nil
}

func (s *settingsService) AutoPost(ctx context.Context, userID int64) (bool, error) {
	settings, err := s.GetSettingsInfo(ctx, userID)
	if err != nil {
		return false, err
	}
	return settings.AutoPost, nil
}
