package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maheshrc27/voicepost/internal/models"
	"github.com/maheshrc27/voicepost/internal/repository"
	"github.com/maheshrc27/voicepost/pkg/utils"
)

const maxApiKeys = 5

type ApiKeyService interface {
	Create(ctx context.Context, userID int64) (*models.ApiKey, error)
	List(ctx context.Context, userID int64) ([]*models.ApiKey, error)
	GetUserID(ctx context.Context, apiKey string) (int64, error)
	RemoveAPIKey(ctx context.Context, userID, keyID int64) error
}

type apiKeyService struct {
	k repository.ApiKeyRepository
}

func NewApiKeyService(k repository.ApiKeyRepository) ApiKeyService {
	return &apiKeyService{
		k: k,
	}
}

func (s *apiKeyService) Create(ctx context.Context, userID int64) (*models.ApiKey, error) {
	keys, err := s.k.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(keys) >= maxApiKeys {
		return nil, validationErrorf("only %d API keys can be created", maxApiKeys)
	}

	key, err := utils.GenerateRandomKey(32)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("generate api key: %w", err)
	}

	apiKey := &models.ApiKey{
		UserID: userID,
		ApiKey: key,
	}
	if apiKey.ID, err = s.k.Create(ctx, apiKey); err != nil {
		return nil, err
	}
	return apiKey, nil
}

func (s *apiKeyService) GetUserID(ctx context.Context, apiKey string) (int64, error) {
	userID, isExist, err := s.k.GetUserIDByKey(ctx, apiKey)
	if err != nil {
		return 0, err
	}
	if !isExist {
		return 0, fmt.Errorf("api key: %w", ErrNotFound)
	}
	return userID, nil
}

func (s *apiKeyService) List(ctx context.Context, userID int64) ([]*models.ApiKey, error) {
	return s.k.ListByUserID(ctx, userID)
}

func (s *apiKeyService) RemoveAPIKey(ctx context.Context, userID, keyID int64) error {
	if userID == 0 || keyID == 0 {
		return validationErrorf("user id and key id are required")
	}

	removed, err := s.k.RemoveForUser(ctx, keyID, userID)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("api key %d: %w", keyID, ErrNotFound)
	}
	return nil
}
