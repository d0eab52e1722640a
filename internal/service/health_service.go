package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	config "github.com/maheshrc27/voicepost/configs"
	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"
)

const healthCheckTimeout = 5 * time.Second

// HealthChecker reports whether one dependency is reachable.
type HealthChecker func(ctx context.Context) error

type HealthStatus struct {
	Provider string `json:"provider"`
	Healthy  bool   `json:"healthy"`
	Error    string `json:"error,omitempty"`
}

type HealthService interface {
	Check(ctx context.Context, provider string) HealthStatus
	CheckAll(ctx context.Context) []HealthStatus
	Has(provider string) bool
}

type healthService struct {
	checkers map[string]HealthChecker
}

func NewHealthService(checkers map[string]HealthChecker) HealthService {
	return &healthService{checkers: checkers}
}

func (s *healthService) Has(provider string) bool {
	_, ok := s.checkers[provider]
	return ok
}

func (s *healthService) Check(ctx context.Context, provider string) HealthStatus {
	status := HealthStatus{Provider: provider}

	check, ok := s.checkers[provider]
	if !ok {
		status.Error = fmt.Sprintf("unknown provider %q", provider)
		return status
	}

	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	if err := check(ctx); err != nil {
		status.Error = err.Error()
		return status
	}
	status.Healthy = true
	return status
}

func (s *healthService) CheckAll(ctx context.Context) []HealthStatus {
	names := make([]string, 0, len(s.checkers))
	for name := range s.checkers {
		names = append(names, name)
	}
	sort.Strings(names)

	statuses := make([]HealthStatus, 0, len(names))
	for _, name := range names {
		statuses = append(statuses, s.Check(ctx, name))
	}
	return statuses
}

func DatabaseCheck(db *sql.DB) HealthChecker {
	return db.PingContext
}

func RedisCheck(rdb *redis.Client) HealthChecker {
	return func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}
}

func StorageCheck(storage StorageService) HealthChecker {
	return storage.Ping
}

func OpenAICheck(client *openai.Client) HealthChecker {
	return func(ctx context.Context) error {
		_, err := client.ListModels(ctx)
		return err
	}
}

// TwitterCheck only verifies configuration; probing the API needs a user
// token.
func TwitterCheck(cfg config.Config) HealthChecker {
	return func(context.Context) error {
		if cfg.Twitter.ClientID == "" || cfg.Twitter.ClientSecret == "" || cfg.Twitter.RedirectURI == "" {
			return errors.New("twitter client credentials are not configured")
		}
		return nil
	}
}
