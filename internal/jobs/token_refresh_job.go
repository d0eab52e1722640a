package job

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/maheshrc27/voicepost/internal/models"
	"github.com/maheshrc27/voicepost/internal/repository"
	"github.com/maheshrc27/voicepost/internal/service"
)

const (
	// TokenRefreshSchedule is when the job runs, in cron syntax.
	TokenRefreshSchedule = "@every 00h10m00s"

	refreshWindow      = 30 * time.Minute
	refreshConcurrency = 10
)

// TokenRefreshJob refreshes Twitter tokens that expire within the next
// half hour, so posting rarely has to refresh inline.
type TokenRefreshJob struct {
	sr   repository.SocialAccountRepository
	auth service.TwitterAuthService
	now  func() time.Time
}

func NewTokenRefreshJob(sr repository.SocialAccountRepository, auth service.TwitterAuthService) *TokenRefreshJob {
	return &TokenRefreshJob{
		sr:   sr,
		auth: auth,
		now:  time.Now,
	}
}

// RefreshTokens is the cron entry point.
func (c *TokenRefreshJob) RefreshTokens() {
	c.Run(context.Background())
}

// Run refreshes every expiring account and reports how many succeeded.
func (c *TokenRefreshJob) Run(ctx context.Context) int {
	accounts, err := c.sr.ListExpiring(ctx, c.now().Add(refreshWindow))
	if err != nil {
		slog.Info(err.Error())
		return 0
	}
	if len(accounts) == 0 {
		return 0
	}

	var refreshed atomic.Int64
	pool := pond.NewPool(refreshConcurrency, pond.WithContext(ctx))
	for _, acc := range accounts {
		acc := acc
		pool.Submit(func() {
			if err := c.refresh(ctx, acc); err != nil {
				slog.Info("unable to refresh twitter token", "account_id", acc.ID, "user_id", acc.UserID, "error", err)
				return
			}
			refreshed.Add(1)
		})
	}
	pool.StopAndWait()

	slog.Info("token refresh finished", "accounts", len(accounts), "refreshed", refreshed.Load())
	return int(refreshed.Load())
}

func (c *TokenRefreshJob) refresh(ctx context.Context, acc *models.SocialAccount) error {
	if acc.Platform != models.PlatformTwitter {
		return nil
	}
	_, err := c.auth.Refresh(ctx, acc)
	return err
}
