package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/maheshrc27/voicepost/internal/models"
)

// ErrTokenChanged is returned by SetToken when the stored access token is no
// longer the one the caller refreshed from.
var ErrTokenChanged = errors.New("token was changed concurrently")

type SocialAccountRepository interface {
	Create(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.SocialAccount, error)
	GetLatestValidByUserID(ctx context.Context, userID int64, platform string) (*models.SocialAccount, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.SocialAccount, error)
	ListExpiring(ctx context.Context, before time.Time) ([]*models.SocialAccount, error)
	SetToken(ctx context.Context, id int64, oldAccessToken string, sa *models.SocialAccount) error
	SetNeedsReauth(ctx context.Context, id int64, needsReauth bool) error
	Disconnect(ctx context.Context, id int64) error
}

type socialAccountRepository struct {
	db *sql.DB
}

func NewSocialAccountRepository(db *sql.DB) SocialAccountRepository {
	return &socialAccountRepository{db: db}
}

const socialAccountColumns = `id, user_id, platform, account_id, account_name, account_username, profile_picture_url,
	access_token, refresh_token, token_expires_at, needs_reauth, created_at, updated_at`

func scanSocialAccount(row interface{ Scan(...interface{}) error }) (*models.SocialAccount, error) {
	var sa models.SocialAccount
	err := row.Scan(&sa.ID, &sa.UserID, &sa.Platform, &sa.AccountID, &sa.AccountName,
		&sa.AccountUsername, &sa.ProfilePicture, &sa.AccessToken, &sa.RefreshToken,
		&sa.TokenExpiresAt, &sa.NeedsReauth, &sa.CreatedAt, &sa.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sa, nil
}

func (r *socialAccountRepository) Create(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) (int64, error) {
	insertQuery := `
		INSERT INTO social_accounts(
			user_id,
			platform,
			account_id,
			account_name,
			account_username,
			profile_picture_url,
			access_token,
			refresh_token,
			token_expires_at,
			needs_reauth
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	var id int64
	err := pick(r.db, tx).QueryRowContext(ctx, insertQuery,
		sa.UserID,
		sa.Platform,
		sa.AccountID,
		sa.AccountName,
		sa.AccountUsername,
		sa.ProfilePicture,
		sa.AccessToken,
		sa.RefreshToken,
		sa.TokenExpiresAt,
		sa.NeedsReauth,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *socialAccountRepository) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	query := `SELECT ` + socialAccountColumns + ` FROM social_accounts WHERE id = $1`
	sa, err := scanSocialAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return sa, nil
}

// GetLatestValidByUserID only ever looks at the given user's rows. A user
// without a connected account gets nil, never somebody else's account.
func (r *socialAccountRepository) GetLatestValidByUserID(ctx context.Context, userID int64, platform string) (*models.SocialAccount, error) {
	query := `SELECT ` + socialAccountColumns + `
		FROM social_accounts
		WHERE user_id = $1 AND platform = $2 AND access_token <> $3
		ORDER BY created_at DESC, id DESC
		LIMIT 1`
	sa, err := scanSocialAccount(r.db.QueryRowContext(ctx, query, userID, platform, models.DisconnectedToken))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return sa, nil
}

func (r *socialAccountRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	query := `SELECT ` + socialAccountColumns + ` FROM social_accounts WHERE user_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

// ListExpiring returns connected accounts with a refresh token whose access
// token expires before the given time.
func (r *socialAccountRepository) ListExpiring(ctx context.Context, before time.Time) ([]*models.SocialAccount, error) {
	query := `SELECT ` + socialAccountColumns + `
		FROM social_accounts
		WHERE token_expires_at < $1 AND access_token <> $2 AND refresh_token <> ''`
	return r.list(ctx, query, before, models.DisconnectedToken)
}

func (r *socialAccountRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.SocialAccount, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.SocialAccount
	for rows.Next() {
		sa, err := scanSocialAccount(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		accounts = append(accounts, sa)
	}
	return accounts, rows.Err()
}

// SetToken swaps in a refreshed token pair. The old access token guards
// against two refreshers racing on the same row.
func (r *socialAccountRepository) SetToken(ctx context.Context, id int64, oldAccessToken string, sa *models.SocialAccount) error {
	updateTokenQuery := `
		UPDATE social_accounts
		SET
			access_token = $3,
			refresh_token = COALESCE(NULLIF($4, ''), refresh_token),
			token_expires_at = $5,
			needs_reauth = false,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND access_token = $2
	`
	result, err := r.db.ExecContext(ctx, updateTokenQuery, id, oldAccessToken, sa.AccessToken, sa.RefreshToken, sa.TokenExpiresAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affected != 1 {
		slog.Info("token was changed concurrently", "account_id", id)
		return ErrTokenChanged
	}
	return nil
}

func (r *socialAccountRepository) SetNeedsReauth(ctx context.Context, id int64, needsReauth bool) error {
	query := `UPDATE social_accounts SET needs_reauth = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, needsReauth, id); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// Disconnect keeps the row for history and blanks out the credentials.
func (r *socialAccountRepository) Disconnect(ctx context.Context, id int64) error {
	query := `
		UPDATE social_accounts
		SET access_token = $1,
			refresh_token = '',
			token_expires_at = $2,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $3
	`
	result, err := r.db.ExecContext(ctx, query, models.DisconnectedToken, time.Unix(0, 0).UTC(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
