package transfer

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/maheshrc27/voicepost/internal/models"
)

// CustomClaims is the payload of the session cookie.
type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// UserProfile is the signed-in user and whether their recordings can reach
// Twitter.
type UserProfile struct {
	User     *models.User       `json:"user"`
	Twitter  *TwitterConnection `json:"twitter"`
	AutoPost bool               `json:"auto_post"`
	CanPost  bool               `json:"can_post"`
}

type TwitterConnection struct {
	AccountID      int64  `json:"account_id"`
	Username       string `json:"username"`
	NeedsReconnect bool   `json:"needs_reconnect"`
}
