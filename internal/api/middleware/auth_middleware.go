package middleware

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/voicepost/configs"
	"github.com/maheshrc27/voicepost/internal/service"
	"github.com/maheshrc27/voicepost/pkg/utils"
)

type AuthMiddleware struct {
	s   service.ApiKeyService
	cfg config.Config
}

func NewAuthMiddleware(cfg config.Config, service service.ApiKeyService) *AuthMiddleware {
	return &AuthMiddleware{s: service, cfg: cfg}
}

// AuthMiddleware resolves the caller from the session cookie or an
// api_key query parameter and stores the user id under "user_id".
func (m *AuthMiddleware) AuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := c.Cookies(m.cfg.CookieName)
		apiKey := c.Query("api_key")

		if tokenString == "" && apiKey == "" {
			return unauthorized(c, "missing api key or session cookie")
		}

		if apiKey != "" {
			userID, err := m.s.GetUserID(c.Context(), apiKey)
			if err != nil {
				return unauthorized(c, "invalid api key")
			}
			c.Locals("user_id", userID)
			return c.Next()
		}

		claims, err := utils.ValidateToken(m.cfg.SecretKey, tokenString)
		if err != nil {
			c.Cookie(&fiber.Cookie{
				Name:   m.cfg.CookieName,
				Value:  "",
				Path:   "/",
				MaxAge: -1,
			})
			return unauthorized(c, "invalid or expired session")
		}

		userID, err := strconv.ParseInt(claims.UserID, 10, 64)
		if err != nil || userID <= 0 {
			slog.Warn("session token carries a bad user id", "user_id", claims.UserID)
			return unauthorized(c, "invalid or expired session")
		}

		c.Locals("user_id", userID)
		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": message,
	})
}
