package handlers

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/voicepost/configs"
	"github.com/maheshrc27/voicepost/internal/service"
	"github.com/maheshrc27/voicepost/pkg/utils"
)

const (
	loginStateCookie = "voicepost_login_state"
	sessionDuration  = 24 * time.Hour
)

type AuthHandler struct {
	s   service.AuthService
	cfg config.Config
}

func NewAuthHandler(cfg config.Config, service service.AuthService) *AuthHandler {
	return &AuthHandler{s: service, cfg: cfg}
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	state, err := utils.GenerateRandomKey(16)
	if err != nil {
		return respondError(c, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     loginStateCookie,
		Value:    state,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/login",
		MaxAge:   int((10 * time.Minute).Seconds()),
	})

	return c.Redirect(h.s.LoginURL(state))
}

func (h *AuthHandler) LoginCallbackHandler(c *fiber.Ctx) error {
	state := c.Query("state")
	expected := c.Cookies(loginStateCookie)
	c.ClearCookie(loginStateCookie)

	if state == "" || subtle.ConstantTimeCompare([]byte(state), []byte(expected)) != 1 {
		return respondError(c, service.ErrStateMismatch)
	}

	userID, err := h.s.LoginCallback(c.Context(), c.Query("code"))
	if err != nil {
		return respondError(c, err)
	}

	token, err := utils.GenerateToken(h.cfg.SecretKey, fmt.Sprintf("%d", userID), sessionDuration)
	if err != nil {
		slog.Info(err.Error())
		return respondError(c, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		HTTPOnly: true,
		Secure:   false,
		SameSite: fiber.CookieSameSiteNoneMode,
		Path:     "/",
		Expires:  time.Now().Add(sessionDuration),
	})

	return c.Redirect(h.cfg.FrontendURL, fiber.StatusTemporaryRedirect)
}
