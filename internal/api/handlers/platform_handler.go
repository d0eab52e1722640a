package handlers

import (
	"fmt"
	"log/slog"
	"net/url"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/voicepost/configs"
	"github.com/maheshrc27/voicepost/internal/service"
)

const twitterSessionCookie = "voicepost_twitter_oauth"

// PlatformHandler connects and manages the Twitter accounts of a user.
type PlatformHandler struct {
	s   service.TwitterAuthService
	cfg config.Config
}

func NewPlatformHandler(cfg config.Config, service service.TwitterAuthService) *PlatformHandler {
	return &PlatformHandler{s: service, cfg: cfg}
}

// AddSocialAccount starts the PKCE flow. Browsers are redirected; clients
// asking for ?format=json get the URL and session id back instead, and
// pass the id as ?sid= on the callback if they cannot keep the cookie.
func (h *PlatformHandler) AddSocialAccount(c *fiber.Ctx) error {
	start, err := h.s.BeginAuth(c.Context(), GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     twitterSessionCookie,
		Value:    start.SessionID,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/auth/twitter",
		MaxAge:   int(service.AuthSessionTTL.Seconds()),
	})

	if c.Query("format") == "json" {
		return c.JSON(fiber.Map{
			"authorization_url": start.AuthorizationURL,
			"session_id":        start.SessionID,
		})
	}
	return c.Redirect(start.AuthorizationURL)
}

func (h *PlatformHandler) CallbackHandler(c *fiber.Ctx) error {
	sessionID := c.Cookies(twitterSessionCookie)
	if sessionID == "" {
		sessionID = c.Query("sid")
	}
	c.ClearCookie(twitterSessionCookie)

	if denied := c.Query("error"); denied != "" {
		slog.Info("twitter authorization denied", "error", denied)
		return h.redirectAccounts(c, "error", denied)
	}

	acc, err := h.s.CompleteAuth(c.Context(), sessionID, c.Query("code"), c.Query("state"))
	if err != nil {
		return h.redirectAccounts(c, "error", err.Error())
	}

	return h.redirectAccounts(c, "connected", acc.AccountUsername)
}

func (h *PlatformHandler) redirectAccounts(c *fiber.Ctx, key, value string) error {
	q := url.Values{}
	q.Set(key, value)
	redirectURL := fmt.Sprintf("%s/dashboard/accounts?%s", h.cfg.FrontendURL, q.Encode())
	return c.Redirect(redirectURL, fiber.StatusTemporaryRedirect)
}

func (h *PlatformHandler) ListSocialAccounts(c *fiber.Ctx) error {
	accountList, err := h.s.List(c.Context(), GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(accountList)
}

func (h *PlatformHandler) DisconnectSocialAccount(c *fiber.Ctx) error {
	accountID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	if err := h.s.Disconnect(c.Context(), GetUserID(c), accountID); err != nil {
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}
