package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/voicepost/internal/models"
	"github.com/maheshrc27/voicepost/internal/service"
)

// KeyHandler manages the API keys scripts send as ?api_key=. A key is shown
// in full only in the response that creates it.
type KeyHandler struct {
	keys service.ApiKeyService
}

func NewKeyHandler(keys service.ApiKeyService) *KeyHandler {
	return &KeyHandler{keys: keys}
}

func (h *KeyHandler) Create(c *fiber.Ctx) error {
	key, err := h.keys.Create(c.Context(), GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}

	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Status(fiber.StatusCreated).JSON(key)
}

func (h *KeyHandler) List(c *fiber.Ctx) error {
	keys, err := h.keys.List(c.Context(), GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}

	masked := make([]*models.ApiKey, 0, len(keys))
	for _, k := range keys {
		masked = append(masked, maskKey(k))
	}
	return c.JSON(masked)
}

func (h *KeyHandler) Remove(c *fiber.Ctx) error {
	keyID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	if err := h.keys.RemoveAPIKey(c.Context(), GetUserID(c), keyID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// maskKey keeps the last four characters so a user can tell keys apart.
func maskKey(k *models.ApiKey) *models.ApiKey {
	masked := *k
	if n := len(k.ApiKey); n > 4 {
		masked.ApiKey = strings.Repeat("*", n-4) + k.ApiKey[n-4:]
	}
	return &masked
}
