package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/voicepost/internal/service"
	"github.com/maheshrc27/voicepost/internal/transfer"
)

// SettingsHandler reads and patches a user's drafting preferences.
type SettingsHandler struct {
	settings service.SettingsService
}

func NewSettingsHandler(settings service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// Get returns the settings in effect, defaults filled in.
func (h *SettingsHandler) Get(c *fiber.Ctx) error {
	settings, err := h.settings.GetSettingsInfo(c.Context(), GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(settings)
}

// Update applies the fields present in the body and answers like Get.
func (h *SettingsHandler) Update(c *fiber.Ctx) error {
	var update transfer.SettingsUpdate
	if err := c.BodyParser(&update); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "unable to parse json")
	}
	if update == (transfer.SettingsUpdate{}) {
		return fiber.NewError(fiber.StatusBadRequest, "no settings to update")
	}

	if err := h.settings.UpdateSettings(c.Context(), GetUserID(c), update); err != nil {
		return respondError(c, err)
	}
	return h.Get(c)
}
