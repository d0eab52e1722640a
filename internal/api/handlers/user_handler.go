package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/voicepost/internal/service"
)

type UserHandler struct {
	users service.UserService
}

func NewUserHandler(users service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Profile answers GET /api/me.
func (h *UserHandler) Profile(c *fiber.Ctx) error {
	profile, err := h.users.Profile(c.Context(), GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}

	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.JSON(profile)
}
