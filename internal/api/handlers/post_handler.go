package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/voicepost/internal/service"
)

type PostHandler struct {
	s service.PublishService
}

func NewPostHandler(service service.PublishService) *PostHandler {
	return &PostHandler{s: service}
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	posts, err := h.s.ListPosts(c.Context(), GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}
