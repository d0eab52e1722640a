package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/voicepost/internal/service"
)

type HealthHandler struct {
	s service.HealthService
}

func NewHealthHandler(service service.HealthService) *HealthHandler {
	return &HealthHandler{s: service}
}

func (h *HealthHandler) CheckAll(c *fiber.Ctx) error {
	statuses := h.s.CheckAll(c.Context())

	code := fiber.StatusOK
	for _, st := range statuses {
		if !st.Healthy {
			code = fiber.StatusServiceUnavailable
			break
		}
	}
	return c.Status(code).JSON(fiber.Map{
		"healthy":   code == fiber.StatusOK,
		"providers": statuses,
	})
}

func (h *HealthHandler) CheckProvider(c *fiber.Ctx) error {
	provider := c.Params("provider")
	if !h.s.Has(provider) {
		return fiber.NewError(fiber.StatusNotFound, "unknown provider "+provider)
	}

	status := h.s.Check(c.Context(), provider)
	if !status.Healthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(status)
	}
	return c.JSON(status)
}
