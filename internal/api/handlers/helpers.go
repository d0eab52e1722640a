package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/voicepost/internal/service"
)

// GetUserID returns the id the auth middleware resolved for this request.
func GetUserID(c *fiber.Ctx) int64 {
	userID, _ := c.Locals("user_id").(int64)
	return userID
}

func paramID(c *fiber.Ctx, name string) (int64, error) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return int64(id), nil
}

func respondError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{
			"error":          fe.Message,
			"needsReconnect": false,
		})
	}

	status := service.StatusOf(err)
	message := err.Error()
	if status == fiber.StatusInternalServerError {
		slog.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		message = "something went wrong"
	}

	return c.Status(status).JSON(fiber.Map{
		"error":          message,
		"needsReconnect": service.NeedsReconnect(err),
	})
}

// ErrorHandler renders errors that escape a handler.
func ErrorHandler(c *fiber.Ctx, err error) error {
	return respondError(c, err)
}
