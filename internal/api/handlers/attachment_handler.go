package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/voicepost/internal/service"
	"github.com/maheshrc27/voicepost/internal/transfer"
)

type AttachmentHandler struct {
	s service.AttachmentService
}

func NewAttachmentHandler(service service.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{s: service}
}

func (h *AttachmentHandler) CreateAttachment(c *fiber.Ctx) error {
	draftID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var req transfer.AttachmentCreation
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "unable to parse json")
	}

	target, err := h.s.CreateAttachment(c.Context(), GetUserID(c), draftID, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(target)
}

func (h *AttachmentHandler) ListAttachments(c *fiber.Ctx) error {
	draftID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	attachments, err := h.s.ListAttachments(c.Context(), GetUserID(c), draftID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(attachments)
}

func (h *AttachmentHandler) RemoveAttachment(c *fiber.Ctx) error {
	attachmentID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	if err := h.s.RemoveAttachment(c.Context(), GetUserID(c), attachmentID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
