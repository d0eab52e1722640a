package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/voicepost/internal/service"
	"github.com/maheshrc27/voicepost/internal/transfer"
)

type RecordingHandler struct {
	s service.PipelineService
}

func NewRecordingHandler(service service.PipelineService) *RecordingHandler {
	return &RecordingHandler{s: service}
}

func (h *RecordingHandler) CreateRecording(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var req transfer.RecordingCreation
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "unable to parse json")
	}

	target, err := h.s.CreateRecording(c.Context(), userID, req)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(target)
}

func (h *RecordingHandler) Ingest(c *fiber.Ctx) error {
	userID := GetUserID(c)
	recordingID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var req transfer.IngestRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "unable to parse json")
		}
	}

	rec, err := h.s.Ingest(c.Context(), userID, recordingID, req)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(rec)
}

func (h *RecordingHandler) ListRecordings(c *fiber.Ctx) error {
	recordings, err := h.s.List(c.Context(), GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(recordings)
}

func (h *RecordingHandler) GetRecording(c *fiber.Ctx) error {
	recordingID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	detail, err := h.s.Get(c.Context(), GetUserID(c), recordingID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(detail)
}

func (h *RecordingHandler) DeleteRecording(c *fiber.Ctx) error {
	recordingID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	if err := h.s.Delete(c.Context(), GetUserID(c), recordingID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
