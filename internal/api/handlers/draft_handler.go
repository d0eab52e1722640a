package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/voicepost/internal/service"
	"github.com/maheshrc27/voicepost/internal/transfer"
)

type DraftHandler struct {
	pipeline service.PipelineService
	publish  service.PublishService
}

func NewDraftHandler(pipeline service.PipelineService, publish service.PublishService) *DraftHandler {
	return &DraftHandler{pipeline: pipeline, publish: publish}
}

func (h *DraftHandler) GetDraft(c *fiber.Ctx) error {
	draftID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	draft, err := h.pipeline.GetDraft(c.Context(), GetUserID(c), draftID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(draft)
}

func (h *DraftHandler) UpdateDraft(c *fiber.Ctx) error {
	draftID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var req transfer.DraftUpdate
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "unable to parse json")
	}

	draft, err := h.pipeline.UpdateDraft(c.Context(), GetUserID(c), draftID, req.Tweets)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(draft)
}

// PublishDraft posts right away, or hands the draft to the queue when
// called with ?async=1.
func (h *DraftHandler) PublishDraft(c *fiber.Ctx) error {
	userID := GetUserID(c)
	draftID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	if c.QueryBool("async", false) {
		if err := h.publish.EnqueuePublish(c.Context(), userID, draftID); err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"message": "publishing queued",
		})
	}

	post, err := h.publish.PublishDraft(c.Context(), userID, draftID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}
