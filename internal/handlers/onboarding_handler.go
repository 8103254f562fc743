package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/interview-onboarding/internal/logger"
	"alfredoptarigan/interview-onboarding/internal/models"
	"alfredoptarigan/interview-onboarding/internal/onboarding"
)

type OnboardingHandler struct {
	service onboarding.Service
	log     *zap.Logger
}

func NewOnboardingHandler(service onboarding.Service, log *zap.Logger) *OnboardingHandler {
	return &OnboardingHandler{
		service: service,
		log:     logger.OrNop(log),
	}
}

// HandleChat returns the next prompt, answering the pending question first when a response is given.
func (h *OnboardingHandler) HandleChat(c *fiber.Ctx) error {
	var req models.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return badRequest(c, "Invalid user ID format")
	}

	resp, err := h.service.Chat(c.UserContext(), userID, req.Response)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(resp)
}

func (h *OnboardingHandler) HandleGetSummary(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("user_id"))
	if err != nil {
		return badRequest(c, "Invalid user ID format")
	}

	summary, err := h.service.Summary(c.UserContext(), userID)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(summary)
}

func (h *OnboardingHandler) HandleGetChats(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("user_id"))
	if err != nil {
		return badRequest(c, "Invalid user ID format")
	}

	history, err := h.service.FlatHistory(c.UserContext(), userID)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(history)
}

func (h *OnboardingHandler) HandleGenerateSummary(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("user_id"))
	if err != nil {
		return badRequest(c, "Invalid user ID format")
	}

	summary, err := h.service.GenerateSummary(c.UserContext(), userID)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(models.SummaryResponse{
		Status:  "success",
		Summary: summary,
	})
}

func (h *OnboardingHandler) HandleDelete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid onboarding ID format")
	}

	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return writeError(c, h.log, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
