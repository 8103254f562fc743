package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"alfredoptarigan/interview-onboarding/internal/onboarding"
	"alfredoptarigan/interview-onboarding/internal/repositories"
	"alfredoptarigan/interview-onboarding/internal/services"
)

const bankRetryAfterSeconds = 5

func errorStatus(err error) int {
	switch onboarding.KindOf(err) {
	case onboarding.KindInvalidResponse:
		return fiber.StatusUnprocessableEntity
	case onboarding.KindNoPendingQuestion,
		onboarding.KindConversationClosed,
		onboarding.KindConcurrentUpdateConflict,
		onboarding.KindOnboardingIncomplete:
		return fiber.StatusConflict
	case onboarding.KindBankNotReady:
		return fiber.StatusServiceUnavailable
	case onboarding.KindBankExhausted:
		return fiber.StatusInternalServerError
	}

	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrResumeInputRequired),
		errors.Is(err, services.ErrInvalidFileType),
		errors.Is(err, services.ErrEmptyDocument):
		return fiber.StatusBadRequest
	}

	return fiber.StatusInternalServerError
}

// writeError renders err as JSON. Unclassified failures are logged and hidden from the client.
func writeError(c *fiber.Ctx, log *zap.Logger, err error) error {
	status := errorStatus(err)
	body := fiber.Map{"error": err.Error()}

	if kind := onboarding.KindOf(err); kind != "" {
		body["kind"] = kind
	} else if status == fiber.StatusInternalServerError {
		log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		body["error"] = "internal server error"
	}

	if status == fiber.StatusServiceUnavailable {
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(bankRetryAfterSeconds))
	}

	return c.Status(status).JSON(body)
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
	})
}

// ErrorHandler renders errors that escape handlers, such as unknown routes or oversized bodies.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
