package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the API on router.
func RegisterRoutes(router fiber.Router, onboarding *OnboardingHandler, resumes *ResumeHandler) {
	router.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	chat := router.Group("/onboarding")
	chat.Post("/chat", onboarding.HandleChat)
	chat.Get("/:user_id", onboarding.HandleGetSummary)
	chat.Get("/:user_id/chats", onboarding.HandleGetChats)
	chat.Post("/:user_id/summary", onboarding.HandleGenerateSummary)
	chat.Delete("/:id", onboarding.HandleDelete)

	if resumes != nil {
		router.Post("/resumes", resumes.HandleUpload)
		router.Get("/resumes/:user_id", resumes.HandleGet)
	}
}
