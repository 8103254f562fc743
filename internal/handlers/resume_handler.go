package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/interview-onboarding/internal/logger"
	"alfredoptarigan/interview-onboarding/internal/models"
	"alfredoptarigan/interview-onboarding/internal/services"
)

type ResumeHandler struct {
	resumeService services.ResumeService
	maxFileSize   int64
	log           *zap.Logger
}

func NewResumeHandler(resumeService services.ResumeService, maxFileSize int64, log *zap.Logger) *ResumeHandler {
	return &ResumeHandler{
		resumeService: resumeService,
		maxFileSize:   maxFileSize,
		log:           logger.OrNop(log),
	}
}

// HandleUpload accepts a multipart form with user_id and a PDF "cv" and/or a "linkedin_profile" URL.
func (h *ResumeHandler) HandleUpload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return badRequest(c, "failed to parse multipart form")
	}

	userID, err := uuid.Parse(firstValue(form.Value["user_id"]))
	if err != nil {
		return badRequest(c, "Invalid user ID format")
	}

	upload := services.ResumeUpload{
		UserID:      userID,
		LinkedInURL: firstValue(form.Value["linkedin_profile"]),
	}

	if cvFiles := form.File["cv"]; len(cvFiles) > 0 {
		if cvFiles[0].Size > h.maxFileSize {
			return badRequest(c, fmt.Sprintf("CV file too large. Max size: %d bytes", h.maxFileSize))
		}
		upload.CV = cvFiles[0]
	}

	resume, err := h.resumeService.Upload(c.UserContext(), upload)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(toResumeResponse(resume))
}

func (h *ResumeHandler) HandleGet(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("user_id"))
	if err != nil {
		return badRequest(c, "Invalid user ID format")
	}

	resume, err := h.resumeService.Get(c.UserContext(), userID)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(toResumeResponse(resume))
}

func toResumeResponse(resume *models.Resume) models.ResumeResponse {
	return models.ResumeResponse{
		ID:          resume.ID.String(),
		UserID:      resume.UserID.String(),
		ResumePath:  resume.ResumePath,
		LinkedInURL: resume.LinkedInURL,
		Summary:     resume.Summary,
		UploadedAt:  resume.UploadedAt,
	}
}

func firstValue(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
