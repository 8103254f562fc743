package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/interview-onboarding/internal/logger"
	"alfredoptarigan/interview-onboarding/internal/models"
	"alfredoptarigan/interview-onboarding/internal/repositories"
)

const resumeSummaryTemperature = 0.3

var ErrResumeInputRequired = errors.New("either a resume file or LinkedIn profile must be provided")

// ConversationStarter begins a fresh onboarding conversation for a user.
type ConversationStarter interface {
	StartConversation(ctx context.Context, userID uuid.UUID) (*models.ChatResponse, error)
}

type ResumeUpload struct {
	UserID      uuid.UUID
	CV          *multipart.FileHeader
	LinkedInURL string
}

type ResumeService interface {
	Upload(ctx context.Context, upload ResumeUpload) (*models.Resume, error)
	Get(ctx context.Context, userID uuid.UUID) (*models.Resume, error)
}

type ResumeDependencies struct {
	Users         repositories.UserRepository
	Resumes       repositories.ResumeRepository
	Storage       StorageService
	PDFParser     PDFParserService
	Chunker       TextChunker
	Gemini        GeminiService
	PromptBuilder *PromptBuilder
	Index         ResumeIndex
	Conversations ConversationStarter
	MaxRetries    int
	Logger        *zap.Logger
}

type resumeService struct {
	deps ResumeDependencies
	log  *zap.Logger
}

func NewResumeService(deps ResumeDependencies) ResumeService {
	return &resumeService{deps: deps, log: logger.OrNop(deps.Logger)}
}

// Upload replaces the user's resume and restarts their onboarding conversation.
func (s *resumeService) Upload(ctx context.Context, upload ResumeUpload) (*models.Resume, error) {
	linkedIn := strings.TrimSpace(upload.LinkedInURL)
	if upload.CV == nil && linkedIn == "" {
		return nil, ErrResumeInputRequired
	}

	if _, err := s.deps.Users.FindByID(ctx, upload.UserID); err != nil {
		return nil, err
	}

	previous, err := s.deps.Resumes.FindByUserID(ctx, upload.UserID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	resume := &models.Resume{UserID: upload.UserID}
	if linkedIn != "" {
		resume.LinkedInURL = &linkedIn
	}

	if upload.CV != nil {
		path, summary, err := s.processCV(ctx, upload.UserID, upload.CV)
		if err != nil {
			return nil, err
		}
		resume.ResumePath = &path
		resume.Summary = &summary
	}

	if err := s.deps.Resumes.ReplaceForUser(ctx, resume); err != nil {
		if resume.ResumePath != nil {
			_ = s.deps.Storage.DeleteFile(*resume.ResumePath)
		}
		return nil, err
	}

	if previous != nil && previous.ResumePath != nil {
		if err := s.deps.Storage.DeleteFile(*previous.ResumePath); err != nil {
			s.log.Warn("failed to delete previous resume file", zap.String("path", *previous.ResumePath), zap.Error(err))
		}
	}

	s.log.Info("resume stored",
		zap.String(logger.FieldUserID, upload.UserID.String()),
		zap.Bool("cv", resume.ResumePath != nil),
		zap.Bool("linkedin", resume.LinkedInURL != nil),
	)

	if _, err := s.deps.Conversations.StartConversation(ctx, upload.UserID); err != nil {
		return nil, fmt.Errorf("failed to restart onboarding: %w", err)
	}

	return resume, nil
}

func (s *resumeService) processCV(ctx context.Context, userID uuid.UUID, cv *multipart.FileHeader) (string, string, error) {
	path, err := s.deps.Storage.SaveResume(cv, userID)
	if err != nil {
		return "", "", err
	}

	content, err := s.deps.PDFParser.ExtractText(path)
	if err != nil {
		_ = s.deps.Storage.DeleteFile(path)
		return "", "", fmt.Errorf("failed to extract CV text: %w", err)
	}

	s.log.Debug("cv parsed",
		zap.String(logger.FieldUserID, userID.String()),
		zap.Int("pages", content.PageCount),
		zap.Int("chars", len(content.Text)),
	)

	summary, err := s.deps.Gemini.GenerateTextWithRetry(ctx, s.deps.PromptBuilder.BuildResumeSummaryPrompt(content.Text), resumeSummaryTemperature, s.deps.MaxRetries)
	if err != nil {
		_ = s.deps.Storage.DeleteFile(path)
		return "", "", fmt.Errorf("failed to summarise CV: %w", err)
	}

	if err := s.index(ctx, userID, content.Text); err != nil {
		s.log.Warn("failed to index resume", zap.String(logger.FieldUserID, userID.String()), zap.Error(err))
	}

	return path, strings.TrimSpace(summary), nil
}

func (s *resumeService) index(ctx context.Context, userID uuid.UUID, text string) error {
	if s.deps.Index == nil {
		return nil
	}

	chunks := s.deps.Chunker.ChunkText(text, DefaultChunkSize, DefaultChunkOverlap)
	embeddings := make([][]float32, 0, len(chunks))
	for i, chunk := range chunks {
		embedding, err := s.deps.Gemini.GenerateEmbedding(ctx, chunk)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %d: %w", i, err)
		}
		embeddings = append(embeddings, embedding)
	}

	return s.deps.Index.ReplaceUserChunks(ctx, userID, chunks, embeddings)
}

// Get implements ResumeService.
func (s *resumeService) Get(ctx context.Context, userID uuid.UUID) (*models.Resume, error) {
	return s.deps.Resumes.FindByUserID(ctx, userID)
}
