package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/interview-onboarding/internal/logger"
	"alfredoptarigan/interview-onboarding/internal/models"
	"alfredoptarigan/interview-onboarding/internal/repositories"
)

const (
	welcomeTemperature = 0.9
	summaryTemperature = 0.5
	summaryContextSize = 4
)

type WelcomeGenerator interface {
	GenerateWelcome(ctx context.Context, displayName string) (string, error)
}

type OnboardingSummaryGenerator interface {
	GenerateOnboardingSummary(ctx context.Context, userID uuid.UUID, turns []models.Turn) (string, error)
}

type welcomeGenerator struct {
	geminiService GeminiService
	promptBuilder *PromptBuilder
}

func NewWelcomeGenerator(geminiService GeminiService, promptBuilder *PromptBuilder) WelcomeGenerator {
	return &welcomeGenerator{geminiService: geminiService, promptBuilder: promptBuilder}
}

// GenerateWelcome implements WelcomeGenerator.
func (w *welcomeGenerator) GenerateWelcome(ctx context.Context, displayName string) (string, error) {
	text, err := w.geminiService.GenerateText(ctx, w.promptBuilder.BuildWelcomePrompt(displayName), welcomeTemperature)
	if err != nil {
		return "", fmt.Errorf("failed to generate welcome message: %w", err)
	}

	text = strings.Trim(strings.TrimSpace(text), `"`)
	if text == "" {
		return "", errors.New("empty welcome message")
	}
	return text, nil
}

type onboardingSummaryGenerator struct {
	geminiService GeminiService
	promptBuilder *PromptBuilder
	resumeRepo    repositories.ResumeRepository
	resumeIndex   ResumeIndex
	maxRetries    int
	log           *zap.Logger
}

// NewOnboardingSummaryGenerator builds the generator behind onboarding summaries. resumeIndex may be
// nil, in which case no resume excerpts are added to the prompt.
func NewOnboardingSummaryGenerator(
	geminiService GeminiService,
	promptBuilder *PromptBuilder,
	resumeRepo repositories.ResumeRepository,
	resumeIndex ResumeIndex,
	maxRetries int,
	log *zap.Logger,
) OnboardingSummaryGenerator {
	return &onboardingSummaryGenerator{
		geminiService: geminiService,
		promptBuilder: promptBuilder,
		resumeRepo:    resumeRepo,
		resumeIndex:   resumeIndex,
		maxRetries:    maxRetries,
		log:           logger.OrNop(log),
	}
}

// GenerateOnboardingSummary combines the conversation with what is known from the user's resume.
func (g *onboardingSummaryGenerator) GenerateOnboardingSummary(ctx context.Context, userID uuid.UUID, turns []models.Turn) (string, error) {
	resumeSummary := ""
	resume, err := g.resumeRepo.FindByUserID(ctx, userID)
	switch {
	case err == nil:
		if resume.Summary != nil {
			resumeSummary = *resume.Summary
		}
	case errors.Is(err, repositories.ErrNotFound):
	default:
		return "", err
	}

	prompt := g.promptBuilder.BuildOnboardingSummaryPrompt(resumeSummary, g.retrieveContext(ctx, userID, turns), turns)

	summary, err := g.geminiService.GenerateTextWithRetry(ctx, prompt, summaryTemperature, g.maxRetries)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(summary), nil
}

// retrieveContext returns resume excerpts related to the answers. Retrieval failures only cost context.
func (g *onboardingSummaryGenerator) retrieveContext(ctx context.Context, userID uuid.UUID, turns []models.Turn) string {
	if g.resumeIndex == nil {
		return FormatRAGContext(nil)
	}

	answers := make(map[models.OnboardingField]string, len(models.OnboardingFields))
	for _, turn := range turns {
		if turn.Answered() && turn.Field.IsTracked() {
			answers[turn.Field] = *turn.User
		}
	}

	embedding, err := g.geminiService.GenerateEmbedding(ctx, g.promptBuilder.BuildRetrievalQuery(answers))
	if err != nil {
		g.log.Warn("failed to embed retrieval query", zap.String(logger.FieldUserID, userID.String()), zap.Error(err))
		return FormatRAGContext(nil)
	}

	results, err := g.resumeIndex.SearchUser(ctx, userID, embedding, summaryContextSize)
	if err != nil {
		g.log.Warn("failed to search resume chunks", zap.String(logger.FieldUserID, userID.String()), zap.Error(err))
		return FormatRAGContext(nil)
	}

	return FormatRAGContext(results)
}
