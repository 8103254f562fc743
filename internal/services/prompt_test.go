package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"alfredoptarigan/interview-onboarding/internal/models"
)

func TestFormatTranscript(t *testing.T) {
	hi := "hi"
	turns := []models.Turn{
		{Bot: "Welcome!", Field: models.FieldWelcome, User: &hi},
		{Bot: "What do you do?", Field: models.FieldCurrentWork},
	}

	assert.Equal(t, "Bot: Welcome!\nCandidate: hi\nBot: What do you do?", FormatTranscript(turns))
}

func TestBuildRetrievalQuery(t *testing.T) {
	pb := NewPromptBuilder()

	assert.Equal(t, "Candidate experience, skills and achievements", pb.BuildRetrievalQuery(nil))
	assert.Equal(t,
		"Experience and skills relevant to: backend engineer; Acme",
		pb.BuildRetrievalQuery(map[models.OnboardingField]string{
			models.FieldTargetCompany: "Acme",
			models.FieldCurrentWork:   "backend engineer",
		}),
	)
}

func TestBuildOnboardingSummaryPrompt(t *testing.T) {
	prompt := NewPromptBuilder().BuildOnboardingSummaryPrompt("", FormatRAGContext(nil), nil)

	assert.Contains(t, prompt, "No resume summary available.")
	assert.Contains(t, prompt, "No relevant context found.")
}

func TestFormatRAGContext(t *testing.T) {
	got := FormatRAGContext([]SearchResult{{Score: 0.5, Text: " Built APIs. "}})
	assert.Equal(t, "--- Context 1 (Score: 0.50) ---\nBuilt APIs.", got)
}
