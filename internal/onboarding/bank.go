package onboarding

import (
	"fmt"
	"strings"

	"alfredoptarigan/interview-onboarding/internal/models"
)

// BuildQuestionBank converts generator output into a bank ordered by field. The output must
// carry a non-empty question for every tracked field and nothing else.
func BuildQuestionBank(raw map[string]string) ([]models.Question, error) {
	for key := range raw {
		if !models.OnboardingField(key).IsTracked() {
			return nil, fmt.Errorf("unexpected question bank field: %q", key)
		}
	}

	bank := make([]models.Question, 0, len(models.OnboardingFields))
	for _, field := range models.OnboardingFields {
		text := strings.TrimSpace(raw[string(field)])
		if text == "" {
			return nil, fmt.Errorf("question bank is missing field %q", field)
		}
		bank = append(bank, models.Question{Field: field, Bot: text})
	}
	return bank, nil
}

// DefaultWelcome is used whenever the welcome generator fails.
func DefaultWelcome(name string) string {
	if strings.TrimSpace(name) == "" {
		name = "there"
	}
	return fmt.Sprintf("👋 Hi %s, welcome to the onboarding process! Let's get to know you better.", name)
}
