package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"alfredoptarigan/interview-onboarding/internal/logger"
	"alfredoptarigan/interview-onboarding/internal/models"
	"alfredoptarigan/interview-onboarding/internal/onboarding"
)

const questionTemperature = 1.2

const questionBankSchema = `{
  "type": "object",
  "properties": {
    "current_work": {"type": "string", "minLength": 1},
    "reason_for_interview": {"type": "string", "minLength": 1},
    "where_in_interview_process": {"type": "string", "minLength": 1},
    "target_company": {"type": "string", "minLength": 1}
  },
  "required": ["current_work", "reason_for_interview", "where_in_interview_process", "target_company"],
  "additionalProperties": false
}`

type QuestionGenerator interface {
	GenerateQuestionBank(ctx context.Context) ([]models.Question, error)
}

type questionGenerator struct {
	geminiService GeminiService
	promptBuilder *PromptBuilder
	schema        *gojsonschema.Schema
	log           *zap.Logger
}

func NewQuestionGenerator(geminiService GeminiService, promptBuilder *PromptBuilder, log *zap.Logger) (QuestionGenerator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(questionBankSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile question bank schema: %w", err)
	}

	return &questionGenerator{
		geminiService: geminiService,
		promptBuilder: promptBuilder,
		schema:        schema,
		log:           logger.OrNop(log),
	}, nil
}

// GenerateQuestionBank implements QuestionGenerator. Output that does not cover exactly the
// tracked fields is rejected.
func (q *questionGenerator) GenerateQuestionBank(ctx context.Context) ([]models.Question, error) {
	response, err := q.geminiService.GenerateJSON(ctx, q.promptBuilder.BuildQuestionBankPrompt(), questionTemperature, questionResponseSchema())
	if err != nil {
		return nil, fmt.Errorf("failed to generate onboarding questions: %w", err)
	}

	raw, err := q.parse(response)
	if err != nil {
		q.log.Warn("rejected question bank output",
			zap.Error(err),
			zap.String("response", logger.TruncateForLog(response, 200)),
		)
		return nil, err
	}

	return onboarding.BuildQuestionBank(raw)
}

func (q *questionGenerator) parse(response string) (map[string]string, error) {
	jsonStr := extractJSON(response)

	result, err := q.schema.Validate(gojsonschema.NewStringLoader(jsonStr))
	if err != nil {
		return nil, fmt.Errorf("failed to read question bank JSON: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("question bank schema validation failed: %s", strings.Join(msgs, "; "))
	}

	var raw map[string]string
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal question bank: %w", err)
	}
	return raw, nil
}

func questionResponseSchema() *genai.Schema {
	properties := make(map[string]*genai.Schema, len(models.OnboardingFields))
	required := make([]string, 0, len(models.OnboardingFields))
	for _, field := range models.OnboardingFields {
		properties[string(field)] = &genai.Schema{Type: genai.TypeString}
		required = append(required, string(field))
	}

	return &genai.Schema{
		Type:             genai.TypeObject,
		Properties:       properties,
		Required:         required,
		PropertyOrdering: required,
	}
}

// extractJSON tries to extract JSON from text that might contain markdown or other formatting
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	startObj := strings.Index(text, "{")
	startArr := strings.Index(text, "[")
	endObj := strings.LastIndex(text, "}")
	endArr := strings.LastIndex(text, "]")

	if startObj != -1 && endObj != -1 && endObj > startObj {
		return text[startObj : endObj+1]
	} else if startArr != -1 && endArr != -1 && endArr > startArr {
		return text[startArr : endArr+1]
	}

	return strings.TrimSpace(text)
}
