package services

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"alfredoptarigan/interview-onboarding/internal/models"
)

type fakeGemini struct {
	mu       sync.Mutex
	text     string
	jsonText string
	err      error
	prompts  []string
	embedErr error
	embedded int
}

func (f *fakeGemini) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	f.embedded++
	return []float32{float32(len(text)), 1}, nil
}

func (f *fakeGemini) GenerateText(_ context.Context, prompt string, _ float32) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.text, f.err
}

func (f *fakeGemini) GenerateTextWithRetry(ctx context.Context, prompt string, temperature float32, _ int) (string, error) {
	return f.GenerateText(ctx, prompt, temperature)
}

func (f *fakeGemini) GenerateJSON(_ context.Context, prompt string, _ float32, schema *genai.Schema) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if schema == nil {
		return "", errors.New("schema is required")
	}
	return f.jsonText, f.err
}

type fakeQuestionGenerator struct {
	mu    sync.Mutex
	calls int
	fail  int
	block bool
}

func (f *fakeQuestionGenerator) GenerateQuestionBank(ctx context.Context) ([]models.Question, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if call <= f.fail {
		return nil, errors.New("generator unavailable")
	}

	bank := make([]models.Question, 0, len(models.OnboardingFields))
	for _, field := range models.OnboardingFields {
		bank = append(bank, models.Question{Field: field, Bot: "generated " + string(field)})
	}
	return bank, nil
}

func (f *fakeQuestionGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeIndex struct {
	results  []SearchResult
	err      error
	replaced map[uuid.UUID]int
}

func (f *fakeIndex) InitCollection(context.Context) error {
	return nil
}

func (f *fakeIndex) ReplaceUserChunks(_ context.Context, userID uuid.UUID, chunks []string, _ [][]float32) error {
	if f.replaced == nil {
		f.replaced = make(map[uuid.UUID]int)
	}
	f.replaced[userID] = len(chunks)
	return nil
}

func (f *fakeIndex) SearchUser(context.Context, uuid.UUID, []float32, int) ([]SearchResult, error) {
	return f.results, f.err
}

func (f *fakeIndex) DeleteUser(context.Context, uuid.UUID) error {
	return nil
}

type fakeStarter struct {
	started []uuid.UUID
	err     error
}

func (f *fakeStarter) StartConversation(_ context.Context, userID uuid.UUID) (*models.ChatResponse, error) {
	f.started = append(f.started, userID)
	if f.err != nil {
		return nil, f.err
	}
	return &models.ChatResponse{Status: models.ChatStatusQuestion, Field: models.FieldWelcome}, nil
}
