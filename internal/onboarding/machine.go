package onboarding

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"alfredoptarigan/interview-onboarding/internal/models"
)

const minReplyLength = 2

type State int

const (
	StateAwaitingWelcomeAck State = iota
	StateAwaitingFieldAnswer
	StateCompleting
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateAwaitingWelcomeAck:
		return "awaiting_welcome_ack"
	case StateAwaitingFieldAnswer:
		return "awaiting_field_answer"
	case StateCompleting:
		return "completing"
	case StateCompleted:
		return "completed"
	}
	return "unknown"
}

// Step is the outcome of a transition. Dirty means the record changed and must be saved;
// Completed means this step recorded the completion of the conversation.
type Step struct {
	Response  *models.ChatResponse
	Dirty     bool
	Completed bool
}

// Machine drives one user's conversation. All of its state lives in the record, so a
// machine rebuilt from a freshly loaded record behaves exactly like the one it replaces.
// Machine never performs I/O.
type Machine struct {
	rec *models.OnboardingSummary
}

func NewMachine(rec *models.OnboardingSummary) *Machine {
	return &Machine{rec: rec}
}

func (m *Machine) Record() *models.OnboardingSummary {
	return m.rec
}

// State reports where the conversation stands. For StateAwaitingFieldAnswer the field is the
// one awaiting an answer, or the next one to be asked when no turn is pending.
func (m *Machine) State() (State, models.OnboardingField) {
	if m.rec.OnboardingDone {
		return StateCompleted, ""
	}
	if i := m.pendingIndex(); i >= 0 {
		field := m.rec.ConversationHistory[i].Field
		if field == models.FieldWelcome {
			return StateAwaitingWelcomeAck, field
		}
		return StateAwaitingFieldAnswer, field
	}
	if m.allAnswered() {
		return StateCompleting, ""
	}
	return StateAwaitingFieldAnswer, m.nextUnasked()
}

// NextPrompt returns the message the user should see next. It appends the next bank question
// when no turn is pending, and records completion once every field has an answer.
func (m *Machine) NextPrompt() (Step, error) {
	if m.rec.OnboardingDone {
		return Step{Response: m.completeResponse()}, nil
	}

	if i := m.pendingIndex(); i >= 0 {
		return Step{Response: questionResponse(m.rec.ConversationHistory[i])}, nil
	}

	if m.allAnswered() {
		return m.complete()
	}

	if len(m.rec.Questions) == 0 {
		return Step{}, ErrBankNotReady
	}

	field := m.nextUnasked()
	if field == "" {
		return Step{}, ErrBankExhausted
	}

	text, _ := m.rec.Question(field)
	turn := models.Turn{Bot: text, Field: field}
	m.rec.ConversationHistory = append(m.rec.ConversationHistory, turn)

	return Step{Response: questionResponse(turn), Dirty: true}, nil
}

// SubmitReply answers the pending turn and returns the following prompt in the same step.
// Even when the following prompt fails, a Dirty step carries the recorded answer.
func (m *Machine) SubmitReply(text string) (Step, error) {
	if m.rec.OnboardingDone {
		return Step{}, ErrConversationClosed
	}

	i := m.pendingIndex()
	if i < 0 {
		return Step{}, ErrNoPendingQuestion
	}

	reply, err := ValidateReply(text)
	if err != nil {
		return Step{}, err
	}

	turn := &m.rec.ConversationHistory[i]
	if turn.Field != models.FieldWelcome {
		if err := m.rec.SetAnswer(turn.Field, reply); err != nil {
			return Step{}, fmt.Errorf("failed to record answer: %w", err)
		}
		if err := m.rec.SetSlot(turn.Field, reply); err != nil {
			return Step{}, fmt.Errorf("failed to record answer: %w", err)
		}
	}
	turn.User = &reply

	step, err := m.NextPrompt()
	step.Dirty = true
	return step, err
}

// ValidateReply trims text and rejects replies shorter than two characters.
func ValidateReply(text string) (string, error) {
	reply := strings.TrimSpace(text)
	if utf8.RuneCountInString(reply) < minReplyLength {
		return "", ErrInvalidResponse
	}
	return reply, nil
}

// pendingIndex returns the first unanswered turn in append order, or -1.
func (m *Machine) pendingIndex() int {
	for i, turn := range m.rec.ConversationHistory {
		if !turn.Answered() {
			return i
		}
	}
	return -1
}

func (m *Machine) allAnswered() bool {
	for _, field := range models.OnboardingFields {
		if v, ok := m.rec.Answer(field); !ok || v == "" {
			return false
		}
	}
	return true
}

// nextUnasked returns the first field, in fixed order, that has a bank question but no turn yet.
func (m *Machine) nextUnasked() models.OnboardingField {
	asked := make(map[models.OnboardingField]bool, len(m.rec.ConversationHistory))
	for _, turn := range m.rec.ConversationHistory {
		asked[turn.Field] = true
	}
	for _, field := range models.OnboardingFields {
		if asked[field] {
			continue
		}
		if _, ok := m.rec.Question(field); ok {
			return field
		}
	}
	return ""
}

func (m *Machine) complete() (Step, error) {
	for _, field := range models.OnboardingFields {
		answer, _ := m.rec.Answer(field)
		if err := m.rec.SetSlot(field, answer); err != nil {
			return Step{}, err
		}
	}
	m.rec.OnboardingDone = true

	return Step{Response: m.completeResponse(), Dirty: true, Completed: true}, nil
}

func (m *Machine) completeResponse() *models.ChatResponse {
	answers := m.rec.AnswerMap()
	history := make([]models.Turn, len(m.rec.ConversationHistory))
	copy(history, m.rec.ConversationHistory)

	return &models.ChatResponse{
		Status:              models.ChatStatusComplete,
		Message:             completionMessage(answers),
		Fields:              answers,
		ConversationHistory: history,
	}
}

func questionResponse(turn models.Turn) *models.ChatResponse {
	return &models.ChatResponse{
		Status:  models.ChatStatusQuestion,
		Message: turn.Bot,
		Field:   turn.Field,
	}
}

func completionMessage(answers map[models.OnboardingField]string) string {
	return fmt.Sprintf(
		"--- Summary Complete ---\nCurrent Work: %s\nReason: %s\nProcess Stage: %s\nTarget Company: %s\nOnboarding Done: True",
		answers[models.FieldCurrentWork],
		answers[models.FieldReasonForInterview],
		answers[models.FieldWhereInInterviewProcess],
		answers[models.FieldTargetCompany],
	)
}

// FlattenHistory expands each turn into a bot entry and, when answered, a user entry.
func FlattenHistory(turns []models.Turn) []models.FlatMessage {
	flat := make([]models.FlatMessage, 0, len(turns)*2)
	for _, turn := range turns {
		flat = append(flat, models.FlatMessage{Role: "bot", Message: turn.Bot})
		if turn.Answered() {
			flat = append(flat, models.FlatMessage{Role: "user", Message: *turn.User})
		}
	}
	return flat
}
