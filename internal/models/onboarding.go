package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type OnboardingField string

const (
	FieldWelcome                 OnboardingField = "welcome"
	FieldCurrentWork             OnboardingField = "current_work"
	FieldReasonForInterview      OnboardingField = "reason_for_interview"
	FieldWhereInInterviewProcess OnboardingField = "where_in_interview_process"
	FieldTargetCompany           OnboardingField = "target_company"
)

// OnboardingFields is the closed set of tracked fields, in the order they are asked.
var OnboardingFields = []OnboardingField{
	FieldCurrentWork,
	FieldReasonForInterview,
	FieldWhereInInterviewProcess,
	FieldTargetCompany,
}

func (f OnboardingField) IsTracked() bool {
	switch f {
	case FieldCurrentWork, FieldReasonForInterview, FieldWhereInInterviewProcess, FieldTargetCompany:
		return true
	}
	return false
}

// Turn is one bot message and the optional user reply to it. User is nil while the turn is pending.
type Turn struct {
	Bot   string          `json:"bot"`
	Field OnboardingField `json:"field"`
	User  *string         `json:"user,omitempty"`
}

func (t Turn) Answered() bool {
	return t.User != nil
}

type Question struct {
	Field OnboardingField `json:"field"`
	Bot   string          `json:"bot"`
}

// OnboardingSummary is the durable conversation record, one per user.
type OnboardingSummary struct {
	ID                      uuid.UUID                                      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID                  uuid.UUID                                      `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	CurrentWork             *string                                        `gorm:"type:varchar(512)" json:"current_work"`
	ReasonForInterview      *string                                        `gorm:"type:varchar(512)" json:"reason_for_interview"`
	WhereInInterviewProcess *string                                        `gorm:"type:varchar(512)" json:"where_in_interview_process"`
	TargetCompany           *string                                        `gorm:"type:varchar(512)" json:"target_company"`
	OnboardingDone          bool                                           `gorm:"not null;default:false" json:"onboarding_done"`
	ConversationHistory     datatypes.JSONSlice[Turn]                      `json:"conversation_history"`
	Questions               datatypes.JSONSlice[Question]                  `json:"questions"`
	Answers                 datatypes.JSONType[map[OnboardingField]string] `json:"answers"`
	Summary                 *string                                        `gorm:"type:text" json:"summary"`
	Version                 int64                                          `gorm:"not null" json:"version"`
	CreatedAt               time.Time                                      `json:"created_at"`
	UpdatedAt               time.Time                                      `json:"updated_at"`
}

func (OnboardingSummary) TableName() string {
	return "onboarding_summary"
}

func (s *OnboardingSummary) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Version == 0 {
		s.Version = 1
	}
	return nil
}

// NewOnboardingSummary returns a fresh conversation holding only the welcome turn.
func NewOnboardingSummary(userID uuid.UUID, welcome string) *OnboardingSummary {
	return &OnboardingSummary{
		UserID:              userID,
		ConversationHistory: datatypes.JSONSlice[Turn]{{Bot: welcome, Field: FieldWelcome}},
		Questions:           datatypes.JSONSlice[Question]{},
		Answers:             datatypes.NewJSONType(map[OnboardingField]string{}),
		Version:             1,
	}
}

// Answer returns the recorded reply for a tracked field.
func (s *OnboardingSummary) Answer(field OnboardingField) (string, bool) {
	v, ok := s.Answers.Data()[field]
	return v, ok
}

// AnswerMap returns a copy of the recorded replies.
func (s *OnboardingSummary) AnswerMap() map[OnboardingField]string {
	out := make(map[OnboardingField]string, len(OnboardingFields))
	for k, v := range s.Answers.Data() {
		out[k] = v
	}
	return out
}

func (s *OnboardingSummary) SetAnswer(field OnboardingField, value string) error {
	if !field.IsTracked() {
		return fmt.Errorf("unknown onboarding field: %q", field)
	}
	answers := s.AnswerMap()
	answers[field] = value
	s.Answers = datatypes.NewJSONType(answers)
	return nil
}

// SetSlot writes value into the named column backing field.
func (s *OnboardingSummary) SetSlot(field OnboardingField, value string) error {
	v := value
	switch field {
	case FieldCurrentWork:
		s.CurrentWork = &v
	case FieldReasonForInterview:
		s.ReasonForInterview = &v
	case FieldWhereInInterviewProcess:
		s.WhereInInterviewProcess = &v
	case FieldTargetCompany:
		s.TargetCompany = &v
	default:
		return fmt.Errorf("unknown onboarding field: %q", field)
	}
	return nil
}

func (s *OnboardingSummary) Slot(field OnboardingField) string {
	var p *string
	switch field {
	case FieldCurrentWork:
		p = s.CurrentWork
	case FieldReasonForInterview:
		p = s.ReasonForInterview
	case FieldWhereInInterviewProcess:
		p = s.WhereInInterviewProcess
	case FieldTargetCompany:
		p = s.TargetCompany
	}
	if p == nil {
		return ""
	}
	return *p
}

// Question returns the generated question for field, if any.
func (s *OnboardingSummary) Question(field OnboardingField) (string, bool) {
	for _, q := range s.Questions {
		if q.Field == field {
			return q.Bot, true
		}
	}
	return "", false
}

// DidChat reports whether any tracked slot has been filled.
func (s *OnboardingSummary) DidChat() bool {
	for _, f := range OnboardingFields {
		if s.Slot(f) != "" {
			return true
		}
	}
	return false
}
