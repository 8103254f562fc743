package models

import (
	"time"

	"github.com/google/uuid"
)

type ChatRequest struct {
	UserID   string  `json:"user_id" validate:"required,uuid"`
	Response *string `json:"response,omitempty"`
}

const (
	ChatStatusQuestion = "question"
	ChatStatusComplete = "complete"
)

type ChatResponse struct {
	Status              string                     `json:"status"`
	Message             string                     `json:"message"`
	Field               OnboardingField            `json:"field,omitempty"`
	Fields              map[OnboardingField]string `json:"fields,omitempty"`
	ConversationHistory []Turn                     `json:"conversation_history,omitempty"`
}

type FlatMessage struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

type OnboardingSummaryResponse struct {
	ID                      uuid.UUID  `json:"id"`
	UserID                  uuid.UUID  `json:"user_id"`
	CurrentWork             *string    `json:"current_work"`
	ReasonForInterview      *string    `json:"reason_for_interview"`
	WhereInInterviewProcess *string    `json:"where_in_interview_process"`
	TargetCompany           *string    `json:"target_company"`
	OnboardingDone          bool       `json:"onboarding_done"`
	DidChat                 bool       `json:"did_chat"`
	ConversationHistory     []Turn     `json:"conversation_history"`
	Questions               []Question `json:"questions"`
	Summary                 *string    `json:"summary"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

type SummaryResponse struct {
	Status  string `json:"status"`
	Summary string `json:"summary"`
}

type ResumeResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	ResumePath  *string   `json:"resume_path"`
	LinkedInURL *string   `json:"linkedin_url"`
	Summary     *string   `json:"summary"`
	UploadedAt  time.Time `json:"uploaded_at"`
}
