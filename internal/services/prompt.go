package services

import (
	"fmt"
	"strings"

	"alfredoptarigan/interview-onboarding/internal/models"
)

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildQuestionBankPrompt creates prompt for the four onboarding questions
func (pb *PromptBuilder) BuildQuestionBankPrompt() string {
	return `Create four concise and completely distinct questions for a user's interview prep, each targeting a specific field:
1. current_work, 2. reason_for_interview, 3. where_in_interview_process, and 4. target_company.

Each question must:
- Be warm, conversational, and supportive.
- Be exactly one sentence of at most 20-30 words.
- Be substantially different in phrasing, word choice, and sentence structure from the others.
- Avoid repeating sentence patterns or openings (e.g., no "What's your..." or "Are you..." across multiple questions).
- Sound natural and tailored only to its specific field.

Field-specific constraints:
- current_work: Ask about the user's current role and how long they've been in it. Don't reference resumes or LinkedIn.
- reason_for_interview: Ask what's prompting their prep, with varied examples like switching jobs, growing confidence, or aiming high.
- where_in_interview_process: Ask where they are in the process, with options like just getting started, mid-process, final rounds, or skill-building.
- target_company: Ask about any company or role they're aiming for, offering the choice to share a job description or say they're exploring.

Return the result as a JSON object with keys "current_work", "reason_for_interview", "where_in_interview_process" and "target_company", each containing one question.
Return ONLY the JSON object with no additional text.`
}

// BuildWelcomePrompt creates prompt for the greeting that opens a conversation
func (pb *PromptBuilder) BuildWelcomePrompt(displayName string) string {
	return fmt.Sprintf(`Write a single friendly sentence welcoming %s to an interview preparation onboarding chat.
Mention that you will ask a few short questions to get to know them.
Start with a waving hand emoji. Return ONLY the sentence.`, displayName)
}

// BuildResumeSummaryPrompt creates prompt for summarising an uploaded CV
func (pb *PromptBuilder) BuildResumeSummaryPrompt(resumeText string) string {
	return fmt.Sprintf(`You are an experienced career coach reading a candidate's CV.

CANDIDATE CV:
%s

Summarise the candidate in 4-6 sentences: current role and seniority, years of experience, core technical skills, notable achievements and the kind of roles they appear to be targeting.

Return ONLY the summary text, no JSON format needed.`, resumeText)
}

// BuildOnboardingSummaryPrompt creates prompt for the final candidate profile
func (pb *PromptBuilder) BuildOnboardingSummaryPrompt(resumeSummary, resumeContext string, turns []models.Turn) string {
	if strings.TrimSpace(resumeSummary) == "" {
		resumeSummary = "No resume summary available."
	}

	return fmt.Sprintf(`You are an interview coach preparing a personalised practice plan.

RESUME SUMMARY:
%s

RELEVANT RESUME EXCERPTS:
%s

ONBOARDING CONVERSATION:
%s

Write a concise profile of the candidate (4-6 sentences) covering what they currently do, why they are preparing, where they are in their interview process, which company or role they are targeting, and the two or three areas the practice sessions should focus on.

Return ONLY the profile text, no JSON format needed.`,
		resumeSummary, resumeContext, FormatTranscript(turns))
}

// BuildRetrievalQuery creates query for resume excerpt retrieval
func (pb *PromptBuilder) BuildRetrievalQuery(answers map[models.OnboardingField]string) string {
	var parts []string
	for _, field := range models.OnboardingFields {
		if v := strings.TrimSpace(answers[field]); v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		return "Candidate experience, skills and achievements"
	}
	return "Experience and skills relevant to: " + strings.Join(parts, "; ")
}

// FormatTranscript renders turns as alternating bot and candidate lines
func FormatTranscript(turns []models.Turn) string {
	var b strings.Builder
	for _, turn := range turns {
		fmt.Fprintf(&b, "Bot: %s\n", strings.TrimSpace(turn.Bot))
		if turn.Answered() {
			fmt.Fprintf(&b, "Candidate: %s\n", strings.TrimSpace(*turn.User))
		}
	}
	return strings.TrimSpace(b.String())
}

// Helper to clean and format context from RAG results
func FormatRAGContext(results []SearchResult) string {
	if len(results) == 0 {
		return "No relevant context found."
	}

	var parts []string
	for i, result := range results {
		parts = append(parts, fmt.Sprintf("--- Context %d (Score: %.2f) ---\n%s",
			i+1, result.Score, strings.TrimSpace(result.Text)))
	}

	return strings.Join(parts, "\n\n")
}
