package onboarding

import "errors"

type ErrorKind string

const (
	KindInvalidResponse          ErrorKind = "invalid_response"
	KindNoPendingQuestion        ErrorKind = "no_pending_question"
	KindBankNotReady             ErrorKind = "bank_not_ready"
	KindBankExhausted            ErrorKind = "bank_exhausted"
	KindConcurrentUpdateConflict ErrorKind = "concurrent_update_conflict"
	KindConversationClosed       ErrorKind = "conversation_closed"
	KindOnboardingIncomplete     ErrorKind = "onboarding_incomplete"
)

// Error is a classified onboarding failure. Two errors match under errors.Is when their kinds match.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrInvalidResponse          = &Error{Kind: KindInvalidResponse, Msg: "response must be at least 2 characters"}
	ErrNoPendingQuestion        = &Error{Kind: KindNoPendingQuestion, Msg: "no question is awaiting a response"}
	ErrBankNotReady             = &Error{Kind: KindBankNotReady, Msg: "onboarding questions are still being generated"}
	ErrBankExhausted            = &Error{Kind: KindBankExhausted, Msg: "question bank does not cover every onboarding field"}
	ErrConcurrentUpdateConflict = &Error{Kind: KindConcurrentUpdateConflict, Msg: "conversation was updated concurrently, please retry"}
	ErrConversationClosed       = &Error{Kind: KindConversationClosed, Msg: "onboarding is already complete"}
	ErrOnboardingIncomplete     = &Error{Kind: KindOnboardingIncomplete, Msg: "onboarding is not complete yet"}
)

// KindOf returns the kind of err, or "" when err is not an onboarding error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
