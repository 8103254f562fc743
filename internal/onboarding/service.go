package onboarding

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/interview-onboarding/internal/logger"
	"alfredoptarigan/interview-onboarding/internal/models"
	"alfredoptarigan/interview-onboarding/internal/repositories"
)

const defaultMaxAttempts = 3

type WelcomeGenerator interface {
	GenerateWelcome(ctx context.Context, displayName string) (string, error)
}

type SummaryGenerator interface {
	GenerateOnboardingSummary(ctx context.Context, userID uuid.UUID, turns []models.Turn) (string, error)
}

// QuestionScheduler requests question bank generation for a user. It must not block.
type QuestionScheduler interface {
	EnqueueUser(userID uuid.UUID)
}

type Service interface {
	Chat(ctx context.Context, userID uuid.UUID, reply *string) (*models.ChatResponse, error)
	FlatHistory(ctx context.Context, userID uuid.UUID) ([]models.FlatMessage, error)
	Summary(ctx context.Context, userID uuid.UUID) (*models.OnboardingSummaryResponse, error)
	GenerateSummary(ctx context.Context, userID uuid.UUID) (string, error)
	StartConversation(ctx context.Context, userID uuid.UUID) (*models.ChatResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type Dependencies struct {
	Conversations repositories.OnboardingRepository
	Users         repositories.UserRepository
	Welcome       WelcomeGenerator
	Summaries     SummaryGenerator
	Scheduler     QuestionScheduler
	Cache         *SessionCache
	MaxAttempts   int
	Logger        *zap.Logger
}

type service struct {
	conversations repositories.OnboardingRepository
	users         repositories.UserRepository
	welcome       WelcomeGenerator
	summaries     SummaryGenerator
	scheduler     QuestionScheduler
	cache         *SessionCache
	maxAttempts   int
	log           *zap.Logger
}

type nopScheduler struct{}

func (nopScheduler) EnqueueUser(uuid.UUID) {}

func NewService(deps Dependencies) Service {
	s := &service{
		conversations: deps.Conversations,
		users:         deps.Users,
		welcome:       deps.Welcome,
		summaries:     deps.Summaries,
		scheduler:     deps.Scheduler,
		cache:         deps.Cache,
		maxAttempts:   deps.MaxAttempts,
		log:           logger.OrNop(deps.Logger),
	}

	if s.scheduler == nil {
		s.scheduler = nopScheduler{}
	}
	if s.cache == nil {
		s.cache = NewSessionCache(0)
	}
	if s.maxAttempts < 1 {
		s.maxAttempts = defaultMaxAttempts
	}

	return s
}

// Chat advances the user's conversation by one step. A nil reply asks for the current prompt.
func (s *service) Chat(ctx context.Context, userID uuid.UUID, reply *string) (*models.ChatResponse, error) {
	sess := s.cache.Acquire(userID)
	defer sess.Release()

	log := s.log.With(zap.String(logger.FieldUserID, userID.String()))

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		m, err := s.machineFor(ctx, sess, userID)
		if err != nil {
			return nil, err
		}

		var step Step
		var stepErr error
		if reply == nil {
			step, stepErr = m.NextPrompt()
		} else {
			step, stepErr = m.SubmitReply(*reply)
		}

		if step.Dirty {
			if err := s.conversations.Save(ctx, m.Record()); err != nil {
				sess.Drop()
				if errors.Is(err, repositories.ErrVersionConflict) {
					log.Debug("conversation changed underneath, reloading", zap.Int("attempt", attempt))
					continue
				}
				return nil, err
			}
		}

		if stepErr != nil {
			if errors.Is(stepErr, ErrBankNotReady) {
				s.scheduler.EnqueueUser(userID)
			}
			if errors.Is(stepErr, ErrBankExhausted) {
				log.Error("question bank does not cover the remaining fields", zap.Int("questions", len(m.Record().Questions)))
			}
			return nil, stepErr
		}

		if step.Completed {
			sess.Drop()
			log.Info("onboarding completed")
		}

		return step.Response, nil
	}

	log.Warn("giving up after repeated concurrent updates", zap.Int("attempts", s.maxAttempts))
	return nil, ErrConcurrentUpdateConflict
}

// machineFor returns the cached machine when it still matches the stored record, otherwise
// rebuilds it from the store, creating the conversation on first contact.
func (s *service) machineFor(ctx context.Context, sess *Session, userID uuid.UUID) (*Machine, error) {
	stamp, err := s.conversations.Stamp(ctx, userID)
	if err != nil {
		return nil, err
	}

	if m := sess.Machine(); m != nil && stamp != nil {
		rec := m.Record()
		if rec.ID == stamp.ID && rec.Version == stamp.Version {
			return m, nil
		}
	}

	rec, err := s.conversations.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	if rec == nil {
		welcome, err := s.welcomeFor(ctx, userID)
		if err != nil {
			return nil, err
		}
		rec, err = s.conversations.CreateWithWelcome(ctx, userID, welcome)
		if err != nil {
			return nil, err
		}
		s.log.Info("conversation created", zap.String(logger.FieldUserID, userID.String()))
	}

	if len(rec.Questions) == 0 && !rec.OnboardingDone {
		s.scheduler.EnqueueUser(userID)
	}

	m := NewMachine(rec)
	sess.Store(m)
	return m, nil
}

func (s *service) welcomeFor(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}

	name := user.DisplayName()
	if s.welcome == nil {
		return DefaultWelcome(name), nil
	}

	text, err := s.welcome.GenerateWelcome(ctx, name)
	if err != nil || text == "" {
		s.log.Warn("welcome generation failed, using default",
			zap.String(logger.FieldUserID, userID.String()),
			zap.Error(err),
		)
		return DefaultWelcome(name), nil
	}
	return text, nil
}

func (s *service) FlatHistory(ctx context.Context, userID uuid.UUID) ([]models.FlatMessage, error) {
	rec, err := s.conversations.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return []models.FlatMessage{}, nil
	}
	return FlattenHistory(rec.ConversationHistory), nil
}

func (s *service) Summary(ctx context.Context, userID uuid.UUID) (*models.OnboardingSummaryResponse, error) {
	rec, err := s.conversations.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("onboarding summary not found: %w", repositories.ErrNotFound)
	}

	return &models.OnboardingSummaryResponse{
		ID:                      rec.ID,
		UserID:                  rec.UserID,
		CurrentWork:             rec.CurrentWork,
		ReasonForInterview:      rec.ReasonForInterview,
		WhereInInterviewProcess: rec.WhereInInterviewProcess,
		TargetCompany:           rec.TargetCompany,
		OnboardingDone:          rec.OnboardingDone,
		DidChat:                 rec.DidChat(),
		ConversationHistory:     rec.ConversationHistory,
		Questions:               rec.Questions,
		Summary:                 rec.Summary,
		CreatedAt:               rec.CreatedAt,
		UpdatedAt:               rec.UpdatedAt,
	}, nil
}

// GenerateSummary returns the stored summary of a completed conversation, generating it on first use.
func (s *service) GenerateSummary(ctx context.Context, userID uuid.UUID) (string, error) {
	if s.summaries == nil {
		return "", errors.New("summary generator is not configured")
	}

	sess := s.cache.Acquire(userID)
	defer sess.Release()

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		rec, err := s.conversations.Load(ctx, userID)
		if err != nil {
			return "", err
		}
		if rec == nil {
			return "", fmt.Errorf("onboarding summary not found: %w", repositories.ErrNotFound)
		}
		if !rec.OnboardingDone {
			return "", ErrOnboardingIncomplete
		}
		if rec.Summary != nil && *rec.Summary != "" {
			return *rec.Summary, nil
		}

		text, err := s.summaries.GenerateOnboardingSummary(ctx, userID, rec.ConversationHistory)
		if err != nil {
			return "", fmt.Errorf("failed to generate onboarding summary: %w", err)
		}

		rec.Summary = &text
		if err := s.conversations.Save(ctx, rec); err != nil {
			if errors.Is(err, repositories.ErrVersionConflict) {
				continue
			}
			return "", err
		}

		s.log.Info("onboarding summary generated", zap.String(logger.FieldUserID, userID.String()))
		return text, nil
	}

	return "", ErrConcurrentUpdateConflict
}

// StartConversation discards the user's conversation and begins a new one with a fresh welcome.
func (s *service) StartConversation(ctx context.Context, userID uuid.UUID) (*models.ChatResponse, error) {
	sess := s.cache.Acquire(userID)
	defer sess.Release()

	welcome, err := s.welcomeFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	rec, err := s.conversations.Restart(ctx, userID, welcome)
	if err != nil {
		return nil, err
	}

	m := NewMachine(rec)
	sess.Store(m)
	s.scheduler.EnqueueUser(userID)

	s.log.Info("conversation restarted",
		zap.String(logger.FieldUserID, userID.String()),
		zap.Int64("version", rec.Version),
	)

	step, err := m.NextPrompt()
	if err != nil {
		return nil, err
	}
	return step.Response, nil
}

// Delete removes a conversation record by id.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	rec, err := s.conversations.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.conversations.Delete(ctx, id); err != nil {
		return err
	}

	s.cache.Evict(rec.UserID)
	s.log.Info("conversation deleted",
		zap.String("id", id.String()),
		zap.String(logger.FieldUserID, rec.UserID.String()),
	)
	return nil
}
