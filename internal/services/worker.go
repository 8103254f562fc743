package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/interview-onboarding/internal/config"
	"alfredoptarigan/interview-onboarding/internal/logger"
	"alfredoptarigan/interview-onboarding/internal/onboarding"
	"alfredoptarigan/interview-onboarding/internal/repositories"
)

const (
	questionQueueSize      = 100
	pollBatchSize          = 10
	defaultQuestionTimeout = 30 * time.Second
)

// QuestionBankWorker generates question banks in the background. Conversations whose generation
// failed or timed out are picked up again by the poller.
type QuestionBankWorker interface {
	Start(ctx context.Context)
	Stop()
	EnqueueUser(userID uuid.UUID)
	ProcessUser(ctx context.Context, userID uuid.UUID) error
}

type questionBankWorker struct {
	conversations repositories.OnboardingRepository
	generator     QuestionGenerator
	cache         *onboarding.SessionCache
	jobQueue      chan uuid.UUID
	concurrency   int
	timeout       time.Duration
	pollInterval  time.Duration
	maxAttempts   int
	initialDelay  time.Duration
	log           *zap.Logger

	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{}

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

func NewQuestionBankWorker(
	conversations repositories.OnboardingRepository,
	generator QuestionGenerator,
	cache *onboarding.SessionCache,
	cfg config.WorkerConfig,
	log *zap.Logger,
) QuestionBankWorker {
	w := &questionBankWorker{
		conversations: conversations,
		generator:     generator,
		cache:         cache,
		jobQueue:      make(chan uuid.UUID, questionQueueSize),
		concurrency:   cfg.Concurrency,
		timeout:       cfg.QuestionTimeout,
		pollInterval:  cfg.PollInterval,
		maxAttempts:   cfg.RetryMaxAttempts,
		initialDelay:  cfg.RetryInitialDelay,
		log:           logger.OrNop(log),
		inFlight:      make(map[uuid.UUID]struct{}),
		stopChan:      make(chan struct{}),
	}

	if w.concurrency < 1 {
		w.concurrency = 1
	}
	if w.maxAttempts < 1 {
		w.maxAttempts = 1
	}
	if w.timeout <= 0 {
		w.timeout = defaultQuestionTimeout
	}
	return w
}

// Start implements QuestionBankWorker.
func (w *questionBankWorker) Start(ctx context.Context) {
	w.log.Info("starting question bank worker", zap.Int("concurrency", w.concurrency))

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(ctx, i+1)
	}

	if w.pollInterval > 0 {
		w.wg.Add(1)
		go w.pollAwaitingConversations(ctx)
	}
}

// Stop implements QuestionBankWorker.
func (w *questionBankWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopChan)
	})
	w.wg.Wait()
	w.log.Info("question bank worker stopped")
}

// EnqueueUser implements onboarding.QuestionScheduler. It never blocks: a user already queued is
// skipped and a full queue is left to the poller.
func (w *questionBankWorker) EnqueueUser(userID uuid.UUID) {
	w.mu.Lock()
	if _, ok := w.inFlight[userID]; ok {
		w.mu.Unlock()
		return
	}
	w.inFlight[userID] = struct{}{}
	w.mu.Unlock()

	select {
	case <-w.stopChan:
		w.done(userID)
	case w.jobQueue <- userID:
		w.log.Debug("question bank job enqueued", zap.String(logger.FieldUserID, userID.String()))
	default:
		w.done(userID)
		w.log.Warn("question bank queue full", zap.String(logger.FieldUserID, userID.String()))
	}
}

// ProcessUser generates and stores the user's question bank unless the conversation already has one.
func (w *questionBankWorker) ProcessUser(ctx context.Context, userID uuid.UUID) error {
	rec, err := w.conversations.Load(ctx, userID)
	if err != nil {
		return err
	}
	if rec == nil || rec.OnboardingDone || len(rec.Questions) > 0 {
		return nil
	}

	var lastErr error
	delay := w.initialDelay
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		genCtx, cancel := context.WithTimeout(ctx, w.timeout)
		bank, err := w.generator.GenerateQuestionBank(genCtx)
		cancel()

		if err == nil {
			if _, err := w.conversations.PopulateQuestionBank(ctx, userID, bank); err != nil {
				return err
			}
			if w.cache != nil {
				w.cache.Evict(userID)
			}
			w.log.Info("question bank stored", zap.String(logger.FieldUserID, userID.String()))
			return nil
		}

		lastErr = err
		w.log.Warn("question bank generation failed",
			zap.String(logger.FieldUserID, userID.String()),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		if attempt == w.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopChan:
			return lastErr
		case <-time.After(delay):
		}
		delay *= 2
	}

	return fmt.Errorf("failed to generate question bank after %d attempts: %w", w.maxAttempts, lastErr)
}

func (w *questionBankWorker) done(userID uuid.UUID) {
	w.mu.Lock()
	delete(w.inFlight, userID)
	w.mu.Unlock()
}

func (w *questionBankWorker) processJobs(ctx context.Context, workerID int) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case userID := <-w.jobQueue:
			if err := w.ProcessUser(ctx, userID); err != nil {
				w.log.Error("question bank job failed",
					zap.Int("worker", workerID),
					zap.String(logger.FieldUserID, userID.String()),
					zap.Error(err),
				)
			}
			w.done(userID)
		}
	}
}

func (w *questionBankWorker) pollAwaitingConversations(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			userIDs, err := w.conversations.FindAwaitingQuestionBank(ctx, pollBatchSize)
			if err != nil {
				w.log.Warn("failed to fetch conversations awaiting questions", zap.Error(err))
				continue
			}

			if len(userIDs) > 0 {
				w.log.Debug("found conversations awaiting questions", zap.Int("count", len(userIDs)))
			}

			for _, userID := range userIDs {
				w.EnqueueUser(userID)
			}
		}
	}
}
