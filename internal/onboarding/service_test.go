package onboarding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"alfredoptarigan/interview-onboarding/internal/models"
	"alfredoptarigan/interview-onboarding/internal/repositories"
	"alfredoptarigan/interview-onboarding/internal/testutil"
)

type fakeWelcome struct {
	err error
}

func (f *fakeWelcome) GenerateWelcome(_ context.Context, name string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "Welcome, " + name + "!", nil
}

type fakeSummaries struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeSummaries) GenerateOnboardingSummary(_ context.Context, _ uuid.UUID, turns []models.Turn) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return fmt.Sprintf("candidate summary from %d turns", len(turns)), nil
}

type fakeScheduler struct {
	mu    sync.Mutex
	users []uuid.UUID
}

func (f *fakeScheduler) EnqueueUser(userID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, userID)
}

func (f *fakeScheduler) enqueued(userID uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.users {
		if id == userID {
			return true
		}
	}
	return false
}

// racingRepository lets another writer answer the pending turn right before the first Save.
type racingRepository struct {
	repositories.OnboardingRepository
	once sync.Once
	race func()
}

func (r *racingRepository) Save(ctx context.Context, rec *models.OnboardingSummary) error {
	r.once.Do(r.race)
	return r.OnboardingRepository.Save(ctx, rec)
}

type conflictingRepository struct {
	repositories.OnboardingRepository
	saves int
}

func (r *conflictingRepository) Save(context.Context, *models.OnboardingSummary) error {
	r.saves++
	return repositories.ErrVersionConflict
}

type fixture struct {
	db        *gorm.DB
	repo      repositories.OnboardingRepository
	users     repositories.UserRepository
	cache     *SessionCache
	scheduler *fakeScheduler
	summaries *fakeSummaries
	svc       Service
	user      *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewTestDB(t)
	f := &fixture{
		db:        db,
		repo:      repositories.NewOnboardingRepository(db),
		users:     repositories.NewUserRepository(db),
		cache:     NewSessionCache(16),
		scheduler: &fakeScheduler{},
		summaries: &fakeSummaries{},
		user:      testutil.CreateUser(t, db, "Ada"),
	}
	f.svc = f.newService(f.repo, &fakeWelcome{})
	return f
}

func (f *fixture) newService(repo repositories.OnboardingRepository, welcome WelcomeGenerator) Service {
	return NewService(Dependencies{
		Conversations: repo,
		Users:         f.users,
		Welcome:       welcome,
		Summaries:     f.summaries,
		Scheduler:     f.scheduler,
		Cache:         f.cache,
		MaxAttempts:   3,
	})
}

// populate stores the full bank, opening the conversation through the service first if needed.
func (f *fixture) populate(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	rec, err := f.repo.Load(ctx, f.user.ID)
	require.NoError(t, err)
	if rec == nil {
		_, err = f.svc.Chat(ctx, f.user.ID, nil)
		require.NoError(t, err)
	}

	_, err = f.repo.PopulateQuestionBank(ctx, f.user.ID, testutil.FullBank())
	require.NoError(t, err)
}

func (f *fixture) chat(t *testing.T, reply string) *models.ChatResponse {
	t.Helper()
	resp, err := f.svc.Chat(context.Background(), f.user.ID, &reply)
	require.NoError(t, err)
	return resp
}

func (f *fixture) complete(t *testing.T) {
	t.Helper()
	f.chat(t, "hi")
	for _, field := range models.OnboardingFields {
		f.chat(t, "answer for "+string(field))
	}
}

func TestChatScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	resp, err := f.svc.Chat(ctx, f.user.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ChatStatusQuestion, resp.Status)
	assert.Equal(t, models.FieldWelcome, resp.Field)
	assert.Equal(t, "Welcome, Ada!", resp.Message)
	assert.True(t, f.scheduler.enqueued(f.user.ID))

	f.populate(t)

	resp = f.chat(t, "hi")
	assert.Equal(t, models.FieldCurrentWork, resp.Field)
	assert.Equal(t, "question about current_work", resp.Message)

	replies := map[models.OnboardingField]string{
		models.FieldCurrentWork:             "backend engineer",
		models.FieldReasonForInterview:      "looking for growth",
		models.FieldWhereInInterviewProcess: "onsite next week",
		models.FieldTargetCompany:           "Acme",
	}
	for _, field := range models.OnboardingFields {
		resp = f.chat(t, replies[field])
	}

	assert.Equal(t, models.ChatStatusComplete, resp.Status)
	assert.Equal(t, replies, resp.Fields)
	assert.Len(t, resp.ConversationHistory, 5)
	assert.False(t, f.cache.Cached(f.user.ID))

	again, err := f.svc.Chat(ctx, f.user.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ChatStatusComplete, again.Status)

	rec, err := f.repo.Load(ctx, f.user.ID)
	require.NoError(t, err)
	assert.True(t, rec.OnboardingDone)
	for field, reply := range replies {
		assert.Equal(t, reply, rec.Slot(field))
	}

	reply := "one more thing"
	_, err = f.svc.Chat(ctx, f.user.ID, &reply)
	assert.ErrorIs(t, err, ErrConversationClosed)
}

func TestChatBankNotReady(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	reply := "hello"
	_, err := f.svc.Chat(ctx, f.user.ID, &reply)
	assert.ErrorIs(t, err, ErrBankNotReady)

	rec, err := f.repo.Load(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, rec.ConversationHistory, 1)
	assert.True(t, rec.ConversationHistory[0].Answered())
	assert.Empty(t, rec.Questions)

	_, err = f.svc.Chat(ctx, f.user.ID, nil)
	assert.ErrorIs(t, err, ErrBankNotReady)

	f.populate(t)

	resp, err := f.svc.Chat(ctx, f.user.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.FieldCurrentWork, resp.Field)
}

func TestChatInvalidReplyKeepsPendingTurn(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.populate(t)

	empty := ""
	_, err := f.svc.Chat(ctx, f.user.ID, &empty)
	assert.ErrorIs(t, err, ErrInvalidResponse)

	rec, err := f.repo.Load(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, rec.ConversationHistory, 1)
	assert.False(t, rec.ConversationHistory[0].Answered())

	resp := f.chat(t, "hi")
	assert.Equal(t, models.FieldCurrentWork, resp.Field)
}

func TestChatUnknownUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Chat(context.Background(), uuid.New(), nil)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestChatFallsBackToDefaultWelcome(t *testing.T) {
	f := newFixture(t)
	svc := f.newService(f.repo, &fakeWelcome{err: errors.New("quota exceeded")})

	resp, err := svc.Chat(context.Background(), f.user.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultWelcome("Ada"), resp.Message)
}

func TestChatRetriesOntoNewPendingTurnAfterConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.Chat(ctx, f.user.ID, nil)
	require.NoError(t, err)
	f.populate(t)

	racing := &racingRepository{OnboardingRepository: f.repo}
	racing.race = func() {
		rec, err := f.repo.Load(ctx, f.user.ID)
		require.NoError(t, err)
		_, err = NewMachine(rec).SubmitReply("from elsewhere")
		require.NoError(t, err)
		require.NoError(t, f.repo.Save(ctx, rec))
	}
	svc := f.newService(racing, &fakeWelcome{})

	reply := "backend engineer"
	resp, err := svc.Chat(ctx, f.user.ID, &reply)
	require.NoError(t, err)
	assert.Equal(t, models.FieldReasonForInterview, resp.Field)

	rec, err := f.repo.Load(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "from elsewhere", *rec.ConversationHistory[0].User)
	answer, ok := rec.Answer(models.FieldCurrentWork)
	assert.True(t, ok)
	assert.Equal(t, "backend engineer", answer)
	assert.Len(t, rec.ConversationHistory, 3)
}

func TestChatSurfacesRepeatedConflicts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.Chat(ctx, f.user.ID, nil)
	require.NoError(t, err)

	conflicting := &conflictingRepository{OnboardingRepository: f.repo}
	svc := f.newService(conflicting, &fakeWelcome{})

	reply := "hi"
	_, err = svc.Chat(ctx, f.user.ID, &reply)
	assert.ErrorIs(t, err, ErrConcurrentUpdateConflict)
	assert.Equal(t, 3, conflicting.saves)

	rec, err := f.repo.Load(ctx, f.user.ID)
	require.NoError(t, err)
	assert.False(t, rec.ConversationHistory[0].Answered())
}

func TestChatConcurrentRepliesAcrossProcesses(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.Chat(ctx, f.user.ID, nil)
	require.NoError(t, err)
	f.populate(t)

	// Separate caches stand in for separate processes sharing one database.
	services := []Service{
		NewService(Dependencies{Conversations: f.repo, Users: f.users, Cache: NewSessionCache(0)}),
		NewService(Dependencies{Conversations: f.repo, Users: f.users, Cache: NewSessionCache(0)}),
	}

	var wg sync.WaitGroup
	errs := make([]error, len(services))
	for i, svc := range services {
		wg.Add(1)
		go func(i int, svc Service) {
			defer wg.Done()
			reply := "reply from worker"
			_, errs[i] = svc.Chat(ctx, f.user.ID, &reply)
		}(i, svc)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrConcurrentUpdateConflict)
	}
	assert.GreaterOrEqual(t, succeeded, 1)

	rec, err := f.repo.Load(ctx, f.user.ID)
	require.NoError(t, err)

	pending, answered := 0, 0
	for _, turn := range rec.ConversationHistory {
		if turn.Answered() {
			answered++
		} else {
			pending++
		}
	}
	assert.LessOrEqual(t, pending, 1)
	assert.Equal(t, succeeded, answered)
	assert.Len(t, rec.AnswerMap(), answered-1)
}

func TestChatRebuildsFromStoreAfterEviction(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.populate(t)
	f.chat(t, "hi")
	f.chat(t, "engineer")

	fresh := NewService(Dependencies{Conversations: f.repo, Users: f.users, Cache: NewSessionCache(0)})
	want, err := fresh.Chat(ctx, f.user.ID, nil)
	require.NoError(t, err)

	got, err := f.svc.Chat(ctx, f.user.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	f.cache.Evict(f.user.ID)
	rebuilt, err := f.svc.Chat(ctx, f.user.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, want, rebuilt)
}

func TestFlatHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	flat, err := f.svc.FlatHistory(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, flat)

	f.populate(t)
	f.chat(t, "hi")

	flat, err = f.svc.FlatHistory(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.FlatMessage{
		{Role: "bot", Message: "Welcome, Ada!"},
		{Role: "user", Message: "hi"},
		{Role: "bot", Message: "question about current_work"},
	}, flat)
}

func TestSummary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Summary(ctx, f.user.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	f.populate(t)
	f.chat(t, "hi")

	view, err := f.svc.Summary(ctx, f.user.ID)
	require.NoError(t, err)
	assert.False(t, view.DidChat)
	assert.Nil(t, view.CurrentWork)
	assert.False(t, view.OnboardingDone)
	assert.Len(t, view.Questions, 4)

	f.chat(t, "backend engineer")

	view, err = f.svc.Summary(ctx, f.user.ID)
	require.NoError(t, err)
	assert.True(t, view.DidChat)
	assert.False(t, view.OnboardingDone)
	require.NotNil(t, view.CurrentWork)
	assert.Equal(t, "backend engineer", *view.CurrentWork)
	assert.Nil(t, view.ReasonForInterview)

	for _, field := range models.OnboardingFields[1:] {
		f.chat(t, "answer for "+string(field))
	}

	view, err = f.svc.Summary(ctx, f.user.ID)
	require.NoError(t, err)
	assert.True(t, view.DidChat)
	assert.True(t, view.OnboardingDone)
	require.NotNil(t, view.TargetCompany)
	assert.Equal(t, "answer for target_company", *view.TargetCompany)
}

func TestGenerateSummary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.populate(t)

	_, err := f.svc.GenerateSummary(ctx, f.user.ID)
	assert.ErrorIs(t, err, ErrOnboardingIncomplete)

	f.complete(t)

	text, err := f.svc.GenerateSummary(ctx, f.user.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, text)

	again, err := f.svc.GenerateSummary(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, text, again)
	assert.Equal(t, 1, f.summaries.calls)

	rec, err := f.repo.Load(ctx, f.user.ID)
	require.NoError(t, err)
	require.NotNil(t, rec.Summary)
	assert.Equal(t, text, *rec.Summary)
}

func TestStartConversationResetsRecord(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.populate(t)
	f.complete(t)

	before, err := f.repo.Load(ctx, f.user.ID)
	require.NoError(t, err)

	resp, err := f.svc.StartConversation(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FieldWelcome, resp.Field)
	assert.Equal(t, "Welcome, Ada!", resp.Message)

	after, err := f.repo.Load(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, before.ID, after.ID)
	assert.Greater(t, after.Version, before.Version)
	assert.False(t, after.OnboardingDone)
	assert.Empty(t, after.Questions)
	assert.Len(t, after.ConversationHistory, 1)

	_, err = f.svc.Chat(ctx, f.user.ID, nil)
	require.NoError(t, err)
	reply := "hi"
	_, err = f.svc.Chat(ctx, f.user.ID, &reply)
	assert.ErrorIs(t, err, ErrBankNotReady)
}

func TestDeleteEvictsConversation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.populate(t)
	f.chat(t, "hi")
	require.True(t, f.cache.Cached(f.user.ID))

	rec, err := f.repo.Load(ctx, f.user.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, rec.ID))
	assert.False(t, f.cache.Cached(f.user.ID))
	assert.ErrorIs(t, f.svc.Delete(ctx, rec.ID), repositories.ErrNotFound)

	resp, err := f.svc.Chat(ctx, f.user.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.FieldWelcome, resp.Field)
}
