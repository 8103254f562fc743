package repositories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/interview-onboarding/internal/models"
	"alfredoptarigan/interview-onboarding/internal/testutil"
)

func TestOnboardingRepositoryCreateAndLoad(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t)
	repo := NewOnboardingRepository(db)
	userID := uuid.New()

	missing, err := repo.Load(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, missing)

	stamp, err := repo.Stamp(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, stamp)

	rec, err := repo.CreateWithWelcome(ctx, userID, "hello")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.Version)

	again, err := repo.CreateWithWelcome(ctx, userID, "a different welcome")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, again.ID)

	loaded, err := repo.Load(ctx, userID)
	require.NoError(t, err)
	require.Len(t, loaded.ConversationHistory, 1)
	assert.Equal(t, "hello", loaded.ConversationHistory[0].Bot)
	assert.Equal(t, models.FieldWelcome, loaded.ConversationHistory[0].Field)
	assert.False(t, loaded.ConversationHistory[0].Answered())
	assert.Empty(t, loaded.Questions)
	assert.Empty(t, loaded.AnswerMap())
}

func TestOnboardingRepositorySaveDetectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	repo := NewOnboardingRepository(testutil.NewTestDB(t))
	userID := uuid.New()

	_, err := repo.CreateWithWelcome(ctx, userID, "hello")
	require.NoError(t, err)

	first, err := repo.Load(ctx, userID)
	require.NoError(t, err)
	second, err := repo.Load(ctx, userID)
	require.NoError(t, err)

	reply := "hi"
	first.ConversationHistory[0].User = &reply
	require.NoError(t, repo.Save(ctx, first))
	assert.Equal(t, int64(2), first.Version)

	other := "hey"
	second.ConversationHistory[0].User = &other
	err = repo.Save(ctx, second)
	assert.ErrorIs(t, err, ErrVersionConflict)

	stored, err := repo.Load(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, stored.ConversationHistory[0].User)
	assert.Equal(t, "hi", *stored.ConversationHistory[0].User)

	stamp, err := repo.Stamp(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, stamp)
	assert.Equal(t, first.ID, stamp.ID)
	assert.Equal(t, int64(2), stamp.Version)
}

func TestOnboardingRepositorySavePersistsAnswersAndSlots(t *testing.T) {
	ctx := context.Background()
	repo := NewOnboardingRepository(testutil.NewTestDB(t))
	userID := uuid.New()

	rec, err := repo.CreateWithWelcome(ctx, userID, "hello")
	require.NoError(t, err)

	require.NoError(t, rec.SetAnswer(models.FieldTargetCompany, "Acme"))
	require.NoError(t, rec.SetSlot(models.FieldTargetCompany, "Acme"))
	assert.Error(t, rec.SetAnswer(models.FieldWelcome, "nope"))
	assert.Error(t, rec.SetSlot("salary", "nope"))
	rec.OnboardingDone = true
	require.NoError(t, repo.Save(ctx, rec))

	stored, err := repo.Load(ctx, userID)
	require.NoError(t, err)
	answer, ok := stored.Answer(models.FieldTargetCompany)
	assert.True(t, ok)
	assert.Equal(t, "Acme", answer)
	assert.Equal(t, "Acme", stored.Slot(models.FieldTargetCompany))
	assert.True(t, stored.OnboardingDone)
	assert.True(t, stored.DidChat())
}

func TestOnboardingRepositoryPopulateQuestionBankOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewOnboardingRepository(testutil.NewTestDB(t))
	userID := uuid.New()

	_, err := repo.PopulateQuestionBank(ctx, userID, testutil.FullBank())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.CreateWithWelcome(ctx, userID, "hello")
	require.NoError(t, err)

	awaiting, err := repo.FindAwaitingQuestionBank(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{userID}, awaiting)

	rec, err := repo.PopulateQuestionBank(ctx, userID, testutil.FullBank())
	require.NoError(t, err)
	require.Len(t, rec.Questions, 4)

	replacement := []models.Question{{Field: models.FieldCurrentWork, Bot: "regenerated"}}
	rec, err = repo.PopulateQuestionBank(ctx, userID, replacement)
	require.NoError(t, err)
	q, ok := rec.Question(models.FieldCurrentWork)
	assert.True(t, ok)
	assert.Equal(t, "question about current_work", q)

	awaiting, err = repo.FindAwaitingQuestionBank(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, awaiting)
}

func TestOnboardingRepositoryRestart(t *testing.T) {
	ctx := context.Background()
	repo := NewOnboardingRepository(testutil.NewTestDB(t))
	userID := uuid.New()

	rec, err := repo.CreateWithWelcome(ctx, userID, "hello")
	require.NoError(t, err)
	_, err = repo.PopulateQuestionBank(ctx, userID, testutil.FullBank())
	require.NoError(t, err)

	rec, err = repo.Load(ctx, userID)
	require.NoError(t, err)
	require.NoError(t, rec.SetAnswer(models.FieldCurrentWork, "engineer"))
	require.NoError(t, repo.Save(ctx, rec))

	restarted, err := repo.Restart(ctx, userID, "welcome back")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, restarted.ID)
	assert.Greater(t, restarted.Version, rec.Version)
	require.Len(t, restarted.ConversationHistory, 1)
	assert.Equal(t, "welcome back", restarted.ConversationHistory[0].Bot)
	assert.Empty(t, restarted.Questions)
	assert.Empty(t, restarted.AnswerMap())
	assert.False(t, restarted.OnboardingDone)

	fresh, err := repo.Restart(ctx, uuid.New(), "first time")
	require.NoError(t, err)
	assert.Equal(t, int64(1), fresh.Version)
}

func TestOnboardingRepositoryDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewOnboardingRepository(testutil.NewTestDB(t))

	rec, err := repo.CreateWithWelcome(ctx, uuid.New(), "hello")
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.UserID, found.UserID)

	require.NoError(t, repo.Delete(ctx, rec.ID))
	assert.ErrorIs(t, repo.Delete(ctx, rec.ID), ErrNotFound)

	_, err = repo.FindByID(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
