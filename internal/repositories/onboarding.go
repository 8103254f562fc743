package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"alfredoptarigan/interview-onboarding/internal/models"
)

// OnboardingRepository persists conversation records. Writes to an existing record are
// guarded by its version stamp so concurrent writers for the same user cannot both succeed.
type OnboardingRepository interface {
	Load(ctx context.Context, userID uuid.UUID) (*models.OnboardingSummary, error)
	Stamp(ctx context.Context, userID uuid.UUID) (*Stamp, error)
	Save(ctx context.Context, rec *models.OnboardingSummary) error
	CreateWithWelcome(ctx context.Context, userID uuid.UUID, welcome string) (*models.OnboardingSummary, error)
	Restart(ctx context.Context, userID uuid.UUID, welcome string) (*models.OnboardingSummary, error)
	PopulateQuestionBank(ctx context.Context, userID uuid.UUID, bank []models.Question) (*models.OnboardingSummary, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.OnboardingSummary, error)
	Delete(ctx context.Context, id uuid.UUID) error
	FindAwaitingQuestionBank(ctx context.Context, limit int) ([]uuid.UUID, error)
}

const populateAttempts = 3

type onboardingRepository struct {
	db *gorm.DB
}

func NewOnboardingRepository(db *gorm.DB) OnboardingRepository {
	return &onboardingRepository{db: db}
}

// Load returns the user's record, or nil when the user has none.
func (r *onboardingRepository) Load(ctx context.Context, userID uuid.UUID) (*models.OnboardingSummary, error) {
	var rec models.OnboardingSummary
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load onboarding summary: %w", err)
	}
	return &rec, nil
}

// Stamp identifies one revision of a conversation record.
type Stamp struct {
	ID      uuid.UUID
	Version int64
}

// Stamp returns the id and version of the user's record, nil when absent.
func (r *onboardingRepository) Stamp(ctx context.Context, userID uuid.UUID) (*Stamp, error) {
	var stamps []Stamp
	err := r.db.WithContext(ctx).
		Model(&models.OnboardingSummary{}).
		Select("id", "version").
		Where("user_id = ?", userID).
		Limit(1).
		Find(&stamps).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read onboarding version: %w", err)
	}
	if len(stamps) == 0 {
		return nil, nil
	}
	return &stamps[0], nil
}

// Save replaces the mutable fields of rec if its version is still current.
func (r *onboardingRepository) Save(ctx context.Context, rec *models.OnboardingSummary) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.OnboardingSummary{}).
		Where("id = ? AND version = ?", rec.ID, rec.Version).
		Updates(map[string]interface{}{
			"conversation_history":       rec.ConversationHistory,
			"questions":                  rec.Questions,
			"answers":                    rec.Answers,
			"current_work":               rec.CurrentWork,
			"reason_for_interview":       rec.ReasonForInterview,
			"where_in_interview_process": rec.WhereInInterviewProcess,
			"target_company":             rec.TargetCompany,
			"onboarding_done":            rec.OnboardingDone,
			"summary":                    rec.Summary,
			"version":                    rec.Version + 1,
			"updated_at":                 now,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to save onboarding summary: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}

	rec.Version++
	rec.UpdatedAt = now
	return nil
}

// CreateWithWelcome returns the user's record, creating it with a single welcome turn when absent.
func (r *onboardingRepository) CreateWithWelcome(ctx context.Context, userID uuid.UUID, welcome string) (*models.OnboardingSummary, error) {
	existing, err := r.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	rec := models.NewOnboardingSummary(userID, welcome)
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		// Lost a creation race on the unique user_id index.
		if existing, loadErr := r.Load(ctx, userID); loadErr == nil && existing != nil {
			return existing, nil
		}
		return nil, fmt.Errorf("failed to create onboarding summary: %w", err)
	}
	return rec, nil
}

// Restart starts a new conversation for the user: a single welcome turn, no question bank,
// no answers. The record keeps its id and its version moves forward.
func (r *onboardingRepository) Restart(ctx context.Context, userID uuid.UUID, welcome string) (*models.OnboardingSummary, error) {
	rec, err := r.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return r.CreateWithWelcome(ctx, userID, welcome)
	}

	result := r.db.WithContext(ctx).
		Model(&models.OnboardingSummary{}).
		Where("id = ?", rec.ID).
		Updates(map[string]interface{}{
			"conversation_history":       datatypes.JSONSlice[models.Turn]{{Bot: welcome, Field: models.FieldWelcome}},
			"questions":                  datatypes.JSONSlice[models.Question]{},
			"answers":                    datatypes.NewJSONType(map[models.OnboardingField]string{}),
			"current_work":               nil,
			"reason_for_interview":       nil,
			"where_in_interview_process": nil,
			"target_company":             nil,
			"onboarding_done":            false,
			"summary":                    nil,
			"version":                    gorm.Expr("version + 1"),
			"updated_at":                 time.Now(),
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to restart onboarding summary: %w", result.Error)
	}

	return r.Load(ctx, userID)
}

// PopulateQuestionBank stores bank on the user's record unless a bank is already present,
// in which case the existing record is returned untouched.
func (r *onboardingRepository) PopulateQuestionBank(ctx context.Context, userID uuid.UUID, bank []models.Question) (*models.OnboardingSummary, error) {
	for attempt := 0; attempt < populateAttempts; attempt++ {
		rec, err := r.Load(ctx, userID)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, fmt.Errorf("onboarding summary not found: %w", ErrNotFound)
		}
		if len(rec.Questions) > 0 {
			return rec, nil
		}

		rec.Questions = append(datatypes.JSONSlice[models.Question]{}, bank...)
		err = r.Save(ctx, rec)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("failed to populate question bank: %w", ErrVersionConflict)
}

// FindByID implements OnboardingRepository.
func (r *onboardingRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.OnboardingSummary, error) {
	var rec models.OnboardingSummary
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("onboarding summary not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find onboarding summary: %w", err)
	}
	return &rec, nil
}

// Delete implements OnboardingRepository.
func (r *onboardingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.OnboardingSummary{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete onboarding summary: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("onboarding summary not found: %w", ErrNotFound)
	}
	return nil
}

// FindAwaitingQuestionBank returns users whose open conversation has no question bank yet.
func (r *onboardingRepository) FindAwaitingQuestionBank(ctx context.Context, limit int) ([]uuid.UUID, error) {
	var userIDs []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.OnboardingSummary{}).
		Where("onboarding_done = ?", false).
		Where("questions IS NULL OR CAST(questions AS TEXT) IN ('[]', 'null')").
		Order("created_at ASC").
		Limit(limit).
		Pluck("user_id", &userIDs).Error

	if err != nil {
		return nil, fmt.Errorf("failed to find conversations awaiting questions: %w", err)
	}

	return userIDs, nil
}
