package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/interview-onboarding/internal/models"
)

type ResumeRepository interface {
	ReplaceForUser(ctx context.Context, resume *models.Resume) error
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Resume, error)
}

type resumeRepository struct {
	db *gorm.DB
}

func NewResumeRepository(db *gorm.DB) ResumeRepository {
	return &resumeRepository{db: db}
}

// ReplaceForUser removes any previous resume of the user and stores the new one.
func (r *resumeRepository) ReplaceForUser(ctx context.Context, resume *models.Resume) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", resume.UserID).Delete(&models.Resume{}).Error; err != nil {
			return fmt.Errorf("failed to delete previous resumes: %w", err)
		}
		if err := tx.Create(resume).Error; err != nil {
			return fmt.Errorf("failed to create resume: %w", err)
		}
		return nil
	})
	return err
}

// FindByUserID implements ResumeRepository.
func (r *resumeRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Resume, error) {
	var resume models.Resume
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&resume).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("resume not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find resume: %w", err)
	}
	return &resume, nil
}
