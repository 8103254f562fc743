package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Resume struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	ResumePath  *string   `gorm:"type:text" json:"resume_path,omitempty"`
	LinkedInURL *string   `gorm:"type:text" json:"linkedin_url,omitempty"`
	Summary     *string   `gorm:"type:text" json:"summary,omitempty"`
	UploadedAt  time.Time `gorm:"autoCreateTime" json:"uploaded_at"`
}

func (Resume) TableName() string {
	return "resume"
}

func (r *Resume) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
