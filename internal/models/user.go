package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Email       string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"email"`
	FirstName   *string    `gorm:"type:varchar(50)" json:"first_name,omitempty"`
	LastName    *string    `gorm:"type:varchar(50)" json:"last_name,omitempty"`
	AvatarURL   *string    `gorm:"type:varchar(255)" json:"avatar_url,omitempty"`
	IsActive    bool       `gorm:"not null;default:true" json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// DisplayName is the name used to greet the user, "there" when unknown.
func (u *User) DisplayName() string {
	if u == nil || u.FirstName == nil || *u.FirstName == "" {
		return "there"
	}
	return *u.FirstName
}
