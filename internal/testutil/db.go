// Package testutil provides in-memory databases for package tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"alfredoptarigan/interview-onboarding/internal/config"
	"alfredoptarigan/interview-onboarding/internal/models"
)

// NewTestDB opens a private in-memory SQLite database with all tables migrated.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	// In-memory SQLite lives as long as one connection does; keep exactly one.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := config.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// CreateUser inserts a user with the given first name.
func CreateUser(t *testing.T, db *gorm.DB, firstName string) *models.User {
	t.Helper()

	user := &models.User{Email: uuid.NewString() + "@example.com", IsActive: true}
	if firstName != "" {
		user.FirstName = &firstName
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

// FullBank returns a complete question bank in field order.
func FullBank() []models.Question {
	bank := make([]models.Question, 0, len(models.OnboardingFields))
	for _, f := range models.OnboardingFields {
		bank = append(bank, models.Question{Field: f, Bot: "question about " + string(f)})
	}
	return bank
}
