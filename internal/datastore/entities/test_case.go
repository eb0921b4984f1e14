package entities

import (
	"time"

	"github.com/quicktest-hq/quicktest/internal/status"
)

// TestCase is a single checkable item. Status is a cached projection of the
// case's feedback history and is only written by the feedback repository.
type TestCase struct {
	ID             uint          `gorm:"primaryKey"`
	FeatureID      uint          `gorm:"not null;index"`
	Title          string        `gorm:"size:300;not null"`
	Note           string        `gorm:"type:text"`
	ExpectedOutput string        `gorm:"type:text"`
	SortOrder      int           `gorm:"not null;default:0"`
	Status         status.Status `gorm:"size:20;not null;default:untested;index"`
	CreatedAt      time.Time     `gorm:"autoCreateTime"`
	UpdatedAt      time.Time     `gorm:"autoUpdateTime"`

	Feedback []Feedback `gorm:"foreignKey:CaseID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE"`
}

// TableName returns the table name for GORM.
func (TestCase) TableName() string {
	return "test_cases"
}
