package entities

import (
	"time"

	"github.com/quicktest-hq/quicktest/internal/status"
)

// Feedback is one tester's recorded result for a case. Testers keep a full
// history; the current entry is the latest by CreatedAt, ties going to the higher ID.
type Feedback struct {
	ID        uint          `gorm:"primaryKey"`
	CaseID    uint          `gorm:"not null;index:idx_feedback_case_tester"`
	TesterID  uint          `gorm:"not null;index:idx_feedback_case_tester"`
	Result    status.Result `gorm:"size:10;not null"`
	Comment   string        `gorm:"type:text"`
	CreatedAt time.Time     `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time     `gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM.
func (Feedback) TableName() string {
	return "feedback"
}

// Entry projects the row onto the fields status derivation needs.
func (f *Feedback) Entry() status.Entry {
	return status.Entry{ID: f.ID, TesterID: f.TesterID, Result: f.Result, CreatedAt: f.CreatedAt}
}
