package entities

import "time"

// Session lifecycle values.
const (
	SessionStatusDraft     = "draft"
	SessionStatusActive    = "active"
	SessionStatusCompleted = "completed"
)

// Session is a scoped round of testing.
type Session struct {
	ID             uint       `gorm:"primaryKey"`
	OrganizationID uint       `gorm:"not null;index"`
	Title          string     `gorm:"size:200;not null"`
	Description    string     `gorm:"type:text"`
	Status         string     `gorm:"size:20;not null;default:active"`
	StartDate      *time.Time `gorm:"index"`
	EndDate        *time.Time
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`

	Features  []Feature         `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE"`
	Assignees []SessionAssignee `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE"`
}

// TableName returns the table name for GORM.
func (Session) TableName() string {
	return "sessions"
}

// SessionAssignee records a tester assigned to a session. Assignment does not gate feedback.
type SessionAssignee struct {
	SessionID  uint      `gorm:"primaryKey"`
	TesterID   uint      `gorm:"primaryKey"`
	AssignedAt time.Time `gorm:"autoCreateTime"`
}

// TableName returns the table name for GORM.
func (SessionAssignee) TableName() string {
	return "session_assignees"
}
