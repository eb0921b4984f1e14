package entities

import (
	"time"

	"gorm.io/datatypes"
)

// Changelog actions.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Changelog entity types.
const (
	EntityFeedback = "feedback"
)

// ChangelogEntry is an audit record of a write. Changes holds a JSON object of
// field name to {old, new} pairs.
type ChangelogEntry struct {
	ID         uint   `gorm:"primaryKey"`
	EntityType string `gorm:"size:32;not null;index:idx_changelog_entity"`
	EntityID   uint   `gorm:"not null;index:idx_changelog_entity"`
	TesterID   uint   `gorm:"not null;index"`
	Action     string `gorm:"size:16;not null"`
	Changes    datatypes.JSON
	CreatedAt  time.Time `gorm:"autoCreateTime;index"`
}

// TableName returns the table name for GORM.
func (ChangelogEntry) TableName() string {
	return "changelog"
}

// FieldChange is the value stored per field in ChangelogEntry.Changes.
type FieldChange struct {
	Old any `json:"old,omitempty"`
	New any `json:"new,omitempty"`
}
