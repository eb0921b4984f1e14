package entities

import "time"

// Feature groups test cases within a session.
type Feature struct {
	ID          uint      `gorm:"primaryKey"`
	SessionID   uint      `gorm:"not null;index"`
	Title       string    `gorm:"size:200;not null"`
	Description string    `gorm:"type:text"`
	Status      string    `gorm:"size:20;not null;default:active"`
	SortOrder   int       `gorm:"not null;default:0"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`

	Cases []TestCase `gorm:"foreignKey:FeatureID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE"`
}

// TableName returns the table name for GORM.
func (Feature) TableName() string {
	return "features"
}
