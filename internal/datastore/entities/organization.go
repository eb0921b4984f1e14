package entities

import "time"

// Organization owns test sessions.
type Organization struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"size:200;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	Sessions []Session `gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE"`
}

// TableName returns the table name for GORM.
func (Organization) TableName() string {
	return "organizations"
}
