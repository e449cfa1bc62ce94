package models

import "time"

// TagData is the canonical record for a tag. UUID never changes and is what
// tag links point at; Name is the current display name and may be renamed.
type TagData struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	UUID         string    `gorm:"column:uuid;uniqueIndex;not null" json:"uuid"`
	Name         string    `gorm:"index;not null" json:"name"`
	DeletionDate int64     `gorm:"not null;default:0" json:"deletion_date"`
}

// TableName returns the tag definition table name
func (TagData) TableName() string {
	return "tag_data"
}
