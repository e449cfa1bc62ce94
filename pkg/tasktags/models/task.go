package models

import (
	"time"

	"gorm.io/gorm"
)

// Task is the owner of tag links. Only the columns the tag queries filter on
// are modelled here.
type Task struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	Title       string         `gorm:"not null" json:"title"`
	CompletedAt *time.Time     `gorm:"index" json:"completed_at"` // nil while the task is active

	// Relationships
	Metadata []Metadata `gorm:"foreignKey:TaskID" json:"metadata,omitempty"`
}

// IsCompleted reports whether the task has been completed
func (t Task) IsCompleted() bool {
	return t.CompletedAt != nil
}
