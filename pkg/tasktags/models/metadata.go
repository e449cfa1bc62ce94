package models

import "time"

// Metadata is a general-purpose key/value row attached to a task.
// Key discriminates what kind of row it is; the meaning of Value1 and Value2
// depends on the key. Rows are soft-deleted by setting DeletionDate.
type Metadata struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	TaskID       uint      `gorm:"not null;index" json:"task_id"`
	Key          string    `gorm:"column:key;not null;index" json:"key"`
	Value1       string    `gorm:"column:value1" json:"value1"`
	Value2       string    `gorm:"column:value2;index" json:"value2"`
	DeletionDate int64     `gorm:"not null;default:0" json:"deletion_date"` // unix millis, 0 while live
}

// TableName keeps the table name singular, matching the key/value store it models
func (Metadata) TableName() string {
	return "metadata"
}

// IsDeleted reports whether the row has been soft-deleted
func (m Metadata) IsDeleted() bool {
	return m.DeletionDate != 0
}
