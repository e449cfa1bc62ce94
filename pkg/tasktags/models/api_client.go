package models

import (
	"time"

	"gorm.io/gorm"
)

// ClientRole represents what an API client may do
type ClientRole string

const (
	ClientRoleAdmin  ClientRole = "admin"
	ClientRoleClient ClientRole = "client"
)

// APIClient is a named credential that can exchange its secret for a JWT
type APIClient struct {
	ID         uint           `gorm:"primarykey" json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
	Name       string         `gorm:"uniqueIndex;not null" json:"name"`
	SecretHash string         `gorm:"not null" json:"-"`
	Role       ClientRole     `gorm:"type:varchar(20);default:'client'" json:"role"`
	LastUsedAt *time.Time     `json:"last_used_at"`
}
