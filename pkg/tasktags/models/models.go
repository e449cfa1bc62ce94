package models

import "gorm.io/gorm"

// AllModels returns all models for migration
// Note: Task must be migrated before Metadata, which references it
func AllModels() []interface{} {
	return []interface{}{
		&Task{},
		&Metadata{},
		&TagData{},
		&APIClient{},
	}
}

// AutoMigrate runs GORM auto-migration for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}
