package models

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	return db
}

func TestAutoMigrate(t *testing.T) {
	db := setupTestDB(t)

	err := AutoMigrate(db)
	if err != nil {
		t.Fatalf("AutoMigrate failed: %v", err)
	}

	// Verify tables exist by checking if we can query them
	tables := []string{"tasks", "metadata", "tag_data", "api_clients"}
	for _, table := range tables {
		if !db.Migrator().HasTable(table) {
			t.Errorf("Expected table %s to exist", table)
		}
	}
}

func TestTagDataUUIDUniqueness(t *testing.T) {
	db := setupTestDB(t)
	AutoMigrate(db)

	tag1 := TagData{UUID: "t1", Name: "work"}
	if err := db.Create(&tag1).Error; err != nil {
		t.Fatalf("Failed to create tag: %v", err)
	}

	tag2 := TagData{UUID: "t1", Name: "home"}
	if err := db.Create(&tag2).Error; err == nil {
		t.Error("Expected error when creating tag with duplicate uuid")
	}
}

func TestTaskWithMetadata(t *testing.T) {
	db := setupTestDB(t)
	AutoMigrate(db)

	task := Task{Title: "Write report"}
	if err := db.Create(&task).Error; err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}

	rows := []Metadata{
		{TaskID: task.ID, Key: "tags-tag", Value1: "work", Value2: "t1"},
		{TaskID: task.ID, Key: "tags-tag", Value1: "old", Value2: "t2", DeletionDate: time.Now().UnixMilli()},
	}
	if err := db.Create(&rows).Error; err != nil {
		t.Fatalf("Failed to create metadata: %v", err)
	}

	var loaded Task
	db.Preload("Metadata").First(&loaded, task.ID)
	if len(loaded.Metadata) != 2 {
		t.Fatalf("Expected 2 metadata rows, got %d", len(loaded.Metadata))
	}

	deleted := 0
	for _, m := range loaded.Metadata {
		if m.IsDeleted() {
			deleted++
		}
	}
	if deleted != 1 {
		t.Errorf("Expected 1 deleted metadata row, got %d", deleted)
	}
}

func TestTaskCompletion(t *testing.T) {
	db := setupTestDB(t)
	AutoMigrate(db)

	task := Task{Title: "Ship it"}
	db.Create(&task)
	if task.IsCompleted() {
		t.Error("New task should not be completed")
	}

	now := time.Now()
	db.Model(&task).Update("completed_at", &now)

	var loaded Task
	db.First(&loaded, task.ID)
	if !loaded.IsCompleted() {
		t.Error("Expected task to be completed after update")
	}
}

func TestAPIClientNameUniqueness(t *testing.T) {
	db := setupTestDB(t)
	AutoMigrate(db)

	c1 := APIClient{Name: "cli", SecretHash: "hash", Role: ClientRoleAdmin}
	if err := db.Create(&c1).Error; err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	c2 := APIClient{Name: "cli", SecretHash: "other"}
	if err := db.Create(&c2).Error; err == nil {
		t.Error("Expected error when creating client with duplicate name")
	}
}
