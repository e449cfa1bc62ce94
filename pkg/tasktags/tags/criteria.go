package tags

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// LinkKey is the metadata key that marks a row as a task-to-tag link.
// On those rows value1 holds the tag name and value2 the tag uuid.
const LinkKey = "tags-tag"

// ActiveStatus narrows the tag links joined to their tasks, e.g. to links on
// active or completed tasks. It is applied as a GORM scope to a query over
// metadata INNER JOIN tasks.
type ActiveStatus func(db *gorm.DB) *gorm.DB

// ActiveTasks keeps live links on tasks that are neither deleted nor completed
func ActiveTasks(db *gorm.DB) *gorm.DB {
	return db.Where("tasks.deleted_at IS NULL AND tasks.completed_at IS NULL AND metadata.deletion_date = 0")
}

// CompletedTasks keeps live links on completed, non-deleted tasks
func CompletedTasks(db *gorm.DB) *gorm.DB {
	return db.Where("tasks.deleted_at IS NULL AND tasks.completed_at IS NOT NULL AND metadata.deletion_date = 0")
}

// AllTasks keeps live links on any non-deleted task
func AllTasks(db *gorm.DB) *gorm.DB {
	return db.Where("tasks.deleted_at IS NULL AND metadata.deletion_date = 0")
}

// DefaultActiveStatus applies when no status is given
var DefaultActiveStatus ActiveStatus = ActiveTasks

// ParseActiveStatus maps "active", "completed" and "all" onto a status.
// An empty value means DefaultActiveStatus.
func ParseActiveStatus(s string) (ActiveStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultActiveStatus, nil
	case "active":
		return ActiveTasks, nil
	case "completed":
		return CompletedTasks, nil
	case "all":
		return AllTasks, nil
	default:
		return nil, fmt.Errorf("unknown status %q", s)
	}
}

// Order is an ORDER BY expression over the grouped tag query. It may refer to
// the tag_count aggregate and to metadata.value1.
type Order string

const (
	// GroupedTagsBySize puts the most used tags first
	GroupedTagsBySize Order = "tag_count DESC, UPPER(metadata.value1) ASC"
	// GroupedTagsByName sorts groups alphabetically, ignoring case
	GroupedTagsByName Order = "UPPER(metadata.value1) ASC"
)

// DefaultOrder applies when no order is given
const DefaultOrder = GroupedTagsBySize

// ParseOrder maps "size" and "name" onto an order. An empty value means DefaultOrder.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "size":
		return GroupedTagsBySize, nil
	case "name":
		return GroupedTagsByName, nil
	default:
		return "", fmt.Errorf("unknown order %q", s)
	}
}
