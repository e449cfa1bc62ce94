package tags

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mikepea/tasktags/pkg/tasktags/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrTagNotFound  = errors.New("tag not found")
	ErrTaskNotFound = errors.New("task not found")
	ErrEmptyTagName = errors.New("tag name must not be empty")
)

// TaskTag is a tag as seen from a task link
type TaskTag struct {
	Name string `json:"name"`
	UUID string `json:"uuid"`
}

// GroupedTag is a tag definition together with the number of links that
// referenced it in a grouped query
type GroupedTag struct {
	models.TagData
	Count int64 `json:"count"`
}

// Service provides operations over tag links and tag definitions.
// It holds no state besides the database handle and does no locking;
// isolation comes from the database.
type Service struct {
	db *gorm.DB
}

// NewService creates a tag service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// TagWithCase returns the stored spelling of a tag that case-insensitively
// matches tag. Links are consulted first (oldest link wins, soft-deleted links
// included), then tag definitions. Definitions with a deletion date are
// skipped. When nothing matches, tag is returned unchanged.
func (s *Service) TagWithCase(ctx context.Context, tag string) (string, error) {
	return tagWithCase(s.db.WithContext(ctx), tag)
}

func tagWithCase(db *gorm.DB, tag string) (string, error) {
	var names []string
	err := db.Model(&models.Metadata{}).
		Where("metadata.key = ? AND UPPER(metadata.value1) = UPPER(?)", LinkKey, tag).
		Order("metadata.id ASC").
		Limit(1).
		Pluck("value1", &names).Error
	if err != nil {
		return "", fmt.Errorf("lookup tag link %q: %w", tag, err)
	}
	if len(names) > 0 {
		return names[0], nil
	}

	tagData, err := tagByName(db, tag)
	if errors.Is(err, ErrTagNotFound) {
		return tag, nil
	}
	if err != nil {
		return "", err
	}
	return tagData.Name, nil
}

// TagByName returns the live tag definition named name, preferring an exact
// match over a case-insensitive one.
func (s *Service) TagByName(ctx context.Context, name string) (*models.TagData, error) {
	return tagByName(s.db.WithContext(ctx), name)
}

func tagByName(db *gorm.DB, name string) (*models.TagData, error) {
	var tagData models.TagData
	err := db.Where("deletion_date = 0 AND (name = ? OR UPPER(name) = UPPER(?))", name, name).
		Order(clause.OrderBy{Expression: clause.Expr{
			SQL:                "CASE WHEN name = ? THEN 0 ELSE 1 END, id ASC",
			Vars:               []interface{}{name},
			WithoutParentheses: true,
		}}).
		Take(&tagData).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTagNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup tag %q: %w", name, err)
	}
	return &tagData, nil
}

// TagByUUID returns the tag definition with the given uuid, deleted or not
func (s *Service) TagByUUID(ctx context.Context, tagUUID string) (*models.TagData, error) {
	return tagByUUID(s.db.WithContext(ctx), tagUUID)
}

func tagByUUID(db *gorm.DB, tagUUID string) (*models.TagData, error) {
	var tagData models.TagData
	err := db.Where("uuid = ?", tagUUID).Take(&tagData).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTagNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup tag uuid %q: %w", tagUUID, err)
	}
	return &tagData, nil
}

// TaskTags yields the live tags on a task ordered by name, ignoring case.
// Every range over the sequence runs a fresh query; the underlying rows are
// closed when the loop ends, including on break.
func (s *Service) TaskTags(ctx context.Context, taskID uint) iter.Seq2[TaskTag, error] {
	return func(yield func(TaskTag, error) bool) {
		rows, err := s.db.WithContext(ctx).Model(&models.Metadata{}).
			Select("metadata.value1, metadata.value2").
			Where("metadata.task_id = ? AND metadata.key = ? AND metadata.deletion_date = 0", taskID, LinkKey).
			Order("UPPER(metadata.value1) ASC, metadata.id ASC").
			Rows()
		if err != nil {
			yield(TaskTag{}, fmt.Errorf("query tags for task %d: %w", taskID, err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var tag TaskTag
			if err := rows.Scan(&tag.Name, &tag.UUID); err != nil {
				yield(TaskTag{}, err)
				return
			}
			if !yield(tag, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(TaskTag{}, err)
		}
	}
}

// TaskTagList collects TaskTags into a slice
func (s *Service) TaskTagList(ctx context.Context, taskID uint) ([]TaskTag, error) {
	tags := []TaskTag{}
	for tag, err := range s.TaskTags(ctx, taskID) {
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

type tagGroup struct {
	TagName  string
	TagUUID  string
	TagCount int64
}

// GroupedTags groups tag links on tasks matching activeStatus by tag name and
// returns one entry per group in the given order. Groups whose uuid has no
// tag definition are left out. A nil status or empty order falls back to
// DefaultActiveStatus and DefaultOrder, as ParseActiveStatus and ParseOrder do.
func (s *Service) GroupedTags(ctx context.Context, order Order, activeStatus ActiveStatus) ([]GroupedTag, error) {
	if order == "" {
		order = DefaultOrder
	}
	if activeStatus == nil {
		activeStatus = DefaultActiveStatus
	}

	db := s.db.WithContext(ctx)

	var groups []tagGroup
	err := db.Model(&models.Metadata{}).
		Select("metadata.value1 AS tag_name, MIN(metadata.value2) AS tag_uuid, COUNT(*) AS tag_count").
		Joins("INNER JOIN tasks ON metadata.task_id = tasks.id").
		Scopes(activeStatus).
		Where("metadata.key = ?", LinkKey).
		Group("metadata.value1").
		Order(string(order)).
		Scan(&groups).Error
	if err != nil {
		return nil, fmt.Errorf("group tags: %w", err)
	}

	result := make([]GroupedTag, 0, len(groups))
	for _, g := range groups {
		tagData, err := tagByUUID(db, g.TagUUID)
		if errors.Is(err, ErrTagNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		result = append(result, GroupedTag{TagData: *tagData, Count: g.TagCount})
	}
	return result, nil
}

// TagList returns every live tag definition with a name, ordered by name
func (s *Service) TagList(ctx context.Context) ([]models.TagData, error) {
	var tagList []models.TagData
	err := s.db.WithContext(ctx).
		Where("deletion_date = 0 AND name <> ''").
		Order("UPPER(name) ASC, id ASC").
		Find(&tagList).Error
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tagList, nil
}

// Rename sets the name of the tag definition with the given uuid and of every
// link to it, soft-deleted links included. Both updates commit together.
// It returns the number of links updated.
func (s *Service) Rename(ctx context.Context, tagUUID, newName string) (int64, error) {
	var updated int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.TagData{}).
			Where("uuid = ?", tagUUID).
			Update("name", newName).Error; err != nil {
			return fmt.Errorf("rename tag %s: %w", tagUUID, err)
		}

		result := tx.Model(&models.Metadata{}).
			Where("metadata.key = ? AND metadata.value2 = ?", LinkKey, tagUUID).
			Update("value1", newName)
		if result.Error != nil {
			return fmt.Errorf("rename links to tag %s: %w", tagUUID, result.Error)
		}
		updated = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// AddTag links a tag to a task. The name is first resolved to its stored
// spelling; a tag definition is created when none exists. Adding a tag the
// task already carries is a no-op.
func (s *Service) AddTag(ctx context.Context, taskID uint, name string) (TaskTag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return TaskTag{}, ErrEmptyTagName
	}

	var tag TaskTag
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := tx.Select("id").Take(&task, taskID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTaskNotFound
			}
			return err
		}

		canonical, err := tagWithCase(tx, name)
		if err != nil {
			return err
		}

		tagData, err := tagByName(tx, canonical)
		if errors.Is(err, ErrTagNotFound) {
			tagData = &models.TagData{UUID: uuid.NewString(), Name: canonical}
			if err := tx.Create(tagData).Error; err != nil {
				return fmt.Errorf("create tag %q: %w", canonical, err)
			}
		} else if err != nil {
			return err
		}
		tag = TaskTag{Name: tagData.Name, UUID: tagData.UUID}

		var existing int64
		if err := tx.Model(&models.Metadata{}).
			Where("metadata.task_id = ? AND metadata.key = ? AND metadata.value2 = ? AND metadata.deletion_date = 0",
				taskID, LinkKey, tagData.UUID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}

		link := models.Metadata{
			TaskID: taskID,
			Key:    LinkKey,
			Value1: tagData.Name,
			Value2: tagData.UUID,
		}
		if err := tx.Create(&link).Error; err != nil {
			return fmt.Errorf("link tag %q to task %d: %w", tagData.Name, taskID, err)
		}
		return nil
	})
	if err != nil {
		return TaskTag{}, err
	}
	return tag, nil
}

// RemoveTag soft-deletes the live links on a task whose name matches name,
// ignoring case. It returns the number of links removed.
func (s *Service) RemoveTag(ctx context.Context, taskID uint, name string) (int64, error) {
	result := s.db.WithContext(ctx).Model(&models.Metadata{}).
		Where("metadata.task_id = ? AND metadata.key = ? AND metadata.deletion_date = 0 AND UPPER(metadata.value1) = UPPER(?)",
			taskID, LinkKey, name).
		Update("deletion_date", time.Now().UnixMilli())
	if result.Error != nil {
		return 0, fmt.Errorf("remove tag %q from task %d: %w", name, taskID, result.Error)
	}
	return result.RowsAffected, nil
}
