package importexport

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/mikepea/tasktags/pkg/tasktags/models"
	"github.com/mikepea/tasktags/pkg/tasktags/tags"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// MIMEYAML is accepted by Import and produced by Export with ?format=yaml
const MIMEYAML = "application/yaml"

// Handler handles import/export requests
type Handler struct {
	db  *gorm.DB
	svc *tags.Service
}

// NewHandler creates a new import/export handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db, svc: tags.NewService(db)}
}

// TaskTags is the exchange format for the tags on one task
type TaskTags struct {
	TaskID    uint     `json:"task_id" yaml:"task_id" binding:"required"`
	Title     string   `json:"title,omitempty" yaml:"title,omitempty"`
	Completed bool     `json:"completed" yaml:"completed"`
	Tags      []string `json:"tags" yaml:"tags"`
}

// ImportRequest represents an import request
type ImportRequest struct {
	Tasks []TaskTags `json:"tasks" yaml:"tasks" binding:"required,dive"`
}

// ImportResult represents the result of an import operation
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// Export returns the live tags of every task that has any
func (h *Handler) Export(c *gin.Context) {
	ctx := c.Request.Context()

	tagged := h.db.Model(&models.Metadata{}).
		Select("task_id").
		Where("metadata.key = ? AND metadata.deletion_date = 0", tags.LinkKey)

	var tasks []models.Task
	if err := h.db.WithContext(ctx).Where("id IN (?)", tagged).Order("id ASC").Find(&tasks).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tasks"})
		return
	}

	export := make([]TaskTags, 0, len(tasks))
	for _, task := range tasks {
		taskTags, err := h.svc.TaskTagList(ctx, task.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tags"})
			return
		}

		names := make([]string, len(taskTags))
		for i, t := range taskTags {
			names[i] = t.Name
		}

		export = append(export, TaskTags{
			TaskID:    task.ID,
			Title:     task.Title,
			Completed: task.IsCompleted(),
			Tags:      names,
		})
	}

	if c.Query("format") == "yaml" {
		data, err := yaml.Marshal(export)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode export"})
			return
		}
		c.Data(http.StatusOK, MIMEYAML, data)
		return
	}

	c.JSON(http.StatusOK, export)
}

// bindImport decodes the request body as YAML when the content type asks
// for it and as JSON otherwise
func bindImport(c *gin.Context, req *ImportRequest) error {
	switch c.ContentType() {
	case MIMEYAML, "application/x-yaml", "text/yaml":
		data, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return err
		}
		if err := yaml.Unmarshal(data, req); err != nil {
			return err
		}
		return binding.Validator.ValidateStruct(req)
	default:
		return c.ShouldBindJSON(req)
	}
}

// Import applies tags to existing tasks from a JSON or YAML body. Names go
// through the same case resolution as single adds, so imported variants
// collapse onto stored ones.
func (h *Handler) Import(c *gin.Context) {
	var req ImportRequest
	if err := bindImport(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	result := ImportResult{
		Errors: []string{},
	}

	for i, entry := range req.Tasks {
		for _, name := range entry.Tags {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}

			_, err := h.svc.AddTag(ctx, entry.TaskID, name)
			switch {
			case errors.Is(err, tags.ErrTaskNotFound):
				result.Errors = append(result.Errors, "task "+strconv.Itoa(i)+": task "+strconv.FormatUint(uint64(entry.TaskID), 10)+" not found")
				result.Skipped++
			case err != nil:
				result.Errors = append(result.Errors, "task "+strconv.Itoa(i)+": "+err.Error())
				result.Skipped++
			default:
				result.Imported++
			}
		}
	}

	c.JSON(http.StatusOK, result)
}

// RegisterRoutes registers import/export routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/export", h.Export)
	rg.POST("/import", h.Import)
}
