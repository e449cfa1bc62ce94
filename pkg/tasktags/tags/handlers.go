package tags

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/tasktags/pkg/tasktags/auth"
	"github.com/mikepea/tasktags/pkg/tasktags/models"
	"gorm.io/gorm"
)

// Handler handles tag-related requests
type Handler struct {
	svc *Service
}

// NewHandler creates a new tags handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{svc: NewService(db)}
}

// TagResponse represents a tag definition in API responses
type TagResponse struct {
	UUID      string `json:"uuid"`
	Name      string `json:"name"`
	LinkCount int64  `json:"link_count,omitempty"`
}

// RenameRequest represents the request to rename a tag
type RenameRequest struct {
	Name string `json:"name" binding:"required"`
}

// RenameResponse reports the outcome of a rename
type RenameResponse struct {
	UUID         string `json:"uuid"`
	Name         string `json:"name"`
	LinksUpdated int64  `json:"links_updated"`
}

func tagToResponse(t models.TagData) TagResponse {
	return TagResponse{UUID: t.UUID, Name: t.Name}
}

func parseTaskID(c *gin.Context) (uint, bool) {
	taskID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID"})
		return 0, false
	}
	return uint(taskID), true
}

// List returns tags grouped by usage on tasks with the requested status
// @Summary List tags grouped by usage
// @Description Group live tag links on tasks by name and count them
// @Tags tags
// @Produce json
// @Security BearerAuth
// @Param status query string false "active, completed or all" default(active)
// @Param order query string false "size or name" default(size)
// @Success 200 {array} TagResponse
// @Failure 400 {object} map[string]string "Unknown status or order"
// @Router /tags [get]
func (h *Handler) List(c *gin.Context) {
	status, err := ParseActiveStatus(c.Query("status"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	order, err := ParseOrder(c.Query("order"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	grouped, err := h.svc.GroupedTags(c.Request.Context(), order, status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tags"})
		return
	}

	tags := make([]TagResponse, len(grouped))
	for i, g := range grouped {
		tags[i] = TagResponse{UUID: g.UUID, Name: g.Name, LinkCount: g.Count}
	}

	c.JSON(http.StatusOK, tags)
}

// ListAll returns every named tag definition
// @Summary List all tag definitions
// @Tags tags
// @Produce json
// @Security BearerAuth
// @Success 200 {array} TagResponse
// @Router /tags/all [get]
func (h *Handler) ListAll(c *gin.Context) {
	tagList, err := h.svc.TagList(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tags"})
		return
	}

	tags := make([]TagResponse, len(tagList))
	for i, t := range tagList {
		tags[i] = tagToResponse(t)
	}

	c.JSON(http.StatusOK, tags)
}

// Resolve returns the stored spelling for a tag name
// @Summary Resolve the stored spelling of a tag name
// @Tags tags
// @Produce json
// @Security BearerAuth
// @Param name query string true "Tag name in any case"
// @Success 200 {object} map[string]string
// @Router /tags/resolve [get]
func (h *Handler) Resolve(c *gin.Context) {
	name, ok := c.GetQuery("name")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name query parameter required"})
		return
	}

	resolved, err := h.svc.TagWithCase(c.Request.Context(), name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve tag"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"name": resolved})
}

// Get returns a single tag definition by uuid
// @Summary Get a tag definition
// @Tags tags
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Tag UUID"
// @Success 200 {object} TagResponse
// @Failure 404 {object} map[string]string "Tag not found"
// @Router /tags/{uuid} [get]
func (h *Handler) Get(c *gin.Context) {
	tagData, err := h.svc.TagByUUID(c.Request.Context(), c.Param("uuid"))
	if errors.Is(err, ErrTagNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tag not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tag"})
		return
	}

	c.JSON(http.StatusOK, tagToResponse(*tagData))
}

// Rename renames a tag and every link that references it
// @Summary Rename a tag
// @Description Rename the tag definition and every link to it in one transaction (admin only)
// @Tags tags
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Tag UUID"
// @Param request body RenameRequest true "New name"
// @Success 200 {object} RenameResponse
// @Failure 403 {object} map[string]string "Admin access required"
// @Router /tags/{uuid} [put]
func (h *Handler) Rename(c *gin.Context) {
	var req RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tagUUID := c.Param("uuid")
	updated, err := h.svc.Rename(c.Request.Context(), tagUUID, req.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to rename tag"})
		return
	}

	c.JSON(http.StatusOK, RenameResponse{
		UUID:         tagUUID,
		Name:         req.Name,
		LinksUpdated: updated,
	})
}

// GetTaskTags returns the tags on a task
// @Summary List the tags on a task
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Success 200 {array} TaskTag
// @Router /tasks/{id}/tags [get]
func (h *Handler) GetTaskTags(c *gin.Context) {
	taskID, ok := parseTaskID(c)
	if !ok {
		return
	}

	tags, err := h.svc.TaskTagList(c.Request.Context(), taskID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tags"})
		return
	}

	c.JSON(http.StatusOK, tags)
}

// AddTaskTag adds a single tag to a task
// @Summary Add a tag to a task
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Param tag path string true "Tag name"
// @Success 200 {object} TaskTag
// @Failure 404 {object} map[string]string "Task not found"
// @Router /tasks/{id}/tags/{tag} [post]
func (h *Handler) AddTaskTag(c *gin.Context) {
	taskID, ok := parseTaskID(c)
	if !ok {
		return
	}

	tag, err := h.svc.AddTag(c.Request.Context(), taskID, c.Param("tag"))
	switch {
	case errors.Is(err, ErrTaskNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	case errors.Is(err, ErrEmptyTagName):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add tag"})
		return
	}

	c.JSON(http.StatusOK, tag)
}

// RemoveTaskTag removes a tag from a task
// @Summary Remove a tag from a task
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Param tag path string true "Tag name"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string "Tag not found"
// @Router /tasks/{id}/tags/{tag} [delete]
func (h *Handler) RemoveTaskTag(c *gin.Context) {
	taskID, ok := parseTaskID(c)
	if !ok {
		return
	}

	removed, err := h.svc.RemoveTag(c.Request.Context(), taskID, c.Param("tag"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove tag"})
		return
	}
	if removed == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tag not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Tag removed"})
}

// RegisterRoutes registers tag routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/tags", h.List)
	rg.GET("/tags/all", h.ListAll)
	rg.GET("/tags/resolve", h.Resolve)
	rg.GET("/tags/:uuid", h.Get)
	rg.PUT("/tags/:uuid", auth.RequireAdmin(), h.Rename)

	// Task tag operations
	rg.GET("/tasks/:id/tags", h.GetTaskTags)
	rg.POST("/tasks/:id/tags/:tag", h.AddTaskTag)
	rg.DELETE("/tasks/:id/tags/:tag", h.RemoveTaskTag)
}
