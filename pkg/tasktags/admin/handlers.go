package admin

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/tasktags/pkg/tasktags/auth"
	"github.com/mikepea/tasktags/pkg/tasktags/models"
	"github.com/mikepea/tasktags/pkg/tasktags/tags"
	"gorm.io/gorm"
)

// Handler handles admin requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new admin handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// ClientResponse represents an API client in admin responses
type ClientResponse struct {
	ID         uint    `json:"id"`
	Name       string  `json:"name"`
	Role       string  `json:"role"`
	CreatedAt  string  `json:"created_at"`
	LastUsedAt *string `json:"last_used_at"`
}

// CreateClientRequest represents the request to create an API client
type CreateClientRequest struct {
	Name string `json:"name" binding:"required"`
	Role string `json:"role" binding:"omitempty,oneof=admin client"`
}

// CreateClientResponse includes the plain secret (only shown once)
type CreateClientResponse struct {
	ClientResponse
	Secret string `json:"secret"`
}

// StatsResponse represents tag store statistics
type StatsResponse struct {
	TotalTasks     int64 `json:"total_tasks"`
	CompletedTasks int64 `json:"completed_tasks"`
	TotalTags      int64 `json:"total_tags"`
	LiveLinks      int64 `json:"live_links"`
	DeletedLinks   int64 `json:"deleted_links"`
	OrphanLinks    int64 `json:"orphan_links"`  // links whose uuid has no tag definition
	DriftedLinks   int64 `json:"drifted_links"` // links whose name differs from their definition
	APIClients     int64 `json:"api_clients"`
}

func clientToResponse(client models.APIClient) ClientResponse {
	resp := ClientResponse{
		ID:        client.ID,
		Name:      client.Name,
		Role:      string(client.Role),
		CreatedAt: client.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if client.LastUsedAt != nil {
		lastUsed := client.LastUsedAt.Format("2006-01-02T15:04:05Z")
		resp.LastUsedAt = &lastUsed
	}
	return resp
}

// ListClients returns all API clients
func (h *Handler) ListClients(c *gin.Context) {
	var clients []models.APIClient

	query := h.db.Order("created_at DESC")
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}

	if err := query.Find(&clients).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch clients"})
		return
	}

	responses := make([]ClientResponse, len(clients))
	for i, client := range clients {
		responses[i] = clientToResponse(client)
	}

	c.JSON(http.StatusOK, responses)
}

// CreateClient registers a new API client
func (h *Handler) CreateClient(c *gin.Context) {
	var req CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role := models.ClientRoleClient
	if req.Role != "" {
		role = models.ClientRole(req.Role)
	}

	client, secret, err := auth.CreateClient(h.db, req.Name, role)
	if errors.Is(err, auth.ErrClientExists) {
		c.JSON(http.StatusConflict, gin.H{"error": "Client already exists"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create client"})
		return
	}

	c.JSON(http.StatusCreated, CreateClientResponse{
		ClientResponse: clientToResponse(*client),
		Secret:         secret,
	})
}

// DeleteClient permanently deletes an API client
func (h *Handler) DeleteClient(c *gin.Context) {
	currentClientID, _ := auth.GetClientID(c)
	clientID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid client ID"})
		return
	}

	// Prevent admin from deleting the credential they are using
	if uint(clientID) == currentClientID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete your own client"})
		return
	}

	// Hard delete so the name can be registered again
	result := h.db.Unscoped().Delete(&models.APIClient{}, clientID)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete client"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Client not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Client deleted"})
}

// GetStats returns tag store statistics. Any failing count fails the request
// rather than reporting zero.
func (h *Handler) GetStats(c *gin.Context) {
	var stats StatsResponse

	links := func() *gorm.DB {
		return h.db.Model(&models.Metadata{}).Where("metadata.key = ?", tags.LinkKey)
	}

	counts := []struct {
		name  string
		query *gorm.DB
		dest  *int64
	}{
		{"tasks", h.db.Model(&models.Task{}), &stats.TotalTasks},
		{"completed tasks", h.db.Model(&models.Task{}).Where("completed_at IS NOT NULL"), &stats.CompletedTasks},
		{"tags", h.db.Model(&models.TagData{}).Where("deletion_date = 0"), &stats.TotalTags},
		{"live links", links().Where("metadata.deletion_date = 0"), &stats.LiveLinks},
		{"deleted links", links().Where("metadata.deletion_date <> 0"), &stats.DeletedLinks},
		{"orphan links", links().Where("NOT EXISTS (SELECT 1 FROM tag_data WHERE tag_data.uuid = metadata.value2)"), &stats.OrphanLinks},
		{"drifted links", links().Joins("INNER JOIN tag_data ON tag_data.uuid = metadata.value2").
			Where("tag_data.name <> metadata.value1"), &stats.DriftedLinks},
		{"api clients", h.db.Model(&models.APIClient{}), &stats.APIClients},
	}

	for _, q := range counts {
		if err := q.query.Count(q.dest).Error; err != nil {
			log.Printf("admin stats: count %s: %v", q.name, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
			return
		}
	}

	c.JSON(http.StatusOK, stats)
}

// RegisterRoutes registers admin routes
// Caller must apply auth.AuthMiddleware() and auth.RequireAdmin()
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/clients", h.ListClients)
	rg.POST("/clients", h.CreateClient)
	rg.DELETE("/clients/:id", h.DeleteClient)
	rg.GET("/stats", h.GetStats)
}
