package auth

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/tasktags/pkg/tasktags/models"
	"gorm.io/gorm"
)

var ErrClientExists = errors.New("client already exists")

// Handler handles token requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new auth handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// TokenRequest represents the token request body
type TokenRequest struct {
	Client string `json:"client" binding:"required"`
	Secret string `json:"secret" binding:"required"`
}

// TokenResponse represents the token response
type TokenResponse struct {
	Token     string `json:"token"`
	Client    string `json:"client"`
	Role      string `json:"role"`
	ExpiresIn int64  `json:"expires_in"`
}

// CreateClient registers a new API client and returns it with its plain
// secret. The secret is only stored hashed.
func CreateClient(db *gorm.DB, name string, role models.ClientRole) (*models.APIClient, string, error) {
	var count int64
	// Unscoped: the unique index on name also covers soft-deleted rows
	if err := db.Unscoped().Model(&models.APIClient{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return nil, "", err
	}
	if count > 0 {
		return nil, "", ErrClientExists
	}

	secret, err := GenerateSecret()
	if err != nil {
		return nil, "", fmt.Errorf("generate secret: %w", err)
	}
	hash, err := HashSecret(secret)
	if err != nil {
		return nil, "", fmt.Errorf("hash secret: %w", err)
	}

	client := models.APIClient{Name: name, SecretHash: hash, Role: role}
	if err := db.Create(&client).Error; err != nil {
		return nil, "", err
	}
	return &client, secret, nil
}

// Token exchanges a client name and secret for a JWT
// @Summary Issue an access token
// @Description Exchange an API client name and secret for a JWT
// @Tags auth
// @Accept json
// @Produce json
// @Param request body TokenRequest true "Client credentials"
// @Success 200 {object} TokenResponse
// @Failure 401 {object} map[string]string "Invalid client credentials"
// @Router /auth/token [post]
func (h *Handler) Token(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var client models.APIClient
	if err := h.db.Where("name = ?", req.Client).First(&client).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid client credentials"})
		return
	}

	if !CheckSecret(req.Secret, client.SecretHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid client credentials"})
		return
	}

	token, err := GenerateToken(client.ID, client.Name, string(client.Role))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	now := time.Now()
	if err := h.db.Model(&client).Update("last_used_at", &now).Error; err != nil {
		log.Printf("Warning: failed to record last use of client %s: %v", client.Name, err)
	}

	c.JSON(http.StatusOK, TokenResponse{
		Token:     token,
		Client:    client.Name,
		Role:      string(client.Role),
		ExpiresIn: int64(TokenTTL().Seconds()),
	})
}

// RegisterRoutes registers auth routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/token", h.Token)
}
