package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/tasktags/pkg/tasktags/models"
)

// Gin context keys set by AuthMiddleware
const (
	ContextKeyClientID = "client_id"
	ContextKeyClient   = "client"
	ContextKeyRole     = "role"
)

var (
	errMissingAuthHeader = errors.New("authorization header required")
	errMalformedHeader   = errors.New("invalid authorization header format")
)

func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", errMissingAuthHeader
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
		return "", errMalformedHeader
	}
	return token, nil
}

// AuthMiddleware accepts "Authorization: Bearer <jwt>" and records the
// client identity on the context. Anything else is a 401.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		switch {
		case errors.Is(err, errMissingAuthHeader):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		case err != nil:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			return
		}

		claims, err := ValidateToken(token)
		switch {
		case errors.Is(err, ErrExpiredToken):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token has expired"})
			return
		case err != nil:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(ContextKeyClientID, claims.ClientID)
		c.Set(ContextKeyClient, claims.Client)
		c.Set(ContextKeyRole, claims.Role)
		c.Next()
	}
}

// RequireAdmin lets only admin clients through. It must run after AuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(ContextKeyRole); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		if c.GetString(ContextKeyRole) != string(models.ClientRoleAdmin) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}

// GetClientID returns the authenticated client's ID
func GetClientID(c *gin.Context) (uint, bool) {
	id, ok := c.Get(ContextKeyClientID)
	if !ok {
		return 0, false
	}
	clientID, ok := id.(uint)
	return clientID, ok
}
