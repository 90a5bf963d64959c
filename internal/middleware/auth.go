package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"encrypted-quest-backend/internal/models"
	"encrypted-quest-backend/internal/services"
)

const (
	KeyAddress   = "address"
	KeySessionID = "session_id"
)

func AuthMiddleware(jwtService *services.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		var tokenString string

		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization format", "code": models.CodeUnauthorized})
				c.Abort()
				return
			}
			tokenString = parts[1]
		} else {
			tokenString = c.Query("token")
			if tokenString == "" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required", "code": models.CodeUnauthorized})
				c.Abort()
				return
			}
		}

		claims, err := jwtService.ValidateToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "code": models.CodeUnauthorized})
			c.Abort()
			return
		}

		c.Set(KeyAddress, claims.Address)
		c.Set(KeySessionID, claims.SessionID)

		c.Next()
	}
}

// Address returns the signed-in player set by AuthMiddleware.
func Address(c *gin.Context) (models.Address, bool) {
	v, ok := c.Get(KeyAddress)
	if !ok {
		return models.Address{}, false
	}
	addr, ok := v.(models.Address)
	return addr, ok
}
