package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"encrypted-quest-backend/internal/models"
	"encrypted-quest-backend/internal/services"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Challenge issues the one-time message the player signs to log in.
func (h *AuthHandler) Challenge(c *gin.Context) {
	addr, err := models.ParseAddress(c.Query("address"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	challenge, err := h.authService.Challenge(c.Request.Context(), addr)
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"address":   challenge.Address,
		"challenge": challenge.Challenge,
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"token":      resp.Token,
		"expires_at": resp.ExpiresAt,
	})
}
