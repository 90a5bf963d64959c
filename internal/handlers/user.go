package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"encrypted-quest-backend/internal/middleware"
	"encrypted-quest-backend/internal/models"
	"encrypted-quest-backend/internal/services"
)

type UserHandler struct {
	engine *services.QuestEngine
}

func NewUserHandler(engine *services.QuestEngine) *UserHandler {
	return &UserHandler{engine: engine}
}

// GetCurrentUser reports the signed-in player's public record. Values stay
// encrypted; only handles are returned.
func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	player, ok := middleware.Address(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated", "code": models.CodeUnauthorized})
		return
	}
	sessionID, _ := c.Get(middleware.KeySessionID)

	record, err := h.engine.GetPlayer(c.Request.Context(), player)
	if err != nil {
		respondError(c, err)
		return
	}
	balance, err := h.engine.ConfidentialBalanceOf(c.Request.Context(), player)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address":    player,
		"session_id": sessionID,
		"joined":     record.Joined,
		"handles": gin.H{
			"task_mask": record.TaskMask,
			"balance":   balance,
		},
		"deployment": h.engine.Deployment(),
	})
}
