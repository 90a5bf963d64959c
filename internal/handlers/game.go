package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"encrypted-quest-backend/internal/middleware"
	"encrypted-quest-backend/internal/models"
	"encrypted-quest-backend/internal/services"
)

// GameHandler exposes the TaskGame and COIN contracts. Reads are public like
// any ledger state; writes are sent as the signed-in player.
type GameHandler struct {
	engine *services.QuestEngine
}

func NewGameHandler(engine *services.QuestEngine) *GameHandler {
	return &GameHandler{engine: engine}
}

func (h *GameHandler) GetDeployment(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"deployment": h.engine.Deployment(),
		"coin":       h.engine.CoinMetadata(),
	})
}

func (h *GameHandler) GetTasks(c *gin.Context) {
	tasks := h.engine.Tasks()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"tasks":   tasks,
		"count":   len(tasks),
	})
}

func (h *GameHandler) GetPlayer(c *gin.Context) {
	addr, ok := parseAddressParam(c)
	if !ok {
		return
	}

	record, err := h.engine.GetPlayer(c.Request.Context(), addr)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"player":  record,
	})
}

func (h *GameHandler) HasJoined(c *gin.Context) {
	addr, ok := parseAddressParam(c)
	if !ok {
		return
	}

	joined, err := h.engine.HasJoined(c.Request.Context(), addr)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"joined":  joined,
	})
}

func (h *GameHandler) GetTaskMask(c *gin.Context) {
	addr, ok := parseAddressParam(c)
	if !ok {
		return
	}

	mask, err := h.engine.GetPlayerTaskMask(c.Request.Context(), addr)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"handle":  mask,
	})
}

func (h *GameHandler) GetBalance(c *gin.Context) {
	addr, ok := parseAddressParam(c)
	if !ok {
		return
	}

	balance, err := h.engine.ConfidentialBalanceOf(c.Request.Context(), addr)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"handle":  balance,
	})
}

func (h *GameHandler) GetReceipt(c *gin.Context) {
	receipt, err := h.engine.Receipt(c.Request.Context(), c.Param("hash"))
	if services.IsReceiptNotFound(err) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Transaction not found",
			"code":  models.CodeNetworkFailure,
		})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"receipt": receipt,
	})
}

func (h *GameHandler) JoinGame(c *gin.Context) {
	player, ok := middleware.Address(c)
	if !ok {
		respondError(c, models.ErrUnauthorized)
		return
	}

	receipt, err := h.engine.JoinGame(c.Request.Context(), player)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"receipt": receipt,
	})
}

func (h *GameHandler) ClaimTask(c *gin.Context) {
	player, ok := middleware.Address(c)
	if !ok {
		respondError(c, models.ErrUnauthorized)
		return
	}

	var req models.ClaimTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	receipt, err := h.engine.ClaimTask(c.Request.Context(), player, req.Handle, req.InputProof)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"receipt": receipt,
	})
}
