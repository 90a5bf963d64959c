package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"encrypted-quest-backend/internal/gateway"
	"encrypted-quest-backend/internal/models"
)

// RelayerHandler serves the coprocessor gateway to relayer SDK clients.
type RelayerHandler struct {
	gateway *gateway.Gateway
}

func NewRelayerHandler(gw *gateway.Gateway) *RelayerHandler {
	return &RelayerHandler{gateway: gw}
}

func (h *RelayerHandler) KeyURL(c *gin.Context) {
	key, err := h.gateway.NetworkKey(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, key)
}

func (h *RelayerHandler) InputProof(c *gin.Context) {
	var req models.InputProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	resp, err := h.gateway.RegisterInput(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RelayerHandler) UserDecrypt(c *gin.Context) {
	var req models.UserDecryptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	resp, err := h.gateway.UserDecrypt(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
