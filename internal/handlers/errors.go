package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"encrypted-quest-backend/internal/models"
)

// respondError writes err with its wire code so clients can map it back.
func respondError(c *gin.Context, err error) {
	code, status := models.ErrorCode(err)
	c.JSON(status, gin.H{
		"error": err.Error(),
		"code":  code,
	})
}

func respondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request",
		"code":    models.CodeBadRequest,
		"details": err.Error(),
	})
}

func parseAddressParam(c *gin.Context) (models.Address, bool) {
	addr, err := models.ParseAddress(c.Param("address"))
	if err != nil {
		respondBadRequest(c, err)
		return models.Address{}, false
	}
	return addr, true
}
