package handlers

import (
	"net/http"

	"github.com/Jeelislive/openRank-Backend/internal/services"
	"github.com/gin-gonic/gin"
)

type VisitHandler struct {
	visitService *services.VisitService
}

func NewVisitHandler(visitService *services.VisitService) *VisitHandler {
	return &VisitHandler{
		visitService: visitService,
	}
}

// GetVisitCount returns the number of unique visitors
func (h *VisitHandler) GetVisitCount(c *gin.Context) {
	count, err := h.visitService.Count()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to count visits: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   count,
	})
}
