package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/sjwg/reporter-backend/internal/http/response"
)

type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response.RespondOK(c, gin.H{"status": "ok"})
}

// GET /
func (h *HealthHandler) Root(c *gin.Context) {
	response.RespondOK(c, gin.H{
		"service": "document report api",
		"status":  "running",
	})
}
