package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/qingbolan/github-yearbook/internal/workers"
)

type HealthHandler struct {
	workerManager *workers.WorkerManager
}

func NewHealthHandler(workerManager *workers.WorkerManager) *HealthHandler {
	return &HealthHandler{
		workerManager: workerManager,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"workers": h.workerManager.GetWorkerStatus(),
	})
}
