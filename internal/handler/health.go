package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/auditflow/backend/internal/client"
)

// Health check endpoint for container orchestration.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "auditflow-api",
		"version": "1.0.0",
	})
}

// Root endpoint with API information.
func Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "AuditFlow API",
		"version": "1.0.0",
		"health":  "/health",
	})
}

type StreamHandler struct {
	bus *client.EventBus
}

func NewStreamHandler(bus *client.EventBus) *StreamHandler {
	return &StreamHandler{bus: bus}
}

// Info godoc
// @Summary Event stream health and metadata
// @Description Stream backend state is independent of ingestion success.
// @Tags stream
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]any
// @Router /api/stream/info [get]
func (h *StreamHandler) Info(c *gin.Context) {
	connected := h.bus.Ping(c.Request.Context()) == nil

	resp := gin.H{"connected": connected}
	if connected {
		if info, err := h.bus.Info(c.Request.Context()); err == nil {
			resp["stream"] = info
		}
	}
	c.JSON(http.StatusOK, resp)
}
