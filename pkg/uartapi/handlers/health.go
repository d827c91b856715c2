package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/txn2/uartdbg/pkg/uartapi/types"
)

// HealthHandler handles health and info endpoints
type HealthHandler struct {
	version   string
	startTime time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, startTime time.Time) *HealthHandler {
	return &HealthHandler{
		version:   version,
		startTime: startTime,
	}
}

// Health returns health status
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, types.HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Timestamp: time.Now(),
	})
}

// Info returns runtime information
func (h *HealthHandler) Info(c *gin.Context) {
	respondOK(c, http.StatusOK, types.InfoResponse{
		Version:   h.version,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		StartTime: h.startTime,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}, 0)
}
