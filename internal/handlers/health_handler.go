package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger checks a backing store
type Pinger func(ctx context.Context) error

// HealthHandler reports liveness and store reachability
type HealthHandler struct {
	ping   Pinger
	driver string
	logger *zap.Logger
}

// NewHealthHandler creates a HealthHandler. A nil ping always reports healthy.
func NewHealthHandler(driver string, ping Pinger, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{ping: ping, driver: driver, logger: logger}
}

// Check handles GET /api/health
func (h *HealthHandler) Check(c *gin.Context) {
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			h.logger.Warn("health check failed", zap.String("storage", h.driver), zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "storage": h.driver})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "storage": h.driver})
}
