package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/KOMKZ/tickerdesk/health"
)

// HealthCheckHandler serves the aggregated health checks
type HealthCheckHandler struct {
	agg *health.Aggregator
}

// NewHealthCheckHandler creates the handler
func NewHealthCheckHandler(agg *health.Aggregator) *HealthCheckHandler {
	return &HealthCheckHandler{agg: agg}
}

// Handle GET /health: 200 when healthy or degraded, 503 when unhealthy
func (h *HealthCheckHandler) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := h.agg.Check(c.Request.Context())
		status := http.StatusOK
		if resp.Status == health.StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, resp)
	}
}

// HandleLiveness process is up; no dependency checks
func (h *HealthCheckHandler) HandleLiveness() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "alive"})
	}
}

// HandleReadiness 200 only when every check passes
func (h *HealthCheckHandler) HandleReadiness() gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := h.agg.Check(c.Request.Context())
		status := http.StatusOK
		if !resp.IsHealthy() {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": resp.Status})
	}
}

// RegisterHealthRoutes /health, /health/liveness, /health/readiness
func RegisterHealthRoutes(router gin.IRouter, agg *health.Aggregator) {
	if agg == nil {
		return
	}
	h := NewHealthCheckHandler(agg)
	router.GET("/health", h.Handle())
	router.GET("/health/liveness", h.HandleLiveness())
	router.GET("/health/readiness", h.HandleReadiness())
}
