package handlers

import (
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"

	"example.com/woodtrack/services/production/internal/metrics"
)

// MetricsHandler exposes the in-process metrics collector
type MetricsHandler struct {
	metrics *metrics.Metrics
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(m *metrics.Metrics) *MetricsHandler {
	return &MetricsHandler{metrics: m}
}

// HandleGetMetrics returns all metrics
func (h *MetricsHandler) HandleGetMetrics(c *gin.Context) {
	snapshot := h.metrics.Snapshot()
	snapshot["goroutines"] = runtime.NumGoroutine()
	c.JSON(http.StatusOK, snapshot)
}

// HandleHealthCheck reports overall health from the dependency checks
func (h *MetricsHandler) HandleHealthCheck(c *gin.Context) {
	checks := h.metrics.Health()

	healthy := true
	for _, ok := range checks {
		if !ok {
			healthy = false
			break
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"healthy": healthy, "details": checks})
}
