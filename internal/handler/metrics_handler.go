package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classmatch-api/internal/service"
	"github.com/noah-isme/classmatch-api/pkg/cache"
)

const readyTimeout = 2 * time.Second

// MetricsHandler exposes observability and probe endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	redis   cache.Pinger
}

// NewMetricsHandler constructs a metrics handler. redis may be nil when the
// gateway runs without Redis.
func NewMetricsHandler(metrics *service.MetricsService, redis cache.Pinger) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, redis: redis}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health godoc
// @Summary Liveness probe
// @Tags Probes
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready godoc
// @Summary Readiness probe
// @Description Fails while the session/cache Redis is unreachable
// @Tags Probes
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /ready [get]
func (h *MetricsHandler) Ready(c *gin.Context) {
	if err := cache.Ready(c.Request.Context(), h.redis, readyTimeout); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "redis": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

