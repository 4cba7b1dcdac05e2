package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"sipdah/internal/infrastructure/http/v1/dto"
	"sipdah/pkg/logger"
)

// Pinger is a dependency the readiness probe checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	checks  map[string]Pinger
	timeout time.Duration
}

// NewHealthHandler creates a health handler probing checks by name.
func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: 2 * time.Second}
}

// Live handles liveness probe (is the process alive?).
// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewEnvelope(http.StatusOK, "", gin.H{"status": "ok"}))
}

// Ready handles readiness probe (is the service ready to accept traffic?).
// Checks run concurrently under one timeout.
// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	failures := make([]error, len(names))
	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			failures[i] = h.checks[name].Ping(ctx)
			return nil
		})
	}
	_ = g.Wait()

	status := http.StatusOK
	results := make(map[string]string, len(names))
	for i, name := range names {
		if failures[i] != nil {
			logger.Warn(ctx, "readiness check failed", "check", name, "error", failures[i])
			results[name] = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "healthy"
	}

	c.JSON(status, dto.NewEnvelope(status, "", gin.H{"checks": results}))
}
