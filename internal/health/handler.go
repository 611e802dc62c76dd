// Package health reports whether the document store and Redis are reachable.
package health

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/feedr-app/backend/pkg/response"
)

// Check tests one dependency.
type Check func(ctx context.Context) error

// Handler answers GET /health.
type Handler struct {
	checks  map[string]Check
	timeout time.Duration
}

// NewHandler creates a health handler. Each named check must succeed for a 200.
func NewHandler(checks map[string]Check) *Handler {
	return &Handler{checks: checks, timeout: 2 * time.Second}
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	status := gin.H{}
	healthy := true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status[name] = err.Error()
			healthy = false
			continue
		}
		status[name] = "ok"
	}
	if !healthy {
		response.ServiceUnavailable(c, status, "unhealthy")
		return
	}
	status["status"] = "ok"
	response.OK(c, status)
}
