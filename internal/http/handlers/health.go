package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type PingFunc func(ctx context.Context) error

type HealthHandler struct {
	env      string
	ping     PingFunc
	draining func() bool
}

// create a new instance of the health handler
func NewHealthHandler(env string, ping PingFunc) *HealthHandler {
	return &HealthHandler{env: env, ping: ping}
}

// WithDraining makes Readyz report not ready once fn returns true, so load
// balancers stop routing to an instance that is shutting down.
func (h *HealthHandler) WithDraining(fn func() bool) *HealthHandler {
	h.draining = fn
	return h
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"message":     "Authentication server is running",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"environment": h.env,
	})
}

func (h *HealthHandler) Readyz(ctx *gin.Context) {
	if h.draining != nil && h.draining() {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "reason": "shutting down"})
		return
	}

	if h.ping != nil {
		cctx, cancel := context.WithTimeout(ctx.Request.Context(), 1*time.Second)
		defer cancel()

		if err := h.ping(cctx); err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "reason": "store unreachable"})
			return
		}
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready"})
}
