package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	checks map[string]Pinger
}

// checks may be empty; the in-memory store has nothing to ping.
func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) Readyz(ctx *gin.Context) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), time.Second)
	defer cancel()

	failed := gin.H{}
	for name, ping := range h.checks {
		if err := ping(cctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "checks": failed})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready"})
}
