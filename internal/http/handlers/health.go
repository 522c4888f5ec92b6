package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/casahub/casahub/internal/config"
	"github.com/gin-gonic/gin"
)

type PingFunc func(ctx context.Context) error

type HealthHandler struct {
	dbPing    PingFunc
	cachePing PingFunc
}

// NewHealthHandler takes ping functions rather than the pools themselves so
// tests can fake dependency state. cachePing may be nil when the cache is
// in-process.
func NewHealthHandler(dbPing, cachePing PingFunc) *HealthHandler {
	return &HealthHandler{
		dbPing:    dbPing,
		cachePing: cachePing,
	}
}

// Healthz answers as long as the process is serving.
func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz checks the backing services and reports per-dependency state.
func (h *HealthHandler) Readyz(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	deps := gin.H{}
	ready := true

	if h.dbPing != nil {
		if err := h.dbPing(cctx); err != nil {
			deps["db"] = "down"
			ready = false
		} else {
			deps["db"] = "ok"
		}
	}

	if h.cachePing != nil {
		if err := h.cachePing(cctx); err != nil {
			deps["cache"] = "down"
			ready = false
		} else {
			deps["cache"] = "ok"
		}
	}

	status := http.StatusOK
	state := "ready"

	if !ready {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}

	ctx.JSON(status, gin.H{
		"status":       state,
		"dependencies": deps,
	})
}
