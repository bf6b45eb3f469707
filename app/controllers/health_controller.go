package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/shashiranjanraj/coursemart/pkg/ctx"
	"github.com/shashiranjanraj/coursemart/pkg/logger"
)

// Pinger is the store's liveness check.
type Pinger interface {
	Backend() string
	Ping(ctx context.Context) error
}

type HealthController struct {
	store Pinger
}

func NewHealthController(store Pinger) *HealthController {
	return &HealthController{store: store}
}

func (h *HealthController) Root(c *ctx.Context) {
	c.String(http.StatusOK, "API is running")
}

func (h *HealthController) Healthz(c *ctx.Context) {
	pctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(pctx); err != nil {
		logger.WithCtx(c.Context()).Warn("health: store ping failed", "backend", h.store.Backend(), "error", err)
		c.JSON(http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "store": h.store.Backend()})
		return
	}
	c.JSON(http.StatusOK, map[string]any{"status": "ok", "store": h.store.Backend()})
}
