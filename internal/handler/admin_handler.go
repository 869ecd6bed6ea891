package handler

import (
	"context"
	"net/http"
	"time"

	"go-raffle-engine/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SweepRunner is the slice of the sweeper the admin surface needs.
type SweepRunner interface {
	Sweep(ctx context.Context, now time.Time) (released, expired int64, err error)
}

// AdminHandler exposes operational actions that normally run on timers.
type AdminHandler struct {
	sweep SweepRunner
}

func NewAdminHandler(sweep SweepRunner) *AdminHandler {
	return &AdminHandler{sweep: sweep}
}

func (h *AdminHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.POST("admin/sweep", h.Sweep)
	}
}

// Sweep runs one expiry pass immediately instead of waiting for the ticker.
func (h *AdminHandler) Sweep(c *gin.Context) {
	released, expired, err := h.sweep.Sweep(c, time.Now().UTC())
	if err != nil {
		logger.WithComponent("handler").Error("Manual sweep failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"numbers_released": released,
		"orders_expired":   expired,
	})
}
