package api

import (
	"net/http"

	"github.com/creations-api/internal/config"
	"github.com/creations-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// QueueHandler exposes the Amazon refresh queues to admins
type QueueHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewQueueHandler creates a new QueueHandler
func NewQueueHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *QueueHandler {
	return &QueueHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "queues").Logger(),
	}
}

// Status handles GET /v1/queues/amazon
func (h *QueueHandler) Status(c *gin.Context) {
	status, err := h.services.Refresh.Status(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read queue status")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read queue status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"configured":     status.Configured,
		"queues":         status.Queues,
		"refresh_window": h.cfg.Queue.RefreshWindow.String(),
		"sweep_interval": h.cfg.Queue.SweepInterval.String(),
	})
}

// Sweep handles POST /v1/queues/amazon/sweep
// Runs a sweep immediately, ignoring the interval guard.
func (h *QueueHandler) Sweep(c *gin.Context) {
	result, err := h.services.Refresh.Sweep(c.Request.Context(), true)
	if err != nil {
		h.log.Error().Err(err).Msg("Manual sweep failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sweep failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}
