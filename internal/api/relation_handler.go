package api

import (
	"net/http"
	"strconv"

	"github.com/creations-api/internal/models"
	"github.com/creations-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RelationHandler handles creation relation endpoints
type RelationHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewRelationHandler creates a new RelationHandler
func NewRelationHandler(services *service.Services, log zerolog.Logger) *RelationHandler {
	return &RelationHandler{
		services: services,
		log:      log.With().Str("handler", "relations").Logger(),
	}
}

// creationID parses the :id path parameter, writing a 400 on failure
func creationID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid creation id"})
		return 0, false
	}
	return id, true
}

// GetRelations handles GET /v1/creations/:id/relations
func (h *RelationHandler) GetRelations(c *gin.Context) {
	id, ok := creationID(c)
	if !ok {
		return
	}

	items, err := h.services.Relations.GetRelations(c.Request.Context(), id, c.Query("type"))
	if err != nil {
		h.log.Error().Err(err).Int64("creation", id).Msg("Failed to load relations")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load relations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// SetRelations handles POST /v1/creations/:id/relations
// Body: {"type": "list", "items": [...]}. The stored set is replaced.
func (h *RelationHandler) SetRelations(c *gin.Context) {
	id, ok := creationID(c)
	if !ok {
		return
	}

	var req models.SetRelationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if req.Type == "" {
		req.Type = c.Query("type")
	}

	items, decodeErrs, err := models.DecodeRelationInputs(req.Items)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.services.Relations.SetRelations(c.Request.Context(), id, req.Type, items)
	if err != nil {
		h.log.Error().Err(err).Int64("creation", id).Msg("Failed to save relations")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save relations"})
		return
	}
	result.Errors = append(decodeErrs, result.Errors...)

	c.JSON(http.StatusOK, result)
}

// DeleteRelations handles DELETE /v1/creations/:id/relations
func (h *RelationHandler) DeleteRelations(c *gin.Context) {
	id, ok := creationID(c)
	if !ok {
		return
	}

	deleted, err := h.services.Relations.DeleteRelations(c.Request.Context(), id, c.Query("type"))
	if err != nil {
		h.log.Error().Err(err).Int64("creation", id).Msg("Failed to delete relations")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete relations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
