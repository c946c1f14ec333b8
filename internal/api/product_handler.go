package api

import (
	"net/http"

	"github.com/creations-api/internal/models"
	"github.com/creations-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ProductHandler handles creation product map endpoints
type ProductHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(services *service.Services, log zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		services: services,
		log:      log.With().Str("handler", "products").Logger(),
	}
}

// GetProductMap handles GET /v1/creations/:id/products
func (h *ProductHandler) GetProductMap(c *gin.Context) {
	id, ok := creationID(c)
	if !ok {
		return
	}

	items, err := h.services.Products.GetProductMap(c.Request.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Int64("creation", id).Msg("Failed to load product map")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load products"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// UpsertProductMap handles POST /v1/creations/:id/products
func (h *ProductHandler) UpsertProductMap(c *gin.Context) {
	id, ok := creationID(c)
	if !ok {
		return
	}

	var req models.UpsertProductMapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	items, decodeErrs, err := models.DecodeProductMapInputs(req.Items)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.services.Products.UpsertProductMap(c.Request.Context(), id, items)
	if err != nil {
		h.log.Error().Err(err).Int64("creation", id).Msg("Failed to save product map")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save products"})
		return
	}
	result.Errors = append(decodeErrs, result.Errors...)

	c.JSON(http.StatusOK, result)
}
