package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newsroom-authoring-api/internal/models"
	"github.com/newsroom-authoring-api/internal/service"
	"github.com/rs/zerolog"
)

// AutosaveHandler handles autosave-record endpoints
type AutosaveHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewAutosaveHandler creates a new AutosaveHandler
func NewAutosaveHandler(services *service.Services, log zerolog.Logger) *AutosaveHandler {
	return &AutosaveHandler{
		services: services,
		log:      log.With().Str("handler", "autosave").Logger(),
	}
}

// Get handles GET /v1/archive_autosave/:id
func (h *AutosaveHandler) Get(c *gin.Context) {
	record, err := h.services.Autosave.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no autosave record"})
			return
		}
		h.log.Error().Err(err).Msg("Autosave fetch failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, record)
}

// Put handles PUT /v1/archive_autosave/:id
func (h *AutosaveHandler) Put(c *gin.Context) {
	var record models.AutosaveRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid autosave body"})
		return
	}

	record.ItemID = c.Param("id")
	if record.Article == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "article is required"})
		return
	}
	record.UpdatedAt = time.Now()

	if err := h.services.Autosave.Put(c.Request.Context(), &record); err != nil {
		h.log.Error().Err(err).Msg("Autosave write failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, record)
}

// Delete handles DELETE /v1/archive_autosave/:id
func (h *AutosaveHandler) Delete(c *gin.Context) {
	if err := h.services.Autosave.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.log.Error().Err(err).Msg("Autosave delete failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.Status(http.StatusNoContent)
}
