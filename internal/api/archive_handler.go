package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newsroom-authoring-api/internal/models"
	"github.com/newsroom-authoring-api/internal/service"
	"github.com/newsroom-authoring-api/internal/validation"
	"github.com/rs/zerolog"
)

// ArchiveHandler handles archive endpoints
type ArchiveHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewArchiveHandler creates a new ArchiveHandler
func NewArchiveHandler(services *service.Services, log zerolog.Logger) *ArchiveHandler {
	return &ArchiveHandler{
		services: services,
		log:      log.With().Str("handler", "archive").Logger(),
	}
}

// GetArticle handles GET /v1/archive/:id
func (h *ArchiveHandler) GetArticle(c *gin.Context) {
	article, err := h.services.Article.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

// PatchArticle handles PATCH /v1/archive/:id
// The If-Match header must carry the concurrency token of the snapshot the
// patch was computed against; a mismatch is rejected with 412.
func (h *ArchiveHandler) PatchArticle(c *gin.Context) {
	ifMatch := c.GetHeader("If-Match")
	if ifMatch == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "If-Match header is required"})
		return
	}

	var p models.Patch
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid patch body"})
		return
	}

	if validationErrors := validation.ValidatePatch(p); len(validationErrors) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "details": validationErrors})
		return
	}

	article, err := h.services.Article.ApplyPatch(
		c.Request.Context(), c.Param("id"), p, ifMatch, c.GetHeader("X-Session-Id"),
	)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

// OverwriteArticle handles POST /v1/archive/:id/overwrite
func (h *ArchiveHandler) OverwriteArticle(c *gin.Context) {
	var p models.Patch
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid patch body"})
		return
	}

	if validationErrors := validation.ValidatePatch(p); len(validationErrors) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "details": validationErrors})
		return
	}

	article, err := h.services.Article.Overwrite(
		c.Request.Context(), c.Param("id"), p, c.GetHeader("X-Session-Id"),
	)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

// LockArticle handles POST /v1/archive/:id/lock
func (h *ArchiveHandler) LockArticle(c *gin.Context) {
	sessionID := c.GetHeader("X-Session-Id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "X-Session-Id header is required"})
		return
	}

	article, err := h.services.Article.Lock(
		c.Request.Context(), c.Param("id"), c.GetHeader("X-User-Id"), sessionID,
	)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

// UnlockArticle handles POST /v1/archive/:id/unlock
func (h *ArchiveHandler) UnlockArticle(c *gin.Context) {
	article, err := h.services.Article.Unlock(
		c.Request.Context(), c.Param("id"), c.GetHeader("X-Session-Id"),
	)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

// GetContentType handles GET /v1/content_types/:id
func (h *ArchiveHandler) GetContentType(c *gin.Context) {
	schema, err := h.services.Profile.GetSchema(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, schema)
}

func (h *ArchiveHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, models.ErrSaveConflict):
		c.JSON(http.StatusPreconditionFailed, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrLockConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
