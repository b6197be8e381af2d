package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newsroom-authoring-api/internal/config"
	"github.com/newsroom-authoring-api/internal/service"
	"github.com/rs/zerolog"
)

// NewRouter creates and configures the Gin router
func NewRouter(services *service.Services, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware())

	// Handlers
	archiveHandler := NewArchiveHandler(services, log)
	autosaveHandler := NewAutosaveHandler(services, log)
	wsHandler := NewWSHandler(services.Hub, log)

	// Health check
	router.GET("/health", healthCheck)
	router.GET("/metrics", metricsHandler(services))

	// API v1
	v1 := router.Group("/v1")
	{
		archive := v1.Group("/archive")
		{
			archive.GET("/:id", archiveHandler.GetArticle)
			archive.PATCH("/:id", archiveHandler.PatchArticle)
			archive.POST("/:id/lock", archiveHandler.LockArticle)
			archive.POST("/:id/unlock", archiveHandler.UnlockArticle)
			archive.POST("/:id/overwrite", archiveHandler.OverwriteArticle)
			archive.GET("/:id/ws", wsHandler.PatchFeed)
		}

		autosaves := v1.Group("/archive_autosave")
		{
			autosaves.GET("/:id", autosaveHandler.Get)
			autosaves.PUT("/:id", autosaveHandler.Put)
			autosaves.DELETE("/:id", autosaveHandler.Delete)
		}

		v1.GET("/content_types/:id", archiveHandler.GetContentType)
	}

	return router
}

// healthCheck returns the health status
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"service":   "newsroom-authoring-api",
	})
}

// metricsHandler returns archive metrics
func metricsHandler(services *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		articlesCount, _ := services.Article.Count(ctx)
		autosavesCount, _ := services.Autosave.Count(ctx)

		c.JSON(http.StatusOK, gin.H{
			"database": gin.H{
				"articles":  articlesCount,
				"autosaves": autosavesCount,
			},
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Msg("Panic recovered")
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("Request completed")
	}
}

// corsMiddleware handles CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, If-Match, X-Session-Id")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
