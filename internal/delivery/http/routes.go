package http

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/prodcompare/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, logger zerolog.Logger) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggerMiddleware(logger))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	limited := router.Group("/")
	limited.Use(RateLimitMiddleware(cfg.RateLimit.PerIP, cfg.RateLimit.Burst))
	{
		limited.POST("/recommend", handler.Recommend)

		// Storefront tracking endpoints
		product := limited.Group("/api/product/comparison")
		{
			product.POST("/track", handler.TrackComparison)
			product.GET("/stats/:productId", handler.ComparisonStats)
		}

		// API v1 routes
		v1 := limited.Group("/api/v1")
		{
			v1.POST("/comparison/table", handler.BuildTable)
		}
	}

	return router
}
