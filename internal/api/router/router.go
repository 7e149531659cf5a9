package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/repolens/repolens/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "repolens-api-service",
		})
	})

	repositoryHandler := handler.NewRepositoryHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		repositories := v1.Group("/repositories")
		{
			// POST /api/v1/repositories - Submit a repository for processing
			repositories.POST("", repositoryHandler.ProcessRepository)

			// GET /api/v1/repositories - List repositories with filtering and pagination
			repositories.GET("", repositoryHandler.ListRepositories)

			// GET /api/v1/repositories/:repository_id/status - Processing status
			repositories.GET("/:repository_id/status", repositoryHandler.GetStatus)

			// GET /api/v1/repositories/:repository_id/progress - Live progress stream
			repositories.GET("/:repository_id/progress", repositoryHandler.SubscribeProgress)
		}
	}

	return r
}
