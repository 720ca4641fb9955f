package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pixelfable/photobook-be/internal/api/handler"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options tunes router surfaces beyond handler dependencies.
type Options struct {
	// ArtifactDir, when non-empty, is served read-only under /files so the
	// pdf_url of locally stored artifacts resolves.
	ArtifactDir string
}

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies, opts Options) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "photobook-api-service",
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if opts.ArtifactDir != "" {
		r.Static("/files", opts.ArtifactDir)
	}

	photobookHandler := handler.NewPhotobookHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		photobooks := v1.Group("/photobooks")
		{
			// POST /api/v1/photobooks - Enqueue a photobook job
			photobooks.POST("", photobookHandler.CreatePhotobook)

			// GET /api/v1/photobooks - List jobs with filtering and pagination
			photobooks.GET("", photobookHandler.ListPhotobooks)

			// GET /api/v1/photobooks/:job_id - Poll job status and result
			photobooks.GET("/:job_id", photobookHandler.GetPhotobook)
		}
	}

	return r
}
