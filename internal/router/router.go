package router

import (
	"github.com/gin-gonic/gin"

	"personashield/internal/handler"
	"personashield/internal/middleware"
	"personashield/internal/service"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	authSvc service.AuthService,
	authH *handler.AuthHandler,
	scanH *handler.ScanHandler,
	postH *handler.PostHandler,
	healthH *handler.HealthHandler,
	allowedOrigins []string,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.CORS(allowedOrigins))
	r.Use(middleware.Logger())

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")
	v1.POST("/auth/login", authH.Login)

	// Protected routes - require a valid operator token
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(authSvc))

	scans := protected.Group("/scans")
	scans.POST("", scanH.Create)
	scans.GET("", scanH.List)
	scans.GET("/:id", scanH.GetByID)
	scans.GET("/:id/artifact", scanH.GetArtifact)

	posts := protected.Group("/posts")
	posts.POST("/assess", postH.Assess)
	posts.GET("/:id", postH.GetByID)
	posts.POST("/:id/publish", postH.Publish)
	posts.POST("/:id/cancel", postH.Cancel)

	return r
}
