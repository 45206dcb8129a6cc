package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/resepia/backend/internal/api"
	"github.com/resepia/backend/internal/metrics"
	"github.com/resepia/backend/internal/middleware"
)

// Options configures the shared middleware chain
type Options struct {
	AllowedOrigins []string
	Metrics        *metrics.Collector
	Logger         *zap.Logger
}

// SetupRouter builds the gin engine with middleware, /metrics and all API routes
func SetupRouter(deps *api.Dependencies, opts Options) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Recovery(opts.Logger))
	router.Use(middleware.RequestLogger(opts.Logger))
	router.Use(middleware.CORS(opts.AllowedOrigins))
	if opts.Metrics != nil {
		router.Use(middleware.Metrics(opts.Metrics))
		router.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	api.RegisterRoutes(router, deps)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
	})

	return router
}
