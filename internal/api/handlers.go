package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/resepia/backend/internal/database"
	"github.com/resepia/backend/internal/middleware"
	"github.com/resepia/backend/internal/realtime"
	"github.com/resepia/backend/internal/service"
)

// Dependencies are the collaborators the HTTP handlers need. Redis and
// the rate limiters may be nil.
type Dependencies struct {
	DB    *gorm.DB
	Redis *redis.Client

	Auth      service.IAuthService
	Profiles  service.IProfileService
	Recipes   service.IRecipeService
	Comments  service.ICommentService
	Ratings   service.IRatingService
	Accounts  service.IAccountService
	Assistant service.IAssistantService

	Streamer *realtime.Streamer

	RecipeCreationLimiter     *middleware.RateLimiter
	RecipeModificationLimiter *middleware.RateLimiter
	CommentLimiter            *middleware.RateLimiter
	AssistantLimiter          *middleware.RateLimiter

	ImageMaxBytes int64
	Logger        *zap.Logger
}

// RegisterRoutes registers all API routes
func RegisterRoutes(router *gin.Engine, deps *Dependencies) {
	health := &HealthHandler{db: deps.DB, redis: deps.Redis}
	router.GET("/health", health.Check)
	router.GET("/api/health", health.Check)

	accounts := NewAccountHandler(deps.Accounts, deps.Auth, deps.Logger)
	// path used by the original frontend
	router.POST("/api/deleteUser", middleware.AuthMiddleware(deps.Auth), accounts.DeleteUser)

	v1 := router.Group("/api/v1")
	{
		NewAuthHandler(deps.Auth, deps.Profiles, deps.Logger).RegisterRoutes(v1)
		NewProfileHandler(deps.Profiles, deps.Auth).RegisterRoutes(v1)
		NewRecipeHandler(deps.Recipes, deps.Auth, deps.RecipeCreationLimiter, deps.RecipeModificationLimiter, deps.ImageMaxBytes).RegisterRoutes(v1)
		NewCommentHandler(deps.Comments, deps.Auth, deps.Streamer, deps.CommentLimiter).RegisterRoutes(v1)
		NewRatingHandler(deps.Ratings, deps.Auth).RegisterRoutes(v1)
		NewAssistantHandler(deps.Assistant, deps.Auth, deps.AssistantLimiter).RegisterRoutes(v1)
		NewRateLimitHandler(deps.RecipeCreationLimiter, deps.Auth).RegisterRoutes(v1)
		accounts.RegisterRoutes(v1)
	}
}

// optional wraps a possibly absent middleware
func optional(limiter *middleware.RateLimiter, perRecipe bool) gin.HandlerFunc {
	switch {
	case limiter == nil:
		return func(c *gin.Context) { c.Next() }
	case perRecipe:
		return limiter.PerRecipeRateLimitMiddleware()
	default:
		return limiter.RateLimitMiddleware()
	}
}

// HealthHandler reports database and Redis reachability
type HealthHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

// Check returns the health status of the API
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := gin.H{"status": "healthy", "database": "up", "redis": "disabled"}

	if err := database.HealthCheck(ctx, h.db); err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "unhealthy"
		body["database"] = "down"
	}
	if h.redis != nil {
		body["redis"] = "up"
		if err := h.redis.Ping(ctx).Err(); err != nil {
			// Redis is optional; report it without failing the check
			body["redis"] = "down"
		}
	}

	c.JSON(status, body)
}
