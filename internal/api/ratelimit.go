package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/resepia/backend/internal/middleware"
	"github.com/resepia/backend/internal/service"
)

// RateLimitHandler exposes the caller's remaining quotas
type RateLimitHandler struct {
	recipeCreation *middleware.RateLimiter
	authService    service.IAuthService
}

func NewRateLimitHandler(recipeCreation *middleware.RateLimiter, authService service.IAuthService) *RateLimitHandler {
	return &RateLimitHandler{
		recipeCreation: recipeCreation,
		authService:    authService,
	}
}

func (h *RateLimitHandler) RegisterRoutes(router *gin.RouterGroup) {
	limits := router.Group("/rate-limits")
	limits.Use(middleware.AuthMiddleware(h.authService))
	{
		limits.GET("/recipe-creation", h.RecipeCreationStatus)
	}
}

func (h *RateLimitHandler) RecipeCreationStatus(c *gin.Context) {
	if h.recipeCreation == nil {
		c.JSON(http.StatusOK, gin.H{"limited": false})
		return
	}

	userID, _ := middleware.UserIDFromContext(c)
	remaining, resetTime, err := h.recipeCreation.GetRemainingRequests(c.Request.Context(), userID.String())
	if err != nil {
		respondError(c, err)
		return
	}

	cfg := h.recipeCreation.Config()
	c.JSON(http.StatusOK, gin.H{
		"limited":   true,
		"limit":     cfg.Limit,
		"remaining": remaining,
		"window":    cfg.Window.String(),
		"reset_at":  resetTime.Unix(),
	})
}
