package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/resepia/backend/internal/middleware"
	"github.com/resepia/backend/internal/models"
	"github.com/resepia/backend/internal/service"
	"github.com/resepia/backend/internal/types"
)

type RatingHandler struct {
	ratingService service.IRatingService
	authService   service.IAuthService
}

func NewRatingHandler(ratingService service.IRatingService, authService service.IAuthService) *RatingHandler {
	return &RatingHandler{
		ratingService: ratingService,
		authService:   authService,
	}
}

func (h *RatingHandler) RegisterRoutes(router *gin.RouterGroup) {
	recipes := router.Group("/recipes/:id")
	{
		recipes.GET("/ratings", h.ListRatings)

		rating := recipes.Group("/rating")
		rating.Use(middleware.AuthMiddleware(h.authService))
		rating.GET("", h.GetMyRating)
		rating.POST("", h.CreateRating)
		rating.PUT("", h.UpdateRating)
	}
}

func (h *RatingHandler) ListRatings(c *gin.Context) {
	recipeID, ok := parseID(c, "id", "recipe")
	if !ok {
		return
	}
	ratings, summary, err := h.ratingService.ListRatings(c.Request.Context(), recipeID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ratings": ratings, "summary": summary})
}

// GetMyRating returns the caller's review of the recipe
func (h *RatingHandler) GetMyRating(c *gin.Context) {
	userID, _ := middleware.UserIDFromContext(c)
	recipeID, ok := parseID(c, "id", "recipe")
	if !ok {
		return
	}
	rating, err := h.ratingService.GetRating(c.Request.Context(), userID, recipeID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rating": rating})
}

func (h *RatingHandler) CreateRating(c *gin.Context) {
	h.saveRating(c, http.StatusCreated, h.ratingService.CreateRating)
}

func (h *RatingHandler) UpdateRating(c *gin.Context) {
	h.saveRating(c, http.StatusOK, h.ratingService.UpdateRating)
}

type saveRatingFunc = func(ctx context.Context, userID, recipeID uuid.UUID, req *types.RatingRequest) (*models.Rating, error)

func (h *RatingHandler) saveRating(c *gin.Context, status int, save saveRatingFunc) {
	userID, _ := middleware.UserIDFromContext(c)
	recipeID, ok := parseID(c, "id", "recipe")
	if !ok {
		return
	}

	var req types.RatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	rating, err := save(c.Request.Context(), userID, recipeID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, gin.H{"rating": rating})
}
