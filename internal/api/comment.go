package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/resepia/backend/internal/middleware"
	"github.com/resepia/backend/internal/realtime"
	"github.com/resepia/backend/internal/service"
	"github.com/resepia/backend/internal/types"
)

type CommentHandler struct {
	commentService service.ICommentService
	authService    service.IAuthService
	streamer       *realtime.Streamer
	limiter        *middleware.RateLimiter
}

func NewCommentHandler(commentService service.ICommentService, authService service.IAuthService, streamer *realtime.Streamer, limiter *middleware.RateLimiter) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
		authService:    authService,
		streamer:       streamer,
		limiter:        limiter,
	}
}

func (h *CommentHandler) RegisterRoutes(router *gin.RouterGroup) {
	comments := router.Group("/recipes/:id/comments")
	{
		comments.GET("", h.ListComments)
		comments.POST("", middleware.AuthMiddleware(h.authService), optional(h.limiter, false), h.CreateComment)
		comments.GET("/stream", h.StreamComments)
	}
}

func (h *CommentHandler) ListComments(c *gin.Context) {
	recipeID, ok := parseID(c, "id", "recipe")
	if !ok {
		return
	}
	comments, err := h.commentService.ListComments(c.Request.Context(), recipeID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

func (h *CommentHandler) CreateComment(c *gin.Context) {
	userID, _ := middleware.UserIDFromContext(c)
	recipeID, ok := parseID(c, "id", "recipe")
	if !ok {
		return
	}

	var req types.CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	comment, err := h.commentService.AddComment(c.Request.Context(), userID, recipeID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comment": comment})
}

// StreamComments upgrades to a WebSocket that receives new comments
func (h *CommentHandler) StreamComments(c *gin.Context) {
	recipeID, ok := parseID(c, "id", "recipe")
	if !ok {
		return
	}
	if h.streamer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "comment streaming is not enabled"})
		return
	}
	if err := h.commentService.RecipeExists(c.Request.Context(), recipeID); err != nil {
		respondError(c, err)
		return
	}
	h.streamer.Serve(c.Writer, c.Request, realtime.CommentTopic(recipeID.String()))
}
