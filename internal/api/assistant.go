package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/resepia/backend/internal/middleware"
	"github.com/resepia/backend/internal/service"
	"github.com/resepia/backend/internal/types"
)

type AssistantHandler struct {
	assistantService service.IAssistantService
	authService      service.IAuthService
	limiter          *middleware.RateLimiter
}

func NewAssistantHandler(assistantService service.IAssistantService, authService service.IAuthService, limiter *middleware.RateLimiter) *AssistantHandler {
	return &AssistantHandler{
		assistantService: assistantService,
		authService:      authService,
		limiter:          limiter,
	}
}

func (h *AssistantHandler) RegisterRoutes(router *gin.RouterGroup) {
	assistant := router.Group("/assistant")
	assistant.Use(middleware.AuthMiddleware(h.authService))
	{
		assistant.POST("/chat", optional(h.limiter, false), h.Chat)
		assistant.GET("/sessions/:id", h.GetSession)
		assistant.DELETE("/sessions/:id", h.DeleteSession)
	}
}

// Chat sends one message to the recipe assistant
func (h *AssistantHandler) Chat(c *gin.Context) {
	userID, _ := middleware.UserIDFromContext(c)

	var req types.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.assistantService.Chat(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AssistantHandler) GetSession(c *gin.Context) {
	userID, _ := middleware.UserIDFromContext(c)
	session, err := h.assistantService.GetSession(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *AssistantHandler) DeleteSession(c *gin.Context) {
	userID, _ := middleware.UserIDFromContext(c)
	if err := h.assistantService.DeleteSession(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "session deleted"})
}
