package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/resepia/backend/internal/middleware"
	"github.com/resepia/backend/internal/models"
	"github.com/resepia/backend/internal/service"
	"github.com/resepia/backend/internal/types"
)

type AuthHandler struct {
	authService    service.IAuthService
	profileService service.IProfileService
	logger         *zap.Logger
}

// LoginResponse is returned by a successful login
type LoginResponse struct {
	Token          string          `json:"token"`
	UserID         string          `json:"user_id"`
	Profile        *models.Profile `json:"profile"`
	ProfileCreated bool            `json:"profile_created"`
}

func NewAuthHandler(authService service.IAuthService, profileService service.IProfileService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		profileService: profileService,
		logger:         logger,
	}
}

func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := router.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/logout", middleware.AuthMiddleware(h.authService), h.Logout)
		auth.GET("/session", middleware.AuthMiddleware(h.authService), h.Session)
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req types.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user_id": user.ID,
		"email":   user.Email,
	})
}

// Login exchanges credentials for a token and creates the profile on
// the first login
func (h *AuthHandler) Login(c *gin.Context) {
	var req types.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	ctx := c.Request.Context()
	user, err := h.authService.Login(ctx, req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	profile, created, err := h.profileService.EnsureProfile(ctx, user)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("User logged in",
		zap.String("user_id", user.ID.String()),
		zap.Bool("profile_created", created),
	)

	c.JSON(http.StatusOK, LoginResponse{
		Token:          token,
		UserID:         user.ID.String(),
		Profile:        profile,
		ProfileCreated: created,
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	claims, _ := middleware.ClaimsFromContext(c)
	if err := h.authService.RevokeToken(c.Request.Context(), claims); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out successfully"})
}

// Session describes the caller of a valid token
func (h *AuthHandler) Session(c *gin.Context) {
	claims, _ := middleware.ClaimsFromContext(c)
	c.JSON(http.StatusOK, gin.H{
		"user_id":    claims.UserID,
		"email":      claims.Email,
		"role":       claims.Role,
		"expires_at": claims.ExpiresAt,
	})
}
