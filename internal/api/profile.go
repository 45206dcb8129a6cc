package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/resepia/backend/internal/middleware"
	"github.com/resepia/backend/internal/service"
	"github.com/resepia/backend/internal/types"
)

type ProfileHandler struct {
	profileService service.IProfileService
	authService    service.IAuthService
}

func NewProfileHandler(profileService service.IProfileService, authService service.IAuthService) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		authService:    authService,
	}
}

func (h *ProfileHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := middleware.AuthMiddleware(h.authService)

	profile := router.Group("/profile")
	profile.Use(auth)
	{
		profile.GET("", h.GetOwnProfile)
		profile.POST("/setup", h.SetupProfile)
	}

	profiles := router.Group("/profiles")
	{
		profiles.GET("/:id", h.GetProfile)
		profiles.PUT("/:id", auth, h.UpdateProfile)
	}
}

func (h *ProfileHandler) GetOwnProfile(c *gin.Context) {
	userID, _ := middleware.UserIDFromContext(c)
	profile, err := h.profileService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// SetupProfile creates or replaces the caller's profile
func (h *ProfileHandler) SetupProfile(c *gin.Context) {
	userID, _ := middleware.UserIDFromContext(c)

	var req types.ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	profile, err := h.profileService.SetupProfile(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *ProfileHandler) GetProfile(c *gin.Context) {
	id, ok := parseID(c, "id", "user")
	if !ok {
		return
	}
	profile, err := h.profileService.GetProfile(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	userID, _ := middleware.UserIDFromContext(c)
	id, ok := parseID(c, "id", "user")
	if !ok {
		return
	}

	var req types.ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	profile, err := h.profileService.UpdateProfile(c.Request.Context(), userID, id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
