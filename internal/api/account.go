package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/resepia/backend/internal/middleware"
	"github.com/resepia/backend/internal/service"
	"github.com/resepia/backend/internal/types"
)

type AccountHandler struct {
	accountService service.IAccountService
	authService    service.IAuthService
	logger         *zap.Logger
}

func NewAccountHandler(accountService service.IAccountService, authService service.IAuthService, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		authService:    authService,
		logger:         logger,
	}
}

func (h *AccountHandler) RegisterRoutes(router *gin.RouterGroup) {
	admin := router.Group("/admin")
	admin.Use(middleware.AuthMiddleware(h.authService))
	{
		admin.POST("/users/delete", h.DeleteUser)
	}
}

// DeleteUser removes an account with everything it owns. Users may
// delete themselves; admins may delete anyone.
func (h *AccountHandler) DeleteUser(c *gin.Context) {
	var req types.DeleteUserRequest
	_ = c.ShouldBindJSON(&req)

	targetID, err := uuid.Parse(strings.TrimSpace(req.UserID))
	if err != nil || targetID == uuid.Nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User ID is required"})
		return
	}

	claims, _ := middleware.ClaimsFromContext(c)
	ctx := c.Request.Context()

	err = h.accountService.DeleteUser(ctx, claims.UserID, claims.Role, targetID)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only delete your own account"})
		return
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if claims.UserID == targetID {
		if err := h.authService.RevokeToken(ctx, claims); err != nil {
			h.logger.Warn("Failed to revoke token of deleted user", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
