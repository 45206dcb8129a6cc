package api

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resepia/backend/internal/models"
	"github.com/resepia/backend/internal/testhelpers"
)

func TestAccountHandler_DeleteUser(t *testing.T) {
	s := newTestServer(t)
	user, token := s.user(t, "cook@example.com", "cook")
	other, _ := s.user(t, "other@example.com", "other")
	recipe := testhelpers.CreateRecipe(t, s.db, user.ID, "Rendang")

	t.Run("missing user id", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/deleteUser", token, map[string]string{})
		assertStatus(t, http.StatusBadRequest, w)
		assert.Equal(t, "User ID is required", decode(t, w)["error"])
	})

	t.Run("requires auth", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/deleteUser", "", map[string]string{"user_id": user.ID.String()})
		assertStatus(t, http.StatusUnauthorized, w)
	})

	t.Run("cannot delete someone else", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/deleteUser", token, map[string]string{"user_id": other.ID.String()})
		assertStatus(t, http.StatusForbidden, w)
	})

	t.Run("self delete", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/deleteUser", token, map[string]string{"user_id": user.ID.String()})
		assertStatus(t, http.StatusOK, w)
		assert.Equal(t, true, decode(t, w)["success"])

		assertStatus(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/v1/recipes/"+recipe.ID.String(), "", nil))
		assertStatus(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/v1/profiles/"+user.ID.String(), "", nil))
	})
}

func TestAccountHandler_AdminDelete(t *testing.T) {
	s := newTestServer(t)
	admin, _ := s.user(t, "admin@example.com", "admin")
	require.NoError(t, s.db.Model(admin).Update("role", models.RoleAdmin).Error)
	admin.Role = models.RoleAdmin
	token, err := s.auth.GenerateToken(admin)
	require.NoError(t, err)

	target, targetToken := s.user(t, "spam@example.com", "spammer")

	w := s.do(t, http.MethodPost, "/api/v1/admin/users/delete", token, map[string]string{"user_id": target.ID.String()})
	assertStatus(t, http.StatusOK, w)

	// the deleted user's outstanding token is dead
	assertStatus(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/v1/auth/session", targetToken, nil))
	assertStatus(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/api/v1/recipes", targetToken, map[string]string{
		"name": "Spam", "description": "spam", "ingredients": "spam", "steps": "spam",
	}))
	assertStatus(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/api/v1/profile/setup", targetToken, map[string]string{
		"first_name": "Spam", "last_name": "Bot", "username": "spammer",
	}))

	var orphans int64
	require.NoError(t, s.db.Model(&models.Recipe{}).Where("user_id = ?", target.ID).Count(&orphans).Error)
	assert.Zero(t, orphans)
	require.NoError(t, s.db.Model(&models.Profile{}).Where("user_id = ?", target.ID).Count(&orphans).Error)
	assert.Zero(t, orphans)

	w = s.do(t, http.MethodPost, "/api/v1/admin/users/delete", token, map[string]string{"user_id": uuid.NewString()})
	assertStatus(t, http.StatusNotFound, w)
	assert.Equal(t, "User not found", decode(t, w)["error"])

	// the admin's own token keeps working
	assertStatus(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/auth/session", token, nil))
}
