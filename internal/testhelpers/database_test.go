package testhelpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resepia/backend/internal/models"
)

func TestNewSQLiteDBIsIsolated(t *testing.T) {
	first := NewSQLiteDB(t)
	second := NewSQLiteDB(t)

	CreateUser(t, first, "Cook@Example.com")

	var count int64
	require.NoError(t, first.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	require.NoError(t, second.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestFixtures(t *testing.T) {
	db := NewSQLiteDB(t)

	user := CreateUser(t, db, "Cook@Example.com")
	assert.Equal(t, "cook@example.com", user.Email)
	assert.Equal(t, models.RoleUser, user.Role)

	profile := CreateProfile(t, db, user.ID, "cook")
	assert.Equal(t, "Test Cook", profile.DisplayName())

	recipe := CreateRecipe(t, db, user.ID, "Rendang")
	var stored models.Recipe
	require.NoError(t, db.First(&stored, "id = ?", recipe.ID).Error)
	assert.Equal(t, models.StringList{"2 cups rice", "1 tbsp salt"}, stored.Ingredients)
	assert.Len(t, stored.Embedding.Slice(), models.EmbeddingDimensions)

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	comment := CreateComment(t, db, user.ID, recipe.ID, "Enak", at)
	assert.True(t, comment.CreatedAt.Equal(at))
}
