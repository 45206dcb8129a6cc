package testhelpers

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/resepia/backend/internal/models"
)

// TestPassword is the plain-text password of every fixture user
const TestPassword = "password123"

// CreateUser inserts a user whose password is TestPassword
func CreateUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	user := &models.User{
		Email:        strings.ToLower(email),
		PasswordHash: string(hash),
		FullName:     "Test Cook",
		Role:         models.RoleUser,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

// CreateProfile inserts a profile for userID
func CreateProfile(t *testing.T, db *gorm.DB, userID uuid.UUID, username string) *models.Profile {
	t.Helper()
	profile := &models.Profile{
		UserID:    userID,
		FirstName: "Test",
		LastName:  "Cook",
		Username:  username,
	}
	if err := db.Create(profile).Error; err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}
	return profile
}

// CreateRecipe inserts a small recipe owned by userID
func CreateRecipe(t *testing.T, db *gorm.DB, userID uuid.UUID, name string) *models.Recipe {
	t.Helper()
	recipe := &models.Recipe{
		UserID:      userID,
		Name:        name,
		Description: fmt.Sprintf("How we make %s at home", name),
		Ingredients: models.StringList{"2 cups rice", "1 tbsp salt"},
		Steps:       models.StringList{"Rinse the rice", "Cook until tender"},
		Embedding:   unitVector(),
	}
	if err := db.Create(recipe).Error; err != nil {
		t.Fatalf("failed to create recipe: %v", err)
	}
	return recipe
}

// CreateComment inserts a comment with an explicit timestamp
func CreateComment(t *testing.T, db *gorm.DB, userID, recipeID uuid.UUID, content string, at time.Time) *models.Comment {
	t.Helper()
	comment := &models.Comment{
		UserID:    userID,
		RecipeID:  recipeID,
		Content:   content,
		CreatedAt: at,
	}
	if err := db.Create(comment).Error; err != nil {
		t.Fatalf("failed to create comment: %v", err)
	}
	return comment
}

func unitVector() pgvector.Vector {
	vec := make([]float32, models.EmbeddingDimensions)
	vec[0] = 1
	return pgvector.NewVector(vec)
}
