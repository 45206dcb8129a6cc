package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/resepia/backend/internal/models"
	"github.com/resepia/backend/internal/types"
)

// IAuthService defines the interface for authentication operations
type IAuthService interface {
	Register(ctx context.Context, req *types.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
	GenerateToken(user *models.User) (string, error)
	ValidateToken(ctx context.Context, token string) (*types.TokenClaims, error)
	RevokeToken(ctx context.Context, claims *types.TokenClaims) error
}

// IProfileService defines the interface for user profile operations
type IProfileService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	EnsureProfile(ctx context.Context, user *models.User) (*models.Profile, bool, error)
	SetupProfile(ctx context.Context, userID uuid.UUID, req *types.ProfileRequest) (*models.Profile, error)
	UpdateProfile(ctx context.Context, callerID, targetID uuid.UUID, req *types.ProfileRequest) (*models.Profile, error)
}

// IRecipeService defines the interface for recipe operations
type IRecipeService interface {
	CreateRecipe(ctx context.Context, userID uuid.UUID, in *types.RecipeInput, img *ImageUpload) (*models.Recipe, error)
	GetRecipe(ctx context.Context, id, viewer uuid.UUID) (*models.Recipe, error)
	ListRecipes(ctx context.Context, f RecipeFilter) ([]*models.Recipe, error)
	UpdateRecipe(ctx context.Context, userID, id uuid.UUID, in *types.RecipeInput, img *ImageUpload) (*models.Recipe, error)
	DeleteRecipe(ctx context.Context, userID, id uuid.UUID) error
}

// ICommentService defines the interface for recipe comments
type ICommentService interface {
	RecipeExists(ctx context.Context, recipeID uuid.UUID) error
	ListComments(ctx context.Context, recipeID uuid.UUID) ([]*models.Comment, error)
	AddComment(ctx context.Context, userID, recipeID uuid.UUID, content string) (*models.Comment, error)
}

// IRatingService defines the interface for reviews
type IRatingService interface {
	GetRating(ctx context.Context, userID, recipeID uuid.UUID) (*models.Rating, error)
	CreateRating(ctx context.Context, userID, recipeID uuid.UUID, req *types.RatingRequest) (*models.Rating, error)
	UpdateRating(ctx context.Context, userID, recipeID uuid.UUID, req *types.RatingRequest) (*models.Rating, error)
	ListRatings(ctx context.Context, recipeID uuid.UUID) ([]*models.Rating, *models.RatingSummary, error)
}

// IAccountService defines the interface for account removal
type IAccountService interface {
	DeleteUser(ctx context.Context, callerID uuid.UUID, callerRole string, targetID uuid.UUID) error
}

// IAssistantService defines the interface for the recipe assistant
type IAssistantService interface {
	Chat(ctx context.Context, userID uuid.UUID, req *types.ChatRequest) (*ChatResult, error)
	GetSession(ctx context.Context, userID uuid.UUID, id string) (*ChatSession, error)
	DeleteSession(ctx context.Context, userID uuid.UUID, id string) error
}

var (
	_ IAuthService      = (*AuthService)(nil)
	_ IProfileService   = (*ProfileService)(nil)
	_ IRecipeService    = (*RecipeService)(nil)
	_ ICommentService   = (*CommentService)(nil)
	_ IRatingService    = (*RatingService)(nil)
	_ IAccountService   = (*AccountService)(nil)
	_ IAssistantService = (*AssistantService)(nil)
)
