package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/resepia/backend/internal/metrics"
	"github.com/resepia/backend/internal/models"
	"github.com/resepia/backend/internal/types"
)

const searchLimit = 50

// RecipeFilter narrows List. Viewer only drives the is_owner flag.
type RecipeFilter struct {
	Query  string
	UserID *uuid.UUID
	Viewer uuid.UUID
}

type RecipeService struct {
	db      *gorm.DB
	images  *ImageService
	metrics *metrics.Collector
	logger  *zap.Logger
}

func NewRecipeService(db *gorm.DB, images *ImageService, m *metrics.Collector, log *zap.Logger) *RecipeService {
	return &RecipeService{
		db:      db,
		images:  images,
		metrics: m,
		logger:  log,
	}
}

// ValidateRecipeInput trims the form and enforces the required fields
func ValidateRecipeInput(in *types.RecipeInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Ingredients = types.CleanLines(in.Ingredients)
	in.Steps = types.CleanLines(in.Steps)

	switch {
	case in.Name == "":
		return invalid("name", "is required")
	case len(in.Name) > 255:
		return invalid("name", "must be at most 255 characters")
	case in.Description == "":
		return invalid("description", "is required")
	case len(in.Ingredients) == 0:
		return invalid("ingredients", "must contain at least one line")
	case len(in.Steps) == 0:
		return invalid("steps", "must contain at least one line")
	}
	return nil
}

// CreateRecipe stores a recipe for userID, uploading img first when present
func (s *RecipeService) CreateRecipe(ctx context.Context, userID uuid.UUID, in *types.RecipeInput, img *ImageUpload) (*models.Recipe, error) {
	if err := ValidateRecipeInput(in); err != nil {
		return nil, err
	}

	recipe := &models.Recipe{
		UserID:      userID,
		Name:        in.Name,
		Description: in.Description,
		Ingredients: models.StringList(in.Ingredients),
		Steps:       models.StringList(in.Steps),
	}
	recipe.Embedding = GenerateEmbedding(recipeEmbeddingText(recipe))

	if img != nil {
		stored, err := s.images.Upload(ctx, userID, img)
		if err != nil {
			return nil, err
		}
		recipe.ImageURL = &stored.URL
		recipe.ImagePath = stored.Key
	}

	if err := s.db.WithContext(ctx).Create(recipe).Error; err != nil {
		s.images.Remove(ctx, recipe.ImagePath)
		return nil, fmt.Errorf("failed to create recipe: %w", err)
	}

	s.metrics.RecipeCreated()
	s.logger.Info("Recipe created",
		zap.String("recipe_id", recipe.ID.String()),
		zap.String("user_id", userID.String()),
	)

	if err := s.decorate(ctx, []*models.Recipe{recipe}, userID); err != nil {
		return nil, err
	}
	return recipe, nil
}

// GetRecipe returns one recipe with author and rating summary
func (s *RecipeService) GetRecipe(ctx context.Context, id, viewer uuid.UUID) (*models.Recipe, error) {
	recipe, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.decorate(ctx, []*models.Recipe{recipe}, viewer); err != nil {
		return nil, err
	}
	summary, err := ratingSummary(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	recipe.Ratings = summary
	return recipe, nil
}

// ListRecipes returns recipes newest first, or by relevance when searching
func (s *RecipeService) ListRecipes(ctx context.Context, f RecipeFilter) ([]*models.Recipe, error) {
	query := s.db.WithContext(ctx).Model(&models.Recipe{})

	if f.UserID != nil {
		query = query.Where("user_id = ?", *f.UserID)
	}

	if search := strings.TrimSpace(f.Query); search != "" {
		if s.db.Dialector.Name() == "postgres" {
			vec := GenerateEmbedding(search)
			query = query.Clauses(clause.OrderBy{
				Expression: clause.Expr{SQL: "embedding <-> ?", Vars: []interface{}{vec}},
			}).Limit(searchLimit)
		} else {
			like := "%" + strings.ToLower(search) + "%"
			query = query.
				Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(ingredients) LIKE ?", like, like, like).
				Order("created_at DESC")
		}
	} else {
		query = query.Order("created_at DESC")
	}

	var recipes []*models.Recipe
	if err := query.Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	if err := s.decorate(ctx, recipes, f.Viewer); err != nil {
		return nil, err
	}
	return recipes, nil
}

// UpdateRecipe replaces the content of a recipe owned by userID.
// The previous image is kept unless img is given.
func (s *RecipeService) UpdateRecipe(ctx context.Context, userID, id uuid.UUID, in *types.RecipeInput, img *ImageUpload) (*models.Recipe, error) {
	recipe, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !recipe.OwnedBy(userID) {
		return nil, ErrForbidden
	}
	if err := ValidateRecipeInput(in); err != nil {
		return nil, err
	}

	oldPath := recipe.ImagePath
	recipe.Name = in.Name
	recipe.Description = in.Description
	recipe.Ingredients = models.StringList(in.Ingredients)
	recipe.Steps = models.StringList(in.Steps)
	recipe.Embedding = GenerateEmbedding(recipeEmbeddingText(recipe))

	updates := map[string]interface{}{
		"name":        recipe.Name,
		"description": recipe.Description,
		"ingredients": recipe.Ingredients,
		"steps":       recipe.Steps,
		"embedding":   recipe.Embedding,
	}

	if img != nil {
		stored, err := s.images.Upload(ctx, recipe.ID, img)
		if err != nil {
			return nil, err
		}
		recipe.ImageURL = &stored.URL
		recipe.ImagePath = stored.Key
		updates["image_url"] = recipe.ImageURL
		updates["image_path"] = recipe.ImagePath
	}

	if err := s.db.WithContext(ctx).Model(&models.Recipe{ID: recipe.ID}).Updates(updates).Error; err != nil {
		if img != nil {
			s.images.Remove(ctx, recipe.ImagePath)
		}
		return nil, fmt.Errorf("failed to update recipe: %w", err)
	}
	if img != nil && oldPath != "" && oldPath != recipe.ImagePath {
		s.images.Remove(ctx, oldPath)
	}

	return s.GetRecipe(ctx, id, userID)
}

// DeleteRecipe removes a recipe owned by userID along with its comments and ratings
func (s *RecipeService) DeleteRecipe(ctx context.Context, userID, id uuid.UUID) error {
	recipe, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if !recipe.OwnedBy(userID) {
		return ErrForbidden
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recipe_id = ?", id).Delete(&models.Rating{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Recipe{}, "id = ?", id).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}

	s.images.Remove(ctx, recipe.ImagePath)
	s.metrics.RecipeDeleted()
	s.logger.Info("Recipe deleted", zap.String("recipe_id", id.String()))
	return nil
}

func (s *RecipeService) find(ctx context.Context, id uuid.UUID) (*models.Recipe, error) {
	return findRecipe(ctx, s.db, id)
}

func (s *RecipeService) decorate(ctx context.Context, recipes []*models.Recipe, viewer uuid.UUID) error {
	ids := make([]uuid.UUID, 0, len(recipes))
	for _, r := range recipes {
		ids = append(ids, r.UserID)
	}
	authors, err := loadAuthors(ctx, s.db, ids)
	if err != nil {
		return err
	}
	for _, r := range recipes {
		r.Author = authors[r.UserID]
		r.IsOwner = r.OwnedBy(viewer)
	}
	return nil
}

func findRecipe(ctx context.Context, db *gorm.DB, id uuid.UUID) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := db.WithContext(ctx).First(&recipe, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("recipe %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load recipe: %w", err)
	}
	return &recipe, nil
}

func recipeExists(ctx context.Context, db *gorm.DB, id uuid.UUID) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.Recipe{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check recipe: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("recipe %s: %w", id, ErrNotFound)
	}
	return nil
}
