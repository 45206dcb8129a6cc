package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/resepia/backend/internal/metrics"
	"github.com/resepia/backend/internal/models"
	"github.com/resepia/backend/internal/types"
)

// RatingService manages reviews. A user reviews a recipe once and may
// only update that review afterwards.
type RatingService struct {
	db      *gorm.DB
	metrics *metrics.Collector
	logger  *zap.Logger
}

func NewRatingService(db *gorm.DB, m *metrics.Collector, log *zap.Logger) *RatingService {
	return &RatingService{db: db, metrics: m, logger: log}
}

// ValidateRating enforces the score range and minimum review length
func ValidateRating(req *types.RatingRequest) error {
	req.Review = strings.TrimSpace(req.Review)
	if req.Rating < models.MinRating || req.Rating > models.MaxRating {
		return invalid("rating", fmt.Sprintf("must be between %d and %d", models.MinRating, models.MaxRating))
	}
	if utf8.RuneCountInString(req.Review) < models.MinReviewLength {
		return invalid("review", fmt.Sprintf("must be at least %d characters", models.MinReviewLength))
	}
	return nil
}

// GetRating returns userID's review of recipeID
func (s *RatingService) GetRating(ctx context.Context, userID, recipeID uuid.UUID) (*models.Rating, error) {
	var rating models.Rating
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		First(&rating).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("rating: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load rating: %w", err)
	}
	return &rating, nil
}

// CreateRating records the first review of recipeID by userID
func (s *RatingService) CreateRating(ctx context.Context, userID, recipeID uuid.UUID, req *types.RatingRequest) (*models.Rating, error) {
	if err := ValidateRating(req); err != nil {
		return nil, err
	}
	if err := recipeExists(ctx, s.db, recipeID); err != nil {
		return nil, err
	}

	if _, err := s.GetRating(ctx, userID, recipeID); err == nil {
		return nil, fmt.Errorf("rating: %w", ErrConflict)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	rating := &models.Rating{
		UserID:   userID,
		RecipeID: recipeID,
		Rating:   req.Rating,
		Review:   req.Review,
	}
	if err := s.db.WithContext(ctx).Create(rating).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("rating: %w", ErrConflict)
		}
		return nil, fmt.Errorf("failed to create rating: %w", err)
	}

	s.metrics.RatingSaved("create")
	return s.withAuthor(ctx, rating)
}

// UpdateRating changes an existing review
func (s *RatingService) UpdateRating(ctx context.Context, userID, recipeID uuid.UUID, req *types.RatingRequest) (*models.Rating, error) {
	if err := ValidateRating(req); err != nil {
		return nil, err
	}
	rating, err := s.GetRating(ctx, userID, recipeID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Model(rating).Updates(map[string]interface{}{
		"rating": req.Rating,
		"review": req.Review,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update rating: %w", err)
	}
	rating.Rating = req.Rating
	rating.Review = req.Review

	s.metrics.RatingSaved("update")
	return s.withAuthor(ctx, rating)
}

// ListRatings returns every review of recipeID, newest first, and the summary
func (s *RatingService) ListRatings(ctx context.Context, recipeID uuid.UUID) ([]*models.Rating, *models.RatingSummary, error) {
	if err := recipeExists(ctx, s.db, recipeID); err != nil {
		return nil, nil, err
	}

	var ratings []*models.Rating
	if err := s.db.WithContext(ctx).Where("recipe_id = ?", recipeID).Order("created_at DESC").Find(&ratings).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to list ratings: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(ratings))
	for _, r := range ratings {
		ids = append(ids, r.UserID)
	}
	authors, err := loadAuthors(ctx, s.db, ids)
	if err != nil {
		return nil, nil, err
	}
	for _, r := range ratings {
		r.Author = authors[r.UserID]
	}

	summary, err := ratingSummary(ctx, s.db, recipeID)
	if err != nil {
		return nil, nil, err
	}
	return ratings, summary, nil
}

func (s *RatingService) withAuthor(ctx context.Context, rating *models.Rating) (*models.Rating, error) {
	authors, err := loadAuthors(ctx, s.db, []uuid.UUID{rating.UserID})
	if err != nil {
		return nil, err
	}
	rating.Author = authors[rating.UserID]
	return rating, nil
}

func ratingSummary(ctx context.Context, db *gorm.DB, recipeID uuid.UUID) (*models.RatingSummary, error) {
	var row struct {
		Count   int64
		Average float64
	}
	err := db.WithContext(ctx).Model(&models.Rating{}).
		Select("COUNT(*) AS count, COALESCE(AVG(rating), 0) AS average").
		Where("recipe_id = ?", recipeID).
		Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to summarize ratings: %w", err)
	}
	return &models.RatingSummary{Count: row.Count, Average: row.Average}, nil
}
