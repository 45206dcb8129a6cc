package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/resepia/backend/internal/metrics"
	"github.com/resepia/backend/internal/models"
	"github.com/resepia/backend/internal/realtime"
)

const maxCommentLength = 2000

type CommentService struct {
	db        *gorm.DB
	publisher realtime.Publisher
	metrics   *metrics.Collector
	logger    *zap.Logger
}

func NewCommentService(db *gorm.DB, publisher realtime.Publisher, m *metrics.Collector, log *zap.Logger) *CommentService {
	return &CommentService{
		db:        db,
		publisher: publisher,
		metrics:   m,
		logger:    log,
	}
}

// RecipeExists returns ErrNotFound for unknown recipes
func (s *CommentService) RecipeExists(ctx context.Context, recipeID uuid.UUID) error {
	return recipeExists(ctx, s.db, recipeID)
}

// ListComments returns the comments of a recipe, newest first, with authors
func (s *CommentService) ListComments(ctx context.Context, recipeID uuid.UUID) ([]*models.Comment, error) {
	if err := recipeExists(ctx, s.db, recipeID); err != nil {
		return nil, err
	}

	var comments []*models.Comment
	if err := s.db.WithContext(ctx).Where("recipe_id = ?", recipeID).Order("created_at DESC").Find(&comments).Error; err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.UserID)
	}
	authors, err := loadAuthors(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	for _, c := range comments {
		c.Author = authors[c.UserID]
	}
	return comments, nil
}

// AddComment stores a comment and pushes it to the recipe's viewers
func (s *CommentService) AddComment(ctx context.Context, userID, recipeID uuid.UUID, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalid("content", "is required")
	}
	if utf8.RuneCountInString(content) > maxCommentLength {
		return nil, invalid("content", fmt.Sprintf("must be at most %d characters", maxCommentLength))
	}
	if err := recipeExists(ctx, s.db, recipeID); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		UserID:   userID,
		RecipeID: recipeID,
		Content:  content,
	}
	if err := s.db.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	authors, err := loadAuthors(ctx, s.db, []uuid.UUID{userID})
	if err != nil {
		return nil, err
	}
	comment.Author = authors[userID]

	s.metrics.CommentCreated()
	s.publish(ctx, comment)
	return comment, nil
}

func (s *CommentService) publish(ctx context.Context, comment *models.Comment) {
	if s.publisher == nil {
		return
	}
	payload, err := json.Marshal(realtime.Event{
		Type:    realtime.EventCommentCreated,
		Comment: comment,
	})
	if err != nil {
		s.logger.Error("Failed to encode comment event", zap.Error(err))
		return
	}
	topic := realtime.CommentTopic(comment.RecipeID.String())
	if err := s.publisher.Publish(ctx, topic, payload); err != nil {
		s.logger.Warn("Failed to publish comment event",
			zap.String("topic", topic),
			zap.Error(err),
		)
	}
}
