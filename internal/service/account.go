package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/resepia/backend/internal/models"
)

// AccountService removes accounts and everything they own
type AccountService struct {
	db     *gorm.DB
	images *ImageService
	mailer Mailer
	logger *zap.Logger
}

func NewAccountService(db *gorm.DB, images *ImageService, mailer Mailer, log *zap.Logger) *AccountService {
	return &AccountService{
		db:     db,
		images: images,
		mailer: mailer,
		logger: log,
	}
}

// DeleteUser deletes targetID's account. Callers may delete themselves;
// admins may delete anyone.
func (s *AccountService) DeleteUser(ctx context.Context, callerID uuid.UUID, callerRole string, targetID uuid.UUID) error {
	if callerID != targetID && callerRole != models.RoleAdmin {
		return ErrForbidden
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", targetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("user %s: %w", targetID, ErrNotFound)
		}
		return fmt.Errorf("failed to load user: %w", err)
	}

	var imagePaths []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var recipes []models.Recipe
		if err := tx.Select("id", "image_path").Where("user_id = ?", targetID).Find(&recipes).Error; err != nil {
			return err
		}
		recipeIDs := make([]uuid.UUID, 0, len(recipes))
		for _, r := range recipes {
			recipeIDs = append(recipeIDs, r.ID)
			if r.ImagePath != "" {
				imagePaths = append(imagePaths, r.ImagePath)
			}
		}

		ratings := tx.Where("user_id = ?", targetID)
		comments := tx.Where("user_id = ?", targetID)
		if len(recipeIDs) > 0 {
			ratings = tx.Where("user_id = ? OR recipe_id IN ?", targetID, recipeIDs)
			comments = tx.Where("user_id = ? OR recipe_id IN ?", targetID, recipeIDs)
		}
		if err := ratings.Delete(&models.Rating{}).Error; err != nil {
			return err
		}
		if err := comments.Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", targetID).Delete(&models.Recipe{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", targetID).Delete(&models.Profile{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, "id = ?", targetID).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	for _, key := range imagePaths {
		s.images.Remove(ctx, key)
	}

	s.logger.Info("User deleted",
		zap.String("user_id", targetID.String()),
		zap.String("deleted_by", callerID.String()),
	)

	if s.mailer != nil {
		go func(u models.User) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := s.mailer.SendAccountDeletedEmail(ctx, &u); err != nil {
				s.logger.Warn("Failed to send account deletion email", zap.String("user_id", u.ID.String()), zap.Error(err))
			}
		}(user)
	}
	return nil
}
