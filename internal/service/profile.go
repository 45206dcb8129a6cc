package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/resepia/backend/internal/models"
	"github.com/resepia/backend/internal/types"
)

const usernameAttempts = 5

type ProfileService struct {
	db     *gorm.DB
	logger *zap.Logger
	// newUsername is swapped in tests to force collisions
	newUsername func() string
}

func NewProfileService(db *gorm.DB, log *zap.Logger) *ProfileService {
	return &ProfileService{
		db:          db,
		logger:      log,
		newUsername: GenerateUsername,
	}
}

// GenerateUsername returns a handle of the form @resepia_<0..9999>
func GenerateUsername() string {
	return fmt.Sprintf("@resepia_%d", rand.IntN(10000))
}

// GetProfile returns the profile of userID
func (s *ProfileService) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := s.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("profile %s: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return &profile, nil
}

// EnsureProfile returns the user's profile, creating it on first login.
// The bool reports whether a profile was created.
func (s *ProfileService) EnsureProfile(ctx context.Context, user *models.User) (*models.Profile, bool, error) {
	profile, err := s.GetProfile(ctx, user.ID)
	if err == nil {
		return profile, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	first, last := splitFullName(user.FullName)
	for attempt := 0; attempt < usernameAttempts; attempt++ {
		profile = &models.Profile{
			UserID:    user.ID,
			FirstName: first,
			LastName:  last,
			Username:  s.newUsername(),
		}
		err = s.db.WithContext(ctx).Create(profile).Error
		if err == nil {
			s.logger.Info("Profile created on first login",
				zap.String("user_id", user.ID.String()),
				zap.String("username", profile.Username),
			)
			return profile, true, nil
		}
		if !isUniqueViolation(err) {
			return nil, false, fmt.Errorf("failed to create profile: %w", err)
		}
		// a concurrent login may have created it
		if existing, getErr := s.GetProfile(ctx, user.ID); getErr == nil {
			return existing, false, nil
		}
	}
	return nil, false, fmt.Errorf("could not allocate a unique username: %w", ErrConflict)
}

// SetupProfile creates or replaces the caller's own profile
func (s *ProfileService) SetupProfile(ctx context.Context, userID uuid.UUID, req *types.ProfileRequest) (*models.Profile, error) {
	fields, err := profileFields(req)
	if err != nil {
		return nil, err
	}
	if err := s.checkUsernameFree(ctx, fields.Username, userID); err != nil {
		return nil, err
	}

	existing, err := s.GetProfile(ctx, userID)
	switch {
	case errors.Is(err, ErrNotFound):
		fields.UserID = userID
		if err := s.db.WithContext(ctx).Create(fields).Error; err != nil {
			return nil, translateProfileError(err)
		}
		return fields, nil
	case err != nil:
		return nil, err
	}

	return s.applyUpdate(ctx, existing, fields)
}

// UpdateProfile edits targetID's profile; only its owner may do so
func (s *ProfileService) UpdateProfile(ctx context.Context, callerID, targetID uuid.UUID, req *types.ProfileRequest) (*models.Profile, error) {
	if callerID != targetID {
		return nil, ErrForbidden
	}
	fields, err := profileFields(req)
	if err != nil {
		return nil, err
	}

	existing, err := s.GetProfile(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if err := s.checkUsernameFree(ctx, fields.Username, targetID); err != nil {
		return nil, err
	}
	return s.applyUpdate(ctx, existing, fields)
}

func (s *ProfileService) applyUpdate(ctx context.Context, existing, fields *models.Profile) (*models.Profile, error) {
	updates := map[string]interface{}{
		"first_name": fields.FirstName,
		"last_name":  fields.LastName,
		"username":   fields.Username,
		"dob":        fields.DOB,
		"location":   fields.Location,
	}
	if err := s.db.WithContext(ctx).Model(existing).Updates(updates).Error; err != nil {
		return nil, translateProfileError(err)
	}
	return s.GetProfile(ctx, existing.UserID)
}

func (s *ProfileService) checkUsernameFree(ctx context.Context, username string, owner uuid.UUID) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Profile{}).
		Where("username = ? AND user_id <> ?", username, owner).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("failed to check username: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("username %s: %w", username, ErrConflict)
	}
	return nil
}

// loadAuthors returns author summaries keyed by user id.
// Users without a profile are absent from the map.
func loadAuthors(ctx context.Context, db *gorm.DB, userIDs []uuid.UUID) (map[uuid.UUID]*models.AuthorSummary, error) {
	authors := make(map[uuid.UUID]*models.AuthorSummary, len(userIDs))
	if len(userIDs) == 0 {
		return authors, nil
	}

	seen := make(map[uuid.UUID]struct{}, len(userIDs))
	ids := make([]uuid.UUID, 0, len(userIDs))
	for _, id := range userIDs {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	var profiles []models.Profile
	if err := db.WithContext(ctx).Where("user_id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("failed to load authors: %w", err)
	}
	for i := range profiles {
		authors[profiles[i].UserID] = profiles[i].Summary()
	}
	return authors, nil
}

func profileFields(req *types.ProfileRequest) (*models.Profile, error) {
	p := &models.Profile{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Username:  strings.TrimSpace(req.Username),
	}
	switch {
	case p.FirstName == "":
		return nil, invalid("first_name", "is required")
	case p.LastName == "":
		return nil, invalid("last_name", "is required")
	case p.Username == "":
		return nil, invalid("username", "is required")
	}

	if req.DOB != nil && strings.TrimSpace(*req.DOB) != "" {
		dob, err := models.ParseDate(*req.DOB)
		if err != nil {
			return nil, invalid("dob", "must be formatted as YYYY-MM-DD")
		}
		p.DOB = &dob
	}
	if req.Location != nil {
		if loc := strings.TrimSpace(*req.Location); loc != "" {
			p.Location = &loc
		}
	}
	return p, nil
}

func splitFullName(fullName string) (string, string) {
	first, last, _ := strings.Cut(strings.TrimSpace(fullName), " ")
	return first, strings.TrimSpace(last)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

func translateProfileError(err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("username: %w", ErrConflict)
	}
	return fmt.Errorf("failed to save profile: %w", err)
}
