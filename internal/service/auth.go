package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/resepia/backend/internal/metrics"
	"github.com/resepia/backend/internal/models"
	"github.com/resepia/backend/internal/types"
)

const (
	tokenIssuer         = "resepia"
	revokedTokenKeyBase = "auth:revoked:"
)

type AuthService struct {
	db        *gorm.DB
	redis     *redis.Client
	jwtSecret []byte
	tokenTTL  time.Duration
	mailer    Mailer
	metrics   *metrics.Collector
	logger    *zap.Logger
}

// AuthConfig groups the AuthService collaborators that may be absent
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
	Redis     *redis.Client
	Mailer    Mailer
	Metrics   *metrics.Collector
}

func NewAuthService(db *gorm.DB, cfg AuthConfig, log *zap.Logger) *AuthService {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{
		db:        db,
		redis:     cfg.Redis,
		jwtSecret: []byte(cfg.JWTSecret),
		tokenTTL:  ttl,
		mailer:    cfg.Mailer,
		metrics:   cfg.Metrics,
		logger:    log,
	}
}

// Register creates an account. The profile is created on first login.
func (s *AuthService) Register(ctx context.Context, req *types.RegisterRequest) (*models.User, error) {
	email := normalizeEmail(req.Email)

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if count > 0 {
		return nil, fmt.Errorf("email %s: %w", email, ErrConflict)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hashedPassword),
		FullName:     strings.TrimSpace(req.FullName),
		Role:         models.RoleUser,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("email %s: %w", email, ErrConflict)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.metrics.UserRegistered()
	s.logger.Info("User registered", zap.String("user_id", user.ID.String()))

	if s.mailer != nil {
		go func(u models.User) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := s.mailer.SendWelcomeEmail(ctx, &u); err != nil {
				s.logger.Warn("Failed to send welcome email", zap.String("user_id", u.ID.String()), zap.Error(err))
			}
		}(*user)
	}

	return user, nil
}

// Login verifies credentials and returns the account
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &user, nil
}

// GetUserByID loads an account
func (s *AuthService) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

// GenerateToken issues a signed access token for user
func (s *AuthService) GenerateToken(user *models.User) (string, error) {
	now := time.Now()
	claims := &types.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID.String(),
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateToken parses a token and rejects revoked ones and those
// whose account has been deleted
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*types.TokenClaims, error) {
	claims := &types.TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid || claims.UserID == uuid.Nil {
		return nil, errors.New("invalid token claims")
	}

	if s.redis != nil && claims.ID != "" {
		revoked, err := s.redis.Exists(ctx, revokedTokenKeyBase+claims.ID).Result()
		if err != nil {
			// fail open when redis is unreachable
			s.logger.Warn("Token revocation check failed", zap.Error(err))
		} else if revoked > 0 {
			return nil, errors.New("token has been revoked")
		}
	}

	// tokens outlive their account unless checked here
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", claims.UserID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check token owner: %w", err)
	}
	if count == 0 {
		return nil, errors.New("token owner no longer exists")
	}

	return claims, nil
}

// RevokeToken blocks a token until it would have expired anyway
func (s *AuthService) RevokeToken(ctx context.Context, claims *types.TokenClaims) error {
	if s.redis == nil || claims == nil || claims.ID == "" {
		return nil
	}
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		return nil
	}
	if err := s.redis.Set(ctx, revokedTokenKeyBase+claims.ID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
