package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitConfig defines configuration for rate limiting
type RateLimitConfig struct {
	// Window is the time window for rate limiting
	Window time.Duration
	// Limit is the maximum number of requests allowed in the window
	Limit int
	// Key prefix for Redis keys
	KeyPrefix string
	// Action names what is limited in the 429 message
	Action string
}

// RateLimiter is a fixed-window limiter backed by Redis. Without a
// Redis client every request is allowed.
type RateLimiter struct {
	redis  *redis.Client
	config RateLimitConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewRateLimiter creates a new rate limiter instance
func NewRateLimiter(redisClient *redis.Client, config RateLimitConfig, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{
		redis:  redisClient,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// NewRecipeCreationRateLimiter allows 5 new recipes per user per hour
func NewRecipeCreationRateLimiter(redisClient *redis.Client, logger *zap.Logger) *RateLimiter {
	return NewRateLimiter(redisClient, RateLimitConfig{
		Window:    time.Hour,
		Limit:     5,
		KeyPrefix: "rate_limit:recipe_creation",
		Action:    "recipe creations",
	}, logger)
}

// NewRecipeModificationRateLimiter allows 10 edits per recipe per hour
func NewRecipeModificationRateLimiter(redisClient *redis.Client, logger *zap.Logger) *RateLimiter {
	return NewRateLimiter(redisClient, RateLimitConfig{
		Window:    time.Hour,
		Limit:     10,
		KeyPrefix: "rate_limit:recipe_modification",
		Action:    "modifications per recipe",
	}, logger)
}

// NewCommentRateLimiter allows 30 comments per user per minute
func NewCommentRateLimiter(redisClient *redis.Client, logger *zap.Logger) *RateLimiter {
	return NewRateLimiter(redisClient, RateLimitConfig{
		Window:    time.Minute,
		Limit:     30,
		KeyPrefix: "rate_limit:comment",
		Action:    "comments",
	}, logger)
}

// NewAssistantRateLimiter allows 20 assistant messages per user per minute
func NewAssistantRateLimiter(redisClient *redis.Client, logger *zap.Logger) *RateLimiter {
	return NewRateLimiter(redisClient, RateLimitConfig{
		Window:    time.Minute,
		Limit:     20,
		KeyPrefix: "rate_limit:assistant",
		Action:    "assistant messages",
	}, logger)
}

// Config returns the limiter settings
func (rl *RateLimiter) Config() RateLimitConfig {
	return rl.config
}

// RateLimitMiddleware limits requests per authenticated user
func (rl *RateLimiter) RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserIDFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
			return
		}
		rl.enforce(c, userID.String())
	}
}

// PerRecipeRateLimitMiddleware limits requests per user and recipe
func (rl *RateLimiter) PerRecipeRateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserIDFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
			return
		}
		recipeID := c.Param("id")
		if recipeID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "recipe ID is required"})
			return
		}
		rl.enforce(c, fmt.Sprintf("%s:%s", userID, recipeID))
	}
}

func (rl *RateLimiter) enforce(c *gin.Context, subject string) {
	if rl.redis == nil {
		c.Next()
		return
	}

	allowed, remaining, resetTime, err := rl.IsAllowed(c.Request.Context(), subject)
	if err != nil {
		rl.logger.Warn("Rate limit check failed",
			zap.String("prefix", rl.config.KeyPrefix),
			zap.Error(err),
		)
		c.Header("X-RateLimit-Error", "rate limit check failed")
		c.Next()
		return
	}

	c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

	if !allowed {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":                "rate limit exceeded",
			"message":              fmt.Sprintf("You have exceeded the rate limit of %d %s per %v", rl.config.Limit, rl.config.Action, rl.config.Window),
			"rate_limit_remaining": remaining,
			"rate_limit_reset":     resetTime.Unix(),
			"retry_after":          int(time.Until(resetTime).Seconds()),
		})
		return
	}

	c.Next()
}

// IsAllowed counts a request from subject and reports whether it fits
// in the current window.
// Returns: allowed, remaining requests, reset time, error
func (rl *RateLimiter) IsAllowed(ctx context.Context, subject string) (bool, int, time.Time, error) {
	key, windowStart := rl.key(subject)

	pipe := rl.redis.Pipeline()
	incrCmd := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, rl.config.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, time.Time{}, err
	}

	count := int(incrCmd.Val())
	remaining := rl.config.Limit - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= rl.config.Limit, remaining, windowStart.Add(rl.config.Window), nil
}

// GetRemainingRequests returns the quota left for subject without using it
func (rl *RateLimiter) GetRemainingRequests(ctx context.Context, subject string) (int, time.Time, error) {
	key, windowStart := rl.key(subject)
	resetTime := windowStart.Add(rl.config.Window)
	if rl.redis == nil {
		return rl.config.Limit, resetTime, nil
	}

	count, err := rl.redis.Get(ctx, key).Int()
	if errors.Is(err, redis.Nil) {
		return rl.config.Limit, resetTime, nil
	}
	if err != nil {
		return 0, time.Time{}, err
	}

	remaining := rl.config.Limit - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, resetTime, nil
}

func (rl *RateLimiter) key(subject string) (string, time.Time) {
	windowStart := rl.now().Truncate(rl.config.Window)
	return fmt.Sprintf("%s:%s:%d", rl.config.KeyPrefix, subject, windowStart.Unix()), windowStart
}
