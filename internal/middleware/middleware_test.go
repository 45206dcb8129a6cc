package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/resepia/backend/internal/mocks"
	"github.com/resepia/backend/internal/testhelpers"
	"github.com/resepia/backend/internal/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(r http.Handler, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + token}}
}

func TestAuthMiddleware(t *testing.T) {
	userID := uuid.New()
	validator := &mocks.MockAuthService{}
	validator.On("ValidateToken", mock.Anything, "good").Return(&types.TokenClaims{UserID: userID, Role: "user"}, nil)
	validator.On("ValidateToken", mock.Anything, "bad").Return(nil, errors.New("invalid token"))

	r := gin.New()
	r.GET("/me", AuthMiddleware(validator), func(c *gin.Context) {
		id, ok := UserIDFromContext(c)
		require.True(t, ok)
		claims, ok := ClaimsFromContext(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"user_id": id, "role": claims.Role})
	})

	w := perform(r, http.MethodGet, "/me", bearer("good"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), userID.String())

	w = perform(r, http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Authorization header is required"}`, w.Body.String())

	w = perform(r, http.MethodGet, "/me", http.Header{"Authorization": []string{"Token abc"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Invalid authorization header format"}`, w.Body.String())

	w = perform(r, http.MethodGet, "/me", bearer("bad"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Invalid token"}`, w.Body.String())
}

func TestOptionalAuth(t *testing.T) {
	userID := uuid.New()
	validator := &mocks.MockAuthService{}
	validator.On("ValidateToken", mock.Anything, "good").Return(&types.TokenClaims{UserID: userID}, nil)
	validator.On("ValidateToken", mock.Anything, "bad").Return(nil, errors.New("invalid token"))

	r := gin.New()
	r.GET("/recipes", OptionalAuth(validator), func(c *gin.Context) {
		id, _ := UserIDFromContext(c)
		c.String(http.StatusOK, id.String())
	})

	assert.Equal(t, userID.String(), perform(r, http.MethodGet, "/recipes", bearer("good")).Body.String())
	assert.Equal(t, uuid.Nil.String(), perform(r, http.MethodGet, "/recipes", bearer("bad")).Body.String())
	assert.Equal(t, uuid.Nil.String(), perform(r, http.MethodGet, "/recipes", nil).Body.String())
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(zap.NewNop()))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := perform(r, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, w.Body.String())
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:3000"}))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := perform(r, http.MethodGet, "/ping", http.Header{"Origin": []string{"http://localhost:3000"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	w = perform(r, http.MethodGet, "/ping", http.Header{"Origin": []string{"http://evil.example"}})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRateLimiterWithoutRedis(t *testing.T) {
	limiter := NewRecipeCreationRateLimiter(nil, zap.NewNop())
	userID := uuid.New()

	r := gin.New()
	r.POST("/recipes", func(c *gin.Context) {
		c.Set(UserIDKey, userID)
		c.Next()
	}, limiter.RateLimitMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	for i := 0; i < 10; i++ {
		assert.Equal(t, http.StatusCreated, perform(r, http.MethodPost, "/recipes", nil).Code)
	}

	remaining, _, err := limiter.GetRemainingRequests(context.Background(), userID.String())
	require.NoError(t, err)
	assert.Equal(t, 5, remaining)
}

func TestRateLimiterWithRedis(t *testing.T) {
	client := testhelpers.SetupTestRedis(t)
	limiter := NewRateLimiter(client, RateLimitConfig{
		Window:    time.Hour,
		Limit:     2,
		KeyPrefix: "rate_limit:test",
		Action:    "requests",
	}, zap.NewNop())
	userID := uuid.New()
	recipeID := uuid.New()

	r := gin.New()
	r.PUT("/recipes/:id", func(c *gin.Context) {
		id := userID
		if other := c.GetHeader("X-User-ID"); other != "" {
			id = uuid.MustParse(other)
		}
		c.Set(UserIDKey, id)
		c.Next()
	}, limiter.PerRecipeRateLimitMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	path := "/recipes/" + recipeID.String()
	w := perform(r, http.MethodPut, path, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, http.StatusOK, perform(r, http.MethodPut, path, nil).Code)

	w = perform(r, http.MethodPut, path, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate limit exceeded")

	// another recipe has its own window
	assert.Equal(t, http.StatusOK, perform(r, http.MethodPut, "/recipes/"+uuid.NewString(), nil).Code)

	// another user editing the same recipe has its own window too
	otherUser := http.Header{"X-User-Id": []string{uuid.NewString()}}
	assert.Equal(t, http.StatusOK, perform(r, http.MethodPut, path, otherUser).Code)

	remaining, _, err := limiter.GetRemainingRequests(context.Background(), userID.String()+":"+recipeID.String())
	require.NoError(t, err)
	assert.Zero(t, remaining)
}
