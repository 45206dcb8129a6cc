package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/resepia/backend/internal/api"
	"github.com/resepia/backend/internal/metrics"
	"github.com/resepia/backend/internal/middleware"
	"github.com/resepia/backend/internal/mocks"
	"github.com/resepia/backend/internal/realtime"
	"github.com/resepia/backend/internal/router"
	"github.com/resepia/backend/internal/service"
	"github.com/resepia/backend/internal/testhelpers"
)

type client struct {
	t     *testing.T
	base  string
	token string
}

func (c *client) call(method, path string, body interface{}) (int, map[string]interface{}) {
	c.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.base+path, reader)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

// TestRecipeLifecycle drives the API against postgres with pgvector and Redis
func TestRecipeLifecycle(t *testing.T) {
	db := testhelpers.SetupTestDatabase(t)
	rdb := testhelpers.SetupTestRedis(t)

	gin.SetMode(gin.TestMode)
	log := zap.NewNop()
	collector := metrics.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := realtime.NewHub(16, collector, log)
	bridge := realtime.NewRedisBridge(rdb, hub, log)
	go bridge.Run(ctx)

	ready := hub.Subscribe("ready")
	require.Eventually(t, func() bool {
		_ = bridge.Publish(ctx, "ready", []byte("ping"))
		select {
		case <-ready.C:
			return true
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 10*time.Second, 100*time.Millisecond, "redis bridge never became ready")
	ready.Close()

	images := service.NewImageService(mocks.NewMemoryObjectStore(), 1<<20, collector, log)
	auth := service.NewAuthService(db, service.AuthConfig{
		JWTSecret: "integration-secret",
		TokenTTL:  time.Hour,
		Redis:     rdb,
		Metrics:   collector,
	}, log)

	handler := router.SetupRouter(&api.Dependencies{
		DB:        db,
		Redis:     rdb,
		Auth:      auth,
		Profiles:  service.NewProfileService(db, log),
		Recipes:   service.NewRecipeService(db, images, collector, log),
		Comments:  service.NewCommentService(db, bridge, collector, log),
		Ratings:   service.NewRatingService(db, collector, log),
		Accounts:  service.NewAccountService(db, images, nil, log),
		Assistant: service.NewAssistantService(db, service.NewRedisChatStore(rdb), nil, service.AssistantConfig{}, collector, log),
		Streamer:  realtime.NewStreamer(hub, nil, time.Second, log),

		RecipeCreationLimiter:     middleware.NewRecipeCreationRateLimiter(rdb, log),
		RecipeModificationLimiter: middleware.NewRecipeModificationRateLimiter(rdb, log),
		CommentLimiter:            middleware.NewCommentRateLimiter(rdb, log),
		AssistantLimiter:          middleware.NewAssistantRateLimiter(rdb, log),
		Logger:                    log,
	}, router.Options{Metrics: collector, Logger: log})

	srv := httptest.NewServer(handler)
	defer srv.Close()

	c := &client{t: t, base: srv.URL}

	status, body := c.call(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "up", body["redis"])

	status, _ = c.call(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email": "siti@example.com", "password": "secret123", "full_name": "Siti Aminah",
	})
	require.Equal(t, http.StatusCreated, status)

	status, body = c.call(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email": "siti@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["profile_created"])
	c.token = body["token"].(string)
	userID := body["user_id"].(string)

	status, body = c.call(http.MethodPost, "/api/v1/recipes", map[string]interface{}{
		"name":        "Rendang",
		"description": "Beef in coconut milk",
		"ingredients": []string{"beef", "coconut milk"},
		"steps":       "Simmer until dry",
	})
	require.Equal(t, http.StatusCreated, status)
	rendangID := body["recipe"].(map[string]interface{})["id"].(string)

	status, _ = c.call(http.MethodPost, "/api/v1/recipes", map[string]interface{}{
		"name":        "Es Cendol",
		"description": "Pandan jelly drink",
		"ingredients": "cendol\npalm sugar",
		"steps":       "Layer and pour",
	})
	require.Equal(t, http.StatusCreated, status)

	t.Run("vector search ranks the closest recipe first", func(t *testing.T) {
		q := url.QueryEscape("Rendang Beef in coconut milk beef coconut milk")
		status, body := c.call(http.MethodGet, "/api/v1/recipes?q="+q, nil)
		require.Equal(t, http.StatusOK, status)
		found := body["recipes"].([]interface{})
		require.Len(t, found, 2)
		assert.Equal(t, rendangID, found[0].(map[string]interface{})["id"])
	})

	t.Run("rate limit status reflects redis counters", func(t *testing.T) {
		status, body := c.call(http.MethodGet, "/api/v1/rate-limits/recipe-creation", nil)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, float64(3), body["remaining"])
	})

	t.Run("comments reach websocket viewers through redis", func(t *testing.T) {
		wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/recipes/" + rendangID + "/comments/stream"
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.NoError(t, err)
		defer conn.Close()

		topic := realtime.CommentTopic(rendangID)
		require.Eventually(t, func() bool { return hub.Count(topic) == 1 }, time.Second, 10*time.Millisecond)

		status, _ := c.call(http.MethodPost, "/api/v1/recipes/"+rendangID+"/comments", map[string]string{"content": "Mantap!"})
		require.Equal(t, http.StatusCreated, status)

		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Contains(t, string(data), "Mantap!")
	})

	t.Run("ratings are unique per user and recipe", func(t *testing.T) {
		status, _ := c.call(http.MethodPost, "/api/v1/recipes/"+rendangID+"/rating", map[string]interface{}{
			"rating": 5, "review": "Just like my grandmother's",
		})
		require.Equal(t, http.StatusCreated, status)
		status, _ = c.call(http.MethodPost, "/api/v1/recipes/"+rendangID+"/rating", map[string]interface{}{
			"rating": 4, "review": "Rating it one more time",
		})
		assert.Equal(t, http.StatusConflict, status)
	})

	t.Run("assistant without a key is unavailable", func(t *testing.T) {
		status, _ := c.call(http.MethodPost, "/api/v1/assistant/chat", map[string]string{"message": "halo"})
		assert.Equal(t, http.StatusServiceUnavailable, status)
	})

	t.Run("logout revokes the token", func(t *testing.T) {
		other := &client{t: t, base: srv.URL}
		_, body := other.call(http.MethodPost, "/api/v1/auth/login", map[string]string{
			"email": "siti@example.com", "password": "secret123",
		})
		other.token = body["token"].(string)

		status, _ := other.call(http.MethodPost, "/api/v1/auth/logout", nil)
		require.Equal(t, http.StatusOK, status)
		status, _ = other.call(http.MethodGet, "/api/v1/auth/session", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	status, body = c.call(http.MethodPost, "/api/deleteUser", map[string]string{"user_id": userID})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])

	status, _ = c.call(http.MethodGet, "/api/v1/recipes/"+rendangID, nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = c.call(http.MethodGet, "/api/v1/auth/session", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}
