package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/resepia/backend/internal/middleware"
	"github.com/resepia/backend/internal/mocks"
	"github.com/resepia/backend/internal/models"
	"github.com/resepia/backend/internal/realtime"
	"github.com/resepia/backend/internal/service"
	"github.com/resepia/backend/internal/testhelpers"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testServer wires the real services against an in-memory database
type testServer struct {
	router    *gin.Engine
	db        *gorm.DB
	auth      *service.AuthService
	store     *mocks.MemoryObjectStore
	completer *mocks.MockCompleter
	hub       *realtime.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zap.NewNop()
	db := testhelpers.NewSQLiteDB(t)

	store := mocks.NewMemoryObjectStore()
	images := service.NewImageService(store, 1<<20, nil, log)
	hub := realtime.NewHub(16, nil, log)
	completer := &mocks.MockCompleter{}

	auth := service.NewAuthService(db, service.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour}, log)
	deps := &Dependencies{
		DB:        db,
		Auth:      auth,
		Profiles:  service.NewProfileService(db, log),
		Recipes:   service.NewRecipeService(db, images, nil, log),
		Comments:  service.NewCommentService(db, hub, nil, log),
		Ratings:   service.NewRatingService(db, nil, log),
		Accounts:  service.NewAccountService(db, images, nil, log),
		Assistant: service.NewAssistantService(db, service.NewMemoryChatStore(), completer, service.AssistantConfig{Model: "test-model", MaxTokens: 500, Temperature: 0.7}, nil, log),
		Streamer:  realtime.NewStreamer(hub, nil, time.Second, log),

		RecipeCreationLimiter:     middleware.NewRecipeCreationRateLimiter(nil, log),
		RecipeModificationLimiter: middleware.NewRecipeModificationRateLimiter(nil, log),
		CommentLimiter:            middleware.NewCommentRateLimiter(nil, log),
		AssistantLimiter:          middleware.NewAssistantRateLimiter(nil, log),

		ImageMaxBytes: 1 << 20,
		Logger:        log,
	}

	router := gin.New()
	router.Use(middleware.Recovery(log))
	RegisterRoutes(router, deps)

	return &testServer{
		router:    router,
		db:        db,
		auth:      auth,
		store:     store,
		completer: completer,
		hub:       hub,
	}
}

// user creates an account with a profile and returns it with a token
func (s *testServer) user(t *testing.T, email, username string) (*models.User, string) {
	t.Helper()
	user := testhelpers.CreateUser(t, s.db, email)
	testhelpers.CreateProfile(t, s.db, user.ID, username)
	token, err := s.auth.GenerateToken(user)
	require.NoError(t, err)
	return user, token
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// multipart sends fields plus an optional image file
func (s *testServer) multipart(t *testing.T, method, path, token string, fields map[string]string, filename string, image []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if image != nil {
		part, err := mw.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func assertStatus(t *testing.T, want int, w *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, want, w.Code, w.Body.String())
}

