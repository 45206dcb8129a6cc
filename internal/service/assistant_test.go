package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/resepia/backend/internal/mocks"
	"github.com/resepia/backend/internal/service"
	"github.com/resepia/backend/internal/testhelpers"
	"github.com/resepia/backend/internal/types"
)

func newAssistant(t *testing.T, completer service.Completer) (*service.AssistantService, *service.MemoryChatStore, *gorm.DB) {
	t.Helper()
	db := testhelpers.NewSQLiteDB(t)
	store := service.NewMemoryChatStore()
	svc := service.NewAssistantService(db, store, completer, service.AssistantConfig{
		Model:       "gpt-4-turbo-preview",
		MaxTokens:   500,
		Temperature: 0.7,
	}, nil, zap.NewNop())
	return svc, store, db
}

func TestAssistantService_Chat(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("first message opens a session with the greeting", func(t *testing.T) {
		completer := &mocks.MockCompleter{}
		completer.On("Complete", mock.Anything, mock.MatchedBy(func(req *service.CompletionRequest) bool {
			// system prompt plus the new message; the greeting is never sent
			return req.Model == "gpt-4-turbo-preview" &&
				req.MaxTokens == 500 &&
				len(req.Messages) == 2 &&
				req.Messages[0].Role == "system" &&
				req.Messages[1].Role == "user" &&
				req.Messages[1].Content == "How long do I boil eggs?"
		})).Return("About 7 minutes.", nil).Once()

		svc, store, _ := newAssistant(t, completer)
		result, err := svc.Chat(ctx, userID, &types.ChatRequest{Message: "  How long do I boil eggs? "})
		require.NoError(t, err)
		assert.Equal(t, "About 7 minutes.", result.Reply)
		require.Len(t, result.Messages, 3)
		assert.Equal(t, service.AssistantGreeting, result.Messages[0].Content)
		assert.Equal(t, "user", result.Messages[1].Role)
		assert.Equal(t, "assistant", result.Messages[2].Role)

		saved, err := store.Load(ctx, result.SessionID)
		require.NoError(t, err)
		assert.Len(t, saved.Messages, 3)
		completer.AssertExpectations(t)
	})

	t.Run("history is sent on follow-up turns", func(t *testing.T) {
		completer := &mocks.MockCompleter{}
		completer.On("Complete", mock.Anything, mock.Anything).Return("First answer", nil).Once()
		completer.On("Complete", mock.Anything, mock.MatchedBy(func(req *service.CompletionRequest) bool {
			return len(req.Messages) == 4 &&
				req.Messages[1].Content == "first question" &&
				req.Messages[2].Content == "First answer" &&
				req.Messages[3].Content == "second question"
		})).Return("Second answer", nil).Once()

		svc, _, _ := newAssistant(t, completer)
		first, err := svc.Chat(ctx, userID, &types.ChatRequest{Message: "first question"})
		require.NoError(t, err)

		second, err := svc.Chat(ctx, userID, &types.ChatRequest{Message: "second question", SessionID: first.SessionID})
		require.NoError(t, err)
		assert.Equal(t, first.SessionID, second.SessionID)
		assert.Len(t, second.Messages, 5)
		completer.AssertExpectations(t)
	})

	t.Run("recipe context is added as a system message", func(t *testing.T) {
		completer := &mocks.MockCompleter{}
		svc, _, db := newAssistant(t, completer)
		owner := testhelpers.CreateUser(t, db, "owner@example.com")
		recipe := testhelpers.CreateRecipe(t, db, owner.ID, "Rendang")

		completer.On("Complete", mock.Anything, mock.MatchedBy(func(req *service.CompletionRequest) bool {
			return len(req.Messages) == 3 &&
				req.Messages[1].Role == "system" &&
				strings.Contains(req.Messages[1].Content, "Rendang") &&
				strings.Contains(req.Messages[1].Content, "2 cups rice")
		})).Return("Use coconut milk.", nil).Once()

		result, err := svc.Chat(ctx, userID, &types.ChatRequest{Message: "Any tips?", RecipeID: &recipe.ID})
		require.NoError(t, err)
		assert.Equal(t, "Use coconut milk.", result.Reply)
		completer.AssertExpectations(t)
	})

	t.Run("upstream failure leaves the session unchanged", func(t *testing.T) {
		completer := &mocks.MockCompleter{}
		completer.On("Complete", mock.Anything, mock.Anything).Return("Hello", nil).Once()
		completer.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("status 500")).Once()

		svc, store, _ := newAssistant(t, completer)
		first, err := svc.Chat(ctx, userID, &types.ChatRequest{Message: "hi"})
		require.NoError(t, err)

		_, err = svc.Chat(ctx, userID, &types.ChatRequest{Message: "again", SessionID: first.SessionID})
		assert.ErrorIs(t, err, service.ErrUpstream)

		saved, err := store.Load(ctx, first.SessionID)
		require.NoError(t, err)
		assert.Len(t, saved.Messages, 3)
	})

	t.Run("empty message is rejected", func(t *testing.T) {
		svc, _, _ := newAssistant(t, &mocks.MockCompleter{})
		_, err := svc.Chat(ctx, userID, &types.ChatRequest{Message: "   "})
		var verr *service.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "message", verr.Field)
	})

	t.Run("sessions are private", func(t *testing.T) {
		completer := &mocks.MockCompleter{}
		completer.On("Complete", mock.Anything, mock.Anything).Return("Hello", nil)

		svc, _, _ := newAssistant(t, completer)
		result, err := svc.Chat(ctx, userID, &types.ChatRequest{Message: "hi"})
		require.NoError(t, err)

		stranger := uuid.New()
		_, err = svc.GetSession(ctx, stranger, result.SessionID)
		assert.ErrorIs(t, err, service.ErrNotFound)
		_, err = svc.Chat(ctx, stranger, &types.ChatRequest{Message: "hijack", SessionID: result.SessionID})
		assert.ErrorIs(t, err, service.ErrNotFound)
		assert.ErrorIs(t, svc.DeleteSession(ctx, stranger, result.SessionID), service.ErrNotFound)

		require.NoError(t, svc.DeleteSession(ctx, userID, result.SessionID))
		_, err = svc.GetSession(ctx, userID, result.SessionID)
		assert.ErrorIs(t, err, service.ErrNotFound)
	})
}

func TestAssistantService_StaleSessionIDs(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("unknown id starts a fresh session", func(t *testing.T) {
		completer := &mocks.MockCompleter{}
		completer.On("Complete", mock.Anything, mock.MatchedBy(func(req *service.CompletionRequest) bool {
			return len(req.Messages) == 2
		})).Return("Hello", nil).Once()

		svc, store, _ := newAssistant(t, completer)
		result, err := svc.Chat(ctx, userID, &types.ChatRequest{Message: "hi", SessionID: "no-such-session"})
		require.NoError(t, err)
		assert.NotEqual(t, "no-such-session", result.SessionID)
		require.Len(t, result.Messages, 3)
		assert.Equal(t, service.AssistantGreeting, result.Messages[0].Content)

		_, err = store.Load(ctx, "no-such-session")
		assert.ErrorIs(t, err, service.ErrNotFound)
		completer.AssertExpectations(t)
	})

	t.Run("expired id starts a fresh session", func(t *testing.T) {
		completer := &mocks.MockCompleter{}
		completer.On("Complete", mock.Anything, mock.Anything).Return("Hello", nil).Twice()

		svc, store, _ := newAssistant(t, completer)
		first, err := svc.Chat(ctx, userID, &types.ChatRequest{Message: "hi"})
		require.NoError(t, err)

		store.SetClock(func() time.Time { return time.Now().Add(25 * time.Hour) })

		second, err := svc.Chat(ctx, userID, &types.ChatRequest{Message: "still there?", SessionID: first.SessionID})
		require.NoError(t, err)
		assert.NotEqual(t, first.SessionID, second.SessionID)
		assert.Len(t, second.Messages, 3)
		completer.AssertExpectations(t)
	})
}

func TestMemoryChatStore_Expiry(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	now := start

	store := service.NewMemoryChatStore()
	store.SetClock(func() time.Time { return now })

	session := &service.ChatSession{ID: "s1", UserID: uuid.New(), CreatedAt: start, UpdatedAt: start}
	require.NoError(t, store.Save(ctx, session))

	now = start.Add(23 * time.Hour)
	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, session.UserID, loaded.UserID)

	now = start.Add(24 * time.Hour)
	_, err = store.Load(ctx, "s1")
	assert.ErrorIs(t, err, service.ErrNotFound)

	// saving again restarts the window
	require.NoError(t, store.Save(ctx, session))
	now = now.Add(time.Hour)
	_, err = store.Load(ctx, "s1")
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.Load(ctx, "s1")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestOpenAIClient_Complete(t *testing.T) {
	var got service.CompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" Sure! "}}]}`))
	}))
	defer server.Close()

	client := service.NewOpenAIClient("test-key", server.URL, 0)
	reply, err := client.Complete(context.Background(), &service.CompletionRequest{
		Model:       "gpt-4-turbo-preview",
		Messages:    []service.CompletionMessage{{Role: "user", Content: "hi"}},
		MaxTokens:   500,
		Temperature: 0.7,
	})
	require.NoError(t, err)
	assert.Equal(t, "Sure!", reply)
	assert.Equal(t, 500, got.MaxTokens)

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer failing.Close()

	_, err = service.NewOpenAIClient("test-key", failing.URL, 0).Complete(context.Background(), &service.CompletionRequest{})
	assert.ErrorContains(t, err, "429")
}
