package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/resepia/backend/internal/metrics"
	"github.com/resepia/backend/internal/models"
	"github.com/resepia/backend/internal/types"
)

const (
	RoleUserMessage      = "user"
	RoleAssistantMessage = "assistant"
	roleSystemMessage    = "system"

	maxChatMessageLength = 2000

	assistantGreeting = "Hi! Saya adalah resepia. tanyakan apa saja terkait resep ini, saya akan menjawabnya!"
	assistantPrompt   = "Saya adalah asisten resep yang siap membantu. Saya dapat memberikan tips memasak, saran resep, dan menjawab pertanyaan seputar memasak dan persiapan makanan."
)

// AssistantConfig holds the upstream model settings
type AssistantConfig struct {
	Model       string
	MaxTokens   int
	Temperature float64
	// RequestsPerSecond throttles upstream calls across all users; zero disables it
	RequestsPerSecond float64
}

// ChatResult is the outcome of one chat turn
type ChatResult struct {
	SessionID string        `json:"session_id"`
	Reply     string        `json:"reply"`
	Messages  []ChatMessage `json:"messages"`
}

// AssistantService runs recipe-aware conversations with a chat model
type AssistantService struct {
	db        *gorm.DB
	store     ChatStore
	completer Completer
	limiter   *rate.Limiter
	cfg       AssistantConfig
	metrics   *metrics.Collector
	logger    *zap.Logger
	now       func() time.Time
}

func NewAssistantService(db *gorm.DB, store ChatStore, completer Completer, cfg AssistantConfig, m *metrics.Collector, log *zap.Logger) *AssistantService {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return &AssistantService{
		db:        db,
		store:     store,
		completer: completer,
		limiter:   limiter,
		cfg:       cfg,
		metrics:   m,
		logger:    log,
		now:       time.Now,
	}
}

// Chat sends message to the assistant and records the exchange.
// The session is left untouched when the upstream call fails.
func (s *AssistantService) Chat(ctx context.Context, userID uuid.UUID, req *types.ChatRequest) (*ChatResult, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, invalid("message", "is required")
	}
	if len([]rune(message)) > maxChatMessageLength {
		return nil, invalid("message", fmt.Sprintf("must be at most %d characters", maxChatMessageLength))
	}
	if s.completer == nil {
		return nil, fmt.Errorf("assistant: %w", ErrNotConfigured)
	}

	session, err := s.openSession(ctx, userID, req.SessionID)
	if err != nil {
		return nil, err
	}
	if req.RecipeID != nil {
		session.RecipeID = req.RecipeID
	}

	var recipe *models.Recipe
	if session.RecipeID != nil {
		if recipe, err = findRecipe(ctx, s.db, *session.RecipeID); err != nil {
			return nil, err
		}
	}

	upstream := s.buildMessages(session, recipe, message)

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("assistant throttled: %w", err)
	}

	start := s.now()
	reply, err := s.completer.Complete(ctx, &CompletionRequest{
		Model:       s.cfg.Model,
		Messages:    upstream,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	elapsed := time.Since(start)
	if err != nil {
		s.metrics.AssistantRequest("error", elapsed)
		s.logger.Error("Assistant request failed",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	s.metrics.AssistantRequest("ok", elapsed)

	now := s.now()
	session.Messages = append(session.Messages,
		ChatMessage{Role: RoleUserMessage, Content: message, CreatedAt: now},
		ChatMessage{Role: RoleAssistantMessage, Content: reply, CreatedAt: now},
	)
	session.UpdatedAt = now
	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}

	return &ChatResult{
		SessionID: session.ID,
		Reply:     reply,
		Messages:  session.Messages,
	}, nil
}

// GetSession returns a session owned by userID
func (s *AssistantService) GetSession(ctx context.Context, userID uuid.UUID, id string) (*ChatSession, error) {
	session, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, fmt.Errorf("chat session %s: %w", id, ErrNotFound)
	}
	return session, nil
}

// DeleteSession removes a session owned by userID
func (s *AssistantService) DeleteSession(ctx context.Context, userID uuid.UUID, id string) error {
	if _, err := s.GetSession(ctx, userID, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

// openSession loads the caller's session or starts a new one. Unknown
// or expired ids start a fresh session under a new id.
func (s *AssistantService) openSession(ctx context.Context, userID uuid.UUID, id string) (*ChatSession, error) {
	if id = strings.TrimSpace(id); id != "" {
		session, err := s.GetSession(ctx, userID, id)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		// someone else's session must not be revealed or reused
		if _, loadErr := s.store.Load(ctx, id); loadErr == nil {
			return nil, err
		}
	}

	now := s.now()
	return &ChatSession{
		ID:     uuid.NewString(),
		UserID: userID,
		Messages: []ChatMessage{
			{Role: RoleAssistantMessage, Content: assistantGreeting, CreatedAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// buildMessages assembles the upstream conversation. The greeting that
// opens every session is never sent.
func (s *AssistantService) buildMessages(session *ChatSession, recipe *models.Recipe, message string) []CompletionMessage {
	messages := []CompletionMessage{{Role: roleSystemMessage, Content: assistantPrompt}}
	if recipe != nil {
		messages = append(messages, CompletionMessage{Role: roleSystemMessage, Content: recipeContext(recipe)})
	}

	history := session.Messages
	if len(history) > 0 && history[0].Role == RoleAssistantMessage && history[0].Content == assistantGreeting {
		history = history[1:]
	}
	for _, m := range history {
		messages = append(messages, CompletionMessage{Role: m.Role, Content: m.Content})
	}
	return append(messages, CompletionMessage{Role: RoleUserMessage, Content: message})
}

func recipeContext(recipe *models.Recipe) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Resep yang sedang dibahas: %s\n", recipe.Name)
	fmt.Fprintf(&b, "Deskripsi: %s\n", recipe.Description)
	b.WriteString("Bahan:\n")
	for _, line := range recipe.Ingredients {
		fmt.Fprintf(&b, "- %s\n", line)
	}
	b.WriteString("Langkah:\n")
	for i, line := range recipe.Steps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, line)
	}
	return strings.TrimSpace(b.String())
}
