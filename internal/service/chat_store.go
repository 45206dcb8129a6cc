package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	chatSessionKeyBase = "chat:session:"
	chatSessionTTL     = 24 * time.Hour
)

// ChatMessage is one entry of an assistant conversation
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatSession is a conversation between one user and the assistant
type ChatSession struct {
	ID        string        `json:"id"`
	UserID    uuid.UUID     `json:"user_id"`
	RecipeID  *uuid.UUID    `json:"recipe_id,omitempty"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// ChatStore persists chat sessions. Load returns ErrNotFound for
// unknown or expired sessions.
type ChatStore interface {
	Load(ctx context.Context, id string) (*ChatSession, error)
	Save(ctx context.Context, session *ChatSession) error
	Delete(ctx context.Context, id string) error
}

// RedisChatStore keeps sessions as JSON under chat:session:<id>
type RedisChatStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ ChatStore = (*RedisChatStore)(nil)

func NewRedisChatStore(client *redis.Client) *RedisChatStore {
	return &RedisChatStore{client: client, ttl: chatSessionTTL}
}

func (s *RedisChatStore) Load(ctx context.Context, id string) (*ChatSession, error) {
	data, err := s.client.Get(ctx, chatSessionKeyBase+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("chat session %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load chat session: %w", err)
	}

	var session ChatSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode chat session: %w", err)
	}
	return &session, nil
}

func (s *RedisChatStore) Save(ctx context.Context, session *ChatSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode chat session: %w", err)
	}
	if err := s.client.Set(ctx, chatSessionKeyBase+session.ID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save chat session: %w", err)
	}
	return nil
}

func (s *RedisChatStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, chatSessionKeyBase+id).Err(); err != nil {
		return fmt.Errorf("failed to delete chat session: %w", err)
	}
	return nil
}

// MemoryChatStore is used when Redis is not configured. Sessions expire
// after the same TTL as in Redis.
type MemoryChatStore struct {
	mu       sync.Mutex
	sessions map[string]memorySession
	ttl      time.Duration
	now      func() time.Time
}

type memorySession struct {
	data      []byte
	expiresAt time.Time
}

var _ ChatStore = (*MemoryChatStore)(nil)

func NewMemoryChatStore() *MemoryChatStore {
	return &MemoryChatStore{
		sessions: make(map[string]memorySession),
		ttl:      chatSessionTTL,
		now:      time.Now,
	}
}

func (s *MemoryChatStore) Load(_ context.Context, id string) (*ChatSession, error) {
	s.mu.Lock()
	entry, ok := s.sessions[id]
	if ok && !s.now().Before(entry.expiresAt) {
		delete(s.sessions, id)
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("chat session %s: %w", id, ErrNotFound)
	}

	// sessions are stored encoded so callers never share slices
	var session ChatSession
	if err := json.Unmarshal(entry.data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode chat session: %w", err)
	}
	return &session, nil
}

func (s *MemoryChatStore) Save(_ context.Context, session *ChatSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode chat session: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = memorySession{data: data, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryChatStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}
