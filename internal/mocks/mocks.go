package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/resepia/backend/internal/models"
	"github.com/resepia/backend/internal/service"
)

// MockMailer is a mock implementation of service.Mailer
type MockMailer struct {
	mock.Mock
}

var _ service.Mailer = (*MockMailer)(nil)

func (m *MockMailer) SendWelcomeEmail(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockMailer) SendAccountDeletedEmail(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// MockCompleter is a mock implementation of service.Completer
type MockCompleter struct {
	mock.Mock
}

var _ service.Completer = (*MockCompleter)(nil)

func (m *MockCompleter) Complete(ctx context.Context, req *service.CompletionRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// MemoryObjectStore is an in-memory service.ObjectStore
type MemoryObjectStore struct {
	mu      sync.Mutex
	Objects map[string][]byte
	Types   map[string]string
	// FailPut makes every Put return this error
	FailPut error
}

var _ service.ObjectStore = (*MemoryObjectStore)(nil)

func NewMemoryObjectStore() *MemoryObjectStore {
	return &MemoryObjectStore{
		Objects: make(map[string][]byte),
		Types:   make(map[string]string),
	}
}

func (s *MemoryObjectStore) Put(_ context.Context, key, contentType string, body []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailPut != nil {
		return "", s.FailPut
	}
	s.Objects[key] = append([]byte(nil), body...)
	s.Types[key] = contentType
	return fmt.Sprintf("https://images.test/%s", key), nil
}

func (s *MemoryObjectStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Objects, key)
	delete(s.Types, key)
	return nil
}

// Has reports whether key is stored
func (s *MemoryObjectStore) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.Objects[key]
	return ok
}

// Len returns the number of stored objects
func (s *MemoryObjectStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Objects)
}
