package session

import (
	"context"
	"sync"
	"time"

	"github.com/ClareAI/astra-message-service/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store maps a stable user identifier to a conversation-session identifier.
// Sessions are created lazily and a mapping, once created, never changes.
type Store interface {
	// GetOrCreate returns the session id for userID, generating and storing
	// a fresh one if no mapping exists.
	GetOrCreate(ctx context.Context, userID string) (string, error)
	// Clear removes the mapping for userID. No-op if absent.
	Clear(ctx context.Context, userID string) error
	// Count returns the number of live mappings.
	Count(ctx context.Context) (int, error)
	// Cleanup is the expiry hook. The memory store only logs: no eviction
	// is implemented yet, restarts are the only thing that resets sessions.
	Cleanup(ctx context.Context) error
}

// MemoryStore is the in-process Store used by a single-pod deployment.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]string
	timeout  time.Duration
}

// NewMemoryStore creates an empty in-memory session store. The timeout is
// recorded for the Cleanup hook but not enforced.
func NewMemoryStore(timeout time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]string),
		timeout:  timeout,
	}
}

func (s *MemoryStore) GetOrCreate(ctx context.Context, userID string) (string, error) {
	s.mu.RLock()
	if id, ok := s.sessions[userID]; ok {
		s.mu.RUnlock()
		return id, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	// Re-check under the write lock: a concurrent pass for the same sender
	// may have created the mapping between the two lock acquisitions.
	if id, ok := s.sessions[userID]; ok {
		return id, nil
	}

	id := uuid.NewString()
	s.sessions[userID] = id
	logger.Base().Info("Session created",
		zap.String("user_id", userID),
		zap.String("session_id", id))
	return id, nil
}

func (s *MemoryStore) Clear(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[userID]; ok {
		delete(s.sessions, userID)
		logger.Base().Info("Session cleared", zap.String("user_id", userID))
	}
	return nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions), nil
}

// Cleanup logs the current session count. Actual eviction by SessionTimeout
// is not implemented.
func (s *MemoryStore) Cleanup(ctx context.Context) error {
	count, _ := s.Count(ctx)
	logger.Base().Info("Session cleanup pass (no eviction implemented)",
		zap.Int("live_sessions", count),
		zap.Duration("configured_timeout", s.timeout))
	return nil
}
