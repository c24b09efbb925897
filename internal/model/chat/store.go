package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned by Load for unknown session identifiers.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore persists tutoring sessions. Save with an empty record ID
// creates a session and returns the new identifier; with an ID set it
// updates in place. Any error other than ErrSessionNotFound is treated by
// callers as a transient persistence failure.
type SessionStore interface {
	Save(ctx context.Context, rec SessionRecord) (string, error)
	Load(ctx context.Context, id string) (SessionRecord, error)
}

// MemoryStore implements SessionStore with an in-memory map, suitable for
// tests and running without a data directory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]SessionRecord
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]SessionRecord)}
}

// Save creates or updates a session record.
func (s *MemoryStore) Save(_ context.Context, rec SessionRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
		rec.CreatedAt = now
	} else if existing, ok := s.sessions[rec.ID]; ok {
		rec.CreatedAt = existing.CreatedAt
	} else {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	rec.Messages = append([]Message(nil), rec.Messages...)
	rec.Questions = append([]string(nil), rec.Questions...)
	s.sessions[rec.ID] = rec
	return rec.ID, nil
}

// Load retrieves a session record by identifier.
func (s *MemoryStore) Load(_ context.Context, id string) (SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.sessions[id]
	if !ok {
		return SessionRecord{}, ErrSessionNotFound
	}
	rec.Messages = append([]Message(nil), rec.Messages...)
	rec.Questions = append([]string(nil), rec.Questions...)
	return rec, nil
}
