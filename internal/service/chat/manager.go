package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhangyuer/elenchus/backend/internal/model/chat"
)

var (
	ErrTopicRequired    = errors.New("topic is required")
	ErrQuestionRequired = errors.New("selected question is required")
	ErrLiveNotFound     = errors.New("live session not found")
)

// Manager is the registry of live sessions. Each entry is reachable by its
// transient key; once a session is persisted its durable identifier becomes
// an alias for the same entry so shared URLs resolve to the live session.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	streamer    Streamer
	store       chat.SessionStore
	idleTimeout time.Duration
}

// NewManager builds a registry backed by the given model streamer and
// session store.
func NewManager(streamer Streamer, store chat.SessionStore, idleTimeout time.Duration) *Manager {
	return &Manager{
		sessions:    make(map[string]*Session),
		streamer:    streamer,
		store:       store,
		idleTimeout: idleTimeout,
	}
}

// Open starts a fresh live session for a selected question.
func (m *Manager) Open(topic string, questions []string, selectedQuestion string) (*Session, error) {
	if topic == "" {
		return nil, ErrTopicRequired
	}
	if selectedQuestion == "" {
		return nil, ErrQuestionRequired
	}

	key := uuid.NewString()
	sess := NewSession(Options{
		Key:              key,
		Topic:            topic,
		Questions:        questions,
		SelectedQuestion: selectedQuestion,
		Streamer:         m.streamer,
		Store:            m.store,
		IdleTimeout:      m.idleTimeout,
		OnSessionCreated: func(id string) { m.alias(id, key) },
		OnCleared:        func(id string) { m.unalias(id, key) },
	})

	m.mu.Lock()
	m.sessions[key] = sess
	m.mu.Unlock()
	return sess, nil
}

// Resume returns the live session for a persisted identifier, loading the
// record from the store when no live entry exists. Unknown identifiers
// surface chat.ErrSessionNotFound.
func (m *Manager) Resume(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return sess, nil
	}

	rec, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	key := uuid.NewString()
	sess = NewSession(Options{
		Key:              key,
		ID:               rec.ID,
		Topic:            rec.Topic,
		Questions:        rec.Questions,
		SelectedQuestion: rec.SelectedQuestion,
		Messages:         rec.Messages,
		Streamer:         m.streamer,
		Store:            m.store,
		IdleTimeout:      m.idleTimeout,
		OnSessionCreated: func(id string) { m.alias(id, key) },
		OnCleared:        func(id string) { m.unalias(id, key) },
	})

	m.mu.Lock()
	m.sessions[key] = sess
	m.sessions[rec.ID] = sess
	m.mu.Unlock()
	return sess, nil
}

// Get looks up a live session by key or persisted-id alias.
func (m *Manager) Get(key string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[key]
	if !ok {
		return nil, ErrLiveNotFound
	}
	return sess, nil
}

// Close abandons a live session: the chat is cleared and both registry
// entries are dropped.
func (m *Manager) Close(key string) error {
	m.mu.Lock()
	sess, ok := m.sessions[key]
	if !ok {
		m.mu.Unlock()
		return ErrLiveNotFound
	}
	delete(m.sessions, sess.Key())
	if id := sess.SessionID(); id != "" {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	sess.ClearChat()
	return nil
}

func (m *Manager) alias(id, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[key]; ok {
		m.sessions[id] = sess
	}
}

// unalias drops a persisted-id alias after its session cleared that identity,
// so Resume falls back to the store instead of returning the emptied session.
func (m *Manager) unalias(id, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[id]; ok && sess == m.sessions[key] {
		delete(m.sessions, id)
	}
}
