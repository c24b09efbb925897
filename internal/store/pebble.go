package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"

	"github.com/zhangyuer/elenchus/backend/internal/model/chat"
)

const sessionKeyPrefix = "session:"

// Pebble implements chat.SessionStore on an embedded pebble database.
// Records are stored as JSON under "session:<id>".
type Pebble struct {
	db *pebble.DB
}

// Open opens (or creates) the pebble database at path.
func Open(path string) (*Pebble, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble at %s: %w", path, err)
	}
	log.Printf("[store] pebble opened at %s", path)
	return &Pebble{db: db}, nil
}

// Close closes the underlying database.
func (p *Pebble) Close() error {
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}

// Save creates or updates a session record. Writes are synced so a crash
// never loses an acknowledged save.
func (p *Pebble) Save(_ context.Context, rec chat.SessionRecord) (string, error) {
	now := time.Now().UnixMilli()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
		rec.CreatedAt = now
	} else if existing, err := p.get(rec.ID); err == nil {
		rec.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, chat.ErrSessionNotFound) {
		return "", err
	} else {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshal session %s: %w", rec.ID, err)
	}
	if err := p.db.Set([]byte(sessionKeyPrefix+rec.ID), data, pebble.Sync); err != nil {
		return "", fmt.Errorf("write session %s: %w", rec.ID, err)
	}
	return rec.ID, nil
}

// Load retrieves a session record by identifier.
func (p *Pebble) Load(_ context.Context, id string) (chat.SessionRecord, error) {
	return p.get(id)
}

func (p *Pebble) get(id string) (chat.SessionRecord, error) {
	value, closer, err := p.db.Get([]byte(sessionKeyPrefix + id))
	if errors.Is(err, pebble.ErrNotFound) {
		return chat.SessionRecord{}, chat.ErrSessionNotFound
	}
	if err != nil {
		return chat.SessionRecord{}, fmt.Errorf("read session %s: %w", id, err)
	}
	defer closer.Close()

	var rec chat.SessionRecord
	if err := json.Unmarshal(value, &rec); err != nil {
		return chat.SessionRecord{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	return rec, nil
}
