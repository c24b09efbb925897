package chat

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhangyuer/elenchus/backend/internal/model/chat"
)

// TurnObserver mirrors store updates for one turn to a transport. Both
// methods are called outside the session lock; a nil observer is valid.
type TurnObserver interface {
	OnDelta(messageID, accumulated string)
	OnComplete(msg chat.Message)
}

// Options configures a live session. Streamer and Store are required; ID and
// Messages seed a session resumed from persistence.
type Options struct {
	Key              string
	Topic            string
	Questions        []string
	SelectedQuestion string
	ID               string
	Messages         []chat.Message

	Streamer         Streamer
	Store            chat.SessionStore
	OnSessionCreated func(id string)
	// OnCleared fires after ClearChat discards a persisted identifier, so a
	// registry can stop resolving the id to this now-empty session.
	OnCleared   func(id string)
	IdleTimeout time.Duration
}

// Session owns one live conversation: the ordered transcript, the at-most-one
// active model stream, and best-effort persistence. All exported methods are
// safe for concurrent use.
type Session struct {
	mu sync.Mutex

	key              string
	topic            string
	questions        []string
	selectedQuestion string

	log      messageLog
	streamer Streamer
	store    chat.SessionStore

	id        string
	created   chan struct{}
	onCreated func(string)
	onCleared func(string)

	loading bool
	lastErr string
	clock   int64

	turnSeq       uint64
	turnCancel    context.CancelFunc
	placeholderID string

	idleTimeout time.Duration

	epoch       uint64
	saving      bool
	pendingSave *chat.SessionRecord
}

// NewSession builds a live session. When opts.ID is set the session is
// considered already persisted: Created() is signalled immediately and
// OnSessionCreated will not fire.
func NewSession(opts Options) *Session {
	s := &Session{
		key:              opts.Key,
		topic:            opts.Topic,
		questions:        append([]string(nil), opts.Questions...),
		selectedQuestion: opts.SelectedQuestion,
		streamer:         opts.Streamer,
		store:            opts.Store,
		id:               opts.ID,
		created:          make(chan struct{}),
		onCreated:        opts.OnSessionCreated,
		onCleared:        opts.OnCleared,
		idleTimeout:      opts.IdleTimeout,
	}
	if len(opts.Messages) > 0 {
		s.LoadMessages(opts.Messages)
	}
	if s.id != "" {
		close(s.created)
	}
	return s
}

// SendMessage runs one full conversation turn: append the user message,
// stream the assistant reply into a placeholder, finalize it and schedule a
// save. A turn started while a previous one is still streaming supersedes it;
// the superseded turn settles silently and its late fragments are discarded.
// selectedQuestion, when non-empty, wins over content as the user text.
func (s *Session) SendMessage(ctx context.Context, content, selectedQuestion string, obs TurnObserver) error {
	text := strings.TrimSpace(content)
	if selectedQuestion != "" {
		text = selectedQuestion
	}
	if text == "" {
		return nil
	}

	s.mu.Lock()
	s.supersedeLocked()
	s.turnSeq++
	seq := s.turnSeq
	s.loading = true
	s.lastErr = ""

	history := s.log.snapshot()

	user := chat.Message{
		ID:        uuid.NewString(),
		Role:      chat.RoleUser,
		Content:   text,
		Timestamp: s.nowLocked(),
	}
	s.log.append(user)

	placeholder := chat.Message{
		ID:        uuid.NewString(),
		Role:      chat.RoleAssistant,
		Streaming: true,
		Timestamp: s.nowLocked(),
	}
	s.log.append(placeholder)
	s.placeholderID = placeholder.ID

	turnCtx, cancel := context.WithCancel(ctx)
	s.turnCancel = cancel
	s.mu.Unlock()
	defer cancel()

	final, err := s.streamTurn(turnCtx, seq, history, text, placeholder.ID, obs)
	return s.settleTurn(seq, placeholder.ID, final, err, obs)
}

// supersedeLocked cancels any in-flight turn and drops its placeholder so
// the transcript never carries a stale streaming message into a new turn.
func (s *Session) supersedeLocked() {
	if s.turnCancel != nil {
		s.turnCancel()
		s.turnCancel = nil
	}
	if s.placeholderID != "" {
		s.log.removeByID(s.placeholderID)
		s.placeholderID = ""
	}
}

func (s *Session) streamTurn(ctx context.Context, seq uint64, history []chat.Message, text, placeholderID string, obs TurnObserver) (string, error) {
	stream, err := s.streamer.StreamReply(ctx, history, text)
	if err != nil {
		return "", err
	}

	return pumpStream(ctx, stream, s.idleTimeout, func(accumulated string) {
		s.mu.Lock()
		if s.turnSeq != seq {
			s.mu.Unlock()
			return
		}
		s.log.updateByID(placeholderID, func(m chat.Message) chat.Message {
			m.Content = accumulated
			return m
		})
		s.mu.Unlock()
		if obs != nil {
			obs.OnDelta(placeholderID, accumulated)
		}
	})
}

func (s *Session) settleTurn(seq uint64, placeholderID, final string, err error, obs TurnObserver) error {
	s.mu.Lock()

	if s.turnSeq != seq {
		// Superseded: the newer turn already cleaned up this one's state.
		s.mu.Unlock()
		return nil
	}
	s.turnCancel = nil
	s.placeholderID = ""
	s.loading = false

	if errors.Is(err, context.Canceled) {
		s.log.removeByID(placeholderID)
		s.mu.Unlock()
		return nil
	}

	if err != nil {
		s.log.removeByID(placeholderID)
		s.lastErr = err.Error()
		s.mu.Unlock()
		return err
	}

	var finalMsg chat.Message
	s.log.updateByID(placeholderID, func(m chat.Message) chat.Message {
		m.Content = final
		m.Streaming = false
		finalMsg = m
		return m
	})
	s.scheduleSaveLocked()
	s.mu.Unlock()

	if obs != nil {
		obs.OnComplete(finalMsg)
	}
	return nil
}

// ClearChat abandons the session: any in-flight stream is cancelled, the
// transcript is emptied, and the session identifier and error state are
// discarded. In-flight save results for the old identity are ignored, and
// OnCleared reports the dropped identifier.
func (s *Session) ClearChat() {
	s.mu.Lock()

	s.supersedeLocked()
	s.turnSeq++
	s.log.replaceAll(nil)
	s.loading = false
	s.lastErr = ""
	oldID := s.id
	if s.id != "" {
		s.created = make(chan struct{})
	}
	s.id = ""
	s.epoch++
	s.saving = false
	s.pendingSave = nil
	cb := s.onCleared
	s.mu.Unlock()

	if oldID != "" && cb != nil {
		cb(oldID)
	}
}

// LoadMessages replaces the transcript wholesale with messages from
// persistence or navigation state. Nothing is saved and no stream runs; all
// loaded messages are marked non-streaming.
func (s *Session) LoadMessages(msgs []chat.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.supersedeLocked()
	s.turnSeq++
	loaded := make([]chat.Message, len(msgs))
	for i, m := range msgs {
		m.Streaming = false
		loaded[i] = m
		if m.Timestamp > s.clock {
			s.clock = m.Timestamp
		}
	}
	s.log.replaceAll(loaded)
	s.loading = false
	s.lastErr = ""
}

// scheduleSaveLocked queues an asynchronous save of the current transcript.
// At most one save runs at a time; a newer snapshot replaces a queued stale
// one so out-of-order writes cannot clobber newer content with older.
func (s *Session) scheduleSaveLocked() {
	rec := s.recordLocked()
	if s.saving {
		s.pendingSave = &rec
		return
	}
	s.saving = true
	go s.runSaves(rec, s.epoch)
}

func (s *Session) runSaves(rec chat.SessionRecord, epoch uint64) {
	for {
		id, err := s.store.Save(context.Background(), rec)

		var cb func(string)
		s.mu.Lock()
		if s.epoch != epoch {
			// Session was cleared while saving; results belong to the old identity.
			s.mu.Unlock()
			return
		}
		if err != nil {
			// Persistence is best-effort: log and keep the conversation intact.
			log.Printf("[chat] session save failed: %v", err)
		} else if s.id == "" {
			s.id = id
			close(s.created)
			cb = s.onCreated
		}
		next := s.pendingSave
		s.pendingSave = nil
		if next == nil {
			s.saving = false
		} else if next.ID == "" {
			next.ID = s.id
		}
		s.mu.Unlock()

		if cb != nil {
			cb(id)
		}
		if next == nil {
			return
		}
		rec = *next
	}
}

func (s *Session) recordLocked() chat.SessionRecord {
	return chat.SessionRecord{
		ID:               s.id,
		Topic:            s.topic,
		Questions:        append([]string(nil), s.questions...),
		SelectedQuestion: s.selectedQuestion,
		Messages:         s.log.snapshot(),
	}
}

// Record returns the session's current persistable snapshot.
func (s *Session) Record() chat.SessionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordLocked()
}

// Created is signalled once the session has a persistent identifier.
func (s *Session) Created() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.created
}

// Key returns the live-session registry key.
func (s *Session) Key() string { return s.key }

// SessionID returns the persistent identifier, or "" before the first
// successful save.
func (s *Session) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Messages returns a copy of the transcript.
func (s *Session) Messages() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.snapshot()
}

// IsLoading reports whether a turn is in flight.
func (s *Session) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the last turn's user-visible error message, if any.
func (s *Session) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Session) Topic() string { return s.topic }

func (s *Session) Questions() []string {
	return append([]string(nil), s.questions...)
}

func (s *Session) SelectedQuestion() string { return s.selectedQuestion }

// nowLocked advances the session's logical clock: wall time, strictly
// increasing within the session so two appends in the same millisecond
// still order.
func (s *Session) nowLocked() int64 {
	now := time.Now().UnixMilli()
	if now <= s.clock {
		now = s.clock + 1
	}
	s.clock = now
	return now
}
