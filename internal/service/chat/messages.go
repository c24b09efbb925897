package chat

import (
	"github.com/zhangyuer/elenchus/backend/internal/model/chat"
)

// messageLog holds the ordered transcript for one live session. It is the
// ground truth for what transports render and what gets persisted; only the
// owning Session mutates it, under the Session mutex.
type messageLog struct {
	items []chat.Message
}

func (l *messageLog) append(msg chat.Message) {
	l.items = append(l.items, msg)
}

// updateByID replaces the targeted message with a copy merged through patch,
// leaving identity and order of every other message untouched. Returns false
// when the id is unknown.
func (l *messageLog) updateByID(id string, patch func(chat.Message) chat.Message) bool {
	for i, msg := range l.items {
		if msg.ID != id {
			continue
		}
		next := make([]chat.Message, len(l.items))
		copy(next, l.items)
		updated := patch(msg)
		updated.ID = msg.ID
		next[i] = updated
		l.items = next
		return true
	}
	return false
}

// removeByID drops the targeted message, preserving the order of the rest.
func (l *messageLog) removeByID(id string) bool {
	for i, msg := range l.items {
		if msg.ID != id {
			continue
		}
		next := make([]chat.Message, 0, len(l.items)-1)
		next = append(next, l.items[:i]...)
		next = append(next, l.items[i+1:]...)
		l.items = next
		return true
	}
	return false
}

// replaceAll swaps the whole transcript, used when loading a persisted
// session or clearing the chat.
func (l *messageLog) replaceAll(msgs []chat.Message) {
	l.items = append([]chat.Message(nil), msgs...)
}

// snapshot returns a copy safe to hand outside the Session lock.
func (l *messageLog) snapshot() []chat.Message {
	return append([]chat.Message(nil), l.items...)
}

func (l *messageLog) len() int {
	return len(l.items)
}
