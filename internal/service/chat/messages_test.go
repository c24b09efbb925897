package chat

import (
	"testing"

	"github.com/zhangyuer/elenchus/backend/internal/model/chat"
)

func TestMessageLogUpdateByIDPreservesOrder(t *testing.T) {
	var l messageLog
	l.append(chat.Message{ID: "a", Role: chat.RoleUser, Content: "one"})
	l.append(chat.Message{ID: "b", Role: chat.RoleAssistant, Content: "two"})
	l.append(chat.Message{ID: "c", Role: chat.RoleUser, Content: "three"})

	before := l.snapshot()

	ok := l.updateByID("b", func(m chat.Message) chat.Message {
		m.Content = "patched"
		return m
	})
	if !ok {
		t.Fatal("updateByID missed existing id")
	}

	after := l.snapshot()
	if len(after) != 3 {
		t.Fatalf("length changed: %d", len(after))
	}
	if after[0].ID != "a" || after[1].ID != "b" || after[2].ID != "c" {
		t.Fatal("order changed by updateByID")
	}
	if after[1].Content != "patched" {
		t.Fatalf("patch not applied: %q", after[1].Content)
	}

	// The earlier snapshot must not see the patch.
	if before[1].Content != "two" {
		t.Fatalf("snapshot mutated in place: %q", before[1].Content)
	}
}

func TestMessageLogUpdateByIDKeepsIdentity(t *testing.T) {
	var l messageLog
	l.append(chat.Message{ID: "a", Content: "x"})

	l.updateByID("a", func(m chat.Message) chat.Message {
		m.ID = "hijacked"
		m.Content = "y"
		return m
	})

	got := l.snapshot()
	if got[0].ID != "a" {
		t.Fatalf("message identity changed: %s", got[0].ID)
	}
	if got[0].Content != "y" {
		t.Fatalf("content not updated: %q", got[0].Content)
	}
}

func TestMessageLogUpdateByIDUnknown(t *testing.T) {
	var l messageLog
	l.append(chat.Message{ID: "a"})

	if l.updateByID("zz", func(m chat.Message) chat.Message { return m }) {
		t.Fatal("updateByID reported success for unknown id")
	}
}

func TestMessageLogRemoveByID(t *testing.T) {
	var l messageLog
	l.append(chat.Message{ID: "a"})
	l.append(chat.Message{ID: "b"})
	l.append(chat.Message{ID: "c"})

	if !l.removeByID("b") {
		t.Fatal("removeByID missed existing id")
	}

	got := l.snapshot()
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Fatalf("unexpected transcript after remove: %+v", got)
	}

	if l.removeByID("b") {
		t.Fatal("removeByID reported success twice")
	}
}

func TestMessageLogReplaceAllCopies(t *testing.T) {
	var l messageLog
	src := []chat.Message{{ID: "a"}, {ID: "b"}}
	l.replaceAll(src)

	src[0].ID = "mutated"
	if l.snapshot()[0].ID != "a" {
		t.Fatal("replaceAll aliased the caller's slice")
	}

	l.replaceAll(nil)
	if l.len() != 0 {
		t.Fatalf("expected empty log, got %d", l.len())
	}
}
