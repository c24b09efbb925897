package chat_test

import (
	"context"
	"errors"
	"testing"

	chat "github.com/zhangyuer/elenchus/backend/internal/model/chat"
)

func TestMemoryStoreCreateAndLoad(t *testing.T) {
	store := chat.NewMemoryStore()
	ctx := context.Background()

	id, err := store.Save(ctx, chat.SessionRecord{
		Topic:            "plane crashes",
		Questions:        []string{"why do jet engines stall"},
		SelectedQuestion: "why do jet engines stall",
		Messages: []chat.Message{
			{ID: "u1", Role: chat.RoleUser, Content: "why do jet engines stall", Timestamp: 1},
		},
	})
	if err != nil {
		t.Fatalf("Save err: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated id")
	}

	rec, err := store.Load(ctx, id)
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if rec.Topic != "plane crashes" {
		t.Fatalf("unexpected topic: %s", rec.Topic)
	}
	if len(rec.Messages) != 1 || rec.Messages[0].Content != "why do jet engines stall" {
		t.Fatalf("unexpected messages: %+v", rec.Messages)
	}
	if rec.CreatedAt == 0 || rec.UpdatedAt == 0 {
		t.Fatal("timestamps not assigned")
	}
}

func TestMemoryStoreUpdateKeepsID(t *testing.T) {
	store := chat.NewMemoryStore()
	ctx := context.Background()

	id, err := store.Save(ctx, chat.SessionRecord{
		Topic:            "t",
		Questions:        []string{"q"},
		SelectedQuestion: "q",
		Messages:         []chat.Message{},
	})
	if err != nil {
		t.Fatalf("Save err: %v", err)
	}

	updatedID, err := store.Save(ctx, chat.SessionRecord{
		ID:               id,
		Topic:            "t",
		Questions:        []string{"q"},
		SelectedQuestion: "q",
		Messages: []chat.Message{
			{ID: "u1", Role: chat.RoleUser, Content: "hello", Timestamp: 1},
		},
	})
	if err != nil {
		t.Fatalf("update Save err: %v", err)
	}
	if updatedID != id {
		t.Fatalf("id changed on update: %s -> %s", id, updatedID)
	}

	rec, err := store.Load(ctx, id)
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if len(rec.Messages) != 1 {
		t.Fatalf("update lost messages: %+v", rec.Messages)
	}
}

func TestMemoryStoreLoadUnknown(t *testing.T) {
	store := chat.NewMemoryStore()

	if _, err := store.Load(context.Background(), "missing"); !errors.Is(err, chat.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestMemoryStoreCopiesRecords(t *testing.T) {
	store := chat.NewMemoryStore()
	ctx := context.Background()

	msgs := []chat.Message{{ID: "u1", Role: chat.RoleUser, Content: "hello", Timestamp: 1}}
	id, err := store.Save(ctx, chat.SessionRecord{
		Topic:            "t",
		Questions:        []string{"q"},
		SelectedQuestion: "q",
		Messages:         msgs,
	})
	if err != nil {
		t.Fatalf("Save err: %v", err)
	}

	msgs[0].Content = "mutated"

	rec, err := store.Load(ctx, id)
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if rec.Messages[0].Content != "hello" {
		t.Fatal("store aliased the caller's slice")
	}

	rec.Messages[0].Content = "mutated again"
	again, _ := store.Load(ctx, id)
	if again.Messages[0].Content != "hello" {
		t.Fatal("loaded record aliased store memory")
	}
}
