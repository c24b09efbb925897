package chat_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	chathandler "github.com/zhangyuer/elenchus/backend/internal/handler/chat"
	chatmodel "github.com/zhangyuer/elenchus/backend/internal/model/chat"
	chatservice "github.com/zhangyuer/elenchus/backend/internal/service/chat"
)

type stubStream struct{}

func (stubStream) Recv() (string, error) { return "", io.EOF }
func (stubStream) Close()                {}

type stubStreamer struct{}

func (stubStreamer) StreamReply(_ context.Context, _ []chatmodel.Message, _ string) (chatservice.TokenStream, error) {
	return stubStream{}, nil
}

func newTestRouter() (*chi.Mux, *chatmodel.MemoryStore, *chatservice.Manager) {
	store := chatmodel.NewMemoryStore()
	manager := chatservice.NewManager(stubStreamer{}, store, time.Second)
	r := chi.NewRouter()
	chathandler.New(manager, store).RegisterRoutes(r)
	return r, store, manager
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	r, _, _ := newTestRouter()

	w := doJSON(t, r, http.MethodPost, "/chat/save", map[string]any{
		"topic":            "gravity",
		"questions":        []string{"why do things fall"},
		"selectedQuestion": "why do things fall",
		"messages": []map[string]any{
			{"id": "u1", "role": "user", "content": "why do things fall", "timestamp": 1},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("save status = %d, body = %s", w.Code, w.Body.String())
	}
	var saved struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &saved); err != nil {
		t.Fatalf("decode save response: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("expected id in save response")
	}

	w = doJSON(t, r, http.MethodGet, "/chat/"+saved.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("load status = %d, body = %s", w.Code, w.Body.String())
	}
	var loaded struct {
		Topic            string              `json:"topic"`
		Questions        []string            `json:"questions"`
		SelectedQuestion string              `json:"selectedQuestion"`
		Messages         []chatmodel.Message `json:"messages"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &loaded); err != nil {
		t.Fatalf("decode load response: %v", err)
	}
	if loaded.Topic != "gravity" || len(loaded.Messages) != 1 {
		t.Fatalf("unexpected loaded session: %+v", loaded)
	}
}

func TestSaveRejectsMissingFields(t *testing.T) {
	r, _, _ := newTestRouter()

	cases := []map[string]any{
		{"questions": []string{"q"}, "selectedQuestion": "q", "messages": []any{}},
		{"topic": "t", "selectedQuestion": "q", "messages": []any{}},
		{"topic": "t", "questions": []string{"q"}, "messages": []any{}},
		{"topic": "t", "questions": []string{"q"}, "selectedQuestion": "q"},
	}
	for i, payload := range cases {
		if w := doJSON(t, r, http.MethodPost, "/chat/save", payload); w.Code != http.StatusBadRequest {
			t.Fatalf("case %d: status = %d, want 400", i, w.Code)
		}
	}
}

func TestLoadUnknownSession(t *testing.T) {
	r, _, _ := newTestRouter()

	if w := doJSON(t, r, http.MethodGet, "/chat/nope", nil); w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestOpenSessionValidates(t *testing.T) {
	r, _, _ := newTestRouter()

	w := doJSON(t, r, http.MethodPost, "/sessions", map[string]any{
		"questions": []string{"q"}, "selectedQuestion": "q",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestOpenAndCloseSession(t *testing.T) {
	r, _, manager := newTestRouter()

	w := doJSON(t, r, http.MethodPost, "/sessions", map[string]any{
		"topic":            "gravity",
		"questions":        []string{"why do things fall"},
		"selectedQuestion": "why do things fall",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("open status = %d, body = %s", w.Code, w.Body.String())
	}
	var view struct {
		SessionKey string `json:"sessionKey"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode open response: %v", err)
	}
	if view.SessionKey == "" {
		t.Fatal("expected session key")
	}
	if _, err := manager.Get(view.SessionKey); err != nil {
		t.Fatalf("Get after open: %v", err)
	}

	w = doJSON(t, r, http.MethodDelete, "/sessions/"+view.SessionKey, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("close status = %d", w.Code)
	}
	if _, err := manager.Get(view.SessionKey); !errors.Is(err, chatservice.ErrLiveNotFound) {
		t.Fatalf("expected ErrLiveNotFound after close, got %v", err)
	}
}

func TestResumeSessionFromStore(t *testing.T) {
	r, store, _ := newTestRouter()

	id, err := store.Save(context.Background(), chatmodel.SessionRecord{
		Topic:            "gravity",
		Questions:        []string{"why do things fall"},
		SelectedQuestion: "why do things fall",
		Messages: []chatmodel.Message{
			{ID: "u1", Role: chatmodel.RoleUser, Content: "why do things fall", Timestamp: 1},
		},
	})
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}

	w := doJSON(t, r, http.MethodPost, "/sessions", map[string]any{"id": id})
	if w.Code != http.StatusOK {
		t.Fatalf("resume status = %d, body = %s", w.Code, w.Body.String())
	}
	var view struct {
		SessionKey string              `json:"sessionKey"`
		SessionID  string              `json:"sessionId"`
		Messages   []chatmodel.Message `json:"messages"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode resume response: %v", err)
	}
	if view.SessionID != id || len(view.Messages) != 1 {
		t.Fatalf("unexpected resume view: %+v", view)
	}
}

func TestResumeUnknownSession(t *testing.T) {
	r, _, _ := newTestRouter()

	if w := doJSON(t, r, http.MethodPost, "/sessions", map[string]any{"id": "missing"}); w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}
