package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	chatmodel "github.com/zhangyuer/elenchus/backend/internal/model/chat"
	chatservice "github.com/zhangyuer/elenchus/backend/internal/service/chat"
	"github.com/zhangyuer/elenchus/backend/pkg/utils"
)

// Handler serves the session persistence contract and the live-session
// endpoints.
type Handler struct {
	manager *chatservice.Manager
	store   chatmodel.SessionStore
}

// New creates the chat handler.
func New(manager *chatservice.Manager, store chatmodel.SessionStore) *Handler {
	return &Handler{manager: manager, store: store}
}

// RegisterRoutes registers chat routes under the API root.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat/save", h.handleSave)
	r.Get("/chat/{id}", h.handleLoad)
	r.Post("/sessions", h.handleOpenSession)
	r.Delete("/sessions/{key}", h.handleCloseSession)
}

type savePayload struct {
	ID               string              `json:"id"`
	Topic            string              `json:"topic"`
	Questions        []string            `json:"questions"`
	SelectedQuestion string              `json:"selectedQuestion"`
	Messages         []chatmodel.Message `json:"messages"`
}

// handleSave creates or updates a persisted session. An absent id creates; a
// present id updates in place.
func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	var payload savePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if payload.Topic == "" || payload.Questions == nil || payload.SelectedQuestion == "" || payload.Messages == nil {
		utils.RespondError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	id, err := h.store.Save(r.Context(), chatmodel.SessionRecord{
		ID:               payload.ID,
		Topic:            payload.Topic,
		Questions:        payload.Questions,
		SelectedQuestion: payload.SelectedQuestion,
		Messages:         payload.Messages,
	})
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to save session")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"id": id})
}

// handleLoad returns a persisted session by identifier.
func (h *Handler) handleLoad(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.store.Load(r.Context(), id)
	if errors.Is(err, chatmodel.ErrSessionNotFound) {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"topic":            rec.Topic,
		"questions":        rec.Questions,
		"selectedQuestion": rec.SelectedQuestion,
		"messages":         rec.Messages,
	})
}

type openSessionPayload struct {
	ID               string   `json:"id"`
	Topic            string   `json:"topic"`
	Questions        []string `json:"questions"`
	SelectedQuestion string   `json:"selectedQuestion"`
}

type sessionView struct {
	SessionKey       string              `json:"sessionKey"`
	SessionID        string              `json:"sessionId,omitempty"`
	Topic            string              `json:"topic"`
	Questions        []string            `json:"questions"`
	SelectedQuestion string              `json:"selectedQuestion"`
	Messages         []chatmodel.Message `json:"messages"`
}

// handleOpenSession opens a live session: with an id it resumes the persisted
// session, otherwise it starts a fresh one for the selected question.
func (h *Handler) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var payload openSessionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if payload.ID != "" {
		sess, err := h.manager.Resume(r.Context(), payload.ID)
		if errors.Is(err, chatmodel.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, "session not found")
			return
		}
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "failed to load session")
			return
		}
		utils.RespondJSON(w, http.StatusOK, viewOf(sess))
		return
	}

	sess, err := h.manager.Open(payload.Topic, payload.Questions, payload.SelectedQuestion)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusCreated, viewOf(sess))
}

// handleCloseSession abandons a live session.
func (h *Handler) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := h.manager.Close(key); err != nil {
		utils.RespondError(w, http.StatusNotFound, "live session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func viewOf(sess *chatservice.Session) sessionView {
	return sessionView{
		SessionKey:       sess.Key(),
		SessionID:        sess.SessionID(),
		Topic:            sess.Topic(),
		Questions:        sess.Questions(),
		SelectedQuestion: sess.SelectedQuestion(),
		Messages:         sess.Messages(),
	}
}
