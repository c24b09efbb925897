package stream

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	chatmodel "github.com/zhangyuer/elenchus/backend/internal/model/chat"
	chatservice "github.com/zhangyuer/elenchus/backend/internal/service/chat"
	"github.com/zhangyuer/elenchus/backend/pkg/utils"
)

// createdWait bounds how long the handler waits after a finished turn for
// the async save to report the shareable session id.
const createdWait = 2 * time.Second

// Handler runs one conversation turn per request and mirrors it over
// Server-Sent Events.
type Handler struct {
	manager *chatservice.Manager
}

// New creates a stream handler.
func New(manager *chatservice.Manager) *Handler {
	return &Handler{manager: manager}
}

// StreamResponse is one SSE frame.
type StreamResponse struct {
	Event     string `json:"event"`
	MessageID string `json:"messageId,omitempty"`
	Content   string `json:"content,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
	Error     string `json:"error,omitempty"`
}

// HandleStreamRequest streams one turn for the live session addressed by
// key. message and question mirror the sendMessage arguments: question, when
// set, wins over message as the user text.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, key, message, question string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}

	sess, err := h.manager.Get(key)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "live session not found")
		return err
	}

	utils.SetupSSEHeaders(w)

	h.send(w, flusher, StreamResponse{Event: "start", SessionID: sess.SessionID()})

	obs := &sseObserver{h: h, w: w, flusher: flusher}
	if err := sess.SendMessage(ctx, message, question, obs); err != nil {
		h.send(w, flusher, StreamResponse{Event: "error", Error: err.Error()})
		return err
	}

	// Give the async save a moment to assign the shareable id so the client
	// can update its URL without polling.
	select {
	case <-sess.Created():
		h.send(w, flusher, StreamResponse{Event: "session", SessionID: sess.SessionID()})
	case <-time.After(createdWait):
	case <-ctx.Done():
	}

	h.send(w, flusher, StreamResponse{Event: "end", SessionID: sess.SessionID(), Finished: true})
	log.Printf("[stream] completed turn for session key=%s", key)
	return nil
}

func (h *Handler) send(w http.ResponseWriter, flusher http.Flusher, response StreamResponse) {
	utils.SendSSEChunk(w, flusher, response)
}

// sseObserver mirrors orchestrator updates into SSE frames.
type sseObserver struct {
	h       *Handler
	w       http.ResponseWriter
	flusher http.Flusher
}

func (o *sseObserver) OnDelta(messageID, accumulated string) {
	o.h.send(o.w, o.flusher, StreamResponse{
		Event:     "delta",
		MessageID: messageID,
		Content:   accumulated,
	})
}

func (o *sseObserver) OnComplete(msg chatmodel.Message) {
	o.h.send(o.w, o.flusher, StreamResponse{
		Event:     "message",
		MessageID: msg.ID,
		Content:   msg.Content,
	})
}
