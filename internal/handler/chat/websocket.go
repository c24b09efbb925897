package chat

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	chatmodel "github.com/zhangyuer/elenchus/backend/internal/model/chat"
	chatservice "github.com/zhangyuer/elenchus/backend/internal/service/chat"
)

const (
	readDeadline = 60 * time.Second
	pingInterval = 30 * time.Second
	// sessionWait bounds how long a finished turn waits for the async save
	// to report the shareable session id.
	sessionWait = 2 * time.Second
)

// WebSocketHandler provides the duplex chat transport: inbound user turns,
// outbound streamed deltas. One connection is bound to one live session.
type WebSocketHandler struct {
	manager  *chatservice.Manager
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates the websocket chat handler.
func NewWebSocketHandler(manager *chatservice.Manager) *WebSocketHandler {
	return &WebSocketHandler{
		manager: manager,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterWebSocketRoutes registers the websocket endpoint.
func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/sessions/{key}/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type     string `json:"type"`
	Content  string `json:"content"`
	Question string `json:"question"`
}

type outgoingMessage struct {
	Type      string             `json:"type"`
	MessageID string             `json:"messageId,omitempty"`
	Content   string             `json:"content,omitempty"`
	SessionID string             `json:"sessionId,omitempty"`
	Message   *chatmodel.Message `json:"message,omitempty"`
	Error     string             `json:"error,omitempty"`
	Timestamp int64              `json:"timestamp"`
}

// wsConn serializes writes: turn goroutines, the ping loop and the read loop
// all send frames.
type wsConn struct {
	mu            sync.Mutex
	conn          *websocket.Conn
	lastSessionID string
}

func (c *wsConn) send(msg outgoingMessage) {
	msg.Timestamp = time.Now().UnixMilli()
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteJSON(msg); err != nil {
		log.Printf("[websocket] write failed: %v", err)
	}
}

func (c *wsConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
}

func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	sess, err := h.manager.Get(key)
	if err != nil {
		http.Error(w, "live session not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[websocket] new connection for session key=%s", key)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	wc := &wsConn{conn: conn, lastSessionID: sess.SessionID()}
	go h.pingLoop(ctx, wc)

	wc.send(outgoingMessage{
		Type:      "connected",
		SessionID: sess.SessionID(),
	})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[websocket] read error: %v", err)
			}
			return
		}

		conn.SetReadDeadline(time.Now().Add(readDeadline))

		switch msg.Type {
		case "message":
			// Turns run off the read loop so a newer message can supersede
			// an in-flight stream.
			go h.runTurn(ctx, wc, sess, msg)
		case "clear":
			sess.ClearChat()
			wc.mu.Lock()
			wc.lastSessionID = ""
			wc.mu.Unlock()
			wc.send(outgoingMessage{Type: "cleared"})
		default:
			wc.send(outgoingMessage{Type: "error", Error: "unsupported message type: " + msg.Type})
		}
	}
}

func (h *WebSocketHandler) runTurn(ctx context.Context, wc *wsConn, sess *chatservice.Session, msg inboundMessage) {
	obs := &wsObserver{wc: wc}
	if err := sess.SendMessage(ctx, msg.Content, msg.Question, obs); err != nil {
		wc.send(outgoingMessage{Type: "error", Error: err.Error()})
		return
	}

	select {
	case <-sess.Created():
	case <-time.After(sessionWait):
		return
	case <-ctx.Done():
		return
	}

	id := sess.SessionID()
	wc.mu.Lock()
	seen := wc.lastSessionID == id
	wc.lastSessionID = id
	wc.mu.Unlock()
	if id != "" && !seen {
		wc.send(outgoingMessage{Type: "session", SessionID: id})
	}
}

func (h *WebSocketHandler) pingLoop(ctx context.Context, wc *wsConn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := wc.ping(); err != nil {
				return
			}
		}
	}
}

// wsObserver mirrors orchestrator updates into websocket frames.
type wsObserver struct {
	wc *wsConn
}

func (o *wsObserver) OnDelta(messageID, accumulated string) {
	o.wc.send(outgoingMessage{
		Type:      "delta",
		MessageID: messageID,
		Content:   accumulated,
	})
}

func (o *wsObserver) OnComplete(msg chatmodel.Message) {
	o.wc.send(outgoingMessage{
		Type:      "message",
		MessageID: msg.ID,
		Message:   &msg,
	})
}
