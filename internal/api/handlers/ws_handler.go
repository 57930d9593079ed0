package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/recruitgenius/backend/internal/models"
	"github.com/recruitgenius/backend/internal/services"
	"github.com/recruitgenius/backend/internal/utils"
)

// Subscriber opens a pub/sub subscription on a session's event channel.
type Subscriber interface {
	Subscribe(ctx context.Context, sessionID string) *redis.PubSub
}

// WSHandler streams session events to the candidate's browser.
type WSHandler struct {
	sessions services.SessionService
	events   Subscriber
	upgrader websocket.Upgrader
}

func NewWSHandler(sessions services.SessionService, events Subscriber, allowedOrigins []string) *WSHandler {
	allow := map[string]struct{}{}
	for _, o := range allowedOrigins {
		allow[o] = struct{}{}
	}
	return &WSHandler{
		sessions: sessions,
		events:   events,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if len(allow) == 0 {
					return true
				}
				_, ok := allow[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

type wsClientMsg struct {
	Type string `json:"type"`
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (w *wsConn) writeJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return w.writeText(b)
}

func (h *WSHandler) SessionWS(c *gin.Context) {
	candidateID, sessionID, ok := requireInterview(c)
	if !ok {
		return
	}

	sess, err := h.sessions.Get(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	if sess.CandidateID != candidateID {
		writeError(c, utils.E(utils.CodeForbidden, "WSHandler.SessionWS", "forbidden", nil))
		return
	}
	if h.events == nil {
		writeError(c, utils.E(utils.CodeUnavailable, "WSHandler.SessionWS", "live events are not configured", nil))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	pubsub := h.events.Subscribe(ctx, sessionID)
	defer pubsub.Close()
	// subscribe first, then read state, so no change falls between the two
	if _, err := pubsub.Receive(ctx); err != nil {
		return
	}
	if sess, err = h.sessions.Get(ctx, sessionID); err != nil {
		_ = wc.writeText([]byte(`{"type":"error","code":"INTERNAL","message":"session unavailable"}`))
		return
	}

	progress := sess.Progress
	snapshot := models.SessionEvent{Type: models.EventProgress, SessionID: sess.ID, Progress: &progress, At: time.Now().UTC()}
	if sess.IsCompleted {
		snapshot.Type = models.EventCompleted
	}
	if err := wc.writeJSON(snapshot); err != nil {
		return
	}

	// reader: only keeps the connection alive and notices the close
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})

		for {
			_, data, rerr := conn.ReadMessage()
			if rerr != nil {
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))

			var msg wsClientMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				_ = wc.writeText([]byte(`{"type":"error","code":"INVALID_ARGUMENT","message":"invalid json"}`))
				continue
			}
			switch msg.Type {
			case "ping":
				_ = wc.writeText([]byte(`{"type":"pong"}`))
			default:
				_ = wc.writeText([]byte(`{"type":"error","code":"INVALID_ARGUMENT","message":"unknown message type"}`))
			}
		}
	}()

	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()

	// writer: Redis Pub/Sub -> WS
	ch := pubsub.Channel()
	for {
		select {
		case <-readDone:
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			wc.mu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			wc.mu.Unlock()
			if err != nil {
				return
			}
		case m, ok := <-ch:
			if !ok {
				return
			}
			// forward as-is (payload is a JSON SessionEvent)
			if werr := wc.writeText([]byte(m.Payload)); werr != nil {
				return
			}
		}
	}
}
