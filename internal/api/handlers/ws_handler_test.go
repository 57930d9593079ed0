package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/recruitgenius/backend/internal/api/middleware"
	"github.com/recruitgenius/backend/internal/auth"
	"github.com/recruitgenius/backend/internal/events"
	"github.com/recruitgenius/backend/internal/models"
)

func TestSessionWSForwardsEvents(t *testing.T) {
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer rdb.Close()
	notifier := events.NewRedisNotifier(rdb)

	links := auth.NewInterviewLinks("test-secret", time.Hour, "")
	sessions := newStubSessions(&models.Session{ID: "sess-1", CandidateID: "cand-1", Questions: []string{"q1", "q2"}})

	r := gin.New()
	r.GET("/interview/session/ws", middleware.InterviewToken(links), NewWSHandler(sessions, notifier, nil).SessionWS)
	ts := httptest.NewServer(r)
	defer ts.Close()

	tok, _, _ := links.Issue("cand-1", "sess-1")
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/interview/session/ws?token=" + tok
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	var first models.SessionEvent
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if first.Type != models.EventProgress || first.Progress == nil || *first.Progress != 0 {
		t.Fatalf("snapshot = %+v", first)
	}

	progress := 1
	if err := notifier.Publish(context.Background(), models.SessionEvent{Type: models.EventProgress, SessionID: "sess-1", Progress: &progress}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	var got models.SessionEvent
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Type != models.EventProgress || got.Progress == nil || *got.Progress != 1 {
		t.Fatalf("event = %+v", got)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, data, err = conn.ReadMessage()
	if err != nil || !strings.Contains(string(data), "pong") {
		t.Fatalf("pong: %q %v", data, err)
	}
}

func TestSessionWSRejectsForeignCandidate(t *testing.T) {
	links := auth.NewInterviewLinks("test-secret", time.Hour, "")
	sessions := newStubSessions(&models.Session{ID: "sess-1", CandidateID: "cand-1", Questions: []string{"q1"}})

	r := gin.New()
	r.GET("/ws", middleware.InterviewToken(links), NewWSHandler(sessions, nil, nil).SessionWS)

	tok, _, _ := links.Issue("someone-else", "sess-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/ws?token="+tok, nil))
	if w.Code != 403 {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestSessionWSUnavailableWithoutEvents(t *testing.T) {
	links := auth.NewInterviewLinks("test-secret", time.Hour, "")
	sessions := newStubSessions(&models.Session{ID: "sess-1", CandidateID: "cand-1", Questions: []string{"q1"}})

	r := gin.New()
	r.GET("/ws", middleware.InterviewToken(links), NewWSHandler(sessions, nil, nil).SessionWS)

	tok, _, _ := links.Issue("cand-1", "sess-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/ws?token="+tok, nil))
	if w.Code != 503 {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

type hookedSubscriber struct {
	Subscriber
	onSubscribe func()
}

func (s hookedSubscriber) Subscribe(ctx context.Context, sessionID string) *redis.PubSub {
	s.onSubscribe()
	return s.Subscriber.Subscribe(ctx, sessionID)
}

func TestSessionWSSnapshotReflectsStateAtSubscription(t *testing.T) {
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer rdb.Close()

	links := auth.NewInterviewLinks("test-secret", time.Hour, "")
	sessions := newStubSessions(&models.Session{ID: "sess-1", CandidateID: "cand-1", Questions: []string{"q1", "q2"}})
	// the candidate advances after the ownership check but before the
	// subscription is live; its progress event is never seen on the channel
	sub := hookedSubscriber{
		Subscriber: events.NewRedisNotifier(rdb),
		onSubscribe: func() {
			sessions.mu.Lock()
			sessions.sessions["sess-1"].Progress = 1
			sessions.mu.Unlock()
		},
	}

	r := gin.New()
	r.GET("/ws", middleware.InterviewToken(links), NewWSHandler(sessions, sub, nil).SessionWS)
	ts := httptest.NewServer(r)
	defer ts.Close()

	tok, _, _ := links.Issue("cand-1", "sess-1")
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws?token="+tok, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	var first models.SessionEvent
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if first.Progress == nil || *first.Progress != 1 {
		t.Fatalf("snapshot progress = %v, want 1", first.Progress)
	}
}
