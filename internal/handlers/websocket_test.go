package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/instacall/signaling/internal/auth"
	"github.com/instacall/signaling/internal/hub"
	"github.com/instacall/signaling/internal/models"
	"github.com/instacall/signaling/internal/presence"
)

type memStore struct {
	mu   sync.Mutex
	recs map[string]models.PresenceRecord
}

func newMemStore() *memStore {
	return &memStore{recs: make(map[string]models.PresenceRecord)}
}

func (s *memStore) Get(_ context.Context, userID string) (models.PresenceRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[userID]
	return rec, ok, nil
}

func (s *memStore) Upsert(_ context.Context, rec models.PresenceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[rec.UserID] = rec
	return nil
}

func (s *memStore) Touch(_ context.Context, userID string, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.recs[userID]
	rec.UserID = userID
	rec.LastActiveTime = t
	s.recs[userID] = rec
	return nil
}

func newTestServer(t *testing.T) (*httptest.Server, *auth.Verifier) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	verifier := auth.NewVerifier("test-secret", time.Hour)
	h := hub.New(hub.Config{Verifier: verifier, SendBuffer: 16})
	gateway := presence.NewGateway(newMemStore(), h.BroadcastStatus)
	h.SetPresence(gateway)

	router := gin.New()
	router.POST("/api/auth/login", Login(verifier))
	router.GET("/ws", HandleSignaling(h))

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, verifier
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func writeJSON(t *testing.T, ws *websocket.Conn, msg string) {
	t.Helper()
	if err := ws.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readJSON(t *testing.T, ws *websocket.Conn) map[string]any {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
	return m
}

func TestSubscribeOverWebSocket(t *testing.T) {
	srv, _ := newTestServer(t)

	ws := dial(t, srv)
	writeJSON(t, ws, `{"type":"subscribe","hostId":"h1"}`)

	m := readJSON(t, ws)
	if m["type"] != "status_update" || m["status"] != "offline" {
		t.Fatalf("unexpected reply: %v", m)
	}
}

func TestHostPresenceOverWebSocket(t *testing.T) {
	srv, verifier := newTestServer(t)

	visitor := dial(t, srv)
	writeJSON(t, visitor, `{"type":"subscribe","hostId":"h1"}`)
	if m := readJSON(t, visitor); m["status"] != "offline" {
		t.Fatalf("expected initial offline, got %v", m)
	}

	token, err := verifier.Issue("h1", time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	host := dial(t, srv)
	writeJSON(t, host, fmt.Sprintf(`{"type":"auth","token":%q}`, token))

	if m := readJSON(t, visitor); m["status"] != "online" {
		t.Fatalf("expected online push, got %v", m)
	}

	host.Close()
	if m := readJSON(t, visitor); m["status"] != "offline" {
		t.Fatalf("expected offline push after host close, got %v", m)
	}
}

func TestCallHandshakeOverWebSocket(t *testing.T) {
	srv, verifier := newTestServer(t)

	// subscribe first and wait for the online push so the call-request is
	// guaranteed to find the host registered
	visitor := dial(t, srv)
	writeJSON(t, visitor, `{"type":"subscribe","hostId":"h1"}`)
	if m := readJSON(t, visitor); m["status"] != "offline" {
		t.Fatalf("expected initial offline, got %v", m)
	}

	token, err := verifier.Issue("h1", time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	host := dial(t, srv)
	writeJSON(t, host, fmt.Sprintf(`{"type":"auth","token":%q}`, token))
	if m := readJSON(t, visitor); m["status"] != "online" {
		t.Fatalf("expected online push, got %v", m)
	}

	writeJSON(t, visitor, `{"type":"call-request","hostId":"h1","visitorName":"Ann"}`)

	incoming := readJSON(t, host)
	if incoming["type"] != "incoming-call" {
		t.Fatalf("expected incoming-call, got %v", incoming)
	}
	callID := incoming["callId"].(string)

	writeJSON(t, host, fmt.Sprintf(`{"type":"call-answer","callId":%q}`, callID))
	accepted := readJSON(t, visitor)
	if accepted["type"] != "call-accepted" || accepted["callId"] != callID {
		t.Fatalf("expected call-accepted with %q, got %v", callID, accepted)
	}

	// negotiation frames relay verbatim once the call is active
	writeJSON(t, visitor, `{"type":"webrtc-offer","sdp":"opaque-offer"}`)
	offer := readJSON(t, host)
	if offer["type"] != "webrtc-offer" || offer["sdp"] != "opaque-offer" {
		t.Fatalf("relay mangled the frame: %v", offer)
	}
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	srv, verifier := newTestServer(t)

	body := bytes.NewBufferString(`{"username":"h1","password":"x"}`)
	resp, err := http.Post(srv.URL+"/api/auth/login", "application/json", body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var out LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	userID, err := verifier.Verify(out.Token)
	if err != nil || userID != "h1" {
		t.Fatalf("issued token does not verify: user=%q err=%v", userID, err)
	}
}

func TestLoginRejectsBadBody(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/auth/login", "application/json", bytes.NewBufferString(`{}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestOriginFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(OriginFilter([]string{"https://ok.example"}))
	router.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
	srv := httptest.NewServer(router)
	defer srv.Close()

	cases := []struct {
		origin string
		want   int
	}{
		{"", http.StatusOK},
		{"https://ok.example", http.StatusOK},
		{"https://evil.example", http.StatusForbidden},
	}
	for _, tc := range cases {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
		if tc.origin != "" {
			req.Header.Set("Origin", tc.origin)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != tc.want {
			t.Fatalf("origin %q: expected %d, got %d", tc.origin, tc.want, resp.StatusCode)
		}
	}
}
