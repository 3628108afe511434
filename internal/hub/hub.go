// Package hub is the real-time core of the instant-call service: it tracks
// which hosts are online, fans presence changes out to watchers, brokers the
// visitor/host call handshake and relays opaque WebRTC negotiation frames
// between paired connections.
package hub

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/instacall/signaling/internal/models"
	"github.com/instacall/signaling/internal/obs"
)

// TokenVerifier maps an opaque credential to a host user ID.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Presence reconciles in-memory online state with the persisted store and
// fans status changes out to watchers.
type Presence interface {
	MarkOnline(userID string)
	MarkOffline(userID string)
	Current(userID string) models.PresenceStatus
	Touch(userID string)
}

// HistoryRecorder receives a record for every terminated call session.
type HistoryRecorder interface {
	Record(rec models.CallRecord)
}

// Config carries the hub's collaborators and tuning knobs.
type Config struct {
	Verifier   TokenVerifier
	History    HistoryRecorder
	SendBuffer int
}

// Hub owns the connection registry and the call session table. All index and
// session mutation is serialized behind one mutex; network sends go through
// per-connection buffered channels and never happen under the lock.
type Hub struct {
	verifier   TokenVerifier
	presence   Presence
	history    HistoryRecorder
	sendBuffer int

	mu       sync.Mutex
	reg      *registry
	sessions map[string]*CallSession
}

func New(cfg Config) *Hub {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 256
	}
	return &Hub{
		verifier:   cfg.Verifier,
		history:    cfg.History,
		sendBuffer: cfg.SendBuffer,
		reg:        newRegistry(),
		sessions:   make(map[string]*CallSession),
	}
}

// SetPresence attaches the presence gateway. Required: must be called once
// during wiring, before any connection is served; the gateway needs the hub
// for broadcasts, hence the two-step construction.
func (h *Hub) SetPresence(p Presence) {
	h.presence = p
}

// ServeConn registers ws and pumps it until the transport dies. Blocks for
// the life of the connection.
func (h *Hub) ServeConn(ws *websocket.Conn) {
	c := newConn(ws, h.sendBuffer)
	h.register(c)
	go c.writePump()
	c.readPump(h)
}

func (h *Hub) register(c *Conn) {
	h.mu.Lock()
	h.reg.add(c)
	total := len(h.reg.conns)
	h.mu.Unlock()

	obs.ActiveConnections.Set(float64(total))
	log.Printf("conn %s: connected (%d active)", c.ID, total)
}

// Disconnect runs the full cleanup path for a connection: terminate its call
// session (notifying the peer), drop it from every index, and mark the host
// offline if this was the indexed host conn. Idempotent; both the read pump
// and the heartbeat monitor may call it for the same conn.
func (h *Hub) Disconnect(c *Conn) {
	h.mu.Lock()
	wasIndexedHost := c.userID != "" && h.reg.hosts[c.userID] == c
	if !h.reg.remove(c) {
		h.mu.Unlock()
		return
	}
	userID := c.userID
	end := h.terminateLocked(c, true)
	total := len(h.reg.conns)
	hosts := len(h.reg.hosts)
	h.mu.Unlock()

	obs.ActiveConnections.Set(float64(total))
	obs.OnlineHosts.Set(float64(hosts))

	h.finishCall(end)
	if wasIndexedHost {
		h.presence.MarkOffline(userID)
	}
	c.close()
	log.Printf("conn %s: disconnected (%d active)", c.ID, total)
}

// BroadcastStatus pushes a status_update to every watcher of hostID. Invoked
// by the presence gateway on every online/offline transition.
func (h *Hub) BroadcastStatus(hostID string, status models.PresenceStatus) {
	h.mu.Lock()
	subs := h.reg.subscribers(hostID)
	h.mu.Unlock()

	if len(subs) == 0 {
		return
	}
	msg := models.StatusUpdate{Type: models.TypeStatusUpdate, Status: status}
	for _, s := range subs {
		s.sendJSON(msg)
	}
	obs.StatusFanoutTotal.Add(float64(len(subs)))
}

// callEnd describes a terminated session and what remains to be done outside
// the lock: notify the surviving peer and record history.
type callEnd struct {
	sess    *CallSession
	peer    *Conn
	notify  bool
	outcome models.CallOutcome
}

// terminateLocked tears down c's pending or active session, if any. Caller
// holds h.mu. disconnected distinguishes an abrupt drop from an explicit
// call-end for outcome classification.
func (h *Hub) terminateLocked(c *Conn, disconnected bool) *callEnd {
	callID := c.activeCallID
	if callID == "" {
		callID = c.pendingCallID
	}
	if callID == "" {
		return nil
	}
	sess := h.sessions[callID]
	c.pendingCallID = ""
	c.activeCallID = ""
	if sess == nil || sess.State == StateTerminated {
		return nil
	}

	prevState := sess.State
	sess.State = StateTerminated
	delete(h.sessions, callID)

	end := &callEnd{sess: sess, outcome: outcomeOnEnd(prevState, c.ID == sess.CalleeID, disconnected)}
	if peer, ok := h.reg.conns[sess.peerOf(c.ID)]; ok {
		peer.pendingCallID = ""
		peer.activeCallID = ""
		end.peer = peer
		end.notify = true
	}
	return end
}

// finishCall performs the out-of-lock tail of a termination.
func (h *Hub) finishCall(end *callEnd) {
	if end == nil {
		return
	}
	if end.notify {
		end.peer.sendJSON(models.CallSignal{Type: models.TypeCallEnded})
	}
	h.recordCall(end.sess, end.outcome)
}

func (h *Hub) recordCall(sess *CallSession, outcome models.CallOutcome) {
	obs.CallsEndedTotal.WithLabelValues(string(outcome)).Inc()
	if h.history == nil {
		return
	}
	now := time.Now()
	h.history.Record(models.CallRecord{
		CallID:       sess.ID,
		HostID:       sess.HostUserID,
		VisitorName:  sess.VisitorName,
		VisitorEmail: sess.VisitorEmail,
		StartedAt:    sess.CreatedAt,
		EndedAt:      now,
		Duration:     now.Sub(sess.CreatedAt).Seconds(),
		Outcome:      outcome,
	})
}

// outcomeOnEnd classifies a termination that was not an explicit decline.
func outcomeOnEnd(prev CallState, byCallee, disconnected bool) models.CallOutcome {
	if prev == StateActive {
		return models.OutcomeCompleted
	}
	if !byCallee {
		return models.OutcomeMissed
	}
	if disconnected {
		return models.OutcomeFailed
	}
	return models.OutcomeRejected
}
