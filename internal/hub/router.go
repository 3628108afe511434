package hub

import (
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/instacall/signaling/internal/models"
	"github.com/instacall/signaling/internal/obs"
)

// HandleMessage parses one inbound frame and dispatches it. Unparseable
// input is dropped and logged; the connection stays open.
func (h *Hub) HandleMessage(c *Conn, raw []byte) {
	var env models.Envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Type == "" {
		log.Printf("conn %s: dropping unparseable message", c.ID)
		return
	}

	switch env.Type {
	case models.TypeAuth:
		h.handleAuth(c, env)
	case models.TypeSubscribe:
		h.handleSubscribe(c, env)
	case models.TypePing:
		h.handlePing(c)
	case models.TypeCallRequest:
		h.handleCallRequest(c, env)
	case models.TypeCallAnswer:
		h.handleCallAnswer(c, env)
	case models.TypeCallDecline:
		h.handleCallDecline(c, env)
	case models.TypeCallEnd:
		h.handleCallEnd(c)
	case models.TypeWebRTCOffer, models.TypeWebRTCAnswer, models.TypeICECandidate:
		h.relay(c, env.Type, raw)
	default:
		log.Printf("conn %s: unknown message type %q", c.ID, env.Type)
	}
}

func (h *Hub) handleAuth(c *Conn, env models.Envelope) {
	if env.Token == "" {
		c.sendJSON(models.ErrorMessage{Type: models.TypeError, Message: "Missing token"})
		return
	}
	userID, err := h.verifier.Verify(env.Token)
	if err != nil {
		c.sendJSON(models.ErrorMessage{Type: models.TypeError, Message: "Invalid token"})
		return
	}

	h.mu.Lock()
	prev, released := h.reg.setHost(c, userID)
	hosts := len(h.reg.hosts)
	h.mu.Unlock()

	obs.OnlineHosts.Set(float64(hosts))
	if prev != nil {
		log.Printf("host %s: conn %s replaces %s", userID, c.ID, prev.ID)
	}
	if released != "" {
		log.Printf("conn %s: re-authenticated as %s, releasing host %s", c.ID, userID, released)
		h.presence.MarkOffline(released)
	}
	h.presence.MarkOnline(userID)
}

func (h *Hub) handleSubscribe(c *Conn, env models.Envelope) {
	if env.HostID == "" {
		c.sendJSON(models.ErrorMessage{Type: models.TypeError, Message: "Missing hostId"})
		return
	}

	h.mu.Lock()
	released := h.reg.setWatch(c, env.HostID)
	hosts := len(h.reg.hosts)
	h.mu.Unlock()

	if released != "" {
		obs.OnlineHosts.Set(float64(hosts))
		log.Printf("conn %s: subscribed as visitor, releasing host %s", c.ID, released)
		h.presence.MarkOffline(released)
	}

	// Reply immediately with the last known status so the widget renders
	// without waiting for the next transition.
	status := h.presence.Current(env.HostID)
	c.sendJSON(models.StatusUpdate{Type: models.TypeStatusUpdate, Status: status})
}

func (h *Hub) handlePing(c *Conn) {
	h.mu.Lock()
	role, userID := c.role, c.userID
	h.mu.Unlock()

	if role != RoleHost || userID == "" {
		return
	}
	h.presence.Touch(userID)
}

func (h *Hub) handleCallRequest(c *Conn, env models.Envelope) {
	obs.CallRequestsTotal.Inc()

	h.mu.Lock()
	host, ok := h.reg.hostConn(env.HostID)
	switch {
	case env.HostID == "" || !ok:
		h.mu.Unlock()
		c.sendJSON(models.ErrorMessage{Type: models.TypeCallError, Message: "Host is offline or unavailable"})
		return
	case host.pendingCallID != "" || host.activeCallID != "":
		h.mu.Unlock()
		c.sendJSON(models.ErrorMessage{Type: models.TypeCallError, Message: "Host is busy on another call"})
		return
	case c.pendingCallID != "" || c.activeCallID != "":
		h.mu.Unlock()
		c.sendJSON(models.ErrorMessage{Type: models.TypeCallError, Message: "Already in a call"})
		return
	}

	sess := &CallSession{
		ID:           uuid.New().String(),
		CallerID:     c.ID,
		CalleeID:     host.ID,
		HostUserID:   env.HostID,
		VisitorName:  env.VisitorName,
		VisitorEmail: env.VisitorEmail,
		State:        StateRinging,
		CreatedAt:    time.Now(),
	}
	h.sessions[sess.ID] = sess
	c.pendingCallID = sess.ID
	host.pendingCallID = sess.ID
	h.mu.Unlock()

	host.sendJSON(models.IncomingCall{
		Type:    models.TypeIncomingCall,
		Visitor: models.VisitorInfo{Name: env.VisitorName, Email: env.VisitorEmail},
		CallID:  sess.ID,
	})
	log.Printf("call %s: %q ringing host %s", sess.ID, env.VisitorName, env.HostID)
}

func (h *Hub) handleCallAnswer(c *Conn, env models.Envelope) {
	h.mu.Lock()
	sess := h.sessions[env.CallID]
	if sess == nil || sess.State != StateRinging || sess.CalleeID != c.ID || c.pendingCallID != env.CallID {
		h.mu.Unlock()
		// Stale race from a superseded request; no reply.
		log.Printf("conn %s: ignoring call-answer for unknown call %q", c.ID, env.CallID)
		return
	}
	sess.State = StateActive
	c.pendingCallID = ""
	c.activeCallID = sess.ID
	caller := h.reg.conns[sess.CallerID]
	if caller != nil {
		caller.pendingCallID = ""
		caller.activeCallID = sess.ID
	}
	h.mu.Unlock()

	if caller != nil {
		caller.sendJSON(models.CallSignal{Type: models.TypeCallAccepted, CallID: sess.ID})
	}
	log.Printf("call %s: answered", sess.ID)
}

func (h *Hub) handleCallDecline(c *Conn, env models.Envelope) {
	h.mu.Lock()
	sess := h.sessions[env.CallID]
	if sess == nil || sess.State != StateRinging || sess.CalleeID != c.ID || c.pendingCallID != env.CallID {
		h.mu.Unlock()
		log.Printf("conn %s: ignoring call-decline for unknown call %q", c.ID, env.CallID)
		return
	}
	sess.State = StateTerminated
	delete(h.sessions, sess.ID)
	c.pendingCallID = ""
	caller := h.reg.conns[sess.CallerID]
	if caller != nil {
		caller.pendingCallID = ""
	}
	h.mu.Unlock()

	if caller != nil {
		caller.sendJSON(models.CallSignal{Type: models.TypeCallDeclined, CallID: sess.ID})
	}
	h.recordCall(sess, models.OutcomeRejected)
	log.Printf("call %s: declined", sess.ID)
}

func (h *Hub) handleCallEnd(c *Conn) {
	h.mu.Lock()
	end := h.terminateLocked(c, false)
	h.mu.Unlock()

	if end == nil {
		return
	}
	h.finishCall(end)
	log.Printf("call %s: ended", end.sess.ID)
}

// relay forwards a negotiation frame verbatim to the session peer. Payload
// contents are never inspected. No resolvable live peer means the frame is
// dropped with a warning; negotiation is fire-and-forget.
func (h *Hub) relay(c *Conn, typ models.MessageType, raw []byte) {
	h.mu.Lock()
	var peer *Conn
	if id := c.activeCallID; id != "" {
		if sess := h.sessions[id]; sess != nil && sess.State == StateActive && sess.isParticipant(c.ID) {
			peer = h.reg.conns[sess.peerOf(c.ID)]
		}
	}
	h.mu.Unlock()

	if peer == nil {
		obs.RelayDroppedTotal.Inc()
		log.Printf("conn %s: cannot relay %s, no live peer", c.ID, typ)
		return
	}
	peer.enqueue(raw)
	obs.RelayedTotal.WithLabelValues(string(typ)).Inc()
}
