package hub

import "time"

// CallState is the lifecycle state of one call attempt.
type CallState int

const (
	StateRinging CallState = iota
	StateActive
	StateTerminated
)

func (s CallState) String() string {
	switch s {
	case StateRinging:
		return "ringing"
	case StateActive:
		return "active"
	case StateTerminated:
		return "terminated"
	}
	return "unknown"
}

// CallSession pairs a visitor connection with a host connection for one call
// attempt. Participants never change after creation; the session is reachable
// only through the participants' call-id fields and the hub's session table,
// and is discarded when it terminates.
type CallSession struct {
	ID           string
	CallerID     string // visitor conn id
	CalleeID     string // host conn id
	HostUserID   string
	VisitorName  string
	VisitorEmail string
	State        CallState
	CreatedAt    time.Time
}

// peerOf resolves the other participant's conn id.
func (s *CallSession) peerOf(connID string) string {
	if connID == s.CallerID {
		return s.CalleeID
	}
	return s.CallerID
}

func (s *CallSession) isParticipant(connID string) bool {
	return connID == s.CallerID || connID == s.CalleeID
}
