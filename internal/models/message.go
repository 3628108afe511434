package models

// MessageType identifies a signaling protocol message.
type MessageType string

const (
	// client -> server
	TypeAuth        MessageType = "auth"
	TypeSubscribe   MessageType = "subscribe"
	TypePing        MessageType = "ping"
	TypeCallRequest MessageType = "call-request"
	TypeCallAnswer  MessageType = "call-answer"
	TypeCallDecline MessageType = "call-decline"
	TypeCallEnd     MessageType = "call-end"

	// server -> client
	TypeStatusUpdate MessageType = "status_update"
	TypeIncomingCall MessageType = "incoming-call"
	TypeCallAccepted MessageType = "call-accepted"
	TypeCallDeclined MessageType = "call-declined"
	TypeCallEnded    MessageType = "call-ended"
	TypeCallError    MessageType = "call-error"
	TypeError        MessageType = "error"

	// relayed verbatim between call participants
	TypeWebRTCOffer  MessageType = "webrtc-offer"
	TypeWebRTCAnswer MessageType = "webrtc-answer"
	TypeICECandidate MessageType = "ice-candidate"
)

// Envelope is the union of inbound message fields. Only Type is mandatory;
// each handler checks the fields it needs.
type Envelope struct {
	Type         MessageType `json:"type"`
	Token        string      `json:"token,omitempty"`
	HostID       string      `json:"hostId,omitempty"`
	VisitorName  string      `json:"visitorName,omitempty"`
	VisitorEmail string      `json:"visitorEmail,omitempty"`
	CallID       string      `json:"callId,omitempty"`
}

// VisitorInfo is the caller identity attached to an incoming-call push.
type VisitorInfo struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// StatusUpdate is pushed to subscribers whenever a host's presence changes,
// and once immediately after subscribe.
type StatusUpdate struct {
	Type   MessageType    `json:"type"`
	Status PresenceStatus `json:"status"`
}

// IncomingCall notifies a host of a new call request.
type IncomingCall struct {
	Type    MessageType `json:"type"`
	Visitor VisitorInfo `json:"visitor"`
	CallID  string      `json:"callId"`
}

// CallSignal carries call lifecycle replies (call-accepted, call-declined,
// call-ended).
type CallSignal struct {
	Type   MessageType `json:"type"`
	CallID string      `json:"callId,omitempty"`
}

// ErrorMessage carries call-error and error replies.
type ErrorMessage struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}
