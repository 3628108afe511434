package models

import "time"

// CallOutcome classifies how a call attempt finished.
type CallOutcome string

const (
	// OutcomeCompleted: the call was answered and later ended by either side.
	OutcomeCompleted CallOutcome = "completed"
	// OutcomeMissed: the caller gave up (or dropped) while the host was still ringing.
	OutcomeMissed CallOutcome = "missed"
	// OutcomeRejected: the host declined or hung up on the attempt before answering.
	OutcomeRejected CallOutcome = "rejected"
	// OutcomeFailed: the host connection dropped while ringing.
	OutcomeFailed CallOutcome = "failed"
)

// CallRecord is one entry in a host's call history.
type CallRecord struct {
	CallID       string      `json:"callId"`
	HostID       string      `json:"hostId"`
	VisitorName  string      `json:"visitorName"`
	VisitorEmail string      `json:"visitorEmail,omitempty"`
	StartedAt    time.Time   `json:"startedAt"`
	EndedAt      time.Time   `json:"endedAt"`
	Duration     float64     `json:"duration"` // seconds
	Outcome      CallOutcome `json:"outcome"`
}
