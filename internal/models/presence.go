package models

import "time"

// PresenceStatus is a host's advertised availability.
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
)

// PresenceRecord is the persisted last-known status of a host. The live
// WebSocket connection is the authoritative signal; this record is the
// best-effort durable copy served to new subscribers.
type PresenceRecord struct {
	UserID         string         `json:"userId"`
	Status         PresenceStatus `json:"status"`
	LastActiveTime time.Time      `json:"lastActiveTime"`
}
