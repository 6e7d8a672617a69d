// Package events contains the websocket message contracts pushed to
// dashboard clients.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// MessageTypeSnapshotUpdated is sent after every snapshot replacement
	MessageTypeSnapshotUpdated MessageType = "snapshot:updated"

	// Connection messages
	MessageTypeConnect MessageType = "connect"
	MessageTypeError   MessageType = "error"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// WebSocketMessage represents a complete WebSocket message
type WebSocketMessage struct {
	BaseMessage
	Data interface{} `json:"data,omitempty"`
}

// SnapshotUpdated tells clients that a new snapshot is available and they
// should re-query the dashboard with their current filters.
type SnapshotUpdated struct {
	SnapshotID string    `json:"snapshot_id"`
	Version    uint64    `json:"version"`
	Records    int       `json:"records"`
	Status     string    `json:"status"`
	Connected  bool      `json:"connected"`
	UpdatedAt  time.Time `json:"updated_at"`
}
