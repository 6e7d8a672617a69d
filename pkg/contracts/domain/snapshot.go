package domain

import (
	"time"
)

// Connection status labels shown on the dashboard.
const (
	StatusOnline  = "Online"
	StatusOffline = "Offline (Use Backup File)"
	StatusError   = "Error"
)

// SourceStatus describes the outcome of the most recent acquisition.
type SourceStatus struct {
	Connected bool      `json:"connected"`
	Label     string    `json:"label"`
	Source    string    `json:"source"`
	UpdatedAt time.Time `json:"updated_at"`
	Error     string    `json:"error,omitempty"`
}

// Snapshot is an immutable, versioned record set held for the dashboard.
// A new snapshot replaces the previous one wholesale; nothing mutates it.
type Snapshot struct {
	ID      string       `json:"id"`
	Version uint64       `json:"version"`
	Digest  string       `json:"digest"`
	Records RecordSet    `json:"-"`
	Status  SourceStatus `json:"status"`
}

// EmptySnapshot is the state before the first acquisition completes.
func EmptySnapshot() *Snapshot {
	return &Snapshot{
		Status: SourceStatus{Label: StatusOffline},
	}
}
