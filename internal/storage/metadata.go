package storage

import (
	"time"
)

// DatabaseRecord registers a database file with the journal
type DatabaseRecord struct {
	ID      string    `json:"id"`
	Path    string    `json:"path"`
	Created time.Time `json:"created"`
}

// SyncEntry records one sync attempt
type SyncEntry struct {
	Time           time.Time `json:"time"`
	Outcome        string    `json:"outcome"`
	LocalRevision  uint32    `json:"localRevision"`
	RemoteRevision uint32    `json:"remoteRevision"`
	Revision       uint32    `json:"revision"` // Local revision once the sync finished
	Error          string    `json:"error,omitempty"`
}

// Succeeded reports whether the sync completed
func (e SyncEntry) Succeeded() bool {
	return e.Error == ""
}
