package models

import "time"

// SyncStatus is a point-in-time view of the client's sync state.
type SyncStatus struct {
	Online            bool
	Transport         string
	PendingOperations int
	PendingByKind     map[Kind]int
	// HeldOperations are queued by other users of the device and wait for
	// them to sign in again.
	HeldOperations int
	LastSync       *time.Time
	Draining       bool
}

// Session identifies the signed-in field officer.
type Session struct {
	UserID   string
	Username string
}
