package domain

import "time"

// SyncStatus describes whether a local row has been reconciled with a remote store.
type SyncStatus string

// Sync statuses.
const (
	SyncPending  SyncStatus = "pending"
	SyncSynced   SyncStatus = "synced"
	SyncConflict SyncStatus = "conflict"
)

// Valid reports whether s is one of the known statuses.
func (s SyncStatus) Valid() bool {
	switch s {
	case SyncPending, SyncSynced, SyncConflict:
		return true
	default:
		return false
	}
}

// Syncable provides the fields shared by every library row that participates in synchronization.
// It gets embedded in ReadingList, SavedBook and ListBook.
type Syncable struct {
	UpdatedAt  time.Time  `json:"updated_at"`
	ServerID   *string    `json:"server_id,omitempty"`
	ID         string     `json:"id"`
	SyncStatus SyncStatus `json:"local_sync_status"`
}

// Touch bumps UpdatedAt and marks the row as pending.
// Call this whenever the underlying row changes.
func (s *Syncable) Touch(now time.Time) {
	s.UpdatedAt = now
	s.SyncStatus = SyncPending
}

// MarkSynced records a successful reconciliation with the given server identity.
func (s *Syncable) MarkSynced(serverID string, now time.Time) {
	s.ServerID = &serverID
	s.SyncStatus = SyncSynced
	s.UpdatedAt = now
}

// MarkConflict flags the row as conflicting with the remote copy.
func (s *Syncable) MarkConflict(now time.Time) {
	s.SyncStatus = SyncConflict
	s.UpdatedAt = now
}

// Now returns the current time truncated to millisecond precision,
// which is the resolution rows are persisted and exported with.
func Now() time.Time {
	return time.UnixMilli(time.Now().UnixMilli())
}

// FromMillis converts an epoch-ms value to a time.Time.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}

// Millis converts t to epoch milliseconds.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}
