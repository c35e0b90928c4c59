// Package store defines the persistence contract for the library: three row
// tables, scoped write transactions and post-commit change notifications.
package store

import (
	"time"

	"github.com/google/uuid"
)

// Table names, shared by every engine and by change notifications.
const (
	TableReadingLists = "reading_lists"
	TableSavedBooks   = "saved_books"
	TableListBooks    = "list_books"
)

// Op is the kind of mutation a Change describes.
type Op string

// Mutation kinds.
const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change describes one committed row mutation. RowID is empty for bulk deletes.
type Change struct {
	At    time.Time `json:"at"`
	ID    string    `json:"id"`
	Table string    `json:"table"`
	Op    Op        `json:"op"`
	RowID string    `json:"row_id,omitempty"`
}

// EventEmitter receives changes after the transaction that produced them commits.
// Store uses this to notify observers without depending on the watch implementation.
type EventEmitter interface {
	Emit(change Change)
}

// NoopEmitter is a no-op implementation of EventEmitter for testing.
type NoopEmitter struct{}

// Emit implements EventEmitter.Emit as a no-op.
func (NoopEmitter) Emit(_ Change) {}

// NewNoopEmitter creates a new no-op emitter.
func NewNoopEmitter() EventEmitter {
	return NoopEmitter{}
}

// ChangeLog buffers the changes of an open transaction. Engines call Flush
// only once the transaction has committed and discard the log on rollback.
type ChangeLog struct {
	changes []Change
}

// Record appends a change for table/rowID.
func (l *ChangeLog) Record(table string, op Op, rowID string) {
	l.changes = append(l.changes, Change{
		ID:    uuid.NewString(),
		Table: table,
		Op:    op,
		RowID: rowID,
		At:    time.Now(),
	})
}

// Len returns the number of buffered changes.
func (l *ChangeLog) Len() int {
	return len(l.changes)
}

// Flush emits every buffered change in order and empties the log.
func (l *ChangeLog) Flush(emitter EventEmitter) {
	for _, c := range l.changes {
		emitter.Emit(c)
	}
	l.changes = nil
}
