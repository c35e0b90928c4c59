// Package sqlite implements store.Store on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/openbookapp/openbook-library/internal/store"

	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed persistence for the library.
type Store struct {
	reader

	db      *sql.DB
	logger  *slog.Logger
	emitter store.EventEmitter

	// writeMu serializes write transactions; SQLite allows one writer.
	writeMu sync.Mutex
}

var _ store.Store = (*Store)(nil)

// Pragmas are passed through the DSN so every pooled connection gets them.
const dsnParams = "?_pragma=foreign_keys(1)" +
	"&_pragma=busy_timeout(5000)" +
	"&_pragma=journal_mode(WAL)" +
	"&_pragma=synchronous(NORMAL)" +
	"&_txlock=immediate"

// Open creates or opens the SQLite database at path and applies pending migrations.
// A nil emitter disables change notifications.
func Open(path string, logger *slog.Logger, emitter store.EventEmitter) (*Store, error) {
	if emitter == nil {
		emitter = store.NewNoopEmitter()
	}

	db, err := sql.Open("sqlite", path+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if err := migrate(db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("sqlite store opened", "path", path)

	return &Store{
		reader:  reader{q: db},
		db:      db,
		logger:  logger,
		emitter: emitter,
	}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SchemaVersion returns the applied migration version.
func (s *Store) SchemaVersion() (int64, error) {
	return schemaVersion(s.db, s.logger)
}

// WriteTx runs fn in a single SQLite transaction and emits its changes after commit.
func (s *Store) WriteTx(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer sqlTx.Rollback()

	tx := &writer{reader: reader{q: sqlTx}}
	if err := fn(tx); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	tx.changes.Flush(s.emitter)
	return nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// reader implements store.Reader against either the pool or an open transaction.
type reader struct {
	q querier
}

// writer implements store.Tx inside an open transaction.
type writer struct {
	reader
	changes store.ChangeLog
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// queryAll runs query and scans every row with scan.
func queryAll[T any](ctx context.Context, q querier, scan func(scanner) (T, error), query string, args ...any) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// execDelete runs a delete statement and returns the affected row count.
func execDelete(ctx context.Context, q querier, query string, args ...any) (int, error) {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// formatTime converts a time.Time to epoch milliseconds for storage.
func formatTime(t time.Time) int64 {
	return t.UnixMilli()
}

// parseTime converts stored epoch milliseconds back to time.Time.
func parseTime(ms int64) time.Time {
	return time.UnixMilli(ms)
}

// nullTime converts an optional time to a nullable integer column.
func nullTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

// parseNullableTime converts a nullable integer column to an optional time.
func parseNullableTime(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64)
	return &t
}

// nullableString returns a sql.NullString from a *string.
func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func parseNullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

// nullableInt returns a sql.NullInt64 from an *int.
func nullableInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func parseNullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
