package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/openbookapp/openbook-library/internal/domain"
	"github.com/openbookapp/openbook-library/internal/store"
)

// listBookColumns is the ordered list of columns selected in membership queries.
// Must match the scan order in scanListBook.
const listBookColumns = `id, list_id, book_id, added_at, sort_order, updated_at, local_sync_status, server_id`

func scanListBook(sc scanner) (*domain.ListBook, error) {
	var (
		lb        domain.ListBook
		addedAt   int64
		updatedAt int64
		serverID  sql.NullString
	)

	err := sc.Scan(
		&lb.ID,
		&lb.ListID,
		&lb.BookID,
		&addedAt,
		&lb.SortOrder,
		&updatedAt,
		&lb.SyncStatus,
		&serverID,
	)
	if err != nil {
		return nil, err
	}

	lb.AddedAt = parseTime(addedAt)
	lb.UpdatedAt = parseTime(updatedAt)
	lb.ServerID = parseNullableString(serverID)
	return &lb, nil
}

// whereListBook builds the WHERE clause for filter.
func whereListBook(filter store.ListBookFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if filter.ListID != "" {
		conds = append(conds, "list_id = ?")
		args = append(args, filter.ListID)
	}
	if filter.BookID != "" {
		conds = append(conds, "book_id = ?")
		args = append(args, filter.BookID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListListBooks returns matching membership rows ordered by sort order.
func (r reader) ListListBooks(ctx context.Context, filter store.ListBookFilter) ([]*domain.ListBook, error) {
	where, args := whereListBook(filter)
	return queryAll(ctx, r.q, scanListBook,
		`SELECT `+listBookColumns+` FROM list_books`+where+` ORDER BY sort_order, added_at, id`, args...)
}

// CountListBooks counts matching membership rows.
func (r reader) CountListBooks(ctx context.Context, filter store.ListBookFilter) (int, error) {
	where, args := whereListBook(filter)

	var n int
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM list_books`+where, args...).Scan(&n)
	return n, err
}

// CreateListBook inserts a membership row. Returns store.ErrAlreadyExists on duplicate ID.
func (w *writer) CreateListBook(ctx context.Context, lb *domain.ListBook) error {
	_, err := w.q.ExecContext(ctx, `
		INSERT INTO list_books (`+listBookColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		lb.ID,
		lb.ListID,
		lb.BookID,
		formatTime(lb.AddedAt),
		lb.SortOrder,
		formatTime(lb.UpdatedAt),
		lb.SyncStatus,
		nullableString(lb.ServerID),
	)
	if isUniqueViolation(err) {
		return store.AlreadyExists(store.TableListBooks, lb.ID)
	}
	if err != nil {
		return err
	}

	w.changes.Record(store.TableListBooks, store.OpCreate, lb.ID)
	return nil
}

// DeleteListBooks removes matching membership rows and returns how many were removed.
func (w *writer) DeleteListBooks(ctx context.Context, filter store.ListBookFilter) (int, error) {
	where, args := whereListBook(filter)

	n, err := execDelete(ctx, w.q, `DELETE FROM list_books`+where, args...)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		w.changes.Record(store.TableListBooks, store.OpDelete, "")
	}
	return n, nil
}
