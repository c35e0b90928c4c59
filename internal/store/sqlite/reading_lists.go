package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/openbookapp/openbook-library/internal/domain"
	"github.com/openbookapp/openbook-library/internal/store"
)

// listColumns is the ordered list of columns selected in list queries.
// Must match the scan order in scanList.
const listColumns = `id, name, list_type, icon, color, sort_order, created_at, updated_at, local_sync_status, server_id`

// scanList scans a sql.Row (or sql.Rows via its Scan method) into a domain.ReadingList.
func scanList(sc scanner) (*domain.ReadingList, error) {
	var (
		l         domain.ReadingList
		createdAt int64
		updatedAt int64
		serverID  sql.NullString
	)

	err := sc.Scan(
		&l.ID,
		&l.Name,
		&l.ListType,
		&l.Icon,
		&l.Color,
		&l.SortOrder,
		&createdAt,
		&updatedAt,
		&l.SyncStatus,
		&serverID,
	)
	if err != nil {
		return nil, err
	}

	l.CreatedAt = parseTime(createdAt)
	l.UpdatedAt = parseTime(updatedAt)
	l.ServerID = parseNullableString(serverID)
	return &l, nil
}

// GetList retrieves a list by ID.
func (r reader) GetList(ctx context.Context, id string) (*domain.ReadingList, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+listColumns+` FROM reading_lists WHERE id = ?`, id)

	l, err := scanList(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.NotFound(store.TableReadingLists, id)
	}
	return l, err
}

// ListLists returns every list ordered by sort order.
func (r reader) ListLists(ctx context.Context) ([]*domain.ReadingList, error) {
	return queryAll(ctx, r.q, scanList,
		`SELECT `+listColumns+` FROM reading_lists ORDER BY sort_order, created_at, id`)
}

// CreateList inserts a new list. Returns store.ErrAlreadyExists on duplicate ID.
func (w *writer) CreateList(ctx context.Context, l *domain.ReadingList) error {
	_, err := w.q.ExecContext(ctx, `
		INSERT INTO reading_lists (`+listColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID,
		l.Name,
		l.ListType,
		l.Icon,
		l.Color,
		l.SortOrder,
		formatTime(l.CreatedAt),
		formatTime(l.UpdatedAt),
		l.SyncStatus,
		nullableString(l.ServerID),
	)
	if isUniqueViolation(err) {
		return store.AlreadyExists(store.TableReadingLists, l.ID)
	}
	if err != nil {
		return err
	}

	w.changes.Record(store.TableReadingLists, store.OpCreate, l.ID)
	return nil
}

// UpdateList overwrites every mutable column of an existing list.
func (w *writer) UpdateList(ctx context.Context, l *domain.ReadingList) error {
	res, err := w.q.ExecContext(ctx, `
		UPDATE reading_lists SET
			name = ?, list_type = ?, icon = ?, color = ?, sort_order = ?,
			updated_at = ?, local_sync_status = ?, server_id = ?
		WHERE id = ?`,
		l.Name,
		l.ListType,
		l.Icon,
		l.Color,
		l.SortOrder,
		formatTime(l.UpdatedAt),
		l.SyncStatus,
		nullableString(l.ServerID),
		l.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.NotFound(store.TableReadingLists, l.ID)
	}

	w.changes.Record(store.TableReadingLists, store.OpUpdate, l.ID)
	return nil
}

// DeleteList removes a list by ID.
func (w *writer) DeleteList(ctx context.Context, id string) error {
	n, err := execDelete(ctx, w.q, `DELETE FROM reading_lists WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.NotFound(store.TableReadingLists, id)
	}

	w.changes.Record(store.TableReadingLists, store.OpDelete, id)
	return nil
}

// DeleteLists removes every list matching filter and returns how many were removed.
func (w *writer) DeleteLists(ctx context.Context, filter store.ListFilter) (int, error) {
	query := `DELETE FROM reading_lists`
	var args []any
	if filter.Type != "" {
		query += ` WHERE list_type = ?`
		args = append(args, filter.Type)
	}

	n, err := execDelete(ctx, w.q, query, args...)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		w.changes.Record(store.TableReadingLists, store.OpDelete, "")
	}
	return n, nil
}
