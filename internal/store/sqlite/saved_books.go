package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/openbookapp/openbook-library/internal/domain"
	"github.com/openbookapp/openbook-library/internal/store"
)

// bookColumns is the ordered list of columns selected in book queries.
// Must match the scan order in scanBook.
const bookColumns = `id, work_key, title, author_names, cover_url, first_publish_year,
	user_rating, notes, reading_progress, total_pages, current_page,
	reading_started_at, reading_finished_at, created_at, updated_at,
	local_sync_status, server_id`

// scanBook scans a sql.Row (or sql.Rows via its Scan method) into a domain.SavedBook.
func scanBook(sc scanner) (*domain.SavedBook, error) {
	var (
		b           domain.SavedBook
		authorNames string
		coverURL    sql.NullString
		publishYear sql.NullInt64
		rating      sql.NullInt64
		notes       sql.NullString
		totalPages  sql.NullInt64
		currentPage sql.NullInt64
		startedAt   sql.NullInt64
		finishedAt  sql.NullInt64
		createdAt   int64
		updatedAt   int64
		serverID    sql.NullString
	)

	err := sc.Scan(
		&b.ID,
		&b.WorkKey,
		&b.Title,
		&authorNames,
		&coverURL,
		&publishYear,
		&rating,
		&notes,
		&b.ReadingProgress,
		&totalPages,
		&currentPage,
		&startedAt,
		&finishedAt,
		&createdAt,
		&updatedAt,
		&b.SyncStatus,
		&serverID,
	)
	if err != nil {
		return nil, err
	}

	b.AuthorNames = domain.DecodeAuthorNames(authorNames)
	b.CoverURL = parseNullableString(coverURL)
	b.FirstPublishYear = parseNullableInt(publishYear)
	b.UserRating = parseNullableInt(rating)
	b.Notes = parseNullableString(notes)
	b.TotalPages = parseNullableInt(totalPages)
	b.CurrentPage = parseNullableInt(currentPage)
	b.ReadingStartedAt = parseNullableTime(startedAt)
	b.ReadingFinishedAt = parseNullableTime(finishedAt)
	b.CreatedAt = parseTime(createdAt)
	b.UpdatedAt = parseTime(updatedAt)
	b.ServerID = parseNullableString(serverID)

	return &b, nil
}

// GetBook retrieves a book by ID.
func (r reader) GetBook(ctx context.Context, id string) (*domain.SavedBook, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM saved_books WHERE id = ?`, id)

	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.NotFound(store.TableSavedBooks, id)
	}
	return b, err
}

// GetBookByWorkKey retrieves the oldest book with the given work key.
func (r reader) GetBookByWorkKey(ctx context.Context, workKey string) (*domain.SavedBook, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+bookColumns+` FROM saved_books
		WHERE work_key = ?
		ORDER BY created_at, id
		LIMIT 1`, workKey)

	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.NotFound(store.TableSavedBooks, workKey)
	}
	return b, err
}

// ListBooks returns every book, newest first.
func (r reader) ListBooks(ctx context.Context) ([]*domain.SavedBook, error) {
	return queryAll(ctx, r.q, scanBook,
		`SELECT `+bookColumns+` FROM saved_books ORDER BY created_at DESC, id`)
}

func bookArgs(b *domain.SavedBook) []any {
	return []any{
		b.WorkKey,
		b.Title,
		domain.EncodeAuthorNames(b.AuthorNames),
		nullableString(b.CoverURL),
		nullableInt(b.FirstPublishYear),
		nullableInt(b.UserRating),
		nullableString(b.Notes),
		b.ReadingProgress,
		nullableInt(b.TotalPages),
		nullableInt(b.CurrentPage),
		nullTime(b.ReadingStartedAt),
		nullTime(b.ReadingFinishedAt),
	}
}

// CreateBook inserts a new book. Returns store.ErrAlreadyExists on duplicate ID.
func (w *writer) CreateBook(ctx context.Context, b *domain.SavedBook) error {
	args := append([]any{b.ID}, bookArgs(b)...)
	args = append(args,
		formatTime(b.CreatedAt),
		formatTime(b.UpdatedAt),
		b.SyncStatus,
		nullableString(b.ServerID),
	)

	_, err := w.q.ExecContext(ctx, `
		INSERT INTO saved_books (`+bookColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if isUniqueViolation(err) {
		return store.AlreadyExists(store.TableSavedBooks, b.ID)
	}
	if err != nil {
		return err
	}

	w.changes.Record(store.TableSavedBooks, store.OpCreate, b.ID)
	return nil
}

// UpdateBook overwrites every mutable column of an existing book.
func (w *writer) UpdateBook(ctx context.Context, b *domain.SavedBook) error {
	args := append(bookArgs(b),
		formatTime(b.UpdatedAt),
		b.SyncStatus,
		nullableString(b.ServerID),
		b.ID,
	)

	res, err := w.q.ExecContext(ctx, `
		UPDATE saved_books SET
			work_key = ?, title = ?, author_names = ?, cover_url = ?, first_publish_year = ?,
			user_rating = ?, notes = ?, reading_progress = ?, total_pages = ?, current_page = ?,
			reading_started_at = ?, reading_finished_at = ?,
			updated_at = ?, local_sync_status = ?, server_id = ?
		WHERE id = ?`, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.NotFound(store.TableSavedBooks, b.ID)
	}

	w.changes.Record(store.TableSavedBooks, store.OpUpdate, b.ID)
	return nil
}

// DeleteBook removes a book by ID.
func (w *writer) DeleteBook(ctx context.Context, id string) error {
	n, err := execDelete(ctx, w.q, `DELETE FROM saved_books WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.NotFound(store.TableSavedBooks, id)
	}

	w.changes.Record(store.TableSavedBooks, store.OpDelete, id)
	return nil
}

// DeleteAllBooks removes every book and returns how many were removed.
func (w *writer) DeleteAllBooks(ctx context.Context) (int, error) {
	n, err := execDelete(ctx, w.q, `DELETE FROM saved_books`)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		w.changes.Record(store.TableSavedBooks, store.OpDelete, "")
	}
	return n, nil
}
