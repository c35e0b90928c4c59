package badger

import (
	"cmp"
	"context"
	"slices"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/openbookapp/openbook-library/internal/domain"
	"github.com/openbookapp/openbook-library/internal/store"
)

// GetList retrieves a list by ID.
func (r reader) GetList(ctx context.Context, id string) (*domain.ReadingList, error) {
	var l *domain.ReadingList
	err := r.view(ctx, func(txn *badgerdb.Txn) error {
		var err error
		l, err = lists.get(txn, id)
		return err
	})
	return l, err
}

// ListLists returns every list ordered by sort order.
func (r reader) ListLists(ctx context.Context) ([]*domain.ReadingList, error) {
	var out []*domain.ReadingList
	err := r.view(ctx, func(txn *badgerdb.Txn) error {
		var err error
		out, err = lists.all(txn)
		return err
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(out, func(a, b *domain.ReadingList) int {
		return cmp.Or(
			cmp.Compare(a.SortOrder, b.SortOrder),
			a.CreatedAt.Compare(b.CreatedAt),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return out, nil
}

// GetBook retrieves a book by ID.
func (r reader) GetBook(ctx context.Context, id string) (*domain.SavedBook, error) {
	var b *domain.SavedBook
	err := r.view(ctx, func(txn *badgerdb.Txn) error {
		var err error
		b, err = books.get(txn, id)
		return err
	})
	return b, err
}

// GetBookByWorkKey retrieves the oldest book with the given work key.
func (r reader) GetBookByWorkKey(ctx context.Context, workKey string) (*domain.SavedBook, error) {
	var matches []*domain.SavedBook
	err := r.view(ctx, func(txn *badgerdb.Txn) error {
		var err error
		matches, err = books.byIndex(txn, indexWorkKey, workKey)
		return err
	})
	if err != nil {
		return nil, err
	}

	matches = slices.DeleteFunc(matches, func(b *domain.SavedBook) bool { return b.WorkKey != workKey })
	if len(matches) == 0 {
		return nil, store.NotFound(store.TableSavedBooks, workKey)
	}
	return slices.MinFunc(matches, func(a, b *domain.SavedBook) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	}), nil
}

// ListBooks returns every book, newest first.
func (r reader) ListBooks(ctx context.Context) ([]*domain.SavedBook, error) {
	var out []*domain.SavedBook
	err := r.view(ctx, func(txn *badgerdb.Txn) error {
		var err error
		out, err = books.all(txn)
		return err
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(out, func(a, b *domain.SavedBook) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

// matchListBooks loads rows matching filter, using the narrowest index available.
func matchListBooks(txn *badgerdb.Txn, filter store.ListBookFilter) ([]*domain.ListBook, error) {
	var (
		rows []*domain.ListBook
		err  error
	)
	switch {
	case filter.ListID != "":
		rows, err = listBooks.byIndex(txn, indexListID, filter.ListID)
	case filter.BookID != "":
		rows, err = listBooks.byIndex(txn, indexBookID, filter.BookID)
	default:
		rows, err = listBooks.all(txn)
	}
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(rows, func(lb *domain.ListBook) bool { return !filter.Matches(lb) }), nil
}

// ListListBooks returns matching membership rows ordered by sort order.
func (r reader) ListListBooks(ctx context.Context, filter store.ListBookFilter) ([]*domain.ListBook, error) {
	var out []*domain.ListBook
	err := r.view(ctx, func(txn *badgerdb.Txn) error {
		var err error
		out, err = matchListBooks(txn, filter)
		return err
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(out, func(a, b *domain.ListBook) int {
		return cmp.Or(
			cmp.Compare(a.SortOrder, b.SortOrder),
			a.AddedAt.Compare(b.AddedAt),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return out, nil
}

// CountListBooks counts matching membership rows.
func (r reader) CountListBooks(ctx context.Context, filter store.ListBookFilter) (int, error) {
	rows, err := r.ListListBooks(ctx, filter)
	return len(rows), err
}

// CreateList inserts a new list.
func (w *writer) CreateList(ctx context.Context, l *domain.ReadingList) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := lists.insert(w.txn, l); err != nil {
		return err
	}
	w.changes.Record(store.TableReadingLists, store.OpCreate, l.ID)
	return nil
}

// UpdateList replaces an existing list.
func (w *writer) UpdateList(ctx context.Context, l *domain.ReadingList) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := lists.update(w.txn, l); err != nil {
		return err
	}
	w.changes.Record(store.TableReadingLists, store.OpUpdate, l.ID)
	return nil
}

// DeleteList removes a list and, like the SQLite foreign keys, its memberships.
func (w *writer) DeleteList(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := lists.remove(w.txn, id); err != nil {
		return err
	}
	w.changes.Record(store.TableReadingLists, store.OpDelete, id)

	_, err := w.DeleteListBooks(ctx, store.ListBookFilter{ListID: id})
	return err
}

// DeleteLists removes every list matching filter.
func (w *writer) DeleteLists(ctx context.Context, filter store.ListFilter) (int, error) {
	all, err := w.ListLists(ctx)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, l := range all {
		if !filter.Matches(l) {
			continue
		}
		if err := w.DeleteList(ctx, l.ID); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// CreateBook inserts a new book.
func (w *writer) CreateBook(ctx context.Context, b *domain.SavedBook) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := books.insert(w.txn, b); err != nil {
		return err
	}
	w.changes.Record(store.TableSavedBooks, store.OpCreate, b.ID)
	return nil
}

// UpdateBook replaces an existing book.
func (w *writer) UpdateBook(ctx context.Context, b *domain.SavedBook) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := books.update(w.txn, b); err != nil {
		return err
	}
	w.changes.Record(store.TableSavedBooks, store.OpUpdate, b.ID)
	return nil
}

// DeleteBook removes a book and its memberships.
func (w *writer) DeleteBook(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := books.remove(w.txn, id); err != nil {
		return err
	}
	w.changes.Record(store.TableSavedBooks, store.OpDelete, id)

	_, err := w.DeleteListBooks(ctx, store.ListBookFilter{BookID: id})
	return err
}

// DeleteAllBooks removes every book.
func (w *writer) DeleteAllBooks(ctx context.Context) (int, error) {
	all, err := w.ListBooks(ctx)
	if err != nil {
		return 0, err
	}
	for i, b := range all {
		if err := w.DeleteBook(ctx, b.ID); err != nil {
			return i, err
		}
	}
	return len(all), nil
}

// CreateListBook inserts a membership row.
func (w *writer) CreateListBook(ctx context.Context, lb *domain.ListBook) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := listBooks.insert(w.txn, lb); err != nil {
		return err
	}
	w.changes.Record(store.TableListBooks, store.OpCreate, lb.ID)
	return nil
}

// DeleteListBooks removes matching membership rows.
func (w *writer) DeleteListBooks(ctx context.Context, filter store.ListBookFilter) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	rows, err := matchListBooks(w.txn, filter)
	if err != nil {
		return 0, err
	}
	for i, lb := range rows {
		if err := listBooks.remove(w.txn, lb.ID); err != nil {
			return i, err
		}
	}
	if len(rows) > 0 {
		w.changes.Record(store.TableListBooks, store.OpDelete, "")
	}
	return len(rows), nil
}
