// Package storetest holds a behavioural test suite every store.Store engine must pass.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbookapp/openbook-library/internal/domain"
	"github.com/openbookapp/openbook-library/internal/store"
)

// OpenFunc opens a fresh, empty store wired to emitter.
type OpenFunc func(t *testing.T, emitter store.EventEmitter) store.Store

// Recorder is an EventEmitter that keeps every change it receives.
type Recorder struct {
	mu      sync.Mutex
	changes []store.Change
}

// Emit implements store.EventEmitter.
func (r *Recorder) Emit(c store.Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

// Changes returns a copy of the recorded changes.
func (r *Recorder) Changes() []store.Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]store.Change(nil), r.changes...)
}

// Run executes the suite against open.
func Run(t *testing.T, open OpenFunc) {
	t.Run("ListCRUD", func(t *testing.T) { testListCRUD(t, open) })
	t.Run("ListOrdering", func(t *testing.T) { testListOrdering(t, open) })
	t.Run("DeleteListsByType", func(t *testing.T) { testDeleteListsByType(t, open) })
	t.Run("BookCRUD", func(t *testing.T) { testBookCRUD(t, open) })
	t.Run("BookByWorkKey", func(t *testing.T) { testBookByWorkKey(t, open) })
	t.Run("BooksNewestFirst", func(t *testing.T) { testBooksNewestFirst(t, open) })
	t.Run("ListBooks", func(t *testing.T) { testListBooks(t, open) })
	t.Run("DeleteAll", func(t *testing.T) { testDeleteAll(t, open) })
	t.Run("RollbackOnError", func(t *testing.T) { testRollback(t, open) })
	t.Run("TxSeesOwnWrites", func(t *testing.T) { testTxSeesOwnWrites(t, open) })
	t.Run("ChangesAfterCommit", func(t *testing.T) { testChangesAfterCommit(t, open) })
	t.Run("CanceledContext", func(t *testing.T) { testCanceledContext(t, open) })
}

var base = time.UnixMilli(1_700_000_000_000)

func at(offset int) time.Time {
	return base.Add(time.Duration(offset) * time.Minute)
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

// NewList builds a custom list fixture.
func NewList(id string, sortOrder int) *domain.ReadingList {
	return domain.NewCustomList(id, "List "+id, "", "", sortOrder, at(sortOrder))
}

// NewBook builds a book fixture created at minute offset.
func NewBook(id, workKey string, offset int) *domain.SavedBook {
	return domain.NewSavedBook(id, domain.BookInput{
		WorkKey:     workKey,
		Title:       "Title " + id,
		AuthorNames: []string{"Author A", "Author B"},
	}, at(offset))
}

func write(t *testing.T, s store.Store, fn func(ctx context.Context, tx store.Tx) error) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.WriteTx(ctx, func(tx store.Tx) error { return fn(ctx, tx) }))
}

func testListCRUD(t *testing.T, open OpenFunc) {
	s := open(t, nil)
	ctx := context.Background()

	list := NewList("list-1", 3)
	list.ServerID = strPtr("srv-9")
	write(t, s, func(ctx context.Context, tx store.Tx) error { return tx.CreateList(ctx, list) })

	got, err := s.GetList(ctx, "list-1")
	require.NoError(t, err)
	assert.Equal(t, list, got)

	err = s.WriteTx(ctx, func(tx store.Tx) error { return tx.CreateList(ctx, NewList("list-1", 0)) })
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	got.Name = "Renamed"
	got.Touch(at(10))
	write(t, s, func(ctx context.Context, tx store.Tx) error { return tx.UpdateList(ctx, got) })

	again, err := s.GetList(ctx, "list-1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", again.Name)
	assert.Equal(t, at(10), again.UpdatedAt)
	assert.Equal(t, list.CreatedAt, again.CreatedAt)

	write(t, s, func(ctx context.Context, tx store.Tx) error { return tx.DeleteList(ctx, "list-1") })

	_, err = s.GetList(ctx, "list-1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = s.WriteTx(ctx, func(tx store.Tx) error { return tx.DeleteList(ctx, "list-1") })
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = s.WriteTx(ctx, func(tx store.Tx) error { return tx.UpdateList(ctx, list) })
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testListOrdering(t *testing.T, open OpenFunc) {
	s := open(t, nil)

	write(t, s, func(ctx context.Context, tx store.Tx) error {
		for _, l := range []*domain.ReadingList{NewList("c", 2), NewList("a", 0), NewList("b", 1)} {
			if err := tx.CreateList(ctx, l); err != nil {
				return err
			}
		}
		return nil
	})

	lists, err := s.ListLists(context.Background())
	require.NoError(t, err)
	require.Len(t, lists, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{lists[0].ID, lists[1].ID, lists[2].ID})
}

func testDeleteListsByType(t *testing.T, open OpenFunc) {
	s := open(t, nil)

	write(t, s, func(ctx context.Context, tx store.Tx) error {
		for _, sl := range domain.SystemLists {
			if err := tx.CreateList(ctx, sl.NewReadingList(base)); err != nil {
				return err
			}
		}
		if err := tx.CreateList(ctx, NewList("custom-1", 3)); err != nil {
			return err
		}
		return tx.CreateList(ctx, NewList("custom-2", 4))
	})

	var removed int
	write(t, s, func(ctx context.Context, tx store.Tx) error {
		var err error
		removed, err = tx.DeleteLists(ctx, store.ListFilter{Type: domain.ListTypeCustom})
		return err
	})
	assert.Equal(t, 2, removed)

	lists, err := s.ListLists(context.Background())
	require.NoError(t, err)
	assert.Len(t, lists, 3)
	for _, l := range lists {
		assert.True(t, l.IsSystem())
	}
}

func testBookCRUD(t *testing.T, open OpenFunc) {
	s := open(t, nil)
	ctx := context.Background()

	book := NewBook("book-1", "/works/OL1W", 0)
	book.CoverURL = strPtr("https://covers.example/1.jpg")
	book.FirstPublishYear = intPtr(1965)
	write(t, s, func(ctx context.Context, tx store.Tx) error { return tx.CreateBook(ctx, book) })

	got, err := s.GetBook(ctx, "book-1")
	require.NoError(t, err)
	assert.Equal(t, book, got)

	got.SetRating(4, at(1))
	got.SetNotes("loved it", at(1))
	got.SetPages(412, 206, at(2))
	got.StartReading(at(2))
	got.FinishReading(at(3))
	got.MarkSynced("srv-1", at(4))
	write(t, s, func(ctx context.Context, tx store.Tx) error { return tx.UpdateBook(ctx, got) })

	again, err := s.GetBook(ctx, "book-1")
	require.NoError(t, err)
	assert.Equal(t, got, again)
	assert.Equal(t, []string{"Author A", "Author B"}, again.AuthorNames)

	write(t, s, func(ctx context.Context, tx store.Tx) error { return tx.DeleteBook(ctx, "book-1") })
	_, err = s.GetBook(ctx, "book-1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = s.WriteTx(ctx, func(tx store.Tx) error { return tx.UpdateBook(ctx, book) })
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testBookByWorkKey(t *testing.T, open OpenFunc) {
	s := open(t, nil)
	ctx := context.Background()

	write(t, s, func(ctx context.Context, tx store.Tx) error {
		if err := tx.CreateBook(ctx, NewBook("book-2", "/works/dup", 5)); err != nil {
			return err
		}
		if err := tx.CreateBook(ctx, NewBook("book-1", "/works/dup", 1)); err != nil {
			return err
		}
		return tx.CreateBook(ctx, NewBook("book-3", "/works/other", 2))
	})

	got, err := s.GetBookByWorkKey(ctx, "/works/dup")
	require.NoError(t, err)
	assert.Equal(t, "book-1", got.ID, "oldest match wins")

	_, err = s.GetBookByWorkKey(ctx, "/works/missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testBooksNewestFirst(t *testing.T, open OpenFunc) {
	s := open(t, nil)

	write(t, s, func(ctx context.Context, tx store.Tx) error {
		if err := tx.CreateBook(ctx, NewBook("old", "/works/old", 0)); err != nil {
			return err
		}
		if err := tx.CreateBook(ctx, NewBook("new", "/works/new", 10)); err != nil {
			return err
		}
		return tx.CreateBook(ctx, NewBook("mid", "/works/mid", 5))
	})

	books, err := s.ListBooks(context.Background())
	require.NoError(t, err)
	require.Len(t, books, 3)
	assert.Equal(t, []string{"new", "mid", "old"}, []string{books[0].ID, books[1].ID, books[2].ID})
}

func testListBooks(t *testing.T, open OpenFunc) {
	s := open(t, nil)
	ctx := context.Background()

	write(t, s, func(ctx context.Context, tx store.Tx) error {
		for _, l := range []*domain.ReadingList{NewList("l1", 0), NewList("l2", 1)} {
			if err := tx.CreateList(ctx, l); err != nil {
				return err
			}
		}
		for i, id := range []string{"b1", "b2", "b3"} {
			if err := tx.CreateBook(ctx, NewBook(id, "/works/"+id, i)); err != nil {
				return err
			}
		}
		rows := []*domain.ListBook{
			domain.NewListBook("lb-3", "l1", "b3", 2, at(3)),
			domain.NewListBook("lb-1", "l1", "b1", 0, at(1)),
			domain.NewListBook("lb-2", "l1", "b2", 1, at(2)),
			domain.NewListBook("lb-4", "l2", "b1", 0, at(4)),
		}
		for _, lb := range rows {
			if err := tx.CreateListBook(ctx, lb); err != nil {
				return err
			}
		}
		return nil
	})

	inL1, err := s.ListListBooks(ctx, store.ListBookFilter{ListID: "l1"})
	require.NoError(t, err)
	require.Len(t, inL1, 3)
	assert.Equal(t, []string{"b1", "b2", "b3"}, []string{inL1[0].BookID, inL1[1].BookID, inL1[2].BookID})
	assert.Equal(t, at(1), inL1[0].AddedAt)

	forB1, err := s.ListListBooks(ctx, store.ListBookFilter{BookID: "b1"})
	require.NoError(t, err)
	assert.Len(t, forB1, 2)

	pair, err := s.ListListBooks(ctx, store.ListBookFilter{ListID: "l2", BookID: "b1"})
	require.NoError(t, err)
	require.Len(t, pair, 1)
	assert.Equal(t, "lb-4", pair[0].ID)

	n, err := s.CountListBooks(ctx, store.ListBookFilter{})
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = s.CountListBooks(ctx, store.ListBookFilter{ListID: "l2"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var removed int
	write(t, s, func(ctx context.Context, tx store.Tx) error {
		var err error
		removed, err = tx.DeleteListBooks(ctx, store.ListBookFilter{ListID: "l1", BookID: "b2"})
		return err
	})
	assert.Equal(t, 1, removed)

	n, err = s.CountListBooks(ctx, store.ListBookFilter{ListID: "l1"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	empty, err := s.ListListBooks(ctx, store.ListBookFilter{ListID: "nope"})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func testDeleteAll(t *testing.T, open OpenFunc) {
	s := open(t, nil)
	ctx := context.Background()

	write(t, s, func(ctx context.Context, tx store.Tx) error {
		if err := tx.CreateList(ctx, NewList("l1", 0)); err != nil {
			return err
		}
		if err := tx.CreateBook(ctx, NewBook("b1", "/works/1", 0)); err != nil {
			return err
		}
		if err := tx.CreateBook(ctx, NewBook("b2", "/works/2", 1)); err != nil {
			return err
		}
		return tx.CreateListBook(ctx, domain.NewListBook("lb-1", "l1", "b1", 0, base))
	})

	write(t, s, func(ctx context.Context, tx store.Tx) error {
		n, err := tx.DeleteListBooks(ctx, store.ListBookFilter{})
		if err != nil {
			return err
		}
		assert.Equal(t, 1, n)
		n, err = tx.DeleteAllBooks(ctx)
		assert.Equal(t, 2, n)
		return err
	})

	books, err := s.ListBooks(ctx)
	require.NoError(t, err)
	assert.Empty(t, books)

	lists, err := s.ListLists(ctx)
	require.NoError(t, err)
	assert.Len(t, lists, 1)
}

func testRollback(t *testing.T, open OpenFunc) {
	rec := &Recorder{}
	s := open(t, rec)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WriteTx(ctx, func(tx store.Tx) error {
		if err := tx.CreateList(ctx, NewList("l1", 0)); err != nil {
			return err
		}
		if err := tx.CreateBook(ctx, NewBook("b1", "/works/1", 0)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.GetList(ctx, "l1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetBook(ctx, "b1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Empty(t, rec.Changes(), "rolled back writes must not notify")
}

func testTxSeesOwnWrites(t *testing.T, open OpenFunc) {
	s := open(t, nil)

	write(t, s, func(ctx context.Context, tx store.Tx) error {
		if err := tx.CreateBook(ctx, NewBook("b1", "/works/1", 0)); err != nil {
			return err
		}
		got, err := tx.GetBookByWorkKey(ctx, "/works/1")
		if err != nil {
			return err
		}
		assert.Equal(t, "b1", got.ID)

		n, err := tx.CountListBooks(ctx, store.ListBookFilter{BookID: "b1"})
		assert.Equal(t, 0, n)
		return err
	})
}

func testChangesAfterCommit(t *testing.T, open OpenFunc) {
	rec := &Recorder{}
	s := open(t, rec)

	write(t, s, func(ctx context.Context, tx store.Tx) error {
		if err := tx.CreateList(ctx, NewList("l1", 0)); err != nil {
			return err
		}
		if err := tx.CreateBook(ctx, NewBook("b1", "/works/1", 0)); err != nil {
			return err
		}
		if err := tx.CreateListBook(ctx, domain.NewListBook("lb-1", "l1", "b1", 0, base)); err != nil {
			return err
		}
		assert.Empty(t, rec.Changes(), "no notification before commit")
		return nil
	})

	changes := rec.Changes()
	require.Len(t, changes, 3)
	assert.Equal(t, store.TableReadingLists, changes[0].Table)
	assert.Equal(t, store.TableSavedBooks, changes[1].Table)
	assert.Equal(t, store.TableListBooks, changes[2].Table)
	for _, c := range changes {
		assert.Equal(t, store.OpCreate, c.Op)
		assert.NotEmpty(t, c.ID)
	}
}

func testCanceledContext(t *testing.T, open OpenFunc) {
	s := open(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.WriteTx(ctx, func(store.Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
