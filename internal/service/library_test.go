package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbookapp/openbook-library/internal/domain"
	domainerrors "github.com/openbookapp/openbook-library/internal/errors"
	"github.com/openbookapp/openbook-library/internal/store"
	"github.com/openbookapp/openbook-library/internal/store/sqlite"
)

func setupTestLibrary(t *testing.T) (*LibraryService, store.Store) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "library.db"), logger, store.NewNoopEmitter())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	svc := NewLibraryService(s, nil, logger)
	base := time.UnixMilli(1_700_000_000_000)
	var tick int64
	svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Millisecond)
	}

	created, err := svc.SeedSystemLists(context.Background())
	require.NoError(t, err)
	require.True(t, created)
	return svc, s
}

func dune() domain.BookInput {
	return domain.BookInput{
		WorkKey:     "/works/OL893415W",
		Title:       "Dune",
		AuthorNames: []string{"Frank Herbert"},
	}
}

func TestSeedSystemLists_Idempotent(t *testing.T) {
	svc, _ := setupTestLibrary(t)
	ctx := context.Background()

	created, err := svc.SeedSystemLists(ctx)
	require.NoError(t, err)
	assert.False(t, created)

	lists, err := svc.GetAllLists(ctx)
	require.NoError(t, err)
	require.Len(t, lists, 3)
	assert.Equal(t, domain.SystemListReading, lists[0].ID)
	assert.Equal(t, domain.SystemListWillRead, lists[1].ID)
	assert.Equal(t, domain.SystemListRead, lists[2].ID)
}

func TestCreateList_AppendsAfterExisting(t *testing.T) {
	svc, _ := setupTestLibrary(t)
	ctx := context.Background()

	a, err := svc.CreateList(ctx, "Sci-Fi", "🚀", "#FF0000")
	require.NoError(t, err)
	b, err := svc.CreateList(ctx, "Classics", "", "")
	require.NoError(t, err)

	assert.Equal(t, 3, a.SortOrder)
	assert.Equal(t, 4, b.SortOrder)
	assert.Equal(t, domain.ListTypeCustom, b.ListType)
	assert.Equal(t, domain.SyncPending, b.SyncStatus)
	assert.Equal(t, "folder", b.Icon)
	assert.Equal(t, "#607D8B", b.Color)
}

func TestDeleteList(t *testing.T) {
	svc, _ := setupTestLibrary(t)
	ctx := context.Background()

	t.Run("system list is protected", func(t *testing.T) {
		err := svc.DeleteList(ctx, domain.SystemListReading)
		require.Error(t, err)
		assert.ErrorIs(t, err, domainerrors.ErrProtected)

		_, err = svc.GetList(ctx, domain.SystemListReading)
		assert.NoError(t, err)
	})

	t.Run("unknown list", func(t *testing.T) {
		err := svc.DeleteList(ctx, "list-missing")
		assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	})

	t.Run("custom list keeps books", func(t *testing.T) {
		list, err := svc.CreateList(ctx, "Temp", "", "")
		require.NoError(t, err)
		m, err := svc.AddBookToList(ctx, dune(), list.ID)
		require.NoError(t, err)

		require.NoError(t, svc.DeleteList(ctx, list.ID))

		_, err = svc.GetList(ctx, list.ID)
		assert.ErrorIs(t, err, domainerrors.ErrNotFound)
		_, err = svc.GetBook(ctx, m.Book.ID)
		assert.NoError(t, err)
		n, err := svc.GetBookCountInList(ctx, list.ID)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestUpdateList(t *testing.T) {
	svc, _ := setupTestLibrary(t)
	ctx := context.Background()

	list, err := svc.CreateList(ctx, "Old", "", "")
	require.NoError(t, err)

	name := "New"
	updated, err := svc.UpdateList(ctx, list.ID, ListUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Name)
	assert.Equal(t, "folder", updated.Icon)
	assert.True(t, updated.UpdatedAt.After(list.UpdatedAt))

	_, err = svc.UpdateList(ctx, domain.SystemListRead, ListUpdate{Name: &name})
	assert.ErrorIs(t, err, domainerrors.ErrProtected)
}

func TestSaveBook_GetOrCreate(t *testing.T) {
	svc, _ := setupTestLibrary(t)
	ctx := context.Background()

	first, err := svc.SaveBook(ctx, dune())
	require.NoError(t, err)
	assert.Zero(t, first.ReadingProgress)
	assert.Nil(t, first.UserRating)
	assert.Nil(t, first.Notes)

	in := dune()
	in.Title = "Dune (renamed)"
	second, err := svc.SaveBook(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Dune", second.Title)

	n, err := svc.GetTotalBooksCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAddBookToList(t *testing.T) {
	svc, _ := setupTestLibrary(t)
	ctx := context.Background()

	m1, err := svc.AddBookToList(ctx, dune(), domain.SystemListWillRead)
	require.NoError(t, err)
	assert.Equal(t, 0, m1.ListBook.SortOrder)

	again, err := svc.AddBookToList(ctx, dune(), domain.SystemListWillRead)
	require.NoError(t, err)
	assert.Equal(t, m1.ListBook.ID, again.ListBook.ID)

	other := domain.BookInput{WorkKey: "/works/OL1W", Title: "Other"}
	m2, err := svc.AddBookToList(ctx, other, domain.SystemListWillRead)
	require.NoError(t, err)
	assert.Equal(t, 1, m2.ListBook.SortOrder)

	books, err := svc.GetBooksInList(ctx, domain.SystemListWillRead)
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "Dune", books[0].Title)
	assert.Equal(t, "Other", books[1].Title)

	_, err = svc.AddBookToList(ctx, dune(), "list-missing")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestToggleBookInList(t *testing.T) {
	svc, _ := setupTestLibrary(t)
	ctx := context.Background()

	added, err := svc.ToggleBookInList(ctx, dune(), domain.SystemListReading)
	require.NoError(t, err)
	assert.True(t, added)

	in, err := svc.IsBookInReadingList(ctx, dune().WorkKey)
	require.NoError(t, err)
	assert.True(t, in)

	added, err = svc.ToggleBookInList(ctx, dune(), domain.SystemListReading)
	require.NoError(t, err)
	assert.False(t, added)

	in, err = svc.IsBookInList(ctx, dune().WorkKey, domain.SystemListReading)
	require.NoError(t, err)
	assert.False(t, in)

	// The book itself survives removal.
	_, err = svc.GetBookByWorkKey(ctx, dune().WorkKey)
	assert.NoError(t, err)
}

func TestRemoveBookFromList(t *testing.T) {
	svc, _ := setupTestLibrary(t)
	ctx := context.Background()

	m, err := svc.AddBookToList(ctx, dune(), domain.SystemListReading)
	require.NoError(t, err)
	_, err = svc.AddBookToList(ctx, dune(), domain.SystemListWillRead)
	require.NoError(t, err)

	require.NoError(t, svc.RemoveBookFromList(ctx, m.Book.ID, domain.SystemListReading))
	require.NoError(t, svc.RemoveBookFromList(ctx, m.Book.ID, domain.SystemListReading))

	lists, err := svc.GetListsForBook(ctx, m.Book.ID)
	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.Equal(t, domain.SystemListWillRead, lists[0].ID)
}

func TestBookAttributes(t *testing.T) {
	svc, _ := setupTestLibrary(t)
	ctx := context.Background()

	book, err := svc.SaveBook(ctx, dune())
	require.NoError(t, err)

	rated, err := svc.SetBookRating(ctx, book.ID, 9)
	require.NoError(t, err)
	require.NotNil(t, rated.UserRating)
	assert.Equal(t, 5, *rated.UserRating)

	progressed, err := svc.SetBookProgress(ctx, book.ID, -4)
	require.NoError(t, err)
	assert.Zero(t, progressed.ReadingProgress)

	noted, err := svc.SetBookNotes(ctx, book.ID, "re-read the appendix")
	require.NoError(t, err)
	assert.True(t, noted.HasNotes())

	stored, err := svc.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, *stored.UserRating)
	assert.Equal(t, "re-read the appendix", *stored.Notes)
	assert.Equal(t, domain.SyncPending, stored.SyncStatus)

	_, err = svc.SetBookRating(ctx, "book-missing", 3)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestPageTracking(t *testing.T) {
	svc, _ := setupTestLibrary(t)
	ctx := context.Background()

	book, err := svc.SaveBook(ctx, dune())
	require.NoError(t, err)

	book, err = svc.SetBookPages(ctx, book.ID, 412, 103)
	require.NoError(t, err)
	assert.Equal(t, 25, book.ReadingProgress)

	book, err = svc.UpdateCurrentPage(ctx, book.ID, 1000)
	require.NoError(t, err)
	assert.Equal(t, 412, *book.CurrentPage)
	assert.Equal(t, 100, book.ReadingProgress)
	assert.Nil(t, book.ReadingFinishedAt, "reaching the last page does not finish the book")
}

func TestFinishReading_MovesBook(t *testing.T) {
	svc, _ := setupTestLibrary(t)
	ctx := context.Background()

	m, err := svc.AddBookToList(ctx, dune(), domain.SystemListReading)
	require.NoError(t, err)
	_, err = svc.SetBookPages(ctx, m.Book.ID, 300, 0)
	require.NoError(t, err)
	_, err = svc.StartReading(ctx, m.Book.ID)
	require.NoError(t, err)

	book, err := svc.FinishReading(ctx, m.Book.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, book.ReadingProgress)
	assert.Equal(t, 300, *book.CurrentPage)
	assert.NotNil(t, book.ReadingStartedAt)
	assert.NotNil(t, book.ReadingFinishedAt)

	status, err := svc.GetBookListStatus(ctx, dune().WorkKey)
	require.NoError(t, err)
	assert.Equal(t, []string{domain.SystemListRead}, status.ListIDs)
}

func TestFinishReading_Atomic(t *testing.T) {
	svc, s := setupTestLibrary(t)
	ctx := context.Background()

	m, err := svc.AddBookToList(ctx, dune(), domain.SystemListReading)
	require.NoError(t, err)

	// Without the Read list the move fails, so the stamp must not persist.
	require.NoError(t, s.WriteTx(ctx, func(tx store.Tx) error {
		return tx.DeleteList(ctx, domain.SystemListRead)
	}))

	_, err = svc.FinishReading(ctx, m.Book.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	book, err := svc.GetBook(ctx, m.Book.ID)
	require.NoError(t, err)
	assert.Nil(t, book.ReadingFinishedAt)
	assert.Zero(t, book.ReadingProgress)

	in, err := svc.IsBookInReadingList(ctx, dune().WorkKey)
	require.NoError(t, err)
	assert.True(t, in)
}

func TestDeleteBook_RemovesMemberships(t *testing.T) {
	svc, _ := setupTestLibrary(t)
	ctx := context.Background()

	m, err := svc.AddBookToList(ctx, dune(), domain.SystemListReading)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteBook(ctx, m.Book.ID))

	n, err := svc.GetBookCountInList(ctx, domain.SystemListReading)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.ErrorIs(t, svc.DeleteBook(ctx, m.Book.ID), domainerrors.ErrNotFound)
}

func TestGetListsWithCounts(t *testing.T) {
	svc, _ := setupTestLibrary(t)
	ctx := context.Background()

	_, err := svc.AddBookToList(ctx, dune(), domain.SystemListReading)
	require.NoError(t, err)
	_, err = svc.AddBookToList(ctx, domain.BookInput{WorkKey: "/works/OL2W", Title: "B"}, domain.SystemListReading)
	require.NoError(t, err)

	lists, err := svc.GetListsWithCounts(ctx)
	require.NoError(t, err)
	require.Len(t, lists, 3)
	assert.Equal(t, 2, lists[0].BookCount)
	assert.Equal(t, 0, lists[1].BookCount)
}

func TestSyncMarkers(t *testing.T) {
	svc, _ := setupTestLibrary(t)
	ctx := context.Background()

	book, err := svc.SaveBook(ctx, dune())
	require.NoError(t, err)

	synced, err := svc.MarkBookSynced(ctx, book.ID, "srv-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SyncSynced, synced.SyncStatus)
	require.NotNil(t, synced.ServerID)
	assert.Equal(t, "srv-1", *synced.ServerID)

	conflict, err := svc.MarkBookConflict(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncConflict, conflict.SyncStatus)
}

func TestCanceledContext(t *testing.T) {
	svc, _ := setupTestLibrary(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.CreateList(ctx, "Never", "", "")
	assert.ErrorIs(t, err, context.Canceled)
}
