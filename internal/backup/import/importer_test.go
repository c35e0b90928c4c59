package backupimport_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbookapp/openbook-library/internal/backup/export"
	backupimport "github.com/openbookapp/openbook-library/internal/backup/import"
	"github.com/openbookapp/openbook-library/internal/domain"
	domainerrors "github.com/openbookapp/openbook-library/internal/errors"
	"github.com/openbookapp/openbook-library/internal/service"
	"github.com/openbookapp/openbook-library/internal/store"
	"github.com/openbookapp/openbook-library/internal/store/badger"
)

type fixture struct {
	store    store.Store
	library  *service.LibraryService
	exporter *export.Exporter
	importer *backupimport.Importer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := badger.OpenInMemory(logger, store.NewNoopEmitter())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	lib := service.NewLibraryService(s, nil, logger)
	_, err = lib.SeedSystemLists(context.Background())
	require.NoError(t, err)

	return &fixture{
		store:    s,
		library:  lib,
		exporter: export.New(s),
		importer: backupimport.New(s, logger),
	}
}

// populate builds a small library: one custom list, two books, three memberships.
func (f *fixture) populate(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	sciFi, err := f.library.CreateList(ctx, "Sci-Fi", "🚀", "#FF5722")
	require.NoError(t, err)

	dune := domain.BookInput{WorkKey: "/works/OL893415W", Title: "Dune", AuthorNames: []string{"Frank Herbert"}}
	m, err := f.library.AddBookToList(ctx, dune, domain.SystemListReading)
	require.NoError(t, err)
	_, err = f.library.AddBookToList(ctx, dune, sciFi.ID)
	require.NoError(t, err)
	_, err = f.library.SetBookRating(ctx, m.Book.ID, 5)
	require.NoError(t, err)
	_, err = f.library.SetBookPages(ctx, m.Book.ID, 412, 206)
	require.NoError(t, err)

	hyperion := domain.BookInput{WorkKey: "/works/OL45804W", Title: "Hyperion", AuthorNames: []string{"Dan Simmons"}}
	_, err = f.library.AddBookToList(ctx, hyperion, domain.SystemListWillRead)
	require.NoError(t, err)
}

type counts struct{ lists, books, listBooks int }

func (f *fixture) counts(t *testing.T) counts {
	t.Helper()
	ctx := context.Background()
	lists, err := f.store.ListLists(ctx)
	require.NoError(t, err)
	books, err := f.store.ListBooks(ctx)
	require.NoError(t, err)
	n, err := f.store.CountListBooks(ctx, store.ListBookFilter{})
	require.NoError(t, err)
	return counts{len(lists), len(books), n}
}

func (f *fixture) exportJSON(t *testing.T) []byte {
	t.Helper()
	data, err := f.exporter.ExportJSON(context.Background())
	require.NoError(t, err)
	return data
}

// portable ignores fields that legitimately change when a document is replayed.
var portable = cmp.Options{
	cmpopts.IgnoreFields(export.Document{}, "ExportedAt"),
	cmpopts.IgnoreFields(export.ListRecord{}, "CreatedAt", "UpdatedAt", "LocalSyncStatus"),
	cmpopts.IgnoreFields(export.BookRecord{}, "ID", "UpdatedAt", "LocalSyncStatus"),
	cmpopts.IgnoreFields(export.ListBookRecord{}, "ID", "BookID", "UpdatedAt", "LocalSyncStatus"),
	cmpopts.SortSlices(func(a, b export.BookRecord) bool { return a.WorkKey < b.WorkKey }),
	cmpopts.SortSlices(func(a, b export.ListBookRecord) bool {
		if a.ListID != b.ListID {
			return a.ListID < b.ListID
		}
		return a.SortOrder < b.SortOrder
	}),
}

func TestImport_RejectsBadDocuments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		data string
		want error
	}{
		{"not json", `{"version": 1,`, domainerrors.ErrMalformedDocument},
		{"missing version", `{"lists": [], "books": [], "listBooks": []}`, domainerrors.ErrUnsupportedVersion},
		{"zero version", `{"version": 0, "lists": [], "books": [], "listBooks": []}`, domainerrors.ErrUnsupportedVersion},
		{"future version", `{"version": 2, "lists": [], "books": [], "listBooks": []}`, domainerrors.ErrUnsupportedVersion},
		{"top-level array", `[]`, domainerrors.ErrUnsupportedVersion},
		{"missing books", `{"version": 1, "lists": [], "listBooks": []}`, domainerrors.ErrInvalidDocument},
		{"lists not array", `{"version": 1, "lists": {}, "books": [], "listBooks": []}`, domainerrors.ErrInvalidDocument},
		{"null listBooks", `{"version": 1, "lists": [], "books": [], "listBooks": null}`, domainerrors.ErrInvalidDocument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.importer.Import(ctx, []byte(tt.data), backupimport.ModeMerge)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, domainerrors.IsValidation(err))
		})
	}

	_, err := f.importer.Import(ctx, []byte(`{"version":1,"lists":[],"books":[],"listBooks":[]}`), "overwrite")
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestImport_MergeRoundTripIsNoOp(t *testing.T) {
	f := newFixture(t)
	f.populate(t)
	before := f.counts(t)
	data := f.exportJSON(t)

	res, err := f.importer.Import(context.Background(), data, backupimport.ModeMerge)
	require.NoError(t, err)

	assert.Equal(t, before, f.counts(t))
	assert.Equal(t, 1, res.ListsImported, "only the custom list is counted")
	assert.Equal(t, 2, res.BooksImported)
	assert.Zero(t, res.ListBooksImported)
}

func TestImport_ReplaceIntoFreshStore(t *testing.T) {
	src := newFixture(t)
	src.populate(t)
	data := src.exportJSON(t)

	dst := newFixture(t)
	_, err := dst.library.CreateList(context.Background(), "Doomed", "", "")
	require.NoError(t, err)
	_, err = dst.library.SaveBook(context.Background(), domain.BookInput{WorkKey: "/works/OL1W", Title: "Doomed"})
	require.NoError(t, err)

	res, err := dst.importer.Import(context.Background(), data, backupimport.ModeReplace)
	require.NoError(t, err)
	assert.Equal(t, backupimport.Result{ListsImported: 1, BooksImported: 2, ListBooksImported: 3}, *res)

	want, err := src.exporter.Export(context.Background())
	require.NoError(t, err)
	got, err := dst.exporter.Export(context.Background())
	require.NoError(t, err)

	if diff := cmp.Diff(want, got, portable); diff != "" {
		t.Errorf("replace import mismatch (-want +got):\n%s", diff)
	}
}

func TestImport_MergeKeepsBetterValues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	local, err := f.library.SaveBook(ctx, domain.BookInput{WorkKey: "/works/OL1W", Title: "Local"})
	require.NoError(t, err)
	_, err = f.library.SetBookRating(ctx, local.ID, 2)
	require.NoError(t, err)
	_, err = f.library.SetBookProgress(ctx, local.ID, 60)
	require.NoError(t, err)

	other, err := f.library.SaveBook(ctx, domain.BookInput{WorkKey: "/works/OL2W", Title: "Other"})
	require.NoError(t, err)
	_, err = f.library.SetBookProgress(ctx, other.ID, 10)
	require.NoError(t, err)

	doc := export.Document{
		Version: export.FormatVersion,
		Lists:   []export.ListRecord{},
		Books: []export.BookRecord{
			{ID: "remote-1", WorkKey: "/works/OL1W", Title: "Remote", AuthorNames: "[]", UserRating: intPtr(4), Notes: strPtr("remote notes"), ReadingProgress: 30},
			{ID: "remote-2", WorkKey: "/works/OL2W", Title: "Remote", AuthorNames: "[]", UserRating: intPtr(3), ReadingProgress: 80, TotalPages: intPtr(200), CurrentPage: intPtr(160)},
		},
		ListBooks: []export.ListBookRecord{},
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)

	_, err = f.importer.Import(ctx, data, backupimport.ModeMerge)
	require.NoError(t, err)

	got, err := f.library.GetBook(ctx, local.ID)
	require.NoError(t, err)
	assert.Equal(t, "Local", got.Title)
	assert.Equal(t, 2, *got.UserRating, "local rating wins")
	assert.Equal(t, "remote notes", *got.Notes, "empty notes filled")
	assert.Equal(t, 60, got.ReadingProgress, "progress never lowered")
	assert.Equal(t, domain.SyncPending, got.SyncStatus)

	got, err = f.library.GetBook(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, *got.UserRating, "missing rating filled")
	assert.Equal(t, 80, got.ReadingProgress, "higher progress taken")
	assert.Equal(t, 200, *got.TotalPages)
	assert.Equal(t, 160, *got.CurrentPage)
}

func TestImport_ListBookRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	added := time.UnixMilli(1_600_000_000_000)
	doc := export.Document{
		Version: export.FormatVersion,
		Lists: []export.ListRecord{
			{ID: "list-custom", Name: "Custom", ListType: "custom", SortOrder: 7},
			{ID: domain.SystemListReading, Name: "Renamed", ListType: "system"},
		},
		Books: []export.BookRecord{
			{ID: "b1", WorkKey: "/works/OL1W", Title: "One", AuthorNames: `["A","B"]`},
		},
		ListBooks: []export.ListBookRecord{
			{ID: "lb1", ListID: "list-custom", BookID: "b1", SortOrder: 4, AddedAt: added.UnixMilli()},
			{ID: "lb2", ListID: "list-custom", BookID: "b1", SortOrder: 5},
			{ID: "lb3", ListID: "list-gone", BookID: "b1"},
			{ID: "lb4", ListID: domain.SystemListRead, BookID: "unknown"},
		},
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)

	res, err := f.importer.Import(ctx, data, backupimport.ModeMerge)
	require.NoError(t, err)
	assert.Equal(t, backupimport.Result{ListsImported: 1, BooksImported: 1, ListBooksImported: 1}, *res)

	reading, err := f.library.GetList(ctx, domain.SystemListReading)
	require.NoError(t, err)
	assert.Equal(t, "Reading", reading.Name, "system lists are never overwritten")

	list, err := f.library.GetList(ctx, "list-custom")
	require.NoError(t, err)
	assert.Equal(t, 7, list.SortOrder)

	rows, err := f.store.ListListBooks(ctx, store.ListBookFilter{ListID: "list-custom"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 4, rows[0].SortOrder)
	assert.True(t, rows[0].AddedAt.Equal(added))

	book, err := f.library.GetBookByWorkKey(ctx, "/works/OL1W")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, book.AuthorNames)
	assert.NotEqual(t, "b1", book.ID, "imported books get local ids")
}

func TestImport_FailureLeavesStoreUntouched(t *testing.T) {
	f := newFixture(t)
	f.populate(t)
	before := f.counts(t)

	doc := `{
		"version": 1,
		"lists": [{"id": "list-new", "name": "New", "listType": "custom"}],
		"books": [{"id": "b1", "workKey": "/works/OL9W", "title": "Fine"}, {"id": "b2", "title": "No key"}],
		"listBooks": []
	}`

	for _, mode := range []backupimport.Mode{backupimport.ModeMerge, backupimport.ModeReplace} {
		_, err := f.importer.Import(context.Background(), []byte(doc), mode)
		require.Error(t, err)
		assert.ErrorIs(t, err, domainerrors.ErrInvalidDocument)
		assert.Equal(t, before, f.counts(t), "mode %s", mode)
	}

	_, err := f.library.GetList(context.Background(), "list-new")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestParseMode(t *testing.T) {
	m, err := backupimport.ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, backupimport.ModeMerge, m)

	m, err = backupimport.ParseMode(" Replace ")
	require.NoError(t, err)
	assert.Equal(t, backupimport.ModeReplace, m)

	_, err = backupimport.ParseMode("wipe")
	assert.Error(t, err)
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
