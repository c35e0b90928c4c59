package backup

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	backupimport "github.com/openbookapp/openbook-library/internal/backup/import"
	"github.com/openbookapp/openbook-library/internal/domain"
	domainerrors "github.com/openbookapp/openbook-library/internal/errors"
	"github.com/openbookapp/openbook-library/internal/service"
	"github.com/openbookapp/openbook-library/internal/store"
	"github.com/openbookapp/openbook-library/internal/store/sqlite"
)

// testSetup creates a seeded store and a backup service whose clock advances one second per call.
func testSetup(t *testing.T) (*BackupService, *service.LibraryService, string) {
	t.Helper()

	tmpDir := t.TempDir()
	backupDir := filepath.Join(tmpDir, "backups")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := sqlite.Open(filepath.Join(tmpDir, "library.db"), logger, store.NewNoopEmitter())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	lib := service.NewLibraryService(s, nil, logger)
	_, err = lib.SeedSystemLists(context.Background())
	require.NoError(t, err)

	svc := NewBackupService(s, backupDir, logger)
	clock := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return svc, lib, backupDir
}

func TestCreate(t *testing.T) {
	svc, lib, backupDir := testSetup(t)
	ctx := context.Background()

	_, err := lib.AddBookToList(ctx, domain.BookInput{WorkKey: "/works/OL1W", Title: "One"}, domain.SystemListReading)
	require.NoError(t, err)

	result, err := svc.Create(ctx)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(backupDir, "openbook_library_2026-01-01-080001.000.json"), result.Path)
	assert.Equal(t, Counts{Lists: 3, Books: 1, ListBooks: 1}, result.Counts)

	info, err := os.Stat(result.Path)
	require.NoError(t, err)
	assert.Equal(t, result.Size, info.Size())
}

func TestListGetDelete(t *testing.T) {
	svc, _, _ := testSetup(t)
	ctx := context.Background()

	backups, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, backups, "missing directory lists nothing")

	for range 3 {
		_, err := svc.Create(ctx)
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(svc.Dir(), "notes.txt"), []byte("x"), 0o644))

	backups, err = svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, backups, 3)
	assert.Equal(t, "2026-01-01-080003.000", backups[0].ID, "newest first")

	got, err := svc.Get(ctx, backups[1].ID)
	require.NoError(t, err)
	assert.Equal(t, backups[1].Path, got.Path)

	require.NoError(t, svc.Delete(ctx, backups[1].ID))
	_, err = svc.Get(ctx, backups[1].ID)
	assert.ErrorIs(t, err, ErrBackupNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, "../library.db"), ErrInvalidBackupID)
}

func TestPrune(t *testing.T) {
	svc, _, _ := testSetup(t)
	ctx := context.Background()

	for range 5 {
		_, err := svc.Create(ctx)
		require.NoError(t, err)
	}

	removed, err := svc.Prune(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, removed)

	removed, err = svc.Prune(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	backups, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.Equal(t, "2026-01-01-080005.000", backups[0].ID)
	assert.Equal(t, "2026-01-01-080004.000", backups[1].ID)
}

func TestRestore(t *testing.T) {
	svc, lib, _ := testSetup(t)
	ctx := context.Background()

	_, err := lib.AddBookToList(ctx, domain.BookInput{WorkKey: "/works/OL1W", Title: "One"}, domain.SystemListReading)
	require.NoError(t, err)
	created, err := svc.Create(ctx)
	require.NoError(t, err)

	_, err = lib.CreateList(ctx, "After backup", "", "")
	require.NoError(t, err)

	backups, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, backups, 1)

	result, err := svc.Restore(ctx, backups[0].ID, backupimport.ModeReplace)
	require.NoError(t, err)
	assert.Equal(t, created.Path, result.Path)
	assert.Equal(t, 1, result.BooksImported)
	assert.Equal(t, 1, result.ListBooksImported)

	lists, err := lib.GetAllLists(ctx)
	require.NoError(t, err)
	assert.Len(t, lists, 3, "custom list created after the backup is gone")

	_, err = svc.Restore(ctx, "missing", backupimport.ModeMerge)
	assert.ErrorIs(t, err, ErrBackupNotFound)
}

func TestRestore_RejectsGarbage(t *testing.T) {
	svc, _, _ := testSetup(t)

	path := filepath.Join(t.TempDir(), "garbage.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := svc.Restore(context.Background(), path, backupimport.ModeMerge)
	assert.ErrorIs(t, err, domainerrors.ErrMalformedDocument)
}
