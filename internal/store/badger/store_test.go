package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbookapp/openbook-library/internal/domain"
	"github.com/openbookapp/openbook-library/internal/logger"
	"github.com/openbookapp/openbook-library/internal/store"
	"github.com/openbookapp/openbook-library/internal/store/storetest"
)

func newTestStore(t *testing.T, emitter store.EventEmitter) *Store {
	t.Helper()
	s, err := OpenInMemory(logger.Discard(), emitter)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T, emitter store.EventEmitter) store.Store {
		return newTestStore(t, emitter)
	})
}

func TestOpen_OnDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir, logger.Discard(), nil)
	require.NoError(t, err)
	require.NoError(t, s.WriteTx(ctx, func(tx store.Tx) error {
		return tx.CreateList(ctx, storetest.NewList("list-1", 0))
	}))
	require.NoError(t, s.Close())

	s, err = Open(dir, logger.Discard(), nil)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.GetList(ctx, "list-1")
	assert.NoError(t, err)
}

func TestListIDsSharingPrefix(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	// "system" must not match rows of "system:reading".
	require.NoError(t, s.WriteTx(ctx, func(tx store.Tx) error {
		for _, id := range []string{"system", "system:reading"} {
			if err := tx.CreateList(ctx, storetest.NewList(id, 0)); err != nil {
				return err
			}
		}
		if err := tx.CreateBook(ctx, storetest.NewBook("b1", "/works/1", 0)); err != nil {
			return err
		}
		return tx.CreateListBook(ctx, domain.NewListBook("lb-1", "system:reading", "b1", 0, domain.Now()))
	}))

	n, err := s.CountListBooks(ctx, store.ListBookFilter{ListID: "system"})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = s.CountListBooks(ctx, store.ListBookFilter{ListID: "system:reading"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUpdateBook_ReindexesWorkKey(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	book := storetest.NewBook("b1", "/works/old", 0)
	require.NoError(t, s.WriteTx(ctx, func(tx store.Tx) error { return tx.CreateBook(ctx, book) }))

	book.WorkKey = "/works/new"
	require.NoError(t, s.WriteTx(ctx, func(tx store.Tx) error { return tx.UpdateBook(ctx, book) }))

	_, err := s.GetBookByWorkKey(ctx, "/works/old")
	assert.ErrorIs(t, err, store.ErrNotFound)

	got, err := s.GetBookByWorkKey(ctx, "/works/new")
	require.NoError(t, err)
	assert.Equal(t, "b1", got.ID)
}

func TestDeleteBook_CascadesMemberships(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	require.NoError(t, s.WriteTx(ctx, func(tx store.Tx) error {
		if err := tx.CreateList(ctx, storetest.NewList("l1", 0)); err != nil {
			return err
		}
		if err := tx.CreateBook(ctx, storetest.NewBook("b1", "/works/1", 0)); err != nil {
			return err
		}
		return tx.CreateListBook(ctx, domain.NewListBook("lb-1", "l1", "b1", 0, domain.Now()))
	}))

	require.NoError(t, s.WriteTx(ctx, func(tx store.Tx) error { return tx.DeleteBook(ctx, "b1") }))

	n, err := s.CountListBooks(ctx, store.ListBookFilter{})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
