// Package badger implements store.Store on an embedded Badger key-value database.
//
// Rows are JSON records under a per-table key prefix. Secondary indexes are
// empty-valued keys of the form idx\x00<table>\x00<index>\x00<value>\x00<id>.
package badger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/openbookapp/openbook-library/internal/store"
)

// Store wraps a Badger database instance.
type Store struct {
	reader

	db      *badgerdb.DB
	logger  *slog.Logger
	emitter store.EventEmitter

	// writeMu serializes write transactions so they never conflict.
	writeMu sync.Mutex
}

var _ store.Store = (*Store)(nil)

// Open opens or creates a Badger database in the directory at path.
func Open(path string, logger *slog.Logger, emitter store.EventEmitter) (*Store, error) {
	opts := badgerdb.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Sync writes to disk to survive crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup
	return open(opts, logger, emitter)
}

// OpenInMemory opens a Badger database that lives only in memory.
func OpenInMemory(logger *slog.Logger, emitter store.EventEmitter) (*Store, error) {
	opts := badgerdb.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return open(opts, logger, emitter)
}

func open(opts badgerdb.Options, logger *slog.Logger, emitter store.EventEmitter) (*Store, error) {
	if emitter == nil {
		emitter = store.NewNoopEmitter()
	}

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	logger.Debug("badger store opened", "path", opts.Dir, "in_memory", opts.InMemory)

	return &Store{
		reader:  reader{db: db},
		db:      db,
		logger:  logger,
		emitter: emitter,
	}, nil
}

// Close gracefully closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// WriteTx runs fn in a single Badger update transaction and emits its changes after commit.
func (s *Store) WriteTx(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	w := &writer{}
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		w.reader = reader{db: s.db, txn: txn}
		return fn(w)
	})
	if err != nil {
		return err
	}

	w.changes.Flush(s.emitter)
	return nil
}

// reader implements store.Reader, either inside an open transaction or
// through fresh read-only views.
type reader struct {
	db  *badgerdb.DB
	txn *badgerdb.Txn
}

func (r reader) view(ctx context.Context, fn func(txn *badgerdb.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.txn != nil {
		return fn(r.txn)
	}
	return r.db.View(fn)
}

// writer implements store.Tx on top of an update transaction.
type writer struct {
	reader
	changes store.ChangeLog
}
