package badger

import (
	"encoding/json"
	"errors"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/openbookapp/openbook-library/internal/store"
)

const sep = "\x00"

// index derives the secondary key value of a row.
type index[T any] struct {
	name   string
	keyGen func(*T) string
}

// table provides transactional CRUD for one row type T persisted as record R.
type table[T, R any] struct {
	name    string
	id      func(*T) string
	toRec   func(*T) R
	fromRec func(R) *T
	indexes []index[T]
}

func (t *table[T, R]) key(id string) []byte {
	return []byte(t.name + sep + id)
}

func (t *table[T, R]) prefix() []byte {
	return []byte(t.name + sep)
}

func (t *table[T, R]) indexPrefix(name, value string) []byte {
	return []byte("idx" + sep + t.name + sep + name + sep + value + sep)
}

func (t *table[T, R]) decode(val []byte) (*T, error) {
	var rec R
	if err := json.Unmarshal(val, &rec); err != nil {
		return nil, fmt.Errorf("decode %s: %w", t.name, err)
	}
	return t.fromRec(rec), nil
}

func (t *table[T, R]) get(txn *badgerdb.Txn, id string) (*T, error) {
	item, err := txn.Get(t.key(id))
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, store.NotFound(t.name, id)
	}
	if err != nil {
		return nil, err
	}

	var v *T
	err = item.Value(func(val []byte) error {
		var derr error
		v, derr = t.decode(val)
		return derr
	})
	return v, err
}

// all returns every row of the table in key order.
func (t *table[T, R]) all(txn *badgerdb.Txn) ([]*T, error) {
	opts := badgerdb.DefaultIteratorOptions
	opts.Prefix = t.prefix()
	it := txn.NewIterator(opts)
	defer it.Close()

	out := []*T{}
	for it.Rewind(); it.Valid(); it.Next() {
		var v *T
		err := it.Item().Value(func(val []byte) error {
			var derr error
			v, derr = t.decode(val)
			return derr
		})
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// lookup returns the ids stored under an index value.
func (t *table[T, R]) lookup(txn *badgerdb.Txn, name, value string) []string {
	prefix := t.indexPrefix(name, value)
	opts := badgerdb.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	var ids []string
	for it.Rewind(); it.Valid(); it.Next() {
		ids = append(ids, string(it.Item().Key()[len(prefix):]))
	}
	return ids
}

// byIndex loads every row stored under an index value.
func (t *table[T, R]) byIndex(txn *badgerdb.Txn, name, value string) ([]*T, error) {
	ids := t.lookup(txn, name, value)

	out := make([]*T, 0, len(ids))
	for _, id := range ids {
		v, err := t.get(txn, id)
		if err != nil {
			return nil, fmt.Errorf("index %s points at missing row: %w", name, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (t *table[T, R]) put(txn *badgerdb.Txn, v *T) error {
	data, err := json.Marshal(t.toRec(v))
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", t.name, err)
	}
	if err := txn.Set(t.key(t.id(v)), data); err != nil {
		return err
	}
	for _, idx := range t.indexes {
		key := append(t.indexPrefix(idx.name, idx.keyGen(v)), t.id(v)...)
		if err := txn.Set(key, nil); err != nil {
			return err
		}
	}
	return nil
}

func (t *table[T, R]) dropIndexes(txn *badgerdb.Txn, v *T) error {
	for _, idx := range t.indexes {
		key := append(t.indexPrefix(idx.name, idx.keyGen(v)), t.id(v)...)
		if err := txn.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// insert writes a new row. Returns store.ErrAlreadyExists on duplicate ID.
func (t *table[T, R]) insert(txn *badgerdb.Txn, v *T) error {
	_, err := txn.Get(t.key(t.id(v)))
	if err == nil {
		return store.AlreadyExists(t.name, t.id(v))
	}
	if !errors.Is(err, badgerdb.ErrKeyNotFound) {
		return err
	}
	return t.put(txn, v)
}

// update replaces an existing row and re-points its indexes.
func (t *table[T, R]) update(txn *badgerdb.Txn, v *T) error {
	old, err := t.get(txn, t.id(v))
	if err != nil {
		return err
	}
	if err := t.dropIndexes(txn, old); err != nil {
		return err
	}
	return t.put(txn, v)
}

// remove deletes a row and its index keys.
func (t *table[T, R]) remove(txn *badgerdb.Txn, id string) error {
	old, err := t.get(txn, id)
	if err != nil {
		return err
	}
	if err := t.dropIndexes(txn, old); err != nil {
		return err
	}
	return txn.Delete(t.key(id))
}
