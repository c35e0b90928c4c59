package store

import (
	"context"

	"github.com/openbookapp/openbook-library/internal/domain"
)

// ListFilter narrows bulk list operations. A zero value matches every list.
type ListFilter struct {
	Type domain.ListType
}

// Matches reports whether l satisfies the filter.
func (f ListFilter) Matches(l *domain.ReadingList) bool {
	return f.Type == "" || l.ListType == f.Type
}

// ListBookFilter narrows membership queries. Empty fields match anything,
// so a zero value matches every row.
type ListBookFilter struct {
	ListID string
	BookID string
}

// Matches reports whether lb satisfies the filter.
func (f ListBookFilter) Matches(lb *domain.ListBook) bool {
	return (f.ListID == "" || lb.ListID == f.ListID) &&
		(f.BookID == "" || lb.BookID == f.BookID)
}

// Reader is the query half of the store.
//
// Get methods return ErrNotFound for unknown ids. List methods never return
// nil slices on success.
type Reader interface {
	GetList(ctx context.Context, id string) (*domain.ReadingList, error)
	// ListLists returns every list ordered by sort order.
	ListLists(ctx context.Context) ([]*domain.ReadingList, error)

	GetBook(ctx context.Context, id string) (*domain.SavedBook, error)
	// GetBookByWorkKey returns the oldest book with the given work key.
	GetBookByWorkKey(ctx context.Context, workKey string) (*domain.SavedBook, error)
	// ListBooks returns every book, newest first.
	ListBooks(ctx context.Context) ([]*domain.SavedBook, error)

	// ListListBooks returns matching membership rows ordered by sort order.
	ListListBooks(ctx context.Context, filter ListBookFilter) ([]*domain.ListBook, error)
	CountListBooks(ctx context.Context, filter ListBookFilter) (int, error)
}

// Tx is a scoped write transaction. Reads through a Tx observe its own writes.
type Tx interface {
	Reader

	CreateList(ctx context.Context, list *domain.ReadingList) error
	UpdateList(ctx context.Context, list *domain.ReadingList) error
	DeleteList(ctx context.Context, id string) error
	DeleteLists(ctx context.Context, filter ListFilter) (int, error)

	CreateBook(ctx context.Context, book *domain.SavedBook) error
	UpdateBook(ctx context.Context, book *domain.SavedBook) error
	DeleteBook(ctx context.Context, id string) error
	DeleteAllBooks(ctx context.Context) (int, error)

	CreateListBook(ctx context.Context, lb *domain.ListBook) error
	DeleteListBooks(ctx context.Context, filter ListBookFilter) (int, error)
}

// Store is a library row store.
type Store interface {
	Reader

	// WriteTx runs fn inside one write transaction. If fn returns an error
	// nothing it wrote becomes visible; otherwise all of it commits together
	// and the resulting changes are emitted.
	WriteTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
}
