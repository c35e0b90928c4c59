package service

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/openbookapp/openbook-library/internal/domain"
	domainerrors "github.com/openbookapp/openbook-library/internal/errors"
	"github.com/openbookapp/openbook-library/internal/id"
	"github.com/openbookapp/openbook-library/internal/store"
	"github.com/openbookapp/openbook-library/internal/watch"
)

// LibraryService manages reading lists, saved books and their membership.
// Every mutation runs in a single store write transaction.
type LibraryService struct {
	store  store.Store
	hub    *watch.Hub
	logger *slog.Logger
	now    func() time.Time
}

// NewLibraryService creates a new library service.
func NewLibraryService(s store.Store, hub *watch.Hub, logger *slog.Logger) *LibraryService {
	return &LibraryService{
		store:  s,
		hub:    hub,
		logger: logger,
		now:    domain.Now,
	}
}

// ListUpdate carries optional list attribute changes. Nil fields are left alone.
type ListUpdate struct {
	Name  *string
	Icon  *string
	Color *string
}

// Membership is the result of adding a book to a list.
type Membership struct {
	Book     *domain.SavedBook `json:"book"`
	ListBook *domain.ListBook  `json:"list_book"`
}

// SeedSystemLists creates any missing system list. It reports whether anything was created.
func (s *LibraryService) SeedSystemLists(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var created []string
	err := s.store.WriteTx(ctx, func(tx store.Tx) error {
		created = created[:0]
		now := s.now()
		for _, sl := range domain.SystemLists {
			_, err := tx.GetList(ctx, sl.ID)
			if err == nil {
				continue
			}
			if !isNotFound(err) {
				return err
			}
			if err := tx.CreateList(ctx, sl.NewReadingList(now)); err != nil {
				return err
			}
			created = append(created, sl.ID)
		}
		return nil
	})
	if err != nil {
		return false, classify(err, "seed system lists")
	}

	if len(created) > 0 {
		s.logger.Info("system lists seeded", "list_ids", created)
	}
	return len(created) > 0, nil
}

// CreateList creates a custom list appended after every existing list.
// The name is stored as given; callers validate it.
func (s *LibraryService) CreateList(ctx context.Context, name, icon, color string) (*domain.ReadingList, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	listID, err := id.NewList()
	if err != nil {
		return nil, fmt.Errorf("generate list ID: %w", err)
	}

	var list *domain.ReadingList
	err = s.store.WriteTx(ctx, func(tx store.Tx) error {
		lists, err := tx.ListLists(ctx)
		if err != nil {
			return err
		}
		list = domain.NewCustomList(listID, name, icon, color, domain.NextSortOrder(lists), s.now())
		return tx.CreateList(ctx, list)
	})
	if err != nil {
		return nil, classify(err, "create list")
	}

	s.logger.Info("list created",
		"list_id", list.ID,
		"name", list.Name,
		"sort_order", list.SortOrder,
	)
	return list, nil
}

// UpdateList changes the name, icon or color of a custom list.
// System lists are protected.
func (s *LibraryService) UpdateList(ctx context.Context, listID string, update ListUpdate) (*domain.ReadingList, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var list *domain.ReadingList
	err := s.store.WriteTx(ctx, func(tx store.Tx) error {
		var err error
		list, err = tx.GetList(ctx, listID)
		if err != nil {
			return err
		}
		if list.IsSystem() {
			return domainerrors.Protectedf("system list %s cannot be modified", listID)
		}

		if update.Name != nil {
			list.Name = *update.Name
		}
		if update.Icon != nil {
			list.Icon = *update.Icon
		}
		if update.Color != nil {
			list.Color = *update.Color
		}
		list.Touch(s.now())
		return tx.UpdateList(ctx, list)
	})
	if err != nil {
		return nil, classify(err, "update list")
	}

	s.logger.Info("list updated", "list_id", listID, "name", list.Name)
	return list, nil
}

// DeleteList removes a custom list and its memberships. Books are kept.
func (s *LibraryService) DeleteList(ctx context.Context, listID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if domain.IsSystemListID(listID) {
		return domainerrors.Protectedf("system list %s cannot be deleted", listID)
	}

	var removed int
	err := s.store.WriteTx(ctx, func(tx store.Tx) error {
		list, err := tx.GetList(ctx, listID)
		if err != nil {
			return err
		}
		if list.IsSystem() {
			return domainerrors.Protectedf("system list %s cannot be deleted", listID)
		}

		removed, err = tx.DeleteListBooks(ctx, store.ListBookFilter{ListID: listID})
		if err != nil {
			return err
		}
		return tx.DeleteList(ctx, listID)
	})
	if err != nil {
		return classify(err, "delete list")
	}

	s.logger.Info("list deleted", "list_id", listID, "memberships_removed", removed)
	return nil
}

// GetList retrieves a list by ID.
func (s *LibraryService) GetList(ctx context.Context, listID string) (*domain.ReadingList, error) {
	list, err := s.store.GetList(ctx, listID)
	return list, classify(err, "get list")
}

// GetAllLists returns every list ordered by sort order.
func (s *LibraryService) GetAllLists(ctx context.Context) ([]*domain.ReadingList, error) {
	lists, err := s.store.ListLists(ctx)
	return lists, classify(err, "get lists")
}

// GetListsWithCounts returns every list with the number of books it holds.
func (s *LibraryService) GetListsWithCounts(ctx context.Context) ([]domain.ListWithCount, error) {
	lists, err := s.store.ListLists(ctx)
	if err != nil {
		return nil, classify(err, "get lists")
	}
	rows, err := s.store.ListListBooks(ctx, store.ListBookFilter{})
	if err != nil {
		return nil, classify(err, "get list books")
	}

	counts := make(map[string]int, len(lists))
	for _, lb := range rows {
		counts[lb.ListID]++
	}

	out := make([]domain.ListWithCount, 0, len(lists))
	for _, l := range lists {
		out = append(out, domain.ListWithCount{ReadingList: l, BookCount: counts[l.ID]})
	}
	return out, nil
}

// SaveBook returns the book with in's work key, creating it if needed.
func (s *LibraryService) SaveBook(ctx context.Context, in domain.BookInput) (*domain.SavedBook, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var book *domain.SavedBook
	err := s.store.WriteTx(ctx, func(tx store.Tx) error {
		var err error
		book, err = s.ensureBook(ctx, tx, in)
		return err
	})
	return book, classify(err, "save book")
}

// ensureBook is the get-or-create step shared by every operation that accepts BookInput.
func (s *LibraryService) ensureBook(ctx context.Context, tx store.Tx, in domain.BookInput) (*domain.SavedBook, error) {
	book, err := tx.GetBookByWorkKey(ctx, in.WorkKey)
	if err == nil {
		return book, nil
	}
	if !isNotFound(err) {
		return nil, err
	}

	bookID, err := id.NewBook()
	if err != nil {
		return nil, fmt.Errorf("generate book ID: %w", err)
	}
	book = domain.NewSavedBook(bookID, in, s.now())
	if err := tx.CreateBook(ctx, book); err != nil {
		return nil, err
	}

	s.logger.Info("book saved", "book_id", book.ID, "work_key", book.WorkKey)
	return book, nil
}

// GetBook retrieves a book by ID.
func (s *LibraryService) GetBook(ctx context.Context, bookID string) (*domain.SavedBook, error) {
	book, err := s.store.GetBook(ctx, bookID)
	return book, classify(err, "get book")
}

// GetBookByWorkKey retrieves a book by its catalog work key.
func (s *LibraryService) GetBookByWorkKey(ctx context.Context, workKey string) (*domain.SavedBook, error) {
	book, err := s.store.GetBookByWorkKey(ctx, workKey)
	return book, classify(err, "get book by work key")
}

// GetAllBooks returns every saved book, newest first.
func (s *LibraryService) GetAllBooks(ctx context.Context) ([]*domain.SavedBook, error) {
	books, err := s.store.ListBooks(ctx)
	return books, classify(err, "get books")
}

// DeleteBook removes a book and every membership that references it.
func (s *LibraryService) DeleteBook(ctx context.Context, bookID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var removed int
	err := s.store.WriteTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetBook(ctx, bookID); err != nil {
			return err
		}
		var err error
		removed, err = tx.DeleteListBooks(ctx, store.ListBookFilter{BookID: bookID})
		if err != nil {
			return err
		}
		return tx.DeleteBook(ctx, bookID)
	})
	if err != nil {
		return classify(err, "delete book")
	}

	s.logger.Info("book deleted", "book_id", bookID, "memberships_removed", removed)
	return nil
}

// AddBookToList saves the book if needed and appends it to the list.
// Adding a book that is already in the list returns the existing membership.
func (s *LibraryService) AddBookToList(ctx context.Context, in domain.BookInput, listID string) (*Membership, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var m *Membership
	err := s.store.WriteTx(ctx, func(tx store.Tx) error {
		var err error
		m, err = s.addToList(ctx, tx, in, listID)
		return err
	})
	if err != nil {
		return nil, classify(err, "add book to list")
	}
	return m, nil
}

func (s *LibraryService) addToList(ctx context.Context, tx store.Tx, in domain.BookInput, listID string) (*Membership, error) {
	if _, err := tx.GetList(ctx, listID); err != nil {
		if isNotFound(err) {
			return nil, domainerrors.NotFoundf("list %s not found", listID)
		}
		return nil, err
	}

	book, err := s.ensureBook(ctx, tx, in)
	if err != nil {
		return nil, err
	}

	rows, err := tx.ListListBooks(ctx, store.ListBookFilter{ListID: listID})
	if err != nil {
		return nil, err
	}
	for _, lb := range rows {
		if lb.BookID == book.ID {
			return &Membership{Book: book, ListBook: lb}, nil
		}
	}

	lbID, err := id.NewListBook()
	if err != nil {
		return nil, fmt.Errorf("generate list book ID: %w", err)
	}
	lb := domain.NewListBook(lbID, listID, book.ID, domain.NextListBookSortOrder(rows), s.now())
	if err := tx.CreateListBook(ctx, lb); err != nil {
		return nil, err
	}

	s.logger.Info("book added to list",
		"book_id", book.ID,
		"list_id", listID,
		"sort_order", lb.SortOrder,
	)
	return &Membership{Book: book, ListBook: lb}, nil
}

// RemoveBookFromList deletes the book's membership in the list. The book itself is kept.
func (s *LibraryService) RemoveBookFromList(ctx context.Context, bookID, listID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var removed int
	err := s.store.WriteTx(ctx, func(tx store.Tx) error {
		var err error
		removed, err = tx.DeleteListBooks(ctx, store.ListBookFilter{ListID: listID, BookID: bookID})
		return err
	})
	if err != nil {
		return classify(err, "remove book from list")
	}

	if removed > 0 {
		s.logger.Info("book removed from list", "book_id", bookID, "list_id", listID)
	}
	return nil
}

// ToggleBookInList removes the book from the list if present, otherwise adds it.
// It returns true when the book ends up in the list.
func (s *LibraryService) ToggleBookInList(ctx context.Context, in domain.BookInput, listID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var added bool
	err := s.store.WriteTx(ctx, func(tx store.Tx) error {
		book, err := tx.GetBookByWorkKey(ctx, in.WorkKey)
		switch {
		case err == nil:
			removed, err := tx.DeleteListBooks(ctx, store.ListBookFilter{ListID: listID, BookID: book.ID})
			if err != nil {
				return err
			}
			if removed > 0 {
				added = false
				return nil
			}
		case !isNotFound(err):
			return err
		}

		if _, err := s.addToList(ctx, tx, in, listID); err != nil {
			return err
		}
		added = true
		return nil
	})
	if err != nil {
		return false, classify(err, "toggle book in list")
	}
	return added, nil
}

// updateBook loads a book, applies mutate and writes it back in one transaction.
func (s *LibraryService) updateBook(ctx context.Context, bookID, op string, mutate func(b *domain.SavedBook, now time.Time)) (*domain.SavedBook, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var book *domain.SavedBook
	err := s.store.WriteTx(ctx, func(tx store.Tx) error {
		var err error
		book, err = tx.GetBook(ctx, bookID)
		if err != nil {
			return err
		}
		mutate(book, s.now())
		return tx.UpdateBook(ctx, book)
	})
	if err != nil {
		return nil, classify(err, op)
	}
	return book, nil
}

// SetBookRating sets the rating, clamped into [0,5].
func (s *LibraryService) SetBookRating(ctx context.Context, bookID string, rating int) (*domain.SavedBook, error) {
	return s.updateBook(ctx, bookID, "set book rating", func(b *domain.SavedBook, now time.Time) {
		b.SetRating(rating, now)
	})
}

// SetBookProgress sets the reading progress, clamped into [0,100].
func (s *LibraryService) SetBookProgress(ctx context.Context, bookID string, progress int) (*domain.SavedBook, error) {
	return s.updateBook(ctx, bookID, "set book progress", func(b *domain.SavedBook, now time.Time) {
		b.SetProgress(progress, now)
	})
}

// SetBookNotes replaces the book's notes.
func (s *LibraryService) SetBookNotes(ctx context.Context, bookID, notes string) (*domain.SavedBook, error) {
	return s.updateBook(ctx, bookID, "set book notes", func(b *domain.SavedBook, now time.Time) {
		b.SetNotes(notes, now)
	})
}

// SetBookPages records the page count and position and recomputes progress.
func (s *LibraryService) SetBookPages(ctx context.Context, bookID string, totalPages, currentPage int) (*domain.SavedBook, error) {
	return s.updateBook(ctx, bookID, "set book pages", func(b *domain.SavedBook, now time.Time) {
		b.SetPages(totalPages, currentPage, now)
	})
}

// UpdateCurrentPage moves the reading position and recomputes progress.
// Reaching the last page does not finish the book.
func (s *LibraryService) UpdateCurrentPage(ctx context.Context, bookID string, currentPage int) (*domain.SavedBook, error) {
	return s.updateBook(ctx, bookID, "update current page", func(b *domain.SavedBook, now time.Time) {
		b.SetCurrentPage(currentPage, now)
	})
}

// StartReading stamps the reading start time.
func (s *LibraryService) StartReading(ctx context.Context, bookID string) (*domain.SavedBook, error) {
	return s.updateBook(ctx, bookID, "start reading", func(b *domain.SavedBook, now time.Time) {
		b.StartReading(now)
	})
}

// FinishReading marks the book finished and moves it from the Reading list to
// the Read list. Both steps commit together or not at all.
func (s *LibraryService) FinishReading(ctx context.Context, bookID string) (*domain.SavedBook, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var book *domain.SavedBook
	err := s.store.WriteTx(ctx, func(tx store.Tx) error {
		var err error
		book, err = tx.GetBook(ctx, bookID)
		if err != nil {
			return err
		}
		book.FinishReading(s.now())
		if err := tx.UpdateBook(ctx, book); err != nil {
			return err
		}

		if _, err := tx.DeleteListBooks(ctx, store.ListBookFilter{ListID: domain.SystemListReading, BookID: bookID}); err != nil {
			return err
		}
		_, err = s.addToList(ctx, tx, book.Input(), domain.SystemListRead)
		return err
	})
	if err != nil {
		return nil, classify(err, "finish reading")
	}

	s.logger.Info("book finished", "book_id", bookID)
	return book, nil
}

// MarkBookSynced records that the book has been reconciled with the remote row serverID.
func (s *LibraryService) MarkBookSynced(ctx context.Context, bookID, serverID string) (*domain.SavedBook, error) {
	return s.updateBook(ctx, bookID, "mark book synced", func(b *domain.SavedBook, now time.Time) {
		b.MarkSynced(serverID, now)
	})
}

// MarkBookConflict flags the book as conflicting with its remote copy.
func (s *LibraryService) MarkBookConflict(ctx context.Context, bookID string) (*domain.SavedBook, error) {
	return s.updateBook(ctx, bookID, "mark book conflict", func(b *domain.SavedBook, now time.Time) {
		b.MarkConflict(now)
	})
}

// IsBookInList reports whether the work is saved and belongs to listID.
func (s *LibraryService) IsBookInList(ctx context.Context, workKey, listID string) (bool, error) {
	book, err := s.store.GetBookByWorkKey(ctx, workKey)
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, classify(err, "is book in list")
	}

	n, err := s.store.CountListBooks(ctx, store.ListBookFilter{ListID: listID, BookID: book.ID})
	if err != nil {
		return false, classify(err, "is book in list")
	}
	return n > 0, nil
}

// IsBookInReadingList reports whether the work is on the Reading system list.
func (s *LibraryService) IsBookInReadingList(ctx context.Context, workKey string) (bool, error) {
	return s.IsBookInList(ctx, workKey, domain.SystemListReading)
}

// GetBooksInList returns the list's books in membership order.
func (s *LibraryService) GetBooksInList(ctx context.Context, listID string) ([]*domain.SavedBook, error) {
	rows, err := s.store.ListListBooks(ctx, store.ListBookFilter{ListID: listID})
	if err != nil {
		return nil, classify(err, "get books in list")
	}

	books := make([]*domain.SavedBook, 0, len(rows))
	for _, lb := range rows {
		book, err := s.store.GetBook(ctx, lb.BookID)
		if isNotFound(err) {
			// Dangling membership; skip rather than fail the whole list.
			s.logger.Warn("membership references missing book", "list_book_id", lb.ID, "book_id", lb.BookID)
			continue
		}
		if err != nil {
			return nil, classify(err, "get books in list")
		}
		books = append(books, book)
	}
	return books, nil
}

// GetListsForBook returns every list containing the book, in list sort order.
func (s *LibraryService) GetListsForBook(ctx context.Context, bookID string) ([]*domain.ReadingList, error) {
	rows, err := s.store.ListListBooks(ctx, store.ListBookFilter{BookID: bookID})
	if err != nil {
		return nil, classify(err, "get lists for book")
	}

	lists := make([]*domain.ReadingList, 0, len(rows))
	for _, lb := range rows {
		list, err := s.store.GetList(ctx, lb.ListID)
		if isNotFound(err) {
			continue
		}
		if err != nil {
			return nil, classify(err, "get lists for book")
		}
		lists = append(lists, list)
	}

	slices.SortStableFunc(lists, func(a, b *domain.ReadingList) int {
		return cmp.Compare(a.SortOrder, b.SortOrder)
	})
	return lists, nil
}

// GetBookListStatus reports which lists the work currently belongs to.
func (s *LibraryService) GetBookListStatus(ctx context.Context, workKey string) (domain.BookListStatus, error) {
	status := domain.BookListStatus{WorkKey: workKey, ListIDs: []string{}}

	book, err := s.store.GetBookByWorkKey(ctx, workKey)
	if isNotFound(err) {
		return status, nil
	}
	if err != nil {
		return status, classify(err, "get book list status")
	}
	status.BookID = book.ID

	rows, err := s.store.ListListBooks(ctx, store.ListBookFilter{BookID: book.ID})
	if err != nil {
		return status, classify(err, "get book list status")
	}
	for _, lb := range rows {
		status.ListIDs = append(status.ListIDs, lb.ListID)
	}
	return status, nil
}

// GetBookCountInList counts the memberships of a list.
func (s *LibraryService) GetBookCountInList(ctx context.Context, listID string) (int, error) {
	n, err := s.store.CountListBooks(ctx, store.ListBookFilter{ListID: listID})
	return n, classify(err, "count books in list")
}

// GetTotalBooksCount counts every saved book.
func (s *LibraryService) GetTotalBooksCount(ctx context.Context) (int, error) {
	books, err := s.store.ListBooks(ctx)
	return len(books), classify(err, "count books")
}
