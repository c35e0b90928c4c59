package backupimport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openbookapp/openbook-library/internal/backup/export"
	"github.com/openbookapp/openbook-library/internal/domain"
	domainerrors "github.com/openbookapp/openbook-library/internal/errors"
	"github.com/openbookapp/openbook-library/internal/id"
	"github.com/openbookapp/openbook-library/internal/store"
)

// Importer applies documents to a store.
type Importer struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
}

// New creates an Importer.
func New(s store.Store, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{store: s, logger: logger, now: domain.Now}
}

// Import validates data and applies it in a single write transaction.
// Any failure leaves the store exactly as it was.
func (i *Importer) Import(ctx context.Context, data []byte, mode Mode) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if mode == "" {
		mode = ModeMerge
	}
	if !mode.Valid() {
		return nil, domainerrors.Validationf("unknown import mode %q", mode)
	}

	doc, err := decode(data)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var result *Result
	err = i.store.WriteTx(ctx, func(tx store.Tx) error {
		result = &Result{}
		r := run{tx: tx, mode: mode, now: i.now(), result: result, bookIDs: make(map[string]string, len(doc.Books))}
		return r.apply(ctx, doc)
	})
	if err != nil {
		return nil, classify(err)
	}

	i.logger.Info("library imported",
		"mode", mode,
		"version", doc.Version,
		"lists_imported", result.ListsImported,
		"books_imported", result.BooksImported,
		"list_books_imported", result.ListBooksImported,
		"duration", time.Since(start),
	)
	return result, nil
}

func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	return domainerrors.Storage(err, "import library")
}

// run holds the state of one import attempt.
type run struct {
	tx     store.Tx
	now    time.Time
	result *Result
	// bookIDs maps document book ids to ids in this store.
	bookIDs map[string]string
	mode    Mode
}

func (r *run) apply(ctx context.Context, doc *export.Document) error {
	if r.mode == ModeReplace {
		if err := r.wipe(ctx); err != nil {
			return err
		}
	}
	for idx, rec := range doc.Lists {
		if err := r.importList(ctx, rec); err != nil {
			return fmt.Errorf("lists[%d]: %w", idx, err)
		}
	}
	for idx, rec := range doc.Books {
		if err := r.importBook(ctx, rec); err != nil {
			return fmt.Errorf("books[%d]: %w", idx, err)
		}
	}
	for idx, rec := range doc.ListBooks {
		if err := r.importListBook(ctx, rec); err != nil {
			return fmt.Errorf("listBooks[%d]: %w", idx, err)
		}
	}
	return nil
}

// wipe removes memberships, books and custom lists. System lists survive.
func (r *run) wipe(ctx context.Context) error {
	if _, err := r.tx.DeleteListBooks(ctx, store.ListBookFilter{}); err != nil {
		return fmt.Errorf("clear list books: %w", err)
	}
	if _, err := r.tx.DeleteAllBooks(ctx); err != nil {
		return fmt.Errorf("clear books: %w", err)
	}
	if _, err := r.tx.DeleteLists(ctx, store.ListFilter{Type: domain.ListTypeCustom}); err != nil {
		return fmt.Errorf("clear custom lists: %w", err)
	}
	return nil
}

func (r *run) importList(ctx context.Context, rec export.ListRecord) error {
	if rec.ID == "" {
		return domainerrors.InvalidDocumentf("list without id")
	}

	existing, err := r.tx.GetList(ctx, rec.ID)
	switch {
	case err == nil:
		if existing.IsSystem() {
			return nil
		}
		existing.Name = rec.Name
		existing.Icon = rec.Icon
		existing.Color = rec.Color
		existing.SortOrder = rec.SortOrder
		existing.Touch(r.now)
		if err := r.tx.UpdateList(ctx, existing); err != nil {
			return err
		}
	case errors.Is(err, store.ErrNotFound):
		if err := r.tx.CreateList(ctx, r.newList(rec)); err != nil {
			return err
		}
	default:
		return err
	}

	r.result.ListsImported++
	return nil
}

func (r *run) newList(rec export.ListRecord) *domain.ReadingList {
	listType := domain.ListType(rec.ListType)
	if listType != domain.ListTypeSystem {
		listType = domain.ListTypeCustom
	}
	return &domain.ReadingList{
		Syncable: domain.Syncable{
			ID:         rec.ID,
			UpdatedAt:  r.now,
			SyncStatus: domain.SyncPending,
		},
		CreatedAt: r.timestamp(rec.CreatedAt),
		Name:      rec.Name,
		ListType:  listType,
		Icon:      rec.Icon,
		Color:     rec.Color,
		SortOrder: rec.SortOrder,
	}
}

func (r *run) importBook(ctx context.Context, rec export.BookRecord) error {
	if rec.WorkKey == "" {
		return domainerrors.InvalidDocumentf("book %q without workKey", rec.ID)
	}

	existing, err := r.tx.GetBookByWorkKey(ctx, rec.WorkKey)
	switch {
	case err == nil:
		r.bookIDs[rec.ID] = existing.ID
		if r.mode == ModeMerge {
			mergeBook(existing, rec)
			existing.Touch(r.now)
			if err := r.tx.UpdateBook(ctx, existing); err != nil {
				return err
			}
		}
	case errors.Is(err, store.ErrNotFound):
		book, err := r.newBook(rec)
		if err != nil {
			return err
		}
		if err := r.tx.CreateBook(ctx, book); err != nil {
			return err
		}
		r.bookIDs[rec.ID] = book.ID
	default:
		return err
	}

	r.result.BooksImported++
	return nil
}

// mergeBook fills gaps in b from rec and keeps the higher progress.
// Values already set locally always win.
func mergeBook(b *domain.SavedBook, rec export.BookRecord) {
	if b.UserRating == nil && rec.UserRating != nil {
		rating := clamp(*rec.UserRating, domain.MinRating, domain.MaxRating)
		b.UserRating = &rating
	}
	if !b.HasNotes() && rec.Notes != nil && *rec.Notes != "" {
		notes := *rec.Notes
		b.Notes = &notes
	}
	if b.TotalPages == nil && rec.TotalPages != nil && *rec.TotalPages > 0 {
		total := *rec.TotalPages
		b.TotalPages = &total
		if b.CurrentPage == nil && rec.CurrentPage != nil {
			current := clamp(*rec.CurrentPage, 0, total)
			b.CurrentPage = &current
		}
	}
	if progress := clamp(rec.ReadingProgress, domain.MinProgress, domain.MaxProgress); progress > b.ReadingProgress {
		b.ReadingProgress = progress
	}
	if b.ReadingStartedAt == nil && rec.ReadingStartedAt != nil {
		t := domain.FromMillis(*rec.ReadingStartedAt)
		b.ReadingStartedAt = &t
	}
	if b.ReadingFinishedAt == nil && rec.ReadingFinishedAt != nil {
		t := domain.FromMillis(*rec.ReadingFinishedAt)
		b.ReadingFinishedAt = &t
	}
}

func (r *run) newBook(rec export.BookRecord) (*domain.SavedBook, error) {
	bookID, err := id.NewBook()
	if err != nil {
		return nil, fmt.Errorf("generate book ID: %w", err)
	}

	book := &domain.SavedBook{
		Syncable: domain.Syncable{
			ID:         bookID,
			UpdatedAt:  r.now,
			SyncStatus: domain.SyncPending,
		},
		CreatedAt:        r.timestamp(rec.CreatedAt),
		WorkKey:          rec.WorkKey,
		Title:            rec.Title,
		AuthorNames:      domain.DecodeAuthorNames(rec.AuthorNames),
		CoverURL:         rec.CoverURL,
		FirstPublishYear: rec.FirstPublishYear,
		Notes:            rec.Notes,
		ReadingProgress:  clamp(rec.ReadingProgress, domain.MinProgress, domain.MaxProgress),
	}
	if rec.UserRating != nil {
		rating := clamp(*rec.UserRating, domain.MinRating, domain.MaxRating)
		book.UserRating = &rating
	}
	if rec.TotalPages != nil && *rec.TotalPages > 0 {
		total := *rec.TotalPages
		book.TotalPages = &total
		if rec.CurrentPage != nil {
			current := clamp(*rec.CurrentPage, 0, total)
			book.CurrentPage = &current
		}
	}
	if rec.ReadingStartedAt != nil {
		t := domain.FromMillis(*rec.ReadingStartedAt)
		book.ReadingStartedAt = &t
	}
	if rec.ReadingFinishedAt != nil {
		t := domain.FromMillis(*rec.ReadingFinishedAt)
		book.ReadingFinishedAt = &t
	}
	return book, nil
}

func (r *run) importListBook(ctx context.Context, rec export.ListBookRecord) error {
	bookID, ok := r.bookIDs[rec.BookID]
	if !ok {
		return nil
	}

	if _, err := r.tx.GetList(ctx, rec.ListID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}

	n, err := r.tx.CountListBooks(ctx, store.ListBookFilter{ListID: rec.ListID, BookID: bookID})
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	lbID, err := id.NewListBook()
	if err != nil {
		return fmt.Errorf("generate list book ID: %w", err)
	}
	lb := domain.NewListBook(lbID, rec.ListID, bookID, rec.SortOrder, r.now)
	lb.AddedAt = r.timestamp(rec.AddedAt)
	if err := r.tx.CreateListBook(ctx, lb); err != nil {
		return err
	}

	r.result.ListBooksImported++
	return nil
}

// timestamp converts a document time, falling back to the import time when absent.
func (r *run) timestamp(ms int64) time.Time {
	if ms <= 0 {
		return r.now
	}
	return domain.FromMillis(ms)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
