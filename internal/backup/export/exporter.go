package export

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/openbookapp/openbook-library/internal/domain"
	"github.com/openbookapp/openbook-library/internal/store"
)

// Exporter builds snapshots from a store. It never writes.
type Exporter struct {
	store store.Reader
	now   func() time.Time
}

// New creates an Exporter.
func New(s store.Reader) *Exporter {
	return &Exporter{store: s, now: domain.Now}
}

// Export reads every list, book and membership into a Document.
func (e *Exporter) Export(ctx context.Context) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lists, err := e.store.ListLists(ctx)
	if err != nil {
		return nil, fmt.Errorf("export lists: %w", err)
	}
	books, err := e.store.ListBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("export books: %w", err)
	}
	listBooks, err := e.store.ListListBooks(ctx, store.ListBookFilter{})
	if err != nil {
		return nil, fmt.Errorf("export list books: %w", err)
	}

	doc := &Document{
		Version:    FormatVersion,
		ExportedAt: domain.Millis(e.now()),
		Lists:      make([]ListRecord, 0, len(lists)),
		Books:      make([]BookRecord, 0, len(books)),
		ListBooks:  make([]ListBookRecord, 0, len(listBooks)),
	}
	for _, l := range lists {
		doc.Lists = append(doc.Lists, FromList(l))
	}
	for _, b := range books {
		doc.Books = append(doc.Books, FromBook(b))
	}
	for _, lb := range listBooks {
		doc.ListBooks = append(doc.ListBooks, FromListBook(lb))
	}
	return doc, nil
}

// ExportJSON returns Export's document as indented JSON.
func (e *Exporter) ExportJSON(ctx context.Context) ([]byte, error) {
	doc, err := e.Export(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

// Filename returns the conventional file name for an export taken at now.
func Filename(now time.Time) string {
	return "openbook_library_" + now.UTC().Format(time.DateOnly) + ".json"
}
