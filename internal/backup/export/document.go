// Package export produces portable JSON snapshots of the library.
package export

import (
	"time"

	"github.com/openbookapp/openbook-library/internal/domain"
)

// FormatVersion is the newest document version this engine reads and writes.
const FormatVersion = 1

// Document is a full snapshot of the three library tables.
// Ids are the exporting device's local ids; timestamps are epoch milliseconds.
type Document struct {
	Version    int              `json:"version"`
	ExportedAt int64            `json:"exportedAt"`
	Lists      []ListRecord     `json:"lists"`
	Books      []BookRecord     `json:"books"`
	ListBooks  []ListBookRecord `json:"listBooks"`
}

// ListRecord is a reading list as it appears in a document.
type ListRecord struct {
	ServerID        *string `json:"serverId"`
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	ListType        string  `json:"listType"`
	Icon            string  `json:"icon"`
	Color           string  `json:"color"`
	LocalSyncStatus string  `json:"localSyncStatus"`
	SortOrder       int     `json:"sortOrder"`
	CreatedAt       int64   `json:"createdAt"`
	UpdatedAt       int64   `json:"updatedAt"`
}

// BookRecord is a saved book as it appears in a document.
// AuthorNames holds the JSON-encoded author array, as stored.
type BookRecord struct {
	CoverURL          *string `json:"coverUrl"`
	FirstPublishYear  *int    `json:"firstPublishYear"`
	UserRating        *int    `json:"userRating"`
	Notes             *string `json:"notes"`
	ServerID          *string `json:"serverId"`
	TotalPages        *int    `json:"totalPages,omitempty"`
	CurrentPage       *int    `json:"currentPage,omitempty"`
	ReadingStartedAt  *int64  `json:"readingStartedAt,omitempty"`
	ReadingFinishedAt *int64  `json:"readingFinishedAt,omitempty"`
	ID                string  `json:"id"`
	WorkKey           string  `json:"workKey"`
	Title             string  `json:"title"`
	AuthorNames       string  `json:"authorNames"`
	LocalSyncStatus   string  `json:"localSyncStatus"`
	ReadingProgress   int     `json:"readingProgress"`
	CreatedAt         int64   `json:"createdAt"`
	UpdatedAt         int64   `json:"updatedAt"`
}

// ListBookRecord is a list membership as it appears in a document.
type ListBookRecord struct {
	ServerID        *string `json:"serverId"`
	ID              string  `json:"id"`
	ListID          string  `json:"listId"`
	BookID          string  `json:"bookId"`
	LocalSyncStatus string  `json:"localSyncStatus"`
	AddedAt         int64   `json:"addedAt"`
	SortOrder       int     `json:"sortOrder"`
	UpdatedAt       int64   `json:"updatedAt"`
}

// FromList converts a domain list to its document form.
func FromList(l *domain.ReadingList) ListRecord {
	return ListRecord{
		ID:              l.ID,
		Name:            l.Name,
		ListType:        string(l.ListType),
		Icon:            l.Icon,
		Color:           l.Color,
		SortOrder:       l.SortOrder,
		CreatedAt:       domain.Millis(l.CreatedAt),
		UpdatedAt:       domain.Millis(l.UpdatedAt),
		LocalSyncStatus: string(l.SyncStatus),
		ServerID:        l.ServerID,
	}
}

// FromBook converts a domain book to its document form.
func FromBook(b *domain.SavedBook) BookRecord {
	return BookRecord{
		ID:                b.ID,
		WorkKey:           b.WorkKey,
		Title:             b.Title,
		AuthorNames:       domain.EncodeAuthorNames(b.AuthorNames),
		CoverURL:          b.CoverURL,
		FirstPublishYear:  b.FirstPublishYear,
		UserRating:        b.UserRating,
		Notes:             b.Notes,
		ReadingProgress:   b.ReadingProgress,
		TotalPages:        b.TotalPages,
		CurrentPage:       b.CurrentPage,
		ReadingStartedAt:  millisPtr(b.ReadingStartedAt),
		ReadingFinishedAt: millisPtr(b.ReadingFinishedAt),
		CreatedAt:         domain.Millis(b.CreatedAt),
		UpdatedAt:         domain.Millis(b.UpdatedAt),
		LocalSyncStatus:   string(b.SyncStatus),
		ServerID:          b.ServerID,
	}
}

// FromListBook converts a domain membership to its document form.
func FromListBook(lb *domain.ListBook) ListBookRecord {
	return ListBookRecord{
		ID:              lb.ID,
		ListID:          lb.ListID,
		BookID:          lb.BookID,
		AddedAt:         domain.Millis(lb.AddedAt),
		SortOrder:       lb.SortOrder,
		UpdatedAt:       domain.Millis(lb.UpdatedAt),
		LocalSyncStatus: string(lb.SyncStatus),
		ServerID:        lb.ServerID,
	}
}

func millisPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := domain.Millis(*t)
	return &ms
}
