package badger

import (
	"time"

	"github.com/openbookapp/openbook-library/internal/domain"
	"github.com/openbookapp/openbook-library/internal/store"
)

// Records are the persisted JSON shape of each row. Timestamps are epoch
// milliseconds so that values round-trip exactly.

type listRecord struct {
	ServerID   *string           `json:"server_id,omitempty"`
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	ListType   domain.ListType   `json:"list_type"`
	Icon       string            `json:"icon"`
	Color      string            `json:"color"`
	SyncStatus domain.SyncStatus `json:"local_sync_status"`
	SortOrder  int               `json:"sort_order"`
	CreatedAt  int64             `json:"created_at"`
	UpdatedAt  int64             `json:"updated_at"`
}

type bookRecord struct {
	CoverURL          *string           `json:"cover_url,omitempty"`
	FirstPublishYear  *int              `json:"first_publish_year,omitempty"`
	UserRating        *int              `json:"user_rating,omitempty"`
	Notes             *string           `json:"notes,omitempty"`
	TotalPages        *int              `json:"total_pages,omitempty"`
	CurrentPage       *int              `json:"current_page,omitempty"`
	ReadingStartedAt  *int64            `json:"reading_started_at,omitempty"`
	ReadingFinishedAt *int64            `json:"reading_finished_at,omitempty"`
	ServerID          *string           `json:"server_id,omitempty"`
	ID                string            `json:"id"`
	WorkKey           string            `json:"work_key"`
	Title             string            `json:"title"`
	AuthorNames       string            `json:"author_names"`
	SyncStatus        domain.SyncStatus `json:"local_sync_status"`
	ReadingProgress   int               `json:"reading_progress"`
	CreatedAt         int64             `json:"created_at"`
	UpdatedAt         int64             `json:"updated_at"`
}

type listBookRecord struct {
	ServerID   *string           `json:"server_id,omitempty"`
	ID         string            `json:"id"`
	ListID     string            `json:"list_id"`
	BookID     string            `json:"book_id"`
	SyncStatus domain.SyncStatus `json:"local_sync_status"`
	SortOrder  int               `json:"sort_order"`
	AddedAt    int64             `json:"added_at"`
	UpdatedAt  int64             `json:"updated_at"`
}

func millisPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func timePtr(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := time.UnixMilli(*ms)
	return &t
}

var lists = &table[domain.ReadingList, listRecord]{
	name: store.TableReadingLists,
	id:   func(l *domain.ReadingList) string { return l.ID },
	toRec: func(l *domain.ReadingList) listRecord {
		return listRecord{
			ServerID:   l.ServerID,
			ID:         l.ID,
			Name:       l.Name,
			ListType:   l.ListType,
			Icon:       l.Icon,
			Color:      l.Color,
			SyncStatus: l.SyncStatus,
			SortOrder:  l.SortOrder,
			CreatedAt:  l.CreatedAt.UnixMilli(),
			UpdatedAt:  l.UpdatedAt.UnixMilli(),
		}
	},
	fromRec: func(r listRecord) *domain.ReadingList {
		return &domain.ReadingList{
			Syncable: domain.Syncable{
				ID:         r.ID,
				UpdatedAt:  time.UnixMilli(r.UpdatedAt),
				ServerID:   r.ServerID,
				SyncStatus: r.SyncStatus,
			},
			CreatedAt: time.UnixMilli(r.CreatedAt),
			Name:      r.Name,
			ListType:  r.ListType,
			Icon:      r.Icon,
			Color:     r.Color,
			SortOrder: r.SortOrder,
		}
	},
}

const indexWorkKey = "work_key"

var books = &table[domain.SavedBook, bookRecord]{
	name: store.TableSavedBooks,
	id:   func(b *domain.SavedBook) string { return b.ID },
	toRec: func(b *domain.SavedBook) bookRecord {
		return bookRecord{
			CoverURL:          b.CoverURL,
			FirstPublishYear:  b.FirstPublishYear,
			UserRating:        b.UserRating,
			Notes:             b.Notes,
			TotalPages:        b.TotalPages,
			CurrentPage:       b.CurrentPage,
			ReadingStartedAt:  millisPtr(b.ReadingStartedAt),
			ReadingFinishedAt: millisPtr(b.ReadingFinishedAt),
			ServerID:          b.ServerID,
			ID:                b.ID,
			WorkKey:           b.WorkKey,
			Title:             b.Title,
			AuthorNames:       domain.EncodeAuthorNames(b.AuthorNames),
			SyncStatus:        b.SyncStatus,
			ReadingProgress:   b.ReadingProgress,
			CreatedAt:         b.CreatedAt.UnixMilli(),
			UpdatedAt:         b.UpdatedAt.UnixMilli(),
		}
	},
	fromRec: func(r bookRecord) *domain.SavedBook {
		return &domain.SavedBook{
			Syncable: domain.Syncable{
				ID:         r.ID,
				UpdatedAt:  time.UnixMilli(r.UpdatedAt),
				ServerID:   r.ServerID,
				SyncStatus: r.SyncStatus,
			},
			CreatedAt:         time.UnixMilli(r.CreatedAt),
			CoverURL:          r.CoverURL,
			FirstPublishYear:  r.FirstPublishYear,
			UserRating:        r.UserRating,
			Notes:             r.Notes,
			TotalPages:        r.TotalPages,
			CurrentPage:       r.CurrentPage,
			ReadingStartedAt:  timePtr(r.ReadingStartedAt),
			ReadingFinishedAt: timePtr(r.ReadingFinishedAt),
			WorkKey:           r.WorkKey,
			Title:             r.Title,
			AuthorNames:       domain.DecodeAuthorNames(r.AuthorNames),
			ReadingProgress:   r.ReadingProgress,
		}
	},
	indexes: []index[domain.SavedBook]{
		{name: indexWorkKey, keyGen: func(b *domain.SavedBook) string { return b.WorkKey }},
	},
}

const (
	indexListID = "list_id"
	indexBookID = "book_id"
)

var listBooks = &table[domain.ListBook, listBookRecord]{
	name: store.TableListBooks,
	id:   func(lb *domain.ListBook) string { return lb.ID },
	toRec: func(lb *domain.ListBook) listBookRecord {
		return listBookRecord{
			ServerID:   lb.ServerID,
			ID:         lb.ID,
			ListID:     lb.ListID,
			BookID:     lb.BookID,
			SyncStatus: lb.SyncStatus,
			SortOrder:  lb.SortOrder,
			AddedAt:    lb.AddedAt.UnixMilli(),
			UpdatedAt:  lb.UpdatedAt.UnixMilli(),
		}
	},
	fromRec: func(r listBookRecord) *domain.ListBook {
		return &domain.ListBook{
			Syncable: domain.Syncable{
				ID:         r.ID,
				UpdatedAt:  time.UnixMilli(r.UpdatedAt),
				ServerID:   r.ServerID,
				SyncStatus: r.SyncStatus,
			},
			AddedAt:   time.UnixMilli(r.AddedAt),
			ListID:    r.ListID,
			BookID:    r.BookID,
			SortOrder: r.SortOrder,
		}
	},
	indexes: []index[domain.ListBook]{
		{name: indexListID, keyGen: func(lb *domain.ListBook) string { return lb.ListID }},
		{name: indexBookID, keyGen: func(lb *domain.ListBook) string { return lb.BookID }},
	},
}
