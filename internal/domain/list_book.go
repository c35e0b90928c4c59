package domain

import "time"

// ListBook records that a book is a member of a list.
// At most one row exists per (ListID, BookID) pair.
type ListBook struct {
	Syncable
	AddedAt   time.Time `json:"added_at"`
	ListID    string    `json:"list_id"`
	BookID    string    `json:"book_id"`
	SortOrder int       `json:"sort_order"`
}

// NextListBookSortOrder returns the sort order that appends after every row in rows.
func NextListBookSortOrder(rows []*ListBook) int {
	next := 0
	for _, lb := range rows {
		if lb.SortOrder >= next {
			next = lb.SortOrder + 1
		}
	}
	return next
}

// NewListBook builds a pending membership row.
func NewListBook(id, listID, bookID string, sortOrder int, now time.Time) *ListBook {
	return &ListBook{
		Syncable: Syncable{
			ID:         id,
			UpdatedAt:  now,
			SyncStatus: SyncPending,
		},
		AddedAt:   now,
		ListID:    listID,
		BookID:    bookID,
		SortOrder: sortOrder,
	}
}

// BookListStatus is the set of lists a work currently belongs to.
// BookID is empty when the work has never been saved.
type BookListStatus struct {
	WorkKey string   `json:"work_key"`
	BookID  string   `json:"book_id,omitempty"`
	ListIDs []string `json:"list_ids"`
}

// InAnyList reports whether the work belongs to at least one list.
func (s BookListStatus) InAnyList() bool {
	return len(s.ListIDs) > 0
}

// Contains reports whether the work belongs to listID.
func (s BookListStatus) Contains(listID string) bool {
	for _, id := range s.ListIDs {
		if id == listID {
			return true
		}
	}
	return false
}
