package domain

import "time"

// ListType distinguishes the seeded system lists from user-created ones.
type ListType string

// List types.
const (
	ListTypeSystem ListType = "system"
	ListTypeCustom ListType = "custom"
)

// Well-known ids of the system lists.
const (
	SystemListReading  = "system:reading"
	SystemListWillRead = "system:will_read"
	SystemListRead     = "system:read"
)

// Defaults applied to custom lists created without presentation attributes.
const (
	DefaultListIcon  = "folder"
	DefaultListColor = "#607D8B"
)

// ReadingList is a named collection of books.
// System lists are seeded once and can never be deleted.
type ReadingList struct {
	Syncable
	CreatedAt time.Time `json:"created_at"`
	Name      string    `json:"name"`
	ListType  ListType  `json:"list_type"`
	Icon      string    `json:"icon"`
	Color     string    `json:"color"`
	SortOrder int       `json:"sort_order"`
}

// IsSystem reports whether the list is one of the protected system lists.
func (l *ReadingList) IsSystem() bool {
	return l.ListType == ListTypeSystem
}

// SystemList describes one of the seeded system lists.
type SystemList struct {
	ID        string
	Name      string
	Icon      string
	Color     string
	SortOrder int
}

// SystemLists are the three fixed lists every library starts with, in display order.
var SystemLists = []SystemList{
	{ID: SystemListReading, Name: "Reading", Icon: "📖", Color: "#4CAF50", SortOrder: 0},
	{ID: SystemListWillRead, Name: "Will Read", Icon: "🔖", Color: "#2196F3", SortOrder: 1},
	{ID: SystemListRead, Name: "Read", Icon: "✅", Color: "#9C27B0", SortOrder: 2},
}

// IsSystemListID reports whether id is one of the well-known system list ids.
func IsSystemListID(id string) bool {
	for _, sl := range SystemLists {
		if sl.ID == id {
			return true
		}
	}
	return false
}

// NewReadingList builds a row for sl stamped at now.
func (sl SystemList) NewReadingList(now time.Time) *ReadingList {
	return &ReadingList{
		Syncable: Syncable{
			ID:         sl.ID,
			UpdatedAt:  now,
			SyncStatus: SyncPending,
		},
		CreatedAt: now,
		Name:      sl.Name,
		ListType:  ListTypeSystem,
		Icon:      sl.Icon,
		Color:     sl.Color,
		SortOrder: sl.SortOrder,
	}
}

// ListWithCount pairs a list with the number of books it holds.
type ListWithCount struct {
	*ReadingList
	BookCount int `json:"book_count"`
}

// NextSortOrder returns the sort order that appends after every list in lists.
// An empty slice yields 0.
func NextSortOrder(lists []*ReadingList) int {
	next := 0
	for _, l := range lists {
		if l.SortOrder >= next {
			next = l.SortOrder + 1
		}
	}
	return next
}

// NewCustomList builds a user-created list. Empty icon and color fall back to the defaults.
func NewCustomList(id, name, icon, color string, sortOrder int, now time.Time) *ReadingList {
	if icon == "" {
		icon = DefaultListIcon
	}
	if color == "" {
		color = DefaultListColor
	}
	return &ReadingList{
		Syncable: Syncable{
			ID:         id,
			UpdatedAt:  now,
			SyncStatus: SyncPending,
		},
		CreatedAt: now,
		Name:      name,
		ListType:  ListTypeCustom,
		Icon:      icon,
		Color:     color,
		SortOrder: sortOrder,
	}
}
