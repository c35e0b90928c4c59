package domain

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

// Rating and progress bounds.
const (
	MinRating   = 0
	MaxRating   = 5
	MinProgress = 0
	MaxProgress = 100
)

// BookInput is the normalised shape of a catalog work handed to the library.
type BookInput struct {
	FirstPublishYear *int     `json:"first_publish_year,omitempty"`
	WorkKey          string   `json:"work_key" validate:"required,max=200"`
	Title            string   `json:"title" validate:"required,max=500"`
	CoverURL         string   `json:"cover_url,omitempty" validate:"omitempty,url"`
	AuthorNames      []string `json:"author_names,omitempty" validate:"dive,max=200"`
}

// SavedBook is a locally cached projection of a catalog work, decorated with user state.
type SavedBook struct {
	Syncable
	CreatedAt         time.Time  `json:"created_at"`
	CoverURL          *string    `json:"cover_url,omitempty"`
	FirstPublishYear  *int       `json:"first_publish_year,omitempty"`
	UserRating        *int       `json:"user_rating,omitempty"`
	Notes             *string    `json:"notes,omitempty"`
	TotalPages        *int       `json:"total_pages,omitempty"`
	CurrentPage       *int       `json:"current_page,omitempty"`
	ReadingStartedAt  *time.Time `json:"reading_started_at,omitempty"`
	ReadingFinishedAt *time.Time `json:"reading_finished_at,omitempty"`
	WorkKey           string     `json:"work_key"`
	Title             string     `json:"title"`
	AuthorNames       []string   `json:"author_names"`
	ReadingProgress   int        `json:"reading_progress"`
}

// NewSavedBook builds a fresh, pending book from catalog input.
func NewSavedBook(id string, in BookInput, now time.Time) *SavedBook {
	b := &SavedBook{
		Syncable: Syncable{
			ID:         id,
			UpdatedAt:  now,
			SyncStatus: SyncPending,
		},
		CreatedAt:        now,
		WorkKey:          in.WorkKey,
		Title:            in.Title,
		AuthorNames:      append([]string{}, in.AuthorNames...),
		FirstPublishYear: in.FirstPublishYear,
	}
	if in.CoverURL != "" {
		cover := in.CoverURL
		b.CoverURL = &cover
	}
	return b
}

// Input converts the book back into catalog input, e.g. to re-add it to another list.
func (b *SavedBook) Input() BookInput {
	in := BookInput{
		WorkKey:          b.WorkKey,
		Title:            b.Title,
		AuthorNames:      append([]string{}, b.AuthorNames...),
		FirstPublishYear: b.FirstPublishYear,
	}
	if b.CoverURL != nil {
		in.CoverURL = *b.CoverURL
	}
	return in
}

// AuthorNamesFormatted joins the author names for display.
func (b *SavedBook) AuthorNamesFormatted() string {
	return strings.Join(b.AuthorNames, ", ")
}

// HasPageTracking reports whether a page count has been recorded.
func (b *SavedBook) HasPageTracking() bool {
	return b.TotalPages != nil && *b.TotalPages > 0
}

// HasNotes reports whether the book carries non-empty notes.
func (b *SavedBook) HasNotes() bool {
	return b.Notes != nil && *b.Notes != ""
}

// IsFinished reports whether the book has been marked as finished.
func (b *SavedBook) IsFinished() bool {
	return b.ReadingFinishedAt != nil
}

// CalculatedProgress derives progress from page tracking, falling back to the stored value.
func (b *SavedBook) CalculatedProgress() int {
	if !b.HasPageTracking() {
		return b.ReadingProgress
	}
	if b.CurrentPage == nil || *b.CurrentPage <= 0 {
		return 0
	}
	return PageProgress(*b.CurrentPage, *b.TotalPages)
}

// SetRating clamps rating into [0,5] and marks the book pending.
func (b *SavedBook) SetRating(rating int, now time.Time) {
	r := clamp(rating, MinRating, MaxRating)
	b.UserRating = &r
	b.Touch(now)
}

// SetProgress clamps progress into [0,100] and marks the book pending.
func (b *SavedBook) SetProgress(progress int, now time.Time) {
	b.ReadingProgress = clamp(progress, MinProgress, MaxProgress)
	b.Touch(now)
}

// SetNotes replaces the notes and marks the book pending.
func (b *SavedBook) SetNotes(notes string, now time.Time) {
	b.Notes = &notes
	b.Touch(now)
}

// SetPages records the page count and position, recomputing progress from their ratio.
// totalPages is raised to at least 1 and currentPage is clamped into [0,totalPages].
func (b *SavedBook) SetPages(totalPages, currentPage int, now time.Time) {
	total := max(1, totalPages)
	current := clamp(currentPage, 0, total)
	b.TotalPages = &total
	b.CurrentPage = &current
	b.ReadingProgress = PageProgress(current, total)
	b.Touch(now)
}

// SetCurrentPage moves the reading position against the stored page count.
// Without a page count the position and progress collapse to zero.
func (b *SavedBook) SetCurrentPage(currentPage int, now time.Time) {
	total := 0
	if b.TotalPages != nil {
		total = *b.TotalPages
	}
	current := clamp(currentPage, 0, max(total, 0))
	b.CurrentPage = &current
	if total > 0 {
		b.ReadingProgress = PageProgress(current, total)
	} else {
		b.ReadingProgress = 0
	}
	b.Touch(now)
}

// StartReading stamps the reading start time.
func (b *SavedBook) StartReading(now time.Time) {
	started := now
	b.ReadingStartedAt = &started
	b.Touch(now)
}

// FinishReading stamps the finish time, forces progress to 100 and
// backfills the current page when a page count is known.
func (b *SavedBook) FinishReading(now time.Time) {
	finished := now
	b.ReadingFinishedAt = &finished
	b.ReadingProgress = MaxProgress
	if b.TotalPages != nil && *b.TotalPages > 0 && (b.CurrentPage == nil || *b.CurrentPage == 0) {
		current := *b.TotalPages
		b.CurrentPage = &current
	}
	b.Touch(now)
}

// PageProgress returns round(100*current/total) clamped into [0,100].
// A non-positive total yields 0.
func PageProgress(current, total int) int {
	if total <= 0 {
		return 0
	}
	p := int(math.Round(float64(current) / float64(total) * 100))
	return clamp(p, MinProgress, MaxProgress)
}

// EncodeAuthorNames serialises author names the way they are persisted and exported.
func EncodeAuthorNames(names []string) string {
	if names == nil {
		names = []string{}
	}
	data, err := json.Marshal(names)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// DecodeAuthorNames parses a persisted author list.
// A value that is not a JSON array is treated as a single author name.
func DecodeAuthorNames(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return []string{raw}
	}
	if names == nil {
		return []string{}
	}
	return names
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
