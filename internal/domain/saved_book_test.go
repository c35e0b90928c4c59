package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func newTestBook() *SavedBook {
	now := time.UnixMilli(1_700_000_000_000)
	return NewSavedBook("book-1", BookInput{
		WorkKey:     "/works/OL45804W",
		Title:       "Fantastic Mr Fox",
		AuthorNames: []string{"Roald Dahl"},
		CoverURL:    "https://covers.openlibrary.org/b/id/6498519-M.jpg",
	}, now)
}

func TestNewSavedBook_Defaults(t *testing.T) {
	b := newTestBook()

	assert.Equal(t, SyncPending, b.SyncStatus)
	assert.Equal(t, 0, b.ReadingProgress)
	assert.Nil(t, b.UserRating)
	assert.Nil(t, b.Notes)
	assert.Nil(t, b.TotalPages)
	require.NotNil(t, b.CoverURL)
	assert.Equal(t, b.CreatedAt, b.UpdatedAt)
	assert.Equal(t, "Roald Dahl", b.AuthorNamesFormatted())
}

func TestSavedBook_SetRatingClamps(t *testing.T) {
	tests := map[int]int{-3: 0, 0: 0, 4: 4, 5: 5, 9: 5}

	for in, want := range tests {
		b := newTestBook()
		b.SyncStatus = SyncSynced
		b.SetRating(in, time.Now())

		require.NotNil(t, b.UserRating)
		assert.Equal(t, want, *b.UserRating, "rating %d", in)
		assert.Equal(t, SyncPending, b.SyncStatus)
	}
}

func TestSavedBook_SetProgressClamps(t *testing.T) {
	b := newTestBook()

	b.SetProgress(150, time.Now())
	assert.Equal(t, 100, b.ReadingProgress)

	b.SetProgress(-1, time.Now())
	assert.Equal(t, 0, b.ReadingProgress)
}

func TestSavedBook_SetPages(t *testing.T) {
	tests := []struct {
		name         string
		total        int
		current      int
		wantTotal    int
		wantCurrent  int
		wantProgress int
	}{
		{"half", 300, 150, 300, 150, 50},
		{"rounds", 3, 1, 3, 1, 33},
		{"rounds up", 3, 2, 3, 2, 67},
		{"current above total", 200, 250, 200, 200, 100},
		{"negative current", 200, -5, 200, 0, 0},
		{"zero total", 0, 10, 1, 1, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBook()
			b.SetPages(tt.total, tt.current, time.Now())

			assert.Equal(t, tt.wantTotal, *b.TotalPages)
			assert.Equal(t, tt.wantCurrent, *b.CurrentPage)
			assert.Equal(t, tt.wantProgress, b.ReadingProgress)
			assert.Equal(t, tt.wantProgress, b.CalculatedProgress())
		})
	}
}

func TestSavedBook_SetCurrentPage(t *testing.T) {
	b := newTestBook()
	b.SetPages(400, 0, time.Now())

	b.SetCurrentPage(100, time.Now())
	assert.Equal(t, 100, *b.CurrentPage)
	assert.Equal(t, 25, b.ReadingProgress)

	b.SetCurrentPage(500, time.Now())
	assert.Equal(t, 400, *b.CurrentPage)
	assert.Equal(t, 100, b.ReadingProgress)
	assert.Nil(t, b.ReadingFinishedAt, "reaching the last page does not finish the book")
}

func TestSavedBook_SetCurrentPageWithoutTotal(t *testing.T) {
	b := newTestBook()
	b.SetProgress(40, time.Now())

	b.SetCurrentPage(120, time.Now())

	assert.Equal(t, 0, *b.CurrentPage)
	assert.Equal(t, 0, b.ReadingProgress)
}

func TestSavedBook_FinishReading(t *testing.T) {
	now := time.Now()

	t.Run("backfills current page", func(t *testing.T) {
		b := newTestBook()
		b.TotalPages = intPtr(320)

		b.FinishReading(now)

		assert.Equal(t, 100, b.ReadingProgress)
		assert.Equal(t, 320, *b.CurrentPage)
		require.NotNil(t, b.ReadingFinishedAt)
		assert.True(t, b.IsFinished())
	})

	t.Run("keeps explicit current page", func(t *testing.T) {
		b := newTestBook()
		b.SetPages(320, 310, now)

		b.FinishReading(now)

		assert.Equal(t, 310, *b.CurrentPage)
		assert.Equal(t, 100, b.ReadingProgress)
	})

	t.Run("no page tracking", func(t *testing.T) {
		b := newTestBook()

		b.FinishReading(now)

		assert.Nil(t, b.CurrentPage)
		assert.Equal(t, 100, b.ReadingProgress)
	})
}

func TestSavedBook_CalculatedProgress(t *testing.T) {
	b := newTestBook()
	b.ReadingProgress = 42
	assert.Equal(t, 42, b.CalculatedProgress(), "falls back without page tracking")

	b.TotalPages = intPtr(0)
	assert.Equal(t, 42, b.CalculatedProgress(), "zero total is not page tracking")

	b.TotalPages = intPtr(100)
	assert.Equal(t, 0, b.CalculatedProgress(), "nil current page")

	b.CurrentPage = intPtr(250)
	assert.Equal(t, 100, b.CalculatedProgress())
}

func TestSavedBook_StartReading(t *testing.T) {
	b := newTestBook()
	b.SyncStatus = SyncSynced
	now := time.UnixMilli(1_700_000_500_000)

	b.StartReading(now)

	require.NotNil(t, b.ReadingStartedAt)
	assert.Equal(t, now, *b.ReadingStartedAt)
	assert.Equal(t, now, b.UpdatedAt)
	assert.Equal(t, SyncPending, b.SyncStatus)
}

func TestSavedBook_Input(t *testing.T) {
	b := newTestBook()
	in := b.Input()

	assert.Equal(t, b.WorkKey, in.WorkKey)
	assert.Equal(t, *b.CoverURL, in.CoverURL)
	assert.Equal(t, b.AuthorNames, in.AuthorNames)
}

func TestAuthorNamesEncoding(t *testing.T) {
	assert.Equal(t, `["Ursula K. Le Guin","Someone Else"]`, EncodeAuthorNames([]string{"Ursula K. Le Guin", "Someone Else"}))
	assert.Equal(t, "[]", EncodeAuthorNames(nil))

	assert.Equal(t, []string{"A", "B"}, DecodeAuthorNames(`["A","B"]`))
	assert.Equal(t, []string{}, DecodeAuthorNames(""))
	assert.Equal(t, []string{}, DecodeAuthorNames("null"))
	assert.Equal(t, []string{"Plain Name"}, DecodeAuthorNames("Plain Name"))
}
