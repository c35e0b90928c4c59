package service

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/openbookapp/openbook-library/internal/domain"
	"github.com/openbookapp/openbook-library/internal/store"
)

// LibraryStats summarises the library contents.
type LibraryStats struct {
	TotalLists      int `json:"total_lists"`
	CustomLists     int `json:"custom_lists"`
	TotalBooks      int `json:"total_books"`
	BooksWithRating int `json:"books_with_rating"`
	BooksWithNotes  int `json:"books_with_notes"`
	TotalListBooks  int `json:"total_list_books"`
	BooksFinished   int `json:"books_finished"`
	BooksInProgress int `json:"books_in_progress"`
}

// StatsService computes library statistics.
type StatsService struct {
	store  store.Reader
	logger *slog.Logger
}

// NewStatsService creates a new stats service.
func NewStatsService(s store.Reader, logger *slog.Logger) *StatsService {
	return &StatsService{
		store:  s,
		logger: logger,
	}
}

// GetLibraryStats counts lists, books and memberships.
// The three tables are read concurrently; counts are not a consistent snapshot
// when writers run at the same time.
func (s *StatsService) GetLibraryStats(ctx context.Context) (*LibraryStats, error) {
	var (
		lists     []*domain.ReadingList
		books     []*domain.SavedBook
		listBooks int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lists, err = s.store.ListLists(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		books, err = s.store.ListBooks(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		listBooks, err = s.store.CountListBooks(gctx, store.ListBookFilter{})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, classify(err, "library stats")
	}

	stats := &LibraryStats{
		TotalLists:     len(lists),
		TotalBooks:     len(books),
		TotalListBooks: listBooks,
	}
	for _, l := range lists {
		if l.ListType == domain.ListTypeCustom {
			stats.CustomLists++
		}
	}
	for _, b := range books {
		if b.UserRating != nil {
			stats.BooksWithRating++
		}
		if b.HasNotes() {
			stats.BooksWithNotes++
		}
		if b.ReadingFinishedAt != nil {
			stats.BooksFinished++
		}
		if b.ReadingProgress > 0 && b.ReadingProgress < 100 {
			stats.BooksInProgress++
		}
	}

	s.logger.Debug("library stats computed",
		"total_lists", stats.TotalLists,
		"total_books", stats.TotalBooks,
		"total_list_books", stats.TotalListBooks,
	)
	return stats, nil
}
