package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/openbookapp/openbook-library/internal/domain"
	"github.com/openbookapp/openbook-library/internal/store"
	"github.com/openbookapp/openbook-library/internal/watch"
)

// ErrNoHub is returned by the Watch methods when the service was built without a hub.
var ErrNoHub = errors.New("service: no watch hub configured")

// watchQuery emits query's result immediately and again after every committed
// change to tables. Only the latest result is kept when the reader falls behind.
// The channel is closed when ctx ends or the hub shuts down.
func watchQuery[T any](
	ctx context.Context,
	hub *watch.Hub,
	logger *slog.Logger,
	name string,
	tables []string,
	query func(context.Context) (T, error),
) (<-chan T, error) {
	if hub == nil {
		return nil, ErrNoHub
	}

	// Subscribe before the first read so no commit can slip between them.
	sub := hub.Subscribe(tables...)

	initial, err := query(ctx)
	if err != nil {
		hub.Unsubscribe(sub.ID)
		return nil, err
	}

	out := make(chan T, 1)
	out <- initial

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				hub.Unsubscribe(sub.ID)
				return
			case _, ok := <-sub.Events:
				if !ok {
					return
				}
			}

			// Coalesce a burst of changes into one re-read.
			drained := false
			for !drained {
				select {
				case _, ok := <-sub.Events:
					if !ok {
						return
					}
				default:
					drained = true
				}
			}

			v, err := query(ctx)
			if err != nil {
				if ctx.Err() == nil {
					logger.Warn("live query failed", "query", name, "error", err)
				}
				continue
			}

			select {
			case out <- v:
			default:
				select {
				case <-out:
				default:
				}
				out <- v
			}
		}
	}()

	return out, nil
}

// WatchLists emits every list ordered by sort order.
func (s *LibraryService) WatchLists(ctx context.Context) (<-chan []*domain.ReadingList, error) {
	return watchQuery(ctx, s.hub, s.logger, "lists",
		[]string{store.TableReadingLists},
		s.GetAllLists,
	)
}

// WatchBooksInList emits the list's books in membership order.
func (s *LibraryService) WatchBooksInList(ctx context.Context, listID string) (<-chan []*domain.SavedBook, error) {
	return watchQuery(ctx, s.hub, s.logger, "books_in_list",
		[]string{store.TableListBooks, store.TableSavedBooks},
		func(ctx context.Context) ([]*domain.SavedBook, error) {
			return s.GetBooksInList(ctx, listID)
		},
	)
}

// WatchBookListStatus emits the ids of the lists the work belongs to.
func (s *LibraryService) WatchBookListStatus(ctx context.Context, workKey string) (<-chan domain.BookListStatus, error) {
	return watchQuery(ctx, s.hub, s.logger, "book_list_status",
		[]string{store.TableListBooks, store.TableSavedBooks},
		func(ctx context.Context) (domain.BookListStatus, error) {
			return s.GetBookListStatus(ctx, workKey)
		},
	)
}
