// Package watch fans committed store changes out to live-query subscribers.
package watch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openbookapp/openbook-library/internal/store"
)

const (
	hubBuffer        = 1000
	subscriberBuffer = 64
)

// Subscriber receives the changes of the tables it subscribed to.
//
// Delivery never blocks the hub: when Events is full the change is dropped.
// A full buffer already holds a pending notification, so a subscriber that
// re-reads its query on every notification still converges on the latest state.
type Subscriber struct {
	SubscribedAt time.Time
	Events       chan store.Change
	Done         chan struct{}
	Tables       map[string]bool // empty means every table
	ID           string
}

func (s *Subscriber) wants(table string) bool {
	return len(s.Tables) == 0 || s.Tables[table]
}

// Hub broadcasts store changes to subscribers. It implements store.EventEmitter.
type Hub struct {
	subscribers map[string]*Subscriber
	events      chan store.Change
	logger      *slog.Logger
	wg          sync.WaitGroup
	mu          sync.RWMutex

	// Shutdown state - protected by shutdownMu
	shutdownMu sync.RWMutex
	shutdown   bool
}

var _ store.EventEmitter = (*Hub)(nil)

// NewHub creates a new Hub. Call Start to begin delivering changes.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		subscribers: make(map[string]*Subscriber),
		events:      make(chan store.Change, hubBuffer),
		logger:      logger,
	}
}

// Start runs the broadcast loop until ctx is done.
// This should be called once, in its own goroutine.
func (h *Hub) Start(ctx context.Context) {
	h.wg.Add(1)
	defer h.wg.Done()

	h.logger.Debug("watch hub starting")

	for {
		select {
		case change, ok := <-h.events:
			if !ok {
				return
			}
			h.broadcast(change)

		case <-ctx.Done():
			h.logger.Debug("watch hub stopping")
			h.closeAll()
			return
		}
	}
}

// Shutdown stops accepting changes, drains queued ones and closes every subscriber.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.shutdownMu.Lock()
	if h.shutdown {
		h.shutdownMu.Unlock()
		return nil
	}
	h.shutdown = true
	close(h.events)
	h.shutdownMu.Unlock()

	done := make(chan struct{})
	go func() {
		for change := range h.events {
			h.broadcast(change)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		h.logger.Warn("watch hub drain timeout, some changes may be lost")
	}

	h.wg.Wait()
	h.closeAll()
	return nil
}

// Emit queues a committed change for broadcasting.
func (h *Hub) Emit(change store.Change) {
	if h.SubscriberCount() == 0 {
		return
	}

	// Hold read lock through the send so Shutdown cannot close the channel mid-send.
	h.shutdownMu.RLock()
	defer h.shutdownMu.RUnlock()

	if h.shutdown {
		return
	}

	select {
	case h.events <- change:
	default:
		h.logger.Error("watch hub queue full, dropping change",
			slog.String("table", change.Table),
			slog.String("row_id", change.RowID))
	}
}

func (h *Hub) broadcast(change store.Change) {
	var delivered, dropped int

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subscribers {
		if !sub.wants(change.Table) {
			continue
		}
		select {
		case sub.Events <- change:
			delivered++
		default:
			dropped++
		}
	}

	h.logger.Debug("change broadcast",
		slog.String("table", change.Table),
		slog.String("op", string(change.Op)),
		slog.Group("stats",
			slog.Int("delivered", delivered),
			slog.Int("dropped", dropped)))
}

// Subscribe registers a subscriber for changes to tables (all tables if none given).
func (h *Hub) Subscribe(tables ...string) *Subscriber {
	sub := &Subscriber{
		ID:           uuid.NewString(),
		Tables:       make(map[string]bool, len(tables)),
		Events:       make(chan store.Change, subscriberBuffer),
		Done:         make(chan struct{}),
		SubscribedAt: time.Now(),
	}
	for _, t := range tables {
		sub.Tables[t] = true
	}

	h.mu.Lock()
	h.subscribers[sub.ID] = sub
	total := len(h.subscribers)
	h.mu.Unlock()

	h.logger.Debug("watch subscriber added",
		slog.String("subscriber_id", sub.ID),
		slog.Any("tables", tables),
		slog.Int("total_subscribers", total))
	return sub
}

// Unsubscribe removes a subscriber and closes its channels. Unknown ids are ignored.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	sub, ok := h.subscribers[id]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.subscribers, id)
	total := len(h.subscribers)
	h.mu.Unlock()

	close(sub.Done)
	close(sub.Events)

	h.logger.Debug("watch subscriber removed",
		slog.String("subscriber_id", id),
		slog.Duration("duration", time.Since(sub.SubscribedAt)),
		slog.Int("total_subscribers", total))
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subscribers {
		close(sub.Done)
		close(sub.Events)
	}
	h.subscribers = make(map[string]*Subscriber)
}
