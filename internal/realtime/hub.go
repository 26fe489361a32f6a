// Package realtime fans row change events out to per-user subscribers.
package realtime

import (
	"sync"

	"essence-store/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Publisher accepts change events for delivery.
type Publisher interface {
	Publish(ev model.ChangeEvent)
}

type topic struct {
	userID uuid.UUID
	table  string
}

// Subscription receives the change events of one user on one table.
type Subscription struct {
	C <-chan model.ChangeEvent

	ch    chan model.ChangeEvent
	hub   *Hub
	topic topic
	once  sync.Once
}

// Close unsubscribes. C is closed afterwards, so a receiver ranging over it
// terminates.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

// Hub routes events to subscriptions by user and table.
type Hub struct {
	mu     sync.Mutex
	subs   map[topic]map[*Subscription]struct{}
	logger zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		subs:   make(map[topic]map[*Subscription]struct{}),
		logger: logger.With().Str("component", "realtime-hub").Logger(),
	}
}

// Subscribe registers interest in table rows owned by userID.
func (h *Hub) Subscribe(userID uuid.UUID, table string) *Subscription {
	ch := make(chan model.ChangeEvent, 1)
	sub := &Subscription{
		C:     ch,
		ch:    ch,
		hub:   h,
		topic: topic{userID: userID, table: table},
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.subs[sub.topic]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[sub.topic] = set
	}
	set[sub] = struct{}{}

	h.logger.Debug().
		Str("user_id", userID.String()).
		Str("table", table).
		Int("subscribers", len(set)).
		Msg("subscribed")

	return sub
}

// Publish delivers ev to every matching subscription without blocking. A
// subscriber that still has an undelivered event keeps that one; both mean
// "refetch" to the receiver.
func (h *Hub) Publish(ev model.ChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs[topic{userID: ev.UserID, table: ev.Table}] {
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for _, set := range h.subs {
		n += len(set)
	}
	return n
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.subs[sub.topic]
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.topic)
	}
	close(sub.ch)
}
