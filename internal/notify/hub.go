// Package notify delivers game notifications to a player's connected
// clients.
package notify

import (
	"log/slog"
	"sync"
)

const defaultBuffer = 16

// Event is one notification.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Subscription receives events for one player until Close is called.
type Subscription struct {
	C <-chan Event

	hub      *Hub
	playerID string
	ch       chan Event
	once     sync.Once
}

// Close detaches the subscription from the hub.
func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.unsubscribe(s) })
}

// Hub routes events to every subscription of a player. Publishing never
// blocks: a subscriber whose buffer is full misses the event.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	buffer int
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: defaultBuffer,
	}
}

// Subscribe registers a new subscription for playerID.
func (h *Hub) Subscribe(playerID string) *Subscription {
	ch := make(chan Event, h.buffer)
	sub := &Subscription{C: ch, hub: h, playerID: playerID, ch: ch}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[playerID]; !ok {
		h.subs[playerID] = make(map[*Subscription]struct{})
	}
	h.subs[playerID][sub] = struct{}{}
	slog.Debug("notification subscriber added", "player_id", playerID)
	return sub
}

// Subscribers returns the number of subscriptions for playerID.
func (h *Hub) Subscribers(playerID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[playerID])
}

// Publish sends an event to every subscription of playerID.
func (h *Hub) Publish(playerID, eventType string, data any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ev := Event{Type: eventType, Data: data}
	for sub := range h.subs[playerID] {
		select {
		case sub.ch <- ev:
		default:
			slog.Warn("notification dropped", "player_id", playerID, "type", eventType)
		}
	}
}

func (h *Hub) unsubscribe(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.subs[s.playerID]
	if !ok {
		return
	}
	if _, ok := subs[s]; !ok {
		return
	}
	delete(subs, s)
	close(s.ch)
	if len(subs) == 0 {
		delete(h.subs, s.playerID)
	}
	slog.Debug("notification subscriber removed", "player_id", s.playerID)
}
