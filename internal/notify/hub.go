// Package notify fans out membership notifications to connected clients.
//
// Delivery is best effort: a subscriber only sees notifications published while it is
// subscribed, and a subscriber whose buffer is full misses the notification.
package notify

import (
	"errors"
	"log/slog"
	"sync"

	"eventplanner/internal/domain"
	"eventplanner/internal/metrics"
)

// ErrHubClosed is returned by Subscribe after Close.
var ErrHubClosed = errors.New("notification hub closed")

// DefaultBufferSize is used when NewHub is given a non-positive size.
const DefaultBufferSize = 64

// Hub is an in-process broadcast registry. It is safe for concurrent use.
type Hub struct {
	logger     *slog.Logger
	bufferSize int

	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	closed bool
}

// Subscription receives the notifications of the topics it registered for.
type Subscription struct {
	hub    *Hub
	topics map[domain.Topic]struct{}
	ch     chan domain.Notification
}

// NewHub returns an open hub. bufferSize bounds each subscriber's queue; a full queue drops that subscriber's copy.
func NewHub(logger *slog.Logger, bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Hub{
		logger:     logger,
		bufferSize: bufferSize,
		subs:       make(map[*Subscription]struct{}),
	}
}

// Subscribe registers a new subscriber. With no topics the subscriber receives every topic.
func (h *Hub) Subscribe(topics ...domain.Topic) (*Subscription, error) {
	s := &Subscription{
		hub: h,
		ch:  make(chan domain.Notification, h.bufferSize),
	}
	if len(topics) > 0 {
		s.topics = make(map[domain.Topic]struct{}, len(topics))
		for _, t := range topics {
			s.topics[t] = struct{}{}
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHubClosed
	}
	h.subs[s] = struct{}{}
	metrics.HubSubscribers.Inc()
	return s, nil
}

// Publish delivers n to every current subscriber of its topic and returns how many received it.
// It never blocks on a slow subscriber.
func (h *Hub) Publish(n domain.Notification) int {
	topic := n.Topic()

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return 0
	}

	metrics.NotificationsPublished.WithLabelValues(string(topic)).Inc()
	delivered := 0
	for s := range h.subs {
		if !s.wants(topic) {
			continue
		}
		select {
		case s.ch <- n:
			delivered++
		default:
			metrics.NotificationsDropped.WithLabelValues("subscriber").Inc()
			h.logger.Warn("subscriber buffer full, notification dropped",
				"topic", topic, "event_id", n.EventID())
		}
	}
	return delivered
}

// Len returns the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close closes every subscription channel. Later Subscribe calls fail and Publish becomes a no-op.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for s := range h.subs {
		close(s.ch)
		delete(h.subs, s)
		metrics.HubSubscribers.Dec()
	}
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	// Channels are only closed under the write lock, so Publish never sends on a closed channel.
	if _, ok := h.subs[s]; !ok {
		return
	}
	delete(h.subs, s)
	close(s.ch)
	metrics.HubSubscribers.Dec()
}

// C returns the receive channel. It is closed when the subscription or the hub is closed.
func (s *Subscription) C() <-chan domain.Notification {
	return s.ch
}

// Close deregisters the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.hub.remove(s)
}

func (s *Subscription) wants(t domain.Topic) bool {
	if s.topics == nil {
		return true
	}
	_, ok := s.topics[t]
	return ok
}
