// Package push is an in-process live topic hub. The dispatch engine
// publishes to per-user topics; the HTTP server streams a topic to a
// connected client.
package push

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/coursenotify/internal/notification"
)

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 16

// Hub fans published notifications out to topic subscribers. Publishing to a
// topic nobody listens on succeeds; the message is gone, as with a broker.
type Hub struct {
	mu      sync.RWMutex
	subs    map[string]map[*subscriber]struct{}
	buffer  int
	dropped atomic.Int64
	logger  *slog.Logger
}

type subscriber struct {
	ch chan notification.Notification
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithBuffer sets the per-subscriber channel capacity.
func WithBuffer(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithLogger sets the logger used for dropped messages.
func WithLogger(l *slog.Logger) HubOption {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHub creates an empty hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		subs:   make(map[string]map[*subscriber]struct{}),
		buffer: DefaultBuffer,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Publish delivers n to every current subscriber of topic without blocking.
// A subscriber whose buffer is full misses the message and the drop is
// counted.
func (h *Hub) Publish(ctx context.Context, topic string, n notification.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[topic] {
		select {
		case sub.ch <- n:
		default:
			h.dropped.Add(1)
			h.logger.Warn("push subscriber full, message dropped",
				"topic", topic,
				"type", n.Type)
		}
	}
	return nil
}

// Subscribe registers a listener on topic. The returned cancel func
// unregisters it and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe(topic string) (<-chan notification.Notification, func()) {
	sub := &subscriber{ch: make(chan notification.Notification, h.buffer)}

	h.mu.Lock()
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[*subscriber]struct{})
	}
	h.subs[topic][sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[topic], sub)
			if len(h.subs[topic]) == 0 {
				delete(h.subs, topic)
			}
			h.mu.Unlock()
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// Subscribers returns the number of listeners on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}

// Dropped returns how many messages were dropped for full subscribers.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}
