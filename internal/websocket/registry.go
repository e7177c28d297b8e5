package websocket

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/intisor/AnnounceHub/internal/metrics"
)

// Sender is one live outbound delivery channel, supplied by the transport
// layer. Send must not block indefinitely: a slow consumer returns an error
// instead of stalling the caller.
type Sender interface {
	Send(payload []byte) error
	Close() error
}

// Subscriber is one live viewer connection.
type Subscriber struct {
	ID          uuid.UUID
	ConnectedAt time.Time
	sender      Sender
}

// Deliver sends payload on the subscriber's channel. Best-effort: an error
// means this delivery was dropped, not that the subscriber is gone.
func (s *Subscriber) Deliver(payload []byte) error {
	return s.sender.Send(payload)
}

// Registry tracks currently connected subscribers. Connect and Disconnect
// may be called at any time from any connection lifecycle, concurrently
// with Snapshot reads from the publish path.
type Registry struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]*Subscriber
	clock       clockwork.Clock
}

// NewRegistry creates an empty registry.
func NewRegistry(clock clockwork.Clock) *Registry {
	return &Registry{
		subscribers: make(map[uuid.UUID]*Subscriber),
		clock:       clock,
	}
}

// Connect registers a new subscriber bound to sender and returns its id.
func (r *Registry) Connect(sender Sender) uuid.UUID {
	sub := &Subscriber{
		ID:          uuid.New(),
		ConnectedAt: r.clock.Now().UTC(),
		sender:      sender,
	}

	r.mu.Lock()
	r.subscribers[sub.ID] = sub
	r.mu.Unlock()

	metrics.SubscribersCurrent.Inc()
	return sub.ID
}

// Disconnect removes the subscriber and closes its sender. Idempotent:
// unknown or already-removed ids are a no-op.
func (r *Registry) Disconnect(id uuid.UUID) {
	r.mu.Lock()
	sub, ok := r.subscribers[id]
	if ok {
		delete(r.subscribers, id)
	}
	r.mu.Unlock()

	if !ok {
		return
	}

	_ = sub.sender.Close()
	metrics.SubscribersCurrent.Dec()
}

// Snapshot returns a consistent point-in-time copy of the live subscriber
// set. Subscribers connecting or disconnecting concurrently may or may not
// be included, but never appear twice. No ordering among subscribers.
func (r *Registry) Snapshot() []*Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := make([]*Subscriber, 0, len(r.subscribers))
	for _, sub := range r.subscribers {
		subs = append(subs, sub)
	}
	return subs
}

// Count returns the number of live subscribers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subscribers)
}

// CloseAll disconnects every subscriber. Called at shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	subs := r.subscribers
	r.subscribers = make(map[uuid.UUID]*Subscriber)
	r.mu.Unlock()

	for _, sub := range subs {
		_ = sub.sender.Close()
		metrics.SubscribersCurrent.Dec()
	}
}
