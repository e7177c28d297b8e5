package announce

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/intisor/AnnounceHub/internal/access"
	"github.com/intisor/AnnounceHub/internal/domain"
	apperrors "github.com/intisor/AnnounceHub/internal/errors"
	"github.com/intisor/AnnounceHub/internal/metrics"
	"github.com/intisor/AnnounceHub/internal/websocket"
)

// Relay forwards announcements to other instances. Optional; nil means
// single-instance operation.
type Relay interface {
	Publish(ctx context.Context, message string) error
}

// Hub orchestrates a publish: authorize, persist, fan out. Persistence is
// the success boundary - a persisted announcement is returned to the caller
// even if every individual delivery fails, and nothing is ever delivered
// that was not persisted first.
type Hub struct {
	gate     *access.Gate
	store    domain.AnnouncementRepository
	registry *websocket.Registry
	relay    Relay
	clock    clockwork.Clock

	// fanOutMu spans the store append and the delivery loop of each
	// publish, so every subscriber sees announcements in the order their
	// appends completed.
	fanOutMu sync.Mutex
}

// NewHub creates a hub. relay may be nil.
func NewHub(gate *access.Gate, store domain.AnnouncementRepository, registry *websocket.Registry, relay Relay, clock clockwork.Clock) *Hub {
	return &Hub{
		gate:     gate,
		store:    store,
		registry: registry,
		relay:    relay,
		clock:    clock,
	}
}

// Publish authorizes identity, persists message, and delivers it to every
// live subscriber. Authorization and persistence failures are returned and
// nothing is fanned out; per-subscriber delivery failures are counted but
// never surfaced.
func (h *Hub) Publish(ctx context.Context, identity domain.Identity, message string) (domain.Announcement, error) {
	start := h.clock.Now()

	if !h.gate.Authorize(identity, access.ActionPublish) {
		metrics.PublishRejectionsTotal.WithLabelValues("unauthorized").Inc()
		return domain.Announcement{}, apperrors.UnauthorizedError("identity is not permitted to publish").
			WithContext("identity", identity.Name)
	}

	h.fanOutMu.Lock()
	announcement, err := h.store.Append(ctx, message)
	if err != nil {
		h.fanOutMu.Unlock()
		metrics.PublishRejectionsTotal.WithLabelValues(rejectionReason(err)).Inc()
		return domain.Announcement{}, err
	}
	delivered, total := h.deliver(announcement.Message)
	h.fanOutMu.Unlock()
	metrics.AnnouncementsPublishedTotal.Inc()
	metrics.PublishDuration.Observe(h.clock.Since(start).Seconds())

	slog.Debug("Announcement published",
		"id", announcement.ID,
		"publisher", identity.Name,
		"delivered", delivered,
		"subscribers", total,
	)

	if h.relay != nil {
		if err := h.relay.Publish(ctx, announcement.Message); err != nil {
			// Relay failures never affect the publish outcome; the record
			// is durable and local subscribers already have it.
			slog.Warn("Relay publish failed", "id", announcement.ID, "error", err)
		}
	}

	return announcement, nil
}

// List returns the full announcement history in append order.
func (h *Hub) List(ctx context.Context) ([]domain.Announcement, error) {
	records, err := h.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// HandleRemote fans out an announcement that another instance persisted and
// relayed here. No authorization or store write happens locally.
func (h *Hub) HandleRemote(message string) {
	h.fanOutMu.Lock()
	defer h.fanOutMu.Unlock()
	h.deliver(message)
}

// Registry exposes the subscriber registry for the transport layer.
func (h *Hub) Registry() *websocket.Registry {
	return h.registry
}

// deliver sends message to a snapshot of the live subscriber set.
// Best-effort and independent per subscriber: one dropped delivery aborts
// nothing. Returns delivered and total counts for diagnostics.
// Callers hold fanOutMu.
func (h *Hub) deliver(message string) (delivered, total int) {
	payload, err := json.Marshal(domain.PushMessage{
		EventName: domain.EventReceiveAnnouncement,
		Message:   message,
	})
	if err != nil {
		slog.Error("Failed to marshal push message", "error", err)
		return 0, 0
	}

	snapshot := h.registry.Snapshot()
	for _, sub := range snapshot {
		if err := sub.Deliver(payload); err != nil {
			metrics.DeliveriesTotal.WithLabelValues("dropped").Inc()
			slog.Warn("Delivery dropped", "subscriber", sub.ID, "error", err)
			continue
		}
		metrics.DeliveriesTotal.WithLabelValues("ok").Inc()
		delivered++
	}
	return delivered, len(snapshot)
}

func rejectionReason(err error) string {
	switch {
	case apperrors.IsType(err, apperrors.TypeValidation):
		return "validation"
	case apperrors.IsType(err, apperrors.TypeStorage):
		return "storage"
	default:
		return "other"
	}
}
