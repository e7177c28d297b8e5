package announce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intisor/AnnounceHub/internal/access"
	"github.com/intisor/AnnounceHub/internal/domain"
	apperrors "github.com/intisor/AnnounceHub/internal/errors"
	"github.com/intisor/AnnounceHub/internal/websocket"
)

var (
	admin  = domain.Identity{Name: "someone", Roles: []string{"Admin"}}
	viewer = domain.Identity{Name: "viewer"}
)

// chanSender is an in-memory Sender capturing delivered payloads.
type chanSender struct {
	mu       sync.Mutex
	payloads [][]byte
	full     bool
	closed   bool
}

func (s *chanSender) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.full {
		return websocket.ErrSlowConsumer
	}
	s.payloads = append(s.payloads, payload)
	return nil
}

func (s *chanSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *chanSender) received() []domain.PushMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := make([]domain.PushMessage, 0, len(s.payloads))
	for _, p := range s.payloads {
		var msg domain.PushMessage
		if err := json.Unmarshal(p, &msg); err != nil {
			panic(err)
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

// failingStore rejects every append with a storage error.
type failingStore struct{}

func (failingStore) Append(context.Context, string) (domain.Announcement, error) {
	return domain.Announcement{}, apperrors.StorageError("append failed", errors.New("disk gone"))
}

func (failingStore) List(context.Context) ([]domain.Announcement, error) {
	return nil, nil
}

// captureRelay records relayed messages and optionally fails.
type captureRelay struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (r *captureRelay) Publish(_ context.Context, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.messages = append(r.messages, message)
	return nil
}

func newTestHub(t *testing.T, privileged string) (*Hub, *websocket.Registry) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	registry := websocket.NewRegistry(clock)
	store := NewMemoryStore(clock, testMaxMessageLength)
	hub := NewHub(access.NewGate(privileged), store, registry, nil, clock)
	return hub, registry
}

func TestHub_PublishDeliversToAllSubscribers(t *testing.T) {
	hub, registry := newTestHub(t, "")
	ctx := context.Background()

	first := &chanSender{}
	second := &chanSender{}
	registry.Connect(first)
	registry.Connect(second)

	announcement, err := hub.Publish(ctx, admin, "Server maintenance at 5pm")
	require.NoError(t, err)
	assert.Equal(t, int64(1), announcement.ID)
	assert.Equal(t, "Server maintenance at 5pm", announcement.Message)

	for _, sender := range []*chanSender{first, second} {
		msgs := sender.received()
		require.Len(t, msgs, 1, "each subscriber receives the announcement exactly once")
		assert.Equal(t, domain.EventReceiveAnnouncement, msgs[0].EventName)
		assert.Equal(t, "Server maintenance at 5pm", msgs[0].Message)
	}

	records, err := hub.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(1), records[0].ID)
}

func TestHub_PublishUnauthorized(t *testing.T) {
	hub, registry := newTestHub(t, "Intitech")
	ctx := context.Background()

	sender := &chanSender{}
	registry.Connect(sender)

	_, err := hub.Publish(ctx, viewer, "not allowed")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.TypeUnauthorized))

	// No store write, no deliveries.
	records, err := hub.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Empty(t, sender.received())
}

func TestHub_PublishPrivilegedUsernameWithoutRole(t *testing.T) {
	hub, _ := newTestHub(t, "Intitech")

	announcement, err := hub.Publish(context.Background(), domain.Identity{Name: "Intitech"}, "from the named account")
	require.NoError(t, err)
	assert.Equal(t, int64(1), announcement.ID)
}

func TestHub_PublishEmptyMessage(t *testing.T) {
	hub, registry := newTestHub(t, "")
	ctx := context.Background()

	sender := &chanSender{}
	registry.Connect(sender)

	_, err := hub.Publish(ctx, admin, "")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.TypeValidation))

	records, err := hub.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Empty(t, sender.received())
}

func TestHub_PersistFailurePreventsFanOut(t *testing.T) {
	clock := clockwork.NewFakeClock()
	registry := websocket.NewRegistry(clock)
	hub := NewHub(access.NewGate(""), failingStore{}, registry, nil, clock)

	sender := &chanSender{}
	registry.Connect(sender)

	_, err := hub.Publish(context.Background(), admin, "doomed")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.TypeStorage))
	assert.Empty(t, sender.received())
}

func TestHub_DisconnectedSubscriberReceivesNothing(t *testing.T) {
	hub, registry := newTestHub(t, "")
	ctx := context.Background()

	stayer := &chanSender{}
	leaver := &chanSender{}
	registry.Connect(stayer)
	leaverID := registry.Connect(leaver)

	registry.Disconnect(leaverID)

	_, err := hub.Publish(ctx, admin, "after disconnect")
	require.NoError(t, err)

	assert.Len(t, stayer.received(), 1)
	assert.Empty(t, leaver.received())
}

func TestHub_SlowSubscriberDoesNotFailPublish(t *testing.T) {
	hub, registry := newTestHub(t, "")
	ctx := context.Background()

	healthy := &chanSender{}
	slow := &chanSender{full: true}
	registry.Connect(healthy)
	registry.Connect(slow)

	announcement, err := hub.Publish(ctx, admin, "still goes out")
	require.NoError(t, err)
	assert.Equal(t, int64(1), announcement.ID)

	assert.Len(t, healthy.received(), 1)
	assert.Empty(t, slow.received())

	// The slow subscriber stays registered; only transport close removes it.
	assert.Equal(t, 2, registry.Count())
}

func TestHub_PerSubscriberDeliveryOrderMatchesAppendOrder(t *testing.T) {
	hub, registry := newTestHub(t, "")
	ctx := context.Background()

	sender := &chanSender{}
	registry.Connect(sender)

	for _, m := range []string{"first", "second", "third"} {
		_, err := hub.Publish(ctx, admin, m)
		require.NoError(t, err)
	}

	msgs := sender.received()
	require.Len(t, msgs, 3)
	assert.Equal(t, "first", msgs[0].Message)
	assert.Equal(t, "second", msgs[1].Message)
	assert.Equal(t, "third", msgs[2].Message)
}

func TestHub_ConcurrentPublishes(t *testing.T) {
	hub, _ := newTestHub(t, "")
	ctx := context.Background()

	const publishers = 100
	var wg sync.WaitGroup
	wg.Add(publishers)

	for n := 0; n < publishers; n++ {
		go func() {
			defer wg.Done()
			_, err := hub.Publish(ctx, admin, "racing")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	records, err := hub.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, publishers)
	for i, record := range records {
		assert.Equal(t, int64(i+1), record.ID, "ids are distinct, increasing, gap-free")
	}
}

func TestHub_ConcurrentPublishDeliveryOrderMatchesAppendOrder(t *testing.T) {
	hub, registry := newTestHub(t, "")
	ctx := context.Background()

	sender := &chanSender{}
	registry.Connect(sender)

	const publishers = 64
	var wg sync.WaitGroup
	wg.Add(publishers)

	for i := 0; i < publishers; i++ {
		i := i
		go func() {
			defer wg.Done()
			_, err := hub.Publish(ctx, admin, fmt.Sprintf("update %d", i))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	records, err := hub.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, publishers)

	// The subscriber sees messages in exactly the order their appends
	// completed, even when the publishes raced.
	msgs := sender.received()
	require.Len(t, msgs, publishers)
	for i, record := range records {
		assert.Equal(t, record.Message, msgs[i].Message)
	}
}

func TestHub_RelayReceivesPublishedMessage(t *testing.T) {
	clock := clockwork.NewFakeClock()
	registry := websocket.NewRegistry(clock)
	store := NewMemoryStore(clock, testMaxMessageLength)
	relay := &captureRelay{}
	hub := NewHub(access.NewGate(""), store, registry, relay, clock)

	_, err := hub.Publish(context.Background(), admin, "fan out everywhere")
	require.NoError(t, err)

	relay.mu.Lock()
	defer relay.mu.Unlock()
	require.Len(t, relay.messages, 1)
	assert.Equal(t, "fan out everywhere", relay.messages[0])
}

func TestHub_RelayFailureDoesNotFailPublish(t *testing.T) {
	clock := clockwork.NewFakeClock()
	registry := websocket.NewRegistry(clock)
	store := NewMemoryStore(clock, testMaxMessageLength)
	relay := &captureRelay{err: errors.New("redis down")}
	hub := NewHub(access.NewGate(""), store, registry, relay, clock)

	announcement, err := hub.Publish(context.Background(), admin, "still succeeds")
	require.NoError(t, err)
	assert.Equal(t, int64(1), announcement.ID)
}

func TestHub_HandleRemoteFansOutWithoutStoreWrite(t *testing.T) {
	hub, registry := newTestHub(t, "")

	sender := &chanSender{}
	registry.Connect(sender)

	hub.HandleRemote("from another instance")

	msgs := sender.received()
	require.Len(t, msgs, 1)
	assert.Equal(t, "from another instance", msgs[0].Message)

	records, err := hub.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records, "remote announcements are already persisted by their origin")
}
