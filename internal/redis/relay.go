package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/intisor/AnnounceHub/internal/metrics"
)

const (
	relayChannel   = "announcehub:announcements"
	publishTimeout = 2 * time.Second
)

// envelope is the wire format on the relay channel. Origin lets instances
// skip announcements they published themselves (local fan-out already
// happened before the relay publish).
type envelope struct {
	Origin  string `json:"origin"`
	Message string `json:"message"`
}

// Relay forwards published announcements to every other instance over a
// Redis pub/sub channel, so subscribers connected elsewhere still receive
// live deliveries. Publishes are wrapped in a circuit breaker: a Redis
// outage must not slow the local publish path.
type Relay struct {
	client     *goredis.Client
	instanceID string
	breaker    *gobreaker.CircuitBreaker
	onRemote   func(message string)
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewRelay creates a relay. onRemote is invoked for every announcement
// another instance publishes.
func NewRelay(client *goredis.Client, onRemote func(message string)) *Relay {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "relay",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Relay circuit breaker state changed", "from", from.String(), "to", to.String())
			metrics.RelayBreakerState.Set(breakerStateToFloat(to))
		},
	})

	return &Relay{
		client:     client,
		instanceID: uuid.NewString(),
		breaker:    breaker,
		onRemote:   onRemote,
		done:       make(chan struct{}),
	}
}

func breakerStateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// Start begins consuming the relay channel. Returns after the subscription
// is established; the receive loop runs until Stop.
func (r *Relay) Start(ctx context.Context) error {
	loopCtx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	pubsub := r.client.Subscribe(loopCtx, relayChannel)

	// Force the subscription to be established before returning.
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		_ = pubsub.Close()
		return fmt.Errorf("failed to subscribe to relay channel: %w", err)
	}

	go r.run(loopCtx, pubsub)
	return nil
}

func (r *Relay) run(ctx context.Context, pubsub *goredis.PubSub) {
	defer close(r.done)
	defer func() { _ = pubsub.Close() }()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			r.handleMessage(msg.Payload)
		}
	}
}

func (r *Relay) handleMessage(payload string) {
	env, err := decodeEnvelope(payload)
	if err != nil {
		slog.Warn("Relay received malformed payload", "error", err)
		return
	}
	if env.Origin == r.instanceID {
		return
	}

	metrics.RelayReceivedTotal.Inc()
	r.onRemote(env.Message)
}

// Publish forwards message to other instances. Non-fatal: callers log and
// move on, the announcement is already durable and delivered locally.
func (r *Relay) Publish(ctx context.Context, message string) error {
	payload, err := json.Marshal(envelope{Origin: r.instanceID, Message: message})
	if err != nil {
		return fmt.Errorf("failed to marshal relay envelope: %w", err)
	}

	_, err = r.breaker.Execute(func() (any, error) {
		publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		return nil, r.client.Publish(publishCtx, relayChannel, payload).Err()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RelayPublishesTotal.WithLabelValues("breaker_open").Inc()
		} else {
			metrics.RelayPublishesTotal.WithLabelValues("error").Inc()
		}
		return err
	}

	metrics.RelayPublishesTotal.WithLabelValues("ok").Inc()
	return nil
}

// Stop terminates the receive loop and waits for it to exit.
func (r *Relay) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
}

func decodeEnvelope(payload string) (envelope, error) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return envelope{}, err
	}
	if env.Origin == "" {
		return envelope{}, errors.New("relay envelope missing origin")
	}
	return env, nil
}
