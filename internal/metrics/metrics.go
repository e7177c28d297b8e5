// Package metrics defines the Prometheus collectors for the announcement pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Publish Metrics
var (
	// AnnouncementsPublishedTotal counts announcements durably persisted and fanned out
	AnnouncementsPublishedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "announcements_published_total",
			Help: "Total announcements persisted and fanned out",
		},
	)

	// PublishRejectionsTotal counts rejected publish attempts by reason
	PublishRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "publish_rejections_total",
			Help: "Rejected publish attempts by reason (unauthorized/validation/storage)",
		},
		[]string{"reason"},
	)

	// PublishDuration tracks end-to-end publish latency in seconds
	PublishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "publish_duration_seconds",
			Help:    "Publish duration from authorization through fan-out in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)
)

// Delivery Metrics
var (
	// DeliveriesTotal counts per-subscriber delivery attempts by status
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deliveries_total",
			Help: "Per-subscriber delivery attempts by status (ok/dropped)",
		},
		[]string{"status"},
	)

	// SubscribersCurrent tracks the number of live subscriber connections
	SubscribersCurrent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "subscribers_current",
			Help: "Current number of live subscriber connections",
		},
	)

	// SubscriberSendDuration tracks websocket write latency in seconds
	SubscriberSendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "subscriber_send_duration_seconds",
			Help:    "WebSocket message send duration in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		},
	)
)

// Relay Metrics
var (
	// RelayPublishesTotal counts cross-instance relay publishes by status
	RelayPublishesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_publishes_total",
			Help: "Cross-instance relay publishes by status (ok/error/breaker_open)",
		},
		[]string{"status"},
	)

	// RelayReceivedTotal counts announcements received from other instances
	RelayReceivedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_received_total",
			Help: "Announcements received from other instances via the relay",
		},
	)

	// RelayBreakerState tracks the relay circuit breaker state (0=closed, 1=half-open, 2=open)
	RelayBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_breaker_state",
			Help: "Relay circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)
)
