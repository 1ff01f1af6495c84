// Package metrics holds the Prometheus collectors of the lifecycle service.
// Labels are bounded: actions, outcomes, categories and channel names only.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transition outcomes.
const (
	OutcomeApplied  = "applied"
	OutcomeRejected = "rejected"
	OutcomeStale    = "stale"
	OutcomeError    = "error"
)

// Delivery outcomes.
const (
	DeliverySent    = "sent"
	DeliveryFailed  = "failed"
	DeliverySkipped = "skipped"
)

var (
	// TransitionsTotal counts transition requests by action and outcome.
	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leaseflow_transitions_total",
		Help: "Total number of lifecycle transition requests, by action and outcome.",
	}, []string{"action", "outcome"})

	TransitionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "leaseflow_transition_duration_seconds",
		Help:    "Time spent deciding and persisting a transition, by action.",
		Buckets: prometheus.DefBuckets,
	}, []string{"action"})

	// NotificationsCreated counts stored notifications by category.
	NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leaseflow_notifications_created_total",
		Help: "Total number of notifications stored, by category.",
	}, []string{"category"})

	DeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leaseflow_notification_deliveries_total",
		Help: "Total number of notification delivery attempts, by channel and outcome.",
	}, []string{"channel", "outcome"})

	UnreadCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leaseflow_unread_cache_lookups_total",
		Help: "Unread counter cache lookups, by result (hit/miss).",
	}, []string{"result"})

	// WebsocketConnections tracks currently connected websocket clients.
	WebsocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "leaseflow_websocket_connections",
		Help: "Current number of connected websocket clients.",
	})
)

// ObserveTransition records one transition request.
func ObserveTransition(action, outcome string, started time.Time) {
	TransitionsTotal.WithLabelValues(action, outcome).Inc()
	TransitionDuration.WithLabelValues(action).Observe(time.Since(started).Seconds())
}

func RecordDelivery(channel, outcome string) {
	DeliveriesTotal.WithLabelValues(channel, outcome).Inc()
}

func RecordCacheLookup(hit bool) {
	if hit {
		UnreadCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	UnreadCacheLookups.WithLabelValues("miss").Inc()
}
