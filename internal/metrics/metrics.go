// Package metrics declares the Prometheus collectors shared by the client
// engine and the backend. Collectors register on the default registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChannelConnectFailures counts failed channel connects and drops.
	ChannelConnectFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "splitsync",
		Subsystem: "channel",
		Name:      "connect_failures_total",
		Help:      "Channel dial failures and dropped connections seen by the client.",
	})

	// ChannelGiveUps counts how often the retry budget was exhausted.
	ChannelGiveUps = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "splitsync",
		Subsystem: "channel",
		Name:      "give_ups_total",
		Help:      "Times the client stopped reconnecting after the retry budget ran out.",
	})

	// ChannelEventsReceived counts inbound channel events by name.
	ChannelEventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "splitsync",
		Subsystem: "channel",
		Name:      "events_received_total",
		Help:      "Inbound channel events by event name.",
	}, []string{"event"})

	// LedgerEventsApplied counts ledger apply outcomes (applied, duplicate, missing, reload).
	LedgerEventsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "splitsync",
		Subsystem: "ledger",
		Name:      "events_applied_total",
		Help:      "Events applied to the ledger cache by event name and outcome.",
	}, []string{"event", "outcome"})

	// LedgerReloads counts full-state reloads and their result.
	LedgerReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "splitsync",
		Subsystem: "ledger",
		Name:      "reloads_total",
		Help:      "Full ledger reloads by result.",
	}, []string{"result"})

	// HubConnections is the number of live channel connections on the backend.
	HubConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "splitsync",
		Subsystem: "hub",
		Name:      "connections",
		Help:      "Live channel connections.",
	})

	// HubEventsPublished counts events fanned out to rooms.
	HubEventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "splitsync",
		Subsystem: "hub",
		Name:      "events_published_total",
		Help:      "Events fanned out to rooms by event name.",
	}, []string{"event"})

	// HTTPRequestDuration observes backend request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "splitsync",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Backend HTTP request latency by method and status code.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "code"})
)
