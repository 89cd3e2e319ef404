package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScansTotal counts attendance scans by outcome (recorded, invalid_token,
	// already_used, expired, not_found, error).
	ScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "esalama_scans_total",
		Help: "Attendance scans by outcome.",
	}, []string{"outcome"})

	// HubSessions tracks currently connected realtime channels per topic.
	HubSessions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "esalama_hub_sessions",
		Help: "Open realtime channels.",
	}, []string{"topic"})

	// HubPublished counts events handed to the hub per topic.
	HubPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "esalama_hub_published_total",
		Help: "Events published to the hub.",
	}, []string{"topic"})

	// HubDropped counts sessions removed because their outbound stream
	// stalled or closed mid-publish.
	HubDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "esalama_hub_dropped_sessions_total",
		Help: "Sessions dropped on send failure.",
	}, []string{"topic"})

	// DeliveriesTotal counts outbound notification deliveries by backend and result.
	DeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "esalama_notification_deliveries_total",
		Help: "Outbound notification deliveries.",
	}, []string{"backend", "result"})
)
