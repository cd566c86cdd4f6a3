package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NotificationsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_notify", Name: "notifications_written_total", Help: "Notifications committed, by recipient role and category"},
		[]string{"role", "category"},
	)
	BatchCommitFailures = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_notify", Name: "batch_commit_failures_total", Help: "Notification batches that failed to commit"})
	BatchCommitLatency  = promauto.NewHistogram(prometheus.HistogramOpts{Namespace: "ride_notify", Name: "batch_commit_latency_seconds", Help: "Notification batch commit latency"})
	OfferCandidates     = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ride_notify",
		Name:      "offer_candidates",
		Help:      "Online drivers selected per new ride",
		Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
	})
	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_notify", Name: "deliveries_total", Help: "Push deliveries by sink and outcome"},
		[]string{"sink", "outcome"},
	)
	ShareLinksIssued   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_notify", Name: "share_links_issued_total", Help: "Share links issued"})
	ChatMirrors        = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_notify", Name: "chat_mirrors_total", Help: "Chat messages mirrored onto rides"})
	EventsConsumed     = promauto.NewCounterVec(prometheus.CounterOpts{Namespace: "ride_notify", Name: "events_consumed_total", Help: "Change-feed events handled, by type and outcome"}, []string{"type", "outcome"})
	DriverLocationsSet = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_notify", Name: "driver_locations_upserted_total", Help: "Driver location records upserted"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_notify", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ride_notify",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
