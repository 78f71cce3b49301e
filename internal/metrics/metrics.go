package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hotel_booking"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		},
		[]string{"method", "route", "status"},
	)

	reservationAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_attempts_total",
			Help:      "Reservation write attempts by outcome.",
		},
		[]string{"outcome"},
	)

	reservationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reservation_duration_seconds",
			Help:      "Time spent creating a reservation, retries included.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	availabilityCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "availability_cache_total",
			Help:      "Availability cache lookups by result.",
		},
		[]string{"result"},
	)
)

// Reservation outcome labels.
const (
	OutcomeCreated          = "created"
	OutcomeCapacityExceeded = "capacity_exceeded"
	OutcomeConflictAbort    = "conflict_abort"
	OutcomeUnavailable      = "store_unavailable"
	OutcomeInvalid          = "invalid"
	OutcomeRetried          = "retried"
	OutcomeError            = "error"
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, reservationAttempts, reservationDuration, availabilityCache)
	})
}

// IncHTTP increments the request counter.
func IncHTTP(method, route string, status int) {
	httpRequests.WithLabelValues(method, route, statusLabel(status)).Inc()
}

// IncReservation records one reservation attempt outcome.
func IncReservation(outcome string) {
	reservationAttempts.WithLabelValues(outcome).Inc()
}

// ObserveReservation records the end-to-end duration of a create call.
func ObserveReservation(d time.Duration) {
	reservationDuration.Observe(d.Seconds())
}

// IncCache records a cache hit or miss.
func IncCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	availabilityCache.WithLabelValues(result).Inc()
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
