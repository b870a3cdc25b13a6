package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "comptoir"

var (
	once sync.Once

	availabilityChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "availability_checks_total",
			Help:      "Count of availability resolutions by mode and result.",
		},
		[]string{"mode", "result"},
	)

	orderGate = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_gate_total",
			Help:      "Count of order acceptance decisions.",
		},
		[]string{"decision"},
	)

	accessDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_decisions_total",
			Help:      "Count of dashboard access decisions by outcome.",
		},
		[]string{"outcome"},
	)

	hoursSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hours_skipped_total",
			Help:      "Count of imported hour lines or intervals that could not be parsed.",
		},
		[]string{"kind"},
	)

	pickupSlotsOffered = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pickup_slots_offered",
			Help:      "Number of pickup times offered per request.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 200},
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Count of API requests by route.",
		},
		[]string{"route"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(availabilityChecks, orderGate, accessDecisions, hoursSkipped, pickupSlotsOffered, httpRequests)
	})
}

func IncAvailabilityCheck(mode string, open bool) {
	result := "closed"
	if open {
		result = "open"
	}
	availabilityChecks.WithLabelValues(mode, result).Inc()
}

func IncOrderGate(accepted bool) {
	decision := "rejected"
	if accepted {
		decision = "accepted"
	}
	orderGate.WithLabelValues(decision).Inc()
}

func IncAccessDecision(outcome string) {
	accessDecisions.WithLabelValues(outcome).Inc()
}

func AddHoursSkipped(kind string, n int) {
	if n <= 0 {
		return
	}
	hoursSkipped.WithLabelValues(kind).Add(float64(n))
}

func ObservePickupSlots(n int) {
	pickupSlotsOffered.Observe(float64(n))
}

func IncHTTP(route string) {
	httpRequests.WithLabelValues(route).Inc()
}
