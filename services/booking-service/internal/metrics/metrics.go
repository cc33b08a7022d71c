package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BookingMetrics exposes counters/histograms for booking and reschedule flows.
type BookingMetrics struct {
	operations      *prometheus.CounterVec
	latency         *prometheus.HistogramVec
	slotsOffered    *prometheus.HistogramVec
	outboxPublished *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slotwise",
			Subsystem: "booking",
			Name:      "operations_total",
			Help:      "Booking operations by outcome",
		}, []string{"operation", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "slotwise",
			Subsystem: "booking",
			Name:      "operation_duration_seconds",
			Help:      "Latency of booking operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		slotsOffered: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "slotwise",
			Subsystem: "booking",
			Name:      "slots_per_query",
			Help:      "Slots returned per availability query",
			Buckets:   []float64{0, 1, 2, 4, 8, 12, 16, 24},
		}, []string{"status"}),
		outboxPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slotwise",
			Subsystem: "outbox",
			Name:      "published_total",
			Help:      "Outbox events handed to Kafka",
		}, []string{"event_type", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.operations, m.latency, m.slotsOffered, m.outboxPublished)
	return m
}

// ObserveOperation records one call. outcome is "ok" or an error class such as "conflict".
func (m *BookingMetrics) ObserveOperation(operation, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(took.Seconds())
}

func (m *BookingMetrics) ObserveSlots(available, occupied int) {
	if m == nil {
		return
	}
	m.slotsOffered.WithLabelValues("available").Observe(float64(available))
	m.slotsOffered.WithLabelValues("occupied").Observe(float64(occupied))
}

func (m *BookingMetrics) ObserveOutbox(eventType, status string) {
	if m == nil {
		return
	}
	m.outboxPublished.WithLabelValues(eventType, status).Inc()
}
