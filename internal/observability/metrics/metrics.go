package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters for booking and access-control outcomes.
type SchedulingMetrics struct {
	bookingsTotal   *prometheus.CounterVec
	conflictsTotal  *prometheus.CounterVec
	authDeniedTotal *prometheus.CounterVec
	remindersTotal  *prometheus.CounterVec
	conflictLatency *prometheus.HistogramVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vetpms",
			Subsystem: "scheduling",
			Name:      "bookings_total",
			Help:      "Total appointment create/update attempts",
		}, []string{"operation", "status"}),
		conflictsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vetpms",
			Subsystem: "scheduling",
			Name:      "conflicts_total",
			Help:      "Total bookings rejected due to overlapping windows",
		}, []string{"operation"}),
		authDeniedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vetpms",
			Subsystem: "access",
			Name:      "denied_total",
			Help:      "Total authorization denials",
		}, []string{"role", "resource", "action"}),
		remindersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vetpms",
			Subsystem: "notify",
			Name:      "reminders_total",
			Help:      "Total reminder deliveries",
		}, []string{"channel", "status"}),
		conflictLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vetpms",
			Subsystem: "scheduling",
			Name:      "conflict_check_seconds",
			Help:      "Latency of the conflict check plus advisory lock",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.conflictsTotal, m.authDeniedTotal, m.remindersTotal, m.conflictLatency)
	return m
}

func (m *SchedulingMetrics) ObserveBooking(operation, status string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(operation, status).Inc()
}

func (m *SchedulingMetrics) ObserveConflict(operation string) {
	if m == nil {
		return
	}
	m.conflictsTotal.WithLabelValues(operation).Inc()
}

func (m *SchedulingMetrics) ObserveDenied(role, resource, action string) {
	if m == nil {
		return
	}
	m.authDeniedTotal.WithLabelValues(role, resource, action).Inc()
}

func (m *SchedulingMetrics) ObserveReminder(channel, status string) {
	if m == nil {
		return
	}
	m.remindersTotal.WithLabelValues(channel, status).Inc()
}

func (m *SchedulingMetrics) ObserveConflictCheck(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.conflictLatency.WithLabelValues(operation).Observe(seconds)
}
