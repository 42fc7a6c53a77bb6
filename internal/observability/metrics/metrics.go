package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulerMetrics exposes counters for slot generation.
type SchedulerMetrics struct {
	slotsGenerated   prometheus.Counter
	freeBusyFailures prometheus.Counter
}

func NewSchedulerMetrics(reg prometheus.Registerer) *SchedulerMetrics {
	m := &SchedulerMetrics{
		slotsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "frontdesk",
			Subsystem: "schedule",
			Name:      "slots_generated_total",
			Help:      "Total candidate slots emitted by the generator",
		}),
		freeBusyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "frontdesk",
			Subsystem: "schedule",
			Name:      "freebusy_failures_total",
			Help:      "Free/busy queries that failed and degraded to assume-free",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.slotsGenerated, m.freeBusyFailures)
	return m
}

func (m *SchedulerMetrics) ObserveSlotsGenerated(n int) {
	if m == nil {
		return
	}
	m.slotsGenerated.Add(float64(n))
}

func (m *SchedulerMetrics) ObserveFreeBusyFailure() {
	if m == nil {
		return
	}
	m.freeBusyFailures.Inc()
}

// ConversationMetrics exposes counters for conversational turns.
type ConversationMetrics struct {
	turnsTotal  *prometheus.CounterVec
	turnLatency prometheus.Histogram
}

func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "frontdesk",
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Conversational turns processed, by classified intent and response kind",
		}, []string{"intent", "response"}),
		turnLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "frontdesk",
			Subsystem: "chat",
			Name:      "turn_latency_seconds",
			Help:      "Latency of one conversational turn",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.turnLatency)
	return m
}

func (m *ConversationMetrics) ObserveTurn(intent, response string, seconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(intent, response).Inc()
	m.turnLatency.Observe(seconds)
}

// BookingMetrics exposes counters for booking outcomes.
type BookingMetrics struct {
	outcomes *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "frontdesk",
			Subsystem: "booking",
			Name:      "outcomes_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.outcomes)
	return m
}

func (m *BookingMetrics) ObserveOutcome(outcome string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(outcome).Inc()
}

// NotifyMetrics counts best-effort notification results.
type NotifyMetrics struct {
	sends *prometheus.CounterVec
}

func NewNotifyMetrics(reg prometheus.Registerer) *NotifyMetrics {
	m := &NotifyMetrics{
		sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "frontdesk",
			Subsystem: "notify",
			Name:      "sends_total",
			Help:      "Best-effort notification sends by status",
		}, []string{"kind", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.sends)
	return m
}

func (m *NotifyMetrics) ObserveSend(kind, status string) {
	if m == nil {
		return
	}
	m.sends.WithLabelValues(kind, status).Inc()
}
