// Package metrics exposes Prometheus instrumentation for the conversation engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ovenlight/pizzeria-bot/internal/engine"
)

var (
	eventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_events_total",
			Help: "Total number of inbound events labeled by kind and status",
		},
		[]string{"kind", "status"},
	)
	eventDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "event_duration_seconds",
			Help:    "Duration of event processing in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
	stateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "state_transitions_total",
			Help: "Total number of conversation state transitions",
		},
		[]string{"from", "to"},
	)
	sessionsInMemory = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sessions_in_memory",
			Help: "Current number of sessions held in the engine cache",
		},
	)
	remindersScheduledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "order_reminders_scheduled_total",
			Help: "Total number of deferred post-payment reminders scheduled",
		},
	)
)

func init() {
	engine.RegisterTransitionRecorder(RecordStateTransition)
	engine.RegisterSessionGaugeRecorder(SetSessionsInMemory)
}

// RecordEvent increments event counters and records processing duration.
func RecordEvent(kind, status string, duration time.Duration) {
	if kind == "" {
		kind = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	eventsTotal.WithLabelValues(kind, status).Inc()
	eventDurationSeconds.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordStateTransition tracks conversation state transitions.
func RecordStateTransition(from, to string) {
	if from == "" {
		from = "unknown"
	}
	if to == "" {
		to = "unknown"
	}

	stateTransitionsTotal.WithLabelValues(from, to).Inc()
}

// SetSessionsInMemory updates the gauge for cached sessions.
func SetSessionsInMemory(count int) {
	sessionsInMemory.Set(float64(count))
}

// RecordReminderScheduled counts a scheduled deferred reminder.
func RecordReminderScheduled() {
	remindersScheduledTotal.Inc()
}
