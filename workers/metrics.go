package workers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"poker-tournament-system/services"
)

// Metrics are the timer engine's prometheus instruments. A nil registerer
// builds unregistered collectors, which is what tests use.
type Metrics struct {
	ActiveTimers    prometheus.Gauge
	Ticks           prometheus.Counter
	LevelAdvances   *prometheus.CounterVec
	PersistFailures prometheus.Counter
	LockSkips       prometheus.Counter
	RefreshFailures prometheus.Counter
	EventsPublished *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ActiveTimers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "poker",
			Subsystem: "timer",
			Name:      "active",
			Help:      "Tournaments currently tracked by the timer engine.",
		}),
		Ticks: f.NewCounter(prometheus.CounterOpts{
			Namespace: "poker",
			Subsystem: "timer",
			Name:      "ticks_total",
			Help:      "Tick events published.",
		}),
		LevelAdvances: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "poker",
			Subsystem: "timer",
			Name:      "level_changes_total",
			Help:      "Blind level changes by trigger.",
		}, []string{"trigger"}),
		PersistFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: "poker",
			Subsystem: "timer",
			Name:      "persist_failures_total",
			Help:      "Failed countdown snapshot writes.",
		}),
		LockSkips: f.NewCounter(prometheus.CounterOpts{
			Namespace: "poker",
			Subsystem: "timer",
			Name:      "lock_skips_total",
			Help:      "Ticks skipped because a level change held the tournament lock.",
		}),
		RefreshFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: "poker",
			Subsystem: "timer",
			Name:      "refresh_failures_total",
			Help:      "Failed reloads of the running tournament set.",
		}),
		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "poker",
			Subsystem: "broadcast",
			Name:      "events_total",
			Help:      "Events handed to the broadcaster by name.",
		}, []string{"event"}),
	}
}

type countingBroadcaster struct {
	next    services.Broadcaster
	counter *prometheus.CounterVec
}

// InstrumentBroadcaster counts every published event by name.
func InstrumentBroadcaster(next services.Broadcaster, m *Metrics) services.Broadcaster {
	return &countingBroadcaster{next: next, counter: m.EventsPublished}
}

func (b *countingBroadcaster) Publish(tournamentID string, event string, payload any) {
	b.counter.WithLabelValues(event).Inc()
	b.next.Publish(tournamentID, event, payload)
}
