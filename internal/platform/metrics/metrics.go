package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "storkwatch"

// Contractions holds the collectors for the contraction tracker.
// A nil *Contractions is valid and records nothing.
type Contractions struct {
	Recorded      prometheus.Counter
	SessionSize   prometheus.Gauge
	CacheFailures prometheus.Counter
	StoreOps      *prometheus.CounterVec
	SavedEvents   prometheus.Counter
}

// NewContractions registers the collectors on reg.
func NewContractions(reg prometheus.Registerer) *Contractions {
	f := promauto.With(reg)
	return &Contractions{
		Recorded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contractions_recorded_total",
			Help:      "Contractions finalized by stop.",
		}),
		SessionSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_events",
			Help:      "Events in the unsaved local session.",
		}),
		CacheFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_write_failures_total",
			Help:      "Local session cache writes that failed.",
		}),
		StoreOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_store_operations_total",
			Help:      "History store operations by kind and result.",
		}, []string{"op", "result"}),
		SavedEvents: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saved_events_total",
			Help:      "Events committed to the history store.",
		}),
	}
}

func (m *Contractions) ObserveRecorded() {
	if m == nil {
		return
	}
	m.Recorded.Inc()
}

func (m *Contractions) SetSessionSize(n int) {
	if m == nil {
		return
	}
	m.SessionSize.Set(float64(n))
}

func (m *Contractions) ObserveCacheFailure() {
	if m == nil {
		return
	}
	m.CacheFailures.Inc()
}

// ObserveStoreOp counts one store operation; err decides the result label.
func (m *Contractions) ObserveStoreOp(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.StoreOps.WithLabelValues(op, result).Inc()
}

func (m *Contractions) ObserveSaved(n int) {
	if m == nil {
		return
	}
	m.SavedEvents.Add(float64(n))
}
