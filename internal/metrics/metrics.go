package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const prefix = "facilitywatch_"

// SyncMetrics tracks sensor sync cycle outcomes.
type SyncMetrics struct {
	CyclesStarted prometheus.Counter
	CyclesSkipped prometheus.Counter
	CyclesFailed  prometheus.Counter
	Readings      *prometheus.CounterVec
	ReadingErrors prometheus.Counter
}

// NewSyncMetrics registers sync counters on the given registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	m := &SyncMetrics{
		CyclesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "sync_cycles_started_total",
			Help: "Sync cycles that acquired the single-flight guard",
		}),
		CyclesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "sync_cycles_skipped_total",
			Help: "Sync cycles dropped because one was already in flight",
		}),
		CyclesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "sync_cycles_failed_total",
			Help: "Sync cycles that ended with a fetch failure",
		}),
		Readings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "sync_readings_total",
			Help: "Readings persisted per metric type",
		}, []string{"metric"}),
		ReadingErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "sync_reading_errors_total",
			Help: "Readings skipped due to unknown sensors or persistence errors",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.CyclesStarted, m.CyclesSkipped, m.CyclesFailed, m.Readings, m.ReadingErrors)
	}
	return m
}

// Handler exposes the default prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
