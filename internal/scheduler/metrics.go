package scheduler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks scan runs and per-assessment outcomes.
type Metrics struct {
	Scans        *prometheus.CounterVec
	Outcomes     *prometheus.CounterVec
	ScanDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers the scheduler metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Scans: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sglgb_scheduler_scans_total",
			Help: "Scheduler scans by kind",
		}, []string{"scan"}),
		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sglgb_scheduler_outcomes_total",
			Help: "Per-assessment scan outcomes (applied, noop, failed)",
		}, []string{"scan", "outcome"}),
		ScanDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sglgb_scheduler_scan_duration_seconds",
			Help:    "Wall time of one full scan",
			Buckets: prometheus.DefBuckets,
		}, []string{"scan"}),
	}
}

func (m *Metrics) observeScan(scan string, r ScanReport, start time.Time) {
	if m == nil {
		return
	}
	m.Scans.WithLabelValues(scan).Inc()
	m.Outcomes.WithLabelValues(scan, "applied").Add(float64(r.Applied))
	m.Outcomes.WithLabelValues(scan, "noop").Add(float64(r.NoOps))
	m.Outcomes.WithLabelValues(scan, "failed").Add(float64(r.Failed))
	m.ScanDuration.WithLabelValues(scan).Observe(time.Since(start).Seconds())
}
