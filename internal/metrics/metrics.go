// Package metrics exposes Prometheus instruments for schedule generation.
// Everything registers against a custom Registry so tests and the push
// gateway see only our own series.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"physician-scheduler/internal/models"
)

// Registry is the application's own prometheus registry.
var Registry = prometheus.NewRegistry()

// factory registers new instruments against Registry directly.
var factory = promauto.With(Registry)

// RunsTotal counts completed generation runs since process start.
var RunsTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "scheduler",
	Name:      "runs_total",
	Help:      "Completed schedule generation runs",
})

// RunDurationSeconds tracks how long a generation run takes.
var RunDurationSeconds = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "scheduler",
	Name:      "run_duration_seconds",
	Help:      "Time taken to generate a schedule",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
})

// AssignmentsTotal is the number of filled records in the latest run.
var AssignmentsTotal = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "scheduler",
	Name:      "assignments_total",
	Help:      "Filled assignment records in the latest run",
})

// GapsTotal is the number of unfilled records in the latest run.
var GapsTotal = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "scheduler",
	Name:      "gaps_total",
	Help:      "Unfilled records in the latest run",
})

// AnomaliesTotal breaks the latest run's anomalies down by kind.
var AnomaliesTotal = factory.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "scheduler",
	Name:      "anomalies_total",
	Help:      "Anomalies reported by the latest run, by kind",
}, []string{"kind"})

// CapacityBasis is the per-FTE workload target of the latest run.
var CapacityBasis = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "scheduler",
	Name:      "capacity_basis",
	Help:      "Heaviness per full-time equivalent in the latest run",
})

// ConflictsTotal breaks the latest validation pass down by conflict kind.
var ConflictsTotal = factory.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "checker",
	Name:      "conflicts_total",
	Help:      "Conflicts found by the latest validation pass, by kind",
}, []string{"kind"})

// ObserveRun records one finished generation run.
func ObserveRun(s *models.Schedule, anomalies []models.Anomaly, basis float64, elapsed time.Duration) {
	RunsTotal.Inc()
	RunDurationSeconds.Observe(elapsed.Seconds())
	CapacityBasis.Set(basis)

	var filled, gaps float64
	for _, a := range s.Assignments {
		if a.IsGap() {
			gaps++
		} else {
			filled++
		}
	}
	AssignmentsTotal.Set(filled)
	GapsTotal.Set(gaps)

	AnomaliesTotal.Reset()
	for _, a := range anomalies {
		AnomaliesTotal.WithLabelValues(string(a.Kind)).Inc()
	}
}

// ObserveConflicts records the outcome of one validation pass.
func ObserveConflicts(conflicts []models.Conflict) {
	ConflictsTotal.Reset()
	for _, c := range conflicts {
		ConflictsTotal.WithLabelValues(string(c.Kind)).Inc()
	}
}

// Reset clears the per-run gauges; called before a new run starts.
func Reset() {
	AssignmentsTotal.Set(0)
	GapsTotal.Set(0)
	CapacityBasis.Set(0)
	AnomaliesTotal.Reset()
	ConflictsTotal.Reset()
}
