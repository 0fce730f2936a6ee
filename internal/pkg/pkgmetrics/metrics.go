package pkgmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "epimap_"

	ResultSuccess = "success"
	ResultError   = "error"

	LookupMatched   = "matched"
	LookupUnmatched = "unmatched"
	LookupError     = "error"
)

var (
	registerOnce sync.Once

	ingestRuns    *prometheus.CounterVec
	ingestLatency *prometheus.HistogramVec
	ingestRows    *prometheus.CounterVec

	geometryLookups *prometheus.CounterVec

	batchWrites  *prometheus.CounterVec
	batchLatency *prometheus.HistogramVec
)

// Init registers the collectors with reg, or the default registerer when reg is nil.
func Init(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}

		ingestRuns = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_runs_total",
				Help: "Total ingestion runs by result",
			},
			[]string{"result"},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_duration_seconds",
				Help:    "Ingestion run duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 180, 600},
			},
			[]string{"result"},
		)
		ingestRows = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_rows_total",
				Help: "Rows read by outcome",
			},
			[]string{"outcome"},
		)
		geometryLookups = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "geometry_lookups_total",
				Help: "Reference store lookups by outcome",
			},
			[]string{"outcome"},
		)
		batchWrites = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "batch_writes_total",
				Help: "Batch writes by result",
			},
			[]string{"result"},
		)
		batchLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "batch_write_seconds",
				Help:    "Batch write latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		reg.MustRegister(ingestRuns, ingestLatency, ingestRows, geometryLookups, batchWrites, batchLatency)
	})
}

// ObserveRun records one finished ingestion run.
func ObserveRun(result string, elapsed time.Duration) {
	if ingestRuns == nil {
		return
	}
	ingestRuns.WithLabelValues(result).Inc()
	ingestLatency.WithLabelValues(result).Observe(elapsed.Seconds())
}

// AddRows records imported and skipped row counts of a run.
func AddRows(imported, skipped int) {
	if ingestRows == nil {
		return
	}
	ingestRows.WithLabelValues("imported").Add(float64(imported))
	ingestRows.WithLabelValues("skipped").Add(float64(skipped))
}

// ObserveLookup records one reference store lookup.
func ObserveLookup(outcome string) {
	if geometryLookups == nil {
		return
	}
	geometryLookups.WithLabelValues(outcome).Inc()
}

// ObserveBatch records one batch write.
func ObserveBatch(result string, elapsed time.Duration) {
	if batchWrites == nil {
		return
	}
	batchWrites.WithLabelValues(result).Inc()
	batchLatency.WithLabelValues(result).Observe(elapsed.Seconds())
}
