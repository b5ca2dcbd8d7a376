// pkg/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the scrape pipeline.
type Metrics struct {
	// RunsTotal counts whole runs by outcome (success, partial, error).
	RunsTotal *prometheus.CounterVec

	// FacilityScrapesTotal counts per-facility cycles by status.
	FacilityScrapesTotal *prometheus.CounterVec

	// RecordsWritten counts hour records persisted per facility.
	RecordsWritten *prometheus.CounterVec

	// FacilityDuration is the time one facility's full cycle takes.
	FacilityDuration prometheus.Histogram
}

// New creates and registers the pipeline metrics under the given namespace.
func New(namespace string) *Metrics {
	return &Metrics{
		RunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total scrape runs by outcome",
			},
			[]string{"outcome"},
		),
		FacilityScrapesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "facility_scrapes_total",
				Help:      "Per-facility scrape cycles by status",
			},
			[]string{"facility", "status"},
		),
		RecordsWritten: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_written_total",
				Help:      "Hour records persisted per facility",
			},
			[]string{"facility"},
		),
		FacilityDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "facility_scrape_duration_seconds",
				Help:      "Duration of one facility scrape cycle",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
			},
		),
	}
}
