package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for AddressesTotal.
const (
	OutcomeResolved         = "resolved"
	OutcomeNotFound         = "not_found"
	OutcomeSkippedDone      = "skipped_done"
	OutcomeSkippedDuplicate = "skipped_duplicate"
	OutcomeSkippedBlank     = "skipped_blank"
)

// Metrics holds the collectors updated during a resolver run.
type Metrics struct {
	AddressesTotal *prometheus.CounterVec
	ProviderErrors prometheus.Counter
	RequestSeconds *prometheus.HistogramVec
	RecordsWritten prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		AddressesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "addr2coo_addresses_total",
			Help: "Total number of input addresses by outcome.",
		}, []string{"outcome"}),
		ProviderErrors: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "addr2coo_provider_errors_total",
			Help: "Total number of failed geocoding provider lookups.",
		}),
		RequestSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "addr2coo_provider_request_duration_seconds",
			Help:    "Duration of requests to the geocoding provider.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		RecordsWritten: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "addr2coo_records_written",
			Help: "Number of records in the output set written by the last run, 0 if nothing was written.",
		}),
	}
}

// WriteTextfile dumps the registry in the text exposition format for the node_exporter
// textfile collector. An empty path disables the export.
func WriteTextfile(path string, gatherer prometheus.Gatherer) error {
	if path == "" {
		return nil
	}

	if err := prometheus.WriteToTextfile(path, gatherer); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}

	return nil
}
