// Package metrics records scan and probe counters with Prometheus and writes
// them to a node-exporter textfile.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	registry = prometheus.NewRegistry()

	// Scan metrics
	scansTotal          *prometheus.CounterVec
	scanDuration        prometheus.Histogram
	filesScannedTotal   *prometheus.CounterVec
	softFailuresTotal   *prometheus.CounterVec
	credentialsFound    *prometheus.CounterVec
	configInstancesSeen *prometheus.CounterVec

	// Probe metrics
	probesTotal   *prometheus.CounterVec
	probeDuration *prometheus.HistogramVec

	// Registration guard
	metricsOnce       sync.Once
	metricsRegistered bool
)

// ScanMetrics provides methods to record scan metrics. A nil *ScanMetrics
// records nothing.
type ScanMetrics struct{}

// NewScanMetrics initializes the metrics on first use and returns a recorder.
func NewScanMetrics() *ScanMetrics {
	InitMetrics()
	return &ScanMetrics{}
}

// InitMetrics registers all metrics with the package registry.
func InitMetrics() {
	metricsOnce.Do(func() {
		factory := promauto.With(registry)

		scansTotal = factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aicred_scans_total",
				Help: "Total number of discovery scans",
			},
			[]string{"status"},
		)

		scanDuration = factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "aicred_scan_duration_seconds",
				Help:    "Duration of discovery scans in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
		)

		filesScannedTotal = factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aicred_files_scanned_total",
				Help: "Total number of files examined, by scanner",
			},
			[]string{"scanner"},
		)

		softFailuresTotal = factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aicred_soft_failures_total",
				Help: "Per-file failures that did not abort a scan",
			},
			[]string{"scanner", "kind"},
		)

		credentialsFound = factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aicred_credentials_found_total",
				Help: "Credentials reported, by provider and confidence",
			},
			[]string{"provider", "confidence"},
		)

		configInstancesSeen = factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aicred_config_instances_total",
				Help: "Application config instances reported, by application",
			},
			[]string{"app"},
		)

		probesTotal = factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aicred_probes_total",
				Help: "Model-listing probes, by provider and outcome",
			},
			[]string{"provider", "status"},
		)

		probeDuration = factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aicred_probe_duration_seconds",
				Help:    "Duration of model-listing probes in seconds",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"provider"},
		)

		metricsRegistered = true
	})
}

// RecordScan records a completed or failed scan.
func (m *ScanMetrics) RecordScan(status string, durationSeconds float64) {
	if m == nil || !metricsRegistered {
		return
	}
	scansTotal.WithLabelValues(status).Inc()
	scanDuration.Observe(durationSeconds)
}

// RecordFiles adds n files examined by scanner.
func (m *ScanMetrics) RecordFiles(scanner string, n int) {
	if m == nil || !metricsRegistered || n == 0 {
		return
	}
	filesScannedTotal.WithLabelValues(scanner).Add(float64(n))
}

// RecordSoftFailure records one soft failure.
func (m *ScanMetrics) RecordSoftFailure(scanner, kind string) {
	if m == nil || !metricsRegistered {
		return
	}
	softFailuresTotal.WithLabelValues(scanner, kind).Inc()
}

// RecordCredential records one reported credential. Unclaimed credentials
// are labelled "unknown".
func (m *ScanMetrics) RecordCredential(provider, confidence string) {
	if m == nil || !metricsRegistered {
		return
	}
	if provider == "" {
		provider = "unknown"
	}
	credentialsFound.WithLabelValues(provider, confidence).Inc()
}

// RecordConfigInstance records one reported config instance.
func (m *ScanMetrics) RecordConfigInstance(app string) {
	if m == nil || !metricsRegistered {
		return
	}
	configInstancesSeen.WithLabelValues(app).Inc()
}

// RecordProbe records a probe outcome.
func (m *ScanMetrics) RecordProbe(provider, status string, durationSeconds float64) {
	if m == nil || !metricsRegistered {
		return
	}
	probesTotal.WithLabelValues(provider, status).Inc()
	probeDuration.WithLabelValues(provider).Observe(durationSeconds)
}

// WriteTextfile writes every registered metric to path in the Prometheus
// text format, atomically, for the node-exporter textfile collector.
func WriteTextfile(path string) error {
	InitMetrics()
	return prometheus.WriteToTextfile(path, registry)
}

// Registry returns the registry holding the aicred metrics.
func Registry() *prometheus.Registry {
	return registry
}

// GetScansTotal returns the scan counter for testing.
func GetScansTotal() *prometheus.CounterVec {
	return scansTotal
}

// GetSoftFailuresTotal returns the soft failure counter for testing.
func GetSoftFailuresTotal() *prometheus.CounterVec {
	return softFailuresTotal
}

// GetCredentialsFound returns the credential counter for testing.
func GetCredentialsFound() *prometheus.CounterVec {
	return credentialsFound
}

// GetProbesTotal returns the probe counter for testing.
func GetProbesTotal() *prometheus.CounterVec {
	return probesTotal
}

// IsMetricsRegistered returns whether metrics have been initialized.
func IsMetricsRegistered() bool {
	return metricsRegistered
}
