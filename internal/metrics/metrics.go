package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/feral-file/ff-transfer-alert/internal/domain"
)

const namespace = "key_watcher"

// Run status label values
const (
	STATUS_SUCCESS        = "success"
	STATUS_CONFIG_ERROR   = "config_error"
	STATUS_UPSTREAM_ERROR = "upstream_error"
	STATUS_BUSY           = "busy"
	STATUS_ERROR          = "error"
)

// Metrics holds the counters exported at /metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry prometheus.Gatherer

	RunsTotal         *prometheus.CounterVec
	RunDuration       prometheus.Histogram
	TransfersChecked  prometheus.Counter
	TransfersMatched  prometheus.Counter
	AlertsPosted      prometheus.Counter
	DuplicatesSkipped prometheus.Counter
	LastSuccessfulRun prometheus.Gauge
}

// New registers the watcher metrics on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers the watcher metrics on reg and serves them from gatherer
func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		registry: gatherer,
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by outcome",
		}, []string{"status"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of pipeline runs",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		TransfersChecked: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_checked_total",
			Help:      "Total number of transfer records fetched from the ledger API",
		}),
		TransfersMatched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_matched_total",
			Help:      "Total number of incoming transfers matching the watched term",
		}),
		AlertsPosted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_posted_total",
			Help:      "Total number of alerts posted to the channel",
		}),
		DuplicatesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_skipped_total",
			Help:      "Total number of matches skipped because they were already notified",
		}),
		LastSuccessfulRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_successful_run_timestamp_seconds",
			Help:      "Unix time of the last run that completed without error",
		}),
	}
}

// ObserveRun records the outcome of one run. Partial counts are recorded even when err is set.
func (m *Metrics) ObserveRun(result domain.RunResult, duration time.Duration, err error) {
	if m == nil {
		return
	}

	m.RunsTotal.WithLabelValues(RunStatus(err)).Inc()
	m.RunDuration.Observe(duration.Seconds())
	m.TransfersChecked.Add(float64(result.Checked))
	m.TransfersMatched.Add(float64(result.Matched))
	m.AlertsPosted.Add(float64(result.Posted))
	m.DuplicatesSkipped.Add(float64(result.SkippedDuplicate))

	if err == nil {
		m.LastSuccessfulRun.SetToCurrentTime()
	}
}

// Handler serves the registered metrics in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RunStatus maps a run error to its status label
func RunStatus(err error) string {
	switch {
	case err == nil:
		return STATUS_SUCCESS
	case errors.Is(err, domain.ErrRunInProgress):
		return STATUS_BUSY
	case domain.IsConfigError(err):
		return STATUS_CONFIG_ERROR
	case domain.IsUpstreamError(err):
		return STATUS_UPSTREAM_ERROR
	default:
		return STATUS_ERROR
	}
}
