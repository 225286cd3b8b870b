package telemetry

import (
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tripweaver/tripweaver/config"
)

// Telemetry tracks provider run outcomes for the search orchestrator,
// exposing both prometheus collectors and an in-process snapshot used by
// diagnostics endpoints.
type Telemetry struct {
	config config.TelemetryConfig
	logger *log.Logger

	providerRuns     *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	bundleStatus     *prometheus.CounterVec

	mu      sync.RWMutex
	metrics Metrics
}

// Metrics is a point-in-time snapshot of orchestration activity.
type Metrics struct {
	BundlesGathered  int64
	ProviderRuns     map[string]int64
	ProviderFailures map[string]int64
	ProviderResults  map[string]int64
	AverageRunTime   map[string]time.Duration
}

func NewTelemetry(cfg config.TelemetryConfig, logger *log.Logger, reg prometheus.Registerer) *Telemetry {
	if logger == nil {
		logger = log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags)
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	t := &Telemetry{
		config: cfg,
		logger: logger,
		providerRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tripweaver_provider_runs_total",
			Help: "Provider job runs by terminal status",
		}, []string{"provider", "status"}),
		providerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tripweaver_provider_run_duration_seconds",
			Help:    "Wall time of provider job runs including retries",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"provider"}),
		bundleStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tripweaver_search_bundles_total",
			Help: "Search bundles assembled by verification status",
		}, []string{"status"}),
		metrics: Metrics{
			ProviderRuns:     map[string]int64{},
			ProviderFailures: map[string]int64{},
			ProviderResults:  map[string]int64{},
			AverageRunTime:   map[string]time.Duration{},
		},
	}
	if cfg.Enabled {
		reg.MustRegister(t.providerRuns, t.providerDuration, t.bundleStatus)
	}
	return t
}

// RecordProviderRun records the terminal outcome of one provider run.
func (t *Telemetry) RecordProviderRun(provider, status string, duration time.Duration, resultCount int) {
	if t.config.Enabled {
		t.providerRuns.WithLabelValues(provider, status).Inc()
		t.providerDuration.WithLabelValues(provider).Observe(duration.Seconds())
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	runs := t.metrics.ProviderRuns[provider] + 1
	t.metrics.ProviderRuns[provider] = runs
	if status != "ok" {
		t.metrics.ProviderFailures[provider]++
	}
	t.metrics.ProviderResults[provider] += int64(resultCount)
	prev := t.metrics.AverageRunTime[provider]
	t.metrics.AverageRunTime[provider] = prev + (duration-prev)/time.Duration(runs)
}

// RecordBundle records the verification status of an assembled bundle.
func (t *Telemetry) RecordBundle(status string) {
	if t.config.Enabled {
		t.bundleStatus.WithLabelValues(status).Inc()
	}
	t.mu.Lock()
	t.metrics.BundlesGathered++
	t.mu.Unlock()
}

// Snapshot returns a copy of the in-process metrics.
func (t *Telemetry) Snapshot() Metrics {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := Metrics{
		BundlesGathered:  t.metrics.BundlesGathered,
		ProviderRuns:     make(map[string]int64, len(t.metrics.ProviderRuns)),
		ProviderFailures: make(map[string]int64, len(t.metrics.ProviderFailures)),
		ProviderResults:  make(map[string]int64, len(t.metrics.ProviderResults)),
		AverageRunTime:   make(map[string]time.Duration, len(t.metrics.AverageRunTime)),
	}
	for k, v := range t.metrics.ProviderRuns {
		out.ProviderRuns[k] = v
	}
	for k, v := range t.metrics.ProviderFailures {
		out.ProviderFailures[k] = v
	}
	for k, v := range t.metrics.ProviderResults {
		out.ProviderResults[k] = v
	}
	for k, v := range t.metrics.AverageRunTime {
		out.AverageRunTime[k] = v
	}
	return out
}
