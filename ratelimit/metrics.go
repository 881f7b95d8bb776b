/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import "github.com/prometheus/client_golang/prometheus"

const metricsLabelDryRun = "dry_run"

const (
	metricsValYes = "yes"
	metricsValNo  = "no"
)

// MetricsCollector represents a collector of metrics about the rate limiting decisions
// and the tracked key set.
type MetricsCollector interface {
	// IncAllows increments the total number of admitted requests.
	IncAllows()

	// IncRejects increments the total number of requests that exceeded the rate limit.
	IncRejects(dryRun bool)

	// SetKeysAmount sets the total number of tracked keys.
	SetKeysAmount(int)

	// AddKeyEvictions increments the total number of keys evicted from a bounded key registry.
	AddKeyEvictions(int)
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels
}

// PrometheusMetrics represents Prometheus metrics for a rate limiter.
type PrometheusMetrics struct {
	AllowsTotal       prometheus.Counter
	RejectsTotal      *prometheus.CounterVec
	KeysAmount        prometheus.Gauge
	KeyEvictionsTotal prometheus.Counter
}

var _ MetricsCollector = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	allowsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   opts.Namespace,
		Name:        "rate_limit_allows_total",
		Help:        "Number of admitted requests.",
		ConstLabels: opts.ConstLabels,
	})

	rejectsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   opts.Namespace,
		Name:        "rate_limit_rejects_total",
		Help:        "Number of requests rejected due to rate limit exceeded.",
		ConstLabels: opts.ConstLabels,
	}, []string{metricsLabelDryRun})

	keysAmount := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   opts.Namespace,
		Name:        "rate_limit_keys_amount",
		Help:        "Total number of tracked rate limiting keys.",
		ConstLabels: opts.ConstLabels,
	})

	keyEvictionsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   opts.Namespace,
		Name:        "rate_limit_key_evictions_total",
		Help:        "Number of keys evicted from the bounded key registry.",
		ConstLabels: opts.ConstLabels,
	})

	return &PrometheusMetrics{
		AllowsTotal:       allowsTotal,
		RejectsTotal:      rejectsTotal,
		KeysAmount:        keysAmount,
		KeyEvictionsTotal: keyEvictionsTotal,
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(
		pm.AllowsTotal,
		pm.RejectsTotal,
		pm.KeysAmount,
		pm.KeyEvictionsTotal,
	)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.AllowsTotal)
	prometheus.Unregister(pm.RejectsTotal)
	prometheus.Unregister(pm.KeysAmount)
	prometheus.Unregister(pm.KeyEvictionsTotal)
}

// IncAllows increments the total number of admitted requests.
func (pm *PrometheusMetrics) IncAllows() {
	pm.AllowsTotal.Inc()
}

// IncRejects increments the total number of requests that exceeded the rate limit.
func (pm *PrometheusMetrics) IncRejects(dryRun bool) {
	dryRunVal := metricsValNo
	if dryRun {
		dryRunVal = metricsValYes
	}
	pm.RejectsTotal.With(prometheus.Labels{metricsLabelDryRun: dryRunVal}).Inc()
}

// SetKeysAmount sets the total number of tracked keys.
func (pm *PrometheusMetrics) SetKeysAmount(amount int) {
	pm.KeysAmount.Set(float64(amount))
}

// AddKeyEvictions increments the total number of keys evicted from a bounded key registry.
func (pm *PrometheusMetrics) AddKeyEvictions(n int) {
	pm.KeyEvictionsTotal.Add(float64(n))
}

type disabledMetrics struct{}

func (disabledMetrics) IncAllows()          {}
func (disabledMetrics) IncRejects(bool)     {}
func (disabledMetrics) SetKeysAmount(int)   {}
func (disabledMetrics) AddKeyEvictions(int) {}
