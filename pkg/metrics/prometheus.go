// Package metrics provides Prometheus metrics for the reward
// reconciliation service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Ledger metrics
	rewardsRegistered prometheus.Counter
	rewardsRejected   prometheus.Counter
	batchesFlushed    prometheus.Counter
	flushRoundTrip    prometheus.Histogram
	pendingRewards    prometheus.Gauge
	optimisticBalance prometheus.Gauge
	reconciledBalance prometheus.Gauge

	// Validation metrics
	batchesValidated  prometheus.Counter
	rewardsAccepted   prometheus.Counter
	duplicateRewards  prometheus.Counter
	outOfRangeRewards prometheus.Counter
	abnormalRewards   prometheus.Counter
	missingSource     prometheus.Counter
	walletBalance     prometheus.Gauge

	// Session metrics
	hardResets prometheus.Counter

	// Persistence metrics
	storeWriteLatency prometheus.Histogram

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid the default Go collectors.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "pachi",
		subsystem:        "economy",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.rewardsRegistered = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rewards_registered_total",
		Help:      "Total number of reward packages accepted by the ledger",
	})

	m.rewardsRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rewards_rejected_total",
		Help:      "Total number of reward packages rejected at registration (non-positive score)",
	})

	m.batchesFlushed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batches_flushed_total",
		Help:      "Total number of batches sent for validation",
	})

	m.flushRoundTrip = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "flush_round_trip_milliseconds",
		Help:      "Histogram of flush round-trip latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.pendingRewards = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pending_rewards",
		Help:      "Number of reward packages awaiting flush",
	})

	m.optimisticBalance = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "optimistic_balance",
		Help:      "Client-side optimistic wallet balance",
	})

	m.reconciledBalance = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reconciled_balance",
		Help:      "Last authoritative balance returned by validation",
	})

	m.batchesValidated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batches_validated_total",
		Help:      "Total number of batches processed by the validation service",
	})

	m.rewardsAccepted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rewards_accepted_total",
		Help:      "Total number of reward packages credited to the wallet",
	})

	m.duplicateRewards = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rewards_duplicate_total",
		Help:      "Total number of reward packages excluded as duplicates",
	})

	m.outOfRangeRewards = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rewards_out_of_range_total",
		Help:      "Total number of reward packages rejected for score bounds",
	})

	m.abnormalRewards = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rewards_abnormal_total",
		Help:      "Total number of in-range rewards flagged as abnormally high",
	})

	m.missingSource = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rewards_missing_source_total",
		Help:      "Total number of rewards flagged for a missing source id",
	})

	m.walletBalance = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "wallet_balance",
		Help:      "Authoritative wallet balance",
	})

	m.hardResets = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "hard_resets_total",
		Help:      "Total number of session hard resets",
	})

	m.storeWriteLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_write_latency_milliseconds",
		Help:      "Histogram of persistence write latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by endpoint, method and status code",
	}, []string{"endpoint", "method", "status"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "Histogram of HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status"})
}

// Ledger metrics functions.

// RecordRewardRegistered increments the registered rewards counter.
func RecordRewardRegistered() {
	globalManager.rewardsRegistered.Inc()
}

// RecordRewardRejected increments the rejected-at-registration counter.
func RecordRewardRejected() {
	globalManager.rewardsRejected.Inc()
}

// RecordBatchFlushed increments the flushed batches counter.
func RecordBatchFlushed() {
	globalManager.batchesFlushed.Inc()
}

// RecordFlushRoundTrip records the flush round-trip latency in milliseconds.
func RecordFlushRoundTrip(latencyMs float64) {
	globalManager.flushRoundTrip.Observe(latencyMs)
}

// UpdatePendingRewards sets the current number of pending rewards.
func UpdatePendingRewards(count int) {
	globalManager.pendingRewards.Set(float64(count))
}

// UpdateOptimisticBalance sets the optimistic balance gauge.
func UpdateOptimisticBalance(balance int64) {
	globalManager.optimisticBalance.Set(float64(balance))
}

// UpdateReconciledBalance sets the reconciled balance gauge.
func UpdateReconciledBalance(balance int64) {
	globalManager.reconciledBalance.Set(float64(balance))
}

// Validation metrics functions.

// RecordBatchValidated increments the validated batches counter.
func RecordBatchValidated() {
	globalManager.batchesValidated.Inc()
}

// RecordRewardAccepted increments the accepted rewards counter.
func RecordRewardAccepted() {
	globalManager.rewardsAccepted.Inc()
}

// RecordRewardDuplicate increments the duplicate rewards counter.
func RecordRewardDuplicate() {
	globalManager.duplicateRewards.Inc()
}

// RecordRewardOutOfRange increments the out-of-range rewards counter.
func RecordRewardOutOfRange() {
	globalManager.outOfRangeRewards.Inc()
}

// RecordRewardAbnormal increments the abnormal rewards counter.
func RecordRewardAbnormal() {
	globalManager.abnormalRewards.Inc()
}

// RecordRewardMissingSource increments the missing-source counter.
func RecordRewardMissingSource() {
	globalManager.missingSource.Inc()
}

// UpdateWalletBalance sets the authoritative wallet balance gauge.
func UpdateWalletBalance(balance int64) {
	globalManager.walletBalance.Set(float64(balance))
}

// Session metrics functions.

// RecordHardReset increments the hard resets counter.
func RecordHardReset() {
	globalManager.hardResets.Inc()
}

// Persistence metrics functions.

// RecordStoreWriteLatency records persistence write latency in milliseconds.
func RecordStoreWriteLatency(latencyMs float64) {
	globalManager.storeWriteLatency.Observe(latencyMs)
}

// HTTP metrics functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, status string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, status).Observe(durationMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
