package common

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// ─────────────────────────────────────────────────────────────────────────────
// Metrics contract
// ─────────────────────────────────────────────────────────────────────────────

// Metrics is the telemetry contract of the intelligence layer. The serving
// client, the docking client and the batch engine all report through it so
// that the backing implementation (Prometheus, in-memory, noop) can be
// swapped without touching the callers.
type Metrics interface {
	// RecordPrediction records one round trip to the serving backend.
	RecordPrediction(ctx context.Context, params *PredictionMetricParams)

	// RecordBatch records one completed batch run of the batch engine.
	RecordBatch(ctx context.Context, params *BatchMetricParams)

	// RecordCircuitBreakerStateChange records a circuit-breaker transition
	// for the named dependency.
	RecordCircuitBreakerStateChange(ctx context.Context, name, fromState, toState string)

	// Stats returns a point-in-time snapshot of the counters.
	Stats() *MetricsSnapshot
}

// PredictionMetricParams carries the data for one serving-backend round trip.
type PredictionMetricParams struct {
	Model      string  `json:"model"`
	BatchSize  int     `json:"batch_size"`
	DurationMs float64 `json:"duration_ms"`
	Success    bool    `json:"success"`
}

// BatchMetricParams carries the data for one completed batch run.
type BatchMetricParams struct {
	BatchName      string  `json:"batch_name"`
	TotalItems     int     `json:"total_items"`
	SuccessItems   int     `json:"success_items"`
	FailedItems    int     `json:"failed_items"`
	TimeoutItems   int     `json:"timeout_items"`
	CancelledItems int     `json:"cancelled_items"`
	DurationMs     float64 `json:"duration_ms"`
	MaxConcurrency int     `json:"max_concurrency"`
}

// MetricsSnapshot is a point-in-time view of the recorded counters.
type MetricsSnapshot struct {
	TotalPredictions      int64             `json:"total_predictions"`
	SuccessfulPredictions int64             `json:"successful_predictions"`
	FailedPredictions     int64             `json:"failed_predictions"`
	TotalBatches          int64             `json:"total_batches"`
	CircuitBreakerStates  map[string]string `json:"circuit_breaker_states"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Prometheus implementation
// ─────────────────────────────────────────────────────────────────────────────

const metricsPrefix = "molscore_intelligence_"

var defaultLatencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 15000, 60000}

type prometheusMetrics struct {
	predictionLatency *prometheus.HistogramVec
	predictionTotal   *prometheus.CounterVec
	batchDuration     *prometheus.HistogramVec
	batchItemsTotal   *prometheus.CounterVec
	circuitState      *prometheus.GaugeVec

	totalPred   atomic.Int64
	successPred atomic.Int64
	failedPred  atomic.Int64
	totalBatch  atomic.Int64
	cbStates    sync.Map // name -> state string
}

// NewPrometheusMetrics creates a Prometheus-backed Metrics and registers all
// collectors with the supplied Registerer. A nil Registerer falls back to the
// default one.
func NewPrometheusMetrics(registerer prometheus.Registerer) (Metrics, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &prometheusMetrics{}

	m.predictionLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    metricsPrefix + "prediction_duration_milliseconds",
		Help:    "Histogram of serving-backend round-trip latency in milliseconds.",
		Buckets: defaultLatencyBuckets,
	}, []string{"model"})

	m.predictionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: metricsPrefix + "prediction_total",
		Help: "Total number of serving-backend round trips.",
	}, []string{"model", "status"})

	m.batchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    metricsPrefix + "batch_duration_milliseconds",
		Help:    "Histogram of batch-engine run duration in milliseconds.",
		Buckets: defaultLatencyBuckets,
	}, []string{"batch_name"})

	m.batchItemsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: metricsPrefix + "batch_items_total",
		Help: "Total number of items processed by the batch engine.",
	}, []string{"batch_name", "status"})

	m.circuitState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: metricsPrefix + "circuit_breaker_state",
		Help: "Current circuit breaker state (0=closed, 1=half_open, 2=open).",
	}, []string{"name"})

	collectors := []prometheus.Collector{
		m.predictionLatency,
		m.predictionTotal,
		m.batchDuration,
		m.batchItemsTotal,
		m.circuitState,
	}
	for _, c := range collectors {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *prometheusMetrics) RecordPrediction(_ context.Context, p *PredictionMetricParams) {
	if p == nil {
		return
	}
	status := "success"
	if !p.Success {
		status = "failure"
	}
	m.predictionLatency.WithLabelValues(p.Model).Observe(p.DurationMs)
	m.predictionTotal.WithLabelValues(p.Model, status).Inc()

	m.totalPred.Add(1)
	if p.Success {
		m.successPred.Add(1)
	} else {
		m.failedPred.Add(1)
	}
}

func (m *prometheusMetrics) RecordBatch(_ context.Context, p *BatchMetricParams) {
	if p == nil {
		return
	}
	m.batchDuration.WithLabelValues(p.BatchName).Observe(p.DurationMs)
	m.batchItemsTotal.WithLabelValues(p.BatchName, "success").Add(float64(p.SuccessItems))
	m.batchItemsTotal.WithLabelValues(p.BatchName, "failed").Add(float64(p.FailedItems))
	m.batchItemsTotal.WithLabelValues(p.BatchName, "timeout").Add(float64(p.TimeoutItems))
	m.batchItemsTotal.WithLabelValues(p.BatchName, "cancelled").Add(float64(p.CancelledItems))
	m.totalBatch.Add(1)
}

func (m *prometheusMetrics) RecordCircuitBreakerStateChange(_ context.Context, name, _, toState string) {
	m.cbStates.Store(name, toState)
	m.circuitState.WithLabelValues(name).Set(circuitBreakerStateToFloat(toState))
}

func (m *prometheusMetrics) Stats() *MetricsSnapshot {
	states := make(map[string]string)
	m.cbStates.Range(func(key, value any) bool {
		states[key.(string)] = value.(string)
		return true
	})
	return &MetricsSnapshot{
		TotalPredictions:      m.totalPred.Load(),
		SuccessfulPredictions: m.successPred.Load(),
		FailedPredictions:     m.failedPred.Load(),
		TotalBatches:          m.totalBatch.Load(),
		CircuitBreakerStates:  states,
	}
}

func circuitBreakerStateToFloat(state string) float64 {
	switch state {
	case "half_open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Noop implementation
// ─────────────────────────────────────────────────────────────────────────────

type noopMetrics struct{}

// NewNoopMetrics returns a Metrics implementation that discards everything.
func NewNoopMetrics() Metrics { return noopMetrics{} }

func (noopMetrics) RecordPrediction(context.Context, *PredictionMetricParams)               {}
func (noopMetrics) RecordBatch(context.Context, *BatchMetricParams)                         {}
func (noopMetrics) RecordCircuitBreakerStateChange(context.Context, string, string, string) {}

func (noopMetrics) Stats() *MetricsSnapshot {
	return &MetricsSnapshot{CircuitBreakerStates: map[string]string{}}
}

// ─────────────────────────────────────────────────────────────────────────────
// In-memory implementation (for tests)
// ─────────────────────────────────────────────────────────────────────────────

// InMemoryMetrics records everything in memory. Intended for unit tests.
type InMemoryMetrics struct {
	mu          sync.Mutex
	predictions []PredictionMetricParams
	batches     []BatchMetricParams
	cbStates    map[string]string
}

// NewInMemoryMetrics returns an empty in-memory Metrics.
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{cbStates: make(map[string]string)}
}

func (m *InMemoryMetrics) RecordPrediction(_ context.Context, p *PredictionMetricParams) {
	if p == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions = append(m.predictions, *p)
}

func (m *InMemoryMetrics) RecordBatch(_ context.Context, p *BatchMetricParams) {
	if p == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, *p)
}

func (m *InMemoryMetrics) RecordCircuitBreakerStateChange(_ context.Context, name, _, toState string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cbStates[name] = toState
}

func (m *InMemoryMetrics) Stats() *MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := &MetricsSnapshot{
		TotalBatches:         int64(len(m.batches)),
		CircuitBreakerStates: make(map[string]string, len(m.cbStates)),
	}
	for _, p := range m.predictions {
		snap.TotalPredictions++
		if p.Success {
			snap.SuccessfulPredictions++
		} else {
			snap.FailedPredictions++
		}
	}
	for k, v := range m.cbStates {
		snap.CircuitBreakerStates[k] = v
	}
	return snap
}

// Predictions returns a copy of the recorded prediction events.
func (m *InMemoryMetrics) Predictions() []PredictionMetricParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PredictionMetricParams, len(m.predictions))
	copy(out, m.predictions)
	return out
}

// Batches returns a copy of the recorded batch events.
func (m *InMemoryMetrics) Batches() []BatchMetricParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]BatchMetricParams, len(m.batches))
	copy(out, m.batches)
	return out
}

//Personal.AI order the ending
