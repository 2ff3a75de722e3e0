package prometheus

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolScore/pkg/errors"
)

// MetricsCollector registers metrics against a private registry and serves
// them over HTTP.  Registration never fails at the call site: a name that
// cannot be registered yields a no-op instrument and an error log, so metric
// trouble never takes the caller down.
type MetricsCollector interface {
	RegisterCounter(name, help string, labels ...string) CounterVec
	RegisterGauge(name, help string, labels ...string) GaugeVec
	RegisterHistogram(name, help string, buckets []float64, labels ...string) HistogramVec
	RegisterSummary(name, help string, objectives map[float64]float64, labels ...string) SummaryVec
	Handler() http.Handler
	MustRegister(collectors ...prometheus.Collector)
	Unregister(collector prometheus.Collector) bool
}

type CounterVec interface {
	WithLabelValues(lvs ...string) Counter
	With(labels map[string]string) Counter
}

type Counter interface {
	Inc()
	Add(delta float64)
}

type GaugeVec interface {
	WithLabelValues(lvs ...string) Gauge
	With(labels map[string]string) Gauge
}

type Gauge interface {
	Set(value float64)
	Inc()
	Dec()
	Add(delta float64)
	Sub(delta float64)
}

type HistogramVec interface {
	WithLabelValues(lvs ...string) Histogram
	With(labels map[string]string) Histogram
}

type Histogram interface {
	Observe(value float64)
}

type SummaryVec interface {
	WithLabelValues(lvs ...string) Summary
	With(labels map[string]string) Summary
}

type Summary interface {
	Observe(value float64)
}

// CollectorConfig names the metric namespace and optional runtime
// collectors.  Namespace is mandatory.
type CollectorConfig struct {
	Namespace               string
	Subsystem               string
	EnableProcessMetrics    bool
	EnableGoMetrics         bool
	DefaultHistogramBuckets []float64
	ConstLabels             map[string]string
}

type collector struct {
	registry *prometheus.Registry
	config   CollectorConfig
	logger   logging.Logger

	mu    sync.Mutex
	byFQN map[string]prometheus.Collector
}

// NewMetricsCollector builds a collector around a fresh registry, optionally
// attaching the process and Go runtime collectors.
func NewMetricsCollector(cfg CollectorConfig, logger logging.Logger) (MetricsCollector, error) {
	if cfg.Namespace == "" {
		return nil, errors.New(errors.ErrCodeValidation, "metric namespace is required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if cfg.DefaultHistogramBuckets == nil {
		cfg.DefaultHistogramBuckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()
	if cfg.EnableProcessMetrics {
		registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{
			Namespace: cfg.Namespace,
		}))
	}
	if cfg.EnableGoMetrics {
		registry.MustRegister(prometheus.NewGoCollector())
	}

	return &collector{
		registry: registry,
		config:   cfg,
		logger:   logger,
		byFQN:    make(map[string]prometheus.Collector),
	}, nil
}

func (c *collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (c *collector) MustRegister(collectors ...prometheus.Collector) {
	c.registry.MustRegister(collectors...)
}

func (c *collector) Unregister(col prometheus.Collector) bool {
	return c.registry.Unregister(col)
}

func (c *collector) opts(name, help string) prometheus.Opts {
	return prometheus.Opts{
		Namespace:   c.config.Namespace,
		Subsystem:   c.config.Subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: c.config.ConstLabels,
	}
}

// obtain registers vec under name, or returns the collector already
// registered under that name.  Re-registering the same name with a different
// metric type is reported as a mismatch.
func obtain[T prometheus.Collector](c *collector, name string, vec T) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fqn := prometheus.BuildFQName(c.config.Namespace, c.config.Subsystem, name)
	if existing, ok := c.byFQN[fqn]; ok {
		typed, ok := existing.(T)
		if !ok {
			return vec, errors.Newf(errors.ErrCodeConflict, "metric %s already registered with a different type", fqn)
		}
		return typed, nil
	}

	if err := c.registry.Register(vec); err != nil {
		return vec, err
	}
	c.byFQN[fqn] = vec
	return vec, nil
}

func (c *collector) RegisterCounter(name, help string, labels ...string) CounterVec {
	vec, err := obtain(c, name, prometheus.NewCounterVec(prometheus.CounterOpts(c.opts(name, help)), labels))
	if err != nil {
		c.logger.Error("counter registration failed", logging.String("name", name), logging.Err(err))
		return nopCounterVec{}
	}
	return counterVec{vec}
}

func (c *collector) RegisterGauge(name, help string, labels ...string) GaugeVec {
	vec, err := obtain(c, name, prometheus.NewGaugeVec(prometheus.GaugeOpts(c.opts(name, help)), labels))
	if err != nil {
		c.logger.Error("gauge registration failed", logging.String("name", name), logging.Err(err))
		return nopGaugeVec{}
	}
	return gaugeVec{vec}
}

func (c *collector) RegisterHistogram(name, help string, buckets []float64, labels ...string) HistogramVec {
	if buckets == nil {
		buckets = c.config.DefaultHistogramBuckets
	}
	o := c.opts(name, help)
	vec, err := obtain(c, name, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   o.Namespace,
		Subsystem:   o.Subsystem,
		Name:        o.Name,
		Help:        o.Help,
		ConstLabels: o.ConstLabels,
		Buckets:     buckets,
	}, labels))
	if err != nil {
		c.logger.Error("histogram registration failed", logging.String("name", name), logging.Err(err))
		return nopHistogramVec{}
	}
	return histogramVec{vec}
}

func (c *collector) RegisterSummary(name, help string, objectives map[float64]float64, labels ...string) SummaryVec {
	if objectives == nil {
		objectives = map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001}
	}
	o := c.opts(name, help)
	vec, err := obtain(c, name, prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace:   o.Namespace,
		Subsystem:   o.Subsystem,
		Name:        o.Name,
		Help:        o.Help,
		ConstLabels: o.ConstLabels,
		Objectives:  objectives,
	}, labels))
	if err != nil {
		c.logger.Error("summary registration failed", logging.String("name", name), logging.Err(err))
		return nopSummaryVec{}
	}
	return summaryVec{vec}
}

// Live instruments delegate straight to client_golang.

type counterVec struct{ vec *prometheus.CounterVec }

func (v counterVec) WithLabelValues(lvs ...string) Counter { return v.vec.WithLabelValues(lvs...) }
func (v counterVec) With(labels map[string]string) Counter { return v.vec.With(labels) }

type gaugeVec struct{ vec *prometheus.GaugeVec }

func (v gaugeVec) WithLabelValues(lvs ...string) Gauge { return v.vec.WithLabelValues(lvs...) }
func (v gaugeVec) With(labels map[string]string) Gauge { return v.vec.With(labels) }

type histogramVec struct{ vec *prometheus.HistogramVec }

func (v histogramVec) WithLabelValues(lvs ...string) Histogram { return v.vec.WithLabelValues(lvs...) }
func (v histogramVec) With(labels map[string]string) Histogram { return v.vec.With(labels) }

type summaryVec struct{ vec *prometheus.SummaryVec }

func (v summaryVec) WithLabelValues(lvs ...string) Summary { return v.vec.WithLabelValues(lvs...) }
func (v summaryVec) With(labels map[string]string) Summary { return v.vec.With(labels) }

// No-op instruments returned when registration fails.

type nopCounterVec struct{}

func (nopCounterVec) WithLabelValues(lvs ...string) Counter { return nopInstrument{} }
func (nopCounterVec) With(labels map[string]string) Counter { return nopInstrument{} }

type nopGaugeVec struct{}

func (nopGaugeVec) WithLabelValues(lvs ...string) Gauge { return nopInstrument{} }
func (nopGaugeVec) With(labels map[string]string) Gauge { return nopInstrument{} }

type nopHistogramVec struct{}

func (nopHistogramVec) WithLabelValues(lvs ...string) Histogram { return nopInstrument{} }
func (nopHistogramVec) With(labels map[string]string) Histogram { return nopInstrument{} }

type nopSummaryVec struct{}

func (nopSummaryVec) WithLabelValues(lvs ...string) Summary { return nopInstrument{} }
func (nopSummaryVec) With(labels map[string]string) Summary { return nopInstrument{} }

type nopInstrument struct{}

func (nopInstrument) Inc()                  {}
func (nopInstrument) Dec()                  {}
func (nopInstrument) Add(delta float64)     {}
func (nopInstrument) Sub(delta float64)     {}
func (nopInstrument) Set(value float64)     {}
func (nopInstrument) Observe(value float64) {}

// Timer measures the time between its creation and ObserveDuration.
type Timer struct {
	histogram Histogram
	start     time.Time
}

func NewTimer(histogram Histogram) *Timer {
	return &Timer{histogram: histogram, start: time.Now()}
}

func (t *Timer) ObserveDuration() {
	if t.histogram == nil {
		return
	}
	t.histogram.Observe(time.Since(t.start).Seconds())
}

//Personal.AI order the ending
