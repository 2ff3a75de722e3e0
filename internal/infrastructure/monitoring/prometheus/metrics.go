package prometheus

import (
	"fmt"
	"time"
)

// AppMetrics holds all application metrics.
type AppMetrics struct {
	// HTTP Layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPRequestSize     HistogramVec
	HTTPResponseSize    HistogramVec
	HTTPActiveRequests  GaugeVec

	// Scoring Layer
	MoleculesScoredTotal        CounterVec
	ScoringFunctionDuration     HistogramVec
	ScoringBatchSize            HistogramVec
	ComponentEvaluationsTotal   CounterVec
	ComponentEvaluationDuration HistogramVec
	ComponentScoreDistribution  HistogramVec

	// Run Layer
	RunsTotal              CounterVec
	ActiveRuns             GaugeVec
	RunStepsTotal          CounterVec
	RunStepDuration        HistogramVec
	DiversityFilteredTotal CounterVec
	ArtifactUploadsTotal   CounterVec
	ArtifactUploadDuration HistogramVec

	// Infrastructure Layer
	DBConnectionPoolSize   GaugeVec
	DBConnectionPoolActive GaugeVec
	DBQueryDuration        HistogramVec
	CacheHitsTotal         CounterVec
	CacheMissesTotal       CounterVec
	MessagePublishTotal    CounterVec
	MessageProcessDuration HistogramVec

	// System Health
	ServiceUptime     GaugeVec
	HealthCheckStatus GaugeVec
	ErrorsTotal       CounterVec
}

// Default Buckets
var (
	DefaultHTTPDurationBuckets    = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultScoringDurationBuckets = []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 15, 60, 300}
	DefaultStepDurationBuckets    = []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800}
	DefaultBatchSizeBuckets       = []float64{1, 8, 32, 128, 512, 2048, 8192}
	DefaultByteSizeBuckets        = []float64{100, 1000, 10000, 100000, 1000000, 10000000}
	DefaultDBDurationBuckets      = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
	DefaultScoreBuckets           = []float64{0, .1, .2, .3, .4, .5, .6, .7, .8, .9, 1}
)

// NewAppMetrics registers all metrics and returns AppMetrics struct.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	// HTTP
	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPRequestSize = collector.RegisterHistogram("http_request_size_bytes", "HTTP request size", DefaultByteSizeBuckets, "method", "path")
	m.HTTPResponseSize = collector.RegisterHistogram("http_response_size_bytes", "HTTP response size", DefaultByteSizeBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method", "path")

	// Scoring
	m.MoleculesScoredTotal = collector.RegisterCounter("molecules_scored_total", "Molecules scored", "function", "status")
	m.ScoringFunctionDuration = collector.RegisterHistogram("scoring_function_duration_seconds", "Scoring function duration per batch", DefaultScoringDurationBuckets, "function")
	m.ScoringBatchSize = collector.RegisterHistogram("scoring_batch_size", "Molecules per scoring batch", DefaultBatchSizeBuckets, "function")
	m.ComponentEvaluationsTotal = collector.RegisterCounter("component_evaluations_total", "Component evaluations", "component", "status")
	m.ComponentEvaluationDuration = collector.RegisterHistogram("component_evaluation_duration_seconds", "Component evaluation duration", DefaultScoringDurationBuckets, "component")
	m.ComponentScoreDistribution = collector.RegisterHistogram("component_score", "Transformed component score distribution", DefaultScoreBuckets, "component")

	// Run
	m.RunsTotal = collector.RegisterCounter("runs_total", "Optimization runs", "status")
	m.ActiveRuns = collector.RegisterGauge("active_runs", "Currently active runs")
	m.RunStepsTotal = collector.RegisterCounter("run_steps_total", "Optimization steps executed")
	m.RunStepDuration = collector.RegisterHistogram("run_step_duration_seconds", "Optimization step duration", DefaultStepDurationBuckets)
	m.DiversityFilteredTotal = collector.RegisterCounter("diversity_filtered_total", "Molecules penalized by the diversity filter")
	m.ArtifactUploadsTotal = collector.RegisterCounter("artifact_uploads_total", "Run artifact uploads", "status")
	m.ArtifactUploadDuration = collector.RegisterHistogram("artifact_upload_duration_seconds", "Run artifact upload duration", DefaultHTTPDurationBuckets)

	// Infrastructure
	m.DBConnectionPoolSize = collector.RegisterGauge("db_pool_size", "Database connection pool size", "db")
	m.DBConnectionPoolActive = collector.RegisterGauge("db_pool_active", "Database active connections", "db")
	m.DBQueryDuration = collector.RegisterHistogram("db_query_duration_seconds", "Database query duration", DefaultDBDurationBuckets, "db", "operation")
	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")
	m.MessagePublishTotal = collector.RegisterCounter("mq_publish_total", "Messages published", "topic", "status")
	m.MessageProcessDuration = collector.RegisterHistogram("mq_process_duration_seconds", "Message processing duration", DefaultHTTPDurationBuckets, "topic", "message_type")

	// System Health
	m.ServiceUptime = collector.RegisterGauge("service_uptime_seconds", "Service uptime", "service")
	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Total errors", "component", "error_type", "severity")

	return m
}

// RegisterAppMetrics is an alias for NewAppMetrics.
func RegisterAppMetrics(collector MetricsCollector) *AppMetrics {
	return NewAppMetrics(collector)
}

// Helpers

func RecordHTTPRequest(metrics *AppMetrics, method, path string, statusCode int, duration time.Duration, reqSize, respSize int64) {
	status := fmt.Sprintf("%d", statusCode)
	metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	metrics.HTTPRequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	metrics.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(respSize))
}

func RecordScoringBatch(metrics *AppMetrics, function string, scored, failed int, duration time.Duration) {
	metrics.MoleculesScoredTotal.WithLabelValues(function, "success").Add(float64(scored))
	if failed > 0 {
		metrics.MoleculesScoredTotal.WithLabelValues(function, "failure").Add(float64(failed))
	}
	metrics.ScoringFunctionDuration.WithLabelValues(function).Observe(duration.Seconds())
	metrics.ScoringBatchSize.WithLabelValues(function).Observe(float64(scored + failed))
}

func RecordComponentEvaluation(metrics *AppMetrics, component string, score float64, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	} else {
		metrics.ComponentScoreDistribution.WithLabelValues(component).Observe(score)
	}
	metrics.ComponentEvaluationsTotal.WithLabelValues(component, status).Inc()
	metrics.ComponentEvaluationDuration.WithLabelValues(component).Observe(duration.Seconds())
}

func RecordRunStep(metrics *AppMetrics, duration time.Duration, diversityFiltered int) {
	metrics.RunStepsTotal.WithLabelValues().Inc()
	metrics.RunStepDuration.WithLabelValues().Observe(duration.Seconds())
	if diversityFiltered > 0 {
		metrics.DiversityFilteredTotal.WithLabelValues().Add(float64(diversityFiltered))
	}
}

func RecordRunFinished(metrics *AppMetrics, status string) {
	metrics.RunsTotal.WithLabelValues(status).Inc()
	metrics.ActiveRuns.WithLabelValues().Dec()
}

func RecordArtifactUpload(metrics *AppMetrics, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.ArtifactUploadsTotal.WithLabelValues(status).Inc()
	metrics.ArtifactUploadDuration.WithLabelValues().Observe(duration.Seconds())
}

func RecordDBQuery(metrics *AppMetrics, db, operation string, duration time.Duration, err error) {
	metrics.DBQueryDuration.WithLabelValues(db, operation).Observe(duration.Seconds())
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues(db, "query_error", "error").Inc()
	}
}

func RecordCacheAccess(metrics *AppMetrics, cache string, hit bool) {
	if hit {
		metrics.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		metrics.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

func RecordMessagePublish(metrics *AppMetrics, topic string, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.MessagePublishTotal.WithLabelValues(topic, status).Inc()
}

func RecordError(metrics *AppMetrics, component, errorType, severity string) {
	metrics.ErrorsTotal.WithLabelValues(component, errorType, severity).Inc()
}

//Personal.AI order the ending
