package prometheus

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAppMetrics(t *testing.T) (*AppMetrics, MetricsCollector) {
	c := scoringCollector(t)
	m := NewAppMetrics(c)
	return m, c
}

func TestNewAppMetrics_AllMetricsRegistered(t *testing.T) {
	m, _ := newTestAppMetrics(t)
	require.NotNil(t, m)

	assert.NotNil(t, m.HTTPRequestsTotal)
	assert.NotNil(t, m.HTTPRequestDuration)
	assert.NotNil(t, m.MoleculesScoredTotal)
	assert.NotNil(t, m.ScoringFunctionDuration)
	assert.NotNil(t, m.ComponentEvaluationsTotal)
	assert.NotNil(t, m.ComponentScoreDistribution)
	assert.NotNil(t, m.RunsTotal)
	assert.NotNil(t, m.RunStepDuration)
	assert.NotNil(t, m.ArtifactUploadsTotal)
	assert.NotNil(t, m.CacheHitsTotal)
	assert.NotNil(t, m.MessagePublishTotal)
	assert.NotNil(t, m.ErrorsTotal)
}

func TestRecordHTTPRequest_AllMetricsUpdated(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordHTTPRequest(m, "POST", "/api/v1/score", 200, 100*time.Millisecond, 1024, 2048)

	output := scrape(t, c)
	assert.Contains(t, output, `molscore_scoring_http_requests_total{method="POST",path="/api/v1/score",status_code="200"} 1`)
	assert.Contains(t, output, `molscore_scoring_http_request_size_bytes_sum{method="POST",path="/api/v1/score"} 1024`)
	assert.Contains(t, output, `molscore_scoring_http_response_size_bytes_sum{method="POST",path="/api/v1/score"} 2048`)
	assert.Contains(t, output, `molscore_scoring_http_request_duration_seconds_count{method="POST",path="/api/v1/score"} 1`)
}

func TestRecordScoringBatch(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordScoringBatch(m, "lead-opt", 98, 2, 3*time.Second)

	output := scrape(t, c)
	assert.Contains(t, output, `molscore_scoring_molecules_scored_total{function="lead-opt",status="success"} 98`)
	assert.Contains(t, output, `molscore_scoring_molecules_scored_total{function="lead-opt",status="failure"} 2`)
	assert.Contains(t, output, `molscore_scoring_scoring_function_duration_seconds_count{function="lead-opt"} 1`)
	assert.Contains(t, output, `molscore_scoring_scoring_batch_size_sum{function="lead-opt"} 100`)
}

func TestRecordScoringBatch_NoFailures(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordScoringBatch(m, "lead-opt", 10, 0, time.Second)

	output := scrape(t, c)
	assert.NotContains(t, output, `molscore_scoring_molecules_scored_total{function="lead-opt",status="failure"}`)
}

func TestRecordComponentEvaluation_Success(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordComponentEvaluation(m, "tanimoto_similarity", 0.73, 20*time.Millisecond, nil)

	output := scrape(t, c)
	assert.Contains(t, output, `molscore_scoring_component_evaluations_total{component="tanimoto_similarity",status="success"} 1`)
	assert.Contains(t, output, `molscore_scoring_component_score_sum{component="tanimoto_similarity"} 0.73`)
}

func TestRecordComponentEvaluation_Failure(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordComponentEvaluation(m, "dockstream", 0, 5*time.Second, errors.New("backend down"))

	output := scrape(t, c)
	assert.Contains(t, output, `molscore_scoring_component_evaluations_total{component="dockstream",status="failure"} 1`)
	// Failed evaluations contribute no score observation.
	assert.NotContains(t, output, `molscore_scoring_component_score_count{component="dockstream"} 1`)
}

func TestRecordRunStep(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordRunStep(m, 12*time.Second, 3)
	RecordRunStep(m, 8*time.Second, 0)

	output := scrape(t, c)
	assert.Contains(t, output, `molscore_scoring_run_steps_total 2`)
	assert.Contains(t, output, `molscore_scoring_run_step_duration_seconds_count 2`)
	assert.Contains(t, output, `molscore_scoring_diversity_filtered_total 3`)
}

func TestRecordRunFinished(t *testing.T) {
	m, c := newTestAppMetrics(t)

	m.ActiveRuns.WithLabelValues().Inc()
	RecordRunFinished(m, "completed")

	output := scrape(t, c)
	assert.Contains(t, output, `molscore_scoring_runs_total{status="completed"} 1`)
	assert.Contains(t, output, `molscore_scoring_active_runs 0`)
}

func TestRecordArtifactUpload(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordArtifactUpload(m, 200*time.Millisecond, nil)
	RecordArtifactUpload(m, time.Second, errors.New("bucket missing"))

	output := scrape(t, c)
	assert.Contains(t, output, `molscore_scoring_artifact_uploads_total{status="success"} 1`)
	assert.Contains(t, output, `molscore_scoring_artifact_uploads_total{status="failure"} 1`)
}

func TestRecordDBQuery_Error(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordDBQuery(m, "postgres", "insert", 5*time.Millisecond, errors.New("db error"))

	output := scrape(t, c)
	assert.Contains(t, output, `molscore_scoring_db_query_duration_seconds_count{db="postgres",operation="insert"} 1`)
	assert.Contains(t, output, `molscore_scoring_errors_total{component="postgres",error_type="query_error",severity="error"} 1`)
}

func TestRecordCacheAccess(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordCacheAccess(m, "redis", true)
	RecordCacheAccess(m, "redis", true)
	RecordCacheAccess(m, "redis", false)

	output := scrape(t, c)
	assert.Contains(t, output, `molscore_scoring_cache_hits_total{cache="redis"} 2`)
	assert.Contains(t, output, `molscore_scoring_cache_misses_total{cache="redis"} 1`)
}

func TestRecordMessagePublish(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordMessagePublish(m, "molscore.run.steps", nil)
	RecordMessagePublish(m, "molscore.run.steps", errors.New("broker unreachable"))

	output := scrape(t, c)
	assert.Contains(t, output, `molscore_scoring_mq_publish_total{status="success",topic="molscore.run.steps"} 1`)
	assert.Contains(t, output, `molscore_scoring_mq_publish_total{status="failure",topic="molscore.run.steps"} 1`)
}

func TestDefaultBuckets(t *testing.T) {
	assert.NotEmpty(t, DefaultHTTPDurationBuckets)
	assert.NotEmpty(t, DefaultScoringDurationBuckets)
	assert.NotEmpty(t, DefaultStepDurationBuckets)
	assert.NotEmpty(t, DefaultScoreBuckets)
	assert.IsIncreasing(t, DefaultScoreBuckets)
}

func TestConcurrentMetricRecording(t *testing.T) {
	m, _ := newTestAppMetrics(t)

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				RecordHTTPRequest(m, "GET", "/path", 200, time.Millisecond, 10, 10)
			}
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

//Personal.AI order the ending
