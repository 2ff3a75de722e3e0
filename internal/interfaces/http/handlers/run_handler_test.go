package handlers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MolScore/internal/application/run"
	"github.com/turtacn/MolScore/internal/config"
	"github.com/turtacn/MolScore/pkg/errors"
	"github.com/turtacn/MolScore/pkg/types/common"
	stypes "github.com/turtacn/MolScore/pkg/types/scoring"
)

// stubRunner emits canned records or fails submission.
type stubRunner struct {
	records []run.StepRecord
	err     error
	gotCfg  config.RunConfig
}

func (s *stubRunner) Submit(ctx context.Context, cfg config.RunConfig) (<-chan run.StepRecord, error) {
	s.gotCfg = cfg
	if s.err != nil {
		return nil, s.err
	}
	ch := make(chan run.StepRecord, len(s.records))
	for _, record := range s.records {
		ch <- record
	}
	close(ch)
	return ch, nil
}

// stubRunRepo backs the read endpoints with fixed data.
type stubRunRepo struct {
	runs  map[common.ID]*run.Run
	steps map[common.ID][]run.StepRecord
	fail  error
}

func newStubRunRepo() *stubRunRepo {
	return &stubRunRepo{
		runs:  make(map[common.ID]*run.Run),
		steps: make(map[common.ID][]run.StepRecord),
	}
}

func (r *stubRunRepo) CreateRun(ctx context.Context, rn *run.Run) error {
	r.runs[rn.ID] = rn
	return nil
}
func (r *stubRunRepo) UpdateRun(ctx context.Context, rn *run.Run) error {
	r.runs[rn.ID] = rn
	return nil
}

func (r *stubRunRepo) GetRun(ctx context.Context, id common.ID) (*run.Run, error) {
	if r.fail != nil {
		return nil, r.fail
	}
	rn, ok := r.runs[id]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeRunNotFound, "run %s not found", id)
	}
	return rn, nil
}

func (r *stubRunRepo) ListRuns(ctx context.Context, limit, offset int) ([]*run.Run, error) {
	if r.fail != nil {
		return nil, r.fail
	}
	out := make([]*run.Run, 0, len(r.runs))
	for _, rn := range r.runs {
		out = append(out, rn)
	}
	return out, nil
}

func (r *stubRunRepo) SaveStep(ctx context.Context, record run.StepRecord) error {
	r.steps[record.RunID] = append(r.steps[record.RunID], record)
	return nil
}

func (r *stubRunRepo) ListSteps(ctx context.Context, runID common.ID, limit, offset int) ([]run.StepRecord, error) {
	return r.steps[runID], nil
}

// stubSigner records the object name it was asked to sign.
type stubSigner struct {
	url       string
	err       error
	gotObject string
	gotExpiry time.Duration
}

func (s *stubSigner) PresignedDownloadURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	s.gotObject = objectName
	s.gotExpiry = expiry
	if s.err != nil {
		return "", s.err
	}
	return s.url, nil
}

func newRunRouter(runner run.Runner, repo run.Repository, signer ArtifactURLSigner) *gin.Engine {
	h := NewRunHandler(runner, repo, signer, nil)
	r := gin.New()
	r.POST("/api/v1/runs", h.SubmitRun)
	r.GET("/api/v1/runs", h.ListRuns)
	r.GET("/api/v1/runs/:id", h.GetRun)
	r.GET("/api/v1/runs/:id/steps", h.ListSteps)
	r.GET("/api/v1/runs/:id/artifact", h.GetArtifactURL)
	return r
}

func validRunConfigJSON() string {
	return `{
		"version": 3,
		"run_type": "scoring",
		"logging": {"job_name": "overnight-qed", "job_id": "job-1"},
		"parameters": {
			"scoring_function": {"name": "custom_sum", "parameters": [
				{"component_type": "qed_score", "name": "qed", "weight": 1}
			]}
		}
	}`
}

func TestSubmitRun_StreamsStepRecords(t *testing.T) {
	runner := &stubRunner{
		records: []run.StepRecord{
			{RunID: "run-1", Step: 0, MeanScore: 0.4, Scores: []stypes.MoleculeScoreDTO{{SMILES: "CCO", Total: 0.4}}},
			{RunID: "run-1", Step: 1, MeanScore: 0.6},
		},
	}
	router := newRunRouter(runner, newStubRunRepo(), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", bytes.NewBufferString(validRunConfigJSON()))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/x-ndjson", w.Header().Get("Content-Type"))

	var lines []stypes.StepRecordDTO
	scanner := bufio.NewScanner(w.Body)
	for scanner.Scan() {
		var dto stypes.StepRecordDTO
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &dto))
		lines = append(lines, dto)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, common.ID("run-1"), lines[0].RunID)
	assert.Equal(t, 0, lines[0].Step)
	assert.Equal(t, 1, lines[1].Step)
	assert.Equal(t, "scoring", runner.gotCfg.RunType)
}

func TestSubmitRun_Detached(t *testing.T) {
	runner := &stubRunner{records: []run.StepRecord{{RunID: "run-1", Step: 0}}}
	router := newRunRouter(runner, newStubRunRepo(), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs?detach=true", bytes.NewBufferString(validRunConfigJSON()))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), "overnight-qed")
}

func TestSubmitRun_InvalidDocument(t *testing.T) {
	router := newRunRouter(&stubRunner{}, newStubRunRepo(), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", bytes.NewBufferString(`{"version": 1}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitRun_AlreadyActive(t *testing.T) {
	runner := &stubRunner{err: errors.New(errors.ErrCodeRunAlreadyActive, "another run is already active")}
	router := newRunRouter(runner, newStubRunRepo(), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", bytes.NewBufferString(validRunConfigJSON()))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGetRun_Found(t *testing.T) {
	repo := newStubRunRepo()
	repo.runs["run-9"] = &run.Run{
		ID:        "run-9",
		Name:      "overnight-qed",
		RunType:   "scoring",
		Status:    stypes.RunStatusCompleted,
		Steps:     100,
		BestScore: 0.93,
	}
	router := newRunRouter(&stubRunner{}, repo, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/runs/run-9", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var dto stypes.RunDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dto))
	assert.Equal(t, common.ID("run-9"), dto.ID)
	assert.Equal(t, stypes.RunStatusCompleted, dto.Status)
	assert.InDelta(t, 0.93, dto.BestScore, 1e-9)
}

func TestGetRun_NotFound(t *testing.T) {
	router := newRunRouter(&stubRunner{}, newStubRunRepo(), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/runs/nope", nil))

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), string(errors.ErrCodeRunNotFound))
}

func TestListRuns(t *testing.T) {
	repo := newStubRunRepo()
	repo.runs["run-1"] = &run.Run{ID: "run-1", Status: stypes.RunStatusRunning}
	router := newRunRouter(&stubRunner{}, repo, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/runs?limit=10&offset=0", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Runs  []stypes.RunDTO `json:"runs"`
		Limit int             `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Runs, 1)
	assert.Equal(t, 10, body.Limit)
}

func TestListSteps(t *testing.T) {
	repo := newStubRunRepo()
	repo.runs["run-1"] = &run.Run{ID: "run-1", Status: stypes.RunStatusCompleted}
	repo.steps["run-1"] = []run.StepRecord{
		{RunID: "run-1", Step: 0, MeanScore: 0.5},
		{RunID: "run-1", Step: 1, MeanScore: 0.7},
	}
	router := newRunRouter(&stubRunner{}, repo, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/runs/run-1/steps", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Steps []stypes.StepRecordDTO `json:"steps"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Steps, 2)
	assert.InDelta(t, 0.7, body.Steps[1].MeanScore, 1e-9)
}

func TestListSteps_UnknownRun(t *testing.T) {
	router := newRunRouter(&stubRunner{}, newStubRunRepo(), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/runs/nope/steps", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetArtifactURL(t *testing.T) {
	repo := newStubRunRepo()
	repo.runs["run-1"] = &run.Run{
		ID:          "run-1",
		Status:      stypes.RunStatusCompleted,
		ArtifactURI: "s3://molscore-artifacts/runs/run-1/scores.csv",
	}
	signer := &stubSigner{url: "https://minio.local/presigned"}
	router := newRunRouter(&stubRunner{}, repo, signer)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/runs/run-1/artifact", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "runs/run-1/scores.csv", signer.gotObject)
	assert.Equal(t, artifactURLExpiry, signer.gotExpiry)
	assert.Contains(t, w.Body.String(), "https://minio.local/presigned")
}

func TestGetArtifactURL_NoArtifact(t *testing.T) {
	repo := newStubRunRepo()
	repo.runs["run-1"] = &run.Run{ID: "run-1", Status: stypes.RunStatusRunning}
	router := newRunRouter(&stubRunner{}, repo, &stubSigner{url: "u"})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/runs/run-1/artifact", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetArtifactURL_NoSigner(t *testing.T) {
	router := newRunRouter(&stubRunner{}, newStubRunRepo(), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/runs/run-1/artifact", nil))

	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestObjectNameFromURI(t *testing.T) {
	tests := []struct {
		name    string
		uri     string
		want    string
		wantErr bool
	}{
		{"valid", "s3://bucket/runs/run-1/scores.csv", "runs/run-1/scores.csv", false},
		{"no scheme", "runs/run-1/scores.csv", "", true},
		{"bucket only", "s3://bucket", "", true},
		{"trailing slash", "s3://bucket/", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := objectNameFromURI(tt.uri)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

//Personal.AI order the ending
