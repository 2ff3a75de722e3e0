package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dscoring "github.com/turtacn/MolScore/internal/domain/scoring"
	"github.com/turtacn/MolScore/pkg/errors"
	stypes "github.com/turtacn/MolScore/pkg/types/scoring"
)

// stubScorer returns a canned response or error.
type stubScorer struct {
	resp    *stypes.ScoreResponse
	err     error
	gotCfg  dscoring.FunctionConfig
	gotSMIs []string
}

func (s *stubScorer) ScoreBatch(ctx context.Context, fn dscoring.FunctionConfig, smiles []string) (*stypes.ScoreResponse, error) {
	s.gotCfg = fn
	s.gotSMIs = smiles
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func newScoringRouter(scorer BatchScorer) *gin.Engine {
	h := NewScoringHandler(scorer, nil)
	r := gin.New()
	r.POST("/api/v1/scores", h.ScoreBatch)
	return r
}

func postScores(t *testing.T, router *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scores", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestScoreBatch_Success(t *testing.T) {
	scorer := &stubScorer{
		resp: &stypes.ScoreResponse{
			FunctionName: stypes.FunctionCustomProduct,
			Scores: []stypes.MoleculeScoreDTO{
				{SMILES: "CCO", Total: 0.82},
				{SMILES: "c1ccccc1", Total: 0.41},
			},
		},
	}
	router := newScoringRouter(scorer)

	body := `{
		"scoring_function": {"name": "custom_product", "parameters": [
			{"component_type": "qed_score", "name": "qed", "weight": 1}
		]},
		"smiles": ["CCO", "c1ccccc1"]
	}`
	w := postScores(t, router, body)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"CCO", "c1ccccc1"}, scorer.gotSMIs)
	assert.Equal(t, stypes.FunctionCustomProduct, scorer.gotCfg.Name)

	var resp stypes.ScoreResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Scores, 2)
	assert.InDelta(t, 0.82, resp.Scores[0].Total, 1e-9)
}

func TestScoreBatch_MalformedBody(t *testing.T) {
	router := newScoringRouter(&stubScorer{})

	w := postScores(t, router, `{"smiles": [`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), string(errors.ErrCodeBadRequest))
}

func TestScoreBatch_EmptySMILES(t *testing.T) {
	router := newScoringRouter(&stubScorer{})

	w := postScores(t, router, `{"scoring_function": {"name": "custom_sum"}, "smiles": []}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), string(errors.ErrCodeMoleculeEmptyBatch))
}

func TestScoreBatch_OversizedBatch(t *testing.T) {
	router := newScoringRouter(&stubScorer{})

	smiles := make([]string, maxScoreBatchSize+1)
	for i := range smiles {
		smiles[i] = "C"
	}
	payload, err := json.Marshal(map[string]interface{}{
		"scoring_function": map[string]interface{}{"name": "custom_sum"},
		"smiles":           smiles,
	})
	require.NoError(t, err)

	w := postScores(t, router, string(payload))

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "exceeds the maximum")
}

func TestScoreBatch_ScorerErrorMapsToStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "invalid configuration",
			err:        errors.New(errors.ErrCodeScoringConfigInvalid, "at least one component is required"),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown component",
			err:        errors.New(errors.ErrCodeComponentTypeUnknown, `unknown component type "qsar"`),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "backend unavailable",
			err:        errors.New(errors.ErrCodeExternalService, "serving endpoint unreachable"),
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "untyped error",
			err:        assertAnError(),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newScoringRouter(&stubScorer{err: tt.err})

			w := postScores(t, router, `{"scoring_function": {"name": "custom_sum"}, "smiles": ["CCO"]}`)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

// assertAnError returns a plain error outside the AppError hierarchy.
func assertAnError() error {
	return &json.SyntaxError{}
}

func TestScoreBatch_UntypedErrorHidesDetails(t *testing.T) {
	router := newScoringRouter(&stubScorer{err: assertAnError()})

	w := postScores(t, router, `{"scoring_function": {"name": "custom_sum"}, "smiles": ["CCO"]}`)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "internal server error"))
}

//Personal.AI order the ending
