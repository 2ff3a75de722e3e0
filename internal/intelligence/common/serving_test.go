package common

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MolScore/internal/config"
	"github.com/turtacn/MolScore/pkg/errors"
)

func servingConfig(addr string) config.IntelligenceConfig {
	return config.IntelligenceConfig{
		ServingAddr:  addr,
		ModelTimeout: 5 * time.Second,
		MaxBatchSize: 64,
	}
}

func TestHTTPServingClient_Predict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, servingPredictPath, r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req PredictRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		values := make([]float64, len(req.SMILES))
		for i := range values {
			values[i] = float64(i) + 0.5
		}
		json.NewEncoder(w).Encode(PredictResponse{ //nolint:errcheck
			Model:   req.Model,
			Version: "3",
			Values:  values,
		})
	}))
	defer srv.Close()

	client, err := NewHTTPServingClient(servingConfig(srv.URL), nil, nil)
	require.NoError(t, err)
	defer client.Close()

	resp, err := client.Predict(context.Background(), &PredictRequest{
		Model:  "solubility_dnn",
		SMILES: []string{"CCO", "c1ccccc1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "solubility_dnn", resp.Model)
	assert.Equal(t, "3", resp.Version)
	assert.Equal(t, []float64{0.5, 1.5}, resp.Values)
}

func TestHTTPServingClient_SplitsLargeBatches(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		var req PredictRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.LessOrEqual(t, len(req.SMILES), 2)
		json.NewEncoder(w).Encode(PredictResponse{ //nolint:errcheck
			Model:  req.Model,
			Values: make([]float64, len(req.SMILES)),
		})
	}))
	defer srv.Close()

	cfg := servingConfig(srv.URL)
	cfg.MaxBatchSize = 2
	client, err := NewHTTPServingClient(cfg, nil, nil)
	require.NoError(t, err)

	resp, err := client.Predict(context.Background(), &PredictRequest{
		Model:  "herg_classifier",
		SMILES: []string{"C", "CC", "CCC", "CCCC", "CCCCC"},
	})
	require.NoError(t, err)
	assert.Len(t, resp.Values, 5)
	assert.Equal(t, int32(3), requests.Load())
}

func TestHTTPServingClient_BackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := NewHTTPServingClient(servingConfig(srv.URL), nil, nil)
	require.NoError(t, err)

	_, err = client.Predict(context.Background(), &PredictRequest{
		Model:  "missing",
		SMILES: []string{"CCO"},
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeAIInferenceFailed))
}

func TestHTTPServingClient_ValueCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(PredictResponse{Values: []float64{1.0}}) //nolint:errcheck
	}))
	defer srv.Close()

	client, err := NewHTTPServingClient(servingConfig(srv.URL), nil, nil)
	require.NoError(t, err)

	_, err = client.Predict(context.Background(), &PredictRequest{
		Model:  "solubility_dnn",
		SMILES: []string{"CCO", "CCN"},
	})
	assert.True(t, errors.IsCode(err, errors.ErrCodeAIInferenceFailed))
}

func TestHTTPServingClient_RejectsInvalidRequest(t *testing.T) {
	client, err := NewHTTPServingClient(servingConfig("http://localhost:1"), nil, nil)
	require.NoError(t, err)

	_, err = client.Predict(context.Background(), &PredictRequest{Model: "", SMILES: []string{"C"}})
	assert.True(t, errors.IsCode(err, errors.ErrCodeAIInputInvalid))

	_, err = client.Predict(context.Background(), &PredictRequest{Model: "m", SMILES: nil})
	assert.True(t, errors.IsCode(err, errors.ErrCodeAIInputInvalid))
}

func TestHTTPServingClient_RecordsMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req PredictRequest
		json.NewDecoder(r.Body).Decode(&req)       //nolint:errcheck
		json.NewEncoder(w).Encode(PredictResponse{ //nolint:errcheck
			Model:  req.Model,
			Values: make([]float64, len(req.SMILES)),
		})
	}))
	defer srv.Close()

	metrics := NewInMemoryMetrics()
	client, err := NewHTTPServingClient(servingConfig(srv.URL), metrics, nil)
	require.NoError(t, err)

	_, err = client.Predict(context.Background(), &PredictRequest{
		Model:  "solubility_dnn",
		SMILES: []string{"CCO"},
	})
	require.NoError(t, err)

	preds := metrics.Predictions()
	require.Len(t, preds, 1)
	assert.Equal(t, "solubility_dnn", preds[0].Model)
	assert.Equal(t, 1, preds[0].BatchSize)
	assert.True(t, preds[0].Success)
}

func TestHTTPServingClient_Healthy(t *testing.T) {
	healthy := atomic.Bool{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == servingHealthPath && healthy.Load() {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, err := NewHTTPServingClient(servingConfig(srv.URL), nil, nil)
	require.NoError(t, err)

	assert.Error(t, client.Healthy(context.Background()))
	healthy.Store(true)
	assert.NoError(t, client.Healthy(context.Background()))
}

func TestNewHTTPServingClient_RequiresAddr(t *testing.T) {
	_, err := NewHTTPServingClient(config.IntelligenceConfig{}, nil, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeAIModelNotAvailable))
}

func TestHTTPDockingClient_Dock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, dockingDockPath, r.URL.Path)
		var req DockingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "adv_receptor_1", req.Configuration)

		scores := make([]float64, len(req.SMILES))
		for i := range scores {
			scores[i] = -8.5
		}
		json.NewEncoder(w).Encode(DockingResponse{Scores: scores}) //nolint:errcheck
	}))
	defer srv.Close()

	client, err := NewHTTPDockingClient(config.IntelligenceConfig{
		DockingBaseURL: srv.URL,
		DockingTimeout: 5 * time.Second,
	}, nil)
	require.NoError(t, err)
	defer client.Close()

	resp, err := client.Dock(context.Background(), &DockingRequest{
		SMILES:        []string{"CCO", "CCN"},
		Configuration: "adv_receptor_1",
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{-8.5, -8.5}, resp.Scores)
}

func TestHTTPDockingClient_ServiceFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "docking engine crashed", http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := NewHTTPDockingClient(config.IntelligenceConfig{DockingBaseURL: srv.URL}, nil)
	require.NoError(t, err)

	_, err = client.Dock(context.Background(), &DockingRequest{
		SMILES:        []string{"CCO"},
		Configuration: "adv_receptor_1",
	})
	assert.True(t, errors.IsCode(err, errors.ErrCodeDockingFailed))
}

func TestHTTPDockingClient_RejectsInvalidRequest(t *testing.T) {
	client, err := NewHTTPDockingClient(config.IntelligenceConfig{DockingBaseURL: "http://localhost:1"}, nil)
	require.NoError(t, err)

	_, err = client.Dock(context.Background(), &DockingRequest{SMILES: []string{"C"}})
	assert.True(t, errors.IsCode(err, errors.ErrCodeAIInputInvalid))
}

func TestMockClients_Defaults(t *testing.T) {
	serving := &MockServingClient{}
	resp, err := serving.Predict(context.Background(), &PredictRequest{
		Model:  "m",
		SMILES: []string{"C", "CC"},
	})
	require.NoError(t, err)
	assert.Len(t, resp.Values, 2)
	assert.NoError(t, serving.Healthy(context.Background()))

	docking := &MockDockingClient{}
	dresp, err := docking.Dock(context.Background(), &DockingRequest{
		SMILES:        []string{"C"},
		Configuration: "cfg",
	})
	require.NoError(t, err)
	assert.Len(t, dresp.Scores, 1)
}

func TestChunkStrings(t *testing.T) {
	tests := []struct {
		name  string
		items []string
		size  int
		want  [][]string
	}{
		{"Empty", nil, 4, nil},
		{"SingleChunk", []string{"a", "b"}, 4, [][]string{{"a", "b"}}},
		{"ZeroSize", []string{"a", "b"}, 0, [][]string{{"a", "b"}}},
		{"EvenSplit", []string{"a", "b", "c", "d"}, 2, [][]string{{"a", "b"}, {"c", "d"}}},
		{"Remainder", []string{"a", "b", "c"}, 2, [][]string{{"a", "b"}, {"c"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ChunkStrings(tt.items, tt.size))
		})
	}
}

//Personal.AI order the ending
