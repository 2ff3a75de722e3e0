package common

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/turtacn/MolScore/internal/config"
	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolScore/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Client interfaces
// ─────────────────────────────────────────────────────────────────────────────

// ServingClient talks to the property-prediction serving backend.
//
// Implementations must be safe for concurrent use: a single client is shared
// by every predictive-property component of a scoring run.
type ServingClient interface {
	// Predict returns one value per input molecule, in input order.
	// Batches larger than the backend's limit are split transparently.
	Predict(ctx context.Context, req *PredictRequest) (*PredictResponse, error)

	// Healthy reports whether the backend answers its health endpoint.
	Healthy(ctx context.Context) error

	// Close releases idle connections.
	Close() error
}

// DockingClient talks to the docking service.
type DockingClient interface {
	// Dock returns one binding score per input molecule, in input order.
	Dock(ctx context.Context, req *DockingRequest) (*DockingResponse, error)

	// Healthy reports whether the docking service answers its health endpoint.
	Healthy(ctx context.Context) error

	// Close releases idle connections.
	Close() error
}

// ─────────────────────────────────────────────────────────────────────────────
// HTTP serving client
// ─────────────────────────────────────────────────────────────────────────────

const (
	servingPredictPath = "/api/v1/predict"
	servingHealthPath  = "/healthz"
	dockingDockPath    = "/api/v1/dock"
	dockingHealthPath  = "/healthz"
)

type httpServingClient struct {
	baseURL      string
	maxBatchSize int
	httpClient   *http.Client
	metrics      Metrics
	logger       logging.Logger
}

// NewHTTPServingClient builds a ServingClient against the backend configured
// in cfg.ServingAddr. The per-request timeout comes from cfg.ModelTimeout and
// batches are split at cfg.MaxBatchSize molecules.
func NewHTTPServingClient(cfg config.IntelligenceConfig, metrics Metrics, logger logging.Logger) (ServingClient, error) {
	if strings.TrimSpace(cfg.ServingAddr) == "" {
		return nil, errors.New(errors.ErrCodeAIModelNotAvailable, "serving address is empty")
	}
	if metrics == nil {
		metrics = NewNoopMetrics()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	timeout := cfg.ModelTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &httpServingClient{
		baseURL:      strings.TrimRight(cfg.ServingAddr, "/"),
		maxBatchSize: cfg.MaxBatchSize,
		httpClient:   &http.Client{Timeout: timeout},
		metrics:      metrics,
		logger:       logger.Named("serving"),
	}, nil
}

func (c *httpServingClient) Predict(ctx context.Context, req *PredictRequest) (*PredictResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	chunks := ChunkStrings(req.SMILES, c.maxBatchSize)
	out := &PredictResponse{
		Model:  req.Model,
		Values: make([]float64, 0, len(req.SMILES)),
	}
	for _, chunk := range chunks {
		sub := &PredictRequest{Model: req.Model, Version: req.Version, SMILES: chunk}
		resp, err := c.predictOnce(ctx, sub)
		if err != nil {
			return nil, err
		}
		out.Version = resp.Version
		out.Values = append(out.Values, resp.Values...)
	}
	return out, nil
}

func (c *httpServingClient) predictOnce(ctx context.Context, req *PredictRequest) (*PredictResponse, error) {
	start := time.Now()
	resp := new(PredictResponse)
	err := postJSON(ctx, c.httpClient, c.baseURL+servingPredictPath, req, resp)
	c.metrics.RecordPrediction(ctx, &PredictionMetricParams{
		Model:      req.Model,
		BatchSize:  len(req.SMILES),
		DurationMs: float64(time.Since(start).Microseconds()) / 1000.0,
		Success:    err == nil,
	})
	if err != nil {
		c.logger.Warn("prediction request failed",
			logging.String("model", req.Model),
			logging.Int("batch_size", len(req.SMILES)),
			logging.Err(err))
		return nil, errors.Wrap(err, errors.ErrCodeAIInferenceFailed,
			fmt.Sprintf("prediction failed for model %s", req.Model))
	}
	if err := resp.ValidateAgainst(req); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *httpServingClient) Healthy(ctx context.Context) error {
	return checkHealth(ctx, c.httpClient, c.baseURL+servingHealthPath, "serving backend")
}

func (c *httpServingClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// HTTP docking client
// ─────────────────────────────────────────────────────────────────────────────

type httpDockingClient struct {
	baseURL    string
	httpClient *http.Client
	logger     logging.Logger
}

// NewHTTPDockingClient builds a DockingClient against cfg.DockingBaseURL with
// the per-request timeout from cfg.DockingTimeout. Retries are not handled
// here; the docking component owns its retry policy.
func NewHTTPDockingClient(cfg config.IntelligenceConfig, logger logging.Logger) (DockingClient, error) {
	if strings.TrimSpace(cfg.DockingBaseURL) == "" {
		return nil, errors.New(errors.ErrCodeAIModelNotAvailable, "docking base URL is empty")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	timeout := cfg.DockingTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &httpDockingClient{
		baseURL:    strings.TrimRight(cfg.DockingBaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("docking"),
	}, nil
}

func (c *httpDockingClient) Dock(ctx context.Context, req *DockingRequest) (*DockingResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	resp := new(DockingResponse)
	if err := postJSON(ctx, c.httpClient, c.baseURL+dockingDockPath, req, resp); err != nil {
		c.logger.Warn("docking request failed",
			logging.String("configuration", req.Configuration),
			logging.Int("batch_size", len(req.SMILES)),
			logging.Err(err))
		return nil, errors.Wrap(err, errors.ErrCodeDockingFailed,
			fmt.Sprintf("docking failed for configuration %s", req.Configuration))
	}
	if err := resp.ValidateAgainst(req); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *httpDockingClient) Healthy(ctx context.Context) error {
	return checkHealth(ctx, c.httpClient, c.baseURL+dockingHealthPath, "docking service")
}

func (c *httpDockingClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// HTTP helpers
// ─────────────────────────────────────────────────────────────────────────────

func postJSON(ctx context.Context, client *http.Client, url string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode request body")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "request cancelled")
		}
		return errors.Wrap(err, errors.ErrCodeExternalService, "request failed")
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 32<<20))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to read response body")
	}
	if httpResp.StatusCode != http.StatusOK {
		return errors.Newf(errors.ErrCodeExternalService,
			"unexpected status %d: %s", httpResp.StatusCode, truncate(string(raw), 200))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode response body")
	}
	return nil
}

func checkHealth(ctx context.Context, client *http.Client, url, name string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to build health request")
	}
	httpResp, err := client.Do(httpReq)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, name+" is unreachable")
	}
	defer httpResp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(httpResp.Body, 4096)) //nolint:errcheck
	if httpResp.StatusCode != http.StatusOK {
		return errors.Newf(errors.ErrCodeServiceUnavailable,
			"%s health check returned status %d", name, httpResp.StatusCode)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

// ─────────────────────────────────────────────────────────────────────────────
// Mocks
// ─────────────────────────────────────────────────────────────────────────────

// MockServingClient is a test double for ServingClient. Any nil function
// falls back to a benign default.
type MockServingClient struct {
	PredictFunc func(ctx context.Context, req *PredictRequest) (*PredictResponse, error)
	HealthyFunc func(ctx context.Context) error
}

func (m *MockServingClient) Predict(ctx context.Context, req *PredictRequest) (*PredictResponse, error) {
	if m.PredictFunc != nil {
		return m.PredictFunc(ctx, req)
	}
	return &PredictResponse{Model: req.Model, Values: make([]float64, len(req.SMILES))}, nil
}

func (m *MockServingClient) Healthy(ctx context.Context) error {
	if m.HealthyFunc != nil {
		return m.HealthyFunc(ctx)
	}
	return nil
}

func (m *MockServingClient) Close() error { return nil }

// MockDockingClient is a test double for DockingClient.
type MockDockingClient struct {
	DockFunc    func(ctx context.Context, req *DockingRequest) (*DockingResponse, error)
	HealthyFunc func(ctx context.Context) error
}

func (m *MockDockingClient) Dock(ctx context.Context, req *DockingRequest) (*DockingResponse, error) {
	if m.DockFunc != nil {
		return m.DockFunc(ctx, req)
	}
	return &DockingResponse{Scores: make([]float64, len(req.SMILES))}, nil
}

func (m *MockDockingClient) Healthy(ctx context.Context) error {
	if m.HealthyFunc != nil {
		return m.HealthyFunc(ctx)
	}
	return nil
}

func (m *MockDockingClient) Close() error { return nil }

//Personal.AI order the ending
