package scoring

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MolScore/internal/config"
	"github.com/turtacn/MolScore/internal/domain/molecule"
	dscoring "github.com/turtacn/MolScore/internal/domain/scoring"
	redisdb "github.com/turtacn/MolScore/internal/infrastructure/database/redis"
	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/MolScore/pkg/errors"
	stypes "github.com/turtacn/MolScore/pkg/types/scoring"
)

// fakeRegistry serves deterministic evaluators and counts invocations.
type fakeRegistry struct {
	evaluations atomic.Int64
}

func (r *fakeRegistry) Create(cfg dscoring.ComponentConfig) (dscoring.Evaluator, error) {
	switch cfg.ComponentType {
	case "constant_half":
		return dscoring.EvaluatorFunc(func(ctx context.Context, mol *molecule.Molecule) (float64, error) {
			r.evaluations.Add(1)
			return 0.5, nil
		}), nil
	case "smiles_length":
		return dscoring.EvaluatorFunc(func(ctx context.Context, mol *molecule.Molecule) (float64, error) {
			r.evaluations.Add(1)
			return float64(len(mol.SMILES)) / 100, nil
		}), nil
	case "always_fail":
		return dscoring.EvaluatorFunc(func(ctx context.Context, mol *molecule.Molecule) (float64, error) {
			r.evaluations.Add(1)
			return 0, pkgerrors.New(pkgerrors.ErrCodeInternal, "evaluator broke")
		}), nil
	}
	return nil, pkgerrors.New(pkgerrors.ErrCodeComponentTypeUnknown, "unknown component type")
}

// memoryCache is a map-backed redisdb.Cache for tests.
type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}}
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.data[key]
	if !ok {
		return redisdb.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *memoryCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok, nil
}

func (c *memoryCache) MGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := map[string][]byte{}
	for _, k := range keys {
		if v, ok := c.data[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (c *memoryCache) MSet(ctx context.Context, items map[string]interface{}, ttl time.Duration) error {
	for k, v := range items {
		if err := c.Set(ctx, k, v, ttl); err != nil {
			return err
		}
	}
	return nil
}

func (c *memoryCache) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) error {
	if err := c.Get(ctx, key, dest); err == nil {
		return nil
	}
	v, err := loader(ctx)
	if err != nil {
		return err
	}
	if err := c.Set(ctx, key, v, ttl); err != nil {
		return err
	}
	return c.Get(ctx, key, dest)
}

func (c *memoryCache) DeleteByPrefix(ctx context.Context, prefix string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
			n++
		}
	}
	return n, nil
}

func (c *memoryCache) Incr(ctx context.Context, key string) (int64, error) { return 0, nil }

func (c *memoryCache) Expire(ctx context.Context, key string, ttl time.Duration) error { return nil }

func (c *memoryCache) TTL(ctx context.Context, key string) (time.Duration, error) { return 0, nil }

func (c *memoryCache) Ping(ctx context.Context) error { return nil }

func sumConfig(componentType string, parallel bool) dscoring.FunctionConfig {
	return dscoring.FunctionConfig{
		Name:     stypes.FunctionCustomSum,
		Parallel: parallel,
		Components: []dscoring.ComponentConfig{
			{ComponentType: componentType, Weight: 1},
		},
	}
}

func newTestService(t *testing.T, cfg dscoring.FunctionConfig, opts ...Option) (*Service, *fakeRegistry) {
	t.Helper()
	registry := &fakeRegistry{}
	molecules := molecule.NewService(nil, logging.NewNopLogger())
	svc, err := NewService(cfg, registry, molecules, config.WorkerConfig{Concurrency: 4}, opts...)
	require.NoError(t, err)
	return svc, registry
}

func TestScoreBatch_PreservesInputOrder(t *testing.T) {
	svc, _ := newTestService(t, sumConfig("constant_half", false))

	resp, err := svc.ScoreBatch(context.Background(), []string{"CCO", "not a smiles!!", "c1ccccc1"})
	require.NoError(t, err)
	require.Len(t, resp.Scores, 3)

	assert.Equal(t, "CCO", resp.Scores[0].SMILES)
	assert.InDelta(t, 0.5, resp.Scores[0].Total, 1e-12)
	require.Len(t, resp.Scores[0].Components, 1)

	// Unparseable entries keep their slot with a zero total and no breakdown.
	assert.Equal(t, "not a smiles!!", resp.Scores[1].SMILES)
	assert.Zero(t, resp.Scores[1].Total)
	assert.Empty(t, resp.Scores[1].Components)

	assert.Equal(t, "c1ccccc1", resp.Scores[2].SMILES)
	assert.InDelta(t, 0.5, resp.Scores[2].Total, 1e-12)
}

func TestScoreBatch_EvaluatorFailureZeroesMolecule(t *testing.T) {
	svc, _ := newTestService(t, sumConfig("always_fail", false))

	resp, err := svc.ScoreBatch(context.Background(), []string{"CCO"})
	require.NoError(t, err)
	require.Len(t, resp.Scores, 1)
	assert.Zero(t, resp.Scores[0].Total)
	require.Len(t, resp.Scores[0].Components, 1)
	assert.True(t, resp.Scores[0].Components[0].Failed)
}

func TestScoreBatch_EmptyInputRejected(t *testing.T) {
	svc, _ := newTestService(t, sumConfig("constant_half", false))

	_, err := svc.ScoreBatch(context.Background(), nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeMoleculeEmptyBatch))
}

func TestScoreBatch_CacheSkipsReEvaluation(t *testing.T) {
	cache := newMemoryCache()
	svc, registry := newTestService(t, sumConfig("smiles_length", false), WithCache(cache))

	ctx := context.Background()
	first, err := svc.ScoreBatch(ctx, []string{"CCO", "c1ccccc1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), registry.evaluations.Load())

	second, err := svc.ScoreBatch(ctx, []string{"CCO", "c1ccccc1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), registry.evaluations.Load(), "cached molecules must not be re-evaluated")
	assert.Equal(t, first.Scores, second.Scores)

	// A new molecule in the batch is the only one evaluated.
	_, err = svc.ScoreBatch(ctx, []string{"CCO", "CCN"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), registry.evaluations.Load())
}

func TestScoreBatch_CacheIsNamespacedPerConfig(t *testing.T) {
	cache := newMemoryCache()

	half, halfReg := newTestService(t, sumConfig("constant_half", false), WithCache(cache))
	length, lengthReg := newTestService(t, sumConfig("smiles_length", false), WithCache(cache))

	ctx := context.Background()
	respHalf, err := half.ScoreBatch(ctx, []string{"CCO"})
	require.NoError(t, err)

	respLength, err := length.ScoreBatch(ctx, []string{"CCO"})
	require.NoError(t, err)

	// The second service must evaluate rather than reuse the first's entry.
	assert.Equal(t, int64(1), halfReg.evaluations.Load())
	assert.Equal(t, int64(1), lengthReg.evaluations.Load())
	assert.NotEqual(t, respHalf.Scores[0].Total, respLength.Scores[0].Total)
}

func TestScoreBatch_ParallelMatchesSequential(t *testing.T) {
	cfg := dscoring.FunctionConfig{
		Name: stypes.FunctionCustomProduct,
		Components: []dscoring.ComponentConfig{
			{ComponentType: "constant_half", Weight: 2},
			{ComponentType: "smiles_length", Weight: 1},
		},
	}
	sequential, _ := newTestService(t, cfg)

	cfg.Parallel = true
	parallel, _ := newTestService(t, cfg)

	ctx := context.Background()
	input := []string{"CCO", "c1ccccc1", "CC(=O)Oc1ccccc1C(=O)O"}

	seqResp, err := sequential.ScoreBatch(ctx, input)
	require.NoError(t, err)
	parResp, err := parallel.ScoreBatch(ctx, input)
	require.NoError(t, err)

	assert.Equal(t, seqResp.Scores, parResp.Scores)
}

func TestScore_Single(t *testing.T) {
	svc, _ := newTestService(t, sumConfig("constant_half", false))

	dto, err := svc.Score(context.Background(), "CCO")
	require.NoError(t, err)
	assert.Equal(t, "CCO", dto.SMILES)
	assert.InDelta(t, 0.5, dto.Total, 1e-12)
}

func TestNewService_InvalidConfigFailsFast(t *testing.T) {
	registry := &fakeRegistry{}
	molecules := molecule.NewService(nil, logging.NewNopLogger())

	_, err := NewService(dscoring.FunctionConfig{Name: "mystery"}, registry, molecules, config.WorkerConfig{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeScoringFunctionUnknown))

	cfg := sumConfig("no_such_component", false)
	_, err = NewService(cfg, registry, molecules, config.WorkerConfig{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeComponentTypeUnknown))

	_, err = NewService(sumConfig("smiles_length", false), registry, nil, config.WorkerConfig{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeValidation))
}

func TestComponentNames_ConfigurationOrder(t *testing.T) {
	cfg := dscoring.FunctionConfig{
		Name: stypes.FunctionCustomSum,
		Components: []dscoring.ComponentConfig{
			{ComponentType: "smiles_length", Name: "size", Weight: 1},
			{ComponentType: "constant_half", Name: "baseline", Weight: 1},
		},
	}
	svc, _ := newTestService(t, cfg)

	assert.Equal(t, []string{"size", "baseline"}, svc.ComponentNames())
	assert.Equal(t, stypes.FunctionCustomSum, svc.FunctionName())
}

//Personal.AI order the ending
