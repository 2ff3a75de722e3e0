// Package scoring provides the application-level batch scoring service.  It
// binds a scoring function to the molecule parser, fans evaluation out over
// the shared batch engine, and fronts the whole thing with the Redis score
// cache so repeated molecules are never re-evaluated.
package scoring

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/turtacn/MolScore/internal/config"
	"github.com/turtacn/MolScore/internal/domain/molecule"
	dscoring "github.com/turtacn/MolScore/internal/domain/scoring"
	redisdb "github.com/turtacn/MolScore/internal/infrastructure/database/redis"
	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
	prom "github.com/turtacn/MolScore/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/MolScore/internal/intelligence/common"
	"github.com/turtacn/MolScore/pkg/errors"
	stypes "github.com/turtacn/MolScore/pkg/types/scoring"
)

const (
	defaultScoreCacheTTL = 24 * time.Hour
	scoreCacheName       = "score"
)

// Service scores batches of SMILES strings against one bound scoring
// function.  It is safe for concurrent use.
type Service struct {
	molecules *molecule.Service
	function  *dscoring.Function
	engine    *common.BatchEngine[*molecule.Molecule, dscoring.MoleculeScore]
	cache     redisdb.Cache
	cacheTTL  time.Duration
	metrics   *prom.AppMetrics
	logger    logging.Logger

	// configDigest namespaces cache keys so two functions with different
	// component lists never share entries.
	configDigest string
}

// Option customises the service.
type Option func(*Service)

// WithCache enables the Redis-backed score cache.
func WithCache(cache redisdb.Cache) Option {
	return func(s *Service) { s.cache = cache }
}

// WithCacheTTL overrides the score cache entry lifetime.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) { s.cacheTTL = ttl }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *prom.AppMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the service logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService binds the scoring function and builds the evaluation engine.
// All configuration errors surface here: a constructed Service cannot fail
// on bad config at scoring time.
func NewService(cfg dscoring.FunctionConfig, registry dscoring.EvaluatorRegistry, molecules *molecule.Service, worker config.WorkerConfig, opts ...Option) (*Service, error) {
	if molecules == nil {
		return nil, errors.New(errors.ErrCodeValidation, "molecule service is required")
	}

	s := &Service{
		molecules: molecules,
		cacheTTL:  defaultScoreCacheTTL,
		logger:    logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	fn, err := dscoring.NewFunction(cfg, registry, s.logger)
	if err != nil {
		return nil, err
	}
	s.function = fn
	s.configDigest = digestConfig(cfg)

	engineOpts := []common.EngineOption{
		common.WithEngineName("scoring"),
		common.WithEngineLogger(s.logger),
	}
	if worker.Concurrency > 0 {
		engineOpts = append(engineOpts, common.WithMaxConcurrency(worker.Concurrency))
	}
	if worker.ItemTimeout > 0 {
		engineOpts = append(engineOpts, common.WithItemTimeout(worker.ItemTimeout))
	}
	retry := common.DefaultRetryPolicy()
	retry.MaxRetries = worker.MaxRetries
	if worker.RetryBackoffMS > 0 {
		retry.InitialBackoff = worker.RetryBackoffMS
	}
	engineOpts = append(engineOpts, common.WithRetryPolicy(retry))

	s.engine = common.NewBatchEngine[*molecule.Molecule, dscoring.MoleculeScore](engineOpts...)

	return s, nil
}

// digestConfig hashes the function configuration into a short cache
// namespace token.
func digestConfig(cfg dscoring.FunctionConfig) string {
	data, err := json.Marshal(cfg)
	if err != nil {
		return "unhashed"
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:12]
}

// FunctionName returns the bound aggregation strategy.
func (s *Service) FunctionName() stypes.FunctionName { return s.function.Name() }

// ComponentNames returns the component display names in configuration order.
func (s *Service) ComponentNames() []string { return s.function.ComponentNames() }

// Score evaluates a single SMILES string.
func (s *Service) Score(ctx context.Context, smiles string) (stypes.MoleculeScoreDTO, error) {
	resp, err := s.ScoreBatch(ctx, []string{smiles})
	if err != nil {
		return stypes.MoleculeScoreDTO{}, err
	}
	return resp.Scores[0], nil
}

// ScoreBatch scores a batch of SMILES strings.  Results come back in input
// order; entries that fail to parse receive a zero total with an empty
// breakdown rather than aborting the batch.
func (s *Service) ScoreBatch(ctx context.Context, smilesList []string) (*stypes.ScoreResponse, error) {
	started := time.Now()

	parsed, err := s.molecules.ParseBatch(ctx, smilesList)
	if err != nil {
		return nil, err
	}

	results := make([]dscoring.MoleculeScore, len(parsed))
	var pendingIdx []int
	parseFailed := 0

	for i, entry := range parsed {
		if entry.Err != nil || entry.Molecule == nil {
			results[i] = dscoring.MoleculeScore{SMILES: entry.SMILES}
			parseFailed++
			continue
		}
		pendingIdx = append(pendingIdx, i)
	}

	pendingIdx = s.fillFromCache(ctx, parsed, results, pendingIdx)

	evalFailed, err := s.evaluate(ctx, parsed, results, pendingIdx)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		failed := parseFailed + evalFailed
		prom.RecordScoringBatch(s.metrics, string(s.function.Name()), len(parsed)-failed, failed, time.Since(started))
	}

	resp := &stypes.ScoreResponse{
		FunctionName: s.function.Name(),
		Scores:       make([]stypes.MoleculeScoreDTO, len(results)),
	}
	for i, r := range results {
		resp.Scores[i] = r.ToDTO()
	}
	return resp, nil
}

// fillFromCache resolves pending entries against the score cache and returns
// the indices still needing evaluation.  Cache trouble is logged and treated
// as a full miss.
func (s *Service) fillFromCache(ctx context.Context, parsed []molecule.ParseResult, results []dscoring.MoleculeScore, pendingIdx []int) []int {
	if s.cache == nil || len(pendingIdx) == 0 {
		return pendingIdx
	}

	keys := make([]string, len(pendingIdx))
	for j, i := range pendingIdx {
		keys[j] = s.cacheKey(parsed[i].Molecule.CanonicalSMILES)
	}

	hits, err := s.cache.MGet(ctx, keys)
	if err != nil {
		s.logger.Warn("score cache lookup failed", logging.Err(err))
		return pendingIdx
	}

	var missed []int
	for j, i := range pendingIdx {
		data, ok := hits[keys[j]]
		if ok {
			var score dscoring.MoleculeScore
			if err := json.Unmarshal(data, &score); err == nil {
				// The cached entry may have been stored under a different
				// input spelling; echo the caller's SMILES back.
				score.SMILES = parsed[i].SMILES
				results[i] = score
				if s.metrics != nil {
					prom.RecordCacheAccess(s.metrics, scoreCacheName, true)
				}
				continue
			}
			s.logger.Warn("dropping undecodable score cache entry", logging.String("key", keys[j]))
		}
		if s.metrics != nil {
			prom.RecordCacheAccess(s.metrics, scoreCacheName, false)
		}
		missed = append(missed, i)
	}
	return missed
}

// evaluate scores the remaining entries through the batch engine and
// populates the cache with fresh results.  The returned count covers items
// that timed out or were cancelled at the engine level.
func (s *Service) evaluate(ctx context.Context, parsed []molecule.ParseResult, results []dscoring.MoleculeScore, pendingIdx []int) (int, error) {
	if len(pendingIdx) == 0 {
		return 0, nil
	}

	items := make([]*molecule.Molecule, len(pendingIdx))
	for j, i := range pendingIdx {
		items[j] = parsed[i].Molecule
	}

	batch, err := s.engine.Process(ctx, items, func(ctx context.Context, mol *molecule.Molecule) (dscoring.MoleculeScore, error) {
		return s.function.Score(ctx, mol)
	})
	if err != nil {
		return 0, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return 0, errors.Wrap(ctxErr, errors.ErrCodeTimeout, "batch scoring cancelled")
	}

	failed := 0
	fresh := make(map[string]interface{}, len(pendingIdx))
	for j, item := range batch.Results {
		i := pendingIdx[j]
		if item.Err != nil {
			s.logger.Warn("molecule scoring failed",
				logging.String("smiles", parsed[i].SMILES),
				logging.String("status", string(item.Status)),
				logging.Err(item.Err))
			results[i] = dscoring.MoleculeScore{SMILES: parsed[i].SMILES}
			failed++
			continue
		}
		results[i] = item.Result
		fresh[s.cacheKey(parsed[i].Molecule.CanonicalSMILES)] = item.Result
	}

	if s.cache != nil && len(fresh) > 0 {
		if err := s.cache.MSet(ctx, fresh, s.cacheTTL); err != nil {
			s.logger.Warn("score cache populate failed", logging.Err(err))
		}
	}

	return failed, nil
}

func (s *Service) cacheKey(canonicalSMILES string) string {
	return scoreCacheName + ":" + s.configDigest + ":" + canonicalSMILES
}

// Shutdown drains in-flight evaluations.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.engine.Shutdown(ctx)
}

//Personal.AI order the ending
