package run

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/turtacn/MolScore/internal/application/scoring"
	"github.com/turtacn/MolScore/internal/config"
	"github.com/turtacn/MolScore/internal/domain/molecule"
	dscoring "github.com/turtacn/MolScore/internal/domain/scoring"
	redisdb "github.com/turtacn/MolScore/internal/infrastructure/database/redis"
	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
	prom "github.com/turtacn/MolScore/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/MolScore/pkg/errors"
	"github.com/turtacn/MolScore/pkg/types/common"
	stypes "github.com/turtacn/MolScore/pkg/types/scoring"
)

// finalizeTimeout bounds run teardown (artifact upload, status persistence,
// lock release) so an aborted context cannot strand a run in "running".
const finalizeTimeout = 30 * time.Second

// activeRunLock is the shared lock scope enforcing one active run at a time.
const activeRunLock = "active"

// runPlan is the executable shape extracted from a validated run document.
type runPlan struct {
	steps     int
	batchSize int
	logEvery  int
}

func planFor(cfg *config.RunConfig) runPlan {
	plan := runPlan{
		steps:     1,
		batchSize: config.DefaultRLBatchSize,
		logEvery:  cfg.Logging.LoggingFrequency,
	}
	if rl := cfg.Parameters.ReinforcementLearning; rl != nil {
		plan.batchSize = rl.BatchSize
		if cfg.RunType == config.RunTypeReinforcementLearning {
			plan.steps = rl.NSteps
		}
	}
	return plan
}

// ─────────────────────────────────────────────────────────────────────────────
// LocalRunner
// ─────────────────────────────────────────────────────────────────────────────

// LocalRunner executes runs in-process: each submitted document gets its own
// scoring service, diversity filter, and inception memory, and the loop runs
// on a dedicated goroutine until the step budget is spent.
type LocalRunner struct {
	registry  dscoring.EvaluatorRegistry
	molecules *molecule.Service
	worker    config.WorkerConfig
	sampler   Sampler

	repo        Repository
	artifacts   ArtifactStore
	publisher   EventPublisher
	locks       redisdb.LockFactory
	extraSinks  []StepSink
	scoringOpts []scoring.Option
	metrics     *prom.AppMetrics
	logger      logging.Logger
}

// LocalOption customizes a LocalRunner.
type LocalOption func(*LocalRunner)

// WithRepository persists runs and step records.
func WithRepository(repo Repository) LocalOption {
	return func(r *LocalRunner) { r.repo = repo }
}

// WithArtifactStore uploads scores.csv when the run finishes.
func WithArtifactStore(store ArtifactStore) LocalOption {
	return func(r *LocalRunner) { r.artifacts = store }
}

// WithEventPublisher announces completed steps downstream.
func WithEventPublisher(pub EventPublisher) LocalOption {
	return func(r *LocalRunner) { r.publisher = pub }
}

// WithLockFactory enforces single-active-run semantics across processes.
func WithLockFactory(locks redisdb.LockFactory) LocalOption {
	return func(r *LocalRunner) { r.locks = locks }
}

// WithSinks attaches additional step sinks; they are closed with the run.
func WithSinks(sinks ...StepSink) LocalOption {
	return func(r *LocalRunner) { r.extraSinks = append(r.extraSinks, sinks...) }
}

// WithScoringOptions forwards options to the per-run scoring service.
func WithScoringOptions(opts ...scoring.Option) LocalOption {
	return func(r *LocalRunner) { r.scoringOpts = append(r.scoringOpts, opts...) }
}

// WithMetrics enables run instrumentation.
func WithMetrics(m *prom.AppMetrics) LocalOption {
	return func(r *LocalRunner) { r.metrics = m }
}

// WithLogger sets the runner logger.
func WithLogger(log logging.Logger) LocalOption {
	return func(r *LocalRunner) { r.logger = log }
}

// NewLocalRunner wires a runner around the shared molecule service and the
// sampler supplying each step's batch.
func NewLocalRunner(registry dscoring.EvaluatorRegistry, molecules *molecule.Service, worker config.WorkerConfig, sampler Sampler, opts ...LocalOption) (*LocalRunner, error) {
	if registry == nil {
		return nil, errors.New(errors.ErrCodeValidation, "evaluator registry is required")
	}
	if molecules == nil {
		return nil, errors.New(errors.ErrCodeValidation, "molecule service is required")
	}
	if sampler == nil {
		return nil, errors.New(errors.ErrCodeValidation, "sampler is required")
	}
	r := &LocalRunner{
		registry:  registry,
		molecules: molecules,
		worker:    worker,
		sampler:   sampler,
		logger:    logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Submit implements Runner.
func (r *LocalRunner) Submit(ctx context.Context, cfg config.RunConfig) (<-chan StepRecord, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	plan := planFor(&cfg)

	svc, err := scoring.NewService(cfg.Parameters.ScoringFunction, r.registry, r.molecules, r.worker, r.scoringOpts...)
	if err != nil {
		return nil, err
	}

	var lock redisdb.RunLock
	if r.locks != nil {
		lock = r.locks.NewRunLock(activeRunLock)
		acquired, lockErr := lock.TryLock(ctx)
		if lockErr != nil {
			r.shutdownScoring(svc)
			return nil, lockErr
		}
		if !acquired {
			r.shutdownScoring(svc)
			return nil, redisdb.ErrLockNotAcquired
		}
	}

	now := time.Now().UTC()
	run := &Run{
		ID:        common.NewID(),
		Name:      cfg.Logging.JobName,
		RunType:   cfg.RunType,
		Status:    stypes.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if r.repo != nil {
		if err := r.repo.CreateRun(ctx, run); err != nil {
			r.releaseLock(lock)
			r.shutdownScoring(svc)
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create run")
		}
	}

	sinks := append([]StepSink{}, r.extraSinks...)
	var artifactBuf *bytes.Buffer
	if r.artifacts != nil {
		artifactBuf = &bytes.Buffer{}
		sinks = append(sinks, NewCSVSink(artifactBuf, svc.ComponentNames()))
	}

	if r.metrics != nil {
		r.metrics.ActiveRuns.WithLabelValues().Inc()
	}
	r.logger.Info("run started",
		logging.String("run_id", string(run.ID)),
		logging.String("job_name", run.Name),
		logging.String("run_type", cfg.RunType),
		logging.Int("n_steps", plan.steps),
		logging.Int("batch_size", plan.batchSize),
	)

	ch := make(chan StepRecord, 16)
	go r.execute(ctx, cfg, plan, svc, run, lock, sinks, artifactBuf, ch)
	return ch, nil
}

func (r *LocalRunner) execute(ctx context.Context, cfg config.RunConfig, plan runPlan, svc *scoring.Service, run *Run, lock redisdb.RunLock, sinks []StepSink, artifactBuf *bytes.Buffer, ch chan<- StepRecord) {
	defer close(ch)

	filter := newDiversityFilter(cfg.Parameters.DiversityFilter)
	memory := newInceptionMemory(cfg.Parameters.Inception)

	var runErr error
	for step := 0; step < plan.steps; step++ {
		if ctx.Err() != nil {
			runErr = ctx.Err()
			break
		}
		record, err := r.runStep(ctx, plan, svc, run, step, filter, memory)
		if err != nil {
			runErr = err
			break
		}
		r.deliver(ctx, sinks, record)
		select {
		case ch <- record:
		case <-ctx.Done():
			runErr = ctx.Err()
		}
		if runErr != nil {
			break
		}
	}

	r.finalize(ctx, run, lock, svc, sinks, artifactBuf, runErr)
}

func (r *LocalRunner) runStep(ctx context.Context, plan runPlan, svc *scoring.Service, run *Run, step int, filter *diversityFilter, memory *inceptionMemory) (StepRecord, error) {
	start := time.Now()

	smiles, err := r.sampler.Sample(ctx, plan.batchSize)
	if err != nil {
		return StepRecord{}, errors.Wrap(err, errors.ErrCodeExternalService, "sampler failed")
	}
	resp, err := svc.ScoreBatch(ctx, smiles)
	if err != nil {
		return StepRecord{}, err
	}

	scores := resp.Scores
	filtered := filter.Apply(scores)
	memory.Observe(scores)

	mean, best := summarize(scores)
	if best > run.BestScore {
		run.BestScore = best
	}
	run.Steps = step + 1
	run.UpdatedAt = time.Now().UTC()

	record := StepRecord{
		RunID:     run.ID,
		Step:      step,
		Scores:    scores,
		MeanScore: mean,
		BestScore: best,
		Filtered:  filtered,
		Duration:  time.Since(start),
	}
	if r.metrics != nil {
		prom.RecordRunStep(r.metrics, record.Duration, filtered)
	}
	if plan.logEvery > 0 && step%plan.logEvery == 0 {
		r.logger.Info("run progress",
			logging.String("run_id", string(run.ID)),
			logging.Int("step", step),
			logging.Float64("mean_score", mean),
			logging.Float64("best_score", run.BestScore),
			logging.Int("filtered", filtered),
		)
	}
	return record, nil
}

// deliver fans the record out to sinks, the repository, and the publisher.
// Delivery failures are logged and do not stop the run.
func (r *LocalRunner) deliver(ctx context.Context, sinks []StepSink, record StepRecord) {
	for _, sink := range sinks {
		if err := sink.WriteStep(ctx, record); err != nil {
			r.logger.Warn("step sink write failed",
				logging.String("run_id", string(record.RunID)),
				logging.Int("step", record.Step),
				logging.Err(err),
			)
		}
	}
	if r.repo != nil {
		if err := r.repo.SaveStep(ctx, record); err != nil {
			r.logger.Warn("step persistence failed",
				logging.String("run_id", string(record.RunID)),
				logging.Int("step", record.Step),
				logging.Err(err),
			)
		}
	}
	if r.publisher != nil {
		if err := r.publisher.PublishStepCompleted(ctx, record.ToDTO()); err != nil {
			r.logger.Warn("step event publish failed",
				logging.String("run_id", string(record.RunID)),
				logging.Int("step", record.Step),
				logging.Err(err),
			)
		}
	}
}

func (r *LocalRunner) finalize(ctx context.Context, run *Run, lock redisdb.RunLock, svc *scoring.Service, sinks []StepSink, artifactBuf *bytes.Buffer, runErr error) {
	finCtx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
	defer cancel()

	for _, sink := range sinks {
		if err := sink.Close(); err != nil {
			r.logger.Warn("step sink close failed", logging.Err(err))
		}
	}

	switch {
	case runErr == nil:
		run.Status = stypes.RunStatusCompleted
	case ctx.Err() != nil || stderrors.Is(runErr, context.Canceled) || stderrors.Is(runErr, context.DeadlineExceeded):
		run.Status = stypes.RunStatusAborted
		r.logger.Warn("run aborted",
			logging.String("run_id", string(run.ID)),
			logging.Int("completed_steps", run.Steps),
			logging.Err(errors.Wrap(runErr, errors.ErrCodeRunAborted, "run aborted before completing its step budget")),
		)
	default:
		run.Status = stypes.RunStatusFailed
		r.logger.Error("run failed",
			logging.String("run_id", string(run.ID)),
			logging.Int("completed_steps", run.Steps),
			logging.Err(runErr),
		)
	}

	if r.artifacts != nil && artifactBuf != nil && artifactBuf.Len() > 0 {
		objectName := fmt.Sprintf("runs/%s/scores.csv", run.ID)
		start := time.Now()
		uri, err := r.artifacts.Upload(finCtx, objectName, "text/csv", bytes.NewReader(artifactBuf.Bytes()), int64(artifactBuf.Len()))
		if r.metrics != nil {
			prom.RecordArtifactUpload(r.metrics, time.Since(start), err)
		}
		if err != nil {
			r.logger.Error("artifact upload failed",
				logging.String("run_id", string(run.ID)),
				logging.String("object", objectName),
				logging.Err(errors.Wrap(err, errors.ErrCodeArtifactWriteFailed, "failed to upload scores.csv")),
			)
		} else {
			run.ArtifactURI = uri
		}
	}

	run.UpdatedAt = time.Now().UTC()
	if r.repo != nil {
		if err := r.repo.UpdateRun(finCtx, run); err != nil {
			r.logger.Error("run status persistence failed",
				logging.String("run_id", string(run.ID)),
				logging.Err(err),
			)
		}
	}

	r.releaseLock(lock)
	r.shutdownScoring(svc)
	if r.metrics != nil {
		prom.RecordRunFinished(r.metrics, string(run.Status))
	}
	r.logger.Info("run finished",
		logging.String("run_id", string(run.ID)),
		logging.String("status", string(run.Status)),
		logging.Int("steps", run.Steps),
		logging.Float64("best_score", run.BestScore),
		logging.String("artifact_uri", run.ArtifactURI),
	)
}

func (r *LocalRunner) releaseLock(lock redisdb.RunLock) {
	if lock == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := lock.Unlock(ctx); err != nil {
		r.logger.Warn("run lock release failed", logging.Err(err))
	}
}

func (r *LocalRunner) shutdownScoring(svc *scoring.Service) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := svc.Shutdown(ctx); err != nil {
		r.logger.Warn("scoring service shutdown failed", logging.Err(err))
	}
}

func summarize(scores []stypes.MoleculeScoreDTO) (mean, best float64) {
	if len(scores) == 0 {
		return 0, 0
	}
	var sum float64
	for _, s := range scores {
		sum += s.Total
		if s.Total > best {
			best = s.Total
		}
	}
	return sum / float64(len(scores)), best
}

//Personal.AI order the ending
