package common

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolScore/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sentinel errors
// ─────────────────────────────────────────────────────────────────────────────

var (
	// ErrEngineShutdown is returned when Process is called after Shutdown.
	ErrEngineShutdown = errors.New(errors.ErrCodeServiceUnavailable, "batch engine is shut down")

	// ErrBackpressure is returned when the number of queued items exceeds
	// the configured backpressure threshold.
	ErrBackpressure = errors.New(errors.ErrCodeTooManyRequests, "batch engine backpressure threshold exceeded")

	// ErrCircuitOpen is returned for items rejected while the circuit
	// breaker is open.
	ErrCircuitOpen = errors.New(errors.ErrCodeServiceUnavailable, "circuit breaker is open")
)

// ─────────────────────────────────────────────────────────────────────────────
// Result types
// ─────────────────────────────────────────────────────────────────────────────

// ItemStatus classifies the outcome of one item.
type ItemStatus string

const (
	ItemSuccess   ItemStatus = "success"
	ItemFailed    ItemStatus = "failed"
	ItemTimeout   ItemStatus = "timeout"
	ItemCancelled ItemStatus = "cancelled"
)

// ItemResult is the outcome of processing one input item. Index refers to the
// position of the item in the input slice.
type ItemResult[R any] struct {
	Index    int           `json:"index"`
	Result   R             `json:"result"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration"`
	Status   ItemStatus    `json:"status"`
	Attempts int           `json:"attempts"`
}

// BatchResult aggregates the outcomes of one Process call. Results are in
// input order regardless of completion order.
type BatchResult[R any] struct {
	Results   []ItemResult[R] `json:"results"`
	Total     int             `json:"total"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	TimedOut  int             `json:"timed_out"`
	Cancelled int             `json:"cancelled"`
	Duration  time.Duration   `json:"duration"`
}

// ProcessFunc evaluates one item.
type ProcessFunc[T, R any] func(ctx context.Context, item T) (R, error)

// ─────────────────────────────────────────────────────────────────────────────
// Retry policy
// ─────────────────────────────────────────────────────────────────────────────

// RetryPolicy controls per-item retries. Backoff grows exponentially from
// InitialBackoff by Multiplier per attempt, capped at MaxBackoff, with ±25%
// jitter to avoid hammering the serving backend in lockstep.
type RetryPolicy struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64

	// RetryIf decides whether an error is worth retrying. When nil, every
	// error is retried except invalid input.
	RetryIf func(error) bool
}

// DefaultRetryPolicy matches the behaviour expected of external evaluators:
// a couple of quick retries, then give up and let the score drop to zero.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     2,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		Multiplier:     2.0,
	}
}

func (p RetryPolicy) shouldRetry(err error, attempt int) bool {
	if attempt > p.MaxRetries {
		return false
	}
	if p.RetryIf != nil {
		return p.RetryIf(err)
	}
	if errors.IsCode(err, errors.ErrCodeAIInputInvalid) {
		return false
	}
	return true
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	d := float64(p.InitialBackoff)
	for i := 1; i < attempt; i++ {
		d *= p.Multiplier
	}
	if p.MaxBackoff > 0 && d > float64(p.MaxBackoff) {
		d = float64(p.MaxBackoff)
	}
	// ±25% jitter
	d = d * (0.75 + rand.Float64()*0.5)
	return time.Duration(d)
}

// ─────────────────────────────────────────────────────────────────────────────
// Circuit breaker
// ─────────────────────────────────────────────────────────────────────────────

const (
	cbClosed int32 = iota
	cbHalfOpen
	cbOpen
)

// circuitBreaker trips to open after failureThreshold consecutive item
// failures, rejects everything for resetTimeout, then admits a single probe
// in half-open state.
type circuitBreaker struct {
	failureThreshold int32
	resetTimeout     time.Duration

	state        atomic.Int32
	consecutive  atomic.Int32
	openedAtNano atomic.Int64
	probing      atomic.Bool

	name    string
	metrics Metrics
}

func newCircuitBreaker(name string, failureThreshold int, resetTimeout time.Duration, metrics Metrics) *circuitBreaker {
	return &circuitBreaker{
		failureThreshold: int32(failureThreshold),
		resetTimeout:     resetTimeout,
		name:             name,
		metrics:          metrics,
	}
}

// allow reports whether a new item may proceed.
func (cb *circuitBreaker) allow() bool {
	switch cb.state.Load() {
	case cbClosed:
		return true
	case cbOpen:
		openedAt := time.Unix(0, cb.openedAtNano.Load())
		if time.Since(openedAt) < cb.resetTimeout {
			return false
		}
		if cb.state.CompareAndSwap(cbOpen, cbHalfOpen) {
			cb.recordTransition("open", "half_open")
		}
		return cb.probing.CompareAndSwap(false, true)
	case cbHalfOpen:
		return cb.probing.CompareAndSwap(false, true)
	default:
		return true
	}
}

func (cb *circuitBreaker) recordSuccess() {
	cb.consecutive.Store(0)
	if cb.state.CompareAndSwap(cbHalfOpen, cbClosed) {
		cb.probing.Store(false)
		cb.recordTransition("half_open", "closed")
	}
}

func (cb *circuitBreaker) recordFailure() {
	if cb.state.CompareAndSwap(cbHalfOpen, cbOpen) {
		cb.openedAtNano.Store(time.Now().UnixNano())
		cb.probing.Store(false)
		cb.recordTransition("half_open", "open")
		return
	}
	n := cb.consecutive.Add(1)
	if n >= cb.failureThreshold && cb.state.CompareAndSwap(cbClosed, cbOpen) {
		cb.openedAtNano.Store(time.Now().UnixNano())
		cb.recordTransition("closed", "open")
	}
}

func (cb *circuitBreaker) recordTransition(from, to string) {
	if cb.metrics != nil {
		cb.metrics.RecordCircuitBreakerStateChange(context.Background(), cb.name, from, to)
	}
}

func (cb *circuitBreaker) stateName() string {
	switch cb.state.Load() {
	case cbOpen:
		return "open"
	case cbHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Engine
// ─────────────────────────────────────────────────────────────────────────────

// BatchEngine runs a ProcessFunc over item batches with bounded concurrency,
// per-item timeouts, retries and an optional circuit breaker. A single engine
// is meant to be reused across batches; Shutdown drains in-flight work.
type BatchEngine[T, R any] struct {
	name           string
	maxConcurrency int64
	itemTimeout    time.Duration
	batchTimeout   time.Duration
	backpressure   int64
	retry          RetryPolicy
	breaker        *circuitBreaker

	sem      *semaphore.Weighted
	inFlight atomic.Int64
	wg       sync.WaitGroup
	shutdown atomic.Bool

	metrics Metrics
	logger  logging.Logger
}

// EngineOption configures a BatchEngine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	name             string
	maxConcurrency   int
	itemTimeout      time.Duration
	batchTimeout     time.Duration
	backpressure     int
	retry            RetryPolicy
	breakerEnabled   bool
	breakerThreshold int
	breakerReset     time.Duration
	metrics          Metrics
	logger           logging.Logger
}

// WithEngineName sets the name used in logs and metric labels.
func WithEngineName(name string) EngineOption {
	return func(o *engineOptions) { o.name = name }
}

// WithMaxConcurrency bounds the number of items processed at once.
func WithMaxConcurrency(n int) EngineOption {
	return func(o *engineOptions) { o.maxConcurrency = n }
}

// WithItemTimeout bounds the wall time of a single attempt.
func WithItemTimeout(d time.Duration) EngineOption {
	return func(o *engineOptions) { o.itemTimeout = d }
}

// WithBatchTimeout bounds the wall time of a whole Process call.
func WithBatchTimeout(d time.Duration) EngineOption {
	return func(o *engineOptions) { o.batchTimeout = d }
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(p RetryPolicy) EngineOption {
	return func(o *engineOptions) { o.retry = p }
}

// WithCircuitBreaker enables the circuit breaker: the engine trips open after
// threshold consecutive failures and probes again after reset.
func WithCircuitBreaker(threshold int, reset time.Duration) EngineOption {
	return func(o *engineOptions) {
		o.breakerEnabled = true
		o.breakerThreshold = threshold
		o.breakerReset = reset
	}
}

// WithBackpressureThreshold rejects whole batches once the number of items
// waiting or running exceeds n. Zero disables the check.
func WithBackpressureThreshold(n int) EngineOption {
	return func(o *engineOptions) { o.backpressure = n }
}

// WithEngineMetrics sets the metrics sink.
func WithEngineMetrics(m Metrics) EngineOption {
	return func(o *engineOptions) { o.metrics = m }
}

// WithEngineLogger sets the logger.
func WithEngineLogger(l logging.Logger) EngineOption {
	return func(o *engineOptions) { o.logger = l }
}

// NewBatchEngine builds an engine with the given options.
func NewBatchEngine[T, R any](opts ...EngineOption) *BatchEngine[T, R] {
	o := engineOptions{
		name:           "batch",
		maxConcurrency: 8,
		itemTimeout:    30 * time.Second,
		retry:          DefaultRetryPolicy(),
		metrics:        NewNoopMetrics(),
		logger:         logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxConcurrency < 1 {
		o.maxConcurrency = 1
	}

	e := &BatchEngine[T, R]{
		name:           o.name,
		maxConcurrency: int64(o.maxConcurrency),
		itemTimeout:    o.itemTimeout,
		batchTimeout:   o.batchTimeout,
		backpressure:   int64(o.backpressure),
		retry:          o.retry,
		sem:            semaphore.NewWeighted(int64(o.maxConcurrency)),
		metrics:        o.metrics,
		logger:         o.logger.Named(o.name),
	}
	if o.breakerEnabled {
		threshold := o.breakerThreshold
		if threshold < 1 {
			threshold = 5
		}
		reset := o.breakerReset
		if reset <= 0 {
			reset = 30 * time.Second
		}
		e.breaker = newCircuitBreaker(o.name, threshold, reset, o.metrics)
	}
	return e
}

// Process runs fn over every item and returns per-item results in input
// order. Item failures never fail the batch; they surface as ItemResult
// entries with a non-success status. The returned error is non-nil only for
// engine-level refusals (shutdown, backpressure) or an empty batch.
func (e *BatchEngine[T, R]) Process(ctx context.Context, items []T, fn ProcessFunc[T, R]) (*BatchResult[R], error) {
	if e.shutdown.Load() {
		return nil, ErrEngineShutdown
	}
	if len(items) == 0 {
		return nil, errors.New(errors.ErrCodeAIInputInvalid, "batch contains no items")
	}
	if fn == nil {
		return nil, errors.New(errors.ErrCodeAIInputInvalid, "process function is nil")
	}
	if e.backpressure > 0 && e.inFlight.Load()+int64(len(items)) > e.backpressure {
		e.logger.Warn("rejecting batch under backpressure",
			logging.Int("batch_size", len(items)),
			logging.Int64("in_flight", e.inFlight.Load()))
		return nil, ErrBackpressure
	}

	batchCtx := ctx
	var cancel context.CancelFunc
	if e.batchTimeout > 0 {
		batchCtx, cancel = context.WithTimeout(ctx, e.batchTimeout)
		defer cancel()
	}

	start := time.Now()
	results := make([]ItemResult[R], len(items))

	e.inFlight.Add(int64(len(items)))
	var itemWG sync.WaitGroup
	for i := range items {
		i := i
		itemWG.Add(1)
		e.wg.Add(1)
		go func() {
			defer itemWG.Done()
			defer e.wg.Done()
			defer e.inFlight.Add(-1)
			results[i] = e.processItem(batchCtx, i, items[i], fn)
		}()
	}
	itemWG.Wait()

	res := &BatchResult[R]{
		Results:  results,
		Total:    len(items),
		Duration: time.Since(start),
	}
	for i := range results {
		switch results[i].Status {
		case ItemSuccess:
			res.Succeeded++
		case ItemTimeout:
			res.TimedOut++
		case ItemCancelled:
			res.Cancelled++
		default:
			res.Failed++
		}
	}

	e.metrics.RecordBatch(ctx, &BatchMetricParams{
		BatchName:      e.name,
		TotalItems:     res.Total,
		SuccessItems:   res.Succeeded,
		FailedItems:    res.Failed,
		TimeoutItems:   res.TimedOut,
		CancelledItems: res.Cancelled,
		DurationMs:     float64(res.Duration.Microseconds()) / 1000.0,
		MaxConcurrency: int(e.maxConcurrency),
	})
	e.logger.Debug("batch complete",
		logging.Int("total", res.Total),
		logging.Int("succeeded", res.Succeeded),
		logging.Int("failed", res.Failed),
		logging.Duration("duration", res.Duration))

	return res, nil
}

func (e *BatchEngine[T, R]) processItem(ctx context.Context, index int, item T, fn ProcessFunc[T, R]) ItemResult[R] {
	out := ItemResult[R]{Index: index}
	start := time.Now()

	if err := e.sem.Acquire(ctx, 1); err != nil {
		out.Err = errors.Wrap(err, errors.ErrCodeTimeout, "batch cancelled while waiting for a worker slot")
		out.Status = ItemCancelled
		out.Duration = time.Since(start)
		return out
	}
	defer e.sem.Release(1)

	for attempt := 1; ; attempt++ {
		out.Attempts = attempt

		if e.breaker != nil && !e.breaker.allow() {
			out.Err = ErrCircuitOpen
			out.Status = ItemFailed
			break
		}

		result, err := e.runAttempt(ctx, item, fn)
		if err == nil {
			if e.breaker != nil {
				e.breaker.recordSuccess()
			}
			out.Result = result
			out.Status = ItemSuccess
			break
		}
		if e.breaker != nil {
			e.breaker.recordFailure()
		}

		if ctx.Err() != nil {
			out.Err = errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "batch cancelled")
			out.Status = ItemCancelled
			break
		}
		if !e.retry.shouldRetry(err, attempt) {
			out.Err = err
			if errors.IsCode(err, errors.ErrCodeTimeout) {
				out.Status = ItemTimeout
			} else {
				out.Status = ItemFailed
			}
			break
		}

		backoff := e.retry.backoff(attempt)
		e.logger.Debug("retrying item",
			logging.Int("index", index),
			logging.Int("attempt", attempt),
			logging.Duration("backoff", backoff),
			logging.Err(err))
		select {
		case <-ctx.Done():
			out.Err = errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "batch cancelled during retry backoff")
			out.Status = ItemCancelled
		case <-time.After(backoff):
			continue
		}
		break
	}

	out.Duration = time.Since(start)
	return out
}

func (e *BatchEngine[T, R]) runAttempt(ctx context.Context, item T, fn ProcessFunc[T, R]) (R, error) {
	attemptCtx := ctx
	var cancel context.CancelFunc
	if e.itemTimeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, e.itemTimeout)
		defer cancel()
	}

	result, err := fn(attemptCtx, item)
	if err != nil && attemptCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		err = errors.Wrap(err, errors.ErrCodeTimeout, "item evaluation timed out")
	}
	return result, err
}

// Shutdown refuses new batches and waits for in-flight items to finish or
// ctx to expire.
func (e *BatchEngine[T, R]) Shutdown(ctx context.Context) error {
	e.shutdown.Store(true)

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "shutdown deadline exceeded with items still in flight")
	}
}

// BreakerState exposes the circuit breaker state for health endpoints.
// Returns "disabled" when no breaker is configured.
func (e *BatchEngine[T, R]) BreakerState() string {
	if e.breaker == nil {
		return "disabled"
	}
	return e.breaker.stateName()
}

//Personal.AI order the ending
