package common

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MolScore/pkg/errors"
)

func TestBatchEngine_AllSuccess(t *testing.T) {
	e := NewBatchEngine[string, string]()
	items := []string{"a", "b", "c"}

	res, err := e.Process(context.Background(), items, func(_ context.Context, item string) (string, error) {
		return item + "_done", nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 3, res.Succeeded)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, "a_done", res.Results[0].Result)
	assert.Equal(t, ItemSuccess, res.Results[0].Status)
}

func TestBatchEngine_PreservesInputOrder(t *testing.T) {
	e := NewBatchEngine[int, int](WithMaxConcurrency(8))
	items := make([]int, 50)
	for i := range items {
		items[i] = i
	}

	res, err := e.Process(context.Background(), items, func(_ context.Context, item int) (int, error) {
		// reverse the completion order so scheduling cannot hide an
		// ordering bug
		time.Sleep(time.Duration(50-item) * time.Millisecond / 10)
		return item * 2, nil
	})
	require.NoError(t, err)
	for i, r := range res.Results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, i*2, r.Result)
	}
}

func TestBatchEngine_ItemFailureDoesNotFailBatch(t *testing.T) {
	e := NewBatchEngine[int, int](WithRetryPolicy(RetryPolicy{MaxRetries: 0}))

	res, err := e.Process(context.Background(), []int{1, 2, 3}, func(_ context.Context, item int) (int, error) {
		if item == 2 {
			return 0, errors.New(errors.ErrCodeAIInferenceFailed, "backend rejected molecule")
		}
		return item, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, ItemFailed, res.Results[1].Status)
	assert.Error(t, res.Results[1].Err)
}

func TestBatchEngine_ConcurrencyLimit(t *testing.T) {
	const limit = 3
	e := NewBatchEngine[int, int](WithMaxConcurrency(limit))

	var current, peak atomic.Int32
	res, err := e.Process(context.Background(), make([]int, 20), func(_ context.Context, _ int) (int, error) {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		current.Add(-1)
		return 0, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 20, res.Succeeded)
	assert.LessOrEqual(t, peak.Load(), int32(limit))
}

func TestBatchEngine_Retries(t *testing.T) {
	e := NewBatchEngine[int, int](WithRetryPolicy(RetryPolicy{
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		Multiplier:     2.0,
	}))

	var calls atomic.Int32
	res, err := e.Process(context.Background(), []int{1}, func(_ context.Context, item int) (int, error) {
		if calls.Add(1) < 3 {
			return 0, errors.New(errors.ErrCodeExternalService, "transient failure")
		}
		return item, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 3, res.Results[0].Attempts)
}

func TestBatchEngine_InvalidInputNotRetried(t *testing.T) {
	e := NewBatchEngine[int, int](WithRetryPolicy(RetryPolicy{
		MaxRetries:     5,
		InitialBackoff: time.Millisecond,
	}))

	var calls atomic.Int32
	res, err := e.Process(context.Background(), []int{1}, func(_ context.Context, _ int) (int, error) {
		calls.Add(1)
		return 0, errors.New(errors.ErrCodeAIInputInvalid, "bad smiles")
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, int32(1), calls.Load())
}

func TestBatchEngine_ItemTimeout(t *testing.T) {
	e := NewBatchEngine[int, int](
		WithItemTimeout(20*time.Millisecond),
		WithRetryPolicy(RetryPolicy{MaxRetries: 0}),
	)

	res, err := e.Process(context.Background(), []int{1}, func(ctx context.Context, _ int) (int, error) {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(time.Second):
			return 1, nil
		}
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.TimedOut)
	assert.Equal(t, ItemTimeout, res.Results[0].Status)
	assert.True(t, errors.IsCode(res.Results[0].Err, errors.ErrCodeTimeout))
}

func TestBatchEngine_BatchCancellation(t *testing.T) {
	e := NewBatchEngine[int, int](WithMaxConcurrency(1))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{})
	go func() {
		<-started
		cancel()
	}()

	res, err := e.Process(ctx, []int{1, 2, 3, 4}, func(ctx context.Context, item int) (int, error) {
		if item == 1 {
			close(started)
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(200 * time.Millisecond):
			return item, nil
		}
	})
	require.NoError(t, err)
	assert.Greater(t, res.Cancelled, 0)
}

func TestBatchEngine_EmptyBatchRejected(t *testing.T) {
	e := NewBatchEngine[int, int]()
	_, err := e.Process(context.Background(), nil, func(_ context.Context, item int) (int, error) {
		return item, nil
	})
	assert.True(t, errors.IsCode(err, errors.ErrCodeAIInputInvalid))
}

func TestBatchEngine_ShutdownRefusesNewBatches(t *testing.T) {
	e := NewBatchEngine[int, int]()
	require.NoError(t, e.Shutdown(context.Background()))

	_, err := e.Process(context.Background(), []int{1}, func(_ context.Context, item int) (int, error) {
		return item, nil
	})
	assert.ErrorIs(t, err, ErrEngineShutdown)
}

func TestBatchEngine_ShutdownDrainsInFlight(t *testing.T) {
	e := NewBatchEngine[int, int]()
	release := make(chan struct{})
	done := make(chan *BatchResult[int], 1)

	go func() {
		res, _ := e.Process(context.Background(), []int{1}, func(_ context.Context, item int) (int, error) {
			<-release
			return item, nil
		})
		done <- res
	}()

	time.Sleep(20 * time.Millisecond)
	close(release)
	require.NoError(t, e.Shutdown(context.Background()))

	res := <-done
	assert.Equal(t, 1, res.Succeeded)
}

func TestBatchEngine_Backpressure(t *testing.T) {
	e := NewBatchEngine[int, int](
		WithMaxConcurrency(1),
		WithBackpressureThreshold(2),
	)
	release := make(chan struct{})
	go e.Process(context.Background(), []int{1, 2}, func(_ context.Context, item int) (int, error) { //nolint:errcheck
		<-release
		return item, nil
	})
	time.Sleep(20 * time.Millisecond)

	_, err := e.Process(context.Background(), []int{3}, func(_ context.Context, item int) (int, error) {
		return item, nil
	})
	assert.ErrorIs(t, err, ErrBackpressure)
	close(release)
}

func TestBatchEngine_CircuitBreakerOpensAndRecovers(t *testing.T) {
	e := NewBatchEngine[int, int](
		WithMaxConcurrency(1),
		WithCircuitBreaker(3, 30*time.Millisecond),
		WithRetryPolicy(RetryPolicy{MaxRetries: 0}),
	)

	fail := func(_ context.Context, _ int) (int, error) {
		return 0, errors.New(errors.ErrCodeExternalService, "backend down")
	}
	res, err := e.Process(context.Background(), []int{1, 2, 3}, fail)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Failed)
	assert.Equal(t, "open", e.BreakerState())

	// while open, items short-circuit without touching the backend
	var calls atomic.Int32
	res, err = e.Process(context.Background(), []int{4}, func(_ context.Context, _ int) (int, error) {
		calls.Add(1)
		return 0, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(0), calls.Load())
	assert.ErrorIs(t, res.Results[0].Err, ErrCircuitOpen)

	// after the reset window a probe is admitted and success closes it
	time.Sleep(40 * time.Millisecond)
	res, err = e.Process(context.Background(), []int{5}, func(_ context.Context, item int) (int, error) {
		return item, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, "closed", e.BreakerState())
}

func TestBatchEngine_RecordsBatchMetrics(t *testing.T) {
	metrics := NewInMemoryMetrics()
	e := NewBatchEngine[int, int](
		WithEngineName("scoring"),
		WithEngineMetrics(metrics),
		WithRetryPolicy(RetryPolicy{MaxRetries: 0}),
	)

	_, err := e.Process(context.Background(), []int{1, 2}, func(_ context.Context, item int) (int, error) {
		if item == 2 {
			return 0, errors.New(errors.ErrCodeExternalService, "boom")
		}
		return item, nil
	})
	require.NoError(t, err)

	batches := metrics.Batches()
	require.Len(t, batches, 1)
	assert.Equal(t, "scoring", batches[0].BatchName)
	assert.Equal(t, 2, batches[0].TotalItems)
	assert.Equal(t, 1, batches[0].SuccessItems)
	assert.Equal(t, 1, batches[0].FailedItems)
}

func TestRetryPolicy_BackoffGrowsAndCaps(t *testing.T) {
	p := RetryPolicy{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     300 * time.Millisecond,
		Multiplier:     2.0,
	}

	// jitter is ±25%, so each attempt stays within a known band
	b1 := p.backoff(1)
	assert.GreaterOrEqual(t, b1, 75*time.Millisecond)
	assert.LessOrEqual(t, b1, 125*time.Millisecond)

	b2 := p.backoff(2)
	assert.GreaterOrEqual(t, b2, 150*time.Millisecond)
	assert.LessOrEqual(t, b2, 250*time.Millisecond)

	b4 := p.backoff(4)
	assert.LessOrEqual(t, b4, 375*time.Millisecond)
}

//Personal.AI order the ending
