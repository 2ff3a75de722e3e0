package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolScore/pkg/errors"
	"github.com/turtacn/MolScore/pkg/types/common"
)

// testLogger is shared by the kafka package tests.
func testLogger() logging.Logger { return logging.NewNopLogger() }

// stubReader feeds canned messages to the consumer.  The default fetch
// blocks until the context is cancelled, mimicking an idle partition.
type stubReader struct {
	fetchFunc  func(ctx context.Context) (kafka.Message, error)
	commitFunc func(ctx context.Context, msgs ...kafka.Message) error
	closeFunc  func() error
}

func (r *stubReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if r.fetchFunc != nil {
		return r.fetchFunc(ctx)
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *stubReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	if r.commitFunc != nil {
		return r.commitFunc(ctx, msgs...)
	}
	return nil
}

func (r *stubReader) Close() error {
	if r.closeFunc != nil {
		return r.closeFunc()
	}
	return nil
}

func (r *stubReader) Stats() kafka.ReaderStats { return kafka.ReaderStats{} }

func consumerWith(r ReaderInterface, cfg ConsumerConfig) *Consumer {
	return &Consumer{
		reader:   r,
		config:   cfg,
		logger:   testLogger(),
		handlers: make(map[string]common.MessageHandler),
		metrics:  &ConsumerMetrics{},
	}
}

func stepConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Brokers: []string{"localhost:9092"},
		GroupID: "molscore-worker",
		Topics:  []string{TopicRunSteps},
	}
}

func TestValidateConsumerConfig(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*ConsumerConfig)
		errCode errors.ErrorCode
	}{
		{name: "valid", mutate: func(cfg *ConsumerConfig) {}},
		{
			name:    "no brokers",
			mutate:  func(cfg *ConsumerConfig) { cfg.Brokers = nil },
			errCode: errors.ErrCodeValidation,
		},
		{
			name:    "no group id",
			mutate:  func(cfg *ConsumerConfig) { cfg.GroupID = "" },
			errCode: errors.ErrCodeValidation,
		},
		{
			name:    "bad offset reset",
			mutate:  func(cfg *ConsumerConfig) { cfg.AutoOffsetReset = "newest" },
			errCode: errors.ErrCodeValidation,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := stepConsumerConfig()
			tc.mutate(&cfg)
			err := ValidateConsumerConfig(cfg)
			if tc.errCode == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.IsCode(err, tc.errCode))
		})
	}
}

func TestSubscribe_RegistersHandler(t *testing.T) {
	c := consumerWith(&stubReader{}, stepConsumerConfig())

	err := c.Subscribe(TopicRunSteps, func(ctx context.Context, msg *common.Message) error {
		return nil
	})

	require.NoError(t, err)
	c.mu.RLock()
	_, ok := c.handlers[TopicRunSteps]
	c.mu.RUnlock()
	assert.True(t, ok)
}

func TestStart_RejectsSecondCall(t *testing.T) {
	c := consumerWith(&stubReader{}, stepConsumerConfig())
	c.running.Store(true)

	err := c.Start(context.Background())

	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestRun_DispatchesFetchedMessage(t *testing.T) {
	fetched := false
	reader := &stubReader{
		fetchFunc: func(ctx context.Context) (kafka.Message, error) {
			if fetched {
				<-ctx.Done()
				return kafka.Message{}, ctx.Err()
			}
			fetched = true
			return kafka.Message{
				Topic: TopicRunSteps,
				Key:   []byte("run-1"),
				Value: []byte(`{"step":0}`),
			}, nil
		},
	}

	c := consumerWith(reader, stepConsumerConfig())
	handled := make(chan *common.Message, 1)
	require.NoError(t, c.Subscribe(TopicRunSteps, func(ctx context.Context, msg *common.Message) error {
		handled <- msg
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Start(ctx))

	select {
	case msg := <-handled:
		assert.Equal(t, TopicRunSteps, msg.Topic)
		assert.Equal(t, []byte("run-1"), msg.Key)
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked")
	}

	cancel()
	require.NoError(t, c.Close())
	metrics := c.GetMetrics()
	assert.EqualValues(t, 1, metrics.MessagesConsumed.Load())
}

func TestProcessMessage_RetriesUntilSuccess(t *testing.T) {
	cfg := stepConsumerConfig()
	cfg.RetryConfig = RetryConfig{MaxRetries: 2, RetryBackoff: time.Millisecond}
	c := consumerWith(&stubReader{}, cfg)

	attempts := 0
	handler := func(ctx context.Context, msg *common.Message) error {
		attempts++
		if attempts < 2 {
			return errors.New(errors.ErrCodeInternal, "transient")
		}
		return nil
	}

	err := c.processMessage(context.Background(), &common.Message{Topic: TopicRunSteps}, handler)

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.EqualValues(t, 1, c.metrics.MessagesRetried.Load())
}

func TestProcessMessage_DropsAfterExhaustedRetries(t *testing.T) {
	cfg := stepConsumerConfig()
	cfg.RetryConfig = RetryConfig{MaxRetries: 2, RetryBackoff: time.Millisecond}
	c := consumerWith(&stubReader{}, cfg)

	attempts := 0
	handler := func(ctx context.Context, msg *common.Message) error {
		attempts++
		return errors.New(errors.ErrCodeInternal, "persistent")
	}

	// Without a dead-letter producer the message is dropped; either way
	// the loop must not stall, so no error comes back.
	err := c.processMessage(context.Background(), &common.Message{Topic: TopicRunSteps}, handler)

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.EqualValues(t, 2, c.metrics.MessagesRetried.Load())
	assert.EqualValues(t, 0, c.metrics.MessagesDeadLettered.Load())
}

//Personal.AI order the ending
