package kafka

import (
	"context"
	"time"

	"github.com/turtacn/MolScore/internal/config"
	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
	prom "github.com/turtacn/MolScore/internal/infrastructure/monitoring/prometheus"
	stypes "github.com/turtacn/MolScore/pkg/types/scoring"
)

// eventSource names this service in event envelopes.
const eventSource = "molscore"

// RunEventPublisher publishes step and lifecycle events for runs.  It
// satisfies the runner's EventPublisher contract.
type RunEventPublisher struct {
	producer *Producer
	metrics  *prom.AppMetrics
	logger   logging.Logger
}

// NewRunEventPublisher wraps a producer.  Metrics may be nil.
func NewRunEventPublisher(producer *Producer, metrics *prom.AppMetrics, logger logging.Logger) *RunEventPublisher {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &RunEventPublisher{
		producer: producer,
		metrics:  metrics,
		logger:   logger.Named("run-events"),
	}
}

// PublishStepCompleted emits one event per completed step, keyed by run so a
// run's events stay ordered within a partition.
func (p *RunEventPublisher) PublishStepCompleted(ctx context.Context, record stypes.StepRecordDTO) error {
	env, err := NewEventEnvelope(EventTypeStepCompleted, eventSource, record)
	if err != nil {
		return err
	}
	msg, err := env.ToMessage(TopicRunSteps, []byte(record.RunID))
	if err != nil {
		return err
	}
	err = p.producer.Publish(ctx, msg)
	if p.metrics != nil {
		prom.RecordMessagePublish(p.metrics, TopicRunSteps, err)
	}
	return err
}

// PublishRunStatusChanged emits a lifecycle event for a run transition.
func (p *RunEventPublisher) PublishRunStatusChanged(ctx context.Context, run stypes.RunDTO) error {
	payload := RunStatusPayload{
		RunID:     string(run.ID),
		Name:      run.Name,
		RunType:   run.RunType,
		Status:    string(run.Status),
		Steps:     run.Steps,
		BestScore: run.BestScore,
		ChangedAt: run.UpdatedAt,
	}
	env, err := NewEventEnvelope(EventTypeRunStatusChanged, eventSource, payload)
	if err != nil {
		return err
	}
	msg, err := env.ToMessage(TopicRunLifecycle, []byte(run.ID))
	if err != nil {
		return err
	}
	err = p.producer.Publish(ctx, msg)
	if p.metrics != nil {
		prom.RecordMessagePublish(p.metrics, TopicRunLifecycle, err)
	}
	return err
}

// Close releases the underlying producer.
func (p *RunEventPublisher) Close() error {
	return p.producer.Close()
}

// ─────────────────────────────────────────────────────────────────────────────
// Service config bridges
// ─────────────────────────────────────────────────────────────────────────────

// ProducerConfigFrom maps the service kafka configuration onto the producer.
func ProducerConfigFrom(cfg config.KafkaConfig) ProducerConfig {
	return ProducerConfig{
		Brokers:      cfg.Brokers,
		MaxRetries:   cfg.ProducerRetries,
		BatchSize:    cfg.BatchSize,
		WriteTimeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		ReadTimeout:  time.Duration(cfg.TimeoutMS) * time.Millisecond,
	}
}

// ConsumerConfigFrom maps the service kafka configuration onto a consumer for
// the given topics, with dead-letter routing enabled.
func ConsumerConfigFrom(cfg config.KafkaConfig, topics ...string) ConsumerConfig {
	return ConsumerConfig{
		Brokers:         cfg.Brokers,
		GroupID:         cfg.GroupID,
		Topics:          topics,
		AutoOffsetReset: cfg.AutoOffsetReset,
		RetryConfig: RetryConfig{
			DeadLetterTopic: TopicDeadLetter,
		},
	}
}

//Personal.AI order the ending
