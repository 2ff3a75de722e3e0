package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MolScore/internal/config"
	"github.com/turtacn/MolScore/pkg/types/common"
	stypes "github.com/turtacn/MolScore/pkg/types/scoring"
)

func newCapturingPublisher() (*RunEventPublisher, *[]kafka.Message) {
	captured := &[]kafka.Message{}
	writer := &stubWriter{
		writeFunc: func(ctx context.Context, msgs ...kafka.Message) error {
			*captured = append(*captured, msgs...)
			return nil
		},
	}
	return NewRunEventPublisher(producerWith(writer), nil, testLogger()), captured
}

func TestRunEventPublisher_PublishStepCompleted(t *testing.T) {
	pub, captured := newCapturingPublisher()

	record := stypes.StepRecordDTO{
		RunID:     common.ID("run-7"),
		Step:      12,
		MeanScore: 0.42,
		Scores: []stypes.MoleculeScoreDTO{
			{SMILES: "CCO", Total: 0.42},
		},
	}
	require.NoError(t, pub.PublishStepCompleted(context.Background(), record))
	require.Len(t, *captured, 1)

	msg := (*captured)[0]
	assert.Equal(t, TopicRunSteps, msg.Topic)
	assert.Equal(t, []byte("run-7"), msg.Key)

	env, err := MessageToEventEnvelope(&common.Message{Value: msg.Value})
	require.NoError(t, err)
	assert.Equal(t, EventTypeStepCompleted, env.EventType)
	assert.Equal(t, eventSource, env.Source)

	var decoded stypes.StepRecordDTO
	require.NoError(t, env.DecodePayload(&decoded))
	assert.Equal(t, record, decoded)
}

func TestRunEventPublisher_PublishRunStatusChanged(t *testing.T) {
	pub, captured := newCapturingPublisher()

	now := time.Now().UTC().Truncate(time.Millisecond)
	run := stypes.RunDTO{
		BaseEntity: common.BaseEntity{ID: common.ID("run-9"), UpdatedAt: now},
		Name:       "overnight-qed",
		RunType:    "reinforcement_learning",
		Status:     stypes.RunStatusCompleted,
		Steps:      250,
		BestScore:  0.87,
	}
	require.NoError(t, pub.PublishRunStatusChanged(context.Background(), run))
	require.Len(t, *captured, 1)

	msg := (*captured)[0]
	assert.Equal(t, TopicRunLifecycle, msg.Topic)
	assert.Equal(t, []byte("run-9"), msg.Key)

	env, err := MessageToEventEnvelope(&common.Message{Value: msg.Value})
	require.NoError(t, err)
	assert.Equal(t, EventTypeRunStatusChanged, env.EventType)

	var payload RunStatusPayload
	require.NoError(t, env.DecodePayload(&payload))
	assert.Equal(t, "run-9", payload.RunID)
	assert.Equal(t, "completed", payload.Status)
	assert.Equal(t, 250, payload.Steps)
	assert.Equal(t, now, payload.ChangedAt)
}

func TestConfigBridges(t *testing.T) {
	settings := config.KafkaConfig{
		Brokers:         []string{"broker-1:9092", "broker-2:9092"},
		GroupID:         "molscore-workers",
		AutoOffsetReset: "earliest",
		TimeoutMS:       2500,
		ProducerRetries: 4,
		BatchSize:       200,
	}

	pc := ProducerConfigFrom(settings)
	assert.Equal(t, settings.Brokers, pc.Brokers)
	assert.Equal(t, 4, pc.MaxRetries)
	assert.Equal(t, 2500*time.Millisecond, pc.WriteTimeout)

	cc := ConsumerConfigFrom(settings, TopicRunSteps)
	assert.Equal(t, "molscore-workers", cc.GroupID)
	assert.Equal(t, []string{TopicRunSteps}, cc.Topics)
	assert.Equal(t, TopicDeadLetter, cc.RetryConfig.DeadLetterTopic)
}

//Personal.AI order the ending
