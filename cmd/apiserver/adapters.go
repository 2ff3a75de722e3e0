package main

import (
	"context"
	"fmt"

	"github.com/turtacn/MolScore/internal/application/scoring"
	"github.com/turtacn/MolScore/internal/config"
	"github.com/turtacn/MolScore/internal/domain/molecule"
	dscoring "github.com/turtacn/MolScore/internal/domain/scoring"
	"github.com/turtacn/MolScore/internal/infrastructure/database/postgres"
	redisdb "github.com/turtacn/MolScore/internal/infrastructure/database/redis"
	"github.com/turtacn/MolScore/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
	prom "github.com/turtacn/MolScore/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/MolScore/internal/infrastructure/storage/minio"
	stypes "github.com/turtacn/MolScore/pkg/types/scoring"
)

// ─────────────────────────────────────────────────────────────────────────────
// Health checker adapters
// ─────────────────────────────────────────────────────────────────────────────

type postgresHealthAdapter struct {
	conn *postgres.Connection
}

func (a *postgresHealthAdapter) Name() string { return "postgres" }

func (a *postgresHealthAdapter) Check(ctx context.Context) error {
	return a.conn.HealthCheck(ctx)
}

type redisHealthAdapter struct {
	client *redisdb.Client
}

func (a *redisHealthAdapter) Name() string { return "redis" }

func (a *redisHealthAdapter) Check(ctx context.Context) error {
	return a.client.Ping(ctx)
}

type minioHealthAdapter struct {
	client *minio.Client
}

func (a *minioHealthAdapter) Name() string { return "minio" }

func (a *minioHealthAdapter) Check(ctx context.Context) error {
	status := a.client.HealthCheck(ctx)
	if !status.Healthy {
		return fmt.Errorf("minio unhealthy: %s", status.Error)
	}
	if !status.BucketExists {
		return fmt.Errorf("minio bucket missing")
	}
	return nil
}

type kafkaHealthAdapter struct {
	topics *kafka.TopicManager
}

func (a *kafkaHealthAdapter) Name() string { return "kafka" }

func (a *kafkaHealthAdapter) Check(ctx context.Context) error {
	_, err := a.topics.ListTopics(ctx)
	return err
}

// ─────────────────────────────────────────────────────────────────────────────
// Batch scorer adapter
// ─────────────────────────────────────────────────────────────────────────────

// serviceScorer builds a scoring service per request.  Function documents
// arrive with the request, so the bound component pipeline cannot outlive it;
// the Redis cache keeps repeat evaluations cheap across requests.
type serviceScorer struct {
	registry  dscoring.EvaluatorRegistry
	molecules *molecule.Service
	worker    config.WorkerConfig
	cache     redisdb.Cache
	metrics   *prom.AppMetrics
	logger    logging.Logger
}

func (s *serviceScorer) ScoreBatch(ctx context.Context, fn dscoring.FunctionConfig, smiles []string) (*stypes.ScoreResponse, error) {
	opts := []scoring.Option{scoring.WithLogger(s.logger)}
	if s.cache != nil {
		opts = append(opts, scoring.WithCache(s.cache))
	}
	if s.metrics != nil {
		opts = append(opts, scoring.WithMetrics(s.metrics))
	}
	svc, err := scoring.NewService(fn, s.registry, s.molecules, s.worker, opts...)
	if err != nil {
		return nil, err
	}
	defer svc.Shutdown(context.WithoutCancel(ctx))
	return svc.ScoreBatch(ctx, smiles)
}

//Personal.AI order the ending
