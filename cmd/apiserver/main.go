// The apiserver binary serves the MolScore HTTP API: batch scoring, run
// submission with step streaming, and artifact retrieval.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/turtacn/MolScore/internal/application/run"
	"github.com/turtacn/MolScore/internal/application/scoring"
	"github.com/turtacn/MolScore/internal/config"
	"github.com/turtacn/MolScore/internal/domain/molecule"
	"github.com/turtacn/MolScore/internal/infrastructure/database/postgres"
	"github.com/turtacn/MolScore/internal/infrastructure/database/postgres/repositories"
	redisdb "github.com/turtacn/MolScore/internal/infrastructure/database/redis"
	"github.com/turtacn/MolScore/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
	prom "github.com/turtacn/MolScore/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/MolScore/internal/infrastructure/storage/minio"
	"github.com/turtacn/MolScore/internal/intelligence/common"
	"github.com/turtacn/MolScore/internal/intelligence/evaluators"
	httpserver "github.com/turtacn/MolScore/internal/interfaces/http"
	"github.com/turtacn/MolScore/internal/interfaces/http/handlers"
	"github.com/turtacn/MolScore/pkg/errors"
)

// Populated at build time via -ldflags.
var (
	version = "dev"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	samplePool := flag.String("sample-pool", "", "path to a SMILES file used as the run sampler pool")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.Info("starting molscore api server",
		logging.String("version", version),
		logging.Int("port", cfg.Server.Port),
		logging.String("mode", cfg.Server.Mode),
	)

	collector, err := prom.NewMetricsCollector(prom.CollectorConfig{
		Namespace:            "molscore",
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		logger.Fatal("failed to build metrics collector", logging.Err(err))
	}
	appMetrics := prom.NewAppMetrics(collector)

	// PostgreSQL: run and step persistence.
	pg, err := postgres.NewConnection(cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to connect to postgres", logging.Err(err))
	}
	defer pg.Close()
	if err := pg.Migrate(); err != nil {
		logger.Fatal("failed to run database migrations", logging.Err(err))
	}
	runRepo := repositories.NewPostgresRunRepo(pg, logger)

	// Redis: score cache and run locks.
	redisClient, err := redisdb.NewClient(cfg.Redis, logger)
	if err != nil {
		logger.Fatal("failed to connect to redis", logging.Err(err))
	}
	defer redisClient.Close()
	cache := redisdb.NewRedisCache(redisClient, logger)
	locks := redisdb.NewLockFactory(redisClient, logger)

	// Kafka: step and lifecycle events.
	producer, err := kafka.NewProducer(kafka.ProducerConfigFrom(cfg.Kafka), logger)
	if err != nil {
		logger.Fatal("failed to build kafka producer", logging.Err(err))
	}
	publisher := kafka.NewRunEventPublisher(producer, appMetrics, logger)
	defer publisher.Close()

	topics, err := kafka.NewTopicManager(cfg.Kafka.Brokers, logger)
	if err != nil {
		logger.Fatal("failed to connect to kafka", logging.Err(err))
	}
	defer topics.Close()
	if cfg.Kafka.AutoCreateTopics {
		ensureCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := topics.EnsureDefaultTopics(ensureCtx); err != nil {
			logger.Warn("failed to ensure kafka topics", logging.Err(err))
		}
		cancel()
	}

	// MinIO: run artifact storage.
	minioClient, err := minio.NewClient(cfg.MinIO, logger)
	if err != nil {
		logger.Fatal("failed to connect to minio", logging.Err(err))
	}
	defer minioClient.Close()
	ensureCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	if err := minioClient.EnsureBucket(ensureCtx); err != nil {
		logger.Fatal("failed to ensure artifact bucket", logging.Err(err))
	}
	cancel()
	artifacts := minio.NewArtifactRepository(minioClient, logger)

	// Evaluator stack.
	molecules := molecule.NewService(nil, logger)
	deps := evaluators.Deps{Molecules: molecules, Logger: logger}
	if cfg.Intelligence.ServingAddr != "" {
		serving, err := common.NewHTTPServingClient(cfg.Intelligence, nil, logger)
		if err != nil {
			logger.Fatal("failed to build serving client", logging.Err(err))
		}
		deps.Serving = serving
	}
	if cfg.Intelligence.DockingBaseURL != "" {
		docking, err := common.NewHTTPDockingClient(cfg.Intelligence, logger)
		if err != nil {
			logger.Fatal("failed to build docking client", logging.Err(err))
		}
		deps.Docking = docking
	}
	registry := evaluators.NewRegistry(deps)

	sampler, err := newSampler(*samplePool)
	if err != nil {
		logger.Fatal("failed to load sample pool", logging.Err(err))
	}

	runner, err := run.NewLocalRunner(registry, molecules, cfg.Worker, sampler,
		run.WithRepository(runRepo),
		run.WithArtifactStore(artifacts),
		run.WithEventPublisher(publisher),
		run.WithLockFactory(locks),
		run.WithScoringOptions(
			scoring.WithCache(cache),
			scoring.WithMetrics(appMetrics),
			scoring.WithLogger(logger),
		),
		run.WithMetrics(appMetrics),
		run.WithLogger(logger),
	)
	if err != nil {
		logger.Fatal("failed to build runner", logging.Err(err))
	}

	scorer := &serviceScorer{
		registry:  registry,
		molecules: molecules,
		worker:    cfg.Worker,
		cache:     cache,
		metrics:   appMetrics,
		logger:    logger,
	}

	checkers := []handlers.HealthChecker{
		&postgresHealthAdapter{conn: pg},
		&redisHealthAdapter{client: redisClient},
		&minioHealthAdapter{client: minioClient},
		&kafkaHealthAdapter{topics: topics},
	}

	router := httpserver.NewRouter(httpserver.RouterConfig{
		Logger:         logger,
		Metrics:        collector,
		AppMetrics:     appMetrics,
		HealthHandler:  handlers.NewHealthHandler(version, checkers, logger),
		ScoringHandler: handlers.NewScoringHandler(scorer, logger),
		RunHandler:     handlers.NewRunHandler(runner, runRepo, artifacts, logger),
		Mode:           cfg.Server.Mode,
	})

	srv := httpserver.NewServer(cfg.Server, router, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("http server error", logging.Err(err))
		}
	}()
	logger.Info("http server listening", logging.String("addr", srv.Addr()))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", logging.Err(err))
	}
	logger.Info("server stopped")
}

// loadConfig reads the configuration file when a path is given and falls back
// to environment variables plus defaults otherwise.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	for _, candidate := range []string{"molscore.yaml", "configs/config.yaml"} {
		if _, err := os.Stat(candidate); err == nil {
			return config.Load(candidate)
		}
	}
	return config.LoadFromEnv()
}

func newLogger(cfg config.LogConfig) (logging.Logger, error) {
	format := "json"
	if cfg.Format == "text" {
		format = "console"
	}
	output := cfg.Output
	if output == "" {
		output = "stdout"
	}
	return logging.NewLogger(logging.LogConfig{
		Level:       cfg.Level,
		Format:      format,
		OutputPaths: []string{output},
	})
}

// newSampler builds the run sampler.  With a pool file it samples uniformly
// with replacement; without one, run submissions over the API are rejected at
// the first sampling step with a clear error.
func newSampler(poolPath string) (run.Sampler, error) {
	if poolPath == "" {
		return run.SamplerFunc(func(ctx context.Context, batchSize int) ([]string, error) {
			return nil, errors.New(errors.ErrCodeRunConfigInvalid,
				"no sample pool configured; start the server with --sample-pool")
		}), nil
	}

	pool, err := readSamplePool(poolPath)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	var mu sync.Mutex
	return run.SamplerFunc(func(ctx context.Context, batchSize int) ([]string, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch := make([]string, batchSize)
		mu.Lock()
		for i := range batch {
			batch[i] = pool[rng.Intn(len(pool))]
		}
		mu.Unlock()
		return batch, nil
	}), nil
}

// readSamplePool reads one SMILES per line, skipping blanks and comments and
// dropping a trailing name column.
func readSamplePool(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "failed to open sample pool")
	}
	defer f.Close()

	var pool []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if idx := strings.IndexAny(line, " \t"); idx > 0 {
			line = line[:idx]
		}
		pool = append(pool, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to read sample pool")
	}
	if len(pool) == 0 {
		return nil, errors.New(errors.ErrCodeMoleculeEmptyBatch, "sample pool is empty")
	}
	return pool, nil
}

//Personal.AI order the ending
