// The worker binary consumes run step and lifecycle events from Kafka and
// mirrors them into PostgreSQL.  It is the durable persistence path for
// deployments where the runner streams results without direct database
// access; duplicate step events from runners that also write directly are
// detected by the unique (run_id, step) constraint and acknowledged.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/turtacn/MolScore/internal/application/run"
	"github.com/turtacn/MolScore/internal/config"
	"github.com/turtacn/MolScore/internal/infrastructure/database/postgres"
	"github.com/turtacn/MolScore/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/MolScore/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
	prom "github.com/turtacn/MolScore/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/MolScore/pkg/errors"
	"github.com/turtacn/MolScore/pkg/types/common"
	stypes "github.com/turtacn/MolScore/pkg/types/scoring"
)

const defaultHealthPort = 8081

var (
	version = "dev"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	healthPort := flag.Int("health-port", defaultHealthPort, "port for the health and metrics endpoints")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.Info("starting molscore worker",
		logging.String("version", version),
		logging.String("group_id", cfg.Kafka.GroupID),
	)

	collector, err := prom.NewMetricsCollector(prom.CollectorConfig{
		Namespace: "molscore",
		Subsystem: "worker",
	}, logger)
	if err != nil {
		logger.Fatal("failed to build metrics collector", logging.Err(err))
	}
	appMetrics := prom.NewAppMetrics(collector)

	pg, err := postgres.NewConnection(cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to connect to postgres", logging.Err(err))
	}
	defer pg.Close()
	repo := repositories.NewPostgresRunRepo(pg, logger)

	consumer, err := kafka.NewConsumer(
		kafka.ConsumerConfigFrom(cfg.Kafka, kafka.TopicRunSteps, kafka.TopicRunLifecycle),
		logger,
	)
	if err != nil {
		logger.Fatal("failed to build kafka consumer", logging.Err(err))
	}

	h := &eventHandlers{repo: repo, metrics: appMetrics, logger: logger.Named("events")}
	if err := consumer.Subscribe(kafka.TopicRunSteps, h.handleStepEvent); err != nil {
		logger.Fatal("failed to subscribe", logging.Err(err))
	}
	if err := consumer.Subscribe(kafka.TopicRunLifecycle, h.handleLifecycleEvent); err != nil {
		logger.Fatal("failed to subscribe", logging.Err(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := consumer.Start(ctx); err != nil {
		logger.Fatal("failed to start consumer", logging.Err(err))
	}

	healthSrv := startHealthServer(*healthPort, pg, collector, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("received shutdown signal", logging.String("signal", sig.String()))

	cancel()
	if err := consumer.Close(); err != nil {
		logger.Error("consumer close error", logging.Err(err))
	}
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("health server shutdown error", logging.Err(err))
	}
	logger.Info("worker stopped")
}

// ─────────────────────────────────────────────────────────────────────────────
// Event handlers
// ─────────────────────────────────────────────────────────────────────────────

type eventHandlers struct {
	repo    run.Repository
	metrics *prom.AppMetrics
	logger  logging.Logger
}

// handleStepEvent persists one completed step.  A step already present in
// the database is acknowledged without change.
func (h *eventHandlers) handleStepEvent(ctx context.Context, msg *common.Message) error {
	env, err := decodeEnvelope(msg)
	if err != nil {
		return err
	}
	var dto stypes.StepRecordDTO
	if err := env.DecodePayload(&dto); err != nil {
		return err
	}

	record := run.StepRecord{
		RunID:     dto.RunID,
		Step:      dto.Step,
		Scores:    dto.Scores,
		MeanScore: dto.MeanScore,
	}
	for _, s := range dto.Scores {
		if s.Total > record.BestScore {
			record.BestScore = s.Total
		}
	}

	if err := h.repo.SaveStep(ctx, record); err != nil {
		if errors.IsCode(err, errors.ErrCodeConflict) {
			h.logger.Debug("step already recorded",
				logging.String("run_id", string(dto.RunID)),
				logging.Int("step", dto.Step),
			)
			return nil
		}
		return err
	}

	h.logger.Debug("step persisted",
		logging.String("run_id", string(dto.RunID)),
		logging.Int("step", dto.Step),
		logging.Int("molecules", len(dto.Scores)),
		logging.Float64("mean_score", dto.MeanScore),
	)
	return nil
}

// handleLifecycleEvent observes run status transitions for metrics and logs.
// Run rows are owned by the runner; the worker does not write them.
func (h *eventHandlers) handleLifecycleEvent(ctx context.Context, msg *common.Message) error {
	env, err := decodeEnvelope(msg)
	if err != nil {
		return err
	}
	var payload kafka.RunStatusPayload
	if err := env.DecodePayload(&payload); err != nil {
		return err
	}

	switch stypes.RunStatus(payload.Status) {
	case stypes.RunStatusCompleted, stypes.RunStatusFailed, stypes.RunStatusAborted:
		prom.RecordRunFinished(h.metrics, payload.Status)
	}

	h.logger.Info("run status changed",
		logging.String("run_id", payload.RunID),
		logging.String("name", payload.Name),
		logging.String("status", payload.Status),
		logging.Int("steps", payload.Steps),
		logging.Float64("best_score", payload.BestScore),
	)
	return nil
}

func decodeEnvelope(msg *common.Message) (*kafka.EventEnvelope, error) {
	var env kafka.EventEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal event envelope")
	}
	return &env, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Health server
// ─────────────────────────────────────────────────────────────────────────────

func startHealthServer(port int, pg *postgres.Connection, collector prom.MetricsCollector, logger logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := pg.HealthCheck(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("not_ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	go func() {
		logger.Info("health server listening", logging.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("health server error", logging.Err(err))
		}
	}()
	return srv
}

// ─────────────────────────────────────────────────────────────────────────────
// Bootstrap helpers
// ─────────────────────────────────────────────────────────────────────────────

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

//Personal.AI order the ending
