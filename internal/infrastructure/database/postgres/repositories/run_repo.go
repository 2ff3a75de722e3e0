package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"

	"github.com/turtacn/MolScore/internal/application/run"
	"github.com/turtacn/MolScore/internal/infrastructure/database/postgres"
	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolScore/pkg/errors"
	"github.com/turtacn/MolScore/pkg/types/common"
	stypes "github.com/turtacn/MolScore/pkg/types/scoring"
)

// dbExecutor is the subset of sql.DB and sql.Tx the repository needs, so the
// same methods serve transactional and plain calls.
type dbExecutor interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// rowScanner covers sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// postgresRunRepo persists runs and their step records.  It implements the
// runner's Repository contract.
type postgresRunRepo struct {
	conn *postgres.Connection
	tx   *sql.Tx
	log  logging.Logger
}

func NewPostgresRunRepo(conn *postgres.Connection, log logging.Logger) run.Repository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &postgresRunRepo{
		conn: conn,
		log:  log.Named("run-repo"),
	}
}

func (r *postgresRunRepo) executor() dbExecutor {
	if r.tx != nil {
		return r.tx
	}
	return r.conn.DB()
}

func (r *postgresRunRepo) CreateRun(ctx context.Context, rn *run.Run) error {
	query := `
		INSERT INTO runs (
			id, name, run_type, status, steps, best_score, artifact_uri, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`
	_, err := r.executor().ExecContext(ctx, query,
		string(rn.ID), rn.Name, rn.RunType, string(rn.Status),
		rn.Steps, rn.BestScore, rn.ArtifactURI, rn.CreatedAt, rn.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return errors.New(errors.ErrCodeConflict, "run already exists").
				WithDetail(string(rn.ID))
		}
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create run")
	}
	return nil
}

func (r *postgresRunRepo) UpdateRun(ctx context.Context, rn *run.Run) error {
	query := `
		UPDATE runs
		SET status = $1, steps = $2, best_score = $3, artifact_uri = $4, updated_at = $5
		WHERE id = $6
	`
	res, err := r.executor().ExecContext(ctx, query,
		string(rn.Status), rn.Steps, rn.BestScore, rn.ArtifactURI, rn.UpdatedAt, string(rn.ID),
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update run")
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return errors.New(errors.ErrCodeRunNotFound, "run not found").
			WithDetail(string(rn.ID))
	}
	return nil
}

func (r *postgresRunRepo) GetRun(ctx context.Context, id common.ID) (*run.Run, error) {
	query := `
		SELECT id, name, run_type, status, steps, best_score, artifact_uri, created_at, updated_at
		FROM runs WHERE id = $1
	`
	row := r.executor().QueryRowContext(ctx, query, string(id))
	return scanRun(row)
}

func (r *postgresRunRepo) ListRuns(ctx context.Context, limit, offset int) ([]*run.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, name, run_type, status, steps, best_score, artifact_uri, created_at, updated_at
		FROM runs ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`
	rows, err := r.executor().QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list runs")
	}
	defer rows.Close()

	var runs []*run.Run
	for rows.Next() {
		rn, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, rn)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate runs")
	}
	return runs, nil
}

func (r *postgresRunRepo) SaveStep(ctx context.Context, record run.StepRecord) error {
	scores, err := json.Marshal(record.Scores)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal step scores")
	}

	query := `
		INSERT INTO run_steps (
			run_id, step, scores, mean_score, best_score, filtered, duration_ms, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`
	_, err = r.executor().ExecContext(ctx, query,
		string(record.RunID), record.Step, scores,
		record.MeanScore, record.BestScore, record.Filtered,
		record.Duration.Milliseconds(), time.Now().UTC(),
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return errors.New(errors.ErrCodeConflict, "step already recorded").
				WithDetail(string(record.RunID))
		}
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to save step record")
	}
	return nil
}

func (r *postgresRunRepo) ListSteps(ctx context.Context, runID common.ID, limit, offset int) ([]run.StepRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT run_id, step, scores, mean_score, best_score, filtered, duration_ms
		FROM run_steps WHERE run_id = $1 ORDER BY step ASC LIMIT $2 OFFSET $3
	`
	rows, err := r.executor().QueryContext(ctx, query, string(runID), limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list step records")
	}
	defer rows.Close()

	var records []run.StepRecord
	for rows.Next() {
		rec, err := scanStepRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate step records")
	}
	return records, nil
}

// WithTx runs fn inside one transaction.
func (r *postgresRunRepo) WithTx(ctx context.Context, fn func(run.Repository) error) error {
	tx, err := r.conn.DB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to begin transaction")
	}
	txRepo := &postgresRunRepo{conn: r.conn, tx: tx, log: r.log}
	if err := fn(txRepo); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func scanRun(row rowScanner) (*run.Run, error) {
	rn := &run.Run{}
	var id, status string
	err := row.Scan(
		&id, &rn.Name, &rn.RunType, &status,
		&rn.Steps, &rn.BestScore, &rn.ArtifactURI,
		&rn.CreatedAt, &rn.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New(errors.ErrCodeRunNotFound, "run not found")
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan run")
	}
	rn.ID = common.ID(id)
	rn.Status = stypes.RunStatus(status)
	return rn, nil
}

func scanStepRecord(row rowScanner) (run.StepRecord, error) {
	var rec run.StepRecord
	var runID string
	var scores []byte
	var durationMs int64

	err := row.Scan(
		&runID, &rec.Step, &scores,
		&rec.MeanScore, &rec.BestScore, &rec.Filtered, &durationMs,
	)
	if err != nil {
		return rec, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan step record")
	}
	rec.RunID = common.ID(runID)
	rec.Duration = time.Duration(durationMs) * time.Millisecond
	if len(scores) > 0 {
		if err := json.Unmarshal(scores, &rec.Scores); err != nil {
			return rec, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal step scores")
		}
	}
	return rec, nil
}

//Personal.AI order the ending
