// Package run orchestrates generative runs: it drives the scoring service
// over sampled molecule batches for a fixed number of steps, applies the
// diversity filter, and streams step records to the configured sinks.
package run

import (
	"context"
	"io"
	"time"

	"github.com/turtacn/MolScore/internal/config"
	"github.com/turtacn/MolScore/pkg/types/common"
	stypes "github.com/turtacn/MolScore/pkg/types/scoring"
)

// ─────────────────────────────────────────────────────────────────────────────
// Run entity and step records
// ─────────────────────────────────────────────────────────────────────────────

// Run is the persisted state of one generative run.
type Run struct {
	ID          common.ID
	Name        string
	RunType     string
	Status      stypes.RunStatus
	Steps       int
	BestScore   float64
	ArtifactURI string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ToDTO converts the run to its transfer representation.
func (r *Run) ToDTO() stypes.RunDTO {
	return stypes.RunDTO{
		BaseEntity: common.BaseEntity{
			ID:        r.ID,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		},
		Name:        r.Name,
		RunType:     r.RunType,
		Status:      r.Status,
		Steps:       r.Steps,
		BestScore:   r.BestScore,
		ArtifactURI: r.ArtifactURI,
	}
}

// StepRecord is the outcome of one generation step.
type StepRecord struct {
	RunID common.ID
	Step  int

	// Scores holds the per-molecule results after diversity filtering,
	// in sample order.
	Scores []stypes.MoleculeScoreDTO

	// MeanScore and BestScore summarize the step's totals.
	MeanScore float64
	BestScore float64

	// Filtered counts molecules zeroed by the diversity filter this step.
	Filtered int

	Duration time.Duration
}

// ToDTO converts the record to its transfer representation.
func (r StepRecord) ToDTO() stypes.StepRecordDTO {
	return stypes.StepRecordDTO{
		RunID:     r.RunID,
		Step:      r.Step,
		Scores:    r.Scores,
		MeanScore: r.MeanScore,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Collaborators
// ─────────────────────────────────────────────────────────────────────────────

// Sampler supplies the molecule batch for each step.  The generative model
// behind it is external; tests use fixed or scripted samplers.
type Sampler interface {
	Sample(ctx context.Context, batchSize int) ([]string, error)
}

// SamplerFunc adapts a plain function to the Sampler interface.
type SamplerFunc func(ctx context.Context, batchSize int) ([]string, error)

func (f SamplerFunc) Sample(ctx context.Context, batchSize int) ([]string, error) {
	return f(ctx, batchSize)
}

// StepSink consumes step records as the run produces them.
type StepSink interface {
	WriteStep(ctx context.Context, record StepRecord) error
	Close() error
}

// Repository persists runs and their step records.
type Repository interface {
	CreateRun(ctx context.Context, run *Run) error
	UpdateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id common.ID) (*Run, error)
	ListRuns(ctx context.Context, limit, offset int) ([]*Run, error)
	SaveStep(ctx context.Context, record StepRecord) error
	ListSteps(ctx context.Context, runID common.ID, limit, offset int) ([]StepRecord, error)
}

// ArtifactStore uploads run artifacts (the scores CSV) and returns their URI.
type ArtifactStore interface {
	Upload(ctx context.Context, objectName, contentType string, r io.Reader, size int64) (string, error)
}

// EventPublisher announces completed steps to downstream consumers.
type EventPublisher interface {
	PublishStepCompleted(ctx context.Context, record stypes.StepRecordDTO) error
}

// Runner submits generative runs.
type Runner interface {
	// Submit validates the document and starts the run.  The returned
	// channel delivers one record per completed step and closes when the
	// run finishes or fails; terminal status lands in the repository.  The
	// run identifier is carried on every record.
	Submit(ctx context.Context, cfg config.RunConfig) (<-chan StepRecord, error)
}

//Personal.AI order the ending
