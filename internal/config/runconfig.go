// Run configuration: the JSON document submitted to start a generative run.
// Unlike the service configuration in this package (viper/yaml/env), run
// configurations are self-contained JSON envelopes, validated in full before
// a run is accepted.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/turtacn/MolScore/internal/domain/scoring"
	"github.com/turtacn/MolScore/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Envelope
// ─────────────────────────────────────────────────────────────────────────────

// Supported envelope versions and run types.
const (
	MinRunVersion = 2
	MaxRunVersion = 3

	RunTypeReinforcementLearning = "reinforcement_learning"
	RunTypeScoring               = "scoring"
)

// RunConfig is the top-level run document.
type RunConfig struct {
	// Version is the envelope schema version.
	Version int `json:"version"`

	// RunType selects the run mode.
	RunType string `json:"run_type"`

	// Logging configures run progress reporting.
	Logging RunLoggingConfig `json:"logging"`

	// Parameters holds the mode-specific sections.
	Parameters RunParameters `json:"parameters"`
}

// RunLoggingConfig controls progress reporting for a run.
type RunLoggingConfig struct {
	// JobName labels the run in logs and artifacts.
	JobName string `json:"job_name"`

	// JobID is an optional external correlation identifier.
	JobID string `json:"job_id,omitempty"`

	// LoggingFrequency is the step interval between progress reports.
	LoggingFrequency int `json:"logging_frequency"`

	// ResultFolder is where per-run artifacts (scores CSV) are written before
	// upload.
	ResultFolder string `json:"result_folder"`
}

// RunParameters groups the mode-specific configuration sections.
type RunParameters struct {
	// DiversityFilter penalises repeated scaffolds across steps.
	DiversityFilter *DiversityFilterConfig `json:"diversity_filter,omitempty"`

	// Inception seeds the replay memory with known-good molecules.
	Inception *InceptionConfig `json:"inception,omitempty"`

	// ReinforcementLearning configures the generator feedback loop.
	ReinforcementLearning *ReinforcementLearningConfig `json:"reinforcement_learning,omitempty"`

	// ScoringFunction is the composable reward definition.  Required.
	ScoringFunction scoring.FunctionConfig `json:"scoring_function"`
}

// DiversityFilterConfig penalises molecules whose scaffold bucket is full.
type DiversityFilterConfig struct {
	// Name selects the filter strategy ("IdenticalMurckoScaffold",
	// "IdenticalTopologicalScaffold", "NoFilter").
	Name string `json:"name"`

	// MinScore is the score threshold below which molecules bypass bucketing.
	MinScore float64 `json:"minscore"`

	// BucketSize caps how many molecules may share a scaffold before the
	// filter zeroes further ones.
	BucketSize int `json:"bucket_size"`

	// MinSimilarity applies to similarity-bucketed strategies.
	MinSimilarity float64 `json:"minsimilarity"`
}

// InceptionConfig seeds and sizes the replay memory of high-scoring molecules.
type InceptionConfig struct {
	// SMILES lists seed molecules added to memory before the first step.
	SMILES []string `json:"smiles"`

	// MemorySize caps the replay memory.
	MemorySize int `json:"memory_size"`

	// SampleSize is how many memory entries join each learning update.
	SampleSize int `json:"sample_size"`
}

// ReinforcementLearningConfig drives the generator feedback loop.
type ReinforcementLearningConfig struct {
	// NSteps is the number of generation steps to run.
	NSteps int `json:"n_steps"`

	// BatchSize is the number of molecules sampled per step.
	BatchSize int `json:"batch_size"`

	// Sigma scales the score's influence on the augmented likelihood.
	Sigma float64 `json:"sigma"`

	// LearningRate for the agent update.
	LearningRate float64 `json:"learning_rate"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Defaults and validation
// ─────────────────────────────────────────────────────────────────────────────

// Default run parameter values applied when the document leaves them zero.
const (
	DefaultLoggingFrequency = 10
	DefaultRLNSteps         = 100
	DefaultRLBatchSize      = 128
	DefaultRLSigma          = 120.0
	DefaultRLLearningRate   = 0.0001
	DefaultInceptionMemory  = 100
	DefaultInceptionSample  = 10
	DefaultDFBucketSize     = 25
	DefaultDFMinScore       = 0.4
)

// ApplyDefaults fills zero-valued fields in place.
func (c *RunConfig) ApplyDefaults() {
	if c.Logging.LoggingFrequency <= 0 {
		c.Logging.LoggingFrequency = DefaultLoggingFrequency
	}
	if c.Logging.JobName == "" {
		c.Logging.JobName = "molscore-run"
	}
	if rl := c.Parameters.ReinforcementLearning; rl != nil {
		if rl.NSteps <= 0 {
			rl.NSteps = DefaultRLNSteps
		}
		if rl.BatchSize <= 0 {
			rl.BatchSize = DefaultRLBatchSize
		}
		if rl.Sigma == 0 {
			rl.Sigma = DefaultRLSigma
		}
		if rl.LearningRate == 0 {
			rl.LearningRate = DefaultRLLearningRate
		}
	}
	if inc := c.Parameters.Inception; inc != nil {
		if inc.MemorySize <= 0 {
			inc.MemorySize = DefaultInceptionMemory
		}
		if inc.SampleSize <= 0 {
			inc.SampleSize = DefaultInceptionSample
		}
	}
	if df := c.Parameters.DiversityFilter; df != nil {
		if df.BucketSize <= 0 {
			df.BucketSize = DefaultDFBucketSize
		}
		if df.MinScore == 0 {
			df.MinScore = DefaultDFMinScore
		}
	}
	c.Parameters.ScoringFunction.ApplyDefaults()
}

// Validate checks the whole document, returning the first violation found.
// Scoring function contents are validated recursively, so a run with an
// unknown component type or inverted transform bounds is rejected before it
// starts.
func (c *RunConfig) Validate() error {
	if c.Version < MinRunVersion || c.Version > MaxRunVersion {
		return errors.New(errors.ErrCodeRunVersionUnsupported, "unsupported run configuration version").
			WithDetail(fmt.Sprintf("version=%d supported=%d..%d", c.Version, MinRunVersion, MaxRunVersion))
	}

	switch c.RunType {
	case RunTypeReinforcementLearning, RunTypeScoring:
	default:
		return errors.New(errors.ErrCodeRunTypeUnsupported, "unsupported run type").
			WithDetail(fmt.Sprintf("run_type=%s", c.RunType))
	}

	if c.RunType == RunTypeReinforcementLearning && c.Parameters.ReinforcementLearning == nil {
		return errors.New(errors.ErrCodeRunConfigInvalid, "reinforcement_learning section is required for this run type")
	}

	if df := c.Parameters.DiversityFilter; df != nil {
		switch df.Name {
		case "IdenticalMurckoScaffold", "IdenticalTopologicalScaffold", "NoFilter":
		default:
			return errors.New(errors.ErrCodeRunConfigInvalid, "unknown diversity filter").
				WithDetail(fmt.Sprintf("name=%s", df.Name))
		}
		if df.MinScore < 0 || df.MinScore > 1 {
			return errors.New(errors.ErrCodeRunConfigInvalid, "diversity filter minscore must be within [0,1]").
				WithDetail(fmt.Sprintf("minscore=%g", df.MinScore))
		}
	}

	if err := c.Parameters.ScoringFunction.Validate(); err != nil {
		return err
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Loading
// ─────────────────────────────────────────────────────────────────────────────

// ParseRunConfig decodes, defaults, and validates a run document from a reader.
func ParseRunConfig(r io.Reader) (*RunConfig, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var cfg RunConfig
	if err := dec.Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRunConfigInvalid, "malformed run configuration document")
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadRunConfig reads a run document from a JSON file.
func LoadRunConfig(path string) (*RunConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRunConfigInvalid, "cannot open run configuration file").
			WithDetail(path)
	}
	defer f.Close()
	return ParseRunConfig(f)
}

//Personal.AI order the ending
