// Package scoring defines Data Transfer Objects for scoring requests and
// results exchanged between the application, interface, and client layers.
// No aggregation logic lives here.
package scoring

import (
	"github.com/turtacn/MolScore/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// Function and transformation identifiers
// ─────────────────────────────────────────────────────────────────────────────

// FunctionName identifies the aggregation strategy of a scoring function.
type FunctionName string

const (
	// FunctionCustomProduct aggregates components as a weighted geometric mean.
	FunctionCustomProduct FunctionName = "custom_product"

	// FunctionCustomSum aggregates components as a weighted arithmetic mean.
	FunctionCustomSum FunctionName = "custom_sum"
)

// IsValid reports whether the function name is one of the supported strategies.
func (f FunctionName) IsValid() bool {
	switch f {
	case FunctionCustomProduct, FunctionCustomSum:
		return true
	}
	return false
}

// TransformType identifies the shaping curve applied to a raw component value.
type TransformType string

const (
	TransformSigmoid        TransformType = "sigmoid"
	TransformReverseSigmoid TransformType = "reverse_sigmoid"
	TransformDoubleSigmoid  TransformType = "double_sigmoid"
	TransformNone           TransformType = "no_transformation"
)

// IsValid reports whether the transform type is supported.
func (tt TransformType) IsValid() bool {
	switch tt {
	case TransformSigmoid, TransformReverseSigmoid, TransformDoubleSigmoid, TransformNone:
		return true
	}
	return false
}

// ─────────────────────────────────────────────────────────────────────────────
// Score result DTOs
// ─────────────────────────────────────────────────────────────────────────────

// ComponentScoreDTO carries the per-component contribution for one molecule.
type ComponentScoreDTO struct {
	// Name is the component's configured display name.
	Name string `json:"name"`

	// ComponentType is the registered evaluator tag (e.g. "tanimoto_similarity").
	ComponentType string `json:"component_type"`

	// Raw is the untransformed evaluator output.  Zero when Failed is true.
	Raw float64 `json:"raw"`

	// Transformed is the shaped value in [0,1] that entered the aggregation.
	Transformed float64 `json:"transformed"`

	// Weight is the component's configured weight.
	Weight float64 `json:"weight"`

	// Failed marks an evaluator failure; the component contributed zero.
	Failed bool `json:"failed,omitempty"`
}

// MoleculeScoreDTO is the full scoring result for one molecule.
type MoleculeScoreDTO struct {
	// SMILES is the scored molecule, echoed back in input order.
	SMILES string `json:"smiles"`

	// Total is the aggregated score in [0,1].
	Total float64 `json:"total"`

	// Components holds the per-component breakdown in configuration order.
	Components []ComponentScoreDTO `json:"components"`
}

// ScoreRequest is the input DTO for batch scoring calls.
type ScoreRequest struct {
	// SMILES lists the molecules to score.  Order is preserved in the response.
	SMILES []string `json:"smiles"`
}

// ScoreResponse is the output DTO for batch scoring calls.
type ScoreResponse struct {
	// FunctionName echoes the configured aggregation strategy.
	FunctionName FunctionName `json:"function_name"`

	// Scores holds one entry per input molecule, in input order.
	Scores []MoleculeScoreDTO `json:"scores"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Run DTOs
// ─────────────────────────────────────────────────────────────────────────────

// RunStatus is the lifecycle state of a generative run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusAborted   RunStatus = "aborted"
)

// RunDTO summarizes a generative run for API consumers.
type RunDTO struct {
	common.BaseEntity

	// Name is the run's display name, taken from the scoring function config.
	Name string `json:"name"`

	// RunType is the top-level run_type of the submitted configuration.
	RunType string `json:"run_type"`

	// Status is the run's current lifecycle state.
	Status RunStatus `json:"status"`

	// Steps is the number of completed steps.
	Steps int `json:"steps"`

	// BestScore is the highest per-molecule total observed so far.
	BestScore float64 `json:"best_score"`

	// ArtifactURI points at the scores CSV uploaded to object storage, when set.
	ArtifactURI string `json:"artifact_uri,omitempty"`
}

// StepRecordDTO is one step of a run as published to consumers.
type StepRecordDTO struct {
	// RunID identifies the owning run.
	RunID common.ID `json:"run_id"`

	// Step is the zero-based step index.
	Step int `json:"step"`

	// Scores holds the per-molecule results for the step's batch.
	Scores []MoleculeScoreDTO `json:"scores"`

	// MeanScore is the arithmetic mean of Scores' totals.
	MeanScore float64 `json:"mean_score"`
}

//Personal.AI order the ending
