// Package common provides the shared plumbing of the intelligence layer:
// request/response types for the property-prediction serving backend and the
// docking service, the HTTP clients that talk to them, a generic batch
// execution engine, and the metrics contract the whole layer reports through.
package common

import (
	"strings"

	"github.com/turtacn/MolScore/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Property prediction
// ─────────────────────────────────────────────────────────────────────────────

// PredictRequest asks the serving backend to predict one property for a batch
// of molecules. SMILES entries are sent verbatim; canonicalisation is the
// caller's concern.
type PredictRequest struct {
	// Model is the name the backend knows the property model by,
	// e.g. "solubility_dnn" or "herg_classifier".
	Model string `json:"model"`

	// Version optionally pins a model version. Empty means "latest".
	Version string `json:"version,omitempty"`

	// SMILES is the ordered batch to predict for.
	SMILES []string `json:"smiles"`
}

// Validate checks the request before it is put on the wire.
func (r *PredictRequest) Validate() error {
	if r == nil {
		return errors.New(errors.ErrCodeAIInputInvalid, "predict request is nil")
	}
	if strings.TrimSpace(r.Model) == "" {
		return errors.New(errors.ErrCodeAIInputInvalid, "predict request model name is empty")
	}
	if len(r.SMILES) == 0 {
		return errors.New(errors.ErrCodeAIInputInvalid, "predict request contains no molecules")
	}
	for i, s := range r.SMILES {
		if strings.TrimSpace(s) == "" {
			return errors.Newf(errors.ErrCodeAIInputInvalid, "predict request entry %d is empty", i)
		}
	}
	return nil
}

// PredictResponse carries one predicted value per input molecule, in input
// order. A NaN value signals that the backend could not score that entry.
type PredictResponse struct {
	Model   string    `json:"model"`
	Version string    `json:"version"`
	Values  []float64 `json:"values"`
}

// ValidateAgainst verifies the response is coherent with the request it
// answers: same model, one value per input.
func (r *PredictResponse) ValidateAgainst(req *PredictRequest) error {
	if r == nil {
		return errors.New(errors.ErrCodeAIInferenceFailed, "predict response is nil")
	}
	if req != nil && r.Model != "" && r.Model != req.Model {
		return errors.Newf(errors.ErrCodeAIModelVersionMismatch,
			"predict response is for model %q, requested %q", r.Model, req.Model)
	}
	if req != nil && len(r.Values) != len(req.SMILES) {
		return errors.Newf(errors.ErrCodeAIInferenceFailed,
			"predict response has %d values for %d molecules", len(r.Values), len(req.SMILES))
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Docking
// ─────────────────────────────────────────────────────────────────────────────

// DockingRequest submits a batch of molecules to the docking service.
type DockingRequest struct {
	// SMILES is the ordered batch to dock.
	SMILES []string `json:"smiles"`

	// Configuration names the docking configuration (receptor, grid,
	// search parameters) registered on the docking service.
	Configuration string `json:"configuration"`
}

// Validate checks the request before submission.
func (r *DockingRequest) Validate() error {
	if r == nil {
		return errors.New(errors.ErrCodeAIInputInvalid, "docking request is nil")
	}
	if strings.TrimSpace(r.Configuration) == "" {
		return errors.New(errors.ErrCodeAIInputInvalid, "docking request configuration is empty")
	}
	if len(r.SMILES) == 0 {
		return errors.New(errors.ErrCodeAIInputInvalid, "docking request contains no molecules")
	}
	return nil
}

// DockingResponse carries one docking score per input molecule, in input
// order. Scores are raw binding energies; lower is better. A NaN score means
// docking failed for that entry.
type DockingResponse struct {
	Scores []float64 `json:"scores"`
}

// ValidateAgainst verifies score cardinality matches the request.
func (r *DockingResponse) ValidateAgainst(req *DockingRequest) error {
	if r == nil {
		return errors.New(errors.ErrCodeDockingFailed, "docking response is nil")
	}
	if req != nil && len(r.Scores) != len(req.SMILES) {
		return errors.Newf(errors.ErrCodeDockingFailed,
			"docking response has %d scores for %d molecules", len(r.Scores), len(req.SMILES))
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Chunking
// ─────────────────────────────────────────────────────────────────────────────

// ChunkStrings splits items into consecutive slices of at most size elements,
// preserving order. A size of zero or less yields a single chunk.
func ChunkStrings(items []string, size int) [][]string {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 || size >= len(items) {
		return [][]string{items}
	}
	chunks := make([][]string, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

//Personal.AI order the ending
