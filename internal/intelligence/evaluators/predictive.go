package evaluators

import (
	"context"
	"math"

	"github.com/turtacn/MolScore/internal/domain/molecule"
	"github.com/turtacn/MolScore/internal/domain/scoring"
	"github.com/turtacn/MolScore/internal/intelligence/common"
	"github.com/turtacn/MolScore/pkg/errors"
)

// newPredictiveProperty builds an evaluator that asks the serving backend for
// a model-predicted property value.
//
// specific_parameters:
//
//	model   — required model name on the serving backend
//	version — optional version pin
func newPredictiveProperty(cfg scoring.ComponentConfig, deps Deps) (scoring.Evaluator, error) {
	if deps.Serving == nil {
		return nil, errors.New(errors.ErrCodeAIModelNotAvailable,
			"predictive_property requires a serving client")
	}

	model, err := cfg.StringParam("model", "")
	if err != nil {
		return nil, err
	}
	if model == "" {
		return nil, errors.New(errors.ErrCodeComponentParamsInvalid,
			"predictive_property requires a \"model\" parameter")
	}
	version, err := cfg.StringParam("version", "")
	if err != nil {
		return nil, err
	}

	serving := deps.Serving
	return scoring.EvaluatorFunc(func(ctx context.Context, mol *molecule.Molecule) (float64, error) {
		if mol == nil {
			return 0, errors.New(errors.ErrCodeAIInputInvalid, "molecule is nil")
		}

		resp, err := serving.Predict(ctx, &common.PredictRequest{
			Model:   model,
			Version: version,
			SMILES:  []string{mol.CanonicalSMILES},
		})
		if err != nil {
			return 0, err
		}
		if len(resp.Values) != 1 {
			return 0, errors.Newf(errors.ErrCodeAIInferenceFailed,
				"expected one value from model %s, got %d", model, len(resp.Values))
		}
		value := resp.Values[0]
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return 0, errors.Newf(errors.ErrCodeAIInferenceFailed,
				"model %s could not score molecule", model)
		}
		return value, nil
	}), nil
}

//Personal.AI order the ending
