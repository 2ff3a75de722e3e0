package evaluators

import (
	"context"
	"math"
	"time"

	"github.com/turtacn/MolScore/internal/domain/molecule"
	"github.com/turtacn/MolScore/internal/domain/scoring"
	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolScore/internal/intelligence/common"
	"github.com/turtacn/MolScore/pkg/errors"
)

const (
	defaultDockingTries   = 3
	dockingRetryBackoff   = 500 * time.Millisecond
	dockingRetryMaxFactor = 4
)

// newDockStream builds an evaluator that submits the molecule to the docking
// service and returns the raw binding score. Docking backends are flaky, so
// the component retries up to failure_policy.n_tries times before giving up
// and letting the score drop to zero.
//
// specific_parameters:
//
//	configuration  — required docking configuration name
//	failure_policy — optional {"n_tries": N}, default 3
func newDockStream(cfg scoring.ComponentConfig, deps Deps) (scoring.Evaluator, error) {
	if deps.Docking == nil {
		return nil, errors.New(errors.ErrCodeAIModelNotAvailable,
			"dockstream requires a docking client")
	}

	configuration, err := cfg.StringParam("configuration", "")
	if err != nil {
		return nil, err
	}
	if configuration == "" {
		return nil, errors.New(errors.ErrCodeComponentParamsInvalid,
			"dockstream requires a \"configuration\" parameter")
	}

	tries, err := dockingTries(cfg)
	if err != nil {
		return nil, err
	}

	docking := deps.Docking
	logger := deps.logger().Named("dockstream")

	return scoring.EvaluatorFunc(func(ctx context.Context, mol *molecule.Molecule) (float64, error) {
		if mol == nil {
			return 0, errors.New(errors.ErrCodeAIInputInvalid, "molecule is nil")
		}

		var lastErr error
		for attempt := 1; attempt <= tries; attempt++ {
			resp, err := docking.Dock(ctx, &common.DockingRequest{
				SMILES:        []string{mol.CanonicalSMILES},
				Configuration: configuration,
			})
			if err == nil {
				score := resp.Scores[0]
				if math.IsNaN(score) || math.IsInf(score, 0) {
					return 0, errors.Newf(errors.ErrCodeDockingFailed,
						"docking produced no pose for molecule %s", mol.CanonicalSMILES)
				}
				return score, nil
			}
			lastErr = err

			if ctx.Err() != nil {
				return 0, errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "docking cancelled")
			}
			if attempt == tries {
				break
			}

			backoff := dockingRetryBackoff * time.Duration(minInt(attempt, dockingRetryMaxFactor))
			logger.Warn("docking attempt failed, retrying",
				logging.String("configuration", configuration),
				logging.Int("attempt", attempt),
				logging.Int("max_tries", tries),
				logging.Duration("backoff", backoff),
				logging.Err(err))
			select {
			case <-ctx.Done():
				return 0, errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "docking cancelled during retry backoff")
			case <-time.After(backoff):
			}
		}

		return 0, errors.Wrap(lastErr, errors.ErrCodeDockingRetriesExhausted,
			"docking failed after all retries")
	}), nil
}

// dockingTries extracts failure_policy.n_tries, defaulting when the block or
// the key is absent.
func dockingTries(cfg scoring.ComponentConfig) (int, error) {
	raw, ok := cfg.SpecificParameters["failure_policy"]
	if !ok {
		return defaultDockingTries, nil
	}
	policy, ok := raw.(map[string]interface{})
	if !ok {
		return 0, errors.New(errors.ErrCodeComponentParamsInvalid,
			"failure_policy must be an object")
	}
	rawTries, ok := policy["n_tries"]
	if !ok {
		return defaultDockingTries, nil
	}

	var tries int
	switch v := rawTries.(type) {
	case float64:
		tries = int(v)
	case int:
		tries = v
	default:
		return 0, errors.New(errors.ErrCodeComponentParamsInvalid,
			"failure_policy.n_tries must be a number")
	}
	if tries < 1 {
		return 0, errors.New(errors.ErrCodeComponentParamsInvalid,
			"failure_policy.n_tries must be ≥ 1")
	}
	return tries, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

//Personal.AI order the ending
