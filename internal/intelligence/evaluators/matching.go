package evaluators

import (
	"context"

	"github.com/turtacn/MolScore/internal/domain/molecule"
	"github.com/turtacn/MolScore/internal/domain/scoring"
	"github.com/turtacn/MolScore/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Substructure components
// ─────────────────────────────────────────────────────────────────────────────

// newMatchingSubstructure rewards molecules containing at least one of the
// configured patterns: 1.0 on a match, 0.5 otherwise. The half score keeps
// non-matching molecules alive in a product aggregation instead of zeroing
// them out.
func newMatchingSubstructure(cfg scoring.ComponentConfig, _ Deps) (scoring.Evaluator, error) {
	patterns, err := requiredPatterns(cfg, "smiles")
	if err != nil {
		return nil, err
	}

	return scoring.EvaluatorFunc(func(_ context.Context, mol *molecule.Molecule) (float64, error) {
		matched, err := matchesAny(mol, patterns)
		if err != nil {
			return 0, err
		}
		if matched {
			return 1.0, nil
		}
		return 0.5, nil
	}), nil
}

// newCustomAlerts penalises molecules containing any of the configured alert
// patterns: 0.0 on a hit, 1.0 when clean.
func newCustomAlerts(cfg scoring.ComponentConfig, _ Deps) (scoring.Evaluator, error) {
	patterns, err := requiredPatterns(cfg, "smiles")
	if err != nil {
		return nil, err
	}

	return scoring.EvaluatorFunc(func(_ context.Context, mol *molecule.Molecule) (float64, error) {
		matched, err := matchesAny(mol, patterns)
		if err != nil {
			return 0, err
		}
		if matched {
			return 0.0, nil
		}
		return 1.0, nil
	}), nil
}

func requiredPatterns(cfg scoring.ComponentConfig, key string) ([]string, error) {
	patterns, err := cfg.StringSliceParam(key)
	if err != nil {
		return nil, err
	}
	if len(patterns) == 0 {
		return nil, errors.Newf(errors.ErrCodeComponentParamsInvalid,
			"component %q requires a non-empty %q parameter", cfg.ComponentType, key)
	}
	for _, p := range patterns {
		if p == "" {
			return nil, errors.Newf(errors.ErrCodeComponentParamsInvalid,
				"component %q has an empty pattern in %q", cfg.ComponentType, key)
		}
	}
	return patterns, nil
}

func matchesAny(mol *molecule.Molecule, patterns []string) (bool, error) {
	if mol == nil {
		return false, errors.New(errors.ErrCodeAIInputInvalid, "molecule is nil")
	}
	for _, p := range patterns {
		ok, err := mol.ContainsSubstructure(p)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

//Personal.AI order the ending
