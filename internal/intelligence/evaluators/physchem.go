package evaluators

import (
	"context"
	"math"

	"github.com/turtacn/MolScore/internal/domain/molecule"
	"github.com/turtacn/MolScore/internal/domain/scoring"
	"github.com/turtacn/MolScore/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Descriptor evaluators
// ─────────────────────────────────────────────────────────────────────────────

// descriptor wraps a property getter into an evaluator that makes sure the
// molecule's descriptors are computed first.
func descriptor(get func(p molecule.MolecularProperties) float64) scoring.Evaluator {
	return scoring.EvaluatorFunc(func(_ context.Context, mol *molecule.Molecule) (float64, error) {
		if mol == nil {
			return 0, errors.New(errors.ErrCodeAIInputInvalid, "molecule is nil")
		}
		if mol.Properties == (molecule.MolecularProperties{}) {
			if err := mol.CalculateProperties(); err != nil {
				return 0, err
			}
		}
		return get(mol.Properties), nil
	})
}

func newMolecularWeight(_ scoring.ComponentConfig, _ Deps) (scoring.Evaluator, error) {
	return descriptor(func(p molecule.MolecularProperties) float64 {
		return p.MolecularWeight
	}), nil
}

func newNumRotatableBonds(_ scoring.ComponentConfig, _ Deps) (scoring.Evaluator, error) {
	return descriptor(func(p molecule.MolecularProperties) float64 {
		return float64(p.RotatableBonds)
	}), nil
}

func newNumHBDLipinski(_ scoring.ComponentConfig, _ Deps) (scoring.Evaluator, error) {
	return descriptor(func(p molecule.MolecularProperties) float64 {
		return float64(p.HBondDonors)
	}), nil
}

func newTPSA(_ scoring.ComponentConfig, _ Deps) (scoring.Evaluator, error) {
	return descriptor(func(p molecule.MolecularProperties) float64 {
		return p.TPSA
	}), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Drug-likeness score
// ─────────────────────────────────────────────────────────────────────────────

// newQEDScore builds a QED-style drug-likeness evaluator: the geometric mean
// of per-descriptor desirability curves, yielding a value in [0,1]. The
// curves are coarse Gaussian desirabilities centred on typical drug-like
// ranges, not the published QED fit.
func newQEDScore(_ scoring.ComponentConfig, _ Deps) (scoring.Evaluator, error) {
	return descriptor(func(p molecule.MolecularProperties) float64 {
		desirabilities := []float64{
			gaussianDesirability(p.MolecularWeight, 300, 150),
			gaussianDesirability(p.LogP, 2.5, 2.5),
			gaussianDesirability(p.TPSA, 80, 60),
			gaussianDesirability(float64(p.HBondDonors), 1.5, 2.5),
			gaussianDesirability(float64(p.HBondAcceptors), 4, 4),
			gaussianDesirability(float64(p.RotatableBonds), 4, 4),
			gaussianDesirability(float64(p.AromaticRings), 2, 2),
		}

		logSum := 0.0
		for _, d := range desirabilities {
			if d < 1e-6 {
				d = 1e-6
			}
			logSum += math.Log(d)
		}
		return math.Exp(logSum / float64(len(desirabilities)))
	}), nil
}

// gaussianDesirability peaks at 1 when x equals the centre and falls off with
// the given width.
func gaussianDesirability(x, centre, width float64) float64 {
	d := (x - centre) / width
	return math.Exp(-0.5 * d * d)
}

//Personal.AI order the ending
