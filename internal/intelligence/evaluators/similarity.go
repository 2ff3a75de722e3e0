package evaluators

import (
	"context"

	"github.com/turtacn/MolScore/internal/domain/molecule"
	"github.com/turtacn/MolScore/internal/domain/scoring"
	"github.com/turtacn/MolScore/pkg/errors"
	mtypes "github.com/turtacn/MolScore/pkg/types/molecule"
)

// newTanimotoSimilarity builds an evaluator returning the highest fingerprint
// similarity between the molecule and a configured reference SMILES set.
//
// specific_parameters:
//
//	smiles      — required reference SMILES list
//	metric      — optional, "tanimoto" (default), "dice" or "cosine"
//	fingerprint — optional, "morgan" (default), "maccs" or "topological"
//
// The reference set is parsed and fingerprinted once at construction, so a
// bad reference list fails the configuration load, not the run.
func newTanimotoSimilarity(cfg scoring.ComponentConfig, deps Deps) (scoring.Evaluator, error) {
	refSMILES, err := requiredPatterns(cfg, "smiles")
	if err != nil {
		return nil, err
	}

	metricName, err := cfg.StringParam("metric", string(molecule.MetricTanimoto))
	if err != nil {
		return nil, err
	}
	metric, err := molecule.ParseSimilarityMetric(metricName)
	if err != nil {
		return nil, err
	}

	fpName, err := cfg.StringParam("fingerprint", string(mtypes.FPMorgan))
	if err != nil {
		return nil, err
	}
	fpType, err := parseFingerprintType(fpName)
	if err != nil {
		return nil, err
	}

	refSet, err := deps.molecules().LoadReferenceSet(context.Background(), refSMILES, fpType)
	if err != nil {
		return nil, err
	}

	return scoring.EvaluatorFunc(func(_ context.Context, mol *molecule.Molecule) (float64, error) {
		if mol == nil {
			return 0, errors.New(errors.ErrCodeAIInputInvalid, "molecule is nil")
		}
		return refSet.MaxSimilarity(mol, metric)
	}), nil
}

func parseFingerprintType(s string) (mtypes.FingerprintType, error) {
	switch mtypes.FingerprintType(s) {
	case mtypes.FPMorgan, mtypes.FPMACCS, mtypes.FPTopological:
		return mtypes.FingerprintType(s), nil
	}
	return "", errors.Newf(errors.ErrCodeFingerprintTypeUnsupported,
		"unsupported fingerprint type %q", s)
}

//Personal.AI order the ending
