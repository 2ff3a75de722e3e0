package evaluators

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MolScore/pkg/errors"
)

func TestTanimotoSimilarity_IdenticalMolecule(t *testing.T) {
	ev, err := newTanimotoSimilarity(component(TypeTanimotoSimilarity,
		map[string]interface{}{"smiles": []interface{}{"CCO", "c1ccccc1"}}), Deps{})
	require.NoError(t, err)

	v, err := ev.Evaluate(context.Background(), testMol(t, "CCO"))
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)
}

func TestTanimotoSimilarity_UnrelatedMoleculeScoresLower(t *testing.T) {
	ev, err := newTanimotoSimilarity(component(TypeTanimotoSimilarity,
		map[string]interface{}{"smiles": []interface{}{"CCO"}}), Deps{})
	require.NoError(t, err)

	identical, err := ev.Evaluate(context.Background(), testMol(t, "CCO"))
	require.NoError(t, err)
	unrelated, err := ev.Evaluate(context.Background(), testMol(t, "c1ccccc1CSc1ccccc1"))
	require.NoError(t, err)

	assert.Less(t, unrelated, identical)
}

func TestTanimotoSimilarity_MetricAndFingerprintOptions(t *testing.T) {
	ev, err := newTanimotoSimilarity(component(TypeTanimotoSimilarity,
		map[string]interface{}{
			"smiles":      []interface{}{"CCO"},
			"metric":      "dice",
			"fingerprint": "maccs",
		}), Deps{})
	require.NoError(t, err)

	v, err := ev.Evaluate(context.Background(), testMol(t, "CCO"))
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)
}

func TestTanimotoSimilarity_ConfigErrors(t *testing.T) {
	tests := []struct {
		name     string
		params   map[string]interface{}
		wantCode errors.ErrorCode
	}{
		{
			"MissingReferenceSet",
			nil,
			errors.ErrCodeComponentParamsInvalid,
		},
		{
			"UnsupportedMetric",
			map[string]interface{}{"smiles": []interface{}{"CCO"}, "metric": "soergel"},
			errors.ErrCodeSimilarityMetricUnsupported,
		},
		{
			"UnsupportedFingerprint",
			map[string]interface{}{"smiles": []interface{}{"CCO"}, "fingerprint": "pharmacophore"},
			errors.ErrCodeFingerprintTypeUnsupported,
		},
		{
			"AllReferencesInvalid",
			map[string]interface{}{"smiles": []interface{}{"not a smiles!!"}},
			errors.ErrCodeReferenceSetEmpty,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTanimotoSimilarity(component(TypeTanimotoSimilarity, tt.params), Deps{})
			assert.True(t, errors.IsCode(err, tt.wantCode), "got %v", err)
		})
	}
}

//Personal.AI order the ending
