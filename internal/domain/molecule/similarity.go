package molecule

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/turtacn/MolScore/pkg/errors"
)

// SimilarityMetric defines the algorithm used for molecular similarity measurement.
type SimilarityMetric string

const (
	MetricTanimoto SimilarityMetric = "tanimoto"
	MetricDice     SimilarityMetric = "dice"
	MetricCosine   SimilarityMetric = "cosine"
)

// IsValid checks if the similarity metric is valid.
func (m SimilarityMetric) IsValid() bool {
	switch m {
	case MetricTanimoto, MetricDice, MetricCosine:
		return true
	default:
		return false
	}
}

// String returns the string representation of the similarity metric.
func (m SimilarityMetric) String() string {
	return string(m)
}

// ParseSimilarityMetric parses a string into a SimilarityMetric.
func ParseSimilarityMetric(s string) (SimilarityMetric, error) {
	m := SimilarityMetric(s)
	if !m.IsValid() {
		return "", errors.New(errors.ErrCodeSimilarityMetricUnsupported, "unsupported similarity metric").
			WithDetail(fmt.Sprintf("metric=%s", s))
	}
	return m, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Similarity Calculators
// ─────────────────────────────────────────────────────────────────────────────

// SimilarityCalculator computes the similarity between two fingerprints of the
// same length.  All implementations return values in [0.0, 1.0].
type SimilarityCalculator interface {
	Calculate(fp1, fp2 *Fingerprint) (float64, error)
	Metric() SimilarityMetric
}

// NewSimilarityCalculator returns the calculator for the given metric.
func NewSimilarityCalculator(metric SimilarityMetric) (SimilarityCalculator, error) {
	switch metric {
	case MetricTanimoto:
		return tanimotoCalculator{}, nil
	case MetricDice:
		return diceCalculator{}, nil
	case MetricCosine:
		return cosineCalculator{}, nil
	default:
		return nil, errors.New(errors.ErrCodeSimilarityMetricUnsupported, "unsupported similarity metric").
			WithDetail(fmt.Sprintf("metric=%s", metric))
	}
}

// bitCounts returns |A∩B|, |A|, |B| for two fingerprints, validating that the
// vectors are comparable.
func bitCounts(fp1, fp2 *Fingerprint) (common, a, b int, err error) {
	if fp1 == nil || fp2 == nil {
		return 0, 0, 0, errors.New(errors.ErrCodeFingerprintLengthMismatch, "fingerprint is nil")
	}
	if fp1.Length != fp2.Length {
		return 0, 0, 0, errors.New(errors.ErrCodeFingerprintLengthMismatch, "fingerprint lengths do not match").
			WithDetail(fmt.Sprintf("len1=%d len2=%d", fp1.Length, fp2.Length))
	}

	for i := range fp1.Bits {
		common += bits.OnesCount8(fp1.Bits[i] & fp2.Bits[i])
	}
	return common, fp1.NumOnBits, fp2.NumOnBits, nil
}

// tanimotoCalculator implements the Tanimoto (Jaccard) coefficient:
// T(A,B) = |A∩B| / (|A| + |B| - |A∩B|)
type tanimotoCalculator struct{}

func (tanimotoCalculator) Metric() SimilarityMetric { return MetricTanimoto }

func (tanimotoCalculator) Calculate(fp1, fp2 *Fingerprint) (float64, error) {
	c, a, b, err := bitCounts(fp1, fp2)
	if err != nil {
		return 0, err
	}
	union := a + b - c
	if union == 0 {
		// Both fingerprints empty: identical by convention.
		return 1.0, nil
	}
	return float64(c) / float64(union), nil
}

// diceCalculator implements the Dice coefficient:
// D(A,B) = 2|A∩B| / (|A| + |B|)
type diceCalculator struct{}

func (diceCalculator) Metric() SimilarityMetric { return MetricDice }

func (diceCalculator) Calculate(fp1, fp2 *Fingerprint) (float64, error) {
	c, a, b, err := bitCounts(fp1, fp2)
	if err != nil {
		return 0, err
	}
	if a+b == 0 {
		return 1.0, nil
	}
	return 2.0 * float64(c) / float64(a+b), nil
}

// cosineCalculator implements the cosine coefficient on bit vectors:
// C(A,B) = |A∩B| / sqrt(|A|·|B|)
type cosineCalculator struct{}

func (cosineCalculator) Metric() SimilarityMetric { return MetricCosine }

func (cosineCalculator) Calculate(fp1, fp2 *Fingerprint) (float64, error) {
	c, a, b, err := bitCounts(fp1, fp2)
	if err != nil {
		return 0, err
	}
	if a == 0 && b == 0 {
		return 1.0, nil
	}
	if a == 0 || b == 0 {
		return 0.0, nil
	}
	return float64(c) / math.Sqrt(float64(a)*float64(b)), nil
}

// TanimotoSimilarity is a convenience wrapper for the most common metric.
func TanimotoSimilarity(fp1, fp2 *Fingerprint) (float64, error) {
	return tanimotoCalculator{}.Calculate(fp1, fp2)
}

// ─────────────────────────────────────────────────────────────────────────────
// Similarity Classification
// ─────────────────────────────────────────────────────────────────────────────

// SimilarityClass buckets a similarity value into a qualitative category.
type SimilarityClass string

const (
	SimilarityIdentical SimilarityClass = "identical"
	SimilarityHigh      SimilarityClass = "high"
	SimilarityModerate  SimilarityClass = "moderate"
	SimilarityLow       SimilarityClass = "low"
	SimilarityNone      SimilarityClass = "none"
)

// ClassifySimilarity maps a similarity score in [0,1] to a qualitative class
// using thresholds conventional for Tanimoto on circular fingerprints.
func ClassifySimilarity(score float64) SimilarityClass {
	switch {
	case score >= 0.99:
		return SimilarityIdentical
	case score >= 0.85:
		return SimilarityHigh
	case score >= 0.55:
		return SimilarityModerate
	case score >= 0.30:
		return SimilarityLow
	default:
		return SimilarityNone
	}
}

//Personal.AI order the ending
