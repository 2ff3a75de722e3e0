// Package scoring implements the composable scoring function domain: score
// transformations, weighted components, and the aggregation strategies that
// combine per-component values into a single reward per molecule.
package scoring

import (
	"fmt"
	"math"

	"github.com/turtacn/MolScore/pkg/errors"
	stypes "github.com/turtacn/MolScore/pkg/types/scoring"
)

// ─────────────────────────────────────────────────────────────────────────────
// Transformation Configuration
// ─────────────────────────────────────────────────────────────────────────────

// Default shape parameters applied when the configuration leaves them zero.
const (
	defaultK       = 1.0
	defaultCoefDiv = 100.0
	defaultCoefSI  = 150.0
	defaultCoefSE  = 150.0
)

// TransformConfig describes how a raw component value is shaped into [0,1]
// before weighting.  It is typically decoded from the component's
// specific_parameters.transformation block.
type TransformConfig struct {
	// Type selects the shaping curve.
	Type stypes.TransformType `json:"transformation_type" mapstructure:"transformation_type"`

	// Low and High bound the transition region of the curve.
	Low  float64 `json:"low" mapstructure:"low"`
	High float64 `json:"high" mapstructure:"high"`

	// K controls the steepness of sigmoid and reverse_sigmoid.
	K float64 `json:"k,omitempty" mapstructure:"k"`

	// CoefDiv, CoefSI and CoefSE shape double_sigmoid: CoefDiv scales the
	// input, CoefSI steers the rising edge at Low, CoefSE the falling edge
	// at High.
	CoefDiv float64 `json:"coef_div,omitempty" mapstructure:"coef_div"`
	CoefSI  float64 `json:"coef_si,omitempty" mapstructure:"coef_si"`
	CoefSE  float64 `json:"coef_se,omitempty" mapstructure:"coef_se"`
}

// ApplyDefaults fills zero-valued shape parameters with their defaults.
func (c *TransformConfig) ApplyDefaults() {
	if c.Type == "" {
		c.Type = stypes.TransformNone
	}
	if c.K == 0 {
		c.K = defaultK
	}
	if c.CoefDiv == 0 {
		c.CoefDiv = defaultCoefDiv
	}
	if c.CoefSI == 0 {
		c.CoefSI = defaultCoefSI
	}
	if c.CoefSE == 0 {
		c.CoefSE = defaultCoefSE
	}
}

// Validate checks the configuration, returning the first violation found.
// Unknown transform types and inverted bounds are rejected here so that a bad
// configuration fails at load time, never mid-run.
func (c *TransformConfig) Validate() error {
	if !c.Type.IsValid() {
		return errors.New(errors.ErrCodeTransformTypeUnknown, "unknown transformation type").
			WithDetail(fmt.Sprintf("transformation_type=%s", c.Type))
	}
	if c.Type == stypes.TransformNone {
		return nil
	}
	if c.Low >= c.High {
		return errors.New(errors.ErrCodeTransformParamsInvalid, "transformation requires low < high").
			WithDetail(fmt.Sprintf("low=%g high=%g", c.Low, c.High))
	}
	if c.Type == stypes.TransformDoubleSigmoid && c.CoefDiv < 0 {
		return errors.New(errors.ErrCodeTransformParamsInvalid, "coef_div must be positive").
			WithDetail(fmt.Sprintf("coef_div=%g", c.CoefDiv))
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Transform Functions
// ─────────────────────────────────────────────────────────────────────────────

// TransformFunc shapes a raw component value into [0,1].
type TransformFunc func(raw float64) float64

// NewTransform validates the configuration and returns the corresponding
// shaping function.  Returned functions are pure and safe for concurrent use.
func NewTransform(cfg TransformConfig) (TransformFunc, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case stypes.TransformSigmoid:
		return sigmoidTransform(cfg.Low, cfg.High, cfg.K, false), nil
	case stypes.TransformReverseSigmoid:
		return sigmoidTransform(cfg.Low, cfg.High, cfg.K, true), nil
	case stypes.TransformDoubleSigmoid:
		return doubleSigmoidTransform(cfg.Low, cfg.High, cfg.CoefDiv, cfg.CoefSI, cfg.CoefSE), nil
	case stypes.TransformNone:
		return clamp01, nil
	default:
		return nil, errors.New(errors.ErrCodeTransformTypeUnknown, "unknown transformation type").
			WithDetail(fmt.Sprintf("transformation_type=%s", cfg.Type))
	}
}

// logistic10 is the base-10 logistic function 1 / (1 + 10^(-a)).  Extreme
// arguments saturate cleanly to 0 or 1 through IEEE infinity semantics.
func logistic10(a float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, -a))
}

// sigmoidTransform maps values through a base-10 sigmoid centred on the
// midpoint of [low, high].  The curve passes 0.5 at the midpoint and its
// steepness grows with k and shrinks with the width of the interval.  The
// reversed variant mirrors the curve so that low raw values score high.
func sigmoidTransform(low, high, k float64, reversed bool) TransformFunc {
	mid := (low + high) / 2
	scale := 10.0 / (high - low)
	return func(raw float64) float64 {
		a := k * (raw - mid) * scale
		if reversed {
			a = -a
		}
		return clamp01(logistic10(a))
	}
}

// doubleSigmoidTransform produces a bell-shaped curve: near 1 between low and
// high, falling toward 0 outside.  It is the difference of a rising logistic
// at low and a falling logistic at high.
func doubleSigmoidTransform(low, high, coefDiv, coefSI, coefSE float64) TransformFunc {
	return func(raw float64) float64 {
		rise := logistic10(coefSI * (raw - low) / coefDiv)
		fall := logistic10(coefSE * (raw - high) / coefDiv)
		return clamp01(rise - fall)
	}
}

// clamp01 bounds a value to the [0,1] interval.
func clamp01(v float64) float64 {
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

//Personal.AI order the ending
