package scoring

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/turtacn/MolScore/internal/domain/molecule"
	"github.com/turtacn/MolScore/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Component Configuration
// ─────────────────────────────────────────────────────────────────────────────

// ComponentConfig describes one scoring component: which evaluator to run,
// how much its value weighs in the aggregate, and the evaluator-specific
// parameters including the optional transformation block.
type ComponentConfig struct {
	// ComponentType is the registered evaluator tag, e.g. "molecular_weight"
	// or "tanimoto_similarity".
	ComponentType string `json:"component_type" mapstructure:"component_type"`

	// Name is the display name used in results and logs.  Defaults to the
	// component type when empty.
	Name string `json:"name" mapstructure:"name"`

	// Weight is the component's relative importance.  Must be positive.
	Weight float64 `json:"weight" mapstructure:"weight"`

	// SpecificParameters carries evaluator-specific settings.  The reserved
	// "transformation" key holds the TransformConfig block.
	SpecificParameters map[string]interface{} `json:"specific_parameters,omitempty" mapstructure:"specific_parameters"`
}

// ApplyDefaults fills the display name from the component type when unset.
func (c *ComponentConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = c.ComponentType
	}
}

// Validate checks the component configuration, returning the first violation.
func (c *ComponentConfig) Validate() error {
	if c.ComponentType == "" {
		return errors.New(errors.ErrCodeScoringConfigInvalid, "component_type cannot be empty")
	}
	if c.Weight <= 0 {
		return errors.New(errors.ErrCodeComponentWeightInvalid, "component weight must be positive").
			WithDetail(fmt.Sprintf("component=%s weight=%g", c.ComponentType, c.Weight))
	}
	return nil
}

// Transformation extracts and validates the transformation block from the
// component's specific parameters.  A missing block means no transformation.
func (c *ComponentConfig) Transformation() (TransformConfig, error) {
	cfg := TransformConfig{}
	raw, ok := c.SpecificParameters["transformation"]
	if !ok {
		cfg.ApplyDefaults()
		return cfg, nil
	}

	// Round-trip through JSON to decode the loosely typed map.
	buf, err := json.Marshal(raw)
	if err != nil {
		return cfg, errors.Wrap(err, errors.ErrCodeTransformParamsInvalid, "transformation block is not an object").
			WithDetail(fmt.Sprintf("component=%s", c.ComponentType))
	}
	if err := json.Unmarshal(buf, &cfg); err != nil {
		return cfg, errors.Wrap(err, errors.ErrCodeTransformParamsInvalid, "malformed transformation block").
			WithDetail(fmt.Sprintf("component=%s", c.ComponentType))
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Typed parameter accessors
// ─────────────────────────────────────────────────────────────────────────────

// FloatParam returns the named specific parameter as a float64, or the
// fallback when absent.  JSON numbers decode as float64; integer values are
// widened.
func (c *ComponentConfig) FloatParam(key string, fallback float64) (float64, error) {
	raw, ok := c.SpecificParameters[key]
	if !ok {
		return fallback, nil
	}
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err == nil {
			return f, nil
		}
	}
	return 0, errors.New(errors.ErrCodeComponentParamsInvalid, "parameter is not numeric").
		WithDetail(fmt.Sprintf("component=%s key=%s", c.ComponentType, key))
}

// StringParam returns the named specific parameter as a string, or the
// fallback when absent.
func (c *ComponentConfig) StringParam(key, fallback string) (string, error) {
	raw, ok := c.SpecificParameters[key]
	if !ok {
		return fallback, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", errors.New(errors.ErrCodeComponentParamsInvalid, "parameter is not a string").
			WithDetail(fmt.Sprintf("component=%s key=%s", c.ComponentType, key))
	}
	return s, nil
}

// StringSliceParam returns the named specific parameter as a string slice.
// An absent key yields a nil slice.
func (c *ComponentConfig) StringSliceParam(key string) ([]string, error) {
	raw, ok := c.SpecificParameters[key]
	if !ok {
		return nil, nil
	}
	switch v := raw.(type) {
	case []string:
		return v, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, errors.New(errors.ErrCodeComponentParamsInvalid, "parameter list contains a non-string entry").
					WithDetail(fmt.Sprintf("component=%s key=%s", c.ComponentType, key))
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, errors.New(errors.ErrCodeComponentParamsInvalid, "parameter is not a string list").
		WithDetail(fmt.Sprintf("component=%s key=%s", c.ComponentType, key))
}

// ─────────────────────────────────────────────────────────────────────────────
// Evaluator contract
// ─────────────────────────────────────────────────────────────────────────────

// Evaluator produces the raw, untransformed value for one component.  A
// returned error marks the component failed for that molecule; it never
// aborts the batch.
type Evaluator interface {
	// Evaluate computes the raw component value for a molecule.
	Evaluate(ctx context.Context, mol *molecule.Molecule) (float64, error)
}

// EvaluatorFunc adapts a plain function to the Evaluator interface.
type EvaluatorFunc func(ctx context.Context, mol *molecule.Molecule) (float64, error)

// Evaluate implements Evaluator.
func (f EvaluatorFunc) Evaluate(ctx context.Context, mol *molecule.Molecule) (float64, error) {
	return f(ctx, mol)
}

// EvaluatorRegistry resolves component types to ready evaluators.  The
// intelligence layer provides the production implementation; tests supply
// fakes.
type EvaluatorRegistry interface {
	// Create builds an evaluator for the component, or an error with code
	// ErrCodeComponentTypeUnknown when the type is not registered.
	Create(cfg ComponentConfig) (Evaluator, error)
}

//Personal.AI order the ending
