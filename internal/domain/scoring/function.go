package scoring

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/turtacn/MolScore/internal/domain/molecule"
	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolScore/pkg/errors"
	stypes "github.com/turtacn/MolScore/pkg/types/scoring"
)

// ─────────────────────────────────────────────────────────────────────────────
// Function Configuration
// ─────────────────────────────────────────────────────────────────────────────

// FunctionConfig describes a complete scoring function: the aggregation
// strategy, whether components evaluate concurrently, and the ordered
// component list.
type FunctionConfig struct {
	// Name selects the aggregation strategy.
	Name stypes.FunctionName `json:"name" mapstructure:"name"`

	// Parallel evaluates components concurrently per molecule when true.
	// Result order is always the configuration order either way.
	Parallel bool `json:"parallel,omitempty" mapstructure:"parallel"`

	// Components is the ordered component list.
	Components []ComponentConfig `json:"parameters" mapstructure:"parameters"`
}

// ApplyDefaults fills component display names.
func (c *FunctionConfig) ApplyDefaults() {
	for i := range c.Components {
		c.Components[i].ApplyDefaults()
	}
}

// Validate checks the whole configuration, returning the first violation.
func (c *FunctionConfig) Validate() error {
	if !c.Name.IsValid() {
		return errors.New(errors.ErrCodeScoringFunctionUnknown, "unknown scoring function name").
			WithDetail(fmt.Sprintf("name=%s", c.Name))
	}
	if len(c.Components) == 0 {
		return errors.New(errors.ErrCodeScoringComponentsEmpty, "scoring function needs at least one component")
	}
	for i := range c.Components {
		if err := c.Components[i].Validate(); err != nil {
			return err
		}
		// Transformation blocks are part of the load-time contract: a bad
		// curve must never surface mid-run.
		if _, err := c.Components[i].Transformation(); err != nil {
			return err
		}
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Score results
// ─────────────────────────────────────────────────────────────────────────────

// ComponentScore is the per-component outcome for one molecule.
type ComponentScore struct {
	Name          string
	ComponentType string
	Raw           float64
	Transformed   float64
	Weight        float64
	Failed        bool
}

// MoleculeScore is the full scoring outcome for one molecule.
type MoleculeScore struct {
	SMILES     string
	Total      float64
	Components []ComponentScore
}

// ToDTO converts the score to its transfer representation.
func (s MoleculeScore) ToDTO() stypes.MoleculeScoreDTO {
	dto := stypes.MoleculeScoreDTO{
		SMILES:     s.SMILES,
		Total:      s.Total,
		Components: make([]stypes.ComponentScoreDTO, len(s.Components)),
	}
	for i, c := range s.Components {
		dto.Components[i] = stypes.ComponentScoreDTO{
			Name:          c.Name,
			ComponentType: c.ComponentType,
			Raw:           c.Raw,
			Transformed:   c.Transformed,
			Weight:        c.Weight,
			Failed:        c.Failed,
		}
	}
	return dto
}

// ─────────────────────────────────────────────────────────────────────────────
// Scoring Function
// ─────────────────────────────────────────────────────────────────────────────

// boundComponent pairs a component configuration with its resolved evaluator
// and transform.
type boundComponent struct {
	cfg       ComponentConfig
	evaluator Evaluator
	transform TransformFunc
}

// Function is a fully bound scoring function, ready to score molecules.  It is
// immutable after construction and safe for concurrent use.
type Function struct {
	name       stypes.FunctionName
	parallel   bool
	components []boundComponent
	weightSum  float64
	logger     logging.Logger
}

// NewFunction validates the configuration, resolves every component through
// the registry, and compiles the transformation functions.  All configuration
// errors surface here so that scoring itself cannot fail on bad config.
func NewFunction(cfg FunctionConfig, registry EvaluatorRegistry, logger logging.Logger) (*Function, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	fn := &Function{
		name:     cfg.Name,
		parallel: cfg.Parallel,
		logger:   logger.Named("scoring"),
	}

	for _, comp := range cfg.Components {
		eval, err := registry.Create(comp)
		if err != nil {
			return nil, err
		}
		tcfg, err := comp.Transformation()
		if err != nil {
			return nil, err
		}
		transform, err := NewTransform(tcfg)
		if err != nil {
			return nil, err
		}
		fn.components = append(fn.components, boundComponent{
			cfg:       comp,
			evaluator: eval,
			transform: transform,
		})
		fn.weightSum += comp.Weight
	}

	return fn, nil
}

// Name returns the configured aggregation strategy.
func (f *Function) Name() stypes.FunctionName { return f.name }

// Components returns the number of bound components.
func (f *Function) Components() int { return len(f.components) }

// ComponentNames returns the component display names in configuration order.
func (f *Function) ComponentNames() []string {
	names := make([]string, len(f.components))
	for i, c := range f.components {
		names[i] = c.cfg.Name
	}
	return names
}

// Score evaluates all components for one molecule and aggregates the result.
// Evaluator failures zero that component's contribution and are logged, never
// propagated; the returned error covers only context cancellation.
func (f *Function) Score(ctx context.Context, mol *molecule.Molecule) (MoleculeScore, error) {
	scores := make([]ComponentScore, len(f.components))

	if f.parallel && len(f.components) > 1 {
		var wg sync.WaitGroup
		for i := range f.components {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				scores[idx] = f.scoreComponent(ctx, f.components[idx], mol)
			}(i)
		}
		wg.Wait()
	} else {
		for i := range f.components {
			scores[i] = f.scoreComponent(ctx, f.components[i], mol)
		}
	}

	if err := ctx.Err(); err != nil {
		return MoleculeScore{}, errors.Wrap(err, errors.ErrCodeTimeout, "scoring cancelled")
	}

	return MoleculeScore{
		SMILES:     mol.SMILES,
		Total:      f.aggregate(scores),
		Components: scores,
	}, nil
}

// ScoreBatch scores a batch of parse results in input order.  Entries that
// failed to parse receive a zero total with no component breakdown.
func (f *Function) ScoreBatch(ctx context.Context, batch []molecule.ParseResult) ([]MoleculeScore, error) {
	out := make([]MoleculeScore, len(batch))
	for i, entry := range batch {
		if entry.Err != nil || entry.Molecule == nil {
			out[i] = MoleculeScore{SMILES: entry.SMILES}
			continue
		}
		score, err := f.Score(ctx, entry.Molecule)
		if err != nil {
			return nil, err
		}
		out[i] = score
	}
	return out, nil
}

// scoreComponent runs one evaluator and applies its transform.  Failures are
// absorbed into a zeroed, flagged component score.
func (f *Function) scoreComponent(ctx context.Context, comp boundComponent, mol *molecule.Molecule) ComponentScore {
	score := ComponentScore{
		Name:          comp.cfg.Name,
		ComponentType: comp.cfg.ComponentType,
		Weight:        comp.cfg.Weight,
	}

	raw, err := comp.evaluator.Evaluate(ctx, mol)
	if err != nil {
		f.logger.Warn("component evaluation failed",
			logging.String("component", comp.cfg.Name),
			logging.String("smiles", mol.SMILES),
			logging.Err(err))
		score.Failed = true
		return score
	}

	score.Raw = raw
	score.Transformed = comp.transform(raw)
	return score
}

// aggregate combines transformed component values under the configured
// strategy.  Weights of failed components stay in the denominator, so a
// failure genuinely drags the total down rather than renormalising it away.
func (f *Function) aggregate(scores []ComponentScore) float64 {
	if f.weightSum == 0 {
		return 0
	}

	switch f.name {
	case stypes.FunctionCustomSum:
		var sum float64
		for _, s := range scores {
			sum += s.Transformed * s.Weight
		}
		return clamp01(sum / f.weightSum)

	case stypes.FunctionCustomProduct:
		// Weighted geometric mean, computed in log space.  Any zero factor
		// collapses the product.
		var logSum float64
		for _, s := range scores {
			if s.Transformed == 0 {
				return 0
			}
			logSum += s.Weight * math.Log(s.Transformed)
		}
		return clamp01(math.Exp(logSum / f.weightSum))

	default:
		return 0
	}
}

//Personal.AI order the ending
