// Package evaluators implements the built-in component evaluators of the
// scoring engine and the registry that binds component-type tags to them.
//
// Each evaluator produces the raw, untransformed value of one scoring
// component for one molecule. Local descriptors are computed in-process;
// predictive-property and docking components call out to the serving and
// docking services through the clients in internal/intelligence/common.
package evaluators

import (
	"sort"
	"sync"

	"github.com/turtacn/MolScore/internal/domain/molecule"
	"github.com/turtacn/MolScore/internal/domain/scoring"
	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolScore/internal/intelligence/common"
	"github.com/turtacn/MolScore/pkg/errors"
)

// Component type tags accepted in scoring configurations.
const (
	TypeMolecularWeight      = "molecular_weight"
	TypeNumRotatableBonds    = "num_rotatable_bonds"
	TypeNumHBDLipinski       = "num_hbd_lipinski"
	TypeTPSA                 = "tpsa"
	TypeQEDScore             = "qed_score"
	TypeMatchingSubstructure = "matching_substructure"
	TypeCustomAlerts         = "custom_alerts"
	TypeTanimotoSimilarity   = "tanimoto_similarity"
	TypePredictiveProperty   = "predictive_property"
	TypeDockStream           = "dockstream"
)

// Deps carries the collaborators evaluator factories may need. Local
// descriptor components ignore it entirely; external components fail fast at
// construction when their client is missing.
type Deps struct {
	Molecules *molecule.Service
	Serving   common.ServingClient
	Docking   common.DockingClient
	Logger    logging.Logger
}

func (d Deps) logger() logging.Logger {
	if d.Logger == nil {
		return logging.NewNopLogger()
	}
	return d.Logger
}

func (d Deps) molecules() *molecule.Service {
	if d.Molecules == nil {
		return molecule.NewService(nil, d.logger())
	}
	return d.Molecules
}

// Factory builds an evaluator from a validated component configuration.
// Factories must fail fast on bad specific_parameters so that configuration
// errors surface at load time, never mid-run.
type Factory func(cfg scoring.ComponentConfig, deps Deps) (scoring.Evaluator, error)

// Registry maps component-type tags to factories. It implements
// scoring.EvaluatorRegistry.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	deps      Deps
}

// NewRegistry builds a registry with every built-in component registered.
func NewRegistry(deps Deps) *Registry {
	r := &Registry{
		factories: make(map[string]Factory),
		deps:      deps,
	}

	r.factories[TypeMolecularWeight] = newMolecularWeight
	r.factories[TypeNumRotatableBonds] = newNumRotatableBonds
	r.factories[TypeNumHBDLipinski] = newNumHBDLipinski
	r.factories[TypeTPSA] = newTPSA
	r.factories[TypeQEDScore] = newQEDScore
	r.factories[TypeMatchingSubstructure] = newMatchingSubstructure
	r.factories[TypeCustomAlerts] = newCustomAlerts
	r.factories[TypeTanimotoSimilarity] = newTanimotoSimilarity
	r.factories[TypePredictiveProperty] = newPredictiveProperty
	r.factories[TypeDockStream] = newDockStream

	return r
}

// Register adds a custom component type. Re-registering an existing tag is a
// conflict: silently replacing a built-in would make two configs with the
// same tag mean different things.
func (r *Registry) Register(componentType string, factory Factory) error {
	if componentType == "" || factory == nil {
		return errors.New(errors.ErrCodeComponentTypeUnknown, "component type and factory are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[componentType]; exists {
		return errors.Newf(errors.ErrCodeConflict, "component type %q is already registered", componentType)
	}
	r.factories[componentType] = factory
	return nil
}

// Create builds the evaluator for cfg.ComponentType.
func (r *Registry) Create(cfg scoring.ComponentConfig) (scoring.Evaluator, error) {
	r.mu.RLock()
	factory, ok := r.factories[cfg.ComponentType]
	r.mu.RUnlock()

	if !ok {
		return nil, errors.Newf(errors.ErrCodeComponentTypeUnknown,
			"unknown component type %q", cfg.ComponentType)
	}
	return factory(cfg, r.deps)
}

// Types returns the registered component-type tags, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.factories))
	for t := range r.factories {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

//Personal.AI order the ending
