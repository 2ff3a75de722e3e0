package cli

import (
	"github.com/turtacn/MolScore/internal/domain/molecule"
	dscoring "github.com/turtacn/MolScore/internal/domain/scoring"
	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolScore/internal/intelligence/common"
	"github.com/turtacn/MolScore/internal/intelligence/evaluators"
)

// buildEvaluatorStack wires the molecule service and evaluator registry for
// in-process commands.  Serving and docking clients are only constructed
// when the configuration names a backend; components that need an absent
// backend fail at function construction with a clear error.
func buildEvaluatorStack(cliCtx *CLIContext) (dscoring.EvaluatorRegistry, *molecule.Service, error) {
	logger := cliCtx.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	molecules := molecule.NewService(nil, logger)

	deps := evaluators.Deps{
		Molecules: molecules,
		Logger:    logger,
	}

	intel := cliCtx.Config.Intelligence
	if intel.ServingAddr != "" {
		serving, err := common.NewHTTPServingClient(intel, nil, logger)
		if err != nil {
			return nil, nil, err
		}
		deps.Serving = serving
	}
	if intel.DockingBaseURL != "" {
		docking, err := common.NewHTTPDockingClient(intel, logger)
		if err != nil {
			return nil, nil, err
		}
		deps.Docking = docking
	}

	return evaluators.NewRegistry(deps), molecules, nil
}

//Personal.AI order the ending
