package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/MolScore/internal/config"
)

// NewValidateCmd creates the validate command: checks a run configuration
// document without executing it.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <run-config.json>",
		Short: "Validate a run configuration document",
		Long:  "Parses the document, applies defaults, and runs full validation of the\nenvelope, the run parameters, and the scoring function.  Exits non-zero on\nthe first problem found.",
		Example: `  molscore validate rl_qed.json
  molscore validate scoring.json -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadRunConfig(args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, newValidationSummary(cfg))
		},
	}
}

// validationSummary describes an accepted run document.
type validationSummary struct {
	Version    int      `json:"version"`
	RunType    string   `json:"run_type"`
	JobName    string   `json:"job_name"`
	Function   string   `json:"scoring_function"`
	Components []string `json:"components"`
	Steps      int      `json:"n_steps,omitempty"`
	BatchSize  int      `json:"batch_size,omitempty"`
}

func newValidationSummary(cfg *config.RunConfig) validationSummary {
	s := validationSummary{
		Version:  cfg.Version,
		RunType:  cfg.RunType,
		JobName:  cfg.Logging.JobName,
		Function: string(cfg.Parameters.ScoringFunction.Name),
	}
	for _, comp := range cfg.Parameters.ScoringFunction.Components {
		s.Components = append(s.Components, comp.Name)
	}
	if rl := cfg.Parameters.ReinforcementLearning; rl != nil {
		s.Steps = rl.NSteps
		s.BatchSize = rl.BatchSize
	}
	return s
}

func (s validationSummary) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "valid run configuration\n")
	fmt.Fprintf(&sb, "  version:  %d\n", s.Version)
	fmt.Fprintf(&sb, "  run_type: %s\n", s.RunType)
	fmt.Fprintf(&sb, "  job_name: %s\n", s.JobName)
	fmt.Fprintf(&sb, "  function: %s (%s)", s.Function, strings.Join(s.Components, ", "))
	if s.Steps > 0 {
		fmt.Fprintf(&sb, "\n  steps:    %d × %d molecules", s.Steps, s.BatchSize)
	}
	return sb.String()
}

//Personal.AI order the ending
