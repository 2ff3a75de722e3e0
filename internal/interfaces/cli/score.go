package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/MolScore/internal/application/scoring"
	dscoring "github.com/turtacn/MolScore/internal/domain/scoring"
	"github.com/turtacn/MolScore/pkg/errors"
	stypes "github.com/turtacn/MolScore/pkg/types/scoring"
)

// ScoreOptions holds flags for the score command.
type ScoreOptions struct {
	FunctionPath string
	SMILES       []string
	InputPath    string
}

// NewScoreCmd creates the score command: in-process batch scoring of SMILES
// against a scoring function document.
func NewScoreCmd() *cobra.Command {
	opts := &ScoreOptions{}

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score molecules against a scoring function",
		Long:  "Parses SMILES from flags or an input file (one per line), builds the\nscoring function described by --function, and prints one score per molecule.",
		Example: `  molscore score --function qed.json --smiles "CCO" --smiles "c1ccccc1"
  molscore score --function multi_objective.json --input generated.smi -o table`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.FunctionPath, "function", "f", "", "path to the scoring function JSON document (required)")
	f.StringArrayVarP(&opts.SMILES, "smiles", "s", nil, "SMILES to score (repeatable)")
	f.StringVarP(&opts.InputPath, "input", "i", "", "file with one SMILES per line")
	_ = cmd.MarkFlagRequired("function")

	return cmd
}

func runScore(cmd *cobra.Command, opts *ScoreOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}

	fnConfig, err := loadFunctionConfig(opts.FunctionPath)
	if err != nil {
		return err
	}

	smiles, err := collectSMILES(opts)
	if err != nil {
		return err
	}
	if len(smiles) == 0 {
		return errors.New(errors.ErrCodeMoleculeEmptyBatch, "no molecules given; use --smiles or --input")
	}

	registry, molecules, err := buildEvaluatorStack(cliCtx)
	if err != nil {
		return err
	}

	svc, err := scoring.NewService(*fnConfig, registry, molecules, cliCtx.Config.Worker,
		scoring.WithLogger(cliCtx.Logger))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cliCtx.Timeout)
	defer cancel()
	defer func() { _ = svc.Shutdown(context.Background()) }()

	resp, err := svc.ScoreBatch(ctx, smiles)
	if err != nil {
		return err
	}

	return PrintResult(cmd, scoreResult{Response: resp})
}

// loadFunctionConfig reads and validates a scoring function document.
func loadFunctionConfig(path string) (*dscoring.FunctionConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeScoringConfigInvalid, "cannot read scoring function file").
			WithDetail(path)
	}

	var cfg dscoring.FunctionConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeScoringConfigInvalid, "malformed scoring function document").
			WithDetail(path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// collectSMILES merges --smiles flags with the --input file.
func collectSMILES(opts *ScoreOptions) ([]string, error) {
	smiles := append([]string{}, opts.SMILES...)

	if opts.InputPath != "" {
		f, err := os.Open(opts.InputPath)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "cannot open input file").
				WithDetail(opts.InputPath)
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			// .smi files may carry a name column after the SMILES.
			if idx := strings.IndexAny(line, " \t"); idx > 0 {
				line = line[:idx]
			}
			smiles = append(smiles, line)
		}
		if err := scanner.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "failed reading input file").
				WithDetail(opts.InputPath)
		}
	}

	return smiles, nil
}

// scoreResult adapts a score response for table output.
type scoreResult struct {
	Response *stypes.ScoreResponse
}

func (r scoreResult) MarshalJSON() ([]byte, error) { return json.Marshal(r.Response) }

func (r scoreResult) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "function: %s\n", r.Response.FunctionName)
	for _, score := range r.Response.Scores {
		fmt.Fprintf(&sb, "%s\t%.4f\n", score.SMILES, score.Total)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (r scoreResult) TableHeaders() []string {
	headers := []string{"SMILES", "TOTAL"}
	if len(r.Response.Scores) > 0 {
		for _, comp := range r.Response.Scores[0].Components {
			headers = append(headers, strings.ToUpper(comp.Name))
		}
	}
	return headers
}

func (r scoreResult) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Response.Scores))
	for _, score := range r.Response.Scores {
		row := []string{score.SMILES, fmt.Sprintf("%.4f", score.Total)}
		for _, comp := range score.Components {
			row = append(row, fmt.Sprintf("%.4f", comp.Transformed))
		}
		rows = append(rows, row)
	}
	return rows
}

//Personal.AI order the ending
