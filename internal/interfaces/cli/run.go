package cli

import (
	"bufio"
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/MolScore/internal/application/run"
	"github.com/turtacn/MolScore/internal/config"
	"github.com/turtacn/MolScore/pkg/errors"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	SamplesPath string
	ResultDir   string
	Seed        int64
}

// NewRunCmd creates the run command: executes a run configuration document
// in-process, sampling molecules from a SMILES pool file.
func NewRunCmd() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run <run-config.json>",
		Short: "Execute a generative run locally",
		Long:  "Loads a run configuration document, samples molecule batches from the\n--samples pool, scores each step, and writes the scores CSV to the result\nfolder.  Progress is reported at the configured logging frequency.",
		Example: `  molscore run rl_qed.json --samples generated.smi
  molscore run scoring.json --samples pool.smi --results ./out`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.SamplesPath, "samples", "", "file with the SMILES pool to sample batches from (required)")
	f.StringVar(&opts.ResultDir, "results", "", "override the result folder from the run document")
	f.Int64Var(&opts.Seed, "seed", 0, "sampler seed (0 seeds from the clock)")
	_ = cmd.MarkFlagRequired("samples")

	return cmd
}

func runRun(cmd *cobra.Command, configPath string, opts *RunOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}

	runCfg, err := config.LoadRunConfig(configPath)
	if err != nil {
		return err
	}
	if opts.ResultDir != "" {
		runCfg.Logging.ResultFolder = opts.ResultDir
	}

	pool, err := loadSamplePool(opts.SamplesPath)
	if err != nil {
		return err
	}

	sampler := newPoolSampler(pool, opts.Seed)

	registry, molecules, err := buildEvaluatorStack(cliCtx)
	if err != nil {
		return err
	}

	sinks, closeSinks, err := resultSinks(runCfg)
	if err != nil {
		return err
	}

	runner, err := run.NewLocalRunner(registry, molecules, cliCtx.Config.Worker, sampler,
		run.WithLogger(cliCtx.Logger),
		run.WithSinks(sinks...),
	)
	if err != nil {
		closeSinks()
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cliCtx.Timeout)
	defer cancel()

	// The runner owns sink shutdown once submission succeeds.
	records, err := runner.Submit(ctx, *runCfg)
	if err != nil {
		closeSinks()
		return err
	}

	frequency := runCfg.Logging.LoggingFrequency
	var steps int
	var best float64
	for record := range records {
		steps++
		if record.BestScore > best {
			best = record.BestScore
		}
		if frequency > 0 && record.Step%frequency == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "step %d  mean=%.4f  best=%.4f  filtered=%d  (%s)\n",
				record.Step, record.MeanScore, record.BestScore, record.Filtered,
				record.Duration.Round(time.Millisecond))
		}
	}

	PrintSuccess(cmd, fmt.Sprintf("run %q finished: %d steps, best score %.4f",
		runCfg.Logging.JobName, steps, best))
	return nil
}

// loadSamplePool reads the SMILES pool, skipping blanks and comments.
func loadSamplePool(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "cannot open samples file").
			WithDetail(path)
	}
	defer f.Close()

	var pool []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if idx := strings.IndexAny(line, " \t"); idx > 0 {
			line = line[:idx]
		}
		pool = append(pool, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "failed reading samples file").
			WithDetail(path)
	}
	if len(pool) == 0 {
		return nil, errors.New(errors.ErrCodeMoleculeEmptyBatch, "samples file contains no molecules").
			WithDetail(path)
	}
	return pool, nil
}

// newPoolSampler samples batches uniformly with replacement from the pool.
func newPoolSampler(pool []string, seed int64) run.Sampler {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	return run.SamplerFunc(func(ctx context.Context, batchSize int) ([]string, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch := make([]string, batchSize)
		for i := range batch {
			batch[i] = pool[rng.Intn(len(pool))]
		}
		return batch, nil
	})
}

// resultSinks creates the scores CSV sink in the run's result folder.  The
// component column set is not known before the scoring function is built, so
// the file sink writes the summary columns only.
func resultSinks(runCfg *config.RunConfig) ([]run.StepSink, func(), error) {
	folder := runCfg.Logging.ResultFolder
	if folder == "" {
		return nil, func() {}, nil
	}
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeArtifactWriteFailed, "cannot create result folder").
			WithDetail(folder)
	}

	path := filepath.Join(folder, "scores.csv")
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeArtifactWriteFailed, "cannot create scores file").
			WithDetail(path)
	}

	sink := run.NewCSVSink(f, nil)
	return []run.StepSink{sink}, func() { _ = sink.Close() }, nil
}

//Personal.AI order the ending
