package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/aretw0/ternlab/internal/config"
	"github.com/aretw0/ternlab/internal/presentation/tui"
	"github.com/aretw0/ternlab/pkg/lab"
	"github.com/aretw0/ternlab/pkg/plot"
	"github.com/aretw0/ternlab/pkg/snapshot"
	"github.com/spf13/cobra"
)

// runOptions drives a single headless run.
type runOptions struct {
	Experiment string
	Seed       string
	RNGSeed    *int64
	Steps      int
	ImportPath string
	ExportPath string
	PlotPath   string
	Render     string // auto, always, never
	Report     bool
}

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the automaton headlessly and print a report",
	Long: `Seeds a grid (or loads a snapshot), advances it the requested number of steps and prints
the final grid together with a markdown report. The entropy series can be written as a PNG chart
and the final state exported as a snapshot.`,
	Example: `  ternlab run --experiment chaos-2-4 --steps 50 --rng-seed 7
  ternlab run --size 32 --seed chaos --steps 200 --plot entropy.png --export final.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("size") {
			cfg.Lab.Size, _ = flags.GetInt("size")
		}
		if flags.Changed("pos") {
			cfg.Lab.PosThreshold, _ = flags.GetInt("pos")
		}
		if flags.Changed("neg") {
			cfg.Lab.NegThreshold, _ = flags.GetInt("neg")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		opts := runOptions{Report: true}
		opts.Experiment, _ = flags.GetString("experiment")
		opts.Seed, _ = flags.GetString("seed")
		opts.Steps, _ = flags.GetInt("steps")
		opts.ImportPath, _ = flags.GetString("import")
		opts.ExportPath, _ = flags.GetString("export")
		opts.PlotPath, _ = flags.GetString("plot")
		opts.Render, _ = flags.GetString("render")
		if noReport, _ := flags.GetBool("no-report"); noReport {
			opts.Report = false
		}
		if flags.Changed("rng-seed") {
			v, _ := flags.GetInt64("rng-seed")
			opts.RNGSeed = &v
		}

		return runLab(cmd.Context(), cfg, newLogger(cfg), opts, cmd.OutOrStdout())
	},
}

func runLab(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts runOptions, out io.Writer) error {
	if opts.Steps < 0 {
		return fmt.Errorf("steps must be non-negative, got %d", opts.Steps)
	}
	if opts.Experiment != "" && opts.ImportPath != "" {
		return fmt.Errorf("--experiment and --import cannot be used together")
	}

	l, err := lab.New(append(cfg.LabOptions(), lab.WithLogger(logger))...)
	if err != nil {
		return err
	}

	report := tui.RunReport{Experiment: opts.Experiment, Seed: opts.Seed}
	switch {
	case opts.ImportPath != "":
		data, err := os.ReadFile(opts.ImportPath)
		if err != nil {
			return fmt.Errorf("reading snapshot: %w", err)
		}
		doc, err := snapshot.Decode(data)
		if err != nil {
			return err
		}
		if err := l.ImportDocument(ctx, doc); err != nil {
			return err
		}
		report.Seed = "import"
	case opts.Experiment != "":
		if _, err := l.RunExperiment(ctx, opts.Experiment, opts.RNGSeed); err != nil {
			return err
		}
		for _, e := range l.Experiments() {
			if e.Name == opts.Experiment {
				report.Seed = e.Seed
			}
		}
	case opts.Seed != "":
		if _, err := l.Seed(ctx, opts.Seed, opts.RNGSeed); err != nil {
			return err
		}
	}

	start := time.Now()
	for remaining := opts.Steps; remaining > 0; {
		k := min(remaining, lab.MaxStepsPerCall)
		if _, err := l.StepN(ctx, k); err != nil {
			return err
		}
		remaining -= k
	}
	report.Elapsed = time.Since(start)
	report.Steps = opts.Steps
	report.Thresholds = l.Thresholds(ctx)
	report.Metrics = l.Metrics(ctx)

	if shouldRender(opts.Render, out, report.Metrics.Size) {
		if err := tui.NewGridRenderer(out).Render(l.Grid(ctx).Grid); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}

	if opts.Report {
		md, err := tui.NewRenderer()(report.Markdown())
		if err != nil {
			return err
		}
		fmt.Fprint(out, md)
	}

	if opts.PlotPath != "" {
		history := report.Metrics.EntropyHistory
		first := report.Metrics.Step - len(history) + 1
		if err := plot.SavePNG(opts.PlotPath, history, first); err != nil {
			return err
		}
		logger.Info("wrote entropy chart", "path", opts.PlotPath)
	}

	if opts.ExportPath != "" {
		data, err := snapshot.Encode(l.Export(ctx))
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.ExportPath, data, 0o644); err != nil {
			return fmt.Errorf("writing snapshot: %w", err)
		}
		logger.Info("exported snapshot", "path", opts.ExportPath)
	}
	return nil
}

// shouldRender reports whether to draw the grid. In auto mode the grid is drawn
// only on a terminal wide enough to hold it.
func shouldRender(mode string, out io.Writer, size int) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	f, ok := out.(*os.File)
	return ok && tui.FitsTerminal(f, size)
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Int("size", 0, "Grid size N (overrides lab.size)")
	runCmd.Flags().Int("pos", 0, "Positive threshold (overrides lab.pos_threshold)")
	runCmd.Flags().Int("neg", 0, "Negative threshold (overrides lab.neg_threshold)")
	runCmd.Flags().StringP("experiment", "e", "", "Run a named experiment preset")
	runCmd.Flags().String("seed", "genesis", "Seed mode when no experiment or import is given: genesis or chaos")
	runCmd.Flags().Int64("rng-seed", 0, "Seed for the random generator (chaos mode); random when unset")
	runCmd.Flags().IntP("steps", "n", 10, "Number of steps to advance")
	runCmd.Flags().String("import", "", "Start from a snapshot file instead of seeding")
	runCmd.Flags().String("export", "", "Write the final state as a snapshot file")
	runCmd.Flags().String("plot", "", "Write the entropy series as a PNG chart")
	runCmd.Flags().String("render", "auto", "Draw the final grid: auto, always or never")
	runCmd.Flags().Bool("no-report", false, "Skip the markdown report")
}
