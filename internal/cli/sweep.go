package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/veeprom/internal/harness"
	"github.com/roach88/veeprom/internal/tracedb"
)

// SweepOptions holds flags for the sweep command.
type SweepOptions struct {
	*RootOptions
	Database string
}

// SweepResult is the output of the sweep command.
type SweepResult struct {
	*harness.SweepReport
	RunID string `json:"run_id,omitempty"`
}

// NewSweepCommand creates the sweep command.
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SweepOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Cut power at every flash step and check recovery",
		Long: `Replay a workload that overflows the first page once per flash step,
cutting power after that many steps, and check that recovery always
yields a state the workload could have produced. The configured geometry
is used on an in-memory device; the image is not touched.

With --db the report and the flash image of every failure are saved for
later inspection with "veeprom report".

Examples:
  veeprom sweep --config small.yaml
  veeprom sweep --db sweeps.db --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(opts, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Database, "db", "", "journal the sweep to this SQLite database")
	return cmd
}

func runSweep(opts *SweepOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := opts.formatter(cmd)
	cfg := opts.Config.Geometry

	writes := harness.DefaultWorkload(cfg)
	formatter.VerboseLog("sweeping %d writes over %d slots per page", len(writes), cfg.SlotsPerPage())

	report, err := harness.Sweep(cfg, writes)
	if err != nil {
		return formatter.StoreError("sweep workload failed", err, nil)
	}
	result := SweepResult{SweepReport: report}

	if opts.Database != "" {
		db, err := tracedb.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer db.Close()
		if result.RunID, err = db.SaveSweep(ctx, report); err != nil {
			return WrapExitError(ExitCommandError, "failed to save sweep", err)
		}
		opts.Logger.Debug("sweep saved", "run", result.RunID, "db", opts.Database)
	}

	if formatter.JSON() {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		outputSweepText(formatter, result)
	}

	if !report.Pass() {
		return NewExitError(ExitFailure, fmt.Sprintf("%d power-loss point(s) recovered incorrectly", len(report.Failures)))
	}
	return nil
}

func outputSweepText(formatter *OutputFormatter, result SweepResult) {
	p := message.NewPrinter(language.English)
	w := formatter.Writer

	mark := "✓"
	if !result.Pass() {
		mark = "✗"
	}
	p.Fprintf(w, "%s %d runs over %d flash steps, %d writes, %d failure(s)\n",
		mark, result.Runs, result.Steps, result.Writes, len(result.Failures))
	for _, action := range sortedKeys(result.Actions) {
		p.Fprintf(w, "  %-10s %d\n", action, result.Actions[action])
	}
	for _, f := range result.Failures {
		p.Fprintf(w, "  budget %d: %s\n", f.Budget, f.Message)
	}
	if result.RunID != "" {
		fmt.Fprintf(w, "Saved as run %s\n", result.RunID)
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
