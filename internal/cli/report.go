package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/veeprom/internal/tracedb"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	Database string
	Run      string // optional - show one run with its failures
	Extract  string // optional - directory for failure images
}

// RunReport is one run with its failures.
type RunReport struct {
	tracedb.Run
	FailureList []tracedb.Failure `json:"failure_list"`
	Extracted   []string          `json:"extracted,omitempty"`
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "List journaled sweeps",
		Long: `List the sweeps saved with "veeprom sweep --db", or show one run with
its failures. --extract writes the raw flash image of every failure of the
run to a directory, ready for "veeprom info --image".

Examples:
  veeprom report --db sweeps.db
  veeprom report --db sweeps.db --run 0190c6b2-... --extract ./failures`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(opts, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Run, "run", "", "run ID to show in detail")
	cmd.Flags().StringVar(&opts.Extract, "extract", "", "write failure images of --run to this directory")
	return cmd
}

func runReport(opts *ReportOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := opts.formatter(cmd)

	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, "database not found", err)
	}
	db, err := tracedb.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer db.Close()

	if opts.Run == "" {
		if opts.Extract != "" {
			return NewExitError(ExitCommandError, "--extract needs --run")
		}
		runs, err := db.Runs(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		if formatter.JSON() {
			return formatter.Success(runs)
		}
		if len(runs) == 0 {
			fmt.Fprintln(formatter.Writer, "No sweeps recorded.")
			return nil
		}
		for _, r := range runs {
			fmt.Fprintf(formatter.Writer, "%3d  %s  page %d, word %d, index %d  %d runs, %d failure(s)\n",
				r.Seq, r.ID, r.Geometry.PageSize, r.Geometry.WordSize, r.Geometry.IndexSize, r.Runs, r.Failures)
		}
		return nil
	}

	run, err := db.Run(ctx, opts.Run)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load run", err)
	}
	failures, err := db.Failures(ctx, opts.Run)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load failures", err)
	}
	report := RunReport{Run: run, FailureList: failures}

	if opts.Extract != "" {
		if err := os.MkdirAll(opts.Extract, 0o755); err != nil {
			return WrapExitError(ExitCommandError, "failed to create extract directory", err)
		}
		for _, f := range failures {
			path := filepath.Join(opts.Extract, fmt.Sprintf("budget-%06d.img", f.Budget))
			if err := os.WriteFile(path, f.Image, 0o644); err != nil {
				return WrapExitError(ExitCommandError, "failed to write failure image", err)
			}
			report.Extracted = append(report.Extracted, path)
		}
	}

	if formatter.JSON() {
		return formatter.Success(report)
	}
	w := formatter.Writer
	fmt.Fprintf(w, "Run %s (#%d)\n", run.ID, run.Seq)
	fmt.Fprintf(w, "  geometry: pages 0x%x/0x%x, %d bytes, erase unit %d, word %d, index %d\n",
		run.Geometry.Page0Address, run.Geometry.Page1Address, run.Geometry.PageSize,
		run.Geometry.EraseUnitSize, run.Geometry.WordSize, run.Geometry.IndexSize)
	fmt.Fprintf(w, "  %d writes, %d steps, %d runs\n", run.Writes, run.Steps, run.Runs)
	for _, action := range sortedKeys(run.Actions) {
		fmt.Fprintf(w, "  %-10s %d\n", action, run.Actions[action])
	}
	for _, f := range failures {
		fmt.Fprintf(w, "  budget %d: %s\n", f.Budget, f.Message)
	}
	for _, path := range report.Extracted {
		fmt.Fprintf(w, "  wrote %s\n", path)
	}
	return nil
}
