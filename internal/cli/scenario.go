package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/veeprom/internal/harness"
)

// ScenarioOptions holds flags for the scenario command.
type ScenarioOptions struct {
	*RootOptions
	Trace bool // print the flash trace of every scenario
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	File   string   `json:"file"`
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Steps  int      `json:"steps"`
	Errors []string `json:"errors,omitempty"`
	Trace  string   `json:"trace,omitempty"`
}

// ScenarioSummary holds the overall result.
type ScenarioSummary struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewScenarioCommand creates the scenario command.
func NewScenarioCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScenarioOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "scenario <file>...",
		Short: "Run scripted power-loss scenarios",
		Long: `Run scenario files against an in-memory flash device. Scenarios never
touch the configured image.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (unreadable or invalid scenario file)

Examples:
  veeprom scenario testdata/scenarios/*.yaml
  veeprom scenario crash.yaml --trace`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, cmd, args)
		},
	}
	cmd.Flags().BoolVar(&opts.Trace, "trace", false, "print the flash trace of each scenario")
	return cmd
}

func runScenarios(opts *ScenarioOptions, cmd *cobra.Command, files []string) error {
	formatter := opts.formatter(cmd)
	w := formatter.Writer

	summary := ScenarioSummary{Scenarios: make([]ScenarioResult, 0, len(files)), Total: len(files)}
	for _, file := range files {
		scenario, err := harness.LoadScenario(file)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to load %s", file), err)
		}
		formatter.VerboseLog("running %s (%d steps)", scenario.Name, len(scenario.Steps))

		res, err := harness.Run(scenario)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to run %s", file), err)
		}

		sr := ScenarioResult{File: file, Name: scenario.Name, Pass: res.Pass, Steps: res.Steps, Errors: res.Errors}
		if opts.Trace {
			sr.Trace = string(harness.RenderTrace(scenario.Name, res.Trace))
		}
		summary.Scenarios = append(summary.Scenarios, sr)
		if sr.Pass {
			summary.Passed++
		} else {
			summary.Failed++
		}

		if formatter.JSON() {
			continue
		}
		if sr.Pass {
			fmt.Fprintf(w, "✓ %s\n", sr.Name)
		} else {
			fmt.Fprintf(w, "✗ %s\n", sr.Name)
			for _, e := range sr.Errors {
				fmt.Fprintf(w, "  %s\n", e)
			}
		}
		if opts.Trace {
			fmt.Fprint(w, sr.Trace)
		}
	}

	if formatter.JSON() {
		if err := formatter.Success(summary); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(w, "\n%d passed, %d failed, %d total\n", summary.Passed, summary.Failed, summary.Total)
	}

	if summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", summary.Failed))
	}
	return nil
}
