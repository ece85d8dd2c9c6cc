package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/coursenotify/internal/harness"
)

// SimulateResult is the JSON payload of the simulate command.
type SimulateResult struct {
	Scenario string `json:"scenario"`
	*harness.Result
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate <scenario.yaml>",
		Short: "Run one scenario against an in-memory store and print the trace",
		Long: `Run a scenario file through the real dispatch engine backed by an
in-memory SQLite store, recording push and email side effects instead of
sending them. Prints every event's deliveries, the stored records and the
assertion outcome.

Exit codes:
  0 - Scenario passed
  1 - An assertion or event expectation failed
  2 - Command error (unreadable or invalid scenario, bad policy)

Examples:
  coursenotify simulate scenarios/tutorial_group_update.yaml
  coursenotify simulate scenarios/plagiarism.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runSimulate(opts *RootOptions, path string, cmd *cobra.Command) error {
	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "load scenario", err)
	}

	result, err := harness.Run(scenario, harness.WithLogger(opts.Logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "run scenario", err)
	}

	out := opts.formatter(cmd)
	data := SimulateResult{Scenario: scenario.Name, Result: result}
	if result.Pass {
		return out.Result(data, func(w io.Writer) error {
			writeTraceText(w, scenario.Name, result)
			return nil
		})
	}

	msg := fmt.Sprintf("scenario %s failed", scenario.Name)
	if opts.Format == "json" {
		if err := out.Error(CodeScenarioFailed, msg, data); err != nil {
			return err
		}
	} else {
		writeTraceText(cmd.OutOrStdout(), scenario.Name, result)
	}
	return NewExitError(ExitFailure, msg)
}

func writeTraceText(w io.Writer, name string, result *harness.Result) {
	status := "PASS"
	if !result.Pass {
		status = "FAIL"
	}
	fmt.Fprintf(w, "Scenario %s: %s\n\n", name, status)

	for _, ev := range result.Trace {
		fmt.Fprintf(w, "[%d] %s", ev.Seq, ev.Event)
		if ev.Error != "" {
			fmt.Fprintf(w, "  error=%s", ev.Error)
		}
		fmt.Fprintln(w)
		for _, d := range ev.Deliveries {
			fmt.Fprintf(w, "    %s -> user %d %s (%s) push=%s email=%s\n",
				d.Notification, d.Recipient, d.Type, d.Source, yesNo(d.Pushed), yesNo(d.Mailed))
		}
	}

	fmt.Fprintf(w, "\nStored: %d notification(s), %d email(s)\n", len(result.Notifications), len(result.Emails))
	for _, e := range result.Emails {
		fmt.Fprintf(w, "  mail to user %d: %s\n", e.To, e.Subject)
	}

	if len(result.Errors) > 0 {
		fmt.Fprintln(w, "\nFailures:")
		for _, e := range result.Errors {
			fmt.Fprintf(w, "  %s\n", strings.ReplaceAll(e, "\n", "\n  "))
		}
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
