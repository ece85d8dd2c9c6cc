package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/coursenotify/internal/policy"
)

// PolicySummary describes a compiled policy.
type PolicySummary struct {
	File                    string           `json:"file"`
	Overrides               []PolicyOverride `json:"overrides"`
	IncludeAutomaticResults bool             `json:"include_automatic_results"`
}

// PolicyOverride is one category whose defaults the policy changes.
type PolicyOverride struct {
	Category string `json:"category"`
	WebApp   bool   `json:"webapp"`
	Email    bool   `json:"email"`
}

// NewPolicyCommand creates the policy command group.
func NewPolicyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Work with CUE delivery policies",
	}
	cmd.AddCommand(newPolicyValidateCommand(rootOpts))
	return cmd
}

func newPolicyValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file.cue>",
		Short: "Check a policy file and list what it overrides",
		Long: `Compile a policy against the built-in schema. Unknown categories,
missing switches and type errors are reported with their position.

Exit codes:
  0 - Policy is valid
  1 - Policy is invalid
  2 - Command error`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)

			p, err := policy.Load(args[0])
			if err != nil {
				_ = out.Error(CodePolicyInvalid, "invalid policy", err.Error())
				return WrapExitError(ExitFailure, "invalid policy", err)
			}

			summary := PolicySummary{
				File:                    args[0],
				Overrides:               []PolicyOverride{},
				IncludeAutomaticResults: p.Sweep.IncludeAutomaticResults,
			}
			for _, o := range p.Overrides() {
				summary.Overrides = append(summary.Overrides, PolicyOverride{
					Category: o.Category.Key(),
					WebApp:   o.Defaults.WebApp,
					Email:    o.Defaults.Email,
				})
			}

			if rootOpts.Format == "json" {
				return out.Success(summary)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "✓ %s is valid\n", args[0])
			for _, o := range summary.Overrides {
				fmt.Fprintf(w, "  %s webapp=%s email=%s\n", o.Category, yesNo(o.WebApp), yesNo(o.Email))
			}
			fmt.Fprintf(w, "  sweep include_automatic_results=%t\n", summary.IncludeAutomaticResults)
			return nil
		},
	}
}
