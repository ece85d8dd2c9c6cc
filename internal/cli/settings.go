package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/coursenotify/internal/dispatch"
	"github.com/roach88/coursenotify/internal/notification"
	"github.com/roach88/coursenotify/internal/policy"
	"github.com/roach88/coursenotify/internal/store"
)

// SettingsOptions holds flags shared by the settings subcommands.
type SettingsOptions struct {
	*RootOptions
	DBPath     string
	UserID     int64
	PolicyFile string
}

// SettingRow is one category's effective setting for a user.
type SettingRow struct {
	Category string `json:"category"`
	WebApp   bool   `json:"webapp"`
	Email    bool   `json:"email"`
	Stored   bool   `json:"stored"`
}

// NewSettingsCommand creates the settings command group.
func NewSettingsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SettingsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect or change a user's notification settings",
		Long: `Read or write per-user notification settings directly in the store.

Examples:
  coursenotify settings get --db coursenotify.db --user 42
  coursenotify settings set --db coursenotify.db --user 42 \
      --category notification.tutorial-group-notification.tutorial-group-delete-update \
      --webapp=false --email=true`,
	}

	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "path to SQLite database (required)")
	cmd.PersistentFlags().Int64Var(&opts.UserID, "user", 0, "user ID (required)")
	cmd.PersistentFlags().StringVar(&opts.PolicyFile, "policy", "", "CUE policy whose defaults apply to unset categories")
	_ = cmd.MarkPersistentFlagRequired("db")
	_ = cmd.MarkPersistentFlagRequired("user")

	cmd.AddCommand(newSettingsGetCommand(opts))
	cmd.AddCommand(newSettingsSetCommand(opts))
	return cmd
}

func newSettingsGetCommand(opts *SettingsOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get",
		Short:         "Show every category's effective setting for a user",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			pol := policy.Builtin()
			if opts.PolicyFile != "" {
				p, err := policy.Load(opts.PolicyFile)
				if err != nil {
					return WrapExitError(ExitCommandError, "load policy", err)
				}
				pol = p
			}

			st, err := opts.open()
			if err != nil {
				return err
			}
			defer st.Close()

			rows, err := effectiveSettings(ctxOrBackground(cmd), st, pol, opts.UserID)
			if err != nil {
				return WrapExitError(ExitCommandError, "read settings", err)
			}
			if opts.Format == "json" {
				return opts.formatter(cmd).Success(rows)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "CATEGORY\tWEBAPP\tEMAIL\tSOURCE")
			for _, r := range rows {
				source := "default"
				if r.Stored {
					source = "stored"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Category, yesNo(r.WebApp), yesNo(r.Email), source)
			}
			return tw.Flush()
		},
	}
}

func newSettingsSetCommand(opts *SettingsOptions) *cobra.Command {
	var (
		category      string
		webApp, email bool
	)

	cmd := &cobra.Command{
		Use:           "set",
		Short:         "Store a user's setting for one category",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := notification.ParseCategory(category)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --category", err)
			}

			st, err := opts.open()
			if err != nil {
				return err
			}
			defer st.Close()

			setting := notification.Setting{UserID: opts.UserID, Category: cat, WebApp: webApp, Email: email}
			if err := st.PutSetting(ctxOrBackground(cmd), setting); err != nil {
				return WrapExitError(ExitCommandError, "write setting", err)
			}
			opts.Logger.Debug("setting stored", "user", opts.UserID, "category", cat.Key())

			row := SettingRow{Category: cat.Key(), WebApp: webApp, Email: email, Stored: true}
			if opts.Format == "json" {
				return opts.formatter(cmd).Success(row)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %d: %s webapp=%s email=%s\n",
				opts.UserID, row.Category, yesNo(webApp), yesNo(email))
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "category key (required)")
	cmd.Flags().BoolVar(&webApp, "webapp", false, "deliver in the web app")
	cmd.Flags().BoolVar(&email, "email", false, "deliver by email")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func (o *SettingsOptions) open() (*store.Store, error) {
	if o.UserID <= 0 {
		return nil, NewExitError(ExitCommandError, "--user must be a positive ID")
	}
	st, err := store.Open(o.DBPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open database", err)
	}
	return st, nil
}

func effectiveSettings(ctx context.Context, st *store.Store, defaults dispatch.DefaultsSource, userID int64) ([]SettingRow, error) {
	stored, err := st.ListSettings(ctx, userID)
	if err != nil {
		return nil, err
	}
	byCategory := make(map[notification.Category]notification.Setting, len(stored))
	for _, s := range stored {
		byCategory[s.Category] = s
	}

	rows := make([]SettingRow, 0, len(notification.Categories()))
	for _, cat := range notification.Categories() {
		if s, ok := byCategory[cat]; ok {
			rows = append(rows, SettingRow{Category: cat.Key(), WebApp: s.WebApp, Email: s.Email, Stored: true})
			continue
		}
		d := defaults.Default(cat)
		rows = append(rows, SettingRow{Category: cat.Key(), WebApp: d.WebApp, Email: d.Email})
	}
	return rows, nil
}

func ctxOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
