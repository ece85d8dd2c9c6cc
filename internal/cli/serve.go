package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/coursenotify/internal/app"
	"github.com/roach88/coursenotify/internal/config"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	ConfigPath string
	Addr       string
	Database   string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the notification engine and HTTP API",
		Long: `Open the store, wire the dispatch engine and serve the HTTP API until
interrupted.

Configuration comes from --config (YAML), COURSENOTIFY_* environment
variables and a .env file in the working directory. jwt_secret is required.

Examples:
  coursenotify serve --config coursenotify.yaml
  COURSENOTIFY_JWT_SECRET=dev coursenotify serve --addr :9000`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database path (overrides config)")

	return cmd
}

func loadServeConfig(opts *ServeOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}
	if opts.Addr != "" {
		cfg.ListenAddr = opts.Addr
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	if err := cfg.ValidateServe(); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid config", err)
	}
	return cfg, nil
}

func runServe(ctx context.Context, opts *ServeOptions) error {
	cfg, err := loadServeConfig(opts)
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(cfg, app.WithLogger(opts.Logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "start", err)
	}
	defer a.Close()

	opts.Logger.Info("coursenotify starting", "addr", cfg.ListenAddr, "database", cfg.Database)
	if err := a.Run(ctx); err != nil {
		return WrapExitError(ExitFailure, "serve", err)
	}
	opts.Logger.Info("coursenotify stopped")
	return nil
}
