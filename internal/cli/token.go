package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/coursenotify/internal/config"
	"github.com/roach88/coursenotify/internal/server"
)

// NewTokenCommand creates the token command.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		configPath string
		userID     int64
		login      string
		ttl        time.Duration
		groups     []int64
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an API bearer token for a user",
		Long: `Sign a token with the configured jwt_secret, for local testing of the
HTTP API.

Example:
  curl -H "Authorization: Bearer $(coursenotify token --user 42)" \
      localhost:8080/api/v1/notifications`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID <= 0 {
				return NewExitError(ExitCommandError, "--user must be a positive ID")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "load config", err)
			}
			if cfg.JWTSecret == "" {
				return NewExitError(ExitCommandError, fmt.Sprintf("jwt_secret is not set (set %s_JWT_SECRET)", config.EnvPrefix))
			}

			tok, err := server.GenerateToken(cfg.JWTSecret, userID, login, ttl, groups...)
			if err != nil {
				return WrapExitError(ExitFailure, "sign token", err)
			}
			if rootOpts.Format == "json" {
				return rootOpts.formatter(cmd).Success(map[string]any{"token": tok, "user_id": userID})
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to YAML config file")
	cmd.Flags().Int64Var(&userID, "user", 0, "user ID (required)")
	cmd.Flags().StringVar(&login, "login", "", "login embedded in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	cmd.Flags().Int64SliceVar(&groups, "group", nil, "tutorial group IDs whose group notifications the user may read")
	return cmd
}
