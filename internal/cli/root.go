package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andy/timekeeper/internal/app"
	"github.com/andy/timekeeper/internal/config"
	"github.com/andy/timekeeper/internal/crypto"
	"github.com/andy/timekeeper/internal/logger"
)

var appInstance *app.App

var (
	configPath string
	userFlag   string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:   "timekeeper",
	Short: "Track billable time against cases and tasks",
	Long: `Timekeeper records time with a start/pause/resume/stop timer, turns stopped
timers into billable timesheet entries, and reports hours per day, week,
month, case and task.

By default, running timekeeper without arguments launches the interactive TUI.
Use subcommands for CLI operations.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		if appInstance == nil {
			a, err := newApp(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to initialize app: %w", err)
			}
			appInstance = a
		}
		cmd.SetContext(logger.AddToContext(cmd.Context(), appInstance.Logger))
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: launch TUI
		return launchTUI(cmd, args)
	},
}

// Execute runs the root command and closes the app afterwards
func Execute(ctx context.Context) error {
	defer func() {
		if appInstance != nil {
			appInstance.Close()
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

// SetApp sets the app instance for commands to use
func SetApp(a *app.App) {
	appInstance = a
}

func newApp(ctx context.Context) (*app.App, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, err
	}

	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if userFlag != "" {
		cfg.User.ID = userFlag
	}
	if cfg.User.ID == "" {
		return nil, fmt.Errorf("no user configured: set user.id in %s, %sUSER_ID or --user", path, config.EnvPrefix)
	}

	return app.NewWithConfig(ctx, cfg, crypto.NewKeyring())
}

// currentUser returns the identity commands run as
func currentUser() string {
	return appInstance.UserID()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/timekeeper/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&userFlag, "user", "", "user ID to act as (overrides config)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with TIMEKEEPER_* overrides")

	// Add all subcommands
	rootCmd.AddCommand(timerCmd)
	rootCmd.AddCommand(entriesCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(tuiCmd)
}
