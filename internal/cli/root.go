package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orange-finance/odeploy/internal/app"
	"github.com/orange-finance/odeploy/internal/config"
)

// contextKey is the type for context keys
type contextKey string

const (
	// appKey is the context key for the app instance
	appKey contextKey = "app"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "odeploy",
		Short: "Deploy, upgrade, configure and verify Orange vault units",
		Long: `odeploy brings the automator vaults and their supporting contracts to the
state described by per-environment parameter files, one unit at a time:
validate parameters, resolve dependencies, deploy or upgrade, configure, verify.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip for help/version commands
			if cmd.Name() == "version" || cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}

			projectRoot, err := config.FindProjectRoot()
			if err != nil {
				return err
			}

			v := config.SetupViper(projectRoot, cmd)

			appInstance, err := app.InitApp(v)
			if err != nil {
				return fmt.Errorf("failed to initialize app: %w", err)
			}

			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			if appInstance.Config.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, appInstance.Config.Timeout)
				cmd.PostRun = func(cmd *cobra.Command, args []string) {
					cancel()
				}
			}
			cmd.SetContext(ctx)

			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringP("env", "e", "", "Target environment from odeploy.toml (e.g. arbitrum, arbitrum_dev)")
	rootCmd.PersistentFlags().StringSlice("unit", nil, "Unit ids to select (comma separated)")
	rootCmd.PersistentFlags().String("params-dir", "", "Parameter directory (default deploy/parameters)")
	rootCmd.PersistentFlags().Bool("dry-run", false, "Plan and validate without sending transactions")
	rootCmd.PersistentFlags().BoolP("yes", "y", false, "Skip the production confirmation prompt")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug output")
	rootCmd.PersistentFlags().Bool("non-interactive", false, "Disable interactive prompts")
	rootCmd.PersistentFlags().Bool("json", false, "Output results as JSON")
	rootCmd.PersistentFlags().Duration("timeout", 0, "Abort the command after this long (default 10m)")

	rootCmd.AddGroup(&cobra.Group{
		ID:    "main",
		Title: "Main Commands",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "management",
		Title: "Management Commands",
	})

	for _, cmd := range []*cobra.Command{
		NewDeployCmd(),
		NewUpgradeCheckCmd(),
		NewVerifyCmd(),
		NewParamsCmd(),
	} {
		cmd.GroupID = "main"
		rootCmd.AddCommand(cmd)
	}

	for _, cmd := range []*cobra.Command{
		NewListCmd(),
		NewInspectCmd(),
		NewImportCmd(),
	} {
		cmd.GroupID = "management"
		rootCmd.AddCommand(cmd)
	}

	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// getApp retrieves the app instance from the command context
func getApp(cmd *cobra.Command) (*app.App, error) {
	appInstance := cmd.Context().Value(appKey)
	if appInstance == nil {
		return nil, fmt.Errorf("app not initialized")
	}

	app, ok := appInstance.(*app.App)
	if !ok {
		return nil, fmt.Errorf("invalid app instance")
	}

	return app, nil
}

// requireEnv fails when the command needs an environment and none is set
func requireEnv(a *app.App) error {
	if a.Config.Environment == nil {
		return fmt.Errorf("no environment selected: pass --env or set ODEPLOY_ENV")
	}
	return nil
}
