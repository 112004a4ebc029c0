package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orange-finance/odeploy/internal/cli/render"
	"github.com/orange-finance/odeploy/internal/domain"
	"github.com/orange-finance/odeploy/internal/usecase"
)

// NewVerifyCmd creates the verify command
func NewVerifyCmd() *cobra.Command {
	var (
		all   bool
		force bool
	)

	cmd := &cobra.Command{
		Use:   "verify [unit]",
		Short: "Verify deployed units with the configured provider",
		Long: `Submit recorded units of the selected environment for source verification.
Proxies are verified through their current implementation. Failures are
recorded and reported as warnings.`,
		Example: `  odeploy verify WETH-USDC --env arbitrum
  odeploy verify --all --env arbitrum
  odeploy verify WETH-USDC --env arbitrum --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			if err := requireEnv(app); err != nil {
				return err
			}
			opts := usecase.VerifyOptions{Force: force}

			var results []*usecase.VerifyResult
			switch {
			case all && len(args) > 0:
				return fmt.Errorf("--all cannot be combined with a unit argument")
			case all:
				results, err = app.VerifyDeployment.VerifyAll(cmd.Context(), opts)
				if err != nil {
					return fmt.Errorf("failed to verify contracts: %w", err)
				}
			case len(args) == 1:
				result, err := app.VerifyDeployment.VerifyUnit(cmd.Context(), args[0], opts)
				if err != nil {
					if errors.Is(err, domain.ErrNotFound) {
						return fmt.Errorf("%s is not recorded in %s", args[0], app.Config.Environment.Name)
					}
					return err
				}
				results = append(results, result)
			default:
				return fmt.Errorf("please provide a unit id or use --all")
			}

			var renderer render.Renderer[[]*usecase.VerifyResult] = render.NewVerifyRenderer(cmd.OutOrStdout())
			if app.Config.JSON {
				renderer = render.NewJSONRenderer[[]*usecase.VerifyResult](cmd.OutOrStdout())
			}
			return renderer.Render(results)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Verify every recorded unit that is not verified yet")
	cmd.Flags().BoolVar(&force, "force", false, "Re-verify even if already verified")

	return cmd
}
