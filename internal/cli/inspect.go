package cli

import (
	"github.com/spf13/cobra"

	"github.com/orange-finance/odeploy/internal/cli/render"
	"github.com/orange-finance/odeploy/internal/usecase"
)

// NewInspectCmd creates the inspect command
func NewInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <unit>",
		Short: "Read every view function of a deployed unit",
		Long: `Call each parameterless view function of a recorded unit and print the
values, typically before and after an upgrade to compare state. For proxies
the implementation is read from the EIP-1967 slot.`,
		Example: `  odeploy inspect WETH-USDC --env arbitrum`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			result, err := app.InspectDeployment.Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			var renderer render.Renderer[*usecase.InspectDeploymentResult] = render.NewInspectRenderer(cmd.OutOrStdout())
			if app.Config.JSON {
				renderer = render.NewJSONRenderer[*usecase.InspectDeploymentResult](cmd.OutOrStdout())
			}
			return renderer.Render(result)
		},
	}
}
