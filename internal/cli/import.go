package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orange-finance/odeploy/internal/cli/render"
	"github.com/orange-finance/odeploy/internal/domain/models"
	"github.com/orange-finance/odeploy/internal/usecase"
)

// NewImportCmd creates the import command
func NewImportCmd() *cobra.Command {
	var (
		params    usecase.ImportDeploymentParams
		proxyKind string
	)

	cmd := &cobra.Command{
		Use:   "import <kind/unit> <address>",
		Short: "Record a unit deployed outside odeploy",
		Long: `Record an existing contract in the registry of the selected environment.
For proxies the implementation is read from the EIP-1967 slot and the storage
layout is taken from the named artifact, so later upgrades can be validated
against it.`,
		Example: `  # Import a UUPS vault deployed by the old scripts at upgrade step 1
  odeploy import automator-v2/WETH-USDC 0x1234... --env arbitrum \
    --contract OrangeVaultV2 --proxy uups --step 1 --version 2.0.0`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			if err := requireEnv(app); err != nil {
				return err
			}

			ref, err := usecase.ParseUnitRef(args[0])
			if err != nil {
				return err
			}
			params.Kind = ref.Kind
			params.Unit = ref.Unit
			params.Address = args[1]

			switch models.ProxyKind(proxyKind) {
			case "", models.ProxyKindUUPS, models.ProxyKindTransparent:
				params.ProxyKind = models.ProxyKind(proxyKind)
			default:
				return fmt.Errorf("invalid proxy kind %q (valid: uups, transparent)", proxyKind)
			}
			if params.Contract == "" {
				return fmt.Errorf("--contract is required")
			}

			result, err := app.ImportDeployment.Run(cmd.Context(), params)
			if err != nil {
				return err
			}

			if app.Config.JSON {
				return render.NewJSONRenderer[*models.Deployment](cmd.OutOrStdout()).Render(result.Deployment)
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.FormatSuccess(fmt.Sprintf("Imported %s", result.Deployment.ID)))
			if err := render.NewDeploymentRenderer(cmd.OutOrStdout()).Render(result.Deployment); err != nil {
				return err
			}
			render.RenderWarnings(cmd.OutOrStdout(), result.Warnings)
			return nil
		},
	}

	cmd.Flags().StringVar(&params.Contract, "contract", "", "Artifact name or path:Name of the deployed code")
	cmd.Flags().StringVar(&proxyKind, "proxy", "", "Proxy kind when the address is a proxy (uups, transparent)")
	cmd.Flags().IntVar(&params.UpgradeIndex, "step", 0, "Upgrade step the proxy is at")
	cmd.Flags().StringVar(&params.ImplementationID, "implementation-id", "", "Registry id of the implementation (default <unit>_Implementation_<step>)")
	cmd.Flags().StringVar(&params.Version, "version", "", "Version of the deployed code")
	cmd.Flags().BoolVar(&params.Force, "force", false, "Replace an existing record")

	return cmd
}
