package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/orange-finance/odeploy/internal/cli/render"
	"github.com/orange-finance/odeploy/internal/domain/models"
	"github.com/orange-finance/odeploy/internal/usecase"
)

// NewListCmd creates the list command
func NewListCmd() *cobra.Command {
	var (
		kind            string
		deployType      string
		implementations bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List deployments from the registry",
		Long: `List the recorded units of the selected environment, or of every
environment when --env is not set.`,
		Example: `  # List everything recorded for arbitrum
  odeploy list --env arbitrum

  # List proxies of one kind, with their implementation records
  odeploy list --kind automator-v2 --type proxy --implementations`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			var typ models.DeploymentType
			switch strings.ToLower(deployType) {
			case "":
			case "singleton":
				typ = models.SingletonDeployment
			case "proxy":
				typ = models.ProxyDeployment
			case "implementation":
				typ = models.ImplementationDeployment
			default:
				return fmt.Errorf("invalid deployment type: %s (valid: singleton, proxy, implementation)", deployType)
			}

			result, err := app.ListDeployments.Run(cmd.Context(), usecase.ListDeploymentsParams{
				Kind:            kind,
				Type:            typ,
				Implementations: implementations,
			})
			if err != nil {
				return err
			}

			var renderer render.Renderer[*usecase.DeploymentListResult] = render.NewDeploymentsRenderer(cmd.OutOrStdout())
			if app.Config.JSON {
				renderer = render.NewJSONRenderer[*usecase.DeploymentListResult](cmd.OutOrStdout())
			}
			return renderer.Render(result)
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Filter by unit kind")
	cmd.Flags().StringVar(&deployType, "type", "", "Filter by deployment type (singleton, proxy, implementation)")
	cmd.Flags().BoolVar(&implementations, "implementations", false, "Include implementation records")

	return cmd
}
