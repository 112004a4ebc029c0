package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orange-finance/odeploy/internal/cli/render"
	"github.com/orange-finance/odeploy/internal/usecase"
)

// NewUpgradeCheckCmd creates the upgrade-check command
func NewUpgradeCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upgrade-check <kind/unit>...",
		Short: "Validate the upgrade safety of proxied units without sending anything",
		Long: `Plan each unit and run the storage layout and unsafe operation checks a
deploy would run before creating or upgrading its proxy.`,
		Example: `  odeploy upgrade-check automator-v2_1/WETH-USDC --env arbitrum`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			if err := requireEnv(app); err != nil {
				return err
			}
			refs, err := parseUnitRefs(args)
			if err != nil {
				return err
			}

			var results []*usecase.CheckUpgradeResult
			unsafe := 0
			for i, ref := range refs {
				result, err := app.CheckUpgrade.Run(cmd.Context(), ref)
				if err != nil {
					return fmt.Errorf("%s: %w", ref, err)
				}
				results = append(results, result)
				if !result.Safe() {
					unsafe++
				}
				if app.Config.JSON {
					continue
				}
				if i > 0 {
					fmt.Fprintln(cmd.OutOrStdout())
				}
				if err := render.NewUpgradeCheckRenderer(cmd.OutOrStdout()).Render(result); err != nil {
					return err
				}
			}

			if app.Config.JSON {
				if err := render.NewJSONRenderer[[]*usecase.CheckUpgradeResult](cmd.OutOrStdout()).Render(results); err != nil {
					return err
				}
			}
			if unsafe > 0 {
				return fmt.Errorf("%d of %d unit(s) failed the upgrade safety check", unsafe, len(refs))
			}
			return nil
		},
	}
}
