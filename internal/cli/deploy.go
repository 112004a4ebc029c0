package cli

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/orange-finance/odeploy/internal/app"
	"github.com/orange-finance/odeploy/internal/cli/render"
	"github.com/orange-finance/odeploy/internal/domain/models"
	"github.com/orange-finance/odeploy/internal/usecase"
)

// NewDeployCmd creates the deploy command
func NewDeployCmd() *cobra.Command {
	var (
		all     bool
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "deploy [kind/unit...]",
		Short: "Deploy or upgrade units to their parameterized state",
		Long: `Run the unit pipeline for each selected unit, in order, stopping at the
first failure: validate parameters, resolve dependencies, deploy or apply the
next upgrade step, run the post-deploy configuration, verify.

Units already at their target state are left alone, so re-running a deploy
is safe.`,
		Example: `  # Deploy one vault to the dev environment
  odeploy deploy automator-v2/WETH-USDC --env arbitrum_dev

  # Plan every unit of an environment without sending anything
  odeploy deploy --all --env arbitrum --dry-run

  # Pick a unit interactively
  odeploy deploy --env arbitrum_dev`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			if err := requireEnv(app); err != nil {
				return err
			}

			refs, err := selectUnits(cmd, app, args, all)
			if err != nil {
				return err
			}

			params := usecase.DeployUnitsParams{Units: refs, All: all}
			if !all && len(args) == 0 {
				params.IDs = app.Config.Units
			}
			result, runErr := app.DeployUnits.Run(cmd.Context(), params)

			var renderer render.Renderer[*usecase.DeployUnitsResult] = render.NewDeployRenderer(cmd.OutOrStdout(), verbose)
			if app.Config.JSON {
				renderer = render.NewJSONRenderer[*usecase.DeployUnitsResult](cmd.OutOrStdout())
			}
			if err := renderer.Render(result); err != nil {
				return err
			}
			return runErr
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Deploy every parameter set of the environment in dependency order")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show the plan of every unit, not only in dry runs")

	return cmd
}

// selectUnits turns arguments or an interactive pick into unit refs. Ids
// given with --unit are matched by DeployUnits.
func selectUnits(cmd *cobra.Command, a *app.App, args []string, all bool) ([]usecase.UnitRef, error) {
	if all {
		if len(args) > 0 {
			return nil, fmt.Errorf("--all cannot be combined with unit arguments")
		}
		return nil, nil
	}
	if len(args) > 0 {
		return parseUnitRefs(args)
	}
	if len(a.Config.Units) > 0 {
		return nil, nil
	}

	sets, err := a.ResolveParameters.List(cmd.Context(), a.Config.Environment.Name)
	if err != nil {
		return nil, err
	}
	valid := lo.Filter(sets, func(s *models.ParameterSet, _ int) bool { return s.Valid() })
	refs := lo.Map(valid, func(s *models.ParameterSet, _ int) usecase.UnitRef {
		return usecase.UnitRef{Kind: s.Kind, Unit: s.Unit}
	})

	if a.Config.NonInteractive {
		return nil, fmt.Errorf("no units selected: pass <kind>/<unit> arguments, --unit or --all")
	}
	options := lo.Map(refs, func(r usecase.UnitRef, _ int) string { return r.String() })
	choice, err := a.Prompter.Select(cmd.Context(), "Select unit to deploy", options)
	if err != nil {
		return nil, err
	}
	ref, err := usecase.ParseUnitRef(choice)
	if err != nil {
		return nil, err
	}
	return []usecase.UnitRef{ref}, nil
}

func parseUnitRefs(args []string) ([]usecase.UnitRef, error) {
	refs := make([]usecase.UnitRef, 0, len(args))
	for _, arg := range args {
		ref, err := usecase.ParseUnitRef(arg)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}
