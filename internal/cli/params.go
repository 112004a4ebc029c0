package cli

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/orange-finance/odeploy/internal/cli/render"
	"github.com/orange-finance/odeploy/internal/domain/models"
)

// paramsView is the JSON shape of a parameter set
type paramsView struct {
	Kind   string         `json:"kind"`
	Unit   string         `json:"unit"`
	Path   string         `json:"path"`
	Valid  bool           `json:"valid"`
	Values map[string]any `json:"values,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// NewParamsCmd creates the params command
func NewParamsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "params",
		Short: "Validate and list the parameter sets of an environment",
		Long: `Read every parameter file of the selected environment, validate it against
the schema of its kind and list the result. Exits non-zero when any set is
invalid, which makes it usable as a CI check.`,
		Example: `  odeploy params --env arbitrum`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			if err := requireEnv(app); err != nil {
				return err
			}

			sets, err := app.ResolveParameters.List(cmd.Context(), app.Config.Environment.Name)
			if err != nil {
				return err
			}

			if app.Config.JSON {
				views := lo.Map(sets, func(s *models.ParameterSet, _ int) paramsView {
					v := paramsView{Kind: s.Kind, Unit: s.Unit, Path: s.Path, Valid: s.Valid(), Values: s.Values}
					if s.Err != nil {
						v.Error = s.Err.Error()
					}
					return v
				})
				err = render.NewJSONRenderer[[]paramsView](cmd.OutOrStdout()).Render(views)
			} else {
				err = render.NewParamsRenderer(cmd.OutOrStdout(), app.Config.ProjectRoot).Render(sets)
			}
			if err != nil {
				return err
			}

			if invalid := lo.CountBy(sets, func(s *models.ParameterSet) bool { return !s.Valid() }); invalid > 0 {
				return fmt.Errorf("%d invalid parameter set(s) in %s", invalid, app.Config.Environment.Name)
			}
			return nil
		},
	}
}
