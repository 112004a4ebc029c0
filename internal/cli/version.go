package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/orange-finance/odeploy/internal/cli/render"
	"github.com/orange-finance/odeploy/internal/config"
	"github.com/orange-finance/odeploy/internal/recipes"
)

type versionOutput struct {
	config.BuildInfo
	Kinds []string `json:"kinds"`
}

// NewVersionCmd creates the version command
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of odeploy and the unit kinds it deploys",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := versionOutput{BuildInfo: config.Build(), Kinds: recipes.NewRegistry().Kinds()}

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return render.NewJSONRenderer[versionOutput](cmd.OutOrStdout()).Render(out)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "odeploy %s (commit %s, built %s, %s)\n", out.Version, out.Commit, out.Date, out.GoVersion)
			fmt.Fprintf(cmd.OutOrStdout(), "unit kinds: %s\n", strings.Join(out.Kinds, ", "))
			return nil
		},
	}
}
