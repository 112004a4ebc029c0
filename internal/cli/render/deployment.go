package render

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/orange-finance/odeploy/internal/domain/models"
)

// DeploymentRenderer renders a single registry record
type DeploymentRenderer struct {
	out io.Writer
}

// NewDeploymentRenderer creates a new deployment renderer
func NewDeploymentRenderer(out io.Writer) *DeploymentRenderer {
	return &DeploymentRenderer{out: out}
}

// Render renders d
func (r *DeploymentRenderer) Render(d *models.Deployment) error {
	fmt.Fprintf(r.out, "%s %s\n", color.New(color.Bold).Sprint(d.GetDisplayName()), faintStyle.Sprintf("[%s]", d.Kind))
	fmt.Fprintf(r.out, "  environment:  %s (chain %d)\n", d.Environment, d.ChainID)
	fmt.Fprintf(r.out, "  type:         %s\n", title(string(d.Type)))
	fmt.Fprintf(r.out, "  address:      %s\n", addressStyle.Sprint(d.Address))
	if d.Version != "" {
		fmt.Fprintf(r.out, "  version:      %s\n", d.Version)
	}
	fmt.Fprintf(r.out, "  artifact:     %s\n", d.Artifact.Path)
	if d.IsProxy() {
		p := d.ProxyInfo
		fmt.Fprintf(r.out, "  proxy:        %s, step %d\n", p.Kind, p.UpgradeIndex)
		fmt.Fprintf(r.out, "  implementation: %s (%s)\n", p.Implementation, p.ImplementationID)
		if p.Admin != "" {
			fmt.Fprintf(r.out, "  admin:        %s\n", p.Admin)
		}
	}
	fmt.Fprintf(r.out, "  verification: %s\n", verificationCell(d.Verification))
	return nil
}
