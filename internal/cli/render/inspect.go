package render

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/orange-finance/odeploy/internal/usecase"
)

// InspectRenderer renders the live state of a unit
type InspectRenderer struct {
	out io.Writer
}

// NewInspectRenderer creates a new inspect renderer
func NewInspectRenderer(out io.Writer) *InspectRenderer {
	return &InspectRenderer{out: out}
}

// Render renders result
func (r *InspectRenderer) Render(result *usecase.InspectDeploymentResult) error {
	d := result.Deployment
	fmt.Fprintf(r.out, "%s %s\n", color.New(color.Bold).Sprint(d.GetDisplayName()), addressStyle.Sprint(d.Address))
	if d.IsProxy() {
		impl := result.OnChainImplementation
		if impl != d.ProxyInfo.Implementation {
			impl = failedStyle.Sprintf("%s (registry: %s)", impl, d.ProxyInfo.Implementation)
		}
		fmt.Fprintf(r.out, "  implementation: %s\n", impl)
	}
	fmt.Fprintln(r.out)

	t := newTable(r.out, "  ")
	for _, v := range result.Values {
		value := v.Value
		if v.Err != "" {
			value = failedStyle.Sprint(v.Err)
		}
		t.AppendRow(table.Row{v.Method, value})
	}
	t.Render()
	return nil
}
