package render

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/hashicorp/go-multierror"
	"github.com/orange-finance/odeploy/internal/usecase"
)

// UpgradeCheckRenderer renders an upgrade safety report
type UpgradeCheckRenderer struct {
	out io.Writer
}

// NewUpgradeCheckRenderer creates a new upgrade check renderer
func NewUpgradeCheckRenderer(out io.Writer) *UpgradeCheckRenderer {
	return &UpgradeCheckRenderer{out: out}
}

// Render renders result
func (r *UpgradeCheckRenderer) Render(result *usecase.CheckUpgradeResult) error {
	plan := result.Plan
	fmt.Fprintf(r.out, "%s %s\n", color.New(color.Bold).Sprint(plan.Unit), faintStyle.Sprintf("[%s]", plan.Kind))
	fmt.Fprintf(r.out, "  contract:        %s %s\n", plan.Contract, plan.Version)
	fmt.Fprintf(r.out, "  step:            %d (%s)\n", plan.Proxy.UpgradeIndex, plan.Proxy.Kind)
	fmt.Fprintf(r.out, "  action:          %s\n", title(string(result.Action)))
	if result.Current != nil {
		fmt.Fprintf(r.out, "  recorded step:   %d\n", result.Current.ProxyInfo.UpgradeIndex)
		fmt.Fprintf(r.out, "  recorded impl:   %s\n", result.Current.ProxyInfo.Implementation)
		fmt.Fprintf(r.out, "  on-chain impl:   %s\n", result.OnChainImplementation)
	}
	fmt.Fprintln(r.out)

	if result.Safe() {
		fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("%s is safe to %s", plan.Contract, result.Action)))
		return nil
	}

	var merr *multierror.Error
	if errors.As(result.Problems, &merr) {
		for _, err := range merr.WrappedErrors() {
			fmt.Fprintln(r.out, FormatError(err.Error()))
		}
		return nil
	}
	fmt.Fprintln(r.out, FormatError(result.Problems.Error()))
	return nil
}
