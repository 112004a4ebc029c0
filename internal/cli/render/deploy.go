package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/orange-finance/odeploy/internal/domain/models"
	"github.com/orange-finance/odeploy/internal/usecase"
	"github.com/orange-finance/odeploy/pkg/abiutil"
	"github.com/samber/lo"
)

// DeployRenderer renders the outcome of a deploy run
type DeployRenderer struct {
	out     io.Writer
	verbose bool
}

// NewDeployRenderer creates a new deploy renderer. Plans are always shown
// for dry runs and for every run when verbose is set.
func NewDeployRenderer(out io.Writer, verbose bool) *DeployRenderer {
	return &DeployRenderer{out: out, verbose: verbose}
}

// Render renders the result of a run
func (r *DeployRenderer) Render(result *usecase.DeployUnitsResult) error {
	if result == nil || result.Environment == nil {
		return nil
	}

	fmt.Fprintln(r.out)
	header := fmt.Sprintf("Environment %s (chain %d)", result.Environment.Name, result.Environment.ChainID)
	if result.DryRun {
		header += pendingStyle.Sprint("  [dry run: nothing was sent]")
	}
	fmt.Fprintln(r.out, color.New(color.Bold).Sprint(header))

	for _, report := range result.Reports {
		r.renderReport(report, result.DryRun)
	}

	RenderWarnings(r.out, result.Warnings())
	return nil
}

func (r *DeployRenderer) renderReport(report *models.UnitReport, dryRun bool) {
	fmt.Fprintln(r.out)
	address := report.Address
	if address == "" {
		address = faintStyle.Sprint("(pending)")
	}
	fmt.Fprintf(r.out, "  %s %-10s %s %s\n",
		color.New(color.Bold).Sprint(report.Unit),
		stateCell(report.State),
		addressStyle.Sprint(address),
		faintStyle.Sprintf("[%s]", report.Kind))

	if (dryRun || r.verbose) && report.Plan != nil {
		r.renderPlan(report.Plan)
	}

	if len(report.Configured) > 0 {
		label := "configured"
		if dryRun {
			label = "would configure"
		}
		fmt.Fprintf(r.out, "    %s:\n", label)
		for _, call := range report.Configured {
			fmt.Fprintf(r.out, "      %s\n", call)
		}
	}

	switch report.Verification.Status {
	case models.VerificationStatusVerified:
		fmt.Fprintf(r.out, "    %s %s\n", verificationCell(report.Verification), report.Verification.URL)
	case models.VerificationStatusFailed:
		fmt.Fprintf(r.out, "    %s via %s\n", verificationCell(report.Verification), report.Verification.Provider)
	case models.VerificationStatusSkipped:
		fmt.Fprintf(r.out, "    %s (%s)\n", verificationCell(report.Verification), report.Verification.Reason)
	}
}

func (r *DeployRenderer) renderPlan(plan *models.DeployPlan) {
	fmt.Fprintf(r.out, "    contract:  %s %s\n", plan.Contract, faintStyle.Sprint(plan.Version))
	if len(plan.ConstructorArgs) > 0 {
		args := lo.Map(plan.ConstructorArgs, func(a any, _ int) string { return abiutil.FormatValue(a) })
		fmt.Fprintf(r.out, "    args:      %s\n", strings.Join(args, ", "))
	}
	if plan.Proxy != nil {
		fmt.Fprintf(r.out, "    proxy:     %s step %d -> %s\n", plan.Proxy.Kind, plan.Proxy.UpgradeIndex, plan.ImplementationID())
		if plan.Proxy.Initializer != nil {
			fmt.Fprintf(r.out, "    init:      %s\n", plan.Proxy.Initializer)
		}
	}
	for _, dep := range plan.Dependencies {
		source := dep.Unit
		switch {
		case dep.Verbatim:
			source = "override"
		case dep.Pending:
			source += pendingStyle.Sprint(" (planned in this run)")
		}
		fmt.Fprintf(r.out, "    %-10s %s %s\n", dep.Param+":", addressStyle.Sprint(dep.Address), faintStyle.Sprint(source))
	}
}
