package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/orange-finance/odeploy/internal/domain/models"
	"github.com/orange-finance/odeploy/internal/usecase"
	"github.com/samber/lo"
)

// DeploymentsRenderer renders the registry grouped by environment
type DeploymentsRenderer struct {
	out io.Writer
}

// NewDeploymentsRenderer creates a new deployments renderer
func NewDeploymentsRenderer(out io.Writer) *DeploymentsRenderer {
	return &DeploymentsRenderer{out: out}
}

// Render renders the deployment list
func (r *DeploymentsRenderer) Render(result *usecase.DeploymentListResult) error {
	if len(result.Deployments) == 0 {
		if result.Environment != "" {
			fmt.Fprintf(r.out, "No deployments found in %s\n", result.Environment)
		} else {
			fmt.Fprintln(r.out, "No deployments found")
		}
		return nil
	}

	byEnv := lo.GroupBy(result.Deployments, func(d *models.Deployment) string { return d.Environment })
	envs := lo.Uniq(lo.Map(result.Deployments, func(d *models.Deployment, _ int) string { return d.Environment }))

	for i, env := range envs {
		deployments := byEnv[env]
		if i > 0 {
			fmt.Fprintln(r.out)
		}
		chainID := deployments[0].ChainID
		fmt.Fprintln(r.out, envHeader.Sprintf(" ◎ %-12s", "environment:")+envHeaderBold.Sprintf("%-24s", strings.ToUpper(env))+
			envHeader.Sprintf(" chain %-10d", chainID))

		sections := []struct {
			title string
			typ   models.DeploymentType
		}{
			{"PROXIES", models.ProxyDeployment},
			{"IMPLEMENTATIONS", models.ImplementationDeployment},
			{"SINGLETONS", models.SingletonDeployment},
		}
		for _, section := range sections {
			rows := lo.Filter(deployments, func(d *models.Deployment, _ int) bool { return d.Type == section.typ })
			if len(rows) == 0 {
				continue
			}
			fmt.Fprintln(r.out)
			fmt.Fprintf(r.out, "  %s\n", sectionHeaderStyle.Sprint(section.title))
			r.renderSection(rows)
		}
	}

	fmt.Fprintln(r.out)
	r.renderSummary(result.Summary)
	return nil
}

func (r *DeploymentsRenderer) renderSection(deployments []*models.Deployment) {
	t := newTable(r.out, "  ")
	for _, d := range deployments {
		version := d.Version
		if d.IsProxy() {
			version = fmt.Sprintf("%s (step %d)", version, d.ProxyInfo.UpgradeIndex)
		}
		t.AppendRow(table.Row{
			color.New(color.Bold).Sprint(d.ID),
			faintStyle.Sprint(d.Kind),
			addressStyle.Sprint(d.Address),
			strings.TrimSpace(version),
			configurationCell(d.Configuration),
			verificationCell(d.Verification),
		})
		if d.IsProxy() {
			t.AppendRow(table.Row{
				faintStyle.Sprintf("└─ %s", d.ProxyInfo.ImplementationID),
				faintStyle.Sprint(d.ProxyInfo.Kind),
				faintStyle.Sprint(d.ProxyInfo.Implementation),
				"", "", "",
			})
		}
	}
	t.Render()
}

func (r *DeploymentsRenderer) renderSummary(s usecase.DeploymentSummary) {
	parts := []string{fmt.Sprintf("Total deployments: %d", s.Total)}
	if s.Unverified > 0 {
		parts = append(parts, pendingStyle.Sprintf("%d unverified", s.Unverified))
	}
	if s.Unconfigured > 0 {
		parts = append(parts, failedStyle.Sprintf("%d with incomplete configuration", s.Unconfigured))
	}
	fmt.Fprintln(r.out, strings.Join(parts, ", "))
}
