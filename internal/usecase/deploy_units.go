package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/orange-finance/odeploy/internal/domain"
	"github.com/orange-finance/odeploy/internal/domain/config"
	"github.com/orange-finance/odeploy/internal/domain/models"
	"github.com/orange-finance/odeploy/internal/recipes"
	"github.com/samber/lo"
)

// DeployUnitsParams selects the units of one run
type DeployUnitsParams struct {
	Units []UnitRef
	// IDs selects units by id across kinds, as --unit and ODEPLOY_UNIT do.
	IDs []string
	// All deploys every parameter set of the environment in dependency order.
	All bool
}

// DeployUnitsResult holds one report per processed unit
type DeployUnitsResult struct {
	Environment *config.Environment
	Reports     []*models.UnitReport
	DryRun      bool
}

// Warnings returns the warnings of every report
func (r *DeployUnitsResult) Warnings() []string {
	return lo.FlatMap(r.Reports, func(rep *models.UnitReport, _ int) []string {
		return lo.Map(rep.Warnings, func(w string, _ int) string { return rep.Unit + ": " + w })
	})
}

// DeployUnits runs the unit pipeline (plan, deploy or upgrade, configure,
// verify) for each selected unit in order, stopping at the first failure.
type DeployUnits struct {
	config    *config.RuntimeConfig
	params    *ResolveParameters
	planner   *PlanUnit
	executor  *ExecuteDeployment
	configure *ConfigureDeployment
	verify    *VerifyDeployment
	recipes   *recipes.Registry
	confirmer Confirmer
	progress  ProgressSink
	log       *slog.Logger
}

// NewDeployUnits creates a new DeployUnits use case
func NewDeployUnits(
	cfg *config.RuntimeConfig,
	params *ResolveParameters,
	planner *PlanUnit,
	executor *ExecuteDeployment,
	configure *ConfigureDeployment,
	verify *VerifyDeployment,
	registry *recipes.Registry,
	confirmer Confirmer,
	progress ProgressSink,
	log *slog.Logger,
) *DeployUnits {
	return &DeployUnits{
		config:    cfg,
		params:    params,
		planner:   planner,
		executor:  executor,
		configure: configure,
		verify:    verify,
		recipes:   registry,
		confirmer: confirmer,
		progress:  progress,
		log:       log,
	}
}

// Run executes the pipeline. The returned result holds the reports of every
// unit processed before a failure.
func (uc *DeployUnits) Run(ctx context.Context, params DeployUnitsParams) (*DeployUnitsResult, error) {
	env := uc.config.Environment
	if env == nil {
		return nil, fmt.Errorf("no environment selected: pass --env or set ODEPLOY_ENV")
	}
	result := &DeployUnitsResult{Environment: env, DryRun: uc.config.DryRun}

	if err := uc.params.Load(ctx, env.Name); err != nil {
		return result, err
	}

	units, err := uc.selectUnits(ctx, env.Name, params)
	if err != nil {
		return result, err
	}
	if len(units) == 0 {
		return result, fmt.Errorf("no units selected: pass <kind>/<unit> arguments or --all")
	}

	// A typo in any selected record aborts the run before anything is sent.
	var invalid *multierror.Error
	for _, ref := range units {
		key := models.ParameterKey{Kind: ref.Kind, Environment: env.Name, Unit: ref.Unit}
		if _, err := uc.params.Resolve(ctx, key); err != nil {
			invalid = multierror.Append(invalid, fmt.Errorf("%s: %w", ref, err))
		}
	}
	if err := invalid.ErrorOrNil(); err != nil {
		return result, err
	}

	if err := uc.confirm(ctx, env, len(units)); err != nil {
		return result, err
	}

	// Units and upgrade steps a dry run has planned but not recorded
	pending := make(map[string]bool)
	planned := make(map[string]int)
	for i, ref := range units {
		uc.progress.OnProgress(ctx, ProgressEvent{
			Stage:   StageParameters,
			Unit:    ref.String(),
			Current: i + 1,
			Total:   len(units),
			Message: fmt.Sprintf("Planning %s", ref),
			Spinner: true,
		})

		report, err := uc.runUnit(ctx, ref, pending, planned)
		if report != nil {
			result.Reports = append(result.Reports, report)
		}
		if err != nil {
			uc.progress.Error(fmt.Sprintf("%s failed", ref))
			return result, fmt.Errorf("%s: %w", ref, err)
		}
		if result.DryRun && report.State.Changed() {
			pending[report.Unit] = true
			if report.Plan.IsProxied() {
				planned[report.Unit] = report.Plan.Proxy.UpgradeIndex
			}
		}
	}

	uc.progress.OnProgress(ctx, ProgressEvent{Stage: StageCompleted, Current: len(units), Total: len(units)})
	return result, nil
}

func (uc *DeployUnits) runUnit(ctx context.Context, ref UnitRef, pending map[string]bool, planned map[string]int) (*models.UnitReport, error) {
	plan, err := uc.planner.Run(ctx, ref, pending)
	if err != nil {
		return nil, err
	}
	report := &models.UnitReport{Unit: plan.Unit, Kind: plan.Kind, Plan: plan, DryRun: uc.config.DryRun}

	uc.progress.OnProgress(ctx, ProgressEvent{Stage: StageDeploying, Unit: ref.String(), Message: fmt.Sprintf("Deploying %s", plan.Unit), Spinner: true})
	exec, err := uc.executor.Run(ctx, plan)
	if err != nil {
		if uc.config.DryRun && followsPlannedStep(err, plan, planned) {
			report.State = models.StateUpgraded
			report.Configured = lo.Map(plan.Configure, func(c models.Call, _ int) string { return c.String() })
			return report, nil
		}
		return report, err
	}
	report.State = exec.State
	report.Warnings = append(report.Warnings, exec.Warnings...)
	if exec.Deployment != nil {
		report.Address = exec.Deployment.Address
	}
	uc.log.Debug("unit executed", "unit", plan.Unit, "state", exec.State, "txs", len(exec.Transactions))

	uc.progress.OnProgress(ctx, ProgressEvent{Stage: StageConfiguring, Unit: ref.String(), Message: fmt.Sprintf("Configuring %s", plan.Unit), Spinner: true})
	configured, err := uc.configure.Run(ctx, plan, exec)
	if configured != nil {
		report.Warnings = append(report.Warnings, configured.Warnings...)
		if exec.DryRun {
			report.Configured = configured.Planned
		} else {
			report.Configured = configured.Applied
		}
		if configured.Skipped {
			report.Configured = nil
		}
	}
	if err != nil {
		return report, err
	}

	if plan.Verify && exec.Deployment != nil {
		uc.progress.OnProgress(ctx, ProgressEvent{Stage: StageVerifying, Unit: ref.String(), Message: fmt.Sprintf("Verifying %s", plan.Unit), Spinner: true})
		verified, err := uc.verify.Run(ctx, exec.Deployment, VerifyOptions{})
		switch {
		case err != nil:
			report.Warnings = append(report.Warnings, err.Error())
		default:
			report.Verification = verified.Info
			if verified.Warning != nil {
				report.Warnings = append(report.Warnings, verified.Warning.Error())
			}
		}
	}

	return report, nil
}

func (uc *DeployUnits) selectUnits(ctx context.Context, env string, params DeployUnitsParams) ([]UnitRef, error) {
	if !params.All && len(params.IDs) == 0 {
		return params.Units, nil
	}
	sets, err := uc.params.List(ctx, env)
	if err != nil {
		return nil, err
	}
	refs := lo.Map(sets, func(s *models.ParameterSet, _ int) UnitRef {
		return UnitRef{Kind: s.Kind, Unit: s.Unit}
	})
	if params.All {
		return refs, nil
	}

	// Invalid sets stay selectable so their violations are reported below.
	selected := append([]UnitRef(nil), params.Units...)
	for _, id := range params.IDs {
		matches := lo.Filter(refs, func(r UnitRef, _ int) bool { return r.Unit == id })
		switch len(matches) {
		case 0:
			return nil, fmt.Errorf("no parameter set for unit %q in %s", id, env)
		case 1:
			selected = append(selected, matches[0])
		default:
			return nil, fmt.Errorf("unit %q exists for several kinds (%s); pass <kind>/<unit>",
				id, strings.Join(lo.Map(matches, func(r UnitRef, _ int) string { return r.Kind }), ", "))
		}
	}
	return lo.Uniq(selected), nil
}

func (uc *DeployUnits) confirm(ctx context.Context, env *config.Environment, n int) error {
	if !env.Production || uc.config.DryRun || uc.config.Yes {
		return nil
	}
	if uc.config.NonInteractive || uc.confirmer == nil {
		return fmt.Errorf("refusing to write to production environment %s without --yes", env.Name)
	}
	ok, err := uc.confirmer.Confirm(ctx, fmt.Sprintf("Deploy %d unit(s) to production environment %s", n, env.Name))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("aborted")
	}
	return nil
}

// followsPlannedStep reports whether err only says that the previous upgrade
// step of plan is not recorded, while this dry run has already planned it.
func followsPlannedStep(err error, plan *models.DeployPlan, planned map[string]int) bool {
	if !plan.IsProxied() {
		return false
	}
	step, ok := planned[plan.Unit]
	if !ok || step != plan.Proxy.UpgradeIndex-1 {
		return false
	}
	var notDeployed *domain.DependencyNotDeployedError
	if errors.As(err, &notDeployed) {
		return notDeployed.Unit == plan.Unit
	}
	var order *domain.UpgradeOrderError
	if errors.As(err, &order) {
		return order.Unit == plan.Unit
	}
	return false
}
