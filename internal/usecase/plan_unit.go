package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/orange-finance/odeploy/internal/domain/config"
	"github.com/orange-finance/odeploy/internal/domain/models"
	"github.com/orange-finance/odeploy/internal/recipes"
)

// UnitRef selects one parameter set of the current environment
type UnitRef struct {
	Kind string
	Unit string
}

func (r UnitRef) String() string {
	return r.Kind + "/" + r.Unit
}

// ParseUnitRef parses "<kind>/<unit>".
func ParseUnitRef(s string) (UnitRef, error) {
	kind, unit, ok := strings.Cut(s, "/")
	if !ok || kind == "" || unit == "" {
		return UnitRef{}, fmt.Errorf("invalid unit %q: expected <kind>/<unit>, e.g. automator-v2/WETH-USDC", s)
	}
	return UnitRef{Kind: kind, Unit: unit}, nil
}

// PlanUnit turns a unit reference into a deployment plan: resolve the
// parameter record, resolve its dependencies and apply the kind's recipe.
type PlanUnit struct {
	config  *config.RuntimeConfig
	params  *ResolveParameters
	deps    *LookupDependencies
	recipes *recipes.Registry
	chain   ChainClient
}

// NewPlanUnit creates a new PlanUnit use case
func NewPlanUnit(
	cfg *config.RuntimeConfig,
	params *ResolveParameters,
	deps *LookupDependencies,
	registry *recipes.Registry,
	chain ChainClient,
) *PlanUnit {
	return &PlanUnit{
		config:  cfg,
		params:  params,
		deps:    deps,
		recipes: registry,
		chain:   chain,
	}
}

// Run plans ref. pending lists units a dry run has already planned.
func (uc *PlanUnit) Run(ctx context.Context, ref UnitRef, pending map[string]bool) (*models.DeployPlan, error) {
	env := uc.config.Environment
	if env == nil {
		return nil, fmt.Errorf("no environment selected: pass --env or set ODEPLOY_ENV")
	}

	recipe, err := uc.recipes.Get(ref.Kind)
	if err != nil {
		return nil, err
	}

	set, err := uc.params.Resolve(ctx, models.ParameterKey{Kind: ref.Kind, Environment: env.Name, Unit: ref.Unit})
	if err != nil {
		return nil, err
	}

	deps, err := recipe.Dependencies(set.Values)
	if err != nil {
		return nil, err
	}
	resolved, err := uc.deps.Run(ctx, env.Name, ref.Unit, deps, pending)
	if err != nil {
		return nil, err
	}

	plan, err := recipe.Plan(recipes.Input{
		Environment: env,
		Unit:        ref.Unit,
		Values:      set.Values,
		Deployer:    uc.chain.Deployer(),
		Deps:        resolved.Addresses,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to plan %s: %w", ref, err)
	}
	if plan.Unit != ref.Unit {
		return nil, fmt.Errorf("parameter file %s declares id %q; the file name must match the unit id", set.Path, plan.Unit)
	}

	plan.Environment = env.Name
	plan.Dependencies = resolved.Refs
	return plan, nil
}
