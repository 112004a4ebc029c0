package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-multierror"
	"github.com/orange-finance/odeploy/internal/domain"
	"github.com/orange-finance/odeploy/internal/domain/models"
	"github.com/orange-finance/odeploy/pkg/upgrades"
)

// UpgradeAction is what a deploy run would do with a proxied unit
type UpgradeAction string

const (
	ActionCreate     UpgradeAction = "create"
	ActionUpgrade    UpgradeAction = "upgrade"
	ActionRecheck    UpgradeAction = "recheck"
	ActionSuperseded UpgradeAction = "superseded"
	ActionBlocked    UpgradeAction = "blocked"
)

// CheckUpgradeResult reports the upgrade safety of one unit
type CheckUpgradeResult struct {
	Plan    *models.DeployPlan
	Current *models.Deployment
	Action  UpgradeAction
	// OnChainImplementation is read from the EIP-1967 slot when the unit exists.
	OnChainImplementation string
	// Problems is nil when the implementation is safe to use.
	Problems error
}

// Safe reports whether a deploy run could proceed
func (r *CheckUpgradeResult) Safe() bool {
	return r.Problems == nil && r.Action != ActionBlocked
}

// CheckUpgrade runs the upgrade safety validation of a unit without sending
// anything.
type CheckUpgrade struct {
	planner   *PlanUnit
	repo      DeploymentRepository
	contracts ContractRepository
	chain     ChainClient
}

// NewCheckUpgrade creates a new CheckUpgrade use case
func NewCheckUpgrade(planner *PlanUnit, repo DeploymentRepository, contracts ContractRepository, chain ChainClient) *CheckUpgrade {
	return &CheckUpgrade{
		planner:   planner,
		repo:      repo,
		contracts: contracts,
		chain:     chain,
	}
}

// Run checks ref. Validation problems are reported on the result; the error
// is reserved for failures to run the check at all.
func (uc *CheckUpgrade) Run(ctx context.Context, ref UnitRef) (*CheckUpgradeResult, error) {
	plan, err := uc.planner.Run(ctx, ref, nil)
	if err != nil {
		return nil, err
	}
	if !plan.IsProxied() {
		return nil, fmt.Errorf("%s is not deployed behind a proxy", ref)
	}
	result := &CheckUpgradeResult{Plan: plan}

	contract, err := uc.contracts.GetContract(ctx, plan.Contract)
	if err != nil {
		return nil, fmt.Errorf("failed to load artifact %s: %w", plan.Contract, err)
	}
	impl, opts, err := validationInput(ctx, uc.contracts, plan, contract)
	if err != nil {
		return nil, err
	}

	current, err := uc.repo.GetDeployment(ctx, plan.Environment, plan.Unit)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}
	k := plan.Proxy.UpgradeIndex

	if current == nil {
		if k > 0 {
			result.Action = ActionBlocked
			result.Problems = &domain.DependencyNotDeployedError{Unit: plan.Unit, Environment: plan.Environment, RequiredBy: plan.Kind}
			return result, nil
		}
		result.Action = ActionCreate
		result.Problems = upgrades.ValidateImplementation(impl, opts)
		return result, nil
	}

	result.Current = current
	if !current.IsProxy() {
		return nil, fmt.Errorf("%s is recorded as %s, not as a proxy", plan.Unit, current.Type)
	}

	slot, err := uc.chain.StorageAt(ctx, common.HexToAddress(current.Address), ImplementationSlot)
	if err != nil {
		return nil, fmt.Errorf("failed to read implementation slot of %s: %w", plan.Unit, err)
	}
	result.OnChainImplementation = common.BytesToAddress(slot).Hex()

	recorded := current.ProxyInfo.UpgradeIndex
	switch {
	case recorded < k-1:
		result.Action = ActionBlocked
		result.Problems = &domain.UpgradeOrderError{Unit: plan.Unit, Recorded: recorded, Step: k}
		return result, nil
	case recorded == k-1:
		result.Action = ActionUpgrade
	case recorded == k:
		result.Action = ActionRecheck
	default:
		result.Action = ActionSuperseded
		return result, nil
	}

	var problems *multierror.Error
	if result.Action == ActionUpgrade {
		if err := checkVersion(current.Version, plan.Version); err != nil {
			problems = multierror.Append(problems, err)
		}
		if common.HexToAddress(result.OnChainImplementation) != common.HexToAddress(current.ProxyInfo.Implementation) {
			problems = multierror.Append(problems, fmt.Errorf("on-chain implementation %s differs from recorded %s",
				result.OnChainImplementation, current.ProxyInfo.Implementation))
		}
	}
	if err := upgrades.ValidateUpgrade(current.StorageLayout, impl, opts); err != nil {
		problems = multierror.Append(problems, err)
	}
	result.Problems = problems.ErrorOrNil()

	return result, nil
}
