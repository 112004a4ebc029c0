package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/orange-finance/odeploy/internal/domain"
	"github.com/orange-finance/odeploy/internal/domain/models"
	"github.com/orange-finance/odeploy/internal/recipes"
)

// ResolvedDependencies maps recipe parameters to addresses
type ResolvedDependencies struct {
	Addresses map[string]common.Address
	Refs      []models.DependencyRef
}

// LookupDependencies turns a recipe's symbolic references into addresses
// using the registry of the environment.
type LookupDependencies struct {
	repo DeploymentRepository
}

// NewLookupDependencies creates a new LookupDependencies use case
func NewLookupDependencies(repo DeploymentRepository) *LookupDependencies {
	return &LookupDependencies{repo: repo}
}

// Run resolves deps for the unit requiredBy. An override address in the
// record wins over the managed lookup; a managed unit missing from the
// registry is a DependencyNotDeployedError unless it is listed in pending,
// the units a dry run has already planned.
func (uc *LookupDependencies) Run(ctx context.Context, environment, requiredBy string, deps []recipes.Dependency, pending map[string]bool) (*ResolvedDependencies, error) {
	out := &ResolvedDependencies{Addresses: make(map[string]common.Address, len(deps))}

	for _, dep := range deps {
		if dep.Override != "" {
			if !common.IsHexAddress(dep.Override) {
				return nil, fmt.Errorf("%w for %s: %q", domain.ErrInvalidAddress, dep.Param, dep.Override)
			}
			addr := common.HexToAddress(dep.Override)
			out.Addresses[dep.Param] = addr
			out.Refs = append(out.Refs, models.DependencyRef{Param: dep.Param, Address: addr.Hex(), Verbatim: true})
			continue
		}

		deployment, err := uc.repo.GetDeployment(ctx, environment, dep.Unit)
		if errors.Is(err, domain.ErrNotFound) && pending[dep.Unit] {
			out.Addresses[dep.Param] = common.Address{}
			out.Refs = append(out.Refs, models.DependencyRef{Param: dep.Param, Unit: dep.Unit, Address: common.Address{}.Hex(), Pending: true})
			continue
		}
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, &domain.DependencyNotDeployedError{Unit: dep.Unit, Environment: environment, RequiredBy: requiredBy}
			}
			return nil, fmt.Errorf("failed to look up %s: %w", dep.Unit, err)
		}

		addr := common.HexToAddress(deployment.Address)
		out.Addresses[dep.Param] = addr
		out.Refs = append(out.Refs, models.DependencyRef{Param: dep.Param, Unit: dep.Unit, Address: addr.Hex()})
	}

	return out, nil
}
