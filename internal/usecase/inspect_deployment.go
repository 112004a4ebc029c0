package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/orange-finance/odeploy/internal/domain"
	"github.com/orange-finance/odeploy/internal/domain/config"
	"github.com/orange-finance/odeploy/internal/domain/models"
	"github.com/orange-finance/odeploy/pkg/abiutil"
)

// InspectedValue is the output of one view function
type InspectedValue struct {
	Method string
	Value  string
	Err    string
}

// InspectDeploymentResult is a registry record plus its live state
type InspectDeploymentResult struct {
	Deployment            *models.Deployment
	OnChainImplementation string
	Values                []InspectedValue
}

// InspectDeployment reads every parameterless view function of a unit,
// typically to compare state before and after an upgrade.
type InspectDeployment struct {
	config    *config.RuntimeConfig
	repo      DeploymentRepository
	contracts ContractRepository
	chain     ChainClient
}

// NewInspectDeployment creates a new InspectDeployment use case
func NewInspectDeployment(cfg *config.RuntimeConfig, repo DeploymentRepository, contracts ContractRepository, chain ChainClient) *InspectDeployment {
	return &InspectDeployment{
		config:    cfg,
		repo:      repo,
		contracts: contracts,
		chain:     chain,
	}
}

// Run inspects the unit id of the selected environment.
func (uc *InspectDeployment) Run(ctx context.Context, id string) (*InspectDeploymentResult, error) {
	env := uc.config.Environment
	if env == nil {
		return nil, fmt.Errorf("no environment selected: pass --env or set ODEPLOY_ENV")
	}

	d, err := uc.repo.GetDeployment(ctx, env.Name, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%s is not recorded in %s", id, env.Name)
		}
		return nil, err
	}
	result := &InspectDeploymentResult{Deployment: d}

	ref := d.Artifact.Path
	if ref == "" {
		ref = d.ContractName
	}
	contract, err := uc.contracts.GetContract(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to load artifact for %s: %w", id, err)
	}

	address := common.HexToAddress(d.Address)
	if d.IsProxy() {
		slot, err := uc.chain.StorageAt(ctx, address, ImplementationSlot)
		if err != nil {
			return nil, fmt.Errorf("failed to read implementation slot: %w", err)
		}
		result.OnChainImplementation = common.BytesToAddress(slot).Hex()
	}

	names := make([]string, 0, len(contract.Artifact.Abi.Methods))
	for name, m := range contract.Artifact.Abi.Methods {
		if len(m.Inputs) == 0 && m.IsConstant() {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	for _, name := range names {
		m := contract.Artifact.Abi.Methods[name]
		value := InspectedValue{Method: name}

		out, err := uc.chain.Call(ctx, address, m.ID)
		if err == nil {
			var decoded []any
			decoded, err = m.Outputs.Unpack(out)
			if err == nil {
				parts := make([]string, len(decoded))
				for i, v := range decoded {
					parts[i] = abiutil.FormatValue(v)
				}
				value.Value = strings.Join(parts, ", ")
			}
		}
		if err != nil {
			value.Err = err.Error()
		}
		result.Values = append(result.Values, value)
	}

	return result, nil
}
