package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/orange-finance/odeploy/internal/domain"
	"github.com/orange-finance/odeploy/internal/domain/config"
	"github.com/orange-finance/odeploy/internal/domain/models"
	"github.com/orange-finance/odeploy/pkg/upgrades"
)

// ImportDeploymentParams describes a unit deployed outside odeploy
type ImportDeploymentParams struct {
	Unit     string
	Kind     string
	Contract string
	Address  string
	// ProxyKind is empty for units not behind a proxy.
	ProxyKind        models.ProxyKind
	UpgradeIndex     int
	ImplementationID string
	Version          string
	// Force replaces an existing record.
	Force bool
}

// ImportDeploymentResult is the recorded unit and anything worth a look
type ImportDeploymentResult struct {
	Deployment *models.Deployment
	Warnings   []string
}

// ImportDeployment records an existing on-chain unit, taking the storage
// layout from the named artifact so later upgrades can be validated.
type ImportDeployment struct {
	config    *config.RuntimeConfig
	repo      DeploymentRepository
	contracts ContractRepository
	chain     ChainClient
}

// NewImportDeployment creates a new ImportDeployment use case
func NewImportDeployment(cfg *config.RuntimeConfig, repo DeploymentRepository, contracts ContractRepository, chain ChainClient) *ImportDeployment {
	return &ImportDeployment{
		config:    cfg,
		repo:      repo,
		contracts: contracts,
		chain:     chain,
	}
}

// Run imports the unit described by params.
func (uc *ImportDeployment) Run(ctx context.Context, params ImportDeploymentParams) (*ImportDeploymentResult, error) {
	env := uc.config.Environment
	if env == nil {
		return nil, fmt.Errorf("no environment selected: pass --env or set ODEPLOY_ENV")
	}
	if !common.IsHexAddress(params.Address) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidAddress, params.Address)
	}
	address := common.HexToAddress(params.Address)

	existing, err := uc.repo.GetDeployment(ctx, env.Name, params.Unit)
	switch {
	case err == nil && !params.Force:
		return nil, fmt.Errorf("%s is already recorded at %s; use --force to replace it", params.Unit, existing.Address)
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}

	code, err := uc.chain.CodeAt(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to read code at %s: %w", address.Hex(), err)
	}
	if len(code) == 0 {
		return nil, fmt.Errorf("no contract deployed at %s on %s", address.Hex(), env.Name)
	}

	contract, err := uc.contracts.GetContract(ctx, params.Contract)
	if err != nil {
		return nil, fmt.Errorf("failed to load artifact %s: %w", params.Contract, err)
	}

	now := time.Now()
	record := &models.Deployment{
		ID:           params.Unit,
		Environment:  env.Name,
		ChainID:      env.ChainID,
		Kind:         params.Kind,
		ContractName: contract.Name,
		Address:      address.Hex(),
		Type:         models.SingletonDeployment,
		Version:      params.Version,
		Artifact:     contract.Info(),
		Verification: models.VerificationInfo{Status: models.VerificationStatusUnverified},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	result := &ImportDeploymentResult{Deployment: record}

	if params.ProxyKind != "" {
		if err := uc.importProxy(ctx, params, record, contract, result); err != nil {
			return nil, err
		}
	}

	if err := uc.repo.SaveDeployment(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to record %s: %w", record.ID, err)
	}
	return result, nil
}

func (uc *ImportDeployment) importProxy(ctx context.Context, params ImportDeploymentParams, record *models.Deployment, contract *models.Contract, result *ImportDeploymentResult) error {
	address := common.HexToAddress(record.Address)

	slot, err := uc.chain.StorageAt(ctx, address, ImplementationSlot)
	if err != nil {
		return fmt.Errorf("failed to read implementation slot: %w", err)
	}
	impl := common.BytesToAddress(slot)
	if impl == (common.Address{}) {
		return fmt.Errorf("%s has no EIP-1967 implementation; import it without --proxy", address.Hex())
	}

	implID := params.ImplementationID
	if implID == "" {
		implID = (&models.DeployPlan{
			Unit:  params.Unit,
			Proxy: &models.UpgradeStep{UpgradeIndex: params.UpgradeIndex},
		}).ImplementationID()
	}

	record.Type = models.ProxyDeployment
	record.StorageLayout = contract.Artifact.StorageLayout
	record.ProxyInfo = &models.ProxyInfo{
		Kind:             string(params.ProxyKind),
		Implementation:   impl.Hex(),
		ImplementationID: implID,
		UpgradeIndex:     params.UpgradeIndex,
		History: []models.ProxyUpgrade{{
			UpgradeIndex:     params.UpgradeIndex,
			ImplementationID: implID,
			Implementation:   impl.Hex(),
			UpgradedAt:       record.CreatedAt,
		}},
	}

	if params.ProxyKind == models.ProxyKindTransparent {
		admin, err := uc.chain.StorageAt(ctx, address, AdminSlot)
		if err != nil {
			return fmt.Errorf("failed to read admin slot: %w", err)
		}
		record.ProxyInfo.Admin = common.BytesToAddress(admin).Hex()
	}

	if record.StorageLayout == nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"artifact %s has no storage layout; upgrades of %s cannot be validated until it is re-imported", contract.Name, params.Unit))
	}

	index, err := uc.contracts.ContractIndex(ctx)
	if err != nil {
		return fmt.Errorf("failed to index contracts: %w", err)
	}
	err = upgrades.ValidateImplementation(upgrades.Implementation{
		Name:       contract.Name,
		ABI:        contract.Artifact.Abi,
		Layout:     contract.Artifact.StorageLayout,
		ContractID: contract.ASTID(),
		Index:      index,
	}, upgrades.Options{Kind: upgrades.Kind(params.ProxyKind)})
	if err != nil {
		result.Warnings = append(result.Warnings, err.Error())
	}
	return nil
}
