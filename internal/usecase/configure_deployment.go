package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/orange-finance/odeploy/internal/domain/models"
	"github.com/orange-finance/odeploy/pkg/abiutil"
)

// ConfigureResult reports the post-deploy calls of one unit
type ConfigureResult struct {
	Applied  []string
	Planned  []string
	Skipped  bool
	Warnings []string
}

// ConfigureDeployment runs a unit's post-deploy calls in order, stopping at
// the first failure. Progress is written to the registry after every call
// so an interrupted sequence is visible on later runs.
type ConfigureDeployment struct {
	repo      DeploymentRepository
	contracts ContractRepository
	chain     ChainClient
	log       *slog.Logger
}

// NewConfigureDeployment creates a new ConfigureDeployment use case
func NewConfigureDeployment(
	repo DeploymentRepository,
	contracts ContractRepository,
	chain ChainClient,
	log *slog.Logger,
) *ConfigureDeployment {
	return &ConfigureDeployment{
		repo:      repo,
		contracts: contracts,
		chain:     chain,
		log:       log,
	}
}

// Run applies plan.Configure when exec created or upgraded the unit.
func (uc *ConfigureDeployment) Run(ctx context.Context, plan *models.DeployPlan, exec *models.ExecutionResult) (*ConfigureResult, error) {
	result := &ConfigureResult{}
	for _, call := range plan.Configure {
		result.Planned = append(result.Planned, call.String())
	}

	if !exec.State.Changed() {
		result.Skipped = true
		if d := exec.Deployment; d != nil {
			switch d.Configuration.Status {
			case models.ConfigurationPending, models.ConfigurationFailed:
				result.Warnings = append(result.Warnings, fmt.Sprintf(
					"configuration of %s stopped after %d of %d calls (%s) and is not replayed; apply the rest manually",
					d.ID, len(d.Configuration.Applied), d.Configuration.Total, d.Configuration.Status))
			}
		}
		return result, nil
	}

	if exec.DryRun {
		return result, nil
	}

	contract, err := uc.contracts.GetContract(ctx, plan.Contract)
	if err != nil {
		return nil, fmt.Errorf("failed to load artifact %s: %w", plan.Contract, err)
	}

	record := exec.Deployment
	record.Configuration = models.ConfigurationInfo{
		Status: models.ConfigurationPending,
		Total:  len(plan.Configure),
	}
	if len(plan.Configure) == 0 {
		record.Configuration.Status = models.ConfigurationApplied
		return result, uc.save(ctx, record)
	}
	if err := uc.save(ctx, record); err != nil {
		return nil, err
	}

	unit := common.HexToAddress(record.Address)
	for i, call := range plan.Configure {
		target := unit
		if call.Target != "" {
			target = common.HexToAddress(call.Target)
		}

		uc.log.Debug("configuring", "unit", plan.Unit, "call", call.String(), "step", i+1, "of", len(plan.Configure))
		data, err := abiutil.PackMethod(contract.Artifact.Abi, call.Method, call.Args...)
		if err == nil {
			_, err = uc.chain.Transact(ctx, target, data)
		}
		if err != nil {
			record.Configuration.Status = models.ConfigurationFailed
			record.Configuration.Error = fmt.Sprintf("%s: %v", call.String(), err)
			if saveErr := uc.save(ctx, record); saveErr != nil {
				uc.log.Error("failed to record configuration failure", "unit", plan.Unit, "error", saveErr)
			}
			return result, txError(plan.Unit, call.String(), err)
		}

		record.Configuration.Applied = append(record.Configuration.Applied, call.String())
		result.Applied = append(result.Applied, call.String())
		if i == len(plan.Configure)-1 {
			record.Configuration.Status = models.ConfigurationApplied
		}
		if err := uc.save(ctx, record); err != nil {
			return result, err
		}
	}

	return result, nil
}

func (uc *ConfigureDeployment) save(ctx context.Context, d *models.Deployment) error {
	d.UpdatedAt = time.Now()
	if err := uc.repo.SaveDeployment(ctx, d); err != nil {
		return fmt.Errorf("failed to record configuration of %s: %w", d.ID, err)
	}
	return nil
}
