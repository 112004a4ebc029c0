package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/orange-finance/odeploy/internal/domain"
	"github.com/orange-finance/odeploy/internal/domain/config"
	"github.com/orange-finance/odeploy/internal/domain/models"
)

// VerifyDeployment submits deployed units for source verification. A failed
// verification is recorded and reported as a warning, never as a failure of
// the unit.
type VerifyDeployment struct {
	config    *config.RuntimeConfig
	repo      DeploymentRepository
	contracts ContractRepository
	verifier  ContractVerifier
	log       *slog.Logger
}

// NewVerifyDeployment creates a new verify deployment use case
func NewVerifyDeployment(
	cfg *config.RuntimeConfig,
	repo DeploymentRepository,
	contracts ContractRepository,
	verifier ContractVerifier,
	log *slog.Logger,
) *VerifyDeployment {
	return &VerifyDeployment{
		config:    cfg,
		repo:      repo,
		contracts: contracts,
		verifier:  verifier,
		log:       log,
	}
}

// VerifyOptions contains options for verification
type VerifyOptions struct {
	Force bool // Re-verify even if already verified
}

// VerifyResult contains the result of verification
type VerifyResult struct {
	Deployment *models.Deployment
	Info       models.VerificationInfo
	Skipped    bool
	// Warning is a *domain.VerificationError when the provider rejected
	// the submission.
	Warning error
}

// Run verifies d, or its current implementation when d is a proxy.
func (uc *VerifyDeployment) Run(ctx context.Context, d *models.Deployment, opts VerifyOptions) (*VerifyResult, error) {
	result := &VerifyResult{Deployment: d, Info: d.Verification}

	if reason := uc.skipReason(d, opts); reason != "" {
		result.Skipped = true
		result.Info.Reason = reason
		if result.Info.Status == "" || result.Info.Status == models.VerificationStatusUnverified {
			result.Info.Status = models.VerificationStatusSkipped
		}
		return result, nil
	}

	req, err := uc.request(ctx, d)
	if err != nil {
		return nil, err
	}

	info := models.VerificationInfo{
		Provider: uc.verifier.Provider(),
		Target:   req.Address,
	}
	url, err := uc.verifier.Verify(ctx, req)
	if err != nil {
		info.Status = models.VerificationStatusFailed
		info.Reason = err.Error()
		result.Warning = &domain.VerificationError{Unit: d.ID, Provider: info.Provider, Err: err}
	} else {
		now := time.Now()
		info.Status = models.VerificationStatusVerified
		info.URL = url
		info.VerifiedAt = &now
	}
	result.Info = info

	d.Verification = info
	d.UpdatedAt = time.Now()
	if err := uc.repo.SaveDeployment(ctx, d); err != nil {
		return result, fmt.Errorf("failed to record verification of %s: %w", d.ID, err)
	}
	if d.IsProxy() {
		uc.markImplementation(ctx, d, info)
	}

	return result, nil
}

// VerifyUnit verifies the recorded unit id of the selected environment.
func (uc *VerifyDeployment) VerifyUnit(ctx context.Context, id string, opts VerifyOptions) (*VerifyResult, error) {
	if uc.config.Environment == nil {
		return nil, fmt.Errorf("no environment selected")
	}
	d, err := uc.repo.GetDeployment(ctx, uc.config.Environment.Name, id)
	if err != nil {
		return nil, err
	}
	return uc.Run(ctx, d, opts)
}

// VerifyAll verifies every unit of the selected environment that is not yet
// verified. Implementation records are covered through their proxies.
func (uc *VerifyDeployment) VerifyAll(ctx context.Context, opts VerifyOptions) ([]*VerifyResult, error) {
	if uc.config.Environment == nil {
		return nil, fmt.Errorf("no environment selected")
	}
	deployments, err := uc.repo.ListDeployments(ctx, domain.DeploymentFilter{Environment: uc.config.Environment.Name})
	if err != nil {
		return nil, fmt.Errorf("failed to list deployments: %w", err)
	}

	results := make([]*VerifyResult, 0, len(deployments))
	for _, d := range deployments {
		if d.Type == models.ImplementationDeployment {
			continue
		}
		r, err := uc.Run(ctx, d, opts)
		if err != nil {
			return results, err
		}
		results = append(results, r)
	}
	return results, nil
}

func (uc *VerifyDeployment) skipReason(d *models.Deployment, opts VerifyOptions) string {
	var verification config.VerificationConfig
	if uc.config.ProjectConfig != nil {
		verification = uc.config.ProjectConfig.Verification
	}
	if !verification.ShouldVerify(d.Environment) {
		return fmt.Sprintf("verification disabled on %s", d.Environment)
	}
	if d.Verification.Status == models.VerificationStatusVerified && !opts.Force {
		return "already verified"
	}
	if uc.config.DryRun {
		return "dry run"
	}
	if d.Address == "" {
		return "not deployed"
	}
	return ""
}

func (uc *VerifyDeployment) request(ctx context.Context, d *models.Deployment) (VerificationRequest, error) {
	ref := d.Artifact.Path
	if ref == "" {
		ref = d.ContractName
	}
	contract, err := uc.contracts.GetContract(ctx, ref)
	if err != nil {
		return VerificationRequest{}, fmt.Errorf("failed to load artifact for %s: %w", d.ID, err)
	}

	req := VerificationRequest{
		Environment:     uc.config.Environment,
		Contract:        contract,
		Address:         d.Address,
		ConstructorArgs: d.ConstructorArgs,
	}
	if d.IsProxy() {
		req.Address = d.ProxyInfo.Implementation
		req.ConstructorArgs = ""
		if impl, err := uc.repo.GetDeployment(ctx, d.Environment, d.ProxyInfo.ImplementationID); err == nil {
			req.ConstructorArgs = impl.ConstructorArgs
		}
	}
	return req, nil
}

func (uc *VerifyDeployment) markImplementation(ctx context.Context, proxy *models.Deployment, info models.VerificationInfo) {
	impl, err := uc.repo.GetDeployment(ctx, proxy.Environment, proxy.ProxyInfo.ImplementationID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			uc.log.Warn("failed to load implementation record", "id", proxy.ProxyInfo.ImplementationID, "error", err)
		}
		return
	}
	impl.Verification = info
	impl.UpdatedAt = time.Now()
	if err := uc.repo.SaveDeployment(ctx, impl); err != nil {
		uc.log.Warn("failed to record implementation verification", "id", impl.ID, "error", err)
	}
}
