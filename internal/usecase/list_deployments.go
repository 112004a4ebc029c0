package usecase

import (
	"context"
	"sort"

	"github.com/orange-finance/odeploy/internal/domain"
	"github.com/orange-finance/odeploy/internal/domain/config"
	"github.com/orange-finance/odeploy/internal/domain/models"
)

// ListDeploymentsParams contains parameters for listing deployments
type ListDeploymentsParams struct {
	Kind string
	Type models.DeploymentType
	// Implementations includes implementation records, hidden by default.
	Implementations bool
}

// DeploymentListResult contains the result of listing deployments
type DeploymentListResult struct {
	Environment string
	Deployments []*models.Deployment
	Summary     DeploymentSummary
}

// DeploymentSummary provides summary statistics
type DeploymentSummary struct {
	Total          int
	ByKind         map[string]int
	ByType         map[models.DeploymentType]int
	Unverified     int
	Unconfigured   int
	ProxiesAtIndex map[int]int
}

// ListDeployments is the use case for listing deployments
type ListDeployments struct {
	config *config.RuntimeConfig
	repo   DeploymentRepository
	sink   ProgressSink
}

// NewListDeployments creates a new ListDeployments use case
func NewListDeployments(cfg *config.RuntimeConfig, repo DeploymentRepository, sink ProgressSink) *ListDeployments {
	return &ListDeployments{
		config: cfg,
		repo:   repo,
		sink:   sink,
	}
}

// Run executes the list deployments use case
func (uc *ListDeployments) Run(ctx context.Context, params ListDeploymentsParams) (*DeploymentListResult, error) {
	uc.sink.OnProgress(ctx, ProgressEvent{
		Stage:   StageLoading,
		Message: "Loading deployments from registry",
		Spinner: true,
	})

	filter := domain.DeploymentFilter{
		Kind: params.Kind,
		Type: params.Type,
	}
	result := &DeploymentListResult{}
	if uc.config.Environment != nil {
		filter.Environment = uc.config.Environment.Name
		result.Environment = uc.config.Environment.Name
	}

	deployments, err := uc.repo.ListDeployments(ctx, filter)
	if err != nil {
		return nil, err
	}

	if !params.Implementations && params.Type != models.ImplementationDeployment {
		kept := deployments[:0]
		for _, d := range deployments {
			if d.Type != models.ImplementationDeployment {
				kept = append(kept, d)
			}
		}
		deployments = kept
	}

	sortDeployments(deployments)
	result.Deployments = deployments
	result.Summary = calculateSummary(deployments)

	uc.sink.OnProgress(ctx, ProgressEvent{
		Stage:   StageCompleted,
		Current: len(deployments),
		Total:   len(deployments),
		Message: "Deployments loaded",
	})

	return result, nil
}

// sortDeployments sorts deployments by environment, type and id
func sortDeployments(deployments []*models.Deployment) {
	sort.Slice(deployments, func(i, j int) bool {
		if deployments[i].Environment != deployments[j].Environment {
			return deployments[i].Environment < deployments[j].Environment
		}
		if deployments[i].Type != deployments[j].Type {
			return deployments[i].Type < deployments[j].Type
		}
		return deployments[i].ID < deployments[j].ID
	})
}

// calculateSummary calculates summary statistics for deployments
func calculateSummary(deployments []*models.Deployment) DeploymentSummary {
	summary := DeploymentSummary{
		Total:          len(deployments),
		ByKind:         make(map[string]int),
		ByType:         make(map[models.DeploymentType]int),
		ProxiesAtIndex: make(map[int]int),
	}

	for _, d := range deployments {
		summary.ByKind[d.Kind]++
		summary.ByType[d.Type]++
		if d.Verification.Status != models.VerificationStatusVerified {
			summary.Unverified++
		}
		switch d.Configuration.Status {
		case models.ConfigurationPending, models.ConfigurationFailed:
			summary.Unconfigured++
		}
		if d.IsProxy() {
			summary.ProxiesAtIndex[d.ProxyInfo.UpgradeIndex]++
		}
	}

	return summary
}
