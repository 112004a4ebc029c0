package app

import (
	"log/slog"

	"github.com/orange-finance/odeploy/internal/adapters/interactive"
	"github.com/orange-finance/odeploy/internal/domain/config"
	"github.com/orange-finance/odeploy/internal/usecase"
)

// App is the main application container that holds all use cases
type App struct {
	// Configuration
	Config *config.RuntimeConfig
	Log    *slog.Logger

	// Shared dependencies
	Prompter *interactive.Prompter

	// Use cases
	DeployUnits       *usecase.DeployUnits
	ResolveParameters *usecase.ResolveParameters
	CheckUpgrade      *usecase.CheckUpgrade
	ImportDeployment  *usecase.ImportDeployment
	InspectDeployment *usecase.InspectDeployment
	ListDeployments   *usecase.ListDeployments
	VerifyDeployment  *usecase.VerifyDeployment
}

// NewApp creates a new application instance with all use cases
func NewApp(
	cfg *config.RuntimeConfig,
	log *slog.Logger,
	prompter *interactive.Prompter,
	deployUnits *usecase.DeployUnits,
	resolveParameters *usecase.ResolveParameters,
	checkUpgrade *usecase.CheckUpgrade,
	importDeployment *usecase.ImportDeployment,
	inspectDeployment *usecase.InspectDeployment,
	listDeployments *usecase.ListDeployments,
	verifyDeployment *usecase.VerifyDeployment,
) (*App, error) {
	return &App{
		Config:            cfg,
		Log:               log,
		Prompter:          prompter,
		DeployUnits:       deployUnits,
		ResolveParameters: resolveParameters,
		CheckUpgrade:      checkUpgrade,
		ImportDeployment:  importDeployment,
		InspectDeployment: inspectDeployment,
		ListDeployments:   listDeployments,
		VerifyDeployment:  verifyDeployment,
	}, nil
}
