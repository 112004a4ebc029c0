//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
	"github.com/spf13/viper"

	"github.com/orange-finance/odeploy/internal/adapters"
	"github.com/orange-finance/odeploy/internal/config"
	"github.com/orange-finance/odeploy/internal/logging"
	"github.com/orange-finance/odeploy/internal/usecase"
)

// InitApp creates a fully wired App instance
func InitApp(v *viper.Viper) (*App, error) {
	wire.Build(
		config.Provider,
		logging.LoggingSet,

		// Adapters
		adapters.AllAdapters,

		// Use cases
		usecase.NewResolveParameters,
		usecase.NewLookupDependencies,
		usecase.NewPlanUnit,
		usecase.NewExecuteDeployment,
		usecase.NewConfigureDeployment,
		usecase.NewVerifyDeployment,
		usecase.NewDeployUnits,
		usecase.NewCheckUpgrade,
		usecase.NewImportDeployment,
		usecase.NewInspectDeployment,
		usecase.NewListDeployments,

		// App
		NewApp,
	)
	return nil, nil
}
