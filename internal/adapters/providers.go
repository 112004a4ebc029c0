package adapters

import (
	"github.com/google/wire"
	"github.com/orange-finance/odeploy/internal/adapters/blockchain"
	"github.com/orange-finance/odeploy/internal/adapters/interactive"
	"github.com/orange-finance/odeploy/internal/adapters/parameters"
	"github.com/orange-finance/odeploy/internal/adapters/progress"
	"github.com/orange-finance/odeploy/internal/adapters/repository/contracts"
	"github.com/orange-finance/odeploy/internal/adapters/repository/deployments"
	"github.com/orange-finance/odeploy/internal/adapters/verification"
	"github.com/orange-finance/odeploy/internal/recipes"
	"github.com/orange-finance/odeploy/internal/usecase"
)

// RepositorySet provides the file-backed registry, artifacts and parameters
var RepositorySet = wire.NewSet(
	deployments.NewFileRepositoryFromConfig,
	wire.Bind(new(usecase.DeploymentRepository), new(*deployments.FileRepository)),

	contracts.NewRepository,
	wire.Bind(new(usecase.ContractRepository), new(*contracts.Repository)),

	parameters.NewStore,
	wire.Bind(new(usecase.ParameterStore), new(*parameters.Store)),
)

// BlockchainSet provides the JSON-RPC client of the selected environment
var BlockchainSet = wire.NewSet(
	blockchain.NewClient,
	wire.Bind(new(usecase.ChainClient), new(*blockchain.Client)),
)

// VerificationSet provides the configured verification provider
var VerificationSet = wire.NewSet(
	verification.NewVerifier,
)

// InteractiveSet provides prompts and progress output
var InteractiveSet = wire.NewSet(
	interactive.NewPrompter,
	wire.Bind(new(usecase.Confirmer), new(*interactive.Prompter)),

	progress.NewSink,
)

// AllAdapters includes all adapter sets
var AllAdapters = wire.NewSet(
	recipes.NewRegistry,

	RepositorySet,
	BlockchainSet,
	VerificationSet,
	InteractiveSet,
)
