package usecase

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/orange-finance/odeploy/internal/domain"
	"github.com/orange-finance/odeploy/internal/domain/config"
	"github.com/orange-finance/odeploy/internal/domain/models"
	"github.com/orange-finance/odeploy/pkg/upgrades"
)

// DeploymentRepository persists the deployed unit references of every
// environment. GetDeployment returns domain.ErrNotFound for unknown ids.
type DeploymentRepository interface {
	GetDeployment(ctx context.Context, environment, id string) (*models.Deployment, error)
	ListDeployments(ctx context.Context, filter domain.DeploymentFilter) ([]*models.Deployment, error)
	SaveDeployment(ctx context.Context, deployment *models.Deployment) error
	DeleteDeployment(ctx context.Context, environment, id string) error
}

// ContractRepository provides access to compiled contracts
type ContractRepository interface {
	// GetContract resolves a contract by name or "path:Name".
	GetContract(ctx context.Context, key string) (*models.Contract, error)
	// ContractIndex returns the AST contract definitions of every artifact,
	// which upgrade validation needs to walk inheritance chains.
	ContractIndex(ctx context.Context) (upgrades.ContractIndex, error)
}

// ParameterStore reads the raw parameter files of an environment
type ParameterStore interface {
	LoadParameterSets(ctx context.Context, environment string) ([]*models.ParameterSet, error)
}

// ChainClient talks to the environment's node on behalf of the deployer.
// Receipts are returned only for mined, successful transactions.
type ChainClient interface {
	Deployer() common.Address
	ChainID(ctx context.Context) (uint64, error)
	Deploy(ctx context.Context, initCode []byte) (*models.Receipt, error)
	Transact(ctx context.Context, to common.Address, data []byte) (*models.Receipt, error)
	Call(ctx context.Context, to common.Address, data []byte) ([]byte, error)
	CodeAt(ctx context.Context, address common.Address) ([]byte, error)
	StorageAt(ctx context.Context, address common.Address, slot common.Hash) ([]byte, error)
}

// VerificationRequest is what a provider needs to verify one address
type VerificationRequest struct {
	Environment     *config.Environment
	Contract        *models.Contract
	Address         string
	ConstructorArgs string // hex encoded, without selector
}

// ContractVerifier submits source verification to a provider
type ContractVerifier interface {
	Provider() string
	Verify(ctx context.Context, req VerificationRequest) (url string, err error)
}

// Confirmer asks the operator before writing to a production environment
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// Progress tracking interfaces

// ProgressEvent represents a progress update
type ProgressEvent struct {
	Stage   ExecutionStage
	Unit    string
	Current int
	Total   int
	Message string
	Spinner bool
}

// ProgressSink receives progress events
type ProgressSink interface {
	OnProgress(ctx context.Context, event ProgressEvent)
	Info(message string)
	Error(message string)
}

// NopProgress is a no-op implementation of ProgressSink
type NopProgress struct{}

func (NopProgress) OnProgress(context.Context, ProgressEvent) {}
func (NopProgress) Info(string)                               {}
func (NopProgress) Error(string)                              {}

// ExecutionStage represents a stage of the per-unit pipeline
type ExecutionStage string

const (
	StageLoading      ExecutionStage = "Loading"
	StageParameters   ExecutionStage = "Parameters"
	StageDependencies ExecutionStage = "Dependencies"
	StageDeploying    ExecutionStage = "Deploying"
	StageConfiguring  ExecutionStage = "Configuring"
	StageVerifying    ExecutionStage = "Verifying"
	StageCompleted    ExecutionStage = "Completed"
)
