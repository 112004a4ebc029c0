package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/orange-finance/odeploy/internal/domain"
	"github.com/orange-finance/odeploy/internal/domain/config"
	"github.com/orange-finance/odeploy/internal/domain/models"
	"github.com/orange-finance/odeploy/pkg/abiutil"
	"github.com/orange-finance/odeploy/pkg/upgrades"
)

// EIP-1967 storage slots
var (
	ImplementationSlot = common.HexToHash("0x360894a13ba1a3210667c828492db98dca3e2076cc3735a920a3ca505d382bbc")
	AdminSlot          = common.HexToHash("0xb53127684a568b3173ae13b9f8a6016e243e63b6e8ee1178d6a717850b5d6103")
)

// Proxy artifacts, taken from the project's OpenZeppelin build
const (
	ERC1967ProxyContract     = "ERC1967Proxy"
	TransparentProxyContract = "TransparentUpgradeableProxy"
	ProxyAdminContract       = "ProxyAdmin"
)

// ExecuteDeployment brings one unit to the state its plan describes:
// deploy when absent, apply the next upgrade step, or leave it alone.
type ExecuteDeployment struct {
	config    *config.RuntimeConfig
	repo      DeploymentRepository
	contracts ContractRepository
	chain     ChainClient
	log       *slog.Logger
}

// NewExecuteDeployment creates a new ExecuteDeployment use case
func NewExecuteDeployment(
	cfg *config.RuntimeConfig,
	repo DeploymentRepository,
	contracts ContractRepository,
	chain ChainClient,
	log *slog.Logger,
) *ExecuteDeployment {
	return &ExecuteDeployment{
		config:    cfg,
		repo:      repo,
		contracts: contracts,
		chain:     chain,
		log:       log,
	}
}

// Run executes plan. In dry run mode the state is decided and the upgrade
// validated, but nothing is submitted and the registry is not written.
func (uc *ExecuteDeployment) Run(ctx context.Context, plan *models.DeployPlan) (*models.ExecutionResult, error) {
	existing, err := uc.repo.GetDeployment(ctx, plan.Environment, plan.Unit)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}

	contract, err := uc.contracts.GetContract(ctx, plan.Contract)
	if err != nil {
		return nil, fmt.Errorf("failed to load artifact %s: %w", plan.Contract, err)
	}

	run := &execution{
		ExecuteDeployment: uc,
		plan:              plan,
		contract:          contract,
		result:            &models.ExecutionResult{DryRun: uc.config.DryRun},
	}

	if !plan.IsProxied() {
		err = run.singleton(ctx, existing)
	} else {
		err = run.proxied(ctx, existing)
	}
	if err != nil {
		return nil, err
	}
	return run.result, nil
}

// execution carries the state of one Run
type execution struct {
	*ExecuteDeployment
	plan     *models.DeployPlan
	contract *models.Contract
	result   *models.ExecutionResult
}

func (e *execution) singleton(ctx context.Context, existing *models.Deployment) error {
	if existing != nil {
		e.log.Debug("unit already deployed", "unit", e.plan.Unit, "address", existing.Address)
		e.result.State = models.StateDeployedExisting
		e.result.Deployment = existing
		return nil
	}

	bytecode, err := e.contract.Artifact.Bytecode.Bytes()
	if err != nil {
		return fmt.Errorf("%s: %w", e.plan.Contract, err)
	}
	initCode, err := abiutil.PackConstructor(e.contract.Artifact.Abi, bytecode, e.plan.ConstructorArgs...)
	if err != nil {
		return fmt.Errorf("failed to encode %s constructor: %w", e.plan.Contract, err)
	}

	record := e.newRecord(e.plan.Unit, models.SingletonDeployment)
	record.ConstructorArgs = hexutil.Encode(initCode[len(bytecode):])
	e.result.State = models.StateDeployedFresh
	e.result.Deployment = record

	if e.result.DryRun {
		return nil
	}

	receipt, err := e.chain.Deploy(ctx, initCode)
	if err != nil {
		return txError(e.plan.Unit, "deploy "+e.plan.Contract, err)
	}
	record.Address = receipt.ContractAddress
	record.TransactionHash = receipt.TxHash
	e.result.Transactions = append(e.result.Transactions, receipt.TxHash)

	return e.save(ctx, record)
}

func (e *execution) proxied(ctx context.Context, existing *models.Deployment) error {
	step := e.plan.Proxy
	k := step.UpgradeIndex

	if existing == nil {
		if k > 0 {
			return &domain.DependencyNotDeployedError{Unit: e.plan.Unit, Environment: e.plan.Environment, RequiredBy: e.plan.Kind}
		}
		return e.createProxy(ctx)
	}

	if !existing.IsProxy() {
		return fmt.Errorf("%s is recorded as %s, not as a proxy", e.plan.Unit, existing.Type)
	}
	e.result.Deployment = existing

	recorded := existing.ProxyInfo.UpgradeIndex
	switch {
	case recorded < k-1:
		return &domain.UpgradeOrderError{Unit: e.plan.Unit, Recorded: recorded, Step: k}
	case recorded == k-1:
		return e.upgrade(ctx, existing)
	case recorded == k:
		// Already at this step: only check that the artifact still matches.
		e.result.State = models.StateDeployedExisting
		impl, opts, err := e.implementation(ctx)
		if err != nil {
			return err
		}
		if err := upgrades.ValidateUpgrade(existing.StorageLayout, impl, opts); err != nil {
			e.result.Warnings = append(e.result.Warnings,
				fmt.Sprintf("%s artifact no longer matches the deployed step %d: %v", e.plan.Contract, k, err))
		}
		return nil
	default:
		e.log.Debug("upgrade step superseded", "unit", e.plan.Unit, "step", k, "recorded", recorded)
		e.result.State = models.StateDeployedExisting
		return nil
	}
}

func (e *execution) createProxy(ctx context.Context) error {
	step := e.plan.Proxy

	impl, opts, err := e.implementation(ctx)
	if err != nil {
		return err
	}
	if err := upgrades.ValidateImplementation(impl, opts); err != nil {
		return &domain.UpgradeSafetyError{Unit: e.plan.Unit, Contract: e.plan.Contract, Err: err}
	}

	initData, err := e.initializer()
	if err != nil {
		return err
	}

	proxyName := ERC1967ProxyContract
	if step.Kind == models.ProxyKindTransparent {
		proxyName = TransparentProxyContract
	}
	proxyContract, err := e.contracts.GetContract(ctx, proxyName)
	if err != nil {
		return fmt.Errorf("failed to load proxy artifact %s: %w", proxyName, err)
	}

	record := e.newRecord(e.plan.Unit, models.ProxyDeployment)
	record.ProxyInfo = &models.ProxyInfo{
		Kind:             string(step.Kind),
		ImplementationID: e.plan.ImplementationID(),
		UpgradeIndex:     0,
	}
	e.result.State = models.StateDeployedFresh
	e.result.Deployment = record

	implAddr, err := e.deployImplementation(ctx)
	if err != nil {
		return err
	}
	if e.result.DryRun {
		return nil
	}

	proxyCode, err := proxyContract.Artifact.Bytecode.Bytes()
	if err != nil {
		return fmt.Errorf("%s: %w", proxyName, err)
	}
	args := []any{implAddr, initData}
	if step.Kind == models.ProxyKindTransparent {
		args = []any{implAddr, e.chain.Deployer(), initData}
	}
	initCode, err := abiutil.PackConstructor(proxyContract.Artifact.Abi, proxyCode, args...)
	if err != nil {
		return fmt.Errorf("failed to encode %s constructor: %w", proxyName, err)
	}

	receipt, err := e.chain.Deploy(ctx, initCode)
	if err != nil {
		return txError(e.plan.Unit, "deploy "+proxyName, err)
	}
	e.result.Transactions = append(e.result.Transactions, receipt.TxHash)

	record.Address = receipt.ContractAddress
	record.TransactionHash = receipt.TxHash
	record.ConstructorArgs = hexutil.Encode(initCode[len(proxyCode):])
	record.ProxyInfo.Implementation = implAddr.Hex()
	record.ProxyInfo.History = []models.ProxyUpgrade{{
		UpgradeIndex:     0,
		ImplementationID: record.ProxyInfo.ImplementationID,
		Implementation:   implAddr.Hex(),
		UpgradedAt:       record.CreatedAt,
		TxHash:           receipt.TxHash,
	}}

	if step.Kind == models.ProxyKindTransparent {
		admin, err := e.chain.StorageAt(ctx, common.HexToAddress(receipt.ContractAddress), AdminSlot)
		if err != nil {
			return fmt.Errorf("failed to read proxy admin of %s: %w", e.plan.Unit, err)
		}
		record.ProxyInfo.Admin = common.BytesToAddress(admin).Hex()
	}

	return e.save(ctx, record)
}

func (e *execution) upgrade(ctx context.Context, existing *models.Deployment) error {
	step := e.plan.Proxy

	if err := checkVersion(existing.Version, e.plan.Version); err != nil {
		return &domain.UpgradeSafetyError{Unit: e.plan.Unit, Contract: e.plan.Contract, Err: err}
	}

	proxy := common.HexToAddress(existing.Address)
	slot, err := e.chain.StorageAt(ctx, proxy, ImplementationSlot)
	if err != nil {
		return fmt.Errorf("failed to read implementation slot of %s: %w", e.plan.Unit, err)
	}
	onChain := common.BytesToAddress(slot)
	if onChain != common.HexToAddress(existing.ProxyInfo.Implementation) {
		return &domain.UpgradeSafetyError{
			Unit:     e.plan.Unit,
			Contract: e.plan.Contract,
			Err: fmt.Errorf("on-chain implementation %s differs from recorded %s",
				onChain.Hex(), existing.ProxyInfo.Implementation),
		}
	}

	impl, opts, err := e.implementation(ctx)
	if err != nil {
		return err
	}
	if err := upgrades.ValidateUpgrade(existing.StorageLayout, impl, opts); err != nil {
		return &domain.UpgradeSafetyError{Unit: e.plan.Unit, Contract: e.plan.Contract, Err: err}
	}

	initData, err := e.initializer()
	if err != nil {
		return err
	}

	e.result.State = models.StateUpgraded
	implAddr, err := e.deployImplementation(ctx)
	if err != nil {
		return err
	}
	if e.result.DryRun {
		return nil
	}

	target, data, err := e.upgradeCall(ctx, existing, implAddr, initData)
	if err != nil {
		return err
	}
	receipt, err := e.chain.Transact(ctx, target, data)
	if err != nil {
		return txError(e.plan.Unit, fmt.Sprintf("upgrade to step %d", step.UpgradeIndex), err)
	}
	e.result.Transactions = append(e.result.Transactions, receipt.TxHash)

	record := existing.Clone()
	now := time.Now()
	record.Kind = e.plan.Kind
	record.ContractName = e.plan.Contract
	record.Version = e.plan.Version
	record.Artifact = e.contract.Info()
	record.StorageLayout = e.contract.Artifact.StorageLayout
	record.ProxyInfo.Implementation = implAddr.Hex()
	record.ProxyInfo.ImplementationID = e.plan.ImplementationID()
	record.ProxyInfo.UpgradeIndex = step.UpgradeIndex
	record.ProxyInfo.History = append(record.ProxyInfo.History, models.ProxyUpgrade{
		UpgradeIndex:     step.UpgradeIndex,
		ImplementationID: record.ProxyInfo.ImplementationID,
		Implementation:   implAddr.Hex(),
		UpgradedAt:       now,
		TxHash:           receipt.TxHash,
	})
	record.Configuration = models.ConfigurationInfo{}
	record.Verification = models.VerificationInfo{Status: models.VerificationStatusUnverified}
	record.UpdatedAt = now
	e.result.Deployment = record

	return e.save(ctx, record)
}

// upgradeCall returns the target and calldata that point the proxy at impl.
func (e *execution) upgradeCall(ctx context.Context, existing *models.Deployment, impl common.Address, initData []byte) (common.Address, []byte, error) {
	proxy := common.HexToAddress(existing.Address)

	if models.ProxyKind(existing.ProxyInfo.Kind) == models.ProxyKindTransparent {
		if existing.ProxyInfo.Admin == "" {
			return common.Address{}, nil, fmt.Errorf("no proxy admin recorded for %s", e.plan.Unit)
		}
		admin, err := e.contracts.GetContract(ctx, ProxyAdminContract)
		if err != nil {
			return common.Address{}, nil, fmt.Errorf("failed to load %s artifact: %w", ProxyAdminContract, err)
		}
		data, err := abiutil.PackMethod(admin.Artifact.Abi, "upgradeAndCall", proxy, impl, initData)
		if err != nil {
			return common.Address{}, nil, err
		}
		return common.HexToAddress(existing.ProxyInfo.Admin), data, nil
	}

	data, err := abiutil.PackMethod(e.contract.Artifact.Abi, "upgradeToAndCall", impl, initData)
	if err != nil {
		return common.Address{}, nil, err
	}
	return proxy, data, nil
}

// implementation assembles the validation input for the plan's contract.
func (e *execution) implementation(ctx context.Context) (upgrades.Implementation, upgrades.Options, error) {
	return validationInput(ctx, e.contracts, e.plan, e.contract)
}

func validationInput(ctx context.Context, contracts ContractRepository, plan *models.DeployPlan, contract *models.Contract) (upgrades.Implementation, upgrades.Options, error) {
	index, err := contracts.ContractIndex(ctx)
	if err != nil {
		return upgrades.Implementation{}, upgrades.Options{}, fmt.Errorf("failed to index contracts: %w", err)
	}

	impl := upgrades.Implementation{
		Name:       plan.Contract,
		ABI:        contract.Artifact.Abi,
		Layout:     contract.Artifact.StorageLayout,
		ContractID: contract.ASTID(),
		Index:      index,
	}
	opts := upgrades.Options{Kind: upgrades.Kind(plan.Proxy.Kind)}
	for _, op := range plan.Proxy.UnsafeAllow {
		opts.UnsafeAllow = append(opts.UnsafeAllow, upgrades.UnsafeOp(op))
	}
	return impl, opts, nil
}

// deployImplementation reuses the recorded implementation of this step when
// its bytecode hash matches the artifact, and deploys a new one otherwise.
func (e *execution) deployImplementation(ctx context.Context) (common.Address, error) {
	id := e.plan.ImplementationID()
	info := e.contract.Info()

	recorded, err := e.repo.GetDeployment(ctx, e.plan.Environment, id)
	switch {
	case err == nil && recorded.Artifact.BytecodeHash != "" && recorded.Artifact.BytecodeHash == info.BytecodeHash:
		e.log.Debug("reusing implementation", "id", id, "address", recorded.Address)
		e.result.Implementation = recorded.Address
		e.result.Reused = true
		return common.HexToAddress(recorded.Address), nil
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return common.Address{}, fmt.Errorf("failed to read registry: %w", err)
	}

	if e.result.DryRun {
		return common.Address{}, nil
	}

	bytecode, err := e.contract.Artifact.Bytecode.Bytes()
	if err != nil {
		return common.Address{}, fmt.Errorf("%s: %w", e.plan.Contract, err)
	}
	receipt, err := e.chain.Deploy(ctx, bytecode)
	if err != nil {
		return common.Address{}, txError(e.plan.Unit, "deploy implementation "+id, err)
	}
	e.result.Transactions = append(e.result.Transactions, receipt.TxHash)
	e.result.Implementation = receipt.ContractAddress

	record := e.newRecord(id, models.ImplementationDeployment)
	record.Address = receipt.ContractAddress
	record.TransactionHash = receipt.TxHash
	if err := e.save(ctx, record); err != nil {
		return common.Address{}, err
	}
	return common.HexToAddress(receipt.ContractAddress), nil
}

func (e *execution) initializer() ([]byte, error) {
	init := e.plan.Proxy.Initializer
	if init == nil {
		return []byte{}, nil
	}
	data, err := abiutil.PackMethod(e.contract.Artifact.Abi, init.Method, init.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode initializer of %s: %w", e.plan.Unit, err)
	}
	return data, nil
}

func (e *execution) newRecord(id string, typ models.DeploymentType) *models.Deployment {
	now := time.Now()
	d := &models.Deployment{
		ID:           id,
		Environment:  e.plan.Environment,
		Kind:         e.plan.Kind,
		ContractName: e.plan.Contract,
		Type:         typ,
		Version:      e.plan.Version,
		Artifact:     e.contract.Info(),
		Verification: models.VerificationInfo{Status: models.VerificationStatusUnverified},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if e.config.Environment != nil {
		d.ChainID = e.config.Environment.ChainID
	}
	if typ != models.SingletonDeployment {
		d.StorageLayout = e.contract.Artifact.StorageLayout
	}
	return d
}

func (e *execution) save(ctx context.Context, d *models.Deployment) error {
	if err := e.repo.SaveDeployment(ctx, d); err != nil {
		return fmt.Errorf("failed to record %s: %w", d.ID, err)
	}
	return nil
}

// checkVersion refuses a step whose version is below the recorded one.
func checkVersion(recorded, next string) error {
	if recorded == "" || next == "" {
		return nil
	}
	cur, err := semver.NewVersion(recorded)
	if err != nil {
		return fmt.Errorf("invalid recorded version %q: %w", recorded, err)
	}
	nv, err := semver.NewVersion(next)
	if err != nil {
		return fmt.Errorf("invalid step version %q: %w", next, err)
	}
	if nv.LessThan(cur) {
		return fmt.Errorf("refusing to downgrade from %s to %s", cur, nv)
	}
	return nil
}

func txError(unit, action string, err error) error {
	var txErr *domain.TransactionError
	if errors.As(err, &txErr) {
		if txErr.Unit == "" {
			txErr.Unit = unit
		}
		if txErr.Action == "" {
			txErr.Action = action
		}
		return txErr
	}
	return &domain.TransactionError{Unit: unit, Action: action, Err: err}
}
