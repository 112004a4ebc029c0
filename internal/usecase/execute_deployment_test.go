package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/orange-finance/odeploy/internal/domain"
	"github.com/orange-finance/odeploy/internal/domain/models"
	"github.com/orange-finance/odeploy/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quoterPlan() *models.DeployPlan {
	return &models.DeployPlan{
		Unit:            "ChainlinkQuoter",
		Kind:            "chainlink-quoter",
		Environment:     testEnv,
		Contract:        "ChainlinkQuoter",
		Version:         "1.0.0",
		ConstructorArgs: []any{feed.Hex()},
		Verify:          true,
	}
}

func vaultPlan(contract, version string, step int, init *models.Call) *models.DeployPlan {
	return &models.DeployPlan{
		Unit:        "WETH-USDC",
		Kind:        "automator-v2",
		Environment: testEnv,
		Contract:    contract,
		Version:     version,
		Proxy: &models.UpgradeStep{
			Kind:         models.ProxyKindUUPS,
			UpgradeIndex: step,
			Initializer:  init,
		},
	}
}

func v2Plan() *models.DeployPlan {
	return vaultPlan("OrangeStrykeLPAutomatorV2", "2.0.0", 1,
		&models.Call{Method: "initializeV2", Args: []any{balancer.Hex()}})
}

func TestExecuteDeployment_Singleton(t *testing.T) {
	ctx := context.Background()

	t.Run("deploys and records a fresh unit", func(t *testing.T) {
		h := newHarness(t)

		result, err := h.executor().Run(ctx, quoterPlan())
		require.NoError(t, err)

		assert.Equal(t, models.StateDeployedFresh, result.State)
		require.Len(t, h.chain.deploys, 1)
		assert.Len(t, result.Transactions, 1)

		code, err := hexutil.Decode("0x60806040520001")
		require.NoError(t, err)
		assert.Equal(t, append(code, common.LeftPadBytes(feed.Bytes(), 32)...), h.chain.deploys[0])

		record := h.record(t, "ChainlinkQuoter")
		assert.Equal(t, result.Deployment.Address, record.Address)
		assert.Equal(t, models.SingletonDeployment, record.Type)
		assert.Equal(t, uint64(42161), record.ChainID)
		assert.Equal(t, hexutil.Encode(common.LeftPadBytes(feed.Bytes(), 32)), record.ConstructorArgs)
		assert.Equal(t, "src/ChainlinkQuoter.sol:ChainlinkQuoter", record.Artifact.Path)
		assert.NotEmpty(t, record.Artifact.BytecodeHash)
		assert.Nil(t, record.StorageLayout)
	})

	t.Run("leaves a recorded unit alone", func(t *testing.T) {
		h := newHarness(t, &models.Deployment{
			ID:          "ChainlinkQuoter",
			Environment: testEnv,
			Address:     "0x0000000000000000000000000000000000000c01",
			Type:        models.SingletonDeployment,
		})

		result, err := h.executor().Run(ctx, quoterPlan())
		require.NoError(t, err)

		assert.Equal(t, models.StateDeployedExisting, result.State)
		assert.Equal(t, "0x0000000000000000000000000000000000000c01", result.Deployment.Address)
		assert.Empty(t, h.chain.deploys)
	})

	t.Run("dry run sends nothing", func(t *testing.T) {
		h := newHarness(t)
		h.cfg.DryRun = true

		result, err := h.executor().Run(ctx, quoterPlan())
		require.NoError(t, err)

		assert.True(t, result.DryRun)
		assert.Equal(t, models.StateDeployedFresh, result.State)
		assert.Empty(t, result.Deployment.Address)
		assert.Empty(t, h.chain.deploys)
		assert.Zero(t, h.repo.Saves())
	})

	t.Run("unknown artifact", func(t *testing.T) {
		h := newHarness(t)
		plan := quoterPlan()
		plan.Contract = "Missing"

		_, err := h.executor().Run(ctx, plan)
		assert.ErrorIs(t, err, domain.ErrContractNotFound)
	})
}

func TestExecuteDeployment_CreateProxy(t *testing.T) {
	ctx := context.Background()
	initialize := &models.Call{Method: "initialize", Args: []any{admin.Hex()}}

	t.Run("deploys implementation and proxy", func(t *testing.T) {
		h := newHarness(t)

		result, err := h.executor().Run(ctx, vaultPlan("Vault", "1.0.0", 0, initialize))
		require.NoError(t, err)

		assert.Equal(t, models.StateDeployedFresh, result.State)
		require.Len(t, h.chain.deploys, 2)
		assert.Equal(t, hexutil.MustDecode("0x60806040520004"), h.chain.deploys[0])
		assert.Equal(t, hexutil.MustDecode("0x60806040520008"), h.chain.deploys[1][:7])

		proxy := h.record(t, "WETH-USDC")
		assert.Equal(t, models.ProxyDeployment, proxy.Type)
		require.NotNil(t, proxy.ProxyInfo)
		assert.Equal(t, result.Implementation, proxy.ProxyInfo.Implementation)
		assert.Equal(t, "WETH-USDC_Implementation_0", proxy.ProxyInfo.ImplementationID)
		assert.Equal(t, 0, proxy.ProxyInfo.UpgradeIndex)
		assert.Len(t, proxy.ProxyInfo.History, 1)
		assert.NotNil(t, proxy.StorageLayout)

		impl := h.record(t, "WETH-USDC_Implementation_0")
		assert.Equal(t, models.ImplementationDeployment, impl.Type)
		assert.Equal(t, proxy.ProxyInfo.Implementation, impl.Address)
	})

	t.Run("reuses an implementation with the same bytecode", func(t *testing.T) {
		h := newHarness(t)
		vault, err := h.contracts.GetContract(ctx, "Vault")
		require.NoError(t, err)
		h.save(t, &models.Deployment{
			ID:          "WETH-USDC_Implementation_0",
			Environment: testEnv,
			Address:     implV1.Hex(),
			Type:        models.ImplementationDeployment,
			Artifact:    vault.Info(),
		})

		result, err := h.executor().Run(ctx, vaultPlan("Vault", "1.0.0", 0, initialize))
		require.NoError(t, err)

		assert.True(t, result.Reused)
		assert.Len(t, h.chain.deploys, 1)
		assert.Equal(t, implV1.Hex(), h.record(t, "WETH-USDC").ProxyInfo.Implementation)
	})

	t.Run("refuses an unsafe implementation", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.executor().Run(ctx, vaultPlan("UnsafeVault", "1.0.0", 0, initialize))

		var safety *domain.UpgradeSafetyError
		require.ErrorAs(t, err, &safety)
		assert.Equal(t, domain.ClassUpgradeSafety, domain.Classify(err))
		assert.Contains(t, err.Error(), "constructor")
		assert.Empty(t, h.chain.deploys)
	})

	t.Run("later step without a recorded proxy", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.executor().Run(ctx, v2Plan())

		var notDeployed *domain.DependencyNotDeployedError
		require.ErrorAs(t, err, &notDeployed)
		assert.Equal(t, "WETH-USDC", notDeployed.Unit)
	})
}

func TestExecuteDeployment_Upgrade(t *testing.T) {
	ctx := context.Background()

	t.Run("applies the next step", func(t *testing.T) {
		h := newHarness(t)
		h.save(t, vaultAtStep0(h))

		result, err := h.executor().Run(ctx, v2Plan())
		require.NoError(t, err)

		assert.Equal(t, models.StateUpgraded, result.State)
		require.Len(t, h.chain.deploys, 1)
		require.Len(t, h.chain.txs, 1)
		assert.Equal(t, proxyAddr, h.chain.txs[0].To)

		v2 := h.contracts.abi(t, "OrangeStrykeLPAutomatorV2")
		assert.Equal(t, []string{"upgradeToAndCall"}, h.chain.methods(v2))
		args, err := v2.Methods["upgradeToAndCall"].Inputs.Unpack(h.chain.txs[0].Data[4:])
		require.NoError(t, err)
		assert.Equal(t, common.HexToAddress(result.Implementation), args[0])

		record := h.record(t, "WETH-USDC")
		assert.Equal(t, 1, record.ProxyInfo.UpgradeIndex)
		assert.Equal(t, result.Implementation, record.ProxyInfo.Implementation)
		assert.Equal(t, "WETH-USDC_Implementation_1", record.ProxyInfo.ImplementationID)
		assert.Len(t, record.ProxyInfo.History, 1)
		assert.Equal(t, "2.0.0", record.Version)
		assert.Equal(t, "OrangeStrykeLPAutomatorV2", record.ContractName)
		assert.Equal(t, models.VerificationStatusUnverified, record.Verification.Status)
		assert.Len(t, record.StorageLayout.Storage, 2)
	})

	t.Run("dry run validates without sending", func(t *testing.T) {
		h := newHarness(t)
		h.save(t, vaultAtStep0(h))
		saves := h.repo.Saves()
		h.cfg.DryRun = true

		result, err := h.executor().Run(ctx, v2Plan())
		require.NoError(t, err)

		assert.Equal(t, models.StateUpgraded, result.State)
		assert.Empty(t, h.chain.deploys)
		assert.Empty(t, h.chain.txs)
		assert.Equal(t, saves, h.repo.Saves())
		assert.Equal(t, 0, h.record(t, "WETH-USDC").ProxyInfo.UpgradeIndex)
	})

	t.Run("refuses to skip a step", func(t *testing.T) {
		h := newHarness(t)
		h.save(t, vaultAtStep0(h))

		plan := vaultPlan("OrangeStrykeLPAutomatorV2_1", "2.1.0", 2, nil)
		_, err := h.executor().Run(ctx, plan)

		var order *domain.UpgradeOrderError
		require.ErrorAs(t, err, &order)
		assert.Equal(t, 0, order.Recorded)
		assert.Equal(t, 2, order.Step)
		assert.Equal(t, domain.ClassDependency, domain.Classify(err))
		assert.Empty(t, h.chain.txs)
	})

	t.Run("refuses a downgrade", func(t *testing.T) {
		h := newHarness(t)
		d := vaultAtStep0(h)
		d.Version = "3.0.0"
		h.save(t, d)

		_, err := h.executor().Run(ctx, v2Plan())

		var safety *domain.UpgradeSafetyError
		require.ErrorAs(t, err, &safety)
		assert.Contains(t, err.Error(), "downgrade")
	})

	t.Run("refuses when the implementation slot disagrees with the registry", func(t *testing.T) {
		h := newHarness(t)
		h.save(t, vaultAtStep0(h))
		h.chain.setSlot(proxyAddr, usecase.ImplementationSlot, common.HexToAddress("0x0000000000000000000000000000000000000bad"))

		_, err := h.executor().Run(ctx, v2Plan())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "differs from recorded")
		assert.Empty(t, h.chain.deploys)
		assert.Empty(t, h.chain.attempts)
	})

	t.Run("refuses an incompatible storage layout", func(t *testing.T) {
		h := newHarness(t)
		d := vaultAtStep0(h)
		d.StorageLayout = storageLayout("owner:t_uint256")
		h.save(t, d)

		_, err := h.executor().Run(ctx, v2Plan())

		var safety *domain.UpgradeSafetyError
		require.ErrorAs(t, err, &safety)
		assert.Empty(t, h.chain.deploys)
		assert.Empty(t, h.chain.attempts)
		assert.Empty(t, h.chain.methods(h.contracts.abi(t, "OrangeStrykeLPAutomatorV2")))
	})

	t.Run("reports a reverted upgrade", func(t *testing.T) {
		h := newHarness(t)
		h.save(t, vaultAtStep0(h))
		h.chain.failOn(h.contracts.abi(t, "OrangeStrykeLPAutomatorV2"), "upgradeToAndCall")

		_, err := h.executor().Run(ctx, v2Plan())

		var txErr *domain.TransactionError
		require.ErrorAs(t, err, &txErr)
		assert.Equal(t, "WETH-USDC", txErr.Unit)
		assert.Equal(t, domain.ClassTransaction, domain.Classify(err))
		assert.Equal(t, 0, h.record(t, "WETH-USDC").ProxyInfo.UpgradeIndex)
	})
}

func TestExecuteDeployment_RecordedStep(t *testing.T) {
	ctx := context.Background()

	atStep := func(h *harness, step int, layout ...string) *models.Deployment {
		d := vaultAtStep0(h)
		d.ProxyInfo.UpgradeIndex = step
		d.Version = "2.0.0"
		d.StorageLayout = storageLayout(layout...)
		return d
	}

	t.Run("recheck of the current step passes quietly", func(t *testing.T) {
		h := newHarness(t)
		h.save(t, atStep(h, 1, "owner:t_address", "balancer:t_address"))

		result, err := h.executor().Run(ctx, v2Plan())
		require.NoError(t, err)

		assert.Equal(t, models.StateDeployedExisting, result.State)
		assert.Empty(t, result.Warnings)
		assert.Empty(t, h.chain.deploys)
		assert.Empty(t, h.chain.txs)
	})

	t.Run("recheck warns when the artifact drifted", func(t *testing.T) {
		h := newHarness(t)
		h.save(t, atStep(h, 1, "owner:t_uint256", "balancer:t_address"))

		result, err := h.executor().Run(ctx, v2Plan())
		require.NoError(t, err)

		assert.Equal(t, models.StateDeployedExisting, result.State)
		require.Len(t, result.Warnings, 1)
		assert.Contains(t, result.Warnings[0], "no longer matches")
	})

	t.Run("superseded step is skipped", func(t *testing.T) {
		h := newHarness(t)
		h.save(t, atStep(h, 2, "owner:t_address"))

		result, err := h.executor().Run(ctx, v2Plan())
		require.NoError(t, err)

		assert.Equal(t, models.StateDeployedExisting, result.State)
		assert.False(t, result.State.Changed())
		assert.Empty(t, h.chain.txs)
	})

	t.Run("singleton record cannot be upgraded", func(t *testing.T) {
		h := newHarness(t, &models.Deployment{
			ID:          "WETH-USDC",
			Environment: testEnv,
			Address:     proxyAddr.Hex(),
			Type:        models.SingletonDeployment,
		})

		_, err := h.executor().Run(ctx, v2Plan())
		require.Error(t, err)
		assert.False(t, errors.Is(err, domain.ErrNotFound))
		assert.Contains(t, err.Error(), "not as a proxy")
	})
}
