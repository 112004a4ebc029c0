package usecase_test

import (
	"context"
	"testing"

	"github.com/orange-finance/odeploy/internal/domain"
	"github.com/orange-finance/odeploy/internal/domain/models"
	"github.com/orange-finance/odeploy/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportDeployment(t *testing.T) {
	ctx := context.Background()

	newImport := func(t *testing.T) (*harness, *usecase.ImportDeployment) {
		h := newHarness(t)
		h.chain.code[proxyAddr] = []byte{0x60, 0x80}
		h.chain.code[quoterAddr] = []byte{0x60, 0x80}
		return h, usecase.NewImportDeployment(h.cfg, h.repo, h.contracts, h.chain)
	}
	proxyParams := func() usecase.ImportDeploymentParams {
		return usecase.ImportDeploymentParams{
			Unit:         "WETH-USDC",
			Kind:         "automator-v2",
			Contract:     "OrangeStrykeLPAutomatorV2",
			Address:      proxyAddr.Hex(),
			ProxyKind:    models.ProxyKindUUPS,
			UpgradeIndex: 1,
			Version:      "2.0.0",
		}
	}

	t.Run("imports a proxy at its upgrade step", func(t *testing.T) {
		h, uc := newImport(t)
		h.chain.setSlot(proxyAddr, usecase.ImplementationSlot, implV1)

		result, err := uc.Run(ctx, proxyParams())
		require.NoError(t, err)
		assert.Empty(t, result.Warnings)

		record := h.record(t, "WETH-USDC")
		assert.Equal(t, models.ProxyDeployment, record.Type)
		require.NotNil(t, record.ProxyInfo)
		assert.Equal(t, implV1.Hex(), record.ProxyInfo.Implementation)
		assert.Equal(t, 1, record.ProxyInfo.UpgradeIndex)
		assert.Equal(t, "WETH-USDC_Implementation_1", record.ProxyInfo.ImplementationID)
		assert.Len(t, record.StorageLayout.Storage, 2)
		assert.Equal(t, "2.0.0", record.Version)
	})

	t.Run("imports a singleton", func(t *testing.T) {
		h, uc := newImport(t)

		_, err := uc.Run(ctx, usecase.ImportDeploymentParams{
			Unit:     "ChainlinkQuoter",
			Kind:     "chainlink-quoter",
			Contract: "ChainlinkQuoter",
			Address:  quoterAddr.Hex(),
		})
		require.NoError(t, err)

		record := h.record(t, "ChainlinkQuoter")
		assert.Equal(t, models.SingletonDeployment, record.Type)
		assert.Nil(t, record.ProxyInfo)
		assert.Equal(t, uint64(42161), record.ChainID)
	})

	t.Run("refuses to overwrite without force", func(t *testing.T) {
		h, uc := newImport(t)
		h.save(t, vaultAtStep0(h))

		_, err := uc.Run(ctx, proxyParams())
		assert.ErrorContains(t, err, "already recorded")

		p := proxyParams()
		p.Force = true
		_, err = uc.Run(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, 1, h.record(t, "WETH-USDC").ProxyInfo.UpgradeIndex)
	})

	t.Run("address without code", func(t *testing.T) {
		_, uc := newImport(t)
		p := proxyParams()
		p.Address = "0x0000000000000000000000000000000000000e99"

		_, err := uc.Run(ctx, p)
		assert.ErrorContains(t, err, "no contract deployed")
	})

	t.Run("malformed address", func(t *testing.T) {
		_, uc := newImport(t)
		p := proxyParams()
		p.Address = "0x123"

		_, err := uc.Run(ctx, p)
		assert.ErrorIs(t, err, domain.ErrInvalidAddress)
	})

	t.Run("proxy without an implementation slot", func(t *testing.T) {
		_, uc := newImport(t)

		_, err := uc.Run(ctx, proxyParams())
		assert.ErrorContains(t, err, "no EIP-1967 implementation")
	})

	t.Run("artifact without layout is a warning", func(t *testing.T) {
		h, uc := newImport(t)
		h.chain.setSlot(proxyAddr, usecase.ImplementationSlot, implV1)
		h.contracts.byName["OrangeStrykeLPAutomatorV2"].Artifact.StorageLayout = nil

		result, err := uc.Run(ctx, proxyParams())
		require.NoError(t, err)

		require.Len(t, result.Warnings, 1)
		assert.Contains(t, result.Warnings[0], "no storage layout")
	})
}
