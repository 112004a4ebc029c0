package usecase_test

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/orange-finance/odeploy/internal/domain"
	"github.com/orange-finance/odeploy/internal/domain/models"
	"github.com/orange-finance/odeploy/internal/recipes"
	"github.com/orange-finance/odeploy/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupDependencies(t *testing.T) {
	ctx := context.Background()
	swapProxy := common.HexToAddress("0x0000000000000000000000000000000000000d01")

	newLookup := func(seed ...*models.Deployment) *usecase.LookupDependencies {
		return usecase.NewLookupDependencies(newHarness(t, seed...).repo)
	}
	recorded := &models.Deployment{
		ID:          recipes.SwapProxyUnit,
		Environment: testEnv,
		Address:     swapProxy.Hex(),
		Type:        models.SingletonDeployment,
	}
	deps := []recipes.Dependency{{Param: "swapProxy", Unit: recipes.SwapProxyUnit}}

	t.Run("resolves a recorded unit", func(t *testing.T) {
		resolved, err := newLookup(recorded).Run(ctx, testEnv, "WETH-USDC", deps, nil)
		require.NoError(t, err)

		assert.Equal(t, swapProxy, resolved.Addresses["swapProxy"])
		require.Len(t, resolved.Refs, 1)
		assert.Equal(t, recipes.SwapProxyUnit, resolved.Refs[0].Unit)
		assert.False(t, resolved.Refs[0].Verbatim)
	})

	t.Run("override wins over the registry", func(t *testing.T) {
		override := "0x0000000000000000000000000000000000000d02"
		withOverride := []recipes.Dependency{{Param: "swapProxy", Unit: recipes.SwapProxyUnit, Override: override}}

		resolved, err := newLookup(recorded).Run(ctx, testEnv, "WETH-USDC", withOverride, nil)
		require.NoError(t, err)

		assert.Equal(t, common.HexToAddress(override), resolved.Addresses["swapProxy"])
		assert.True(t, resolved.Refs[0].Verbatim)
	})

	t.Run("invalid override", func(t *testing.T) {
		bad := []recipes.Dependency{{Param: "poolAdapter", Override: "0x1234"}}

		_, err := newLookup().Run(ctx, testEnv, "WETH-USDC", bad, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidAddress)
	})

	t.Run("missing unit", func(t *testing.T) {
		_, err := newLookup().Run(ctx, testEnv, "WETH-USDC", deps, nil)

		var notDeployed *domain.DependencyNotDeployedError
		require.ErrorAs(t, err, &notDeployed)
		assert.Equal(t, recipes.SwapProxyUnit, notDeployed.Unit)
		assert.Equal(t, "WETH-USDC", notDeployed.RequiredBy)
		assert.Equal(t, testEnv, notDeployed.Environment)
	})

	t.Run("registry of another environment does not count", func(t *testing.T) {
		other := recorded.Clone()
		other.Environment = "arbitrum_dev"

		_, err := newLookup(other).Run(ctx, testEnv, "WETH-USDC", deps, nil)

		var notDeployed *domain.DependencyNotDeployedError
		assert.ErrorAs(t, err, &notDeployed)
	})

	t.Run("unit planned earlier in a dry run", func(t *testing.T) {
		resolved, err := newLookup().Run(ctx, testEnv, "WETH-USDC", deps, map[string]bool{recipes.SwapProxyUnit: true})
		require.NoError(t, err)

		assert.Equal(t, common.Address{}, resolved.Addresses["swapProxy"])
		assert.True(t, resolved.Refs[0].Pending)
	})
}
