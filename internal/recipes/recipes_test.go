package recipes

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/orange-finance/odeploy/internal/domain"
	"github.com/orange-finance/odeploy/internal/domain/config"
	"github.com/orange-finance/odeploy/internal/domain/models"
	"github.com/orange-finance/odeploy/internal/domain/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	deployer = common.HexToAddress("0x38E4157345Bd2c8Cf7Dbe4B0C75302c2038AB7Ec")
	admin    = "0x12D1A136250131E37A607B0b78F6F109BF6a9fa3"
	arbitrum = &config.Environment{Name: "arbitrum", ChainID: 42161, Production: true}
	testnet  = &config.Environment{Name: "arbitrum_test", ChainID: 42161}
)

func wethUSDC(quoterType string) map[string]any {
	return map[string]any{
		"id":                  "WETH-USDC",
		"pool":                "0xC6962004f452bE9203591991D15f6b388e09E8D0",
		"router":              "0xE592427A0AEce92De3Edee1F18E0157C05861564",
		"handler":             "0x29BbF7EbB9C5146c98851e76A5529985E4052116",
		"hook":                "0x0000000000000000000000000000000000000000",
		"manager":             "0xE4bA6740aF4c666325D49B3112E4758371386aDc",
		"asset":               "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1",
		"counterAsset":        "0xaf88d065e77c8cC2239327C5EDb3A432268e5831",
		"symbol":              "odpxWETH-USDC",
		"minDepositAssets":    "0.01",
		"unit":                uint64(18),
		"assetUsdFeed":        "0x639Fe6ab55C921f74e7fac1ee960C0B6293ba612",
		"counterAssetUsdFeed": "0x50834F3163758fcC1Df9973b6e91f0F0F0434aD3",
		"admin":               admin,
		"strategist":          admin,
		"depositFeePips":      "1000",
		"quoterType":          quoterType,
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Len(t, r.Kinds(), 8)

	for _, kind := range r.Kinds() {
		recipe, err := r.Get(kind)
		require.NoError(t, err)
		assert.Equal(t, kind, recipe.Kind())
		assert.Equal(t, kind, recipe.Schema().Kind)
	}

	_, err := r.Get("automator-v3")
	assert.ErrorContains(t, err, "automator-v2_1")
}

func TestAutomatorV1_1(t *testing.T) {
	recipe := AutomatorV1_1{}

	t.Run("chainlink quoter is selected", func(t *testing.T) {
		deps, err := recipe.Dependencies(wethUSDC("chainlink"))
		require.NoError(t, err)
		require.Len(t, deps, 1)
		assert.Equal(t, "quoter", deps[0].Param)
		assert.Equal(t, ChainlinkQuoterUnit, deps[0].Unit)
	})

	t.Run("twap quoter is selected", func(t *testing.T) {
		deps, err := recipe.Dependencies(wethUSDC("twap"))
		require.NoError(t, err)
		assert.Equal(t, TWAPQuoterUnit, deps[0].Unit)
	})

	t.Run("unsupported quoter type", func(t *testing.T) {
		_, err := recipe.Dependencies(wethUSDC("vwap"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrUnsupportedQuoterType))
		assert.Contains(t, err.Error(), "vwap")
	})

	t.Run("plan", func(t *testing.T) {
		quoter := common.HexToAddress("0x1111111111111111111111111111111111111111")
		plan, err := recipe.Plan(Input{
			Environment: arbitrum,
			Values:      wethUSDC("chainlink"),
			Deployer:    deployer,
			Deps:        map[string]common.Address{"quoter": quoter},
		})
		require.NoError(t, err)

		assert.Equal(t, "WETH-USDC", plan.Unit)
		assert.Equal(t, "OrangeStrykeLPAutomatorV1_1", plan.Contract)
		assert.Equal(t, "1.1.0", plan.Version)
		require.NotNil(t, plan.Proxy)
		assert.Equal(t, 0, plan.Proxy.UpgradeIndex)
		assert.Equal(t, "WETH-USDCV1_1_Implementation", plan.ImplementationID())

		init := plan.Proxy.Initializer
		require.NotNil(t, init)
		assert.Equal(t, "initialize", init.Method)
		args := init.Args[0].(map[string]any)
		assert.Equal(t, deployer, args["admin"])
		assert.Equal(t, quoter, args["quoter"])
		assert.Equal(t, "odpxWETH-USDC", args["name"])
		assert.Equal(t, "10000000000000000", args["minDepositAssets"].(interface{ String() string }).String())

		methods := make([]string, len(plan.Configure))
		for i, c := range plan.Configure {
			methods[i] = c.Method
		}
		assert.Equal(t, []string{"setDepositCap", "setOwner", "setStrategist", "setDepositFeePips"}, methods)
		assert.Equal(t, MaxUint256, plan.Configure[0].Args[0])
	})

	t.Run("missing dependency", func(t *testing.T) {
		_, err := recipe.Plan(Input{Values: wethUSDC("chainlink"), Deployer: deployer})
		assert.ErrorContains(t, err, "quoter")
	})
}

func TestAutomatorV2(t *testing.T) {
	values := map[string]any{
		"id":       "WETH-USDC",
		"balancer": "0xBA12222222228d8Ba445958a75a0704d566BF2C8",
		"admin":    admin,
	}

	deps, err := AutomatorV2{}.Dependencies(values)
	require.NoError(t, err)
	assert.Equal(t, []Dependency{{Param: "swapProxy", Unit: SwapProxyUnit}}, deps)

	override := "0x000000000000000000000000000000000000dEaD"
	values["swapProxy"] = override
	deps, err = AutomatorV2{}.Dependencies(values)
	require.NoError(t, err)
	assert.Equal(t, override, deps[0].Override)

	proxy := common.HexToAddress(override)
	plan, err := AutomatorV2{}.Plan(Input{Values: values, Deployer: deployer, Deps: map[string]common.Address{"swapProxy": proxy}})
	require.NoError(t, err)
	assert.Equal(t, 1, plan.Proxy.UpgradeIndex)
	assert.Equal(t, "initializeV2", plan.Proxy.Initializer.Method)
	assert.Equal(t, []models.Call{{Method: "setProxyWhitelist", Args: []any{proxy, true}}}, plan.Configure)
}

func TestAutomatorV2_1(t *testing.T) {
	adapter := common.HexToAddress("0x2222222222222222222222222222222222222222")
	values := map[string]any{
		"id":          "WETH-USDC",
		"poolAdapter": "@UniswapV3PoolAdapter_WETH-USDC_500",
		"admin":       admin,
	}

	deps, err := AutomatorV2_1{}.Dependencies(values)
	require.NoError(t, err)
	assert.Equal(t, "UniswapV3PoolAdapter_WETH-USDC_500", deps[0].Unit)

	in := Input{Values: values, Deployer: deployer, Deps: map[string]common.Address{"poolAdapter": adapter}}

	t.Run("production hands ownership to admin before renouncing", func(t *testing.T) {
		in.Environment = arbitrum
		plan, err := AutomatorV2_1{}.Plan(in)
		require.NoError(t, err)
		assert.Equal(t, []string{"delegatecall"}, plan.Proxy.UnsafeAllow)
		require.Len(t, plan.Configure, 2)
		assert.Equal(t, []any{admin, true}, plan.Configure[0].Args)
		assert.Equal(t, []any{deployer, false}, plan.Configure[1].Args)
	})

	t.Run("non production keeps ownership", func(t *testing.T) {
		in.Environment = testnet
		plan, err := AutomatorV2_1{}.Plan(in)
		require.NoError(t, err)
		assert.Empty(t, plan.Configure)
	})

	t.Run("deployer is admin", func(t *testing.T) {
		in.Environment = arbitrum
		in.Deployer = common.HexToAddress(admin)
		plan, err := AutomatorV2_1{}.Plan(in)
		require.NoError(t, err)
		assert.Empty(t, plan.Configure)
	})
}

func TestQuoters(t *testing.T) {
	t.Run("chainlink thresholds then ownership on production", func(t *testing.T) {
		values := map[string]any{
			"admin":                 admin,
			"l2SequencerUptimeFeed": "0xFdB631F5EE196F0ed6FAa767959853A9F217697D",
			"stalenessThresholds": []any{
				map[string]any{"feed": "0x639Fe6ab55C921f74e7fac1ee960C0B6293ba612", "threshold": uint64(86400)},
			},
		}
		plan, err := ChainlinkQuoter{}.Plan(Input{Environment: arbitrum, Values: values, Deployer: deployer})
		require.NoError(t, err)
		assert.Equal(t, ChainlinkQuoterUnit, plan.Unit)
		assert.Nil(t, plan.Proxy)
		assert.Equal(t, []any{"0xFdB631F5EE196F0ed6FAa767959853A9F217697D"}, plan.ConstructorArgs)
		require.Len(t, plan.Configure, 2)
		assert.Equal(t, "setStalenessThreshold", plan.Configure[0].Method)
		assert.Equal(t, "transferOwnership", plan.Configure[1].Method)

		plan, err = ChainlinkQuoter{}.Plan(Input{Environment: testnet, Values: values, Deployer: deployer})
		require.NoError(t, err)
		assert.Len(t, plan.Configure, 1)
	})

	t.Run("twap pairs", func(t *testing.T) {
		values := map[string]any{
			"oracle": "0x4487d08B77530AAdEb11459f1BC19b479f90d8F9",
			"pairs": []any{map[string]any{
				"tokenA":   "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1",
				"tokenB":   "0x13A7DeDb7169a17bE92B0E3C7C2315B46f4772B3",
				"pool":     "0xe24F62341D84D11078188d83cA3be118193D6389",
				"duration": uint64(600),
			}},
		}
		plan, err := TWAPQuoter{}.Plan(Input{Environment: arbitrum, Values: values, Deployer: deployer})
		require.NoError(t, err)
		require.Len(t, plan.Configure, 1)
		assert.Equal(t, "setTWAPConfig", plan.Configure[0].Method)
		cfg := plan.Configure[0].Args[1].(map[string]any)
		assert.Equal(t, uint64(600), cfg["duration"])
	})
}

func TestPairID(t *testing.T) {
	weth := common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1")
	boop := common.HexToAddress("0x13A7DeDb7169a17bE92B0E3C7C2315B46f4772B3")

	want := crypto.Keccak256Hash(common.LeftPadBytes(weth.Bytes(), 32), common.LeftPadBytes(boop.Bytes(), 32))
	assert.Equal(t, want, PairID(weth, boop))
	assert.Equal(t, want, PairID(boop, weth))
}

func TestSingletons(t *testing.T) {
	t.Run("swap proxy", func(t *testing.T) {
		values := map[string]any{
			"admin":            admin,
			"trustedProviders": map[string]any{"kyberswap": "0x6131B5fae19EA4f9D964eAc0408E4408b66337b5"},
		}
		plan, err := SwapProxy{}.Plan(Input{Values: values, Deployer: deployer})
		require.NoError(t, err)
		assert.Equal(t, SwapProxyUnit, plan.Unit)
		require.Len(t, plan.Configure, 2)
		assert.Equal(t, "setOwner", plan.Configure[1].Method)

		plan, err = SwapProxy{}.Plan(Input{Values: values, Deployer: common.HexToAddress(admin)})
		require.NoError(t, err)
		assert.Len(t, plan.Configure, 1)
	})

	t.Run("pool adapter", func(t *testing.T) {
		values := map[string]any{"dex": "pancake", "pool": "0xd9e2a1a61B6E61b275cEc326465d417e52C1b95c"}
		plan, err := PoolAdapter{}.Plan(Input{Unit: "PancakeV3PoolAdapter_WETH-USDC_500", Values: values})
		require.NoError(t, err)
		assert.Equal(t, "PancakeV3PoolAdapter", plan.Contract)
		assert.Equal(t, "PancakeV3PoolAdapter_WETH-USDC_500", plan.Unit)

		_, err = PoolAdapter{}.Plan(Input{Values: values})
		assert.Error(t, err)
	})

	t.Run("periphery", func(t *testing.T) {
		plan, err := Periphery{}.Plan(Input{Values: map[string]any{"contract": "StrykeVaultInspector"}})
		require.NoError(t, err)
		assert.Equal(t, "StrykeVaultInspector", plan.Unit)
		assert.Empty(t, plan.ConstructorArgs)
	})
}

func TestQuoterUnitMatchesSchemaEnum(t *testing.T) {
	f, ok := params.AutomatorV1_1Schema.Field("quoterType")
	require.True(t, ok)
	for _, v := range f.Enum {
		_, err := QuoterUnit(v)
		assert.NoError(t, err, v)
	}
}
