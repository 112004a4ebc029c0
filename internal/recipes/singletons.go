package recipes

import (
	"fmt"

	"github.com/orange-finance/odeploy/internal/domain/models"
	"github.com/orange-finance/odeploy/internal/domain/params"
)

// SwapProxy deploys the Kyberswap proxy and trusts the aggregator.
type SwapProxy struct{}

func (SwapProxy) Kind() string          { return params.KindSwapProxy }
func (SwapProxy) Schema() params.Schema { return params.SwapProxySchema }

func (SwapProxy) Dependencies(map[string]any) ([]Dependency, error) { return nil, nil }

func (SwapProxy) Plan(in Input) (*models.DeployPlan, error) {
	p, err := params.Decode[params.SwapProxy](in.Values)
	if err != nil {
		return nil, err
	}

	configure := []models.Call{
		{Method: "setTrustedProvider", Args: []any{p.TrustedProviders.Kyberswap, true}},
	}
	if !sameAddress(p.Admin, in.Deployer) {
		configure = append(configure, models.Call{Method: "setOwner", Args: []any{p.Admin}})
	}

	return &models.DeployPlan{
		Unit:      unitOr(in, SwapProxyUnit),
		Kind:      params.KindSwapProxy,
		Contract:  "OrangeKyberswapProxy",
		Version:   mustVersion("1.0.0"),
		Configure: configure,
		Verify:    true,
	}, nil
}

var poolAdapterContracts = map[string]string{
	"uniswap": "UniswapV3PoolAdapter",
	"pancake": "PancakeV3PoolAdapter",
	"sushi":   "SushiV3PoolAdapter",
}

// PoolAdapter deploys one adapter per DEX pool. The unit id names the pool,
// e.g. UniswapV3PoolAdapter_WETH-USDC_500.
type PoolAdapter struct{}

func (PoolAdapter) Kind() string          { return params.KindPoolAdapter }
func (PoolAdapter) Schema() params.Schema { return params.PoolAdapterSchema }

func (PoolAdapter) Dependencies(map[string]any) ([]Dependency, error) { return nil, nil }

func (PoolAdapter) Plan(in Input) (*models.DeployPlan, error) {
	p, err := params.Decode[params.PoolAdapter](in.Values)
	if err != nil {
		return nil, err
	}
	contract, ok := poolAdapterContracts[p.Dex]
	if !ok {
		return nil, fmt.Errorf("unsupported dex %q", p.Dex)
	}
	if in.Unit == "" {
		return nil, fmt.Errorf("pool adapter needs a unit id")
	}

	return &models.DeployPlan{
		Unit:            in.Unit,
		Kind:            params.KindPoolAdapter,
		Contract:        contract,
		Version:         mustVersion("1.0.0"),
		ConstructorArgs: []any{p.Pool},
		Verify:          true,
	}, nil
}

// Periphery deploys stateless helpers (ReserveProxy, StrykeVaultInspector).
type Periphery struct{}

func (Periphery) Kind() string          { return params.KindPeriphery }
func (Periphery) Schema() params.Schema { return params.PeripherySchema }

func (Periphery) Dependencies(map[string]any) ([]Dependency, error) { return nil, nil }

func (Periphery) Plan(in Input) (*models.DeployPlan, error) {
	p, err := params.Decode[params.Periphery](in.Values)
	if err != nil {
		return nil, err
	}
	return &models.DeployPlan{
		Unit:     unitOr(in, p.Contract),
		Kind:     params.KindPeriphery,
		Contract: p.Contract,
		Version:  mustVersion("1.0.0"),
		Verify:   true,
	}, nil
}
