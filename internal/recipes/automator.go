package recipes

import (
	"fmt"

	"github.com/orange-finance/odeploy/internal/domain"
	"github.com/orange-finance/odeploy/internal/domain/models"
	"github.com/orange-finance/odeploy/internal/domain/params"
)

const (
	ChainlinkQuoterUnit = "ChainlinkQuoter"
	TWAPQuoterUnit      = "UniswapV3TWAPQuoter"
	SwapProxyUnit       = "OrangeKyberswapProxy"
)

// QuoterUnit maps the explicit quoter selector to the managed quoter unit.
func QuoterUnit(quoterType string) (string, error) {
	switch quoterType {
	case params.QuoterChainlink:
		return ChainlinkQuoterUnit, nil
	case params.QuoterTWAP:
		return TWAPQuoterUnit, nil
	}
	return "", fmt.Errorf("%w %q (expected %s or %s)", domain.ErrUnsupportedQuoterType, quoterType, params.QuoterChainlink, params.QuoterTWAP)
}

// AutomatorV1_1 deploys the vault behind a UUPS proxy and initializes it.
type AutomatorV1_1 struct{}

func (AutomatorV1_1) Kind() string          { return params.KindAutomatorV1_1 }
func (AutomatorV1_1) Schema() params.Schema { return params.AutomatorV1_1Schema }

func (AutomatorV1_1) Dependencies(values map[string]any) ([]Dependency, error) {
	quoterType, _ := values["quoterType"].(string)
	unit, err := QuoterUnit(quoterType)
	if err != nil {
		return nil, err
	}
	return []Dependency{{Param: "quoter", Unit: unit}}, nil
}

func (AutomatorV1_1) Plan(in Input) (*models.DeployPlan, error) {
	p, err := params.Decode[params.AutomatorV1_1](in.Values)
	if err != nil {
		return nil, err
	}
	quoter, err := dep(in, "quoter")
	if err != nil {
		return nil, err
	}
	minDeposit, err := params.ParseUnits(p.MinDepositAssets, p.Unit)
	if err != nil {
		return nil, fmt.Errorf("minDepositAssets: %w", err)
	}

	init := map[string]any{
		"name":                p.Symbol,
		"symbol":              p.Symbol,
		"admin":               in.Deployer,
		"manager":             p.Manager,
		"handler":             p.Handler,
		"handlerHook":         p.Hook,
		"pool":                p.Pool,
		"router":              p.Router,
		"asset":               p.Asset,
		"quoter":              quoter,
		"assetUsdFeed":        p.AssetUsdFeed,
		"counterAssetUsdFeed": p.CounterAssetUsdFeed,
		"minDepositAssets":    minDeposit,
	}

	return &models.DeployPlan{
		Unit:     p.ID,
		Kind:     params.KindAutomatorV1_1,
		Contract: "OrangeStrykeLPAutomatorV1_1",
		Version:  mustVersion("1.1.0"),
		Proxy: &models.UpgradeStep{
			Kind:               models.ProxyKindUUPS,
			UpgradeIndex:       0,
			ImplementationName: p.ID + "V1_1_Implementation",
			Initializer:        &models.Call{Method: "initialize", Args: []any{init}},
		},
		Configure: []models.Call{
			{Method: "setDepositCap", Args: []any{MaxUint256}},
			{Method: "setOwner", Args: []any{p.Admin, true}},
			{Method: "setStrategist", Args: []any{p.Strategist, true}},
			{Method: "setDepositFeePips", Args: []any{p.Admin, p.DepositFeePips}},
		},
		Verify: true,
	}, nil
}

// AutomatorV2 upgrades the vault to V2 and whitelists the swap proxy.
type AutomatorV2 struct{}

func (AutomatorV2) Kind() string          { return params.KindAutomatorV2 }
func (AutomatorV2) Schema() params.Schema { return params.AutomatorV2Schema }

func (AutomatorV2) Dependencies(values map[string]any) ([]Dependency, error) {
	override, _ := values["swapProxy"].(string)
	return []Dependency{{Param: "swapProxy", Unit: SwapProxyUnit, Override: override}}, nil
}

func (AutomatorV2) Plan(in Input) (*models.DeployPlan, error) {
	p, err := params.Decode[params.AutomatorV2](in.Values)
	if err != nil {
		return nil, err
	}
	swapProxy, err := dep(in, "swapProxy")
	if err != nil {
		return nil, err
	}

	return &models.DeployPlan{
		Unit:     p.ID,
		Kind:     params.KindAutomatorV2,
		Contract: "OrangeStrykeLPAutomatorV2",
		Version:  mustVersion("2.0.0"),
		Proxy: &models.UpgradeStep{
			Kind:               models.ProxyKindUUPS,
			UpgradeIndex:       1,
			ImplementationName: p.ID + "V2_Implementation",
			Initializer:        &models.Call{Method: "initializeV2", Args: []any{p.Balancer}},
		},
		Configure: []models.Call{
			{Method: "setProxyWhitelist", Args: []any{swapProxy, true}},
		},
		Verify: true,
	}, nil
}

// AutomatorV2_1 upgrades the vault to V2_1 and, on production, hands
// ownership from the deployer to the admin.
type AutomatorV2_1 struct{}

func (AutomatorV2_1) Kind() string          { return params.KindAutomatorV2_1 }
func (AutomatorV2_1) Schema() params.Schema { return params.AutomatorV2_1Schema }

func (AutomatorV2_1) Dependencies(values map[string]any) ([]Dependency, error) {
	ref, _ := values["poolAdapter"].(string)
	if unit, ok := params.IsReference(ref); ok {
		return []Dependency{{Param: "poolAdapter", Unit: unit}}, nil
	}
	return []Dependency{{Param: "poolAdapter", Override: ref}}, nil
}

func (AutomatorV2_1) Plan(in Input) (*models.DeployPlan, error) {
	p, err := params.Decode[params.AutomatorV2_1](in.Values)
	if err != nil {
		return nil, err
	}
	poolAdapter, err := dep(in, "poolAdapter")
	if err != nil {
		return nil, err
	}

	var configure []models.Call
	// Ownership must reach the admin before the deployer gives up its own.
	if production(in) && !sameAddress(p.Admin, in.Deployer) {
		configure = []models.Call{
			{Method: "setOwner", Args: []any{p.Admin, true}},
			{Method: "setOwner", Args: []any{in.Deployer, false}},
		}
	}

	return &models.DeployPlan{
		Unit:     p.ID,
		Kind:     params.KindAutomatorV2_1,
		Contract: "OrangeStrykeLPAutomatorV2_1",
		Version:  mustVersion("2.1.0"),
		Proxy: &models.UpgradeStep{
			Kind:               models.ProxyKindUUPS,
			UpgradeIndex:       2,
			ImplementationName: p.ID + "V2_1_Implementation",
			Initializer:        &models.Call{Method: "initializeV2_1", Args: []any{poolAdapter}},
			UnsafeAllow:        []string{"delegatecall"},
		},
		Configure: configure,
		Verify:    true,
	}, nil
}
