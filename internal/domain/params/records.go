package params

// Unit kinds
const (
	KindAutomatorV1_1   = "automator-v1_1"
	KindAutomatorV2     = "automator-v2"
	KindAutomatorV2_1   = "automator-v2_1"
	KindChainlinkQuoter = "chainlink-quoter"
	KindTWAPQuoter      = "twap-quoter"
	KindSwapProxy       = "swap-proxy"
	KindPoolAdapter     = "pool-adapter"
	KindPeriphery       = "periphery"
)

// Quoter selectors
const (
	QuoterChainlink = "chainlink"
	QuoterTWAP      = "twap"
)

// AutomatorV1_1 creates the vault proxy (upgrade index 0)
type AutomatorV1_1 struct {
	ID                  string `yaml:"id"`
	Pool                string `yaml:"pool"`
	Router              string `yaml:"router"`
	Handler             string `yaml:"handler"`
	Hook                string `yaml:"hook"`
	Manager             string `yaml:"manager"`
	Asset               string `yaml:"asset"`
	CounterAsset        string `yaml:"counterAsset"`
	Symbol              string `yaml:"symbol"`
	MinDepositAssets    string `yaml:"minDepositAssets"`
	Unit                uint64 `yaml:"unit"`
	AssetUsdFeed        string `yaml:"assetUsdFeed"`
	CounterAssetUsdFeed string `yaml:"counterAssetUsdFeed"`
	Admin               string `yaml:"admin"`
	Strategist          string `yaml:"strategist"`
	DepositFeePips      string `yaml:"depositFeePips"`
	QuoterType          string `yaml:"quoterType"`
}

// AutomatorV2 upgrades the vault to V2 (upgrade index 1)
type AutomatorV2 struct {
	ID       string `yaml:"id"`
	Balancer string `yaml:"balancer"`
	Admin    string `yaml:"admin"`
	// SwapProxy overrides the managed swap proxy lookup, e.g. on chains
	// without a Kyberswap deployment.
	SwapProxy string `yaml:"swapProxy,omitempty"`
}

// AutomatorV2_1 upgrades the vault to V2_1 (upgrade index 2)
type AutomatorV2_1 struct {
	ID          string `yaml:"id"`
	PoolAdapter string `yaml:"poolAdapter"`
	Admin       string `yaml:"admin"`
}

type StalenessThreshold struct {
	Feed      string `yaml:"feed"`
	Threshold uint64 `yaml:"threshold"`
}

// ChainlinkQuoter is the oracle feed quoter
type ChainlinkQuoter struct {
	Admin                 string               `yaml:"admin"`
	L2SequencerUptimeFeed string               `yaml:"l2SequencerUptimeFeed"`
	StalenessThresholds   []StalenessThreshold `yaml:"stalenessThresholds"`
}

type TWAPPair struct {
	Name     string `yaml:"name,omitempty"`
	TokenA   string `yaml:"tokenA"`
	TokenB   string `yaml:"tokenB"`
	Pool     string `yaml:"pool"`
	Duration uint64 `yaml:"duration"`
}

// TWAPQuoter is the Uniswap V3 time weighted average price quoter
type TWAPQuoter struct {
	Oracle string     `yaml:"oracle"`
	Admin  string     `yaml:"admin,omitempty"`
	Pairs  []TWAPPair `yaml:"pairs"`
}

type TrustedProviders struct {
	Kyberswap string `yaml:"kyberswap"`
}

// SwapProxy is the Kyberswap aggregator proxy
type SwapProxy struct {
	Admin            string           `yaml:"admin"`
	TrustedProviders TrustedProviders `yaml:"trustedProviders"`
}

// PoolAdapter wraps one DEX pool
type PoolAdapter struct {
	Dex  string `yaml:"dex"`
	Pool string `yaml:"pool"`
}

// Periphery is a stateless helper contract without parameters
type Periphery struct {
	Contract string `yaml:"contract"`
}
