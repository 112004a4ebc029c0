package params

func address(name, description string) Field {
	return Field{Name: name, Type: TypeAddress, Description: description}
}

var AutomatorV1_1Schema = Schema{
	Kind: KindAutomatorV1_1,
	Fields: []Field{
		{Name: "id", Type: TypeString, Description: "unit id"},
		address("pool", "pool"),
		address("router", "swap router"),
		address("handler", "liquidity handler"),
		address("hook", "handler hook"),
		address("manager", "position manager"),
		address("asset", "deposit asset"),
		address("counterAsset", "counter asset"),
		{Name: "symbol", Type: TypeString, Description: "vault share symbol"},
		{Name: "minDepositAssets", Type: TypeDecimal, Description: "minimum deposit in asset units"},
		{Name: "unit", Type: TypeUint, Description: "asset decimals", Max: MaxDecimals},
		address("assetUsdFeed", "asset USD feed"),
		address("counterAssetUsdFeed", "counter asset USD feed"),
		address("admin", "admin"),
		address("strategist", "strategist"),
		{Name: "depositFeePips", Type: TypeUintString, Description: "deposit fee in pips"},
		{Name: "quoterType", Type: TypeEnum, Description: "quoter type", Enum: []string{QuoterChainlink, QuoterTWAP}},
	},
}

var AutomatorV2Schema = Schema{
	Kind: KindAutomatorV2,
	Fields: []Field{
		{Name: "id", Type: TypeString, Description: "unit id"},
		address("balancer", "balancer vault"),
		address("admin", "admin"),
		{Name: "swapProxy", Type: TypeAddress, Description: "swap proxy override", Optional: true},
	},
}

var AutomatorV2_1Schema = Schema{
	Kind: KindAutomatorV2_1,
	Fields: []Field{
		{Name: "id", Type: TypeString, Description: "unit id"},
		{Name: "poolAdapter", Type: TypeReference, Description: "pool adapter"},
		address("admin", "admin"),
	},
}

var ChainlinkQuoterSchema = Schema{
	Kind: KindChainlinkQuoter,
	Fields: []Field{
		address("admin", "admin"),
		address("l2SequencerUptimeFeed", "L2 sequencer uptime feed"),
		{
			Name:        "stalenessThresholds",
			Type:        TypeList,
			Description: "staleness thresholds",
			Fields: []Field{
				address("feed", "price feed"),
				{Name: "threshold", Type: TypeUint, Description: "staleness threshold in seconds"},
			},
		},
	},
}

var TWAPQuoterSchema = Schema{
	Kind: KindTWAPQuoter,
	Fields: []Field{
		address("oracle", "TWAP oracle"),
		{Name: "admin", Type: TypeAddress, Description: "admin", Optional: true},
		{
			Name:        "pairs",
			Type:        TypeList,
			Description: "TWAP pairs",
			Fields: []Field{
				{Name: "name", Type: TypeString, Description: "pair name", Optional: true},
				address("tokenA", "first token"),
				address("tokenB", "second token"),
				address("pool", "pool"),
				{Name: "duration", Type: TypeUint, Description: "TWAP window in seconds"},
			},
		},
	},
}

var SwapProxySchema = Schema{
	Kind: KindSwapProxy,
	Fields: []Field{
		address("admin", "admin"),
		{
			Name:        "trustedProviders",
			Type:        TypeObject,
			Description: "trusted swap providers",
			Fields: []Field{
				address("kyberswap", "kyberswap router"),
			},
		},
	},
}

var PoolAdapterSchema = Schema{
	Kind: KindPoolAdapter,
	Fields: []Field{
		{Name: "dex", Type: TypeEnum, Description: "dex", Enum: []string{"uniswap", "pancake", "sushi"}},
		address("pool", "pool"),
	},
}

var PeripherySchema = Schema{
	Kind: KindPeriphery,
	Fields: []Field{
		{Name: "contract", Type: TypeEnum, Description: "periphery contract", Enum: []string{"ReserveProxy", "StrykeVaultInspector"}},
	},
}
