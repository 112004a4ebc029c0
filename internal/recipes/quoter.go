package recipes

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/orange-finance/odeploy/internal/domain/models"
	"github.com/orange-finance/odeploy/internal/domain/params"
)

// ChainlinkQuoter deploys the oracle feed quoter and sets per-feed
// staleness thresholds.
type ChainlinkQuoter struct{}

func (ChainlinkQuoter) Kind() string          { return params.KindChainlinkQuoter }
func (ChainlinkQuoter) Schema() params.Schema { return params.ChainlinkQuoterSchema }

func (ChainlinkQuoter) Dependencies(map[string]any) ([]Dependency, error) { return nil, nil }

func (ChainlinkQuoter) Plan(in Input) (*models.DeployPlan, error) {
	p, err := params.Decode[params.ChainlinkQuoter](in.Values)
	if err != nil {
		return nil, err
	}

	configure := make([]models.Call, 0, len(p.StalenessThresholds)+1)
	for _, st := range p.StalenessThresholds {
		configure = append(configure, models.Call{
			Method: "setStalenessThreshold",
			Args:   []any{st.Feed, st.Threshold},
		})
	}
	if production(in) {
		configure = append(configure, models.Call{Method: "transferOwnership", Args: []any{p.Admin}})
	}

	return &models.DeployPlan{
		Unit:            unitOr(in, ChainlinkQuoterUnit),
		Kind:            params.KindChainlinkQuoter,
		Contract:        "ChainlinkQuoter",
		Version:         mustVersion("1.0.0"),
		ConstructorArgs: []any{p.L2SequencerUptimeFeed},
		Configure:       configure,
		Verify:          true,
	}, nil
}

// TWAPQuoter deploys the Uniswap V3 TWAP quoter and registers each pair.
type TWAPQuoter struct{}

func (TWAPQuoter) Kind() string          { return params.KindTWAPQuoter }
func (TWAPQuoter) Schema() params.Schema { return params.TWAPQuoterSchema }

func (TWAPQuoter) Dependencies(map[string]any) ([]Dependency, error) { return nil, nil }

func (TWAPQuoter) Plan(in Input) (*models.DeployPlan, error) {
	p, err := params.Decode[params.TWAPQuoter](in.Values)
	if err != nil {
		return nil, err
	}

	configure := make([]models.Call, 0, len(p.Pairs)+1)
	for _, pair := range p.Pairs {
		configure = append(configure, models.Call{
			Method: "setTWAPConfig",
			Args: []any{
				PairID(common.HexToAddress(pair.TokenA), common.HexToAddress(pair.TokenB)),
				map[string]any{"pool": pair.Pool, "duration": pair.Duration},
			},
		})
	}
	if p.Admin != "" && production(in) {
		configure = append(configure, models.Call{Method: "transferOwnership", Args: []any{p.Admin}})
	}

	return &models.DeployPlan{
		Unit:            unitOr(in, TWAPQuoterUnit),
		Kind:            params.KindTWAPQuoter,
		Contract:        "UniswapV3TWAPQuoter",
		Version:         mustVersion("1.0.0"),
		ConstructorArgs: []any{p.Oracle},
		Configure:       configure,
		Verify:          true,
	}, nil
}

// PairID is keccak256(abi.encode(hi, lo)) where hi is the numerically larger
// token, so the id does not depend on argument order.
func PairID(tokenA, tokenB common.Address) common.Hash {
	if bytes.Compare(tokenA.Bytes(), tokenB.Bytes()) < 0 {
		tokenA, tokenB = tokenB, tokenA
	}
	return crypto.Keccak256Hash(
		common.LeftPadBytes(tokenA.Bytes(), 32),
		common.LeftPadBytes(tokenB.Bytes(), 32),
	)
}

func production(in Input) bool {
	return in.Environment != nil && in.Environment.Production
}

func unitOr(in Input, fallback string) string {
	if in.Unit != "" {
		return in.Unit
	}
	return fallback
}
