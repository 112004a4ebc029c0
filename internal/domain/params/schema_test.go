package params

import (
	"errors"
	"strings"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/orange-finance/odeploy/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validV1_1() map[string]any {
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
		"unit":                18,
		"assetUsdFeed":        "0x639Fe6ab55C921f74e7fac1ee960C0B6293ba612",
		"counterAssetUsdFeed": "0x50834F3163758fcC1Df9973b6e91f0F0F0434aD3",
		"admin":               "0x12D1A136250131E37A607B0b78F6F109BF6a9fa3",
		"strategist":          "0x12D1A136250131E37A607B0b78F6F109BF6a9fa3",
		"depositFeePips":      "1000",
		"quoterType":          "chainlink",
	}
}

func fieldErrors(t *testing.T, err error) map[string]*domain.FieldError {
	t.Helper()
	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	out := make(map[string]*domain.FieldError)
	for _, e := range merr.Errors {
		var fe *domain.FieldError
		require.True(t, errors.As(e, &fe))
		out[fe.Field] = fe
	}
	return out
}

func TestSchemaValidate(t *testing.T) {
	t.Run("valid record is normalized", func(t *testing.T) {
		values, err := AutomatorV1_1Schema.Validate(validV1_1())
		require.NoError(t, err)
		assert.Equal(t, uint64(18), values["unit"])

		rec, err := Decode[AutomatorV1_1](values)
		require.NoError(t, err)
		assert.Equal(t, "WETH-USDC", rec.ID)
		assert.Equal(t, uint64(18), rec.Unit)
		assert.Equal(t, "chainlink", rec.QuoterType)
	})

	t.Run("short pool address names the pool field", func(t *testing.T) {
		raw := validV1_1()
		raw["pool"] = "0x123"
		_, err := AutomatorV1_1Schema.Validate(raw)
		require.Error(t, err)

		fields := fieldErrors(t, err)
		require.Contains(t, fields, "pool")
		assert.Len(t, fields, 1)
		assert.Contains(t, err.Error(), `"pool"`)
	})

	t.Run("unsupported quoter type is a quoter type error", func(t *testing.T) {
		raw := validV1_1()
		raw["quoterType"] = "vwap"
		_, err := AutomatorV1_1Schema.Validate(raw)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "quoter type")
		assert.Contains(t, fieldErrors(t, err), "quoterType")
	})

	t.Run("every violation is reported", func(t *testing.T) {
		raw := validV1_1()
		raw["pool"] = "0x123"
		raw["admin"] = "not-an-address"
		raw["depositFeePips"] = "-5"
		raw["unit"] = -1
		raw["minDepositAssets"] = "ten"
		delete(raw, "router")
		raw["extra"] = true

		_, err := AutomatorV1_1Schema.Validate(raw)
		require.Error(t, err)
		fields := fieldErrors(t, err)
		for _, name := range []string{"pool", "admin", "depositFeePips", "unit", "minDepositAssets", "router", "extra"} {
			assert.Contains(t, fields, name)
		}
		assert.Contains(t, fields["unit"].Reason, "non-negative")
		assert.Contains(t, fields["router"].Reason, "required")
	})

	t.Run("unit is bounded by token decimals", func(t *testing.T) {
		for _, unit := range []any{256, uint64(9223372036854775808), 100000000000} {
			raw := validV1_1()
			raw["unit"] = unit
			_, err := AutomatorV1_1Schema.Validate(raw)
			require.Error(t, err, unit)

			fields := fieldErrors(t, err)
			require.Contains(t, fields, "unit")
			assert.Contains(t, fields["unit"].Reason, "at most 255")
		}

		raw := validV1_1()
		raw["unit"] = 255
		_, err := AutomatorV1_1Schema.Validate(raw)
		assert.NoError(t, err)
	})

	t.Run("numeric strings accept yaml integers", func(t *testing.T) {
		raw := validV1_1()
		raw["depositFeePips"] = 1000
		values, err := AutomatorV1_1Schema.Validate(raw)
		require.NoError(t, err)
		assert.Equal(t, "1000", values["depositFeePips"])
	})

	t.Run("nested list items are validated", func(t *testing.T) {
		raw := map[string]any{
			"admin":                 "0x38E4157345Bd2c8Cf7Dbe4B0C75302c2038AB7Ec",
			"l2SequencerUptimeFeed": "0xFdB631F5EE196F0ed6FAa767959853A9F217697D",
			"stalenessThresholds": []any{
				map[string]any{"feed": "0x639Fe6ab55C921f74e7fac1ee960C0B6293ba612", "threshold": 86400},
				map[string]any{"feed": "0xbad", "threshold": -1},
			},
		}
		_, err := ChainlinkQuoterSchema.Validate(raw)
		require.Error(t, err)
		fields := fieldErrors(t, err)
		assert.Contains(t, fields, "stalenessThresholds[1].feed")
		assert.Contains(t, fields, "stalenessThresholds[1].threshold")
		assert.NotContains(t, fields, "stalenessThresholds[0].feed")
	})

	t.Run("reference fields accept unit names", func(t *testing.T) {
		raw := map[string]any{
			"id":          "WETH-USDC",
			"poolAdapter": "@UniswapV3PoolAdapter_WETH-USDC_500",
			"admin":       "0x12D1A136250131E37A607B0b78F6F109BF6a9fa3",
		}
		values, err := AutomatorV2_1Schema.Validate(raw)
		require.NoError(t, err)
		unit, ok := IsReference(values["poolAdapter"].(string))
		assert.True(t, ok)
		assert.Equal(t, "UniswapV3PoolAdapter_WETH-USDC_500", unit)

		raw["poolAdapter"] = "@"
		_, err = AutomatorV2_1Schema.Validate(raw)
		assert.Error(t, err)
	})

	t.Run("optional fields may be omitted", func(t *testing.T) {
		raw := map[string]any{
			"id":       "WETH-USDC",
			"balancer": "0xBA12222222228d8Ba445958a75a0704d566BF2C8",
			"admin":    "0x12D1A136250131E37A607B0b78F6F109BF6a9fa3",
		}
		_, err := AutomatorV2Schema.Validate(raw)
		assert.NoError(t, err)
	})
}

func TestParseUnits(t *testing.T) {
	tests := []struct {
		value    string
		decimals uint64
		want     string
		wantErr  bool
	}{
		{value: "10", decimals: 6, want: "10000000"},
		{value: "0.01", decimals: 18, want: "10000000000000000"},
		{value: "1.50", decimals: 2, want: "150"},
		{value: "0.001", decimals: 2, wantErr: true},
		{value: "abc", decimals: 6, wantErr: true},
		{value: "1", decimals: 255, want: "1" + strings.Repeat("0", 255)},
		{value: "2", decimals: 256, wantErr: true},
		{value: "3", decimals: 1 << 63, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := ParseUnits(tt.value, tt.decimals)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}
