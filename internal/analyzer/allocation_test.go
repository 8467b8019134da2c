package analyzer

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wnt/hedgemon/internal/models"
)

func defaultBand() AllocationBand {
	return AllocationBand{
		MinIdealPct: dec("70"),
		TargetPct:   dec("80"),
		MaxIdealPct: dec("90"),
	}
}

func protocolBalance(key string, category models.ProtocolCategory, value string) models.ProtocolBalance {
	return models.ProtocolBalance{ProtocolKey: key, Category: category, ValueUSD: dec(value)}
}

func TestAllocationBandValidate(t *testing.T) {
	assert.NoError(t, defaultBand().Validate())

	cases := map[string]AllocationBand{
		"zero min":          {MinIdealPct: dec("0"), TargetPct: dec("80"), MaxIdealPct: dec("90")},
		"target below min":  {MinIdealPct: dec("70"), TargetPct: dec("60"), MaxIdealPct: dec("90")},
		"max below target":  {MinIdealPct: dec("70"), TargetPct: dec("80"), MaxIdealPct: dec("75")},
		"max at 100":        {MinIdealPct: dec("70"), TargetPct: dec("80"), MaxIdealPct: dec("100")},
		"target equals min": {MinIdealPct: dec("70"), TargetPct: dec("70"), MaxIdealPct: dec("90")},
	}
	for name, band := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, band.Validate())
		})
	}
}

func TestAllocationIdeal(t *testing.T) {
	engine := NewAllocationEngine(defaultBand())
	status := engine.Analyze([]models.ProtocolBalance{
		protocolBalance("revert", models.CategoryLP, "8000"),
		protocolBalance("hyperliquid", models.CategoryHedgeVenue, "2000"),
	})

	require.True(t, status.Defined)
	assert.True(t, status.LPPct.Equal(dec("80")))
	assert.Equal(t, RiskIdeal, status.RiskLevel)
	assert.Equal(t, TransferNone, status.SuggestedDirection)
	assert.True(t, status.SuggestedTransferUSD.IsZero())
}

func TestAllocationBoundariesAreIdeal(t *testing.T) {
	engine := NewAllocationEngine(defaultBand())

	// exactly 90% LP is still ideal
	status := engine.Analyze([]models.ProtocolBalance{
		protocolBalance("revert", models.CategoryLP, "9000"),
		protocolBalance("hyperliquid", models.CategoryHedgeVenue, "1000"),
	})
	assert.Equal(t, RiskIdeal, status.RiskLevel)

	// 90.01% is not
	status = engine.Analyze([]models.ProtocolBalance{
		protocolBalance("revert", models.CategoryLP, "9001"),
		protocolBalance("hyperliquid", models.CategoryHedgeVenue, "999"),
	})
	assert.Equal(t, RiskHighLiquidation, status.RiskLevel)
}

func TestAllocationTransferTargetsBandCenter(t *testing.T) {
	engine := NewAllocationEngine(defaultBand())

	// 95% in LPs: transfer 15% of capital, down to the 80% target, not
	// merely back across the 90% threshold
	status := engine.Analyze([]models.ProtocolBalance{
		protocolBalance("revert", models.CategoryLP, "9500"),
		protocolBalance("hyperliquid", models.CategoryHedgeVenue, "500"),
	})
	require.Equal(t, RiskHighLiquidation, status.RiskLevel)
	assert.Equal(t, TransferLPToHedge, status.SuggestedDirection)
	assert.True(t, status.SuggestedTransferUSD.Equal(dec("1500")), "transfer = %s", status.SuggestedTransferUSD)

	// 60% in LPs: move 20% of capital from the hedge venue into LPs
	status = engine.Analyze([]models.ProtocolBalance{
		protocolBalance("revert", models.CategoryLP, "6000"),
		protocolBalance("hyperliquid", models.CategoryHedgeVenue, "4000"),
	})
	require.Equal(t, RiskMediumProfitability, status.RiskLevel)
	assert.Equal(t, TransferHedgeToLP, status.SuggestedDirection)
	assert.True(t, status.SuggestedTransferUSD.Equal(dec("2000")), "transfer = %s", status.SuggestedTransferUSD)
}

func TestAllocationBandExhaustive(t *testing.T) {
	engine := NewAllocationEngine(defaultBand())
	total := dec("10000")

	for lpPct := int64(0); lpPct <= 100; lpPct++ {
		lp := total.Mul(decimal.NewFromInt(lpPct)).Div(hundred)
		status := engine.Analyze([]models.ProtocolBalance{
			protocolBalance("revert", models.CategoryLP, lp.String()),
			protocolBalance("hyperliquid", models.CategoryHedgeVenue, total.Sub(lp).String()),
		})
		switch status.RiskLevel {
		case RiskIdeal, RiskHighLiquidation, RiskMediumProfitability:
		default:
			t.Fatalf("lp_pct=%d: unexpected risk level %q", lpPct, status.RiskLevel)
		}
	}
}

func TestAllocationWalletCountsTowardTotal(t *testing.T) {
	engine := NewAllocationEngine(defaultBand())
	status := engine.Analyze([]models.ProtocolBalance{
		protocolBalance("revert", models.CategoryLP, "7000"),
		protocolBalance("hyperliquid", models.CategoryHedgeVenue, "2000"),
		protocolBalance("wallet", models.CategoryWallet, "1000"),
	})

	require.True(t, status.Defined)
	assert.True(t, status.TotalCapitalUSD.Equal(dec("10000")))
	assert.True(t, status.LPPct.Equal(dec("70")))
	assert.True(t, status.WalletPct.Equal(dec("10")))
	assert.Equal(t, RiskIdeal, status.RiskLevel)
}

func TestAllocationZeroCapital(t *testing.T) {
	engine := NewAllocationEngine(defaultBand())

	status := engine.Analyze(nil)
	assert.False(t, status.Defined)
	assert.Equal(t, TransferNone, status.SuggestedDirection)

	status = engine.Analyze([]models.ProtocolBalance{
		protocolBalance("revert", models.CategoryLP, "0"),
	})
	assert.False(t, status.Defined)
}
