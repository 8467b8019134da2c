package analyzer

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wnt/hedgemon/internal/models"
)

func defaultHedgeConfig() HedgeConfig {
	return HedgeConfig{
		TolerancePct:   dec("5"),
		TriggerPct:     dec("10"),
		CoverageMinPct: dec("98"),
		CoverageMaxPct: dec("102"),
	}
}

func findToken(t *testing.T, report Report, symbol string) HedgeStatus {
	t.Helper()
	for _, st := range report.Tokens {
		if st.Symbol == symbol {
			return st
		}
	}
	t.Fatalf("token %s not in report", symbol)
	return HedgeStatus{}
}

func TestToleranceBoundaryInclusive(t *testing.T) {
	// widen the coverage band so a 105% short does not trip the forced
	// zero-tolerance pass and mask the boundary under test
	cfg := defaultHedgeConfig()
	cfg.CoverageMaxPct = dec("110")
	a := NewHedgeAnalyzer(cfg)
	prices := map[string]decimal.Decimal{"ETH": dec("1000")}

	// deviation of exactly 5% is balanced
	balances := map[string]TokenBalance{
		"ETH": {Symbol: "ETH", LPAmount: dec("1.0"), ShortAmount: dec("1.05")},
	}
	report := a.Analyze(balances, prices, dec("10000"))
	require.False(t, report.Forced)
	st := findToken(t, report, "ETH")
	assert.Equal(t, StatusBalanced, st.Status)
	assert.Equal(t, ActionNone, st.Action)
	assert.True(t, st.AdjustmentAmount.IsZero())

	// one tick past the boundary is over-hedged
	balances["ETH"] = TokenBalance{Symbol: "ETH", LPAmount: dec("1.0"), ShortAmount: dec("1.051")}
	report = a.Analyze(balances, prices, dec("10000"))
	st = findToken(t, report, "ETH")
	assert.Equal(t, StatusOverHedged, st.Status)
	assert.Equal(t, ActionDecreaseShort, st.Action)
	assert.True(t, st.AdjustmentAmount.Equal(dec("0.051")), "adjustment = %s", st.AdjustmentAmount)
}

func TestFullUnderHedge(t *testing.T) {
	a := NewHedgeAnalyzer(defaultHedgeConfig())
	balances := map[string]TokenBalance{
		"BTC": {Symbol: "BTC", LPAmount: dec("1.0"), ShortAmount: decimal.Zero},
	}
	prices := map[string]decimal.Decimal{"BTC": dec("95000")}

	report := a.Analyze(balances, prices, decimal.Zero)
	st := findToken(t, report, "BTC")

	assert.Equal(t, StatusUnderHedged, st.Status)
	assert.Equal(t, ActionIncreaseShort, st.Action)
	assert.True(t, st.AdjustmentAmount.Equal(dec("1.0")))
	assert.True(t, st.AdjustmentValueUSD.Equal(dec("95000")))
}

func TestZeroBothSidesIsBalanced(t *testing.T) {
	a := NewHedgeAnalyzer(defaultHedgeConfig())
	balances := map[string]TokenBalance{
		"SOL": {Symbol: "SOL"},
	}

	report := a.Analyze(balances, map[string]decimal.Decimal{"SOL": dec("150")}, dec("1000"))
	st := findToken(t, report, "SOL")

	assert.Equal(t, StatusBalanced, st.Status)
	assert.True(t, st.AdjustmentAmount.IsZero())
}

func TestMissingPriceIsFlaggedNotFatal(t *testing.T) {
	a := NewHedgeAnalyzer(defaultHedgeConfig())
	balances := map[string]TokenBalance{
		"BTC":     {Symbol: "BTC", LPAmount: dec("1"), ShortAmount: dec("1")},
		"OBSCURE": {Symbol: "OBSCURE", LPAmount: dec("10"), ShortAmount: decimal.Zero},
	}
	prices := map[string]decimal.Decimal{"BTC": dec("95000")}

	report := a.Analyze(balances, prices, dec("100000"))

	// the priced token is still processed
	btc := findToken(t, report, "BTC")
	assert.Equal(t, StatusBalanced, btc.Status)
	assert.False(t, btc.PriceMissing)

	// the unpriced token is classified but flagged, never valued at $0
	// silently
	obscure := findToken(t, report, "OBSCURE")
	assert.Equal(t, StatusUnderHedged, obscure.Status)
	assert.True(t, obscure.PriceMissing)
	assert.True(t, obscure.AdjustmentValueUSD.IsZero())
	assert.Equal(t, []string{"OBSCURE"}, report.MissingPrices)
}

func TestPriorityThreshold(t *testing.T) {
	a := NewHedgeAnalyzer(defaultHedgeConfig())
	prices := map[string]decimal.Decimal{"ETH": dec("1000")}

	// adjustment of 2 ETH = $2000 = 20% of $10000 capital -> required
	balances := map[string]TokenBalance{
		"ETH": {Symbol: "ETH", LPAmount: dec("10"), ShortAmount: dec("8")},
	}
	report := a.Analyze(balances, prices, dec("10000"))
	assert.Equal(t, PriorityRequired, findToken(t, report, "ETH").Priority)

	// same adjustment against $100000 capital is only 2% -> optional
	report = a.Analyze(balances, prices, dec("100000"))
	assert.Equal(t, PriorityOptional, findToken(t, report, "ETH").Priority)
}

func TestForcedRebalanceRecomputes(t *testing.T) {
	a := NewHedgeAnalyzer(defaultHedgeConfig())

	// individually balanced (3% deviation) but coverage 97% < 98%
	balances := map[string]TokenBalance{
		"ETH": {Symbol: "ETH", LPAmount: dec("1.0"), ShortAmount: dec("0.97")},
	}
	prices := map[string]decimal.Decimal{"ETH": dec("1000")}

	report := a.Analyze(balances, prices, dec("100"))
	require.True(t, report.CoverageDefined)
	assert.True(t, report.CoveragePct.Equal(dec("97")), "coverage = %s", report.CoveragePct)
	assert.True(t, report.Forced)

	st := findToken(t, report, "ETH")
	assert.Equal(t, StatusUnderHedged, st.Status)
	assert.True(t, st.Forced)
	assert.True(t, st.AdjustmentAmount.Equal(dec("0.03")))
	// adjustment value and priority recomputed, not left at stale defaults
	assert.True(t, st.AdjustmentValueUSD.Equal(dec("30")), "value = %s", st.AdjustmentValueUSD)
	assert.Equal(t, PriorityRequired, st.Priority)
}

func TestCoverageInsideBandNotForced(t *testing.T) {
	a := NewHedgeAnalyzer(defaultHedgeConfig())
	balances := map[string]TokenBalance{
		"ETH": {Symbol: "ETH", LPAmount: dec("1.0"), ShortAmount: dec("1.01")},
	}
	prices := map[string]decimal.Decimal{"ETH": dec("1000")}

	report := a.Analyze(balances, prices, dec("1000"))
	assert.False(t, report.Forced)
	assert.Equal(t, StatusBalanced, findToken(t, report, "ETH").Status)
}

func TestEndToEndScenario(t *testing.T) {
	norm := NewNormalizer(nil)
	positions := []models.Position{
		supply("revert", "WBTC", "0.0004"),
		supply("revert", "WETH", "0.0125"),
	}
	shorts := []models.PerpPosition{
		short("BTC", "-0.0004"),
		short("ETH", "-0.0133"),
	}

	balances := Aggregate(positions, shorts, []string{"revert"}, norm)
	a := NewHedgeAnalyzer(defaultHedgeConfig())
	prices := map[string]decimal.Decimal{"BTC": dec("100000"), "ETH": dec("1000")}

	report := a.Analyze(balances, prices, dec("100"))
	require.False(t, report.Forced, "coverage %s should be inside the band", report.CoveragePct)

	btc := findToken(t, report, "BTC")
	assert.Equal(t, StatusBalanced, btc.Status)
	assert.True(t, btc.DeviationPct.IsZero())

	eth := findToken(t, report, "ETH")
	assert.Equal(t, StatusOverHedged, eth.Status)
	assert.Equal(t, ActionDecreaseShort, eth.Action)
	assert.True(t, eth.AdjustmentAmount.Equal(dec("0.0008")), "adjustment = %s", eth.AdjustmentAmount)
	assert.True(t, eth.DeviationPct.Equal(dec("6.4")), "deviation = %s", eth.DeviationPct)
}
