package quota

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func at(day int) time.Time {
	return time.Date(2026, 8, day, 0, 0, 0, 0, time.UTC)
}

func TestBuildSeriesNoFlows(t *testing.T) {
	series := BuildSeries([]ValuePoint{
		{At: at(1), NetWorthUSD: dec("10000")},
		{At: at(2), NetWorthUSD: dec("10500")},
		{At: at(3), NetWorthUSD: dec("10200")},
	}, nil, dec("100"))

	require.Len(t, series, 3)

	// 10000 / 100 = 100 quotas, held constant without flows
	assert.True(t, series[0].TotalQuotas.Equal(dec("100")))
	assert.True(t, series[0].QuotaValue.Equal(dec("100")))
	assert.True(t, series[1].QuotaValue.Equal(dec("105")))
	assert.True(t, series[2].QuotaValue.Equal(dec("102")))

	assert.True(t, PerformancePct(series).Equal(dec("2")), "performance = %s", PerformancePct(series))
}

func TestBuildSeriesDepositMintsQuotas(t *testing.T) {
	// a deposit between observations must not show up as performance
	series := BuildSeries([]ValuePoint{
		{At: at(1), NetWorthUSD: dec("10000")},
		{At: at(3), NetWorthUSD: dec("15000")},
	}, []Flow{
		{At: at(2), AmountUSD: dec("5000")},
	}, dec("100"))

	require.Len(t, series, 2)

	// 5000 deposited at quota value 100 mints 50 quotas
	assert.True(t, series[1].TotalQuotas.Equal(dec("150")))
	assert.True(t, series[1].QuotaValue.Equal(dec("100")))
	assert.True(t, PerformancePct(series).IsZero())
}

func TestBuildSeriesWithdrawalBurnsQuotas(t *testing.T) {
	series := BuildSeries([]ValuePoint{
		{At: at(1), NetWorthUSD: dec("10000")},
		{At: at(3), NetWorthUSD: dec("5500")},
	}, []Flow{
		{At: at(2), AmountUSD: dec("-5000")},
	}, dec("100"))

	require.Len(t, series, 2)

	// 5000 withdrawn at quota value 100 burns 50 quotas; the remaining
	// 50 quotas are worth 5500, a 10% gain
	assert.True(t, series[1].TotalQuotas.Equal(dec("50")))
	assert.True(t, series[1].QuotaValue.Equal(dec("110")))
	assert.True(t, PerformancePct(series).Equal(dec("10")))
}

func TestBuildSeriesMixedFlowsAndPnl(t *testing.T) {
	series := BuildSeries([]ValuePoint{
		{At: at(1), NetWorthUSD: dec("10000")},
		{At: at(2), NetWorthUSD: dec("11000")}, // +10% trading
		{At: at(4), NetWorthUSD: dec("16500")}, // deposit on day 3, flat after
	}, []Flow{
		{At: at(3), AmountUSD: dec("5500")},
	}, dec("100"))

	require.Len(t, series, 3)
	assert.True(t, series[1].QuotaValue.Equal(dec("110")))

	// deposit at quota value 110 mints 50 quotas; 150 quotas at 16500
	assert.True(t, series[2].TotalQuotas.Equal(dec("150")))
	assert.True(t, series[2].QuotaValue.Equal(dec("110")))
	assert.True(t, PerformancePct(series).Equal(dec("10")))
}

func TestBuildSeriesEmptyInputs(t *testing.T) {
	assert.Nil(t, BuildSeries(nil, nil, dec("100")))
	assert.Nil(t, BuildSeries([]ValuePoint{{At: at(1), NetWorthUSD: dec("100")}}, nil, decimal.Zero))
	assert.True(t, PerformancePct(nil).IsZero())
}
