package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wnt/hedgemon/internal/models"
)

func testSizer() *OrderSizer {
	return NewOrderSizer(SizerConfig{
		SlippagePct:    dec("5"),
		MinNotionalUSD: dec("10"),
	}, map[string]models.AssetMeta{
		"BTC": {Symbol: "BTC", SizeDecimals: 4, MaxLeverage: 40},
		"ETH": {Symbol: "ETH", SizeDecimals: 3, MaxLeverage: 25},
	})
}

func TestSizeOrderRoundsToInstrumentPrecision(t *testing.T) {
	spec, err := testSizer().SizeOrder("BTC", dec("100"), dec("95432.1"), SideSell)
	require.NoError(t, err)

	// 100 / 95432.1 = 0.00104786..., rounded to 4 size decimals
	assert.True(t, spec.Size.Equal(dec("0.001")), "size = %s", spec.Size)
	assert.Equal(t, "BTC", spec.Symbol)
	assert.Equal(t, SideSell, spec.Side)
	assert.Equal(t, "Ioc", spec.TimeInForce)
	assert.False(t, spec.ReduceOnly)
	assert.NotEmpty(t, spec.ClientID)
}

func TestSizeOrderMinNotional(t *testing.T) {
	sizer := testSizer()

	// rounded size 0.0001 BTC is worth ~$9.54, under the $10 floor
	_, err := sizer.SizeOrder("BTC", dec("5"), dec("95432.1"), SideSell)
	require.ErrorIs(t, err, ErrOrderTooSmall)

	// size rounds all the way to zero
	_, err = sizer.SizeOrder("BTC", dec("2"), dec("95432.1"), SideSell)
	require.ErrorIs(t, err, ErrOrderTooSmall)

	// the floor is on the post-rounding notional, $19.09 passes
	spec, err := sizer.SizeOrder("BTC", dec("15"), dec("95432.1"), SideSell)
	require.NoError(t, err)
	assert.True(t, spec.Size.Equal(dec("0.0002")), "size = %s", spec.Size)
}

func TestSizeOrderLimitPrices(t *testing.T) {
	sizer := testSizer()
	price := dec("95432.1")

	sell, err := sizer.SizeOrder("BTC", dec("100"), price, SideSell)
	require.NoError(t, err)
	// 95432.1 * 0.95 = 90660.495, five significant figures
	assert.Equal(t, "90660", sell.LimitPrice.String())

	buy, err := sizer.SizeOrder("BTC", dec("100"), price, SideBuy)
	require.NoError(t, err)
	// 95432.1 * 1.05 = 100203.705
	assert.Equal(t, "100200", buy.LimitPrice.String())
	assert.True(t, buy.ReduceOnly)
}

func TestSizeOrderPriceUnavailable(t *testing.T) {
	_, err := testSizer().SizeOrder("BTC", dec("100"), dec("0"), SideSell)
	require.ErrorIs(t, err, ErrPriceUnavailable)
}

func TestSizeOrderUnknownInstrument(t *testing.T) {
	_, err := testSizer().SizeOrder("XYZ", dec("100"), dec("5"), SideSell)
	require.ErrorIs(t, err, ErrUnknownInstrument)
}

func TestSizeOrderFallbackPrecision(t *testing.T) {
	sizer := NewOrderSizer(SizerConfig{
		SlippagePct:          dec("5"),
		MinNotionalUSD:       dec("10"),
		AllowFallback:        true,
		FallbackSizeDecimals: 2,
	}, nil)

	spec, err := sizer.SizeOrder("XYZ", dec("100"), dec("5"), SideSell)
	require.NoError(t, err)
	assert.True(t, spec.Size.Equal(dec("20")), "size = %s", spec.Size)
}

func TestRoundLimitPrice(t *testing.T) {
	cases := []struct {
		price        string
		sizeDecimals int32
		want         string
	}{
		{"95432.123456", 5, "95432"},   // five significant figures above 10k
		{"3456.789", 3, "3456.8"},      // sig figs bind before the decimal cap
		{"1.23456", 2, "1.2346"},       // sig figs and decimal cap coincide
		{"0.0012345", 0, "0.001235"},   // decimal cap (6 - 0) binds below sig figs
		{"2000.004", 1, "2000"},        // trailing zeros stripped after rounding
		{"0", 3, "0"},
	}
	for _, tc := range cases {
		got := RoundLimitPrice(dec(tc.price), tc.sizeDecimals)
		assert.Equal(t, tc.want, got.String(), "RoundLimitPrice(%s, %d)", tc.price, tc.sizeDecimals)
	}
}
