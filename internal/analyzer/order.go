package analyzer

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wnt/hedgemon/internal/models"
)

var (
	// ErrOrderTooSmall is returned when the rounded order notional falls
	// below the venue's minimum order value.
	ErrOrderTooSmall = errors.New("order notional below minimum")

	// ErrPriceUnavailable is returned when no usable current price exists
	// for the instrument.
	ErrPriceUnavailable = errors.New("current price unavailable")

	// ErrUnknownInstrument is returned when the symbol is missing from the
	// instrument precision table and no fallback precision is configured.
	ErrUnknownInstrument = errors.New("instrument not in precision table")
)

// OrderSide is the trade direction on the hedge venue.
type OrderSide string

const (
	SideSell OrderSide = "sell" // opens or increases a short
	SideBuy  OrderSide = "buy"  // reduces a short
)

// OrderSpec is a fully validated order ready for submission. Producing it
// has no side effects; submission belongs to the execution collaborator.
type OrderSpec struct {
	ClientID    string
	Symbol      string
	Size        decimal.Decimal
	LimitPrice  decimal.Decimal
	Side        OrderSide
	TimeInForce string // always "Ioc"
	ReduceOnly  bool
}

// SizerConfig holds order sizing parameters, validated at configuration
// load.
type SizerConfig struct {
	SlippagePct          decimal.Decimal // default 5
	MinNotionalUSD       decimal.Decimal // default 10
	AllowFallback        bool            // permit FallbackSizeDecimals for unknown symbols
	FallbackSizeDecimals int32
}

// OrderSizer converts target adjustments into venue-conformant orders.
type OrderSizer struct {
	cfg  SizerConfig
	meta map[string]models.AssetMeta
}

func NewOrderSizer(cfg SizerConfig, meta map[string]models.AssetMeta) *OrderSizer {
	return &OrderSizer{cfg: cfg, meta: meta}
}

// SizeOrder computes the order size for a target notional, rounds it to the
// instrument's size precision, validates the minimum notional and derives a
// slippage-bounded IOC limit price.
func (s *OrderSizer) SizeOrder(symbol string, targetNotionalUSD, currentPrice decimal.Decimal, side OrderSide) (OrderSpec, error) {
	if currentPrice.Sign() <= 0 {
		return OrderSpec{}, fmt.Errorf("%w: %s", ErrPriceUnavailable, symbol)
	}

	sizeDecimals, err := s.sizeDecimals(symbol)
	if err != nil {
		return OrderSpec{}, err
	}

	rawSize := targetNotionalUSD.Div(currentPrice)
	size := rawSize.Round(sizeDecimals)

	actualNotional := size.Mul(currentPrice)
	if actualNotional.Cmp(s.cfg.MinNotionalUSD) < 0 {
		return OrderSpec{}, fmt.Errorf("%w: %s notional $%s < $%s",
			ErrOrderTooSmall, symbol, actualNotional.StringFixed(2), s.cfg.MinNotionalUSD)
	}

	// sell below / buy above the mid so the IOC order crosses the book
	slip := s.cfg.SlippagePct.Div(hundred)
	var rawLimit decimal.Decimal
	if side == SideSell {
		rawLimit = currentPrice.Mul(decimal.NewFromInt(1).Sub(slip))
	} else {
		rawLimit = currentPrice.Mul(decimal.NewFromInt(1).Add(slip))
	}

	return OrderSpec{
		ClientID:    uuid.NewString(),
		Symbol:      symbol,
		Size:        size,
		LimitPrice:  RoundLimitPrice(rawLimit, sizeDecimals),
		Side:        side,
		TimeInForce: "Ioc",
		ReduceOnly:  side == SideBuy,
	}, nil
}

func (s *OrderSizer) sizeDecimals(symbol string) (int32, error) {
	if m, ok := s.meta[symbol]; ok {
		return m.SizeDecimals, nil
	}
	if s.cfg.AllowFallback {
		return s.cfg.FallbackSizeDecimals, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownInstrument, symbol)
}

// RoundLimitPrice applies the venue's price validation rules: at most 5
// significant figures, at most (6 - sizeDecimals) decimal places, whichever
// is stricter, with trailing zero digits stripped. A numerically equal
// price with spurious trailing zeros is rejected by the venue.
func RoundLimitPrice(price decimal.Decimal, sizeDecimals int32) decimal.Decimal {
	if price.Sign() == 0 {
		return decimal.Zero
	}

	magnitude := int32(math.Floor(math.Log10(math.Abs(price.InexactFloat64()))))
	sigFigDecimals := 5 - magnitude - 1
	rounded := price.Round(sigFigDecimals)

	maxDecimals := 6 - sizeDecimals
	if maxDecimals < sigFigDecimals {
		rounded = rounded.Round(maxDecimals)
	}

	return stripTrailingZeros(rounded)
}

// stripTrailingZeros drops spurious fractional zeros from the decimal's
// representation without changing its value.
func stripTrailingZeros(d decimal.Decimal) decimal.Decimal {
	s := d.String()
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimRight(s, ".")
	}
	out, err := decimal.NewFromString(s)
	if err != nil {
		return d
	}
	return out
}
