package analyzer

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/wnt/hedgemon/internal/models"
)

// defaultSymbolTable maps wrapped and liquid-staking representations to the
// underlying asset they track, so positions from different protocols can be
// aggregated against the same hedge instrument.
var defaultSymbolTable = map[string]string{
	"WBTC":   "BTC",
	"CBBTC":  "BTC",
	"TBTC":   "BTC",
	"WETH":   "ETH",
	"WSTETH": "ETH",
	"STETH":  "ETH",
	"WEETH":  "ETH",
	"RETH":   "ETH",
	"WSOL":   "SOL",
	"WMATIC": "MATIC",
	"WAVAX":  "AVAX",
}

// Normalizer canonicalizes raw asset records into models.Position values.
type Normalizer struct {
	table map[string]string
}

// NewNormalizer creates a normalizer using the default wrapped-token table
// merged with any extra mappings (raw symbol -> canonical symbol).
func NewNormalizer(extra map[string]string) *Normalizer {
	table := make(map[string]string, len(defaultSymbolTable)+len(extra))
	for k, v := range defaultSymbolTable {
		table[strings.ToUpper(k)] = strings.ToUpper(v)
	}
	for k, v := range extra {
		table[strings.ToUpper(k)] = strings.ToUpper(v)
	}
	return &Normalizer{table: table}
}

// Symbol returns the canonical symbol for a raw token symbol.
func (n *Normalizer) Symbol(raw string) string {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	if mapped, ok := n.table[upper]; ok {
		return mapped
	}
	return upper
}

// RawRecord is an asset entry as reported by a data provider, before
// validation. Upstream sources are not under our control, so malformed
// records are dropped rather than rejected with an error.
type RawRecord struct {
	Protocol string
	Chain    string
	Symbol   string
	Amount   decimal.Decimal
	USDValue decimal.Decimal
	Role     models.PositionRole
}

// Normalize converts a raw record into a Position. The second return value
// is false when the record carries no usable information: a missing symbol,
// or a zero amount with zero value.
func (n *Normalizer) Normalize(rec RawRecord) (models.Position, bool) {
	symbol := strings.TrimSpace(rec.Symbol)
	if symbol == "" {
		return models.Position{}, false
	}
	if rec.Amount.IsZero() && rec.USDValue.IsZero() {
		return models.Position{}, false
	}

	return models.Position{
		Protocol:         rec.Protocol,
		Chain:            rec.Chain,
		TokenSymbol:      symbol,
		NormalizedSymbol: n.Symbol(symbol),
		Amount:           rec.Amount,
		USDValue:         rec.USDValue,
		Role:             rec.Role,
	}, true
}
