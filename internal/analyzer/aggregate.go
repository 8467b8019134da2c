package analyzer

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/wnt/hedgemon/internal/models"
)

// TokenBalance is the per-symbol aggregate exposure over one snapshot.
type TokenBalance struct {
	Symbol      string
	LPAmount    decimal.Decimal // supply + reward - borrow; signed, never clamped
	ShortAmount decimal.Decimal // magnitude of hedge-venue short size
}

// ProtocolEnabled reports whether a position's protocol matches one of the
// enabled-protocol entries, by exact match or case-insensitive substring.
// An empty list enables every protocol.
func ProtocolEnabled(protocol string, enabled []string) bool {
	if len(enabled) == 0 {
		return true
	}
	p := strings.ToLower(protocol)
	for _, e := range enabled {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if p == e || strings.Contains(p, e) {
			return true
		}
	}
	return false
}

// Aggregate sums normalized LP amounts per token across enabled protocols
// and short magnitudes per token from the hedge venue. Positions whose
// protocol is not enabled are excluded from calculation; the caller keeps
// the full position list for display.
//
// Accumulation is associative, so the result does not depend on input order
// and repeated calls over the same snapshot return identical maps.
func Aggregate(positions []models.Position, shorts []models.PerpPosition, enabled []string, norm *Normalizer) map[string]TokenBalance {
	balances := make(map[string]TokenBalance)

	get := func(symbol string) TokenBalance {
		if b, ok := balances[symbol]; ok {
			return b
		}
		return TokenBalance{Symbol: symbol}
	}

	for _, pos := range positions {
		if !ProtocolEnabled(pos.Protocol, enabled) {
			continue
		}
		symbol := pos.NormalizedSymbol
		if symbol == "" {
			symbol = norm.Symbol(pos.TokenSymbol)
		}

		b := get(symbol)
		switch pos.Role {
		case models.RoleSupply, models.RoleReward:
			b.LPAmount = b.LPAmount.Add(pos.Amount)
		case models.RoleBorrow:
			b.LPAmount = b.LPAmount.Sub(pos.Amount.Abs())
		default:
			// wallet/equity/position entries carry value, not LP exposure
			continue
		}
		balances[symbol] = b
	}

	for _, short := range shorts {
		if short.Size.Sign() >= 0 {
			// longs on the hedge venue are not part of the hedge
			continue
		}
		symbol := norm.Symbol(short.Symbol)
		b := get(symbol)
		b.ShortAmount = b.ShortAmount.Add(short.Size.Abs())
		balances[symbol] = b
	}

	return balances
}
