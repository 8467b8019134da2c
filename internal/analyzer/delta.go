// Package analyzer contains the decision core: balance aggregation,
// delta-neutral hedge classification, capital allocation risk banding and
// order sizing. It performs no I/O and keeps no state between calls — each
// function is a pure computation over the snapshot it is handed.
//
// All monetary values use shopspring/decimal, never float64.
package analyzer

import (
	"sort"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// HedgeState classifies one token's hedge relative to its LP exposure.
type HedgeState string

const (
	StatusBalanced    HedgeState = "balanced"
	StatusUnderHedged HedgeState = "under_hedged"
	StatusOverHedged  HedgeState = "over_hedged"
)

// Action is the trade direction that moves a token back to delta neutral.
type Action string

const (
	ActionNone          Action = "none"
	ActionIncreaseShort Action = "increase_short"
	ActionDecreaseShort Action = "decrease_short"
)

// Priority ranks a suggestion by its share of total capital.
type Priority string

const (
	PriorityRequired Priority = "required"
	PriorityOptional Priority = "optional"
)

// HedgeStatus is the classification result for one token. It carries the
// inputs that produced it so an operator can audit every suggestion.
type HedgeStatus struct {
	Symbol             string
	Status             HedgeState
	Action             Action
	LPAmount           decimal.Decimal
	ShortAmount        decimal.Decimal
	DeviationPct       decimal.Decimal // (short - lp) / lp * 100, signed
	AdjustmentAmount   decimal.Decimal // magnitude of the hedge trade
	AdjustmentValueUSD decimal.Decimal
	Price              decimal.Decimal
	PriceMissing       bool
	Priority           Priority
	Forced             bool
}

// Report is the outcome of one full hedge analysis pass.
type Report struct {
	Tokens             []HedgeStatus
	TotalLPValueUSD    decimal.Decimal
	TotalShortValueUSD decimal.Decimal
	CoveragePct        decimal.Decimal // short USD / LP USD * 100
	CoverageDefined    bool
	Forced             bool
	MissingPrices      []string
}

// HedgeConfig holds the hedge analyzer thresholds, all in percent.
type HedgeConfig struct {
	TolerancePct   decimal.Decimal // deviation band for "balanced" (default 5)
	TriggerPct     decimal.Decimal // required-priority share of capital (default 10)
	CoverageMinPct decimal.Decimal // forced-rebalance band (default 98)
	CoverageMaxPct decimal.Decimal // forced-rebalance band (default 102)
}

// HedgeAnalyzer classifies per-token hedge state. Stateless; safe to share.
type HedgeAnalyzer struct {
	cfg HedgeConfig
}

func NewHedgeAnalyzer(cfg HedgeConfig) *HedgeAnalyzer {
	return &HedgeAnalyzer{cfg: cfg}
}

// Analyze classifies every token in balances. A missing price flags the
// token and leaves its adjustment value at zero; it never fails the pass or
// other tokens. When overall short coverage leaves the configured band,
// every token is re-evaluated with zero tolerance and its adjustment value
// and priority recomputed.
func (a *HedgeAnalyzer) Analyze(balances map[string]TokenBalance, prices map[string]decimal.Decimal, totalCapital decimal.Decimal) Report {
	symbols := make([]string, 0, len(balances))
	for s := range balances {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	report := Report{Tokens: make([]HedgeStatus, 0, len(symbols))}

	for _, symbol := range symbols {
		b := balances[symbol]
		st := classify(b, a.cfg.TolerancePct)
		a.applyPrice(&st, prices, totalCapital)

		if !st.PriceMissing {
			report.TotalLPValueUSD = report.TotalLPValueUSD.Add(b.LPAmount.Mul(st.Price))
			report.TotalShortValueUSD = report.TotalShortValueUSD.Add(b.ShortAmount.Mul(st.Price))
		} else {
			report.MissingPrices = append(report.MissingPrices, symbol)
		}
		report.Tokens = append(report.Tokens, st)
	}

	if report.TotalLPValueUSD.Sign() > 0 {
		report.CoverageDefined = true
		report.CoveragePct = report.TotalShortValueUSD.Div(report.TotalLPValueUSD).Mul(hundred)
		outOfBand := report.CoveragePct.Cmp(a.cfg.CoverageMinPct) < 0 ||
			report.CoveragePct.Cmp(a.cfg.CoverageMaxPct) > 0
		if outOfBand {
			report.Forced = true
			for i, st := range report.Tokens {
				forced := classify(balances[st.Symbol], decimal.Zero)
				a.applyPrice(&forced, prices, totalCapital)
				forced.Forced = forced.Status != StatusBalanced
				report.Tokens[i] = forced
			}
		}
	}

	return report
}

// classify derives hedge state from amounts alone. The tolerance boundary
// is inclusive: a deviation exactly equal to tolerance is balanced.
func classify(b TokenBalance, tolerancePct decimal.Decimal) HedgeStatus {
	st := HedgeStatus{
		Symbol:      b.Symbol,
		Status:      StatusBalanced,
		Action:      ActionNone,
		Priority:    PriorityOptional,
		LPAmount:    b.LPAmount,
		ShortAmount: b.ShortAmount,
	}

	if b.LPAmount.IsZero() {
		if b.ShortAmount.IsZero() {
			return st
		}
		// shorts with no LP exposure to offset
		st.DeviationPct = hundred
		st.Status = StatusOverHedged
		st.Action = ActionDecreaseShort
		st.AdjustmentAmount = b.ShortAmount
		return st
	}

	// deviation relative to LP exposure; |lp| keeps the sign meaningful
	// when net LP exposure is negative (borrow exceeding supply)
	st.DeviationPct = b.ShortAmount.Sub(b.LPAmount).Div(b.LPAmount.Abs()).Mul(hundred)
	if st.DeviationPct.Abs().Cmp(tolerancePct) <= 0 {
		return st
	}

	diff := b.LPAmount.Sub(b.ShortAmount)
	if diff.Sign() > 0 {
		st.Status = StatusUnderHedged
		st.Action = ActionIncreaseShort
		st.AdjustmentAmount = diff
	} else {
		st.Status = StatusOverHedged
		st.Action = ActionDecreaseShort
		st.AdjustmentAmount = diff.Neg()
	}
	return st
}

// applyPrice fills in the USD adjustment value and priority. A missing or
// zero price flags the token instead of silently valuing it at $0.
func (a *HedgeAnalyzer) applyPrice(st *HedgeStatus, prices map[string]decimal.Decimal, totalCapital decimal.Decimal) {
	price, ok := prices[st.Symbol]
	if !ok || price.IsZero() {
		st.PriceMissing = true
		return
	}
	st.Price = price
	st.AdjustmentValueUSD = st.AdjustmentAmount.Mul(price)

	if st.Status != StatusBalanced && totalCapital.Sign() > 0 {
		threshold := totalCapital.Mul(a.cfg.TriggerPct).Div(hundred)
		if st.AdjustmentValueUSD.Cmp(threshold) >= 0 {
			st.Priority = PriorityRequired
		}
	}
}
