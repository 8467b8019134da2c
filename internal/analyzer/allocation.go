package analyzer

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/wnt/hedgemon/internal/models"
)

// RiskLevel bands the LP share of total capital.
type RiskLevel string

const (
	RiskIdeal               RiskLevel = "ideal"
	RiskHighLiquidation     RiskLevel = "high_liquidation_risk"
	RiskMediumProfitability RiskLevel = "medium_profitability_risk"
)

// TransferDirection is the side a suggested capital transfer moves toward.
type TransferDirection string

const (
	TransferLPToHedge TransferDirection = "lp_to_hedge"
	TransferHedgeToLP TransferDirection = "hedge_to_lp"
	TransferNone      TransferDirection = "none"
)

// AllocationBand is the acceptable LP percentage range with its center.
type AllocationBand struct {
	MinIdealPct decimal.Decimal // default 70
	TargetPct   decimal.Decimal // default 80, center of band
	MaxIdealPct decimal.Decimal // default 90
}

// Validate enforces 0 < min < target < max < 100. Violations are rejected
// here, at configuration time, never during analysis.
func (b AllocationBand) Validate() error {
	if b.MinIdealPct.Sign() <= 0 {
		return fmt.Errorf("allocation band: min ideal must be positive, got %s", b.MinIdealPct)
	}
	if b.TargetPct.Cmp(b.MinIdealPct) <= 0 {
		return fmt.Errorf("allocation band: target %s must exceed min ideal %s", b.TargetPct, b.MinIdealPct)
	}
	if b.MaxIdealPct.Cmp(b.TargetPct) <= 0 {
		return fmt.Errorf("allocation band: max ideal %s must exceed target %s", b.MaxIdealPct, b.TargetPct)
	}
	if b.MaxIdealPct.Cmp(hundred) >= 0 {
		return fmt.Errorf("allocation band: max ideal %s must be below 100", b.MaxIdealPct)
	}
	return nil
}

// AllocationStatus is the capital allocation verdict for one snapshot.
// Defined is false when there was no capital to analyze.
type AllocationStatus struct {
	Defined bool

	TotalCapitalUSD decimal.Decimal
	LPValueUSD      decimal.Decimal
	HedgeValueUSD   decimal.Decimal
	WalletValueUSD  decimal.Decimal

	LPPct     decimal.Decimal
	HedgePct  decimal.Decimal
	WalletPct decimal.Decimal

	RiskLevel            RiskLevel
	SuggestedTransferUSD decimal.Decimal
	SuggestedDirection   TransferDirection
}

// AllocationEngine classifies the split of capital between LP protocols and
// the hedge venue's margin account.
type AllocationEngine struct {
	band AllocationBand
}

func NewAllocationEngine(band AllocationBand) *AllocationEngine {
	return &AllocationEngine{band: band}
}

// Analyze sums protocol-level pre-aggregated values by category and bands
// the LP share. The hedge venue entry is its reported account equity; it is
// never reconstructed by summing position lines. Zero total capital yields
// an explicit undefined status, never a division by zero.
//
// A suggested transfer is always sized against the band center, so a single
// transfer lands at the target instead of just across the threshold.
func (e *AllocationEngine) Analyze(balances []models.ProtocolBalance) AllocationStatus {
	var status AllocationStatus
	status.SuggestedDirection = TransferNone
	status.RiskLevel = RiskIdeal

	for _, pb := range balances {
		switch pb.Category {
		case models.CategoryHedgeVenue:
			status.HedgeValueUSD = status.HedgeValueUSD.Add(pb.ValueUSD)
		case models.CategoryWallet:
			status.WalletValueUSD = status.WalletValueUSD.Add(pb.ValueUSD)
		default:
			status.LPValueUSD = status.LPValueUSD.Add(pb.ValueUSD)
		}
	}
	status.TotalCapitalUSD = status.LPValueUSD.Add(status.HedgeValueUSD).Add(status.WalletValueUSD)

	if status.TotalCapitalUSD.Sign() <= 0 {
		return status
	}
	status.Defined = true

	status.LPPct = status.LPValueUSD.Div(status.TotalCapitalUSD).Mul(hundred)
	status.HedgePct = status.HedgeValueUSD.Div(status.TotalCapitalUSD).Mul(hundred)
	status.WalletPct = status.WalletValueUSD.Div(status.TotalCapitalUSD).Mul(hundred)

	switch {
	case status.LPPct.Cmp(e.band.MaxIdealPct) > 0:
		// margin on the hedge venue too thin; shorts can be liquidated
		// on fast adverse moves
		status.RiskLevel = RiskHighLiquidation
		excessPct := status.LPPct.Sub(e.band.TargetPct)
		status.SuggestedTransferUSD = excessPct.Div(hundred).Mul(status.TotalCapitalUSD)
		status.SuggestedDirection = TransferLPToHedge
	case status.LPPct.Cmp(e.band.MinIdealPct) < 0:
		// capital underutilized in LPs, foregone yield
		status.RiskLevel = RiskMediumProfitability
		shortagePct := e.band.TargetPct.Sub(status.LPPct)
		status.SuggestedTransferUSD = shortagePct.Div(hundred).Mul(status.TotalCapitalUSD)
		status.SuggestedDirection = TransferHedgeToLP
	}

	return status
}
