// Package quota implements unit accounting for strategy performance. The
// strategy's net worth is divided into quotas; deposits mint quotas at the
// current quota value and withdrawals burn them, so the quota value series
// reflects trading performance with capital flows factored out.
package quota

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/wnt/hedgemon/internal/models"
)

var hundred = decimal.NewFromInt(100)

// ValuePoint is one observation of total net worth.
type ValuePoint struct {
	At          time.Time
	NetWorthUSD decimal.Decimal
}

// Flow is a capital movement. Deposits are positive, withdrawals negative.
type Flow struct {
	At        time.Time
	AmountUSD decimal.Decimal
}

// Point is one computed entry of the quota series.
type Point struct {
	At          time.Time
	QuotaValue  decimal.Decimal
	TotalQuotas decimal.Decimal
	NetWorthUSD decimal.Decimal
}

// BuildSeries computes the quota value series from net worth observations
// and capital flows. The first observation mints the initial quotas at
// initialQuotaValue; each flow mints or burns quotas at the quota value of
// the preceding observation. Observations with no quotas outstanding are
// skipped.
func BuildSeries(points []ValuePoint, flows []Flow, initialQuotaValue decimal.Decimal) []Point {
	if len(points) == 0 || initialQuotaValue.Sign() <= 0 {
		return nil
	}

	sorted := make([]ValuePoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].At.Before(sorted[j].At) })

	pending := make([]Flow, len(flows))
	copy(pending, flows)
	sort.Slice(pending, func(i, j int) bool { return pending[i].At.Before(pending[j].At) })

	totalQuotas := sorted[0].NetWorthUSD.Div(initialQuotaValue)
	quotaValue := initialQuotaValue
	series := make([]Point, 0, len(sorted))

	for i, vp := range sorted {
		if i > 0 {
			// apply flows that landed since the previous observation at
			// the last known quota value
			for len(pending) > 0 && !pending[0].At.After(vp.At) {
				if quotaValue.Sign() > 0 {
					totalQuotas = totalQuotas.Add(pending[0].AmountUSD.Div(quotaValue))
				}
				pending = pending[1:]
			}
		} else {
			// flows before the first observation are already part of it
			for len(pending) > 0 && !pending[0].At.After(vp.At) {
				pending = pending[1:]
			}
		}

		if totalQuotas.Sign() <= 0 {
			continue
		}
		quotaValue = vp.NetWorthUSD.Div(totalQuotas)

		series = append(series, Point{
			At:          vp.At,
			QuotaValue:  quotaValue,
			TotalQuotas: totalQuotas,
			NetWorthUSD: vp.NetWorthUSD,
		})
	}

	return series
}

// PerformancePct is the percentage change of quota value across the series.
func PerformancePct(series []Point) decimal.Decimal {
	if len(series) < 2 {
		return decimal.Zero
	}
	first := series[0].QuotaValue
	if first.Sign() <= 0 {
		return decimal.Zero
	}
	return series[len(series)-1].QuotaValue.Sub(first).Div(first).Mul(hundred)
}

// Calculator loads sync history and capital transactions for a wallet and
// materializes the quota series.
type Calculator struct {
	db                *gorm.DB
	logger            zerolog.Logger
	initialQuotaValue decimal.Decimal
}

func NewCalculator(db *gorm.DB, logger zerolog.Logger) *Calculator {
	return &Calculator{
		db:                db,
		logger:            logger.With().Str("component", "quota").Logger(),
		initialQuotaValue: decimal.NewFromInt(100),
	}
}

// Recalculate rebuilds and persists the quota series for a wallet.
func (c *Calculator) Recalculate(walletID uint) ([]Point, error) {
	var syncs []models.SyncRecord
	if err := c.db.Where("wallet_id = ?", walletID).Order("synced_at asc").Find(&syncs).Error; err != nil {
		return nil, fmt.Errorf("load sync history: %w", err)
	}

	var txs []models.CapitalTransaction
	if err := c.db.Where("wallet_id = ?", walletID).Order("occurred_at asc").Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("load capital transactions: %w", err)
	}

	points := make([]ValuePoint, 0, len(syncs))
	for _, s := range syncs {
		points = append(points, ValuePoint{
			At:          s.SyncedAt,
			NetWorthUSD: decimal.NewFromFloat(s.TotalCapitalUSD),
		})
	}

	flows := make([]Flow, 0, len(txs))
	for _, tx := range txs {
		amount := decimal.NewFromFloat(tx.AmountUSD)
		if tx.Type == "withdrawal" {
			amount = amount.Neg()
		}
		flows = append(flows, Flow{At: tx.OccurredAt, AmountUSD: amount})
	}

	series := BuildSeries(points, flows, c.initialQuotaValue)

	if err := c.persist(walletID, series); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Uint("wallet_id", walletID).
		Int("points", len(series)).
		Str("performance_pct", PerformancePct(series).StringFixed(2)).
		Msg("Recalculated quota series")

	return series, nil
}

func (c *Calculator) persist(walletID uint, series []Point) error {
	return c.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("wallet_id = ?", walletID).Delete(&models.QuotaPoint{}).Error; err != nil {
			return fmt.Errorf("clear quota points: %w", err)
		}
		for _, p := range series {
			record := models.QuotaPoint{
				WalletID:    walletID,
				Timestamp:   p.At,
				QuotaValue:  p.QuotaValue.InexactFloat64(),
				TotalQuotas: p.TotalQuotas.InexactFloat64(),
				NetWorthUSD: p.NetWorthUSD.InexactFloat64(),
			}
			if err := tx.Create(&record).Error; err != nil {
				return fmt.Errorf("save quota point: %w", err)
			}
		}
		return nil
	})
}
