// Package syncer orchestrates one analysis pass per wallet: fetch upstream
// state, run the decision core and persist the outcome.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/wnt/hedgemon/internal/analyzer"
	"github.com/wnt/hedgemon/internal/config"
	"github.com/wnt/hedgemon/internal/logger"
	"github.com/wnt/hedgemon/internal/metrics"
	"github.com/wnt/hedgemon/internal/models"
	"github.com/wnt/hedgemon/internal/quota"
	"github.com/wnt/hedgemon/internal/services"
	"github.com/wnt/hedgemon/internal/utils"
)

// PortfolioAPI is the portfolio side of a pass.
type PortfolioAPI interface {
	GetPortfolio(ctx context.Context, wallet string) (*services.Portfolio, error)
}

// VenueAPI is the hedge venue side of a pass.
type VenueAPI interface {
	GetAccountState(ctx context.Context, wallet string) (*services.AccountState, error)
	GetMids(ctx context.Context) (map[string]decimal.Decimal, error)
	GetMeta(ctx context.Context) (map[string]models.AssetMeta, error)
}

// Result is everything one pass produced.
type Result struct {
	Wallet     string
	Snapshot   *models.Snapshot
	Hedge      analyzer.Report
	Allocation analyzer.AllocationStatus
	Orders     []analyzer.OrderSpec
}

// Syncer runs analysis passes. Collaborators are injected so passes can run
// against stubs in tests and without a database in one-shot mode.
type Syncer struct {
	portfolio PortfolioAPI
	venue     VenueAPI
	db        *gorm.DB // nil disables persistence
	quota     *quota.Calculator

	hedge      *analyzer.HedgeAnalyzer
	allocation *analyzer.AllocationEngine
	sizer      analyzer.SizerConfig
	norm       *analyzer.Normalizer
	enabled    []string

	consistencyAttempts int
	consistencyDelay    time.Duration

	logger zerolog.Logger
}

// New builds a syncer from configuration. db may be nil for one-shot runs.
func New(cfg config.Config, portfolio PortfolioAPI, venue VenueAPI, db *gorm.DB, log zerolog.Logger) *Syncer {
	s := &Syncer{
		portfolio:           portfolio,
		venue:               venue,
		db:                  db,
		hedge:               analyzer.NewHedgeAnalyzer(cfg.HedgeConfig()),
		allocation:          analyzer.NewAllocationEngine(cfg.AllocationBand()),
		sizer:               cfg.SizerConfig(),
		norm:                analyzer.NewNormalizer(nil),
		enabled:             cfg.EnabledProtocols,
		consistencyAttempts: 3,
		consistencyDelay:    2 * time.Second,
		logger:              log.With().Str("component", "syncer").Logger(),
	}
	if db != nil {
		s.quota = quota.NewCalculator(db, log)
	}
	return s
}

// Run executes one full pass for a wallet.
func (s *Syncer) Run(ctx context.Context, wallet string) (*Result, error) {
	start := time.Now()
	log := logger.WithWallet(s.logger, wallet)

	snapshot, err := s.BuildSnapshot(ctx, wallet)
	if err != nil {
		return nil, err
	}

	result := s.Analyze(snapshot)

	if s.db != nil {
		if err := s.persist(result); err != nil {
			return nil, err
		}
	}

	metrics.RecordWalletSync(time.Since(start).Seconds())
	log.Info().
		Int("tokens", len(result.Hedge.Tokens)).
		Int("orders", len(result.Orders)).
		Bool("forced", result.Hedge.Forced).
		Str("risk_level", string(result.Allocation.RiskLevel)).
		Dur("elapsed", time.Since(start)).
		Msg("Completed analysis pass")

	return result, nil
}

// BuildSnapshot fetches and composes all upstream state for one pass.
func (s *Syncer) BuildSnapshot(ctx context.Context, wallet string) (*models.Snapshot, error) {
	portfolio, err := s.fetchConsistent(ctx, wallet)
	if err != nil {
		return nil, err
	}

	state, err := s.venue.GetAccountState(ctx, wallet)
	if err != nil {
		return nil, err
	}
	mids, err := s.venue.GetMids(ctx)
	if err != nil {
		return nil, err
	}
	meta, err := s.venue.GetMeta(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := &models.Snapshot{
		Wallet:           wallet,
		FetchedAt:        time.Now().UTC(),
		Positions:        portfolio.Positions,
		ProtocolBalances: portfolio.ProtocolBalances,
		Shorts: utils.Filter(state.Positions, func(p models.PerpPosition) bool {
			return p.Size.Sign() < 0
		}),
		Prices: make(map[string]decimal.Decimal),
		Meta:   meta,
	}

	// the hedge venue counts at its reported account equity, which includes
	// open pnl and idle margin the portfolio API cannot see
	replaced := false
	for i, pb := range snapshot.ProtocolBalances {
		if pb.Category == models.CategoryHedgeVenue {
			snapshot.ProtocolBalances[i].ValueUSD = state.AccountValueUSD
			replaced = true
		}
	}
	if !replaced && state.AccountValueUSD.Sign() > 0 {
		snapshot.ProtocolBalances = append(snapshot.ProtocolBalances, models.ProtocolBalance{
			ProtocolKey: "hyperliquid",
			Name:        "Hyperliquid",
			Category:    models.CategoryHedgeVenue,
			ValueUSD:    state.AccountValueUSD,
		})
	}

	// venue mids keyed by venue symbol, spot prices as fallback only
	for symbol, price := range mids {
		snapshot.Prices[symbol] = price
	}
	for raw, price := range portfolio.Prices {
		symbol := s.norm.Symbol(raw)
		if _, ok := snapshot.Prices[symbol]; !ok {
			snapshot.Prices[symbol] = price
		}
	}

	return snapshot, nil
}

// fetchConsistent polls the portfolio API until two consecutive fetches
// report the same net worth, so a pass never runs against a half-indexed
// portfolio. After the attempt budget the last fetch is used as is.
func (s *Syncer) fetchConsistent(ctx context.Context, wallet string) (*services.Portfolio, error) {
	last, err := s.portfolio.GetPortfolio(ctx, wallet)
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt < s.consistencyAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.consistencyDelay):
		}

		next, err := s.portfolio.GetPortfolio(ctx, wallet)
		if err != nil {
			return nil, err
		}
		if next.NetWorthUSD.Equal(last.NetWorthUSD) {
			return next, nil
		}
		last = next
	}

	s.logger.Warn().
		Str("wallet", wallet).
		Int("attempts", s.consistencyAttempts).
		Msg("Portfolio never stabilized, proceeding with last fetch")
	return last, nil
}

// Analyze runs the decision core over a snapshot.
func (s *Syncer) Analyze(snapshot *models.Snapshot) *Result {
	balances := analyzer.Aggregate(snapshot.Positions, snapshot.Shorts, s.enabled, s.norm)

	allocation := s.allocation.Analyze(snapshot.ProtocolBalances)
	report := s.hedge.Analyze(balances, snapshot.Prices, allocation.TotalCapitalUSD)

	if report.Forced {
		metrics.ForcedRebalances.Inc()
	}
	for range report.MissingPrices {
		metrics.MissingPrices.Inc()
	}

	result := &Result{
		Wallet:     snapshot.Wallet,
		Snapshot:   snapshot,
		Hedge:      report,
		Allocation: allocation,
	}

	sizer := analyzer.NewOrderSizer(s.sizer, snapshot.Meta)
	for _, st := range report.Tokens {
		metrics.RecordSuggestion(string(st.Status), string(st.Priority))
		if st.Action == analyzer.ActionNone {
			continue
		}
		if st.PriceMissing {
			metrics.RecordOrderSized("no_price")
			continue
		}

		side := analyzer.SideSell
		if st.Action == analyzer.ActionDecreaseShort {
			side = analyzer.SideBuy
		}

		tokenLogger := logger.WithToken(s.logger, st.Symbol)
		spec, err := sizer.SizeOrder(st.Symbol, st.AdjustmentValueUSD, st.Price, side)
		switch {
		case err == nil:
			metrics.RecordOrderSized("ok")
			result.Orders = append(result.Orders, spec)
		case errors.Is(err, analyzer.ErrOrderTooSmall):
			metrics.RecordOrderSized("too_small")
			tokenLogger.Debug().Err(err).Msg("Adjustment below minimum order notional")
		case errors.Is(err, analyzer.ErrUnknownInstrument):
			metrics.RecordOrderSized("unknown_instrument")
			tokenLogger.Warn().Err(err).Msg("No precision metadata for instrument")
		default:
			metrics.RecordOrderSized("failed")
			tokenLogger.Warn().Err(err).Msg("Order sizing failed")
		}
	}

	return result
}

// persist stores the pass outcome and refreshes quota accounting.
func (s *Syncer) persist(result *Result) error {
	wallet, err := s.upsertWallet(result.Wallet)
	if err != nil {
		return err
	}

	record := models.SyncRecord{
		WalletID:        wallet.ID,
		SyncedAt:        result.Snapshot.FetchedAt,
		TotalCapitalUSD: result.Allocation.TotalCapitalUSD.InexactFloat64(),
		LPValueUSD:      result.Allocation.LPValueUSD.InexactFloat64(),
		HedgeValueUSD:   result.Allocation.HedgeValueUSD.InexactFloat64(),
		WalletValueUSD:  result.Allocation.WalletValueUSD.InexactFloat64(),
		CoveragePct:     result.Hedge.CoveragePct.InexactFloat64(),
		RiskLevel:       string(result.Allocation.RiskLevel),
		ForcedRebalance: result.Hedge.Forced,
	}
	for _, st := range result.Hedge.Tokens {
		record.Suggestions = append(record.Suggestions, models.SuggestionRecord{
			Symbol:             st.Symbol,
			Status:             string(st.Status),
			Priority:           string(st.Priority),
			LPAmount:           st.LPAmount.InexactFloat64(),
			ShortAmount:        st.ShortAmount.InexactFloat64(),
			DeviationPct:       st.DeviationPct.InexactFloat64(),
			AdjustmentAmount:   st.AdjustmentAmount.InexactFloat64(),
			AdjustmentValueUSD: st.AdjustmentValueUSD.InexactFloat64(),
			PriceUSD:           st.Price.InexactFloat64(),
			PriceMissing:       st.PriceMissing,
		})
	}

	if err := s.db.Create(&record).Error; err != nil {
		metrics.RecordDatabaseOperation("insert", "failed")
		return fmt.Errorf("save sync record: %w", err)
	}
	metrics.RecordDatabaseOperation("insert", "success")

	if err := s.db.Model(wallet).Updates(map[string]interface{}{
		"last_synced": result.Snapshot.FetchedAt,
		"sync_count":  gorm.Expr("sync_count + 1"),
	}).Error; err != nil {
		metrics.RecordDatabaseOperation("update", "failed")
		return fmt.Errorf("update wallet: %w", err)
	}
	metrics.RecordDatabaseOperation("update", "success")

	if s.quota != nil {
		if _, err := s.quota.Recalculate(wallet.ID); err != nil {
			// quota history is derived data, a failed rebuild must not
			// lose the pass itself
			s.logger.Warn().Err(err).Str("wallet", result.Wallet).Msg("Quota recalculation failed")
		}
	}

	return nil
}

// RecordExecution stores the outcome of a submitted order.
func (s *Syncer) RecordExecution(walletAddr string, spec analyzer.OrderSpec, res *services.ExecutionResult) error {
	if s.db == nil {
		return nil
	}
	wallet, err := s.upsertWallet(walletAddr)
	if err != nil {
		return err
	}

	record := models.ExecutionRecord{
		WalletID:      wallet.ID,
		ClientOrderID: res.ClientOrderID,
		Symbol:        spec.Symbol,
		Side:          string(spec.Side),
		Size:          spec.Size.InexactFloat64(),
		LimitPrice:    spec.LimitPrice.InexactFloat64(),
		NotionalUSD:   spec.Size.Mul(spec.LimitPrice).InexactFloat64(),
		ReduceOnly:    spec.ReduceOnly,
		Success:       res.Success,
		Message:       res.Message,
		FilledSize:    res.FilledSize.InexactFloat64(),
		AvgPrice:      res.AvgPrice.InexactFloat64(),
		SubmittedAt:   res.SubmittedAt,
	}
	if err := s.db.Create(&record).Error; err != nil {
		metrics.RecordDatabaseOperation("insert", "failed")
		return fmt.Errorf("save execution record: %w", err)
	}
	metrics.RecordDatabaseOperation("insert", "success")
	return nil
}

func (s *Syncer) upsertWallet(addr string) (*models.Wallet, error) {
	addr = strings.ToLower(addr)
	var wallet models.Wallet
	err := s.db.Where("address = ?", addr).First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		wallet = models.Wallet{Address: addr}
		if err := s.db.Create(&wallet).Error; err != nil {
			return nil, fmt.Errorf("create wallet: %w", err)
		}
		return &wallet, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load wallet: %w", err)
	}
	return &wallet, nil
}
