package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/wnt/hedgemon/internal/analyzer"
	"github.com/wnt/hedgemon/internal/config"
	"github.com/wnt/hedgemon/internal/logger"
	"github.com/wnt/hedgemon/internal/services"
	"github.com/wnt/hedgemon/internal/syncer"
)

// analyze runs a single pass for one wallet and prints the report without
// touching Redis or the database.
func main() {
	var walletAddress string
	var envFile string
	var asJSON bool
	var execute bool
	var live bool
	flag.StringVar(&walletAddress, "wallet", "", "Wallet address to analyze (defaults to first configured wallet)")
	flag.StringVar(&envFile, "envFile", ".env", "Path to .env file")
	flag.BoolVar(&asJSON, "json", false, "Print the raw result as JSON")
	flag.BoolVar(&execute, "execute", false, "Submit the sized orders to the venue")
	flag.BoolVar(&live, "live", false, "Submit for real instead of dry run (requires -execute)")
	flag.Parse()

	if err := godotenv.Load(envFile); err != nil {
		log.Printf("No .env file found at %s, using environment variables", envFile)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if walletAddress == "" {
		walletAddress = cfg.WalletAddresses[0]
	}

	appLogger := logger.New(cfg.LogLevel)
	portfolio := services.NewPortfolioClient(cfg.OctavAPIURL, cfg.OctavAPIKey)
	venue := services.NewHyperliquidClient(cfg.HyperliquidAPIURL)
	s := syncer.New(cfg, portfolio, venue, nil, appLogger)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := s.Run(ctx, walletAddress)
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			log.Fatalf("Failed to encode result: %v", err)
		}
	} else {
		printReport(result)
	}

	if execute && len(result.Orders) > 0 {
		executor := services.NewExecutor(cfg.HyperliquidAPIURL, !live)
		submitOrders(ctx, executor, result.Orders)
	}
}

func submitOrders(ctx context.Context, executor *services.Executor, orders []analyzer.OrderSpec) {
	fmt.Println("\nSubmitting orders:")
	for _, spec := range orders {
		res, err := executor.Submit(ctx, spec)
		if err != nil {
			fmt.Printf("  %-4s %-8s FAILED: %v\n", spec.Side, spec.Symbol, err)
			continue
		}
		verdict := "rejected"
		if res.Success {
			verdict = fmt.Sprintf("filled %s @ %s", res.FilledSize, res.AvgPrice)
		}
		fmt.Printf("  %-4s %-8s %s (%s)\n", spec.Side, spec.Symbol, verdict, res.Message)
	}
}

func printReport(result *syncer.Result) {
	fmt.Printf("Wallet: %s\n", result.Wallet)
	fmt.Printf("Fetched at: %s\n\n", result.Snapshot.FetchedAt.Format(time.RFC3339))

	fmt.Println("Hedge status:")
	for _, st := range result.Hedge.Tokens {
		marker := ""
		if st.Forced {
			marker = " [forced]"
		}
		fmt.Printf("  %-8s %-13s lp=%s short=%s dev=%s%%",
			st.Symbol, st.Status, st.LPAmount, st.ShortAmount, st.DeviationPct.StringFixed(2))
		if st.Action != analyzer.ActionNone {
			fmt.Printf(" -> %s %s ($%s, %s)",
				st.Action, st.AdjustmentAmount, st.AdjustmentValueUSD.StringFixed(2), st.Priority)
		}
		if st.PriceMissing {
			fmt.Printf(" (no price)")
		}
		fmt.Println(marker)
	}

	if result.Hedge.CoverageDefined {
		fmt.Printf("\nTotal coverage: %s%% (LP $%s, shorts $%s)\n",
			result.Hedge.CoveragePct.StringFixed(2),
			result.Hedge.TotalLPValueUSD.StringFixed(2),
			result.Hedge.TotalShortValueUSD.StringFixed(2))
		if result.Hedge.Forced {
			fmt.Println("Coverage outside band: forced rebalance suggested")
		}
	}

	fmt.Println("\nCapital allocation:")
	if !result.Allocation.Defined {
		fmt.Println("  no capital found")
	} else {
		fmt.Printf("  total $%s  lp %s%%  hedge %s%%  wallet %s%%  risk=%s\n",
			result.Allocation.TotalCapitalUSD.StringFixed(2),
			result.Allocation.LPPct.StringFixed(2),
			result.Allocation.HedgePct.StringFixed(2),
			result.Allocation.WalletPct.StringFixed(2),
			result.Allocation.RiskLevel)
		if result.Allocation.SuggestedDirection != analyzer.TransferNone {
			fmt.Printf("  suggested transfer: $%s %s\n",
				result.Allocation.SuggestedTransferUSD.StringFixed(2),
				result.Allocation.SuggestedDirection)
		}
	}

	if len(result.Orders) > 0 {
		fmt.Println("\nSized orders:")
		for _, o := range result.Orders {
			fmt.Printf("  %-4s %-8s size=%s limit=%s reduceOnly=%t\n",
				o.Side, o.Symbol, o.Size, o.LimitPrice, o.ReduceOnly)
		}
	}
}
