package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wnt/hedgemon/internal/metrics"
	"github.com/wnt/hedgemon/internal/models"
	"github.com/wnt/hedgemon/internal/utils"
)

// HyperliquidClient reads account state, mid prices and instrument metadata
// from the Hyperliquid info endpoint.
type HyperliquidClient struct {
	httpClient *utils.HTTPClient
}

// NewHyperliquidClient creates a new client for the Hyperliquid API
func NewHyperliquidClient(baseURL string) *HyperliquidClient {
	return &HyperliquidClient{
		httpClient: utils.NewHTTPClient(
			utils.WithBaseURL(baseURL),
			utils.WithTimeout(30*time.Second),
		),
	}
}

type infoRequest struct {
	Type string `json:"type"`
	User string `json:"user,omitempty"`
}

type clearinghouseState struct {
	MarginSummary struct {
		AccountValue string `json:"accountValue"`
		TotalNtlPos  string `json:"totalNtlPos"`
	} `json:"marginSummary"`
	AssetPositions []struct {
		Position struct {
			Coin          string `json:"coin"`
			Szi           string `json:"szi"`
			EntryPx       string `json:"entryPx"`
			PositionValue string `json:"positionValue"`
			UnrealizedPnl string `json:"unrealizedPnl"`
			MarginUsed    string `json:"marginUsed"`
			CumFunding    struct {
				AllTime string `json:"allTime"`
			} `json:"cumFunding"`
			Leverage struct {
				Type  string `json:"type"`
				Value int    `json:"value"`
			} `json:"leverage"`
		} `json:"position"`
	} `json:"assetPositions"`
}

type metaResponse struct {
	Universe []struct {
		Name        string `json:"name"`
		SzDecimals  int32  `json:"szDecimals"`
		MaxLeverage int    `json:"maxLeverage"`
	} `json:"universe"`
}

// AccountState is the parsed clearinghouse state for one wallet.
type AccountState struct {
	AccountValueUSD decimal.Decimal
	Positions       []models.PerpPosition
}

// GetAccountState fetches open perp positions and the account equity. The
// equity is what capital allocation counts for the hedge venue, not the sum
// of position values.
func (c *HyperliquidClient) GetAccountState(ctx context.Context, wallet string) (*AccountState, error) {
	response, err := c.httpClient.Post(ctx, "/info", infoRequest{Type: "clearinghouseState", User: wallet}, nil)
	if err != nil {
		metrics.RecordAPIRequest("hyperliquid", "failed")
		return nil, fmt.Errorf("hyperliquid clearinghouse request: %w", err)
	}
	metrics.RecordAPIRequest("hyperliquid", "success")

	var payload clearinghouseState
	if err := response.DecodeJSON(&payload); err != nil {
		return nil, fmt.Errorf("hyperliquid clearinghouse decode: %w", err)
	}

	state := &AccountState{}
	if state.AccountValueUSD, err = parseAmount(payload.MarginSummary.AccountValue); err != nil {
		return nil, fmt.Errorf("parse account value: %w", err)
	}

	for _, ap := range payload.AssetPositions {
		pos := ap.Position

		size, err := parseAmount(pos.Szi)
		if err != nil {
			return nil, fmt.Errorf("parse %s size: %w", pos.Coin, err)
		}
		if size.IsZero() {
			continue
		}

		entry, err := parseAmount(pos.EntryPx)
		if err != nil {
			return nil, fmt.Errorf("parse %s entry price: %w", pos.Coin, err)
		}
		value, err := parseAmount(pos.PositionValue)
		if err != nil {
			return nil, fmt.Errorf("parse %s position value: %w", pos.Coin, err)
		}
		pnl, err := parseAmount(pos.UnrealizedPnl)
		if err != nil {
			return nil, fmt.Errorf("parse %s pnl: %w", pos.Coin, err)
		}
		funding, err := parseAmount(pos.CumFunding.AllTime)
		if err != nil {
			return nil, fmt.Errorf("parse %s funding: %w", pos.Coin, err)
		}
		margin, err := parseAmount(pos.MarginUsed)
		if err != nil {
			return nil, fmt.Errorf("parse %s margin: %w", pos.Coin, err)
		}

		state.Positions = append(state.Positions, models.PerpPosition{
			Symbol:         strings.ToUpper(pos.Coin),
			Size:           size,
			EntryPrice:     entry,
			PositionValue:  value,
			OpenPnL:        pnl,
			FundingAllTime: funding,
			MarginUsed:     margin,
			Leverage:       fmt.Sprintf("%dx %s", pos.Leverage.Value, pos.Leverage.Type),
		})
	}

	return state, nil
}

// GetMids fetches current mid prices for every listed instrument.
func (c *HyperliquidClient) GetMids(ctx context.Context) (map[string]decimal.Decimal, error) {
	response, err := c.httpClient.Post(ctx, "/info", infoRequest{Type: "allMids"}, nil)
	if err != nil {
		metrics.RecordAPIRequest("hyperliquid", "failed")
		return nil, fmt.Errorf("hyperliquid allMids request: %w", err)
	}
	metrics.RecordAPIRequest("hyperliquid", "success")

	var raw map[string]string
	if err := response.DecodeJSON(&raw); err != nil {
		return nil, fmt.Errorf("hyperliquid allMids decode: %w", err)
	}

	mids := make(map[string]decimal.Decimal, len(raw))
	for coin, px := range raw {
		// internal index entries like "@142" are not tradable symbols
		if strings.HasPrefix(coin, "@") {
			continue
		}
		price, err := parseAmount(px)
		if err != nil {
			return nil, fmt.Errorf("parse %s mid: %w", coin, err)
		}
		mids[strings.ToUpper(coin)] = price
	}

	return mids, nil
}

// GetMeta fetches the instrument precision table.
func (c *HyperliquidClient) GetMeta(ctx context.Context) (map[string]models.AssetMeta, error) {
	response, err := c.httpClient.Post(ctx, "/info", infoRequest{Type: "meta"}, nil)
	if err != nil {
		metrics.RecordAPIRequest("hyperliquid", "failed")
		return nil, fmt.Errorf("hyperliquid meta request: %w", err)
	}
	metrics.RecordAPIRequest("hyperliquid", "success")

	var payload metaResponse
	if err := response.DecodeJSON(&payload); err != nil {
		return nil, fmt.Errorf("hyperliquid meta decode: %w", err)
	}

	meta := make(map[string]models.AssetMeta, len(payload.Universe))
	for _, u := range payload.Universe {
		symbol := strings.ToUpper(u.Name)
		meta[symbol] = models.AssetMeta{
			Symbol:       symbol,
			SizeDecimals: u.SzDecimals,
			MaxLeverage:  u.MaxLeverage,
		}
	}

	return meta, nil
}
