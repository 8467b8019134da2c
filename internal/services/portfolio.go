package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wnt/hedgemon/internal/analyzer"
	"github.com/wnt/hedgemon/internal/metrics"
	"github.com/wnt/hedgemon/internal/models"
	"github.com/wnt/hedgemon/internal/utils"
)

// PortfolioClient fetches aggregated DeFi positions from the Octav API.
type PortfolioClient struct {
	httpClient *utils.HTTPClient
	norm       *analyzer.Normalizer
}

// NewPortfolioClient creates a new client for the Octav portfolio API
func NewPortfolioClient(baseURL, apiKey string) *PortfolioClient {
	return &PortfolioClient{
		norm: analyzer.NewNormalizer(nil),
		httpClient: utils.NewHTTPClient(
			utils.WithBaseURL(baseURL),
			utils.WithTimeout(60*time.Second),
			utils.WithDefaultHeaders(map[string]string{
				"Content-Type":  "application/json",
				"Authorization": "Bearer " + apiKey,
			}),
		),
	}
}

// portfolioResponse mirrors the getPortfolio payload. Amounts and values
// arrive as strings and are parsed into decimals at this boundary.
type portfolioResponse struct {
	Address          string                     `json:"address"`
	NetWorth         string                     `json:"networth"`
	AssetByProtocols map[string]protocolSection `json:"assetByProtocols"`
}

type protocolSection struct {
	Name   string                  `json:"name"`
	Value  string                  `json:"value"`
	Chains map[string]chainSection `json:"chains"`
}

type chainSection struct {
	Name              string                      `json:"name"`
	Value             string                      `json:"value"`
	ProtocolPositions map[string]protocolPosition `json:"protocolPositions"`
}

type protocolPosition struct {
	Name     string  `json:"name"`
	Assets   []asset `json:"assets"`
	Supplied []asset `json:"suppliedAssets"`
	Rewards  []asset `json:"rewardAssets"`
	Borrowed []asset `json:"borrowedAssets"`
}

type asset struct {
	Symbol  string `json:"symbol"`
	Balance string `json:"balance"`
	Value   string `json:"value"`
	Price   string `json:"price"`
	Chain   string `json:"chainKey"`
}

// Portfolio is the parsed result of one getPortfolio call.
type Portfolio struct {
	Address          string
	NetWorthUSD      decimal.Decimal
	Positions        []models.Position
	ProtocolBalances []models.ProtocolBalance
	Prices           map[string]decimal.Decimal

	norm *analyzer.Normalizer
}

// GetPortfolio fetches and parses the portfolio for a wallet. Position roles
// follow the payload section the asset came from: suppliedAssets are supply,
// rewardAssets are reward, borrowedAssets are borrow and plain wallet assets
// keep the generic position role.
func (c *PortfolioClient) GetPortfolio(ctx context.Context, wallet string) (*Portfolio, error) {
	query := url.Values{}
	query.Set("addresses", wallet)

	response, err := c.httpClient.Get(ctx, "/v1/portfolio", query, nil)
	if err != nil {
		metrics.RecordAPIRequest("octav", "failed")
		return nil, fmt.Errorf("octav portfolio request: %w", err)
	}
	metrics.RecordAPIRequest("octav", "success")

	var payloads []portfolioResponse
	if err := response.DecodeJSON(&payloads); err != nil {
		return nil, fmt.Errorf("octav portfolio decode: %w", err)
	}
	if len(payloads) == 0 {
		return nil, fmt.Errorf("octav portfolio: empty response for %s", wallet)
	}

	return parsePortfolio(payloads[0], c.norm)
}

func parsePortfolio(payload portfolioResponse, norm *analyzer.Normalizer) (*Portfolio, error) {
	p := &Portfolio{
		Address: payload.Address,
		norm:    norm,
		Prices:  make(map[string]decimal.Decimal),
	}

	var err error
	if p.NetWorthUSD, err = parseAmount(payload.NetWorth); err != nil {
		return nil, fmt.Errorf("parse networth: %w", err)
	}

	for key, section := range payload.AssetByProtocols {
		value, err := parseAmount(section.Value)
		if err != nil {
			return nil, fmt.Errorf("parse protocol %s value: %w", key, err)
		}

		category := categorize(key)
		p.ProtocolBalances = append(p.ProtocolBalances, models.ProtocolBalance{
			ProtocolKey: key,
			Name:        section.Name,
			Category:    category,
			ValueUSD:    value,
		})

		// wallet holdings and hedge venue margin are not LP exposure;
		// they count toward allocation through the protocol balance only
		if category != models.CategoryLP {
			continue
		}

		for chainKey, chain := range section.Chains {
			for _, pos := range chain.ProtocolPositions {
				if err := p.appendAssets(key, chainKey, pos.Assets, models.RolePosition); err != nil {
					return nil, err
				}
				if err := p.appendAssets(key, chainKey, pos.Supplied, models.RoleSupply); err != nil {
					return nil, err
				}
				if err := p.appendAssets(key, chainKey, pos.Rewards, models.RoleReward); err != nil {
					return nil, err
				}
				if err := p.appendAssets(key, chainKey, pos.Borrowed, models.RoleBorrow); err != nil {
					return nil, err
				}
			}
		}
	}

	return p, nil
}

func (p *Portfolio) appendAssets(protocol, chain string, assets []asset, role models.PositionRole) error {
	for _, a := range assets {
		amount, err := parseAmount(a.Balance)
		if err != nil {
			return fmt.Errorf("parse %s %s balance: %w", protocol, a.Symbol, err)
		}
		value, err := parseAmount(a.Value)
		if err != nil {
			return fmt.Errorf("parse %s %s value: %w", protocol, a.Symbol, err)
		}

		pos, ok := p.norm.Normalize(analyzer.RawRecord{
			Protocol: protocol,
			Chain:    chain,
			Symbol:   a.Symbol,
			Amount:   amount,
			USDValue: value,
			Role:     role,
		})
		if !ok {
			continue
		}
		p.Positions = append(p.Positions, pos)

		// remember spot prices as a fallback for tokens the hedge venue
		// does not quote
		if price, err := parseAmount(a.Price); err == nil && price.Sign() > 0 {
			p.Prices[strings.ToUpper(a.Symbol)] = price
		}
	}
	return nil
}

// categorize buckets a protocol key for capital allocation purposes.
func categorize(protocolKey string) models.ProtocolCategory {
	switch strings.ToLower(protocolKey) {
	case "wallet":
		return models.CategoryWallet
	case "hyperliquid":
		return models.CategoryHedgeVenue
	default:
		return models.CategoryLP
	}
}

// parseAmount parses a numeric string, treating empty as zero.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
