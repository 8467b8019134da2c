package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wnt/hedgemon/internal/analyzer"
	"github.com/wnt/hedgemon/internal/models"
)

const portfolioFixture = `[{
	"address": "0xabc",
	"networth": "10000.50",
	"assetByProtocols": {
		"wallet": {
			"name": "Wallet",
			"value": "500",
			"chains": {
				"arbitrum": {
					"name": "Arbitrum",
					"value": "500",
					"protocolPositions": {
						"WALLET": {
							"name": "Wallet",
							"assets": [
								{"symbol": "USDC", "balance": "500", "value": "500", "price": "1", "chainKey": "arbitrum"}
							]
						}
					}
				}
			}
		},
		"uniswap-v3": {
			"name": "Uniswap V3",
			"value": "8000",
			"chains": {
				"arbitrum": {
					"name": "Arbitrum",
					"value": "8000",
					"protocolPositions": {
						"LIQUIDITYPOOL": {
							"name": "Liquidity Pool",
							"suppliedAssets": [
								{"symbol": "WETH", "balance": "2.5", "value": "7500", "price": "3000", "chainKey": "arbitrum"},
								{"symbol": "USDC", "balance": "450", "value": "450", "price": "1", "chainKey": "arbitrum"}
							],
							"rewardAssets": [
								{"symbol": "ARB", "balance": "100", "value": "50", "price": "0.5", "chainKey": "arbitrum"}
							],
							"borrowedAssets": [
								{"symbol": "WETH", "balance": "0.1", "value": "300", "price": "3000", "chainKey": "arbitrum"}
							]
						}
					}
				}
			}
		},
		"hyperliquid": {
			"name": "Hyperliquid",
			"value": "1500",
			"chains": {}
		}
	}
}]`

func TestGetPortfolio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/portfolio", r.URL.Path)
		assert.Equal(t, "0xabc", r.URL.Query().Get("addresses"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Write([]byte(portfolioFixture))
	}))
	defer server.Close()

	client := NewPortfolioClient(server.URL, "secret")
	p, err := client.GetPortfolio(context.Background(), "0xabc")
	require.NoError(t, err)

	assert.Equal(t, "0xabc", p.Address)
	assert.Equal(t, "10000.5", p.NetWorthUSD.String())
	require.Len(t, p.Positions, 4)
	require.Len(t, p.ProtocolBalances, 3)

	roles := map[models.PositionRole]int{}
	for _, pos := range p.Positions {
		roles[pos.Role]++
		// wallet holdings carry no LP exposure and must never surface
		// as positions
		assert.NotEqual(t, "wallet", pos.Protocol)
	}
	assert.Equal(t, 2, roles[models.RoleSupply])
	assert.Equal(t, 1, roles[models.RoleReward])
	assert.Equal(t, 1, roles[models.RoleBorrow])

	for _, pos := range p.Positions {
		if pos.TokenSymbol == "WETH" {
			assert.Equal(t, "ETH", pos.NormalizedSymbol)
		}
	}

	categories := map[string]models.ProtocolCategory{}
	for _, pb := range p.ProtocolBalances {
		categories[pb.ProtocolKey] = pb.Category
	}
	assert.Equal(t, models.CategoryWallet, categories["wallet"])
	assert.Equal(t, models.CategoryLP, categories["uniswap-v3"])
	assert.Equal(t, models.CategoryHedgeVenue, categories["hyperliquid"])

	// spot prices are recorded per raw symbol
	assert.Equal(t, "3000", p.Prices["WETH"].String())
	assert.Equal(t, "1", p.Prices["USDC"].String())
}

func TestGetPortfolioUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewPortfolioClient(server.URL, "bad")
	_, err := client.GetPortfolio(context.Background(), "0xabc")
	assert.Error(t, err)
}

func TestParsePortfolioBadNumber(t *testing.T) {
	_, err := parsePortfolio(portfolioResponse{NetWorth: "not-a-number"}, analyzer.NewNormalizer(nil))
	assert.Error(t, err)
}

func TestParseAmountEmptyIsZero(t *testing.T) {
	amount, err := parseAmount("  ")
	require.NoError(t, err)
	assert.True(t, amount.IsZero())
}
