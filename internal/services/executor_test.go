package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wnt/hedgemon/internal/analyzer"
)

func testOrderSpec() analyzer.OrderSpec {
	return analyzer.OrderSpec{
		ClientID:    "order-1",
		Symbol:      "BTC",
		Size:        decimal.RequireFromString("0.001"),
		LimitPrice:  decimal.RequireFromString("90660"),
		Side:        analyzer.SideSell,
		TimeInForce: "Ioc",
	}
}

func TestExecutorDryRun(t *testing.T) {
	exec := NewExecutor("http://unused", true)

	result, err := exec.Submit(context.Background(), testOrderSpec())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "dry run", result.Message)
	assert.Equal(t, "order-1", result.ClientOrderID)
	assert.True(t, result.FilledSize.Equal(decimal.RequireFromString("0.001")))
}

func TestExecutorFilled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/exchange", r.URL.Path)
		var req orderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "BTC", req.Coin)
		assert.Equal(t, "Ioc", req.Tif)
		assert.False(t, req.IsBuy)

		w.Write([]byte(`{"status": "ok", "response": {"data": {"statuses": [
			{"filled": {"totalSz": "0.001", "avgPx": "95001.5"}}
		]}}}`))
	}))
	defer server.Close()

	exec := NewExecutor(server.URL, false)
	result, err := exec.Submit(context.Background(), testOrderSpec())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "filled", result.Message)
	assert.Equal(t, "0.001", result.FilledSize.String())
	assert.Equal(t, "95001.5", result.AvgPrice.String())
}

func TestExecutorVenueRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "ok", "response": {"data": {"statuses": [
			{"error": "Order has invalid size."}
		]}}}`))
	}))
	defer server.Close()

	exec := NewExecutor(server.URL, false)
	result, err := exec.Submit(context.Background(), testOrderSpec())
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, "Order has invalid size.", result.Message)
}

func TestExecutorBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "err"}`))
	}))
	defer server.Close()

	exec := NewExecutor(server.URL, false)
	result, err := exec.Submit(context.Background(), testOrderSpec())
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, `"err"`)
}
