package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wnt/hedgemon/internal/analyzer"
	"github.com/wnt/hedgemon/internal/metrics"
	"github.com/wnt/hedgemon/internal/utils"
)

// Executor submits sized orders to the hedge venue's exchange endpoint.
// Construction of the order is the sizer's job; the executor only carries
// a validated OrderSpec over the wire and reports the fill.
//
// The venue's exchange endpoint accepts only signed action envelopes, so
// the live path must point at a signing proxy that wraps and signs the
// order before forwarding it. Without one, use dry run.
type Executor struct {
	httpClient *utils.HTTPClient
	dryRun     bool
}

// NewExecutor creates an executor. With dryRun set, orders are acknowledged
// locally without touching the venue.
func NewExecutor(baseURL string, dryRun bool) *Executor {
	return &Executor{
		httpClient: utils.NewHTTPClient(
			utils.WithBaseURL(baseURL),
			utils.WithTimeout(15*time.Second),
			// a resubmitted IOC order is a new order, never retry
			utils.WithRetries(0, 0),
		),
		dryRun: dryRun,
	}
}

// ExecutionResult is the venue's verdict on one submitted order.
type ExecutionResult struct {
	ClientOrderID string
	Success       bool
	Message       string
	FilledSize    decimal.Decimal
	AvgPrice      decimal.Decimal
	SubmittedAt   time.Time
}

type orderRequest struct {
	Coin       string `json:"coin"`
	Size       string `json:"sz"`
	LimitPx    string `json:"limit_px"`
	IsBuy      bool   `json:"is_buy"`
	ReduceOnly bool   `json:"reduce_only"`
	Tif        string `json:"tif"`
	Cloid      string `json:"cloid"`
}

type orderResponse struct {
	Status   string `json:"status"`
	Response struct {
		Data struct {
			Statuses []struct {
				Filled *struct {
					TotalSz string `json:"totalSz"`
					AvgPx   string `json:"avgPx"`
				} `json:"filled"`
				Error string `json:"error"`
			} `json:"statuses"`
		} `json:"data"`
	} `json:"response"`
}

// Submit sends one order and returns the execution result. A venue rejection
// is reported in the result, not as an error; errors are reserved for
// transport and protocol failures.
func (e *Executor) Submit(ctx context.Context, spec analyzer.OrderSpec) (*ExecutionResult, error) {
	result := &ExecutionResult{
		ClientOrderID: spec.ClientID,
		SubmittedAt:   time.Now().UTC(),
	}

	if e.dryRun {
		result.Success = true
		result.Message = "dry run"
		result.FilledSize = spec.Size
		result.AvgPrice = spec.LimitPrice
		return result, nil
	}

	req := orderRequest{
		Coin:       spec.Symbol,
		Size:       spec.Size.String(),
		LimitPx:    spec.LimitPrice.String(),
		IsBuy:      spec.Side == analyzer.SideBuy,
		ReduceOnly: spec.ReduceOnly,
		Tif:        spec.TimeInForce,
		Cloid:      spec.ClientID,
	}

	// raw unsigned order; the upstream must sign the action envelope
	response, err := e.httpClient.Post(ctx, "/exchange", req, nil)
	if err != nil {
		metrics.RecordOrderSubmitted(string(spec.Side), "failed")
		return nil, fmt.Errorf("order submit: %w", err)
	}

	var payload orderResponse
	if err := response.DecodeJSON(&payload); err != nil {
		metrics.RecordOrderSubmitted(string(spec.Side), "failed")
		return nil, fmt.Errorf("order response decode: %w", err)
	}

	if payload.Status != "ok" || len(payload.Response.Data.Statuses) == 0 {
		result.Message = fmt.Sprintf("venue returned status %q", payload.Status)
		metrics.RecordOrderSubmitted(string(spec.Side), "failed")
		return result, nil
	}

	status := payload.Response.Data.Statuses[0]
	switch {
	case status.Filled != nil:
		filled, err := parseAmount(status.Filled.TotalSz)
		if err != nil {
			return nil, fmt.Errorf("parse filled size: %w", err)
		}
		avg, err := parseAmount(status.Filled.AvgPx)
		if err != nil {
			return nil, fmt.Errorf("parse avg price: %w", err)
		}
		result.Success = true
		result.Message = "filled"
		result.FilledSize = filled
		result.AvgPrice = avg
		metrics.RecordOrderSubmitted(string(spec.Side), "success")
	case status.Error != "":
		result.Message = status.Error
		metrics.RecordOrderSubmitted(string(spec.Side), "failed")
	default:
		// IOC orders either fill or cancel; an empty status means the
		// resting part was cancelled
		result.Message = "cancelled"
		metrics.RecordOrderSubmitted(string(spec.Side), "failed")
	}

	return result, nil
}
