package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionRole classifies how a token entry participates in a protocol.
type PositionRole string

const (
	RoleSupply   PositionRole = "supply"
	RoleReward   PositionRole = "reward"
	RoleBorrow   PositionRole = "borrow"
	RolePosition PositionRole = "position"
	RoleEquity   PositionRole = "equity"
)

// Position is one balance entry for one token inside one protocol.
// Created fresh on every portfolio fetch and never mutated; only derived
// aggregates are persisted.
type Position struct {
	Protocol         string
	Chain            string
	TokenSymbol      string
	NormalizedSymbol string
	Amount           decimal.Decimal // signed, negative for short/borrowed
	USDValue         decimal.Decimal
	Role             PositionRole
}

// ProtocolCategory groups protocols for the capital allocation engine.
type ProtocolCategory string

const (
	CategoryWallet     ProtocolCategory = "wallet"
	CategoryLP         ProtocolCategory = "lp"
	CategoryHedgeVenue ProtocolCategory = "hedge_venue"
)

// ProtocolBalance carries a protocol-level pre-aggregated USD value.
// The hedge venue reports margin account equity (free balance + position
// value + open PnL + funding) which cannot be reconstructed by summing
// asset lines, so consumers must use this value rather than re-deriving it.
type ProtocolBalance struct {
	ProtocolKey string
	Name        string
	Category    ProtocolCategory
	ValueUSD    decimal.Decimal
}

// PerpPosition is a perpetual position as reported by the hedge venue.
type PerpPosition struct {
	Symbol         string
	Size           decimal.Decimal // negative for shorts
	MarkPrice      decimal.Decimal
	PositionValue  decimal.Decimal
	EntryPrice     decimal.Decimal
	OpenPnL        decimal.Decimal
	FundingAllTime decimal.Decimal
	MarginUsed     decimal.Decimal
	Leverage       string
}

// AssetMeta is one row of the venue's instrument metadata table.
type AssetMeta struct {
	Symbol       string
	SizeDecimals int32
	MaxLeverage  int
}

// Snapshot is everything a single analysis pass consumes. The syncer builds
// a fresh one on every pass; the analyzer never reads ambient state, so
// repeated invocations with different snapshots need no locking.
type Snapshot struct {
	Wallet           string
	FetchedAt        time.Time
	Positions        []Position // all discovered positions, unfiltered
	ProtocolBalances []ProtocolBalance
	Shorts           []PerpPosition
	Prices           map[string]decimal.Decimal // normalized symbol -> mid price
	Meta             map[string]AssetMeta
}
