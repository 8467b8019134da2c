package models

import (
	"time"

	"gorm.io/gorm"
)

// Wallet represents a monitored wallet address.
type Wallet struct {
	gorm.Model
	Address    string    `gorm:"size:64;uniqueIndex;not null"`
	LastSynced time.Time `gorm:"index"`
	SyncCount  int       `gorm:"default:0"`

	// Relationships
	SyncRecords []SyncRecord `gorm:"foreignKey:WalletID"`
}

// SyncRecord is one completed analysis pass for a wallet.
type SyncRecord struct {
	gorm.Model
	WalletID uint      `gorm:"index;not null"`
	SyncedAt time.Time `gorm:"index"`

	TotalCapitalUSD float64 `gorm:"default:0"`
	LPValueUSD      float64 `gorm:"default:0"`
	HedgeValueUSD   float64 `gorm:"default:0"`
	WalletValueUSD  float64 `gorm:"default:0"`
	CoveragePct     float64 `gorm:"default:0"`
	RiskLevel       string  `gorm:"size:40;index"`
	ForcedRebalance bool    `gorm:"default:false"`

	// Relationships
	Suggestions []SuggestionRecord `gorm:"foreignKey:SyncRecordID"`
}

// SuggestionRecord is one per-token hedge classification, persisted with the
// inputs that produced it so an operator can audit why it was made.
type SuggestionRecord struct {
	gorm.Model
	SyncRecordID uint   `gorm:"index;not null"`
	Symbol       string `gorm:"size:20;index;not null"`
	Status       string `gorm:"size:20;not null"`
	Priority     string `gorm:"size:20"`

	LPAmount           float64 `gorm:"default:0"`
	ShortAmount        float64 `gorm:"default:0"`
	DeviationPct       float64 `gorm:"default:0"`
	AdjustmentAmount   float64 `gorm:"default:0"`
	AdjustmentValueUSD float64 `gorm:"default:0"`
	PriceUSD           float64 `gorm:"default:0"`
	PriceMissing       bool    `gorm:"default:false"`
}

// ExecutionRecord is the outcome of submitting one sized order to the venue.
type ExecutionRecord struct {
	gorm.Model
	WalletID      uint   `gorm:"index;not null"`
	ClientOrderID string `gorm:"size:40;uniqueIndex"`
	Symbol        string `gorm:"size:20;index;not null"`
	Side          string `gorm:"size:10;not null"`
	Size          float64
	LimitPrice    float64
	NotionalUSD   float64
	ReduceOnly    bool
	Success       bool   `gorm:"index"`
	Message       string `gorm:"size:255"`
	FilledSize    float64
	AvgPrice      float64
	SubmittedAt   time.Time `gorm:"index"`
}

// CapitalTransaction is a deposit into or withdrawal from the strategy,
// used by quota accounting.
type CapitalTransaction struct {
	gorm.Model
	WalletID   uint      `gorm:"index;not null"`
	Type       string    `gorm:"size:12;not null"` // deposit, withdrawal
	AmountUSD  float64   `gorm:"not null"`
	OccurredAt time.Time `gorm:"index;not null"`
}

// QuotaPoint is one point of the unit-accounting series derived from sync
// history and capital transactions.
type QuotaPoint struct {
	gorm.Model
	WalletID    uint      `gorm:"index;not null"`
	Timestamp   time.Time `gorm:"index;not null"`
	QuotaValue  float64
	TotalQuotas float64
	NetWorthUSD float64
}
