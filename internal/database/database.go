package database

import (
	"fmt"
	"time"

	"github.com/wnt/hedgemon/internal/config"
	"github.com/wnt/hedgemon/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Connect(cfg config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		cfg.DBHost,
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBName,
		cfg.DBPort,
		cfg.DBSSLMode,
	)

	gormConfig := &gorm.Config{
		Logger:      logger.Default.LogMode(logger.Silent),
		PrepareStmt: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Set connection pool limits
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := migrateSchema(db); err != nil {
		return nil, err
	}

	return db, nil
}

func migrateSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Wallet{},
		&models.SyncRecord{},
		&models.SuggestionRecord{},
		&models.ExecutionRecord{},
		&models.CapitalTransaction{},
		&models.QuotaPoint{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// Composite indexes for the history queries the quota calculator runs
	db.Exec("CREATE INDEX IF NOT EXISTS idx_sync_records_wallet_synced_at ON sync_records(wallet_id, synced_at)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_suggestion_records_sync_status ON suggestion_records(sync_record_id, status)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_capital_transactions_wallet_occurred ON capital_transactions(wallet_id, occurred_at)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_quota_points_wallet_timestamp ON quota_points(wallet_id, timestamp)")

	return nil
}
