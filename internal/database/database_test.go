package database

import (
	"os"
	"testing"

	"github.com/wnt/hedgemon/internal/config"
)

// TestConnectWithInvalidConfig tests that Connect returns an error rather
// than panicking when no database is reachable
func TestConnectWithInvalidConfig(t *testing.T) {
	cfg := config.Config{
		DBHost:    "127.0.0.1",
		DBPort:    "1",
		DBUser:    "nonexistentuser",
		DBName:    "nonexistentdb",
		DBSSLMode: "disable",
	}

	db, err := Connect(cfg)
	if err == nil {
		t.Error("Connect() should return an error when the database is unreachable")
	}
	if db != nil {
		t.Error("Connect() should return nil DB when connection fails")
	}
}

// TestConnectSuccessful only runs when explicitly enabled and when a
// database is properly configured
func TestConnectSuccessful(t *testing.T) {
	if os.Getenv("RUN_DB_TESTS") != "true" {
		t.Skip("Skipping database connection test. Set RUN_DB_TESTS=true to enable.")
	}

	cfg := config.Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBSSLMode:  "disable",
	}
	if cfg.DBHost == "" || cfg.DBName == "" {
		t.Skip("Skipping test because DB_HOST or DB_NAME is not set")
	}

	db, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if db == nil {
		t.Fatal("Connect() returned nil DB")
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get database connection: %v", err)
	}
	if err := sqlDB.Ping(); err != nil {
		t.Fatalf("Failed to ping database: %v", err)
	}
}
