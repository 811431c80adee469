package db

import (
	"fmt"

	"lead_flow_app_go/logger"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// Initialize sets up the database connection. PostgreSQL is used when databaseURL
// is set, otherwise SQLite at dbPath with WAL mode for concurrency.
func Initialize(dbPath string, databaseURL string, environment string) error {
	logLevel := gormlogger.Info
	if environment == "production" {
		logLevel = gormlogger.Warn
	}
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(logLevel)}

	var dialector gorm.Dialector
	driver := "sqlite"
	if databaseURL != "" {
		dialector = postgres.Open(databaseURL)
		driver = "postgres"
	} else {
		dialector = sqlite.Open(dbPath + "?_journal_mode=WAL&_busy_timeout=5000")
	}

	var err error
	DB, err = gorm.Open(dialector, gormCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.L.Info("database connection established", "driver", driver)
	return nil
}

// AutoMigrate runs database migrations for the provided models
func AutoMigrate(models ...interface{}) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	if err := DB.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.L.Info("database migrations completed", "models", len(models))
	return nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	return sqlDB.Close()
}
