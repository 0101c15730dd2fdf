package database

import (
	"fmt"

	"example.com/woodtrack/services/production/config"
	"example.com/woodtrack/services/production/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the primary (read-write) database connection
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	return open(cfg.DSN, cfg)
}

// ConnectReadOnly opens the read replica connection. When no replica DSN is
// configured the primary DSN is used instead.
func ConnectReadOnly(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := cfg.ReadOnlyDSN
	if dsn == "" {
		dsn = cfg.DSN
	}
	return open(dsn, cfg)
}

func open(dsn string, cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get DB instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return db, nil
}

// Migrate runs schema migrations for all models
func Migrate(db *gorm.DB) error {
	return models.SetupModels(db)
}

// Close closes the underlying connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
