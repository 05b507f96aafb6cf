package database

import (
	"fmt"
	"time"

	"officina/internal/model"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Models lists every table of the schema in migration order
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.AuditLog{},
		&model.Client{},
		&model.ServiceType{},
		&model.Quote{},
		&model.QuoteItem{},
		&model.SparePart{},
		&model.Appointment{},
		&model.WorkSession{},
		&model.Lead{},
		&model.TaxRule{},
	}
}

// Migrate creates or updates the schema on db
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string, debug bool, log *zap.Logger) (*gorm.DB, error) {
	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := Migrate(db); err != nil {
		log.Warn("failed to auto-migrate models", zap.Error(err))
	}

	return db, nil
}
