package database

import (
	"embed"
	"fmt"

	"leaseflow/internal/config"
	"leaseflow/internal/logger"
	"leaseflow/internal/model"

	"github.com/pressly/goose/v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

//go:embed migrations/*.sql
var migrations embed.FS

// NewConnection opens the gorm connection pool.
func NewConnection(cfg config.PostgresConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return db, nil
}

// Migrate creates the tables from the models, then applies the constraint
// migrations gorm tags cannot express (partial unique indexes, check constraints).
func Migrate(db *gorm.DB, log logger.Logger) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Application{},
		&model.Offer{},
		&model.Contract{},
		&model.Message{},
		&model.Notification{},
		&model.ContractRequest{},
		&model.AuditLog{},
	); err != nil {
		return fmt.Errorf("auto-migrate models: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.Up(sqlDB, "migrations"); err != nil {
		return fmt.Errorf("apply constraint migrations: %w", err)
	}

	version, err := goose.GetDBVersion(sqlDB)
	if err == nil {
		log.Info("database schema ready", map[string]interface{}{"goose_version": version})
	}
	return nil
}
