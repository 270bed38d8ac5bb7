package database

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jdramirez/servipro/internal/database/models"
	"github.com/jdramirez/servipro/pkg/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the store selected by cfg.Driver. A nil *gorm.DB with a nil
// error means the application runs degraded, without persistence.
func Connect(cfg *config.DatabaseConfig, log *slog.Logger) (*gorm.DB, error) {
	gormLogger := logger.Default.LogMode(logger.Warn)

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres", "":
		dialector = postgres.Open(cfg.DSN())
	case "sqlite":
		// Single-process fallback store. Data lives in memory and is lost
		// on restart; not safe behind more than one instance.
		dialector = sqlite.Open("file:servipro?mode=memory&cache=shared")
		log.Warn("using in-memory sqlite store, data will not survive a restart")
	case "none":
		log.Warn("no persistent store configured, running degraded")
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying db: %w", err)
	}

	// Connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info("connected to database", "driver", cfg.Driver, "host", cfg.Host, "database", cfg.Name)

	return db, nil
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Client{},
		&models.Employee{},
		&models.Service{},
		&models.Expense{},
		&models.CashClosing{},
		&models.CompanySettings{},
		&models.Quote{},
		&models.QuoteServiceItem{},
		&models.QuoteMaterialItem{},
		&models.AuditLog{},
	)
}
