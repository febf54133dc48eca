package database

import (
	"fmt"
	"time"

	"github.com/Akbar-telliant/ScrumTaskManager/internal/config"
	"github.com/Akbar-telliant/ScrumTaskManager/internal/models"
	"github.com/Akbar-telliant/ScrumTaskManager/internal/observability/metrics"
	"github.com/Akbar-telliant/ScrumTaskManager/internal/observability/tracing"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Initialize opens the configured database, applies migrations and registers
// observability callbacks.
func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "postgres":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			cfg.Host, cfg.User, cfg.Password, cfg.Name, cfg.Port, cfg.SSLMode)
		dialector = postgres.Open(dsn)
	case "sqlite", "":
		dialector = sqlite.Open(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite ships with foreign key enforcement off; cascade deletes
	// depend on it.
	if cfg.Driver != "postgres" {
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	// Register observability GORM callbacks
	metrics.RegisterGORMCallbacks(db)
	tracing.RegisterGORMTracing(db)

	// Start DB connection stats collector
	sqlDB, err := db.DB()
	if err == nil {
		metrics.StartDBStatsCollector(sqlDB, 15*time.Second)
	}

	return db, nil
}

// Migrate creates or updates the schema for all application entities.
// Parent tables migrate first so foreign key constraints resolve.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.ClientProfile{},
		&models.Project{},
		&models.ScrumItem{},
	)
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}
