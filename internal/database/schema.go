package database

import (
	"fmt"
	"log/slog"

	"bolify/internal/config"
	"bolify/internal/middleware"

	"gorm.io/gorm"
)

// ShouldAutoMigrate reports whether the relational schema is managed by
// AutoMigrate at startup. Production only migrates when DB_AUTO_MIGRATE is set.
func ShouldAutoMigrate(cfg *config.Config) bool {
	return !cfg.IsProduction() || cfg.DBAutoMigrate
}

// ApplySchema creates or updates the tables for PersistentModels.
func ApplySchema(db *gorm.DB, cfg *config.Config) error {
	if !ShouldAutoMigrate(cfg) {
		middleware.Logger.Info("Skipping AutoMigrate", slog.String("env", cfg.Env))
		return nil
	}
	if err := db.AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	middleware.Logger.Info("Database migration completed", slog.String("env", cfg.Env))
	return nil
}
