// Package migrations provides database migration management for camvault.
package migrations

import (
	"github.com/jmylchreest/camvault/internal/models"
	"gorm.io/gorm"
)

// AllMigrations returns all registered migrations in order, applied once
// per embedded library database.
func AllMigrations() []Migration {
	return []Migration{
		migration001Schema(),
	}
}

// migration001Schema creates all database tables using GORM AutoMigrate.
func migration001Schema() Migration {
	return Migration{
		Version:     "001",
		Description: "Create all database tables",
		Up: func(tx *gorm.DB) error {
			// AutoMigrate all models in dependency order.
			return tx.AutoMigrate(
				// Library root (one row per embedded database, kept for the
				// cross-library app registry's foreign key symmetry).
				&models.Library{},

				// Camera matching: profiles and devices are independent of
				// clips/assets so they migrate first.
				&models.CameraProfile{},
				&models.CameraDevice{},

				// Ingest pipeline: session and manifest entries are created
				// before any asset exists.
				&models.IngestSession{},
				&models.ManifestEntry{},

				// Core media graph.
				&models.Asset{},
				&models.Clip{},
				&models.ClipAsset{},

				// Scheduler.
				&models.Job{},
				&models.JobHistory{},
			)
		},
		Down: func(tx *gorm.DB) error {
			// Drop tables in reverse dependency order.
			tables := []string{
				"job_history",
				"jobs",
				"clip_assets",
				"clips",
				"assets",
				"manifest_entries",
				"ingest_sessions",
				"camera_devices",
				"camera_profiles",
				"libraries",
			}
			for _, table := range tables {
				if tx.Migrator().HasTable(table) {
					if err := tx.Migrator().DropTable(table); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}
}
