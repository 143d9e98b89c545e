// Package appdb provides the process-singleton application database: a
// small key/value settings store and a library-path-to-UUID registry
// that outlive any single opened library, grounded on
// original_source/src-tauri/src/db/app_db.rs and schema.rs - described
// by commands/diagnostics.rs and commands/library.rs as "the KV
// configuration store" spec.md §1 lists as an out-of-scope collaborator,
// implemented here minimally since the diagnostics/licensing command
// surface needs something concrete to read from.
package appdb

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gorm.io/gorm"

	"github.com/jmylchreest/camvault/internal/config"
	"github.com/jmylchreest/camvault/internal/database"
)

// Setting is a single key/value row, matching original_source's
// settings(key text primary key, value text) table exactly.
type Setting struct {
	Key   string `gorm:"primarykey;size:255"`
	Value string `gorm:"size:4096"`
}

// TableName returns the table name for Setting.
func (Setting) TableName() string {
	return "settings"
}

// LibraryRegistryEntry maps an on-disk library root path to its stable
// UUID, independent of the library's own embedded database - so the app
// DB can answer "have we seen this path before" without opening it.
type LibraryRegistryEntry struct {
	Path      string `gorm:"primarykey;size:2048"`
	UUID      string `gorm:"size:36;uniqueIndex"`
	Name      string `gorm:"size:255"`
	CreatedAt time.Time
}

// TableName returns the table name for LibraryRegistryEntry.
func (LibraryRegistryEntry) TableName() string {
	return "library_registry"
}

// DiagnosticsEnabledKey is the settings key toggled by
// get_diagnostics_enabled/set_diagnostics_enabled.
const DiagnosticsEnabledKey = "diagnostics_enabled"

// DB wraps the app database connection.
type DB struct {
	db *database.DB
}

// Open opens (creating if necessary) the app database at cfg.Path and
// migrates its schema. The parent directory is created if missing,
// since this is typically a fresh per-user config directory.
func Open(cfg config.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("appdb: path is required")
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("appdb: creating directory: %w", err)
		}
	}

	conn, err := database.New(cfg, logger, nil)
	if err != nil {
		return nil, fmt.Errorf("appdb: opening database: %w", err)
	}

	if err := conn.AutoMigrate(&Setting{}, &LibraryRegistryEntry{}); err != nil {
		return nil, fmt.Errorf("appdb: migrating schema: %w", err)
	}

	return &DB{db: conn}, nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// GetSetting returns a setting's value and whether it was present.
func (d *DB) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var row Setting
	err := d.db.WithContext(ctx).First(&row, "key = ?", key).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", false, nil
		}
		return "", false, fmt.Errorf("appdb: getting setting %q: %w", key, err)
	}
	return row.Value, true, nil
}

// SetSetting upserts a setting's value.
func (d *DB) SetSetting(ctx context.Context, key, value string) error {
	row := Setting{Key: key, Value: value}
	err := d.db.WithContext(ctx).Save(&row).Error
	if err != nil {
		return fmt.Errorf("appdb: setting %q: %w", key, err)
	}
	return nil
}

// DiagnosticsEnabled returns the diagnostics_enabled setting, defaulting
// to false when unset.
func (d *DB) DiagnosticsEnabled(ctx context.Context) (bool, error) {
	value, ok, err := d.GetSetting(ctx, DiagnosticsEnabledKey)
	if err != nil {
		return false, err
	}
	return ok && value == "true", nil
}

// SetDiagnosticsEnabled persists the diagnostics_enabled setting.
func (d *DB) SetDiagnosticsEnabled(ctx context.Context, enabled bool) error {
	value := "false"
	if enabled {
		value = "true"
	}
	return d.SetSetting(ctx, DiagnosticsEnabledKey, value)
}

// RegisterLibrary upserts a path→UUID registry entry.
func (d *DB) RegisterLibrary(ctx context.Context, path, uuid, name string) error {
	row := LibraryRegistryEntry{Path: path, UUID: uuid, Name: name, CreatedAt: time.Now().UTC()}
	err := d.db.WithContext(ctx).Save(&row).Error
	if err != nil {
		return fmt.Errorf("appdb: registering library %q: %w", path, err)
	}
	return nil
}

// LookupLibraryUUID returns the UUID registered for path, if any.
func (d *DB) LookupLibraryUUID(ctx context.Context, path string) (string, bool, error) {
	var row LibraryRegistryEntry
	err := d.db.WithContext(ctx).First(&row, "path = ?", path).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", false, nil
		}
		return "", false, fmt.Errorf("appdb: looking up library %q: %w", path, err)
	}
	return row.UUID, true, nil
}
