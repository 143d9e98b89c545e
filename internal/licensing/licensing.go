// Package licensing provides the always-allow license stub spec.md §1
// names as an external collaborator: "the core calls is_allowed(feature)".
// Grounded on original_source/src-tauri/src/commands/licensing.rs (the
// Tauri command wrappers for get_license_state/activate_license/
// deactivate_license/is_feature_allowed); the Rust licensing module body
// itself is not part of the retrieval pack, so this package implements
// the minimal behavior the command signatures imply: a persisted state
// string plus an always-true feature gate, so a real license backend can
// later replace this without touching any caller.
package licensing

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmylchreest/camvault/internal/appdb"
)

// State mirrors the Rust licensing::LicenseState the command layer
// returns to the frontend: a coarse status plus the activated key, if
// any.
type State struct {
	Status string `json:"status"` // trial, licensed
	Key    string `json:"key,omitempty"`
}

const (
	StatusTrial    = "trial"
	StatusLicensed = "licensed"

	licenseKeySetting = "license_key"
)

// Service wraps the app DB's settings table to provide license state,
// activation, and feature gating behind a narrow interface, matching
// spec.md §1's framing of licensing as an out-of-scope collaborator the
// core only calls through is_allowed(feature).
type Service struct {
	db *appdb.DB
}

func New(db *appdb.DB) *Service {
	return &Service{db: db}
}

// CheckState returns the current license state, reading any previously
// activated key from the app DB. An empty key means the trial state.
func (s *Service) CheckState(ctx context.Context) (State, error) {
	key, ok, err := s.db.GetSetting(ctx, licenseKeySetting)
	if err != nil {
		return State{}, fmt.Errorf("licensing: reading state: %w", err)
	}
	if !ok || key == "" {
		return State{Status: StatusTrial}, nil
	}
	return State{Status: StatusLicensed, Key: key}, nil
}

// Activate stores key as the active license and returns the resulting
// state. There is no validation against a license server: this is the
// always-allow stub spec.md describes, not a real entitlement check.
func (s *Service) Activate(ctx context.Context, key string) (State, error) {
	if key == "" {
		return State{}, fmt.Errorf("licensing: key is required")
	}
	if err := s.db.SetSetting(ctx, licenseKeySetting, key); err != nil {
		return State{}, fmt.Errorf("licensing: activating: %w", err)
	}
	return State{Status: StatusLicensed, Key: key}, nil
}

// Deactivate clears the active license, reverting to the trial state.
func (s *Service) Deactivate(ctx context.Context) error {
	if err := s.db.SetSetting(ctx, licenseKeySetting, ""); err != nil {
		return fmt.Errorf("licensing: deactivating: %w", err)
	}
	return nil
}

// IsAllowed reports whether feature is permitted under the current
// license. Every feature is allowed: this is the always-allow stub the
// pipeline calls through so a real entitlement backend can be wired in
// later without touching any caller.
func (s *Service) IsAllowed(_ context.Context, _ string) bool {
	return true
}

// Diagnostics wraps the app DB's diagnostics_enabled setting and log
// directory access, grounded on original_source's
// get_diagnostics_enabled/set_diagnostics_enabled/get_log_directory/
// export_logs.
type Diagnostics struct {
	db     *appdb.DB
	logDir string
}

func NewDiagnostics(db *appdb.DB, logDir string) *Diagnostics {
	return &Diagnostics{db: db, logDir: logDir}
}

func (d *Diagnostics) Enabled(ctx context.Context) (bool, error) {
	return d.db.DiagnosticsEnabled(ctx)
}

func (d *Diagnostics) SetEnabled(ctx context.Context, enabled bool) error {
	return d.db.SetDiagnosticsEnabled(ctx, enabled)
}

// LogDirectory returns the configured log directory.
func (d *Diagnostics) LogDirectory() string {
	return d.logDir
}

// ExportLogs copies every *.log file from the log directory into
// targetDir, creating it if necessary, and returns the count copied.
// Mirrors original_source's export_logs: a missing log directory is not
// an error, it just copies nothing.
func (d *Diagnostics) ExportLogs(targetDir string) (int, error) {
	if d.logDir == "" {
		return 0, nil
	}
	if _, err := os.Stat(d.logDir); os.IsNotExist(err) {
		return 0, nil
	}

	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return 0, fmt.Errorf("licensing: creating target directory: %w", err)
	}

	entries, err := os.ReadDir(d.logDir)
	if err != nil {
		return 0, fmt.Errorf("licensing: reading log directory: %w", err)
	}

	copied := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".log") {
			continue
		}
		src := filepath.Join(d.logDir, entry.Name())
		dst := filepath.Join(targetDir, entry.Name())
		if err := copyFile(src, dst); err != nil {
			return copied, fmt.Errorf("licensing: copying %s: %w", entry.Name(), err)
		}
		copied++
	}
	return copied, nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
