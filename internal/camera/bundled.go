package camera

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jmylchreest/camvault/internal/camerror"
	"github.com/jmylchreest/camvault/internal/models"
	"github.com/jmylchreest/camvault/internal/repository"
)

// BundledProfileEntry is one record in the bundled canonical.json catalog,
// grounded on original_source/src-tauri/src/camera/bundled.rs's
// BundledProfileEntry.
type BundledProfileEntry struct {
	Name           string          `json:"name"`
	Version        int             `json:"version"`
	MatchRules     models.MatchRules     `json:"matchRules"`
	TransformRules models.TransformRules `json:"transformRules"`
}

// LoadBundledProfiles parses jsonPath as a JSON array of BundledProfileEntry
// and inserts every entry not already present by name. Malformed JSON is
// logged and treated as zero insertions rather than a fatal error, matching
// the original's tolerance for a corrupt or hand-edited catalog file.
func LoadBundledProfiles(ctx context.Context, logger *slog.Logger, profiles repository.CameraProfileRepository, jsonPath string) (int, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return 0, camerror.Wrap(camerror.KindIO, "camera.bundled.read", err)
	}

	var entries []BundledProfileEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		logger.Warn("bundled camera profile catalog is malformed, skipping", "path", jsonPath, "error", err)
		return 0, nil
	}

	inserted := 0
	for _, entry := range entries {
		existing, err := profiles.GetByName(ctx, entry.Name)
		if err != nil {
			return inserted, camerror.Wrap(camerror.KindDatabase, "camera.bundled.lookup", err)
		}
		if existing != nil {
			continue
		}

		profile := &models.CameraProfile{
			Name:           entry.Name,
			Version:        entry.Version,
			MatchRules:     entry.MatchRules,
			TransformRules: entry.TransformRules,
		}
		if err := profiles.Create(ctx, profile); err != nil {
			return inserted, camerror.Wrap(camerror.KindDatabase, "camera.bundled.insert", err)
		}
		inserted++
	}

	return inserted, nil
}

// AutoLoadBundledProfiles tries each candidate catalog location in turn and
// loads the first one found, mirroring auto_load_bundled_profiles's
// dev/bundle/executable-adjacent search order.
func AutoLoadBundledProfiles(ctx context.Context, logger *slog.Logger, profiles repository.CameraProfileRepository) (int, error) {
	for _, path := range candidateCatalogPaths() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		logger.Info("loading bundled camera profile catalog", "path", path)
		return LoadBundledProfiles(ctx, logger, profiles, path)
	}
	logger.Warn("no bundled camera profile catalog found, skipping")
	return 0, nil
}

// candidateCatalogPaths returns the search order for canonical.json: a
// development-mode path relative to the working directory, then a path next
// to the running executable (covering both an installed layout and a
// macOS-style app bundle's Resources directory).
func candidateCatalogPaths() []string {
	paths := []string{filepath.Join("resources", "cameras", "canonical.json")}

	if exe, err := os.Executable(); err == nil {
		if real, err := filepath.EvalSymlinks(exe); err == nil {
			exe = real
		}
		dir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(dir, "..", "Resources", "cameras", "canonical.json"),
			filepath.Join(dir, "resources", "cameras", "canonical.json"),
		)
	}

	return paths
}
