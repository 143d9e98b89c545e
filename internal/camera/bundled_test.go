package camera

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBundledProfiles_InsertsNewEntries(t *testing.T) {
	_, profiles, _ := newTestMatcher(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	dir := t.TempDir()
	path := filepath.Join(dir, "canonical.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"name": "gopro-hero11", "version": 1, "matchRules": {"make": ["GoPro"], "model": ["HERO11"]}},
		{"name": "dji-mini4", "version": 1, "matchRules": {"make": ["DJI"], "model": ["Mini 4 Pro"]}}
	]`), 0o644))

	inserted, err := LoadBundledProfiles(ctx, logger, profiles, path)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	existing, err := profiles.GetByName(ctx, "gopro-hero11")
	require.NoError(t, err)
	require.NotNil(t, existing)
	assert.Equal(t, []string{"GoPro"}, existing.MatchRules.Make)
}

func TestLoadBundledProfiles_SkipsExistingByName(t *testing.T) {
	_, profiles, _ := newTestMatcher(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	dir := t.TempDir()
	path := filepath.Join(dir, "canonical.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"name": "gopro-hero11", "version": 1, "matchRules": {"make": ["GoPro"]}}]`), 0o644))

	inserted, err := LoadBundledProfiles(ctx, logger, profiles, path)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	inserted, err = LoadBundledProfiles(ctx, logger, profiles, path)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
}

func TestLoadBundledProfiles_MalformedJSONIsNonFatal(t *testing.T) {
	_, profiles, _ := newTestMatcher(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	dir := t.TempDir()
	path := filepath.Join(dir, "canonical.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not valid json`), 0o644))

	inserted, err := LoadBundledProfiles(ctx, logger, profiles, path)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
}

func TestAutoLoadBundledProfiles_NoCandidateFound(t *testing.T) {
	_, profiles, _ := newTestMatcher(t)
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	wd, err := os.Getwd()
	require.NoError(t, err)
	tmp := t.TempDir()
	require.NoError(t, os.Chdir(tmp))
	defer os.Chdir(wd)

	inserted, err := AutoLoadBundledProfiles(context.Background(), logger, profiles)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
}
