package ingest

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jmylchreest/camvault/internal/camera"
	"github.com/jmylchreest/camvault/internal/hash"
	"github.com/jmylchreest/camvault/internal/models"
	"github.com/jmylchreest/camvault/internal/repository"
	"github.com/jmylchreest/camvault/internal/rescan"
	"github.com/jmylchreest/camvault/internal/scheduler"
)

// setupFileBackedDB opens a real file-backed SQLite database rather than
// ":memory:", since WAL-mode semantics (used by the migrations package in
// production) only apply to an on-disk file.
func setupFileBackedDB(t *testing.T) *gorm.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "scenarios.sqlite")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Library{}, &models.Asset{}, &models.Clip{}, &models.ClipAsset{},
		&models.IngestSession{}, &models.ManifestEntry{},
		&models.CameraProfile{}, &models.CameraDevice{},
	))
	return db
}

// TestScenario_S1_FreshCopy exercises a clean card with no pre-existing
// assets: every file is copied, verified, and sealed into a clip.
func TestScenario_S1_FreshCopy(t *testing.T) {
	db := setupFileBackedDB(t)
	source := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(source, "clip1.mp4"), []byte("s1 fresh footage"), 0o644))

	p, library := newTestPipeline(db)
	library.RootPath = t.TempDir()
	require.NoError(t, repository.NewLibraryRepository(db).Create(context.Background(), library))

	session := newSession(t, db, source)
	ctx := context.Background()

	entries, err := p.Seal(ctx, session)
	require.NoError(t, err)
	require.NoError(t, p.Run(ctx, library, session, entries, nil))

	assert.Equal(t, 1, session.Processed)
	assert.Equal(t, 0, session.Skipped)
	assert.Equal(t, 0, session.Failed)
	assert.Equal(t, models.ManifestResultCopiedVerified, entries[0].Result)
}

// TestScenario_S2_Dedup re-ingests the same card contents into a library
// that already holds the asset; the duplicate must be recognized by hash
// and never re-copied.
func TestScenario_S2_Dedup(t *testing.T) {
	db := setupFileBackedDB(t)
	source := t.TempDir()
	content := []byte("s2 shared bytes across two cards")
	require.NoError(t, os.WriteFile(filepath.Join(source, "a.mp4"), content, 0o644))

	p, library := newTestPipeline(db)
	library.RootPath = t.TempDir()
	require.NoError(t, repository.NewLibraryRepository(db).Create(context.Background(), library))
	ctx := context.Background()

	firstSession := newSession(t, db, source)
	firstEntries, err := p.Seal(ctx, firstSession)
	require.NoError(t, err)
	require.NoError(t, p.Run(ctx, library, firstSession, firstEntries, nil))
	assert.Equal(t, models.ManifestResultCopiedVerified, firstEntries[0].Result)

	secondSource := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(secondSource, "a-copy.mp4"), content, 0o644))
	secondSession := newSession(t, db, secondSource)
	secondEntries, err := p.Seal(ctx, secondSession)
	require.NoError(t, err)
	require.NoError(t, p.Run(ctx, library, secondSession, secondEntries, nil))

	assert.Equal(t, models.ManifestResultDedupVerified, secondEntries[0].Result)
	assert.Equal(t, 1, secondSession.Skipped)
	assert.Equal(t, 0, secondSession.Failed)
}

// TestScenario_S3_MidIngestModification covers a file changing size or
// content between the manifest seal and the copy pass (e.g. the camera's
// firmware still flushing a recording buffer to the card).
func TestScenario_S3_MidIngestModification(t *testing.T) {
	db := setupFileBackedDB(t)
	source := t.TempDir()
	path := filepath.Join(source, "still-recording.mp4")
	require.NoError(t, os.WriteFile(path, []byte("partial"), 0o644))

	p, library := newTestPipeline(db)
	library.RootPath = t.TempDir()
	require.NoError(t, repository.NewLibraryRepository(db).Create(context.Background(), library))
	ctx := context.Background()

	session := newSession(t, db, source)
	entries, err := p.Seal(ctx, session)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("partial plus more bytes written after seal"), 0o644))

	require.NoError(t, p.Run(ctx, library, session, entries, nil))

	assert.Equal(t, models.ManifestResultChanged, entries[0].Result)
	assert.Equal(t, 1, session.Failed)
	assert.Nil(t, entries[0].AssetID)
}

// TestScenario_S4_CorruptCopyDetected simulates a destination-side bit
// flip after a verified copy (e.g. a failing drive sector) and confirms
// that recomputing the full hash against the asset's recorded hash
// detects the corruption, which is the same check copyWithVerify performs
// immediately after every copy via its destination readback.
func TestScenario_S4_CorruptCopyDetected(t *testing.T) {
	db := setupFileBackedDB(t)
	source := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(source, "clip.mp4"), []byte("s4 bytes that must survive the copy"), 0o644))

	p, library := newTestPipeline(db)
	library.RootPath = t.TempDir()
	require.NoError(t, repository.NewLibraryRepository(db).Create(context.Background(), library))
	ctx := context.Background()

	session := newSession(t, db, source)
	entries, err := p.Seal(ctx, session)
	require.NoError(t, err)
	require.NoError(t, p.Run(ctx, library, session, entries, nil))
	require.Equal(t, models.ManifestResultCopiedVerified, entries[0].Result)

	assets := repository.NewAssetRepository(db)
	asset, err := assets.GetByID(ctx, *entries[0].AssetID)
	require.NoError(t, err)
	require.NotEmpty(t, asset.HashFull)

	destPath := filepath.Join(library.RootPath, asset.Path)
	require.NoError(t, os.WriteFile(destPath, []byte("corrupted on disk after verification"), 0o644))

	rehashed, err := hash.ComputeFull(destPath)
	require.NoError(t, err)
	assert.NotEqual(t, asset.HashFull, rehashed, "a corrupted destination file must no longer match its recorded hash")
}

// TestScenario_S5_RematchUpgrade covers a clip ingested before any camera
// profile existed for it (landing on the generic fallback), which is
// later upgraded once a matching profile is registered - without
// re-reading the original source bytes, using only the persisted sidecar
// input signature.
func TestScenario_S5_RematchUpgrade(t *testing.T) {
	db := setupFileBackedDB(t)
	source := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(source, "GOPR0099.MP4"), []byte("s5 gopro footage"), 0o644))

	p, library := newTestPipeline(db)
	library.RootPath = t.TempDir()
	libraries := repository.NewLibraryRepository(db)
	require.NoError(t, libraries.Create(context.Background(), library))
	ctx := context.Background()

	session := newSession(t, db, source)
	entries, err := p.Seal(ctx, session)
	require.NoError(t, err)
	require.NoError(t, p.Run(ctx, library, session, entries, nil))

	clips := repository.NewClipRepository(db)
	clip, err := clips.GetByOriginalAssetID(ctx, *entries[0].AssetID)
	require.NoError(t, err)
	require.Equal(t, models.GenericFallbackProfileRef, clip.CameraProfileRef)

	profiles := repository.NewCameraProfileRepository(db)
	require.NoError(t, profiles.Create(ctx, &models.CameraProfile{
		Name:    "gopro-hero",
		Version: 1,
		MatchRules: models.MatchRules{
			Filename: []string{"^GOPR\\d+\\.MP4$"},
		},
	}))

	assetsRepo := repository.NewAssetRepository(db)
	devices := repository.NewCameraDeviceRepository(db)
	matcher := camera.New(profiles, devices)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	handler := scheduler.NewRematchHandler(libraries, clips, assetsRepo, matcher, logger)

	job := &models.Job{Type: models.JobTypeRematch, TargetID: library.ID}
	summary, err := handler.Execute(ctx, job)
	require.NoError(t, err)
	assert.Contains(t, summary, "upgraded=1")

	upgraded, err := clips.GetByID(ctx, clip.ID)
	require.NoError(t, err)
	assert.Equal(t, "gopro-hero", upgraded.CameraProfileRef)
	assert.NotEqual(t, models.GenericFallbackProfileRef, upgraded.CameraProfileRef)
}

// TestScenario_S6_SourceDisconnect covers the SD card (or other removable
// source) disappearing before a rescan can confirm it is safe to wipe -
// the gate must fail closed rather than assume the card is intact.
func TestScenario_S6_SourceDisconnect(t *testing.T) {
	db := setupFileBackedDB(t)
	sourceParent := t.TempDir()
	source := filepath.Join(sourceParent, "sdcard")
	require.NoError(t, os.Mkdir(source, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(source, "clip.mp4"), []byte("s6 bytes"), 0o644))

	p, library := newTestPipeline(db)
	library.RootPath = t.TempDir()
	require.NoError(t, repository.NewLibraryRepository(db).Create(context.Background(), library))
	ctx := context.Background()

	session := newSession(t, db, source)
	entries, err := p.Seal(ctx, session)
	require.NoError(t, err)
	require.NoError(t, p.Run(ctx, library, session, entries, nil))

	// Simulate the card being unplugged before the rescan gate runs.
	require.NoError(t, os.RemoveAll(source))

	sessions := repository.NewIngestSessionRepository(db)
	manifests := repository.NewManifestEntryRepository(db)
	gate := rescan.New(sessions, manifests)

	result, err := gate.Run(ctx, session)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.Passed)
	assert.Equal(t, "source_unreachable", result.FailureKind)

	reloaded, err := sessions.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.SafeToWipeAt)
}
