package ingest

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/jmylchreest/camvault/internal/camera"
	"github.com/jmylchreest/camvault/internal/metadata"
	"github.com/jmylchreest/camvault/internal/models"
	"github.com/jmylchreest/camvault/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupIngestTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
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

func newTestPipeline(db *gorm.DB) (*Pipeline, *models.Library) {
	sessions := repository.NewIngestSessionRepository(db)
	manifests := repository.NewManifestEntryRepository(db)
	assets := repository.NewAssetRepository(db)
	clips := repository.NewClipRepository(db)
	profiles := repository.NewCameraProfileRepository(db)
	devices := repository.NewCameraDeviceRepository(db)

	extractor := metadata.NewExtractor(nil, nil)
	matcher := camera.New(profiles, devices)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	p := New(sessions, manifests, assets, clips, extractor, matcher, logger)

	library := &models.Library{RootPath: "", Name: "test", IngestMode: models.IngestModeCopy}
	return p, library
}

func newSession(t *testing.T, db *gorm.DB, sourceRoot string) *models.IngestSession {
	sessions := repository.NewIngestSessionRepository(db)
	session := &models.IngestSession{SourceRoot: sourceRoot}
	require.NoError(t, sessions.Create(context.Background(), session))
	return session
}

func TestSealAndRun_FreshCopy(t *testing.T) {
	db := setupIngestTestDB(t)
	source := t.TempDir()
	libRoot := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(source, "clip1.mp4"), []byte("hello world"), 0o644))

	p, library := newTestPipeline(db)
	library.RootPath = libRoot
	libraries := repository.NewLibraryRepository(db)
	require.NoError(t, libraries.Create(context.Background(), library))

	session := newSession(t, db, source)
	ctx := context.Background()

	entries, err := p.Seal(ctx, session)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotEmpty(t, session.ManifestHash)

	err = p.Run(ctx, library, session, entries, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, session.Processed)
	assert.Equal(t, models.ManifestResultCopiedVerified, entries[0].Result)
	assert.NotNil(t, entries[0].AssetID)

	assets := repository.NewAssetRepository(db)
	asset, err := assets.GetByID(ctx, *entries[0].AssetID)
	require.NoError(t, err)
	require.NotNil(t, asset)
	assert.False(t, asset.IsReference())
	assert.NotEmpty(t, asset.HashFull)

	clips := repository.NewClipRepository(db)
	clip, err := clips.GetByOriginalAssetID(ctx, asset.ID)
	require.NoError(t, err)
	require.NotNil(t, clip)

	sidecarPath := filepath.Join(libRoot, ".dadcam", "sidecars", clip.ID.String()+".json")
	_, err = os.Stat(sidecarPath)
	assert.NoError(t, err)
}

func TestRun_DedupSkipsSecondCopy(t *testing.T) {
	db := setupIngestTestDB(t)
	source := t.TempDir()
	libRoot := t.TempDir()

	content := []byte("duplicate content for dedup test")
	require.NoError(t, os.WriteFile(filepath.Join(source, "a.mp4"), content, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(source, "b.mp4"), content, 0o644))

	p, library := newTestPipeline(db)
	library.RootPath = libRoot
	libraries := repository.NewLibraryRepository(db)
	require.NoError(t, libraries.Create(context.Background(), library))

	session := newSession(t, db, source)
	ctx := context.Background()

	entries, err := p.Seal(ctx, session)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.NoError(t, p.Run(ctx, library, session, entries, nil))

	assert.Equal(t, 1, session.Processed)
	assert.Equal(t, 1, session.Skipped)

	var dedupCount, copiedCount int
	for _, e := range entries {
		switch e.Result {
		case models.ManifestResultDedupVerified:
			dedupCount++
		case models.ManifestResultCopiedVerified:
			copiedCount++
		}
	}
	assert.Equal(t, 1, dedupCount)
	assert.Equal(t, 1, copiedCount)
}

func TestRun_FailsEntryWhenSourceModifiedAfterSeal(t *testing.T) {
	db := setupIngestTestDB(t)
	source := t.TempDir()
	libRoot := t.TempDir()

	path := filepath.Join(source, "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("original bytes"), 0o644))

	p, library := newTestPipeline(db)
	library.RootPath = libRoot
	libraries := repository.NewLibraryRepository(db)
	require.NoError(t, libraries.Create(context.Background(), library))

	session := newSession(t, db, source)
	ctx := context.Background()

	entries, err := p.Seal(ctx, session)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.NoError(t, os.WriteFile(path, []byte("modified after the manifest was sealed!!"), 0o644))

	require.NoError(t, p.Run(ctx, library, session, entries, nil))

	assert.Equal(t, models.ManifestResultChanged, entries[0].Result)
	assert.Equal(t, 1, session.Failed)
}

func TestRun_FailsEntryWhenSourceMissing(t *testing.T) {
	db := setupIngestTestDB(t)
	source := t.TempDir()
	libRoot := t.TempDir()

	path := filepath.Join(source, "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("gone soon"), 0o644))

	p, library := newTestPipeline(db)
	library.RootPath = libRoot
	libraries := repository.NewLibraryRepository(db)
	require.NoError(t, libraries.Create(context.Background(), library))

	session := newSession(t, db, source)
	ctx := context.Background()

	entries, err := p.Seal(ctx, session)
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))

	require.NoError(t, p.Run(ctx, library, session, entries, nil))

	assert.Equal(t, models.ManifestResultFailed, entries[0].Result)
	assert.Equal(t, models.ErrorCodeSourceMissing, entries[0].ErrorCode)
	assert.Equal(t, 1, session.Failed)
}

func TestRun_ReferenceModeNeverCopiesBytes(t *testing.T) {
	db := setupIngestTestDB(t)
	source := t.TempDir()
	libRoot := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(source, "clip.mp4"), []byte("reference me"), 0o644))

	p, library := newTestPipeline(db)
	library.RootPath = libRoot
	library.IngestMode = models.IngestModeReference
	libraries := repository.NewLibraryRepository(db)
	require.NoError(t, libraries.Create(context.Background(), library))

	session := newSession(t, db, source)
	ctx := context.Background()

	entries, err := p.Seal(ctx, session)
	require.NoError(t, err)

	require.NoError(t, p.Run(ctx, library, session, entries, nil))

	assets := repository.NewAssetRepository(db)
	asset, err := assets.GetByID(ctx, *entries[0].AssetID)
	require.NoError(t, err)
	assert.True(t, asset.IsReference())

	originalsDir := filepath.Join(libRoot, ".dadcam", "originals")
	_, err = os.Stat(originalsDir)
	assert.True(t, os.IsNotExist(err))
}

func TestRun_PairedSidecarLinksToParentClip(t *testing.T) {
	db := setupIngestTestDB(t)
	source := t.TempDir()
	libRoot := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(source, "clip.mp4"), []byte("video bytes"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(source, "clip.thm"), []byte("thumb bytes"), 0o644))

	p, library := newTestPipeline(db)
	library.RootPath = libRoot
	libraries := repository.NewLibraryRepository(db)
	require.NoError(t, libraries.Create(context.Background(), library))

	session := newSession(t, db, source)
	ctx := context.Background()

	entries, err := p.Seal(ctx, session)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.NoError(t, p.Run(ctx, library, session, entries, nil))

	var mediaEntry, sidecarEntry *models.ManifestEntry
	for _, e := range entries {
		if e.EntryType == models.ManifestEntryTypeMedia {
			mediaEntry = e
		} else {
			sidecarEntry = e
		}
	}
	require.NotNil(t, mediaEntry)
	require.NotNil(t, sidecarEntry)

	clips := repository.NewClipRepository(db)
	clip, err := clips.GetByOriginalAssetID(ctx, *mediaEntry.AssetID)
	require.NoError(t, err)
	require.NotNil(t, clip)

	linkedAssets, err := clips.GetAssets(ctx, clip.ID)
	require.NoError(t, err)
	assert.Len(t, linkedAssets, 2)
}
