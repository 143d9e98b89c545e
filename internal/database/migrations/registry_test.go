package migrations

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/jmylchreest/camvault/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return db
}

func TestAllMigrations_ReturnsExpectedCount(t *testing.T) {
	migrations := AllMigrations()

	// 001: Create all database tables (schema)
	assert.Len(t, migrations, 1)
}

func TestAllMigrations_VersionsAreUnique(t *testing.T) {
	migrations := AllMigrations()
	versions := make(map[string]bool)

	for _, m := range migrations {
		assert.False(t, versions[m.Version], "duplicate version: %s", m.Version)
		versions[m.Version] = true
	}
}

func TestAllMigrations_VersionsAreOrdered(t *testing.T) {
	migrations := AllMigrations()

	for i := 1; i < len(migrations); i++ {
		assert.Less(t, migrations[i-1].Version, migrations[i].Version,
			"migrations should be in ascending version order")
	}
}

func TestMigrator_Up_AllMigrations(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	migrator := NewMigrator(db, nil)
	migrator.RegisterAll(AllMigrations())

	err := migrator.Up(ctx)
	require.NoError(t, err)

	// Verify all tables exist
	assert.True(t, db.Migrator().HasTable("libraries"))
	assert.True(t, db.Migrator().HasTable("camera_profiles"))
	assert.True(t, db.Migrator().HasTable("camera_devices"))
	assert.True(t, db.Migrator().HasTable("ingest_sessions"))
	assert.True(t, db.Migrator().HasTable("manifest_entries"))
	assert.True(t, db.Migrator().HasTable("assets"))
	assert.True(t, db.Migrator().HasTable("clips"))
	assert.True(t, db.Migrator().HasTable("clip_assets"))
	assert.True(t, db.Migrator().HasTable("jobs"))
	assert.True(t, db.Migrator().HasTable("job_history"))
}

func TestMigrator_Up_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	migrator := NewMigrator(db, nil)
	migrator.RegisterAll(AllMigrations())

	// Run migrations twice - should not error
	err := migrator.Up(ctx)
	require.NoError(t, err)

	err = migrator.Up(ctx)
	require.NoError(t, err)
}

func TestMigrator_Status(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	migrator := NewMigrator(db, nil)
	migrator.RegisterAll(AllMigrations())

	// Before running migrations
	statuses, err := migrator.Status(ctx)
	require.NoError(t, err)
	assert.Len(t, statuses, 1)

	for _, s := range statuses {
		assert.False(t, s.Applied)
		assert.Nil(t, s.AppliedAt)
	}

	// After running migrations
	err = migrator.Up(ctx)
	require.NoError(t, err)

	statuses, err = migrator.Status(ctx)
	require.NoError(t, err)

	for _, s := range statuses {
		assert.True(t, s.Applied)
		assert.NotNil(t, s.AppliedAt)
	}
}

func TestMigrator_Down_RollsBackLastMigration(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	migrator := NewMigrator(db, nil)
	migrator.RegisterAll(AllMigrations())

	err := migrator.Up(ctx)
	require.NoError(t, err)

	assert.True(t, db.Migrator().HasTable("clips"))
	assert.True(t, db.Migrator().HasTable("jobs"))

	// Roll back migration 001 (schema)
	err = migrator.Down(ctx)
	require.NoError(t, err)

	// Tables should no longer exist
	assert.False(t, db.Migrator().HasTable("clips"))
	assert.False(t, db.Migrator().HasTable("jobs"))
	assert.False(t, db.Migrator().HasTable("libraries"))
}

func TestMigrator_Pending(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	migrator := NewMigrator(db, nil)
	migrator.RegisterAll(AllMigrations())

	// All should be pending initially
	pending, err := migrator.Pending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	// Run migrations
	err = migrator.Up(ctx)
	require.NoError(t, err)

	// None should be pending
	pending, err = migrator.Pending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 0)
}

func TestMigrations_CanInsertData(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	migrator := NewMigrator(db, nil)
	migrator.RegisterAll(AllMigrations())

	err := migrator.Up(ctx)
	require.NoError(t, err)

	library := &models.Library{
		RootPath: "/mnt/library",
		Name:     "Family Videos",
	}
	err = db.Create(library).Error
	require.NoError(t, err)
	assert.NotZero(t, library.ID)
	assert.NotEmpty(t, library.UUID)

	profile := &models.CameraProfile{
		Name: "gopro-hero-11",
		MatchRules: models.MatchRules{
			Make:  []string{"GoPro"},
			Model: []string{"HERO11"},
		},
	}
	err = db.Create(profile).Error
	require.NoError(t, err)
	assert.NotZero(t, profile.ID)
	assert.Equal(t, 1, profile.Version)

	session := &models.IngestSession{
		SourceRoot:   "/media/sdcard",
		ManifestHash: "blake3:full:deadbeef",
	}
	err = db.Create(session).Error
	require.NoError(t, err)
	assert.NotZero(t, session.ID)
}

func TestMigrations_ClipAssetRelationships(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	migrator := NewMigrator(db, nil)
	migrator.RegisterAll(AllMigrations())

	err := migrator.Up(ctx)
	require.NoError(t, err)

	library := &models.Library{RootPath: "/mnt/library", Name: "Library"}
	require.NoError(t, db.Create(library).Error)

	original := &models.Asset{
		LibraryID: library.ID,
		AssetType: models.AssetTypeOriginal,
		Path:      "originals/2026/07/clip.mp4",
		SizeBytes: 1024,
	}
	require.NoError(t, db.Create(original).Error)

	thumb := &models.Asset{
		LibraryID: library.ID,
		AssetType: models.AssetTypeThumb,
		Path:      ".dadcam/thumbs/clip.jpg",
		SizeBytes: 32,
	}
	require.NoError(t, db.Create(thumb).Error)

	clip := &models.Clip{
		LibraryID:       library.ID,
		OriginalAssetID: original.ID,
	}
	require.NoError(t, db.Create(clip).Error)

	require.NoError(t, db.Create(&models.ClipAsset{ClipID: clip.ID, AssetID: original.ID, Role: models.ClipAssetRoleOriginal}).Error)
	require.NoError(t, db.Create(&models.ClipAsset{ClipID: clip.ID, AssetID: thumb.ID, Role: models.ClipAssetRoleThumb}).Error)

	var links []models.ClipAsset
	err = db.Where("clip_id = ?", clip.ID).Find(&links).Error
	require.NoError(t, err)
	assert.Len(t, links, 2)
}
