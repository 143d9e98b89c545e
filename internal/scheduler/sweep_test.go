package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/jmylchreest/camvault/internal/models"
	"github.com/jmylchreest/camvault/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSweepTestDB(t *testing.T) (repository.JobRepository, repository.LibraryRepository, repository.AssetRepository) {
	db := setupExecutorTestDB(t)
	require.NoError(t, db.AutoMigrate(&models.Library{}, &models.Asset{}))
	jobs := repository.NewJobRepository(db)
	libraries := repository.NewLibraryRepository(db)
	assets := repository.NewAssetRepository(db)
	return jobs, libraries, assets
}

func TestSweeper_EnqueuesRematchPerLibrary(t *testing.T) {
	jobs, libraries, assets := setupSweepTestDB(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		lib := &models.Library{Name: "lib", RootPath: "/tmp/lib" + string(rune('a'+i))}
		require.NoError(t, libraries.Create(ctx, lib))
	}

	sweeper := NewSweeper(jobs, libraries, assets).WithLogger(silentLogger())
	sweeper.runRematchSweep()

	pending, err := jobs.GetPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
	for _, j := range pending {
		assert.Equal(t, models.JobTypeRematch, j.Type)
	}
}

func TestSweeper_SkipsLibraryWithPendingRematch(t *testing.T) {
	jobs, libraries, assets := setupSweepTestDB(t)
	ctx := context.Background()

	lib := &models.Library{Name: "lib", RootPath: "/tmp/lib"}
	require.NoError(t, libraries.Create(ctx, lib))

	existing := models.NewRematchJob(lib.ID)
	require.NoError(t, jobs.Create(ctx, existing))

	sweeper := NewSweeper(jobs, libraries, assets).WithLogger(silentLogger())
	sweeper.runRematchSweep()

	pending, err := jobs.GetPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestSweeper_StartRegistersCronEntry(t *testing.T) {
	jobs, libraries, assets := setupSweepTestDB(t)

	sweeper := NewSweeper(jobs, libraries, assets).
		WithLogger(silentLogger()).
		WithConfig(SweepConfig{RematchCronSchedule: "0 0 3 * * *"})

	require.NoError(t, sweeper.Start(context.Background()))
	defer sweeper.Stop()

	next := sweeper.NextRematchRun()
	assert.False(t, next.IsZero())
	assert.True(t, next.After(time.Now()))
}

func TestSweeper_EnqueuesReextractForLibraryWithStaleAssets(t *testing.T) {
	jobs, libraries, assets := setupSweepTestDB(t)
	ctx := context.Background()

	lib := &models.Library{Name: "lib", RootPath: "/tmp/lib"}
	require.NoError(t, libraries.Create(ctx, lib))

	stale := &models.Asset{
		LibraryID:       lib.ID,
		AssetType:       models.AssetTypeOriginal,
		Path:            "clip-001.mp4",
		SizeBytes:       1024,
		PipelineVersion: 0,
	}
	require.NoError(t, assets.Create(ctx, stale))

	sweeper := NewSweeper(jobs, libraries, assets).WithLogger(silentLogger())
	sweeper.runReextractSweep()

	pending, err := jobs.GetPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, models.JobTypeReextract, pending[0].Type)
}

func TestSweeper_SkipsLibraryWithNoStaleAssets(t *testing.T) {
	jobs, libraries, assets := setupSweepTestDB(t)
	ctx := context.Background()

	lib := &models.Library{Name: "lib", RootPath: "/tmp/lib"}
	require.NoError(t, libraries.Create(ctx, lib))

	current := &models.Asset{
		LibraryID:       lib.ID,
		AssetType:       models.AssetTypeOriginal,
		Path:            "clip-001.mp4",
		SizeBytes:       1024,
		PipelineVersion: 1,
	}
	require.NoError(t, assets.Create(ctx, current))

	sweeper := NewSweeper(jobs, libraries, assets).WithLogger(silentLogger())
	sweeper.runReextractSweep()

	pending, err := jobs.GetPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSweeper_DisablesReextractWithoutAssetRepo(t *testing.T) {
	jobs, libraries, _ := setupSweepTestDB(t)

	sweeper := NewSweeper(jobs, libraries, nil).
		WithLogger(silentLogger()).
		WithConfig(SweepConfig{RematchCronSchedule: "0 0 3 * * *", ReextractCronSchedule: "0 0 * * * *"})

	require.NoError(t, sweeper.Start(context.Background()))
	defer sweeper.Stop()

	assert.True(t, sweeper.NextReextractRun().IsZero())
	assert.False(t, sweeper.NextRematchRun().IsZero())
}
