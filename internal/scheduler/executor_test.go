package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/jmylchreest/camvault/internal/models"
	"github.com/jmylchreest/camvault/internal/repository"
	"github.com/jmylchreest/camvault/internal/service/progress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupExecutorTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Job{}, &models.JobHistory{}))
	return db
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockJobHandler struct {
	result string
	err    error
	panics bool
	called bool
}

func (m *mockJobHandler) Execute(ctx context.Context, job *models.Job) (string, error) {
	m.called = true
	if m.panics {
		panic("handler exploded")
	}
	return m.result, m.err
}

func TestExecutor_Execute_Success(t *testing.T) {
	db := setupExecutorTestDB(t)
	jobs := repository.NewJobRepository(db)
	ctx := context.Background()

	job := &models.Job{Type: models.JobTypeIngest, TargetName: "session-1", MaxAttempts: 3}
	require.NoError(t, jobs.Create(ctx, job))
	job.MarkRunning("worker-1")
	require.NoError(t, jobs.Update(ctx, job))

	executor := NewExecutor(jobs, silentLogger())
	handler := &mockJobHandler{result: "processed=1"}
	executor.RegisterHandler(models.JobTypeIngest, handler)

	require.NoError(t, executor.Execute(ctx, job))

	assert.True(t, handler.called)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Equal(t, "processed=1", job.Result)

	_, total, err := jobs.GetHistory(ctx, nil, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestExecutor_Execute_FailureSchedulesRetry(t *testing.T) {
	db := setupExecutorTestDB(t)
	jobs := repository.NewJobRepository(db)
	ctx := context.Background()

	job := &models.Job{Type: models.JobTypeRescan, TargetName: "session-1", MaxAttempts: 3, BackoffSeconds: 1}
	require.NoError(t, jobs.Create(ctx, job))
	job.MarkRunning("worker-1")
	require.NoError(t, jobs.Update(ctx, job))

	executor := NewExecutor(jobs, silentLogger())
	handler := &mockJobHandler{err: errors.New("source unreachable")}
	executor.RegisterHandler(models.JobTypeRescan, handler)

	require.NoError(t, executor.Execute(ctx, job))

	assert.Equal(t, models.JobStatusScheduled, job.Status)
	assert.NotNil(t, job.NextRunAt)
}

func TestExecutor_Execute_PanicIsIsolated(t *testing.T) {
	db := setupExecutorTestDB(t)
	jobs := repository.NewJobRepository(db)
	ctx := context.Background()

	job := &models.Job{Type: models.JobTypeRematch, TargetName: "library-1", MaxAttempts: 0}
	require.NoError(t, jobs.Create(ctx, job))
	job.MarkRunning("worker-1")
	require.NoError(t, jobs.Update(ctx, job))

	executor := NewExecutor(jobs, silentLogger())
	handler := &mockJobHandler{panics: true}
	executor.RegisterHandler(models.JobTypeRematch, handler)

	assert.NotPanics(t, func() {
		require.NoError(t, executor.Execute(ctx, job))
	})

	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Contains(t, job.LastError, "panic")
}

func TestExecutor_Execute_NoHandler(t *testing.T) {
	db := setupExecutorTestDB(t)
	jobs := repository.NewJobRepository(db)
	ctx := context.Background()

	job := &models.Job{Type: models.JobTypeReextract, TargetName: "library-1"}
	require.NoError(t, jobs.Create(ctx, job))

	executor := NewExecutor(jobs, silentLogger())
	err := executor.Execute(ctx, job)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no handler registered")
}

func TestExecutor_Execute_PublishesProgressOperation(t *testing.T) {
	db := setupExecutorTestDB(t)
	jobs := repository.NewJobRepository(db)
	ctx := context.Background()

	job := &models.Job{Type: models.JobTypeIngest, TargetName: "session-1", MaxAttempts: 3}
	require.NoError(t, jobs.Create(ctx, job))
	job.MarkRunning("worker-1")
	require.NoError(t, jobs.Update(ctx, job))

	progressSvc := progress.NewService(silentLogger())
	executor := NewExecutor(jobs, silentLogger()).WithProgress(progressSvc)
	handler := &mockJobHandler{result: "processed=1"}
	executor.RegisterHandler(models.JobTypeIngest, handler)

	require.NoError(t, executor.Execute(ctx, job))

	op, err := progressSvc.GetOperationByOwner("job", job.ID)
	require.NoError(t, err)
	assert.Equal(t, progress.StateCompleted, op.State)
	assert.Equal(t, progress.OpIngest, op.OperationType)
}

func TestExecutor_Execute_PublishesFailedProgressOperation(t *testing.T) {
	db := setupExecutorTestDB(t)
	jobs := repository.NewJobRepository(db)
	ctx := context.Background()

	job := &models.Job{Type: models.JobTypeRescan, TargetName: "session-1", MaxAttempts: 1}
	require.NoError(t, jobs.Create(ctx, job))
	job.MarkRunning("worker-1")
	require.NoError(t, jobs.Update(ctx, job))

	progressSvc := progress.NewService(silentLogger())
	executor := NewExecutor(jobs, silentLogger()).WithProgress(progressSvc)
	handler := &mockJobHandler{err: errors.New("source unreachable")}
	executor.RegisterHandler(models.JobTypeRescan, handler)

	require.NoError(t, executor.Execute(ctx, job))

	op, err := progressSvc.GetOperationByOwner("job", job.ID)
	require.NoError(t, err)
	assert.Equal(t, progress.StateError, op.State)
	assert.Contains(t, op.Error, "source unreachable")
}
