package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/jmylchreest/camvault/internal/libctx"
	"github.com/jmylchreest/camvault/internal/models"
	"github.com/jmylchreest/camvault/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingJobHandler runs until its context is cancelled, used to exercise
// Runner.CancelJob against an already-running job.
type blockingJobHandler struct {
	started chan struct{}
}

func (h *blockingJobHandler) Execute(ctx context.Context, job *models.Job) (string, error) {
	close(h.started)
	<-ctx.Done()
	return "", ctx.Err()
}

func TestRunner_CancelJob_CancelsRunningJob(t *testing.T) {
	db := setupExecutorTestDB(t)
	jobs := repository.NewJobRepository(db)
	ctx := context.Background()

	job := &models.Job{Type: models.JobTypeIngest, TargetName: "session-1", MaxAttempts: 1}
	require.NoError(t, jobs.Create(ctx, job))

	executor := NewExecutor(jobs, silentLogger())
	handler := &blockingJobHandler{started: make(chan struct{})}
	executor.RegisterHandler(models.JobTypeIngest, handler)

	libs := libctx.New()
	libs.Open(&models.Library{Name: "lib", RootPath: "/tmp/lib"})

	runner := NewRunner(jobs, executor, libs).
		WithLogger(silentLogger()).
		WithConfig(RunnerConfig{PollInterval: 10 * time.Millisecond, CleanupEnable: false})

	require.NoError(t, runner.Start(context.Background()))
	defer runner.Stop()

	select {
	case <-handler.started:
	case <-time.After(time.Second):
		t.Fatal("handler never started")
	}

	require.NoError(t, runner.CancelJob(ctx, job.ID))

	require.Eventually(t, func() bool {
		updated, err := jobs.GetByID(ctx, job.ID)
		return err == nil && updated != nil && updated.Status == models.JobStatusFailed
	}, time.Second, 10*time.Millisecond)
}

func TestRunner_CancelJob_CancelsPendingJob(t *testing.T) {
	db := setupExecutorTestDB(t)
	jobs := repository.NewJobRepository(db)
	ctx := context.Background()

	job := &models.Job{Type: models.JobTypeRescan, TargetName: "session-2"}
	require.NoError(t, jobs.Create(ctx, job))

	executor := NewExecutor(jobs, silentLogger())
	libs := libctx.New()
	runner := NewRunner(jobs, executor, libs).WithLogger(silentLogger())

	require.NoError(t, runner.CancelJob(ctx, job.ID))

	updated, err := jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, models.JobStatusCancelled, updated.Status)
}

func TestRunner_CancelJob_UnknownJobReturnsError(t *testing.T) {
	db := setupExecutorTestDB(t)
	jobs := repository.NewJobRepository(db)
	executor := NewExecutor(jobs, silentLogger())
	libs := libctx.New()
	runner := NewRunner(jobs, executor, libs).WithLogger(silentLogger())

	err := runner.CancelJob(context.Background(), models.NewULID())
	assert.Error(t, err)
}
