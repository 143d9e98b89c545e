package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/camvault/internal/libctx"
	"github.com/jmylchreest/camvault/internal/models"
	"github.com/jmylchreest/camvault/internal/repository"
)

// Runner drives a single worker thread, grounded on the original Rust
// jobs/worker.rs::worker_loop and spec.md §4.9's explicit "single worker
// thread" requirement: every pollInterval, if a library is open, claim
// one pending job and drain the queue before sleeping again.
type Runner struct {
	mu sync.RWMutex

	jobRepo  repository.JobRepository
	executor *Executor
	libs     *libctx.Handle
	logger   *slog.Logger
	cancels  *CancelRegistry

	pollInterval  time.Duration
	leaseDuration time.Duration
	workerID      string
	jobTimeout    time.Duration
	cleanupAge    time.Duration
	cleanupEnable bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// RunnerConfig holds configuration for the runner.
type RunnerConfig struct {
	// PollInterval is how often the worker polls for jobs when idle.
	// Default: 5 seconds, per spec.md §4.9.
	PollInterval time.Duration

	// LeaseDuration is how long an acquired job holds its lease before it
	// is considered crashed and eligible for re-acquisition.
	// Default: 5 minutes, per spec.md §4.9 (LEASE).
	LeaseDuration time.Duration

	// WorkerID identifies this process for job locking.
	WorkerID string

	// JobTimeout bounds a single job's execution.
	JobTimeout time.Duration

	// CleanupAge is the age after which completed jobs are deleted.
	CleanupAge time.Duration

	// CleanupEnable enables automatic cleanup of old jobs.
	CleanupEnable bool
}

// DefaultRunnerConfig returns the default runner configuration.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		PollInterval:  5 * time.Second,
		LeaseDuration: 5 * time.Minute,
		WorkerID:      fmt.Sprintf("worker-%d", time.Now().UnixNano()),
		JobTimeout:    time.Hour,
		CleanupAge:    7 * 24 * time.Hour,
		CleanupEnable: true,
	}
}

// NewRunner creates a single-worker job runner.
func NewRunner(jobRepo repository.JobRepository, executor *Executor, libs *libctx.Handle) *Runner {
	config := DefaultRunnerConfig()
	return &Runner{
		jobRepo:       jobRepo,
		executor:      executor,
		libs:          libs,
		logger:        slog.Default(),
		cancels:       NewCancelRegistry(),
		pollInterval:  config.PollInterval,
		leaseDuration: config.LeaseDuration,
		workerID:      config.WorkerID,
		jobTimeout:    config.JobTimeout,
		cleanupAge:    config.CleanupAge,
		cleanupEnable: config.CleanupEnable,
	}
}

// WithLogger sets a custom logger.
func (r *Runner) WithLogger(logger *slog.Logger) *Runner {
	r.logger = logger
	return r
}

// WithConfig applies configuration to the runner.
func (r *Runner) WithConfig(config RunnerConfig) *Runner {
	if config.PollInterval > 0 {
		r.pollInterval = config.PollInterval
	}
	if config.LeaseDuration > 0 {
		r.leaseDuration = config.LeaseDuration
	}
	if config.WorkerID != "" {
		r.workerID = config.WorkerID
	}
	if config.JobTimeout > 0 {
		r.jobTimeout = config.JobTimeout
	}
	if config.CleanupAge > 0 {
		r.cleanupAge = config.CleanupAge
	}
	r.cleanupEnable = config.CleanupEnable
	return r
}

// Start begins the single worker thread.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ctx != nil {
		return fmt.Errorf("runner already started")
	}

	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.worker()

	if r.cleanupEnable {
		r.wg.Add(1)
		go r.cleanup()
	}

	r.wg.Add(1)
	go r.recoverStaleJobs()

	r.logger.Info("runner started",
		slog.Duration("poll_interval", r.pollInterval),
		slog.String("worker_id", r.workerID))

	return nil
}

// Stop stops the worker and waits for it to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()

	r.wg.Wait()

	r.mu.Lock()
	r.ctx = nil
	r.cancel = nil
	r.mu.Unlock()

	r.logger.Info("runner stopped")
}

// worker is the single worker loop: sleep, then drain the queue while a
// library is open and jobs remain, then sleep again.
func (r *Runner) worker() {
	defer r.wg.Done()

	r.logger.Debug("worker started", slog.String("worker_id", r.workerID))

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debug("worker stopping", slog.String("worker_id", r.workerID))
			return
		case <-ticker.C:
			r.drain()
		}
	}
}

// drain keeps claiming and running jobs until none remain or the open
// library changes, per spec.md §4.9's drain loop.
func (r *Runner) drain() {
	openLibraryAtStart := r.libs.IsOpen()

	for {
		if r.ctx.Err() != nil {
			return
		}
		if !r.libs.IsOpen() {
			return
		}
		if r.libs.IsOpen() != openLibraryAtStart {
			return
		}

		processed, err := r.processOneJob()
		if err != nil {
			r.logger.Error("error processing job", slog.String("worker_id", r.workerID), slog.Any("error", err))
			return
		}
		if !processed {
			return
		}
	}
}

// processOneJob claims and runs a single job under panic isolation
// (Executor.Execute recovers internally), returning whether a job was
// found.
func (r *Runner) processOneJob() (bool, error) {
	job, err := r.jobRepo.AcquireJob(r.ctx, r.workerID)
	if err != nil {
		return false, fmt.Errorf("acquiring job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	r.logger.Debug("acquired job",
		slog.String("worker_id", r.workerID),
		slog.String("job_id", job.ID.String()),
		slog.String("type", string(job.Type)))

	jobCtx, cancel := context.WithTimeout(r.ctx, r.jobTimeout)
	defer cancel()

	release := r.cancels.Register(job.ID, cancel)
	defer release()

	if err := r.executor.Execute(jobCtx, job); err != nil {
		return true, fmt.Errorf("executing job: %w", err)
	}
	return true, nil
}

// cleanup periodically removes old completed jobs and history.
func (r *Runner) cleanup() {
	defer r.wg.Done()

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.performCleanup()
		}
	}
}

func (r *Runner) performCleanup() {
	cutoff := time.Now().Add(-r.cleanupAge)

	jobsDeleted, err := r.jobRepo.DeleteCompleted(r.ctx, cutoff)
	if err != nil {
		r.logger.Error("failed to clean up old jobs", slog.Any("error", err))
	} else if jobsDeleted > 0 {
		r.logger.Info("cleaned up old jobs", slog.Int64("deleted", jobsDeleted))
	}

	historyDeleted, err := r.jobRepo.DeleteHistory(r.ctx, cutoff)
	if err != nil {
		r.logger.Error("failed to clean up old history", slog.Any("error", err))
	} else if historyDeleted > 0 {
		r.logger.Info("cleaned up old history", slog.Int64("deleted", historyDeleted))
	}
}

// recoverStaleJobs periodically reclaims jobs whose lease expired before
// completion - e.g. a process crash mid-job.
func (r *Runner) recoverStaleJobs() {
	defer r.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.performStaleRecovery()
		}
	}
}

func (r *Runner) performStaleRecovery() {
	running, err := r.jobRepo.GetRunning(r.ctx)
	if err != nil {
		r.logger.Error("failed to get running jobs for stale recovery", slog.Any("error", err))
		return
	}

	cutoff := time.Now().Add(-r.leaseDuration)

	for _, job := range running {
		if job.LockedAt != nil && job.LockedAt.Before(cutoff) {
			r.logger.Warn("recovering stale job",
				slog.String("job_id", job.ID.String()),
				slog.String("locked_by", job.LockedBy),
				slog.Time("locked_at", job.LockedAt.UTC()))

			job.MarkFailed(fmt.Errorf("job stale: lease expired since %s", job.LockedAt.Format(time.RFC3339)))
			if job.CanRetry() {
				job.ScheduleRetry()
			}

			if err := r.jobRepo.Update(r.ctx, job); err != nil {
				r.logger.Error("failed to recover stale job",
					slog.String("job_id", job.ID.String()),
					slog.Any("error", err))
			}
		}
	}
}

// CancelJob requests cancellation of jobID. If the job is currently
// executing, its context is cancelled so the handler can unwind via the
// normal error path. If it is only pending, it is marked cancelled
// directly. A job that is already finished is left as it is and nil is
// returned; an unknown jobID returns a plain "job not found" error.
func (r *Runner) CancelJob(ctx context.Context, jobID models.ULID) error {
	if r.cancels.Cancel(jobID) {
		return nil
	}

	job, err := r.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("loading job for cancellation: %w", err)
	}
	if job == nil {
		return fmt.Errorf("job not found: %s", jobID.String())
	}
	if job.IsFinished() {
		return nil
	}

	job.MarkCancelled()
	if err := r.jobRepo.Update(ctx, job); err != nil {
		return fmt.Errorf("marking job cancelled: %w", err)
	}
	return nil
}

// GetStatus returns the current runner status.
func (r *Runner) GetStatus() RunnerStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	running := r.ctx != nil && r.ctx.Err() == nil

	var pendingCount, runningCount int64
	if running {
		pending, _ := r.jobRepo.GetPending(r.ctx)
		pendingCount = int64(len(pending))
		runningJobs, _ := r.jobRepo.GetRunning(r.ctx)
		runningCount = int64(len(runningJobs))
	}

	return RunnerStatus{
		Running:      running,
		WorkerID:     r.workerID,
		PendingJobs:  pendingCount,
		RunningJobs:  runningCount,
		PollInterval: r.pollInterval,
	}
}

// RunnerStatus represents the current state of the runner.
type RunnerStatus struct {
	Running      bool          `json:"running"`
	WorkerID     string        `json:"worker_id"`
	PendingJobs  int64         `json:"pending_jobs"`
	RunningJobs  int64         `json:"running_jobs"`
	PollInterval time.Duration `json:"poll_interval"`
}
