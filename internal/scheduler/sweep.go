package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jmylchreest/camvault/internal/ingest"
	"github.com/jmylchreest/camvault/internal/models"
	"github.com/jmylchreest/camvault/internal/repository"
)

// DefaultRematchSweepSchedule runs a rematch sweep across every library once
// a day, so clips left on GenericFallbackProfileRef after a camera profile
// update get re-evaluated without a user manually triggering it.
const DefaultRematchSweepSchedule = "0 0 3 * * *"

// DefaultReextractSweepSchedule runs a reextract sweep across every library
// once an hour, so assets left on a stale pipeline version (including those
// whose last reextract failed) get retried without a user manually
// triggering it.
const DefaultReextractSweepSchedule = "0 0 * * * *"

// SweepConfig configures the recurring library sweeps.
type SweepConfig struct {
	// RematchCronSchedule is the cron expression for the rematch sweep.
	// Empty disables it.
	RematchCronSchedule string
	// ReextractCronSchedule is the cron expression for the reextract sweep.
	// Empty disables it.
	ReextractCronSchedule string
}

// DefaultSweepConfig returns the default sweep configuration.
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		RematchCronSchedule:   DefaultRematchSweepSchedule,
		ReextractCronSchedule: DefaultReextractSweepSchedule,
	}
}

// Sweeper periodically enqueues rematch jobs for every known library, using
// robfig/cron as the timing engine. Unlike the per-source schedules the
// teacher's Scheduler drives (one cron entry per stream/EPG source), camvault
// has no per-source granularity to sweep over - rematch and reextract are
// library-scoped operations - so Sweeper carries a small, fixed set of
// named sweeps rather than a database-driven entry map.
type Sweeper struct {
	mu sync.RWMutex

	jobRepo       repository.JobRepository
	libraryRepo   repository.LibraryRepository
	assetRepo     repository.AssetRepository
	logger        *slog.Logger
	cronScheduler *cron.Cron
	parser        cron.Parser
	config        SweepConfig

	rematchEntry   cron.EntryID
	reextractEntry cron.EntryID

	ctx    context.Context
	cancel context.CancelFunc
}

// NewSweeper creates a new library sweeper. assetRepo may be nil, which
// disables the reextract sweep regardless of SweepConfig - useful for
// callers (and tests) that only care about the rematch sweep.
func NewSweeper(jobRepo repository.JobRepository, libraryRepo repository.LibraryRepository, assetRepo repository.AssetRepository) *Sweeper {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	cronScheduler := cron.New(cron.WithParser(parser), cron.WithChain(
		cron.Recover(cron.DefaultLogger),
	))

	return &Sweeper{
		jobRepo:       jobRepo,
		libraryRepo:   libraryRepo,
		assetRepo:     assetRepo,
		logger:        slog.Default(),
		cronScheduler: cronScheduler,
		parser:        parser,
		config:        DefaultSweepConfig(),
	}
}

// WithLogger sets a custom logger.
func (s *Sweeper) WithLogger(logger *slog.Logger) *Sweeper {
	s.logger = logger
	return s
}

// WithConfig applies configuration to the sweeper.
func (s *Sweeper) WithConfig(config SweepConfig) *Sweeper {
	s.config = config
	return s
}

// Start registers the configured sweeps and starts the cron timer.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx != nil {
		return fmt.Errorf("sweeper already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	if s.config.RematchCronSchedule != "" {
		id, err := s.cronScheduler.AddFunc(s.config.RematchCronSchedule, s.runRematchSweep)
		if err != nil {
			return fmt.Errorf("registering rematch sweep: %w", err)
		}
		s.rematchEntry = id
	}

	if s.config.ReextractCronSchedule != "" && s.assetRepo != nil {
		id, err := s.cronScheduler.AddFunc(s.config.ReextractCronSchedule, s.runReextractSweep)
		if err != nil {
			return fmt.Errorf("registering reextract sweep: %w", err)
		}
		s.reextractEntry = id
	}

	s.cronScheduler.Start()
	s.logger.Info("sweeper started",
		slog.String("rematch_schedule", s.config.RematchCronSchedule),
		slog.String("reextract_schedule", s.config.ReextractCronSchedule))
	return nil
}

// Stop stops the cron timer and waits for any in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	stopCtx := s.cronScheduler.Stop()
	s.mu.Unlock()

	<-stopCtx.Done()

	s.mu.Lock()
	s.ctx = nil
	s.cancel = nil
	s.mu.Unlock()

	s.logger.Info("sweeper stopped")
}

// runRematchSweep enqueues a rematch job for every library that doesn't
// already have one pending, deferring to the job queue's own dedup check.
func (s *Sweeper) runRematchSweep() {
	ctx := context.Background()

	libraries, err := s.libraryRepo.GetAll(ctx)
	if err != nil {
		s.logger.Error("rematch sweep: failed to list libraries", slog.Any("error", err))
		return
	}

	enqueued := 0
	for _, library := range libraries {
		existing, err := s.jobRepo.FindDuplicatePending(ctx, models.JobTypeRematch, library.ID)
		if err != nil {
			s.logger.Error("rematch sweep: dedup check failed",
				slog.String("library", library.Name), slog.Any("error", err))
			continue
		}
		if existing != nil {
			continue
		}

		job := models.NewRematchJob(library.ID)
		job.TargetName = library.Name
		if err := s.jobRepo.Create(ctx, job); err != nil {
			s.logger.Error("rematch sweep: failed to enqueue job",
				slog.String("library", library.Name), slog.Any("error", err))
			continue
		}
		enqueued++
	}

	if enqueued > 0 {
		s.logger.Info("rematch sweep enqueued jobs", slog.Int("count", enqueued))
	}
}

// NextRematchRun reports when the rematch sweep will next fire, for status
// reporting. Returns the zero time if the sweep is disabled or not started.
func (s *Sweeper) NextRematchRun() time.Time {
	return s.nextEntry(s.rematchEntry)
}

// NextReextractRun reports when the reextract sweep will next fire, for
// status reporting. Returns the zero time if the sweep is disabled or not
// started.
func (s *Sweeper) NextReextractRun() time.Time {
	return s.nextEntry(s.reextractEntry)
}

func (s *Sweeper) nextEntry(id cron.EntryID) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id == 0 {
		return time.Time{}
	}
	entry := s.cronScheduler.Entry(id)
	if entry.ID == 0 {
		return time.Time{}
	}
	return entry.Next
}

// runReextractSweep enqueues a reextract job for every library that has at
// least one asset on a stale pipeline version, deferring to the job queue's
// own dedup check to avoid piling up duplicate jobs.
func (s *Sweeper) runReextractSweep() {
	if s.assetRepo == nil {
		return
	}
	ctx := context.Background()

	libraries, err := s.libraryRepo.GetAll(ctx)
	if err != nil {
		s.logger.Error("reextract sweep: failed to list libraries", slog.Any("error", err))
		return
	}

	enqueued := 0
	for _, library := range libraries {
		stale, err := s.assetRepo.GetStalePipelineVersion(ctx, library.ID, ingest.PipelineVersion)
		if err != nil {
			s.logger.Error("reextract sweep: stale-asset check failed",
				slog.String("library", library.Name), slog.Any("error", err))
			continue
		}
		if len(stale) == 0 {
			continue
		}

		existing, err := s.jobRepo.FindDuplicatePending(ctx, models.JobTypeReextract, library.ID)
		if err != nil {
			s.logger.Error("reextract sweep: dedup check failed",
				slog.String("library", library.Name), slog.Any("error", err))
			continue
		}
		if existing != nil {
			continue
		}

		job := models.NewReextractJob(library.ID)
		job.TargetName = library.Name
		if err := s.jobRepo.Create(ctx, job); err != nil {
			s.logger.Error("reextract sweep: failed to enqueue job",
				slog.String("library", library.Name), slog.Any("error", err))
			continue
		}
		enqueued++
	}

	if enqueued > 0 {
		s.logger.Info("reextract sweep enqueued jobs", slog.Int("count", enqueued))
	}
}
