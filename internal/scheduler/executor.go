package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmylchreest/camvault/internal/camera"
	"github.com/jmylchreest/camvault/internal/camerror"
	"github.com/jmylchreest/camvault/internal/ingest"
	"github.com/jmylchreest/camvault/internal/libctx"
	"github.com/jmylchreest/camvault/internal/metadata"
	"github.com/jmylchreest/camvault/internal/models"
	"github.com/jmylchreest/camvault/internal/repository"
	"github.com/jmylchreest/camvault/internal/rescan"
	"github.com/jmylchreest/camvault/internal/service/progress"
	"github.com/jmylchreest/camvault/internal/sidecar"
)

// jobOperationType maps a job kind to its progress operation type, the
// two enums existing in lockstep per internal/service/progress's own
// doc comment on OperationType.
func jobOperationType(jobType models.JobType) progress.OperationType {
	switch jobType {
	case models.JobTypeIngest:
		return progress.OpIngest
	case models.JobTypeRescan:
		return progress.OpRescan
	case models.JobTypeRematch:
		return progress.OpRematch
	case models.JobTypeReextract:
		return progress.OpReextract
	default:
		return progress.OperationType(jobType)
	}
}

// JobHandler runs one job type and returns a human-readable result
// summary or an error, grounded on the teacher's scheduler.JobHandler.
type JobHandler interface {
	Execute(ctx context.Context, job *models.Job) (string, error)
}

// IngestHandler runs the copy-verify pipeline for a sealed session, then
// the rescan gate, grounded on spec.md §4.9's "ingest" job kind.
type IngestHandler struct {
	sessions repository.IngestSessionRepository
	pipeline *ingest.Pipeline
	gate     *rescan.Gate
	libs     *libctx.Handle
	logger   *slog.Logger
}

// NewIngestHandler creates an IngestHandler.
func NewIngestHandler(sessions repository.IngestSessionRepository, pipeline *ingest.Pipeline, gate *rescan.Gate, libs *libctx.Handle, logger *slog.Logger) *IngestHandler {
	return &IngestHandler{sessions: sessions, pipeline: pipeline, gate: gate, libs: libs, logger: logger}
}

// Execute processes job.TargetID as an ingest session ID: seals the
// manifest if not already sealed, runs the copy-verify pipeline over
// every entry, then runs the rescan gate to decide safeToWipeAt.
func (h *IngestHandler) Execute(ctx context.Context, job *models.Job) (string, error) {
	session, err := h.sessions.GetByID(ctx, job.TargetID)
	if err != nil {
		return "", camerror.Wrap(camerror.KindDatabase, "ingestHandler.loadSession", err)
	}
	if session == nil {
		return "", camerror.New(camerror.KindOther, "ingestHandler.sessionNotFound")
	}

	library, err := h.libs.Current()
	if err != nil {
		return "", err
	}

	entries, err := h.pipeline.Seal(ctx, session)
	if err != nil {
		return "", err
	}

	if err := h.pipeline.Run(ctx, library, session, entries, func(p ingest.Progress) {
		h.logger.Debug("ingest progress", "current", p.Current, "total", p.Total, "entry", p.Message)
	}); err != nil {
		return "", err
	}

	gateResult, err := h.gate.Run(ctx, session)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("processed=%d skipped=%d failed=%d safeToWipe=%v",
		session.Processed, session.Skipped, session.Failed, gateResult.Passed), nil
}

// RescanHandler re-runs the rescan gate for a session without touching
// the copy-verify pipeline, grounded on spec.md §4.9's "rescan" job kind.
type RescanHandler struct {
	sessions repository.IngestSessionRepository
	gate     *rescan.Gate
}

// NewRescanHandler creates a RescanHandler.
func NewRescanHandler(sessions repository.IngestSessionRepository, gate *rescan.Gate) *RescanHandler {
	return &RescanHandler{sessions: sessions, gate: gate}
}

// Execute treats job.TargetID as a session ID and re-evaluates whether it
// is safe to wipe.
func (h *RescanHandler) Execute(ctx context.Context, job *models.Job) (string, error) {
	session, err := h.sessions.GetByID(ctx, job.TargetID)
	if err != nil {
		return "", camerror.Wrap(camerror.KindDatabase, "rescanHandler.loadSession", err)
	}
	if session == nil {
		return "", camerror.New(camerror.KindOther, "rescanHandler.sessionNotFound")
	}

	result, err := h.gate.Run(ctx, session)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("safeToWipe=%v reason=%s", result.Passed, result.FailureKind), nil
}

// sidecarAuditEnvelope unmarshals only the inputSignature field out of a
// sidecar's opaque matchAudit blob, without internal/sidecar needing to
// depend on internal/camera.
type sidecarAuditEnvelope struct {
	InputSignature camera.InputSignature `json:"inputSignature"`
}

// RematchHandler re-evaluates camera matches for clips still carrying the
// generic fallback reference, using only the persisted sidecar input
// signature - never touching source media, per spec.md §4.9's "rematch"
// job kind.
type RematchHandler struct {
	libraries repository.LibraryRepository
	clips     repository.ClipRepository
	assets    repository.AssetRepository
	matcher   *camera.Matcher
	logger    *slog.Logger
}

// NewRematchHandler creates a RematchHandler.
func NewRematchHandler(libraries repository.LibraryRepository, clips repository.ClipRepository, assets repository.AssetRepository, matcher *camera.Matcher, logger *slog.Logger) *RematchHandler {
	return &RematchHandler{libraries: libraries, clips: clips, assets: assets, matcher: matcher, logger: logger}
}

// Execute treats job.TargetID as a library ID.
func (h *RematchHandler) Execute(ctx context.Context, job *models.Job) (string, error) {
	library, err := h.libraries.GetByID(ctx, job.TargetID)
	if err != nil {
		return "", camerror.Wrap(camerror.KindDatabase, "rematchHandler.loadLibrary", err)
	}
	if library == nil {
		return "", camerror.New(camerror.KindLibraryNotFound, "rematchHandler.libraryNotFound")
	}

	clips, err := h.clips.GetWithGenericFallback(ctx, library.ID)
	if err != nil {
		return "", camerror.Wrap(camerror.KindDatabase, "rematchHandler.loadClips", err)
	}

	sidecarsDir := filepath.Join(library.RootPath, ".dadcam", "sidecars")
	upgraded := 0

	for _, clip := range clips {
		s, err := sidecar.Read(sidecarsDir, clip.ID.String())
		if err != nil {
			h.logger.Warn("rematch: unreadable sidecar", "clip_id", clip.ID.String(), "error", err)
			continue
		}

		var envelope sidecarAuditEnvelope
		if err := json.Unmarshal(s.MatchAudit, &envelope); err != nil {
			h.logger.Warn("rematch: unparsable matchAudit", "clip_id", clip.ID.String(), "error", err)
			continue
		}

		result, err := h.matcher.Match(ctx, envelope.InputSignature)
		if err != nil {
			h.logger.Warn("rematch: matcher error", "clip_id", clip.ID.String(), "error", err)
			continue
		}
		if result.ProfileRef == "" || result.ProfileRef == models.GenericFallbackProfileRef {
			continue
		}

		clip.CameraProfileType = result.ProfileType
		clip.CameraProfileRef = result.ProfileRef
		clip.DeviceUUID = result.DeviceUUID
		if err := h.clips.Update(ctx, clip); err != nil {
			h.logger.Error("rematch: failed to persist upgraded match", "clip_id", clip.ID.String(), "error", err)
			continue
		}

		if err := h.markDerivedAssetsStale(ctx, clip.ID); err != nil {
			h.logger.Warn("rematch: failed to mark derived assets stale", "clip_id", clip.ID.String(), "error", err)
		}

		upgraded++
	}

	return fmt.Sprintf("evaluated=%d upgraded=%d", len(clips), upgraded), nil
}

// markDerivedAssetsStale sets pipelineVersion=0 on a clip's non-original
// assets so later derivation jobs regenerate them against the new match.
func (h *RematchHandler) markDerivedAssetsStale(ctx context.Context, clipID models.ULID) error {
	linked, err := h.clips.GetAssets(ctx, clipID)
	if err != nil {
		return err
	}
	for _, asset := range linked {
		if asset.AssetType == models.AssetTypeOriginal {
			continue
		}
		asset.PipelineVersion = 0
		if err := h.assets.Update(ctx, asset); err != nil {
			return err
		}
	}
	return nil
}

// ReextractHandler re-runs metadata extraction for a library's assets on
// a stale pipeline version, grounded on spec.md §4.9's "reextract" job
// kind.
type ReextractHandler struct {
	libraries repository.LibraryRepository
	clips     repository.ClipRepository
	assets    repository.AssetRepository
	extractor *metadata.Extractor
	logger    *slog.Logger
}

// NewReextractHandler creates a ReextractHandler.
func NewReextractHandler(libraries repository.LibraryRepository, clips repository.ClipRepository, assets repository.AssetRepository, extractor *metadata.Extractor, logger *slog.Logger) *ReextractHandler {
	return &ReextractHandler{libraries: libraries, clips: clips, assets: assets, extractor: extractor, logger: logger}
}

// Execute treats job.TargetID as a library ID.
func (h *ReextractHandler) Execute(ctx context.Context, job *models.Job) (string, error) {
	library, err := h.libraries.GetByID(ctx, job.TargetID)
	if err != nil {
		return "", camerror.Wrap(camerror.KindDatabase, "reextractHandler.loadLibrary", err)
	}
	if library == nil {
		return "", camerror.New(camerror.KindLibraryNotFound, "reextractHandler.libraryNotFound")
	}

	stale, err := h.assets.GetStalePipelineVersion(ctx, library.ID, ingest.PipelineVersion)
	if err != nil {
		return "", camerror.Wrap(camerror.KindDatabase, "reextractHandler.loadStaleAssets", err)
	}

	reextracted, failed := 0, 0

	for _, asset := range stale {
		if asset.AssetType != models.AssetTypeOriginal {
			continue
		}

		clip, err := h.clips.GetByOriginalAssetID(ctx, asset.ID)
		if err != nil || clip == nil {
			continue
		}

		absPath := resolveAssetPath(library.RootPath, asset)
		extraction, err := h.extractor.Extract(ctx, absPath)
		if err != nil {
			clip.MetadataStatus = models.MetadataStatusExtractionFailed
			_ = h.clips.Update(ctx, clip)
			failed++
			continue
		}
		metadata.ApplyFolderOrFilesystemFallback(&extraction.Metadata, absPath)

		clip.DurationMs = extraction.Metadata.DurationMs
		clip.Width = extraction.Metadata.Width
		clip.Height = extraction.Metadata.Height
		clip.FPS = extraction.Metadata.FPS
		clip.Codec = extraction.Metadata.Codec
		clip.AudioCodec = extraction.Metadata.AudioCodec
		clip.AudioChannels = extraction.Metadata.AudioChannels
		clip.AudioSampleRate = extraction.Metadata.AudioSampleRate
		clip.MetadataStatus = models.MetadataStatusExtracted

		if err := h.clips.Update(ctx, clip); err != nil {
			h.logger.Error("reextract: failed to persist clip", "clip_id", clip.ID.String(), "error", err)
			failed++
			continue
		}

		sidecarsDir := filepath.Join(library.RootPath, ".dadcam", "sidecars")
		if s, err := sidecar.Read(sidecarsDir, clip.ID.String()); err == nil {
			s.RawExifDump = extraction.RawExifDump
			s.RawFfprobe = extraction.RawFfprobeDump
			s.ExtractionStatus.Status = "extracted"
			s.ExtractionStatus.Exiftool = sidecar.ToolStatus{Success: extraction.ExifStatus.Success, ExitCode: extraction.ExifStatus.ExitCode, Error: extraction.ExifStatus.Error, PipelineVersion: ingest.PipelineVersion}
			s.ExtractionStatus.Ffprobe = sidecar.ToolStatus{Success: extraction.FfprobeStatus.Success, ExitCode: extraction.FfprobeStatus.ExitCode, Error: extraction.FfprobeStatus.Error}
			s.ExtractionStatus.ExtractedAt = time.Now().UTC().Format(time.RFC3339)
			if err := sidecar.Write(sidecarsDir, clip.ID.String(), s); err != nil {
				h.logger.Error("reextract: failed to rewrite sidecar", "clip_id", clip.ID.String(), "error", err)
			}
		}

		asset.PipelineVersion = ingest.PipelineVersion
		if err := h.assets.Update(ctx, asset); err != nil {
			h.logger.Error("reextract: failed to persist asset", "asset_id", asset.ID.String(), "error", err)
		}

		reextracted++
	}

	return fmt.Sprintf("candidates=%d reextracted=%d failed=%d", len(stale), reextracted, failed), nil
}

func resolveAssetPath(libraryRoot string, asset *models.Asset) string {
	if asset.IsReference() {
		return strings.TrimPrefix(asset.Path, "ref:")
	}
	return filepath.Join(libraryRoot, filepath.FromSlash(asset.Path))
}

// Executor dispatches jobs to their registered handler, adapted from the
// teacher's scheduler.Executor: same lifecycle (mark running, run, mark
// completed/failed, schedule retry, write history), generalized from one
// handler map entry per stream/EPG/proxy job to one per camvault job kind.
type Executor struct {
	handlers map[models.JobType]JobHandler
	jobRepo  repository.JobRepository
	logger   *slog.Logger
	progress *progress.Service
}

// NewExecutor creates a job executor.
func NewExecutor(jobRepo repository.JobRepository, logger *slog.Logger) *Executor {
	return &Executor{
		handlers: make(map[models.JobType]JobHandler),
		jobRepo:  jobRepo,
		logger:   logger,
	}
}

// WithProgress attaches a progress service so each job's lifecycle is
// published as a single-stage operation owned by ("job", job.ID),
// letting the command surface's /jobs/{id}/events SSE stream follow any
// job kind without each handler needing its own progress wiring.
func (e *Executor) WithProgress(svc *progress.Service) *Executor {
	e.progress = svc
	return e
}

// RegisterHandler registers a handler for a job type.
func (e *Executor) RegisterHandler(jobType models.JobType, handler JobHandler) {
	e.handlers[jobType] = handler
}

// Execute runs a job under panic isolation and persists its outcome.
// Panic isolation exists because this runner has no surrounding HTTP
// middleware to catch one for it, unlike the teacher's job executor.
func (e *Executor) Execute(ctx context.Context, job *models.Job) (execErr error) {
	handler, ok := e.handlers[job.Type]
	if !ok {
		return fmt.Errorf("no handler registered for job type: %s", job.Type)
	}

	var opMgr *progress.OperationManager
	if e.progress != nil {
		mgr, err := e.progress.StartOperation(jobOperationType(job.Type), job.ID, "job", job.TargetName, []progress.StageInfo{
			{ID: "run", Name: "run", Weight: 1},
		})
		if err != nil {
			e.logger.Warn("failed to start progress operation", "job_id", job.ID.String(), "error", err)
		} else {
			opMgr = mgr
			opMgr.SetState(progress.StateProcessing)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("job panicked", "job_id", job.ID.String(), "type", string(job.Type), "panic", r)
			job.MarkFailed(fmt.Errorf("panic: %v", r))
			if job.CanRetry() {
				job.ScheduleRetry()
			}
			if updateErr := e.jobRepo.Update(ctx, job); updateErr != nil {
				e.logger.Error("failed to persist job after panic", "job_id", job.ID.String(), "error", updateErr)
			}
			if job.IsFinished() {
				e.createHistoryRecord(ctx, job)
			}
			if opMgr != nil {
				opMgr.Fail(fmt.Errorf("panic: %v", r))
			}
			execErr = nil
		}
	}()

	e.logger.Info("executing job", "job_id", job.ID.String(), "type", string(job.Type), "target", job.TargetName)

	result, err := handler.Execute(ctx, job)
	if err != nil {
		e.logger.Error("job failed", "job_id", job.ID.String(), "type", string(job.Type), "error", err)
		job.MarkFailed(err)
		if job.CanRetry() {
			job.ScheduleRetry()
			e.logger.Info("job scheduled for retry", "job_id", job.ID.String(), "attempt", job.AttemptCount)
		}
		if opMgr != nil {
			opMgr.Fail(err)
		}
	} else {
		e.logger.Info("job completed", "job_id", job.ID.String(), "type", string(job.Type), "result", result)
		job.MarkCompleted(result)
		if opMgr != nil {
			opMgr.Complete(result)
		}
	}

	if err := e.jobRepo.Update(ctx, job); err != nil {
		e.logger.Error("failed to update job status", "job_id", job.ID.String(), "error", err)
		return fmt.Errorf("updating job status: %w", err)
	}

	if job.IsFinished() {
		e.createHistoryRecord(ctx, job)
	}

	return nil
}

func (e *Executor) createHistoryRecord(ctx context.Context, job *models.Job) {
	history := &models.JobHistory{
		JobID:         job.ID,
		Type:          job.Type,
		TargetID:      job.TargetID,
		TargetName:    job.TargetName,
		Status:        job.Status,
		StartedAt:     job.StartedAt,
		CompletedAt:   job.CompletedAt,
		DurationMs:    job.DurationMs,
		AttemptNumber: job.AttemptCount,
		Error:         job.LastError,
		Result:        job.Result,
	}
	if err := e.jobRepo.CreateHistory(ctx, history); err != nil {
		e.logger.Error("failed to create job history", "job_id", job.ID.String(), "error", err)
	}
}
