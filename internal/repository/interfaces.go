// Package repository defines data access interfaces for camvault entities.
// All database access goes through these interfaces, enabling easy testing
// and keeping GORM specifics out of the service layer.
package repository

import (
	"context"
	"time"

	"github.com/jmylchreest/camvault/internal/models"
)

// LibraryRepository defines operations for library persistence.
type LibraryRepository interface {
	// Create creates a new library.
	Create(ctx context.Context, library *models.Library) error
	// GetByID retrieves a library by ID.
	GetByID(ctx context.Context, id models.ULID) (*models.Library, error)
	// GetByRootPath retrieves a library by its on-disk root path.
	GetByRootPath(ctx context.Context, rootPath string) (*models.Library, error)
	// GetByUUID retrieves a library by its stable UUID.
	GetByUUID(ctx context.Context, uuid string) (*models.Library, error)
	// GetAll retrieves all known libraries.
	GetAll(ctx context.Context) ([]*models.Library, error)
	// Update updates an existing library.
	Update(ctx context.Context, library *models.Library) error
	// Delete deletes a library by ID.
	Delete(ctx context.Context, id models.ULID) error
}

// AssetRepository defines operations for asset persistence.
type AssetRepository interface {
	// Create creates a new asset.
	Create(ctx context.Context, asset *models.Asset) error
	// GetByID retrieves an asset by ID.
	GetByID(ctx context.Context, id models.ULID) (*models.Asset, error)
	// GetByLibraryID retrieves all assets for a library.
	GetByLibraryID(ctx context.Context, libraryID models.ULID) ([]*models.Asset, error)
	// GetByHashFast looks up an asset by its fast hash, for dedup checks within
	// a library. Returns nil, nil if no match exists.
	GetByHashFast(ctx context.Context, libraryID models.ULID, hashFast string) (*models.Asset, error)
	// GetByHashFull looks up an asset by its full hash within a library.
	GetByHashFull(ctx context.Context, libraryID models.ULID, hashFull string) (*models.Asset, error)
	// Update updates an existing asset.
	Update(ctx context.Context, asset *models.Asset) error
	// Delete deletes an asset by ID.
	Delete(ctx context.Context, id models.ULID) error
	// GetStalePipelineVersion retrieves assets whose pipeline version is below
	// the given current version, for rematch/reextract job targeting.
	GetStalePipelineVersion(ctx context.Context, libraryID models.ULID, currentVersion int) ([]*models.Asset, error)
}

// ClipRepository defines operations for clip persistence.
type ClipRepository interface {
	// Create creates a new clip.
	Create(ctx context.Context, clip *models.Clip) error
	// GetByID retrieves a clip by ID.
	GetByID(ctx context.Context, id models.ULID) (*models.Clip, error)
	// GetByLibraryID retrieves all clips for a library.
	GetByLibraryID(ctx context.Context, libraryID models.ULID) ([]*models.Clip, error)
	// GetByOriginalAssetID retrieves the clip for a given original asset.
	GetByOriginalAssetID(ctx context.Context, assetID models.ULID) (*models.Clip, error)
	// GetWithGenericFallback retrieves clips still carrying the generic
	// fallback camera reference, for rematch job targeting.
	GetWithGenericFallback(ctx context.Context, libraryID models.ULID) ([]*models.Clip, error)
	// Update updates an existing clip.
	Update(ctx context.Context, clip *models.Clip) error
	// Delete deletes a clip by ID.
	Delete(ctx context.Context, id models.ULID) error
	// AddAsset links an asset to a clip with the given role.
	AddAsset(ctx context.Context, clipID, assetID models.ULID, role models.ClipAssetRole) error
	// GetAssets retrieves all assets linked to a clip.
	GetAssets(ctx context.Context, clipID models.ULID) ([]*models.Asset, error)
	// GetAssetByRole retrieves the asset linked to a clip for a specific role.
	GetAssetByRole(ctx context.Context, clipID models.ULID, role models.ClipAssetRole) (*models.Asset, error)
}

// IngestSessionRepository defines operations for ingest session persistence.
type IngestSessionRepository interface {
	// Create creates a new ingest session.
	Create(ctx context.Context, session *models.IngestSession) error
	// GetByID retrieves a session by ID.
	GetByID(ctx context.Context, id models.ULID) (*models.IngestSession, error)
	// GetBySourceRoot retrieves the most recent session for a source root.
	GetBySourceRoot(ctx context.Context, sourceRoot string) (*models.IngestSession, error)
	// GetAll retrieves all ingest sessions, most recent first.
	GetAll(ctx context.Context) ([]*models.IngestSession, error)
	// GetPendingWipe retrieves sessions that have cleared the rescan gate
	// (safeToWipeAt set), oldest first; it does not filter out sessions
	// whose source was already wiped.
	GetPendingWipe(ctx context.Context) ([]*models.IngestSession, error)
	// Update updates an existing session.
	Update(ctx context.Context, session *models.IngestSession) error
	// Delete deletes a session by ID.
	Delete(ctx context.Context, id models.ULID) error
}

// ManifestEntryRepository defines operations for manifest entry persistence.
type ManifestEntryRepository interface {
	// Create creates a new manifest entry.
	Create(ctx context.Context, entry *models.ManifestEntry) error
	// CreateBatch creates multiple manifest entries in a single batch, used
	// when sealing a manifest after the source walk completes.
	CreateBatch(ctx context.Context, entries []*models.ManifestEntry) error
	// GetByID retrieves a manifest entry by ID.
	GetByID(ctx context.Context, id models.ULID) (*models.ManifestEntry, error)
	// GetBySessionID retrieves all manifest entries for a session.
	GetBySessionID(ctx context.Context, sessionID models.ULID) ([]*models.ManifestEntry, error)
	// GetPendingBySessionID retrieves entries for a session still awaiting
	// processing (result = pending).
	GetPendingBySessionID(ctx context.Context, sessionID models.ULID) ([]*models.ManifestEntry, error)
	// GetByRelativePath retrieves an entry for a session by its relative path.
	GetByRelativePath(ctx context.Context, sessionID models.ULID, relativePath string) (*models.ManifestEntry, error)
	// Update updates an existing manifest entry.
	Update(ctx context.Context, entry *models.ManifestEntry) error
	// AllTerminal reports whether every entry for a session reached a
	// terminal, verified result. Used by the rescan gate before computing
	// safeToWipeAt.
	AllTerminal(ctx context.Context, sessionID models.ULID) (bool, error)
}

// CameraProfileRepository defines operations for camera profile persistence.
type CameraProfileRepository interface {
	// Create creates a new camera profile.
	Create(ctx context.Context, profile *models.CameraProfile) error
	// GetByID retrieves a profile by ID.
	GetByID(ctx context.Context, id models.ULID) (*models.CameraProfile, error)
	// GetByName retrieves a profile by its slug.
	GetByName(ctx context.Context, name string) (*models.CameraProfile, error)
	// GetAll retrieves all profiles, ordered by version descending then name
	// ascending, matching the matcher's tie-break order.
	GetAll(ctx context.Context) ([]*models.CameraProfile, error)
	// Update updates an existing profile.
	Update(ctx context.Context, profile *models.CameraProfile) error
	// Delete deletes a profile by ID.
	Delete(ctx context.Context, id models.ULID) error
}

// CameraDeviceRepository defines operations for camera device persistence.
type CameraDeviceRepository interface {
	// Create creates a new camera device.
	Create(ctx context.Context, device *models.CameraDevice) error
	// GetByID retrieves a device by ID.
	GetByID(ctx context.Context, id models.ULID) (*models.CameraDevice, error)
	// GetByUUID retrieves a device by its stable UUID.
	GetByUUID(ctx context.Context, uuid string) (*models.CameraDevice, error)
	// GetByUSBFingerprint retrieves a device by its USB fingerprint, the
	// highest-confidence match signal.
	GetByUSBFingerprint(ctx context.Context, fingerprint string) (*models.CameraDevice, error)
	// GetBySerial retrieves a device by its reported serial number.
	GetBySerial(ctx context.Context, serial string) (*models.CameraDevice, error)
	// GetAll retrieves all registered devices.
	GetAll(ctx context.Context) ([]*models.CameraDevice, error)
	// Update updates an existing device.
	Update(ctx context.Context, device *models.CameraDevice) error
	// Delete deletes a device by ID.
	Delete(ctx context.Context, id models.ULID) error
}

// JobRepository defines operations for job persistence.
type JobRepository interface {
	// Create creates a new job.
	Create(ctx context.Context, job *models.Job) error
	// GetByID retrieves a job by ID.
	GetByID(ctx context.Context, id models.ULID) (*models.Job, error)
	// GetAll retrieves all jobs.
	GetAll(ctx context.Context) ([]*models.Job, error)
	// GetPending retrieves all pending/scheduled jobs ready for execution.
	GetPending(ctx context.Context) ([]*models.Job, error)
	// GetByStatus retrieves jobs by status.
	GetByStatus(ctx context.Context, status models.JobStatus) ([]*models.Job, error)
	// GetByType retrieves jobs by type.
	GetByType(ctx context.Context, jobType models.JobType) ([]*models.Job, error)
	// GetByTargetID retrieves jobs for a specific target.
	GetByTargetID(ctx context.Context, targetID models.ULID) ([]*models.Job, error)
	// GetRunning retrieves all currently running jobs.
	GetRunning(ctx context.Context) ([]*models.Job, error)
	// Update updates an existing job.
	Update(ctx context.Context, job *models.Job) error
	// Delete deletes a job by ID.
	Delete(ctx context.Context, id models.ULID) error
	// DeleteCompleted deletes completed jobs older than the specified duration.
	DeleteCompleted(ctx context.Context, before time.Time) (int64, error)
	// AcquireJob atomically acquires a pending job for execution (sets status to running).
	// Returns nil if no jobs are available or if another worker acquired it first.
	AcquireJob(ctx context.Context, workerID string) (*models.Job, error)
	// ReleaseJob releases a job lock (used when a worker fails unexpectedly).
	ReleaseJob(ctx context.Context, id models.ULID) error
	// FindDuplicatePending finds an existing pending/scheduled/running job for the same type and target.
	// Used for deduplication of concurrent job requests.
	FindDuplicatePending(ctx context.Context, jobType models.JobType, targetID models.ULID) (*models.Job, error)
	// CreateHistory creates a job history record.
	CreateHistory(ctx context.Context, history *models.JobHistory) error
	// GetHistory retrieves job history with pagination.
	GetHistory(ctx context.Context, jobType *models.JobType, offset, limit int) ([]*models.JobHistory, int64, error)
	// DeleteHistory deletes history records older than the specified time.
	DeleteHistory(ctx context.Context, before time.Time) (int64, error)
}
