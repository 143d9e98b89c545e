// Package ingest orchestrates the copy-verify pipeline: sealing a
// manifest, then processing each entry through stat, change-detect,
// hash, dedup, copy-or-reference, persist, and sidecar-write, grounded
// on spec.md §4.4 and §4.5.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jmylchreest/camvault/internal/camera"
	"github.com/jmylchreest/camvault/internal/camerror"
	"github.com/jmylchreest/camvault/internal/hash"
	"github.com/jmylchreest/camvault/internal/manifest"
	"github.com/jmylchreest/camvault/internal/metadata"
	"github.com/jmylchreest/camvault/internal/models"
	"github.com/jmylchreest/camvault/internal/repository"
	"github.com/jmylchreest/camvault/internal/sidecar"
)

// PipelineVersion stamps every asset this pipeline produces; a future
// change bumps this so rematch/reextract jobs can target stale rows.
const PipelineVersion = 1

// Progress reports pipeline progress back to a caller (e.g. the job
// runner's SSE stream).
type Progress struct {
	Current int
	Total   int
	Message string
}

// ProgressFunc is called after each entry is processed.
type ProgressFunc func(Progress)

// Pipeline wires the copy-verify algorithm's dependencies.
type Pipeline struct {
	sessions  repository.IngestSessionRepository
	manifests repository.ManifestEntryRepository
	assets    repository.AssetRepository
	clips     repository.ClipRepository
	extractor *metadata.Extractor
	matcher   *camera.Matcher
	logger    *slog.Logger
}

// New creates a Pipeline.
func New(
	sessions repository.IngestSessionRepository,
	manifests repository.ManifestEntryRepository,
	assets repository.AssetRepository,
	clips repository.ClipRepository,
	extractor *metadata.Extractor,
	matcher *camera.Matcher,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		sessions:  sessions,
		manifests: manifests,
		assets:    assets,
		clips:     clips,
		extractor: extractor,
		matcher:   matcher,
		logger:    logger,
	}
}

// Seal walks sourceRoot, persists one ManifestEntry row per file (media
// first, then paired sidecars, then orphans), sets session.ManifestHash,
// and returns the persisted entries in manifest order.
func (p *Pipeline) Seal(ctx context.Context, session *models.IngestSession) ([]*models.ManifestEntry, error) {
	built, err := manifest.Build(session.SourceRoot)
	if err != nil {
		return nil, err
	}

	created := make([]*models.ManifestEntry, len(built.Entries))
	for i, e := range built.Entries {
		row := &models.ManifestEntry{
			SessionID:    session.ID,
			RelativePath: e.RelativePath,
			SizeBytes:    e.SizeBytes,
			Mtime:        &built.Entries[i].Mtime,
			EntryType:    e.EntryType,
		}
		if e.ParentIndex >= 0 {
			row.ParentEntryID = &created[e.ParentIndex].ID
		}
		if err := p.manifests.Create(ctx, row); err != nil {
			return nil, camerror.Wrap(camerror.KindDatabase, "ingest.seal.createEntry", err)
		}
		created[i] = row
	}

	session.ManifestHash = built.Hash
	if err := p.sessions.Update(ctx, session); err != nil {
		return nil, camerror.Wrap(camerror.KindDatabase, "ingest.seal.persistHash", err)
	}

	return created, nil
}

// Run processes every sealed entry in order against library, applying the
// 9-step copy-verify algorithm. A single entry's failure never aborts the
// run; it is recorded on the entry and the session's counters.
func (p *Pipeline) Run(ctx context.Context, library *models.Library, session *models.IngestSession, entries []*models.ManifestEntry, onProgress ProgressFunc) error {
	for i, entry := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := p.processEntry(ctx, library, session, entry, entries); err != nil {
			p.logger.Error("ingest entry failed", "relativePath", entry.RelativePath, "error", err)
		}

		if onProgress != nil {
			onProgress(Progress{Current: i + 1, Total: len(entries), Message: entry.RelativePath})
		}
	}

	if err := p.sessions.Update(ctx, session); err != nil {
		return camerror.Wrap(camerror.KindDatabase, "ingest.run.persistSession", err)
	}
	return nil
}

func (p *Pipeline) processEntry(ctx context.Context, library *models.Library, session *models.IngestSession, entry *models.ManifestEntry, all []*models.ManifestEntry) error {
	sourcePath := filepath.Join(session.SourceRoot, filepath.FromSlash(entry.RelativePath))

	// 1. Stat.
	info, err := os.Stat(sourcePath)
	if err != nil {
		entry.Result = models.ManifestResultFailed
		entry.ErrorCode = models.ErrorCodeSourceMissing
		entry.ErrorDetail = err.Error()
		session.Failed++
		return p.manifests.Update(ctx, entry)
	}

	// 2. Change detect.
	currentMtime := info.ModTime().UTC().Format(time.RFC3339Nano)
	if info.Size() != entry.SizeBytes || (entry.Mtime != nil && *entry.Mtime != "" && currentMtime != *entry.Mtime) {
		entry.Result = models.ManifestResultChanged
		entry.ErrorCode = models.ErrorCodeChangedSinceManifest
		entry.ErrorDetail = fmt.Sprintf("size %d->%d or mtime changed since manifest", entry.SizeBytes, info.Size())
		session.Failed++
		return p.manifests.Update(ctx, entry)
	}

	// 3. Fast hash.
	fastHash, err := hash.ComputeFast(sourcePath)
	if err != nil {
		entry.Result = models.ManifestResultFailed
		entry.ErrorCode = "HASH_ERROR"
		entry.ErrorDetail = err.Error()
		session.Failed++
		return p.manifests.Update(ctx, entry)
	}
	entry.HashFast = fastHash

	// 4. Dedup.
	if existing, err := p.assets.GetByHashFast(ctx, library.ID, fastHash); err != nil {
		return camerror.Wrap(camerror.KindDatabase, "ingest.dedupLookup", err)
	} else if existing != nil && existing.HashFull != "" {
		fullHash, err := hash.ComputeFull(sourcePath)
		if err != nil {
			return camerror.Wrap(camerror.KindHash, "ingest.dedupFullHash", err)
		}
		if fullHash == existing.HashFull {
			return p.linkDedup(ctx, entry, existing, all, session)
		}
	}

	// 5/6. Copy or reference, then persist.
	asset, err := p.materializeAsset(ctx, library, entry, sourcePath, info)
	if err != nil {
		entry.Result = models.ManifestResultFailed
		if ce, ok := err.(*camerror.Error); ok && ce.Op == models.ErrorCodeCopyHashMismatch {
			entry.ErrorCode = models.ErrorCodeCopyHashMismatch
		} else if ce, ok := camerror.KindOf(err); ok {
			entry.ErrorCode = string(ce)
		} else {
			entry.ErrorCode = "COPY_ERROR"
		}
		entry.ErrorDetail = err.Error()
		session.Failed++
		return p.manifests.Update(ctx, entry)
	}

	if err := p.persistEntry(ctx, library, session, entry, asset, sourcePath, all); err != nil {
		return err
	}

	entry.Result = models.ManifestResultCopiedVerified
	entry.HashFull = asset.HashFull
	entry.AssetID = &asset.ID
	session.Processed++
	if entry.EntryType == models.ManifestEntryTypeSidecar {
		session.SidecarCount++
	}
	return p.manifests.Update(ctx, entry)
}

// linkDedup marks entry as a verified duplicate of an already-known asset
// without copying, per spec.md §4.5 step 4.
func (p *Pipeline) linkDedup(ctx context.Context, entry *models.ManifestEntry, existing *models.Asset, all []*models.ManifestEntry, session *models.IngestSession) error {
	entry.Result = models.ManifestResultDedupVerified
	entry.HashFull = existing.HashFull
	entry.AssetID = &existing.ID
	session.Skipped++

	if entry.EntryType == models.ManifestEntryTypeSidecar && entry.ParentEntryID != nil {
		parent := findByID(all, *entry.ParentEntryID)
		if parent != nil && parent.AssetID != nil {
			if clip, err := p.clips.GetByOriginalAssetID(ctx, *parent.AssetID); err == nil && clip != nil {
				_ = p.clips.AddAsset(ctx, clip.ID, existing.ID, models.ClipAssetRoleSidecar)
			}
		}
	}

	return p.manifests.Update(ctx, entry)
}

// materializeAsset performs steps 5/6 (copy or reference) and 7's asset
// insert, returning the persisted asset row.
func (p *Pipeline) materializeAsset(ctx context.Context, library *models.Library, entry *models.ManifestEntry, sourcePath string, info os.FileInfo) (*models.Asset, error) {
	asset := &models.Asset{
		LibraryID:       library.ID,
		SizeBytes:       info.Size(),
		HashFast:        entry.HashFast,
		HashFastScheme:  hash.FastScheme,
		PipelineVersion: PipelineVersion,
	}
	if entry.EntryType == models.ManifestEntryTypeMedia {
		asset.AssetType = models.AssetTypeOriginal
	} else {
		asset.AssetType = models.AssetTypeSidecar
	}

	if library.IngestMode == models.IngestModeReference {
		fullHash, err := hash.ComputeFull(sourcePath)
		if err != nil {
			return nil, camerror.Wrap(camerror.KindHash, "ingest.referenceHash", err)
		}
		abs, err := filepath.Abs(sourcePath)
		if err != nil {
			abs = sourcePath
		}
		asset.Path = "ref:" + abs
		asset.SourceURI = abs
		asset.HashFull = fullHash
		asset.VerificationMethod = models.VerificationHashOnly
	} else {
		destPath, streamHash, err := p.copyWithVerify(library.RootPath, sourcePath, entry.RelativePath)
		if err != nil {
			return nil, err
		}
		rel, _ := filepath.Rel(library.RootPath, destPath)
		asset.Path = filepath.ToSlash(rel)
		asset.HashFull = streamHash
		asset.VerificationMethod = models.VerificationCopyReadback
	}

	now := models.Time(time.Now().UTC())
	asset.VerifiedAt = &now

	if err := p.assets.Create(ctx, asset); err != nil {
		return nil, camerror.Wrap(camerror.KindDatabase, "ingest.createAsset", err)
	}
	return asset, nil
}

// copyWithVerify streams sourcePath into a temporary file inside
// <libraryRoot>/.dadcam/originals/, hashing the bytes as they are
// written, then renames the result into the final top-level
// <libraryRoot>/originals/<yyyy>/<mm>/ location and reads the
// destination back to verify the hash matches before returning. Per
// spec.md §4.5 step 5 and §6's on-disk layout, ".dadcam/originals" is
// staging only; the bit-exact final location for copy-mode assets is
// top-level "originals/<yyyy>/<mm>/<basename>[-<short-hash>].<ext>",
// which only gets the "-<short-hash>" suffix on a name collision.
func (p *Pipeline) copyWithVerify(libraryRoot, sourcePath, relativePath string) (string, string, error) {
	now := time.Now().UTC()
	stagingDir := filepath.Join(libraryRoot, ".dadcam", "originals")
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return "", "", camerror.Wrap(camerror.KindIO, "ingest.copy.mkdirStaging", err)
	}
	destDir := filepath.Join(libraryRoot, "originals", fmt.Sprintf("%04d", now.Year()), fmt.Sprintf("%02d", now.Month()))
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", "", camerror.Wrap(camerror.KindIO, "ingest.copy.mkdir", err)
	}

	src, err := os.Open(sourcePath)
	if err != nil {
		return "", "", camerror.Wrap(camerror.KindIO, "ingest.copy.open", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(stagingDir, ".tmp-copy-*")
	if err != nil {
		return "", "", camerror.Wrap(camerror.KindIO, "ingest.copy.createTemp", err)
	}
	tmpPath := tmp.Name()

	streamingHasher := hash.NewStreamingHasher()
	writer := io.MultiWriter(tmp, streamingHasher)
	if _, err := io.Copy(writer, src); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", "", camerror.Wrap(camerror.KindIO, "ingest.copy.stream", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", "", camerror.Wrap(camerror.KindIO, "ingest.copy.fsync", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", "", camerror.Wrap(camerror.KindIO, "ingest.copy.close", err)
	}

	streamHash := streamingHasher.Sum()

	baseName := filepath.Base(relativePath)
	destPath := filepath.Join(destDir, baseName)
	if _, err := os.Stat(destPath); err == nil {
		ext := filepath.Ext(baseName)
		stem := baseName[:len(baseName)-len(ext)]
		shortHash := streamHash
		if idx := len(shortHash) - 8; idx > 0 {
			shortHash = shortHash[idx:]
		}
		destPath = filepath.Join(destDir, fmt.Sprintf("%s-%s%s", stem, shortHash, ext))
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return "", "", camerror.Wrap(camerror.KindIO, "ingest.copy.rename", err)
	}

	readbackHash, err := hash.ComputeFull(destPath)
	if err != nil {
		os.Remove(destPath)
		return "", "", camerror.Wrap(camerror.KindHash, "ingest.copy.readback", err)
	}
	if readbackHash != streamHash {
		os.Remove(destPath)
		return "", "", camerror.New(camerror.KindOther, models.ErrorCodeCopyHashMismatch)
	}

	if dir, err := os.Open(destDir); err == nil {
		_ = dir.Sync()
		_ = dir.Close()
	}

	return destPath, streamHash, nil
}

// persistEntry completes step 7 for a freshly materialized asset: media
// entries get metadata extraction, camera matching, a new clip, and a
// sidecar JSON write; sidecar entries link to their parent clip (or stay
// unlinked if orphaned).
func (p *Pipeline) persistEntry(ctx context.Context, library *models.Library, session *models.IngestSession, entry *models.ManifestEntry, asset *models.Asset, sourcePath string, all []*models.ManifestEntry) error {
	if entry.EntryType == models.ManifestEntryTypeSidecar {
		if entry.ParentEntryID == nil {
			return nil // orphan sidecar: asset only, no clip link
		}
		parent := findByID(all, *entry.ParentEntryID)
		if parent == nil || parent.AssetID == nil {
			return nil
		}
		clip, err := p.clips.GetByOriginalAssetID(ctx, *parent.AssetID)
		if err != nil {
			return camerror.Wrap(camerror.KindDatabase, "ingest.sidecar.findClip", err)
		}
		if clip == nil {
			return nil
		}
		if err := p.clips.AddAsset(ctx, clip.ID, asset.ID, models.ClipAssetRoleSidecar); err != nil {
			return camerror.Wrap(camerror.KindDatabase, "ingest.sidecar.link", err)
		}
		return nil
	}

	extraction, err := p.extractor.Extract(ctx, sourcePath)
	if err != nil {
		return camerror.Wrap(camerror.KindFFprobe, "ingest.extractMetadata", err)
	}
	metadata.ApplyFolderOrFilesystemFallback(&extraction.Metadata, sourcePath)

	input := camera.InputSignature{
		Make:       extraction.Metadata.CameraMake,
		Model:      extraction.Metadata.CameraModel,
		Codec:      extraction.Metadata.Codec,
		Container:  extraction.Metadata.Container,
		FolderPath: filepath.ToSlash(filepath.Dir(entry.RelativePath)),
		Filename:   filepath.Base(entry.RelativePath),
		Serial:     extraction.Metadata.SerialNumber,
	}
	if extraction.Metadata.Width != nil {
		input.Width = *extraction.Metadata.Width
	}
	if extraction.Metadata.Height != nil {
		input.Height = *extraction.Metadata.Height
	}
	if extraction.Metadata.FPS != nil {
		input.FPS = *extraction.Metadata.FPS
	}

	match, err := p.matcher.Match(ctx, input)
	if err != nil {
		return camerror.Wrap(camerror.KindOther, "ingest.cameraMatch", err)
	}

	clip := &models.Clip{
		LibraryID:         library.ID,
		OriginalAssetID:   asset.ID,
		DurationMs:        extraction.Metadata.DurationMs,
		Width:             extraction.Metadata.Width,
		Height:            extraction.Metadata.Height,
		FPS:               extraction.Metadata.FPS,
		Codec:             extraction.Metadata.Codec,
		AudioCodec:        extraction.Metadata.AudioCodec,
		AudioChannels:     extraction.Metadata.AudioChannels,
		AudioSampleRate:   extraction.Metadata.AudioSampleRate,
		CameraProfileType: match.ProfileType,
		CameraProfileRef:  match.ProfileRef,
		DeviceUUID:        match.DeviceUUID,
		MetadataStatus:    models.MetadataStatusExtracted,
		SourceFolder:      filepath.ToSlash(filepath.Dir(entry.RelativePath)),
	}
	if extraction.Metadata.RecordedAt != nil {
		recordedAt := models.Time(*extraction.Metadata.RecordedAt)
		clip.RecordedAt = &recordedAt
		switch extraction.Metadata.RecordedAtSource {
		case "folder":
			clip.TimestampSource = models.TimestampSourceFolder
		case "filesystem":
			clip.TimestampSource = models.TimestampSourceFilesystem
		default:
			clip.TimestampSource = models.TimestampSourceMetadata
		}
	}

	if err := p.clips.Create(ctx, clip); err != nil {
		return camerror.Wrap(camerror.KindDatabase, "ingest.createClip", err)
	}
	if err := p.clips.AddAsset(ctx, clip.ID, asset.ID, models.ClipAssetRoleOriginal); err != nil {
		return camerror.Wrap(camerror.KindDatabase, "ingest.linkOriginal", err)
	}

	return p.writeSidecarFor(library, clip, asset, entry, extraction, match)
}

func (p *Pipeline) writeSidecarFor(library *models.Library, clip *models.Clip, asset *models.Asset, entry *models.ManifestEntry, extraction *metadata.FullExtractionResult, match *camera.Result) error {
	sidecarsDir := filepath.Join(library.RootPath, ".dadcam", "sidecars")

	s := sidecar.New(entry.RelativePath, asset.HashFull)
	s.RawExifDump = json.RawMessage(extraction.RawExifDump)
	s.RawFfprobe = json.RawMessage(extraction.RawFfprobeDump)
	s.ExtractionStatus = sidecar.ExtractionStatus{
		Status:      "extracted",
		Exiftool:    sidecar.ToolStatus{Success: extraction.ExifStatus.Success, ExitCode: extraction.ExifStatus.ExitCode, Error: extraction.ExifStatus.Error, PipelineVersion: PipelineVersion},
		Ffprobe:     sidecar.ToolStatus{Success: extraction.FfprobeStatus.Success, ExitCode: extraction.FfprobeStatus.ExitCode, Error: extraction.FfprobeStatus.Error},
		ExtractedAt: time.Now().UTC().Format(time.RFC3339),
	}
	s.MetadataSnapshot = sidecar.MetadataSnapshot{
		MediaType:       string(extraction.Metadata.MediaType),
		Duration:        extraction.Metadata.DurationMs,
		Width:           extraction.Metadata.Width,
		Height:          extraction.Metadata.Height,
		FPS:             extraction.Metadata.FPS,
		Codec:           extraction.Metadata.Codec,
		AudioCodec:      extraction.Metadata.AudioCodec,
		AudioChannels:   extraction.Metadata.AudioChannels,
		AudioSampleRate: extraction.Metadata.AudioSampleRate,
		CameraMake:      extraction.Metadata.CameraMake,
		CameraModel:     extraction.Metadata.CameraModel,
		TimestampSource: string(clip.TimestampSource),
	}
	if clip.RecordedAt != nil {
		s.MetadataSnapshot.RecordedAt = time.Time(*clip.RecordedAt).Format(time.RFC3339)
	}

	extendedFields, _ := json.Marshal(extraction.ExtendedFields)
	s.ExtendedMetadata = extendedFields

	s.CameraMatch = sidecar.CameraMatch{
		Confidence:  match.Confidence,
		Reason:      match.Reason,
		ProfileType: match.ProfileType,
		ProfileRef:  match.ProfileRef,
		DeviceUUID:  match.DeviceUUID,
	}
	auditJSON, _ := json.Marshal(match.Audit)
	s.MatchAudit = auditJSON

	s.IngestTimestamps = sidecar.IngestTimestamps{
		DiscoveredAt: time.Now().UTC().Format(time.RFC3339),
		CopiedAt:     time.Now().UTC().Format(time.RFC3339),
		IndexedAt:    time.Now().UTC().Format(time.RFC3339),
	}

	if err := sidecar.Write(sidecarsDir, clip.ID.String(), s); err != nil {
		return camerror.Wrap(camerror.KindIO, "ingest.writeSidecar", err)
	}
	return nil
}

func findByID(entries []*models.ManifestEntry, id models.ULID) *models.ManifestEntry {
	for _, e := range entries {
		if e.ID == id {
			return e
		}
	}
	return nil
}
