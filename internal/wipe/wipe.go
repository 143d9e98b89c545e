// Package wipe deletes a session's verified source files once the rescan
// gate has cleared it, grounded on spec.md §4.8.
package wipe

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/jmylchreest/camvault/internal/camerror"
	"github.com/jmylchreest/camvault/internal/models"
	"github.com/jmylchreest/camvault/internal/repository"
)

// EntryResult is one file's deletion outcome.
type EntryResult struct {
	RelativePath string `json:"relativePath"`
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
}

// Report is the executor's full result, matching spec.md §4.8's return
// shape.
type Report struct {
	SessionID  string        `json:"sessionId"`
	SourceRoot string        `json:"sourceRoot"`
	TotalFiles int           `json:"totalFiles"`
	Deleted    int           `json:"deleted"`
	Failed     int           `json:"failed"`
	Entries    []EntryResult `json:"entries"`
}

// Executor deletes verified source files for a wiped session.
type Executor struct {
	sessions  repository.IngestSessionRepository
	manifests repository.ManifestEntryRepository
}

// New creates an Executor.
func New(sessions repository.IngestSessionRepository, manifests repository.ManifestEntryRepository) *Executor {
	return &Executor{sessions: sessions, manifests: manifests}
}

// Run refuses unless the session cleared the rescan gate
// (safeToWipeAt != nil), then deletes every manifest entry's source file
// under sourceRoot in sorted relativePath order. It never recurses into
// unknown directories and never removes directories themselves.
func (e *Executor) Run(ctx context.Context, sessionID models.ULID) (*Report, error) {
	session, err := e.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, camerror.Wrap(camerror.KindDatabase, "wipe.loadSession", err)
	}
	if session == nil {
		return nil, camerror.New(camerror.KindOther, "wipe.sessionNotFound")
	}
	if !session.IsSafeToWipe() {
		return nil, camerror.New(camerror.KindInvalidPath, "wipe.notSafe")
	}

	entries, err := e.manifests.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, camerror.Wrap(camerror.KindDatabase, "wipe.loadEntries", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].RelativePath < entries[j].RelativePath })

	report := &Report{
		SessionID:  sessionID.String(),
		SourceRoot: session.SourceRoot,
		TotalFiles: len(entries),
		Entries:    make([]EntryResult, 0, len(entries)),
	}

	for _, entry := range entries {
		path := filepath.Join(session.SourceRoot, filepath.FromSlash(entry.RelativePath))
		result := EntryResult{RelativePath: entry.RelativePath}

		if err := os.Remove(path); err != nil {
			result.Success = false
			result.Error = err.Error()
			report.Failed++
		} else {
			result.Success = true
			report.Deleted++
		}
		report.Entries = append(report.Entries, result)
	}

	return report, nil
}
