// Package rescan implements the rescan gate: re-walking a source root
// after ingest to confirm nothing changed, before the source can be safely
// wiped. Grounded on spec.md §4.7.
package rescan

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jmylchreest/camvault/internal/camerror"
	"github.com/jmylchreest/camvault/internal/manifest"
	"github.com/jmylchreest/camvault/internal/models"
	"github.com/jmylchreest/camvault/internal/repository"
)

// Result is the outcome of running the gate once.
type Result struct {
	Passed      bool
	RescanHash  string
	FailureKind string // "source_unreachable", "missing_or_changed_file", "unterminated_entries", ""
	Detail      string
}

// Gate runs the rescan against a session's recorded manifest entries.
type Gate struct {
	sessions  repository.IngestSessionRepository
	manifests repository.ManifestEntryRepository
}

// New creates a Gate.
func New(sessions repository.IngestSessionRepository, manifests repository.ManifestEntryRepository) *Gate {
	return &Gate{sessions: sessions, manifests: manifests}
}

// Run re-walks session.SourceRoot, checks every manifest entry still
// exists with an identical size and a terminal result, persists the
// rescan outcome on the session, and returns it.
func (g *Gate) Run(ctx context.Context, session *models.IngestSession) (*Result, error) {
	if _, err := os.Stat(session.SourceRoot); err != nil {
		return &Result{Passed: false, FailureKind: "source_unreachable", Detail: err.Error()}, nil
	}

	entries, err := g.manifests.GetBySessionID(ctx, session.ID)
	if err != nil {
		return nil, camerror.Wrap(camerror.KindDatabase, "rescan.loadEntries", err)
	}

	rewalked, err := manifest.Build(session.SourceRoot)
	if err != nil {
		return &Result{Passed: false, FailureKind: "source_unreachable", Detail: err.Error()}, nil
	}

	result := g.evaluate(entries, rewalked)
	result.RescanHash = rewalked.Hash

	session.RescanHash = result.RescanHash
	if result.Passed {
		now := models.Time(time.Now().UTC())
		session.SafeToWipeAt = &now
	} else {
		session.SafeToWipeAt = nil
	}

	if err := g.sessions.Update(ctx, session); err != nil {
		return nil, camerror.Wrap(camerror.KindDatabase, "rescan.persist", err)
	}

	return result, nil
}

func (g *Gate) evaluate(entries []*models.ManifestEntry, rewalked *manifest.Manifest) *Result {
	bySize := make(map[string]int64, len(rewalked.Entries))
	for _, e := range rewalked.Entries {
		bySize[e.RelativePath] = e.SizeBytes
	}

	inManifest := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		inManifest[entry.RelativePath] = struct{}{}

		if !entry.IsTerminal() {
			return &Result{Passed: false, FailureKind: "unterminated_entries",
				Detail: fmt.Sprintf("entry %s has result %q", entry.RelativePath, entry.Result)}
		}
		size, found := bySize[entry.RelativePath]
		if !found {
			return &Result{Passed: false, FailureKind: "missing_or_changed_file",
				Detail: fmt.Sprintf("entry %s is no longer present", entry.RelativePath)}
		}
		if size != entry.SizeBytes {
			return &Result{Passed: false, FailureKind: "missing_or_changed_file",
				Detail: fmt.Sprintf("entry %s size changed: %d -> %d", entry.RelativePath, entry.SizeBytes, size)}
		}
	}

	// The rewalk must produce an identical relpath-set, not just a
	// superset of the manifest: a file dropped onto the card after
	// sealing must fail the gate too, since wiping the source would
	// silently discard it.
	if len(rewalked.Entries) != len(entries) {
		for _, e := range rewalked.Entries {
			if _, ok := inManifest[e.RelativePath]; !ok {
				return &Result{Passed: false, FailureKind: "missing_or_changed_file",
					Detail: fmt.Sprintf("unmanifested file present on source: %s", e.RelativePath)}
			}
		}
	}

	return &Result{Passed: true}
}
