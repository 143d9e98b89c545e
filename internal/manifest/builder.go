// Package manifest walks a source root and builds the sealed, ordered list
// of files an ingest session will process, grounded on spec.md §4.4.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/camvault/internal/camerror"
	"github.com/jmylchreest/camvault/internal/hash"
	"github.com/jmylchreest/camvault/internal/models"
)

// MediaExtensions is the primary-media extension list the walker
// classifies as ManifestEntryTypeMedia.
var MediaExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".mts": true, ".m2ts": true,
	".avi": true, ".mkv": true, ".insv": true, ".360": true,
	".wav": true, ".mp3": true, ".m4a": true,
	".jpg": true, ".jpeg": true, ".png": true, ".dng": true, ".raw": true,
}

// SidecarExtensions is the companion-file extension list named in spec.md
// §4.4: thumbnails, XML/XMP metadata, subtitle/subtitle-index, and
// low-resolution-file sidecars.
var SidecarExtensions = map[string]bool{
	".thm": true, ".xml": true, ".xmp": true,
	".srt": true, ".lrf": true, ".idx": true,
}

// Entry is one file the walker found, before persistence.
type Entry struct {
	RelativePath string
	SizeBytes    int64
	Mtime        string // RFC3339Nano, snapshot time
	EntryType    models.ManifestEntryType
	ParentIndex  int // index into the returned slice of the paired media entry, -1 if none
}

// Manifest is the sealed, ordered walk result.
type Manifest struct {
	Entries []Entry
	Hash    string
}

// Build walks sourceRoot and returns the sealed manifest: all media
// entries first, then their paired sidecars (each carrying ParentIndex),
// then orphan sidecars, per spec.md §4.4's emission order.
func Build(sourceRoot string) (*Manifest, error) {
	var mediaFiles []walkedFile
	var sidecarFiles []walkedFile

	err := filepath.Walk(sourceRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(sourceRoot, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		ext := strings.ToLower(filepath.Ext(path))

		wf := walkedFile{
			relativePath: rel,
			dir:          filepath.ToSlash(filepath.Dir(rel)),
			stem:         strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel)),
			sizeBytes:    info.Size(),
			mtime:        info.ModTime().UTC().Format(time.RFC3339Nano),
		}

		switch {
		case MediaExtensions[ext]:
			mediaFiles = append(mediaFiles, wf)
		case SidecarExtensions[ext]:
			sidecarFiles = append(sidecarFiles, wf)
		}
		return nil
	})
	if err != nil {
		return nil, camerror.Wrap(camerror.KindIO, "manifest.walk", err)
	}

	sort.Slice(mediaFiles, func(i, j int) bool { return mediaFiles[i].relativePath < mediaFiles[j].relativePath })
	sort.Slice(sidecarFiles, func(i, j int) bool { return sidecarFiles[i].relativePath < sidecarFiles[j].relativePath })

	entries := make([]Entry, 0, len(mediaFiles)+len(sidecarFiles))
	mediaIndexByKey := make(map[string]int, len(mediaFiles))

	for _, mf := range mediaFiles {
		mediaIndexByKey[pairKey(mf.dir, mf.stem)] = len(entries)
		entries = append(entries, Entry{
			RelativePath: mf.relativePath,
			SizeBytes:    mf.sizeBytes,
			Mtime:        mf.mtime,
			EntryType:    models.ManifestEntryTypeMedia,
			ParentIndex:  -1,
		})
	}

	var orphans []Entry
	for _, sf := range sidecarFiles {
		parent, ok := mediaIndexByKey[pairKey(sf.dir, sf.stem)]
		e := Entry{
			RelativePath: sf.relativePath,
			SizeBytes:    sf.sizeBytes,
			Mtime:        sf.mtime,
			EntryType:    models.ManifestEntryTypeSidecar,
			ParentIndex:  -1,
		}
		if ok {
			e.ParentIndex = parent
			entries = append(entries, e)
		} else {
			orphans = append(orphans, e)
		}
	}
	entries = append(entries, orphans...)

	return &Manifest{Entries: entries, Hash: computeHash(entries)}, nil
}

type walkedFile struct {
	relativePath string
	dir          string
	stem         string
	sizeBytes    int64
	mtime        string
}

// pairKey pairs sidecars to media by shared basename stem, case-insensitive,
// within the same directory.
func pairKey(dir, stem string) string {
	return dir + "|" + strings.ToLower(stem)
}

// computeHash is BLAKE3 over the sorted "<rel>|<size>|<mtime>" lines, per
// spec.md §4.4.
func computeHash(entries []Entry) string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = fmt.Sprintf("%s|%s|%s", e.RelativePath, strconv.FormatInt(e.SizeBytes, 10), e.Mtime)
	}
	sort.Strings(lines)
	return hash.ComputeFullFromBytes([]byte(strings.Join(lines, "\n")))
}
