// Package metadata drives the probe package (ffprobe + exiftool) and
// merges their outputs into the engine's metadata model, grounded on
// original_source/src-tauri/src/metadata/mod.rs.
package metadata

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/jmylchreest/camvault/internal/probe"
)

// MediaType classifies a file by extension for display and filtering.
type MediaType string

const (
	MediaTypeVideo MediaType = "video"
	MediaTypeAudio MediaType = "audio"
	MediaTypeImage MediaType = "image"
)

// VideoExtensions, AudioExtensions and ImageExtensions are the static
// fallback tables detect_media_type consults when a container format is
// not self-describing.
var (
	VideoExtensions = map[string]bool{
		".mp4": true, ".mov": true, ".mts": true, ".m2ts": true,
		".avi": true, ".mkv": true, ".insv": true, ".360": true,
	}
	AudioExtensions = map[string]bool{
		".wav": true, ".mp3": true, ".m4a": true, ".aac": true,
	}
	ImageExtensions = map[string]bool{
		".jpg": true, ".jpeg": true, ".png": true, ".dng": true, ".raw": true,
	}
)

// Media is the merged, clip-ready metadata for one file.
type Media struct {
	DurationMs *int64
	Width      *int
	Height     *int
	FPS        *float64
	Codec      string
	Bitrate    *int64
	Container  string

	AudioCodec      string
	AudioChannels   *int
	AudioSampleRate *int

	RecordedAt       *time.Time
	RecordedAtSource string // "ffprobe", "exiftool", "folder", "filesystem"

	CameraMake   string
	CameraModel  string
	SerialNumber string

	MediaType MediaType
}

// ToolStatus records one external tool invocation's outcome for the
// sidecar's extractionStatus block.
type ToolStatus struct {
	Success  bool
	ExitCode int
	Error    string
}

// FullExtractionResult is the gold-standard per-file extraction output,
// mirroring the Rust original's struct of the same name: merged metadata
// plus the raw tool dumps the sidecar writer persists verbatim.
type FullExtractionResult struct {
	Metadata Media

	RawFfprobeDump json.RawMessage
	RawExifDump    json.RawMessage

	FfprobeStatus ToolStatus
	ExifStatus    ToolStatus

	// ExtendedFields carries every exiftool field this package doesn't
	// promote into Media, keyed for the sidecar's extendedMetadata block.
	ExtendedFields map[string]json.RawMessage
}

// Extractor drives the probe tools and merges their output.
type Extractor struct {
	prober   *probe.Prober
	exifTool *probe.ExifTool
}

// NewExtractor creates an Extractor over the given tool wrappers. Either
// may be nil if the corresponding binary was not resolved at startup; the
// extractor degrades gracefully, per spec.md's dynamic-tool-presence note.
func NewExtractor(prober *probe.Prober, exifTool *probe.ExifTool) *Extractor {
	return &Extractor{prober: prober, exifTool: exifTool}
}

// Extract runs both tools against path (each fallible without aborting)
// and merges the results: ffprobe is authoritative for codec/dimensions/
// duration; exiftool supplies camera make/model/serial/recordedAt only
// when ffprobe did not.
func (e *Extractor) Extract(ctx context.Context, path string) (*FullExtractionResult, error) {
	result := &FullExtractionResult{
		Metadata:       Media{MediaType: detectMediaType(path)},
		ExtendedFields: map[string]json.RawMessage{},
	}

	if e.prober != nil {
		probeResult, err := e.prober.Probe(ctx, path)
		if err != nil {
			result.FfprobeStatus = ToolStatus{Success: false, ExitCode: -1, Error: err.Error()}
		} else {
			result.FfprobeStatus = ToolStatus{Success: true}
			mergeFfprobe(&result.Metadata, probeResult)
			if dump, err := json.Marshal(probeResult); err == nil {
				result.RawFfprobeDump = dump
			}
		}
	} else {
		result.FfprobeStatus = ToolStatus{Success: false, ExitCode: -1, Error: "ffprobe not available"}
	}

	if e.exifTool != nil {
		exifResult, err := e.exifTool.Extract(ctx, path)
		if err != nil {
			result.ExifStatus = ToolStatus{Success: false, ExitCode: -1, Error: err.Error()}
		} else {
			result.ExifStatus = ToolStatus{Success: true}
			mergeExif(&result.Metadata, exifResult)
			if dump, err := json.Marshal(exifResult); err == nil {
				result.RawExifDump = dump
			}
			result.ExtendedFields = exifResult.Extra
		}
	} else {
		result.ExifStatus = ToolStatus{Success: false, ExitCode: -1, Error: "exiftool not available"}
	}

	return result, nil
}

// mergeFfprobe populates Media fields ffprobe is authoritative for.
func mergeFfprobe(m *Media, r *probe.Result) {
	if r.Format.FormatName != "" {
		m.Container = r.Format.FormatName
	}
	if dur := r.DurationMs(); dur > 0 {
		d := dur
		m.DurationMs = &d
	}

	if v := r.GetVideoStream(); v != nil {
		if v.Width > 0 {
			w := v.Width
			m.Width = &w
		}
		if v.Height > 0 {
			h := v.Height
			m.Height = &h
		}
		if fps := v.Framerate(); fps > 0 {
			m.FPS = &fps
		}
		m.Codec = v.CodecName
	}

	if a := r.GetAudioStream(); a != nil {
		m.AudioCodec = a.CodecName
		if a.Channels > 0 {
			c := a.Channels
			m.AudioChannels = &c
		}
	}

	if tags := r.Format.Tags; tags != nil {
		if ts, ok := firstNonEmpty(tags, "creation_time", "date"); ok {
			if parsed, err := parseFfprobeTime(ts); err == nil {
				m.RecordedAt = &parsed
				m.RecordedAtSource = "ffprobe"
			}
		}
	}
}

// mergeExif fills in camera identity and recordedAt only where ffprobe
// left them empty, per spec.md §4.2's merge rule.
func mergeExif(m *Media, r *probe.ExifResult) {
	if m.CameraMake == "" {
		m.CameraMake = r.Make
	}
	if m.CameraModel == "" {
		m.CameraModel = r.Model
	}
	if m.SerialNumber == "" {
		m.SerialNumber = r.SerialNumber
	}
	if m.RecordedAt == nil {
		ts := r.DateTimeOriginal
		if ts == "" {
			ts = r.CreateDate
		}
		if ts != "" {
			if parsed, err := parseExifTime(ts); err == nil {
				m.RecordedAt = &parsed
				m.RecordedAtSource = "exiftool"
			}
		}
	}
}

func firstNonEmpty(m map[string]string, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != "" {
			return v, true
		}
	}
	return "", false
}

func parseFfprobeTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// exiftool emits "2023:07:04 10:15:00" rather than an ISO timestamp.
func parseExifTime(s string) (time.Time, error) {
	return time.Parse("2006:01:02 15:04:05", s)
}

// detectMediaType classifies by extension, defaulting to video for
// unrecognized extensions per the original's fallback behavior.
func detectMediaType(path string) MediaType {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case VideoExtensions[ext]:
		return MediaTypeVideo
	case AudioExtensions[ext]:
		return MediaTypeAudio
	case ImageExtensions[ext]:
		return MediaTypeImage
	default:
		return MediaTypeVideo
	}
}

var folderDateRegex = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)

var compactFolderDateRegex = regexp.MustCompile(`(\d{4})(\d{2})(\d{2})`)

// ParseFolderDate attempts to recover a recorded-at timestamp from an
// ancestor folder name matching "YYYY-MM-DD", "YYYYMMDD", or containing
// such a substring, synthesizing midnight UTC on match.
func ParseFolderDate(folderName string) (time.Time, bool) {
	if t, err := time.Parse("2006-01-02", folderName); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse("20060102", folderName); err == nil {
		return t.UTC(), true
	}
	if m := folderDateRegex.FindStringSubmatch(folderName); m != nil {
		if t, err := time.Parse("2006-01-02", m[1]+"-"+m[2]+"-"+m[3]); err == nil {
			return t.UTC(), true
		}
	}
	if m := compactFolderDateRegex.FindStringSubmatch(folderName); m != nil {
		if t, err := time.Parse("20060102", m[1]+m[2]+m[3]); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ApplyFolderOrFilesystemFallback sets RecordedAt/RecordedAtSource on m
// when no tool produced a timestamp: first by walking ancestor folder
// names of sourcePath for a date pattern, else by falling back to the
// file's modification time on disk.
func ApplyFolderOrFilesystemFallback(m *Media, sourcePath string) {
	if m.RecordedAt != nil {
		return
	}

	dir := filepath.Dir(sourcePath)
	for dir != "." && dir != string(filepath.Separator) && dir != "" {
		name := filepath.Base(dir)
		if t, ok := ParseFolderDate(name); ok {
			m.RecordedAt = &t
			m.RecordedAtSource = "folder"
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if info, err := os.Stat(sourcePath); err == nil {
		mtime := info.ModTime().UTC()
		m.RecordedAt = &mtime
		m.RecordedAtSource = "filesystem"
	}
}
