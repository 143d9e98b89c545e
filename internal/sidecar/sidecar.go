// Package sidecar writes and rewrites the per-clip JSON sidecar file that
// survives independently of the app database, grounded on spec.md §4.6.
package sidecar

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/jmylchreest/camvault/internal/camerror"
)

// ExifStatus/FfprobeStatus mirror metadata.ToolStatus but add the
// pipeline version the sidecar schema requires for exiftool's entry.
type ToolStatus struct {
	Success        bool   `json:"success"`
	ExitCode       int    `json:"exitCode"`
	Error          string `json:"error,omitempty"`
	PipelineVersion int   `json:"pipelineVersion,omitempty"`
}

// ExtractionStatus summarizes both tool invocations for one clip.
type ExtractionStatus struct {
	Status      string      `json:"status"`
	Exiftool    ToolStatus  `json:"exiftool"`
	Ffprobe     ToolStatus  `json:"ffprobe"`
	ExtractedAt string      `json:"extractedAt"`
}

// MetadataSnapshot is the flattened, display-ready metadata block.
type MetadataSnapshot struct {
	MediaType       string   `json:"mediaType"`
	Duration        *int64   `json:"duration,omitempty"`
	Width           *int     `json:"width,omitempty"`
	Height          *int     `json:"height,omitempty"`
	FPS             *float64 `json:"fps,omitempty"`
	Codec           string   `json:"codec,omitempty"`
	AudioCodec      string   `json:"audioCodec,omitempty"`
	AudioChannels   *int     `json:"audioChannels,omitempty"`
	AudioSampleRate *int     `json:"audioSampleRate,omitempty"`
	CameraMake      string   `json:"cameraMake,omitempty"`
	CameraModel     string   `json:"cameraModel,omitempty"`
	RecordedAt      string   `json:"recordedAt,omitempty"`
	TimestampSource string   `json:"timestampSource,omitempty"`
}

// CameraMatch is the resolved match summary (winner only; the full
// candidate trail lives in MatchAudit).
type CameraMatch struct {
	DeviceID    string  `json:"deviceId,omitempty"`
	ProfileID   string  `json:"profileId,omitempty"`
	Confidence  float64 `json:"confidence"`
	Reason      string  `json:"reason,omitempty"`
	ProfileType string  `json:"profileType,omitempty"`
	ProfileRef  string  `json:"profileRef,omitempty"`
	DeviceUUID  string  `json:"deviceUuid,omitempty"`
}

// IngestTimestamps records when the clip passed through each pipeline
// stage.
type IngestTimestamps struct {
	DiscoveredAt string `json:"discoveredAt,omitempty"`
	CopiedAt     string `json:"copiedAt,omitempty"`
	IndexedAt    string `json:"indexedAt,omitempty"`
}

// DerivedAssetPaths points at any generated proxy/thumb/sprite assets.
// Non-goal per spec.md §1: always empty in this build, kept for schema
// forward-compatibility.
type DerivedAssetPaths struct {
	Proxy  string `json:"proxy,omitempty"`
	Thumb  string `json:"thumb,omitempty"`
	Sprite string `json:"sprite,omitempty"`
}

// Sidecar is the full per-clip sidecar document. MatchAudit and
// ExtendedMetadata are json.RawMessage so this package never needs to know
// the internal/camera or probe schemas; RentalAudit and any other unknown
// top-level key round-trip through Extra without being modeled.
type Sidecar struct {
	OriginalFilePath string            `json:"originalFilePath"`
	FileHashBlake3   string            `json:"fileHashBlake3"`
	RawExifDump      json.RawMessage   `json:"rawExifDump,omitempty"`
	RawFfprobe       json.RawMessage   `json:"rawFfprobe,omitempty"`
	ExtractionStatus ExtractionStatus  `json:"extractionStatus"`
	MetadataSnapshot MetadataSnapshot  `json:"metadataSnapshot"`
	ExtendedMetadata json.RawMessage   `json:"extendedMetadata,omitempty"`
	CameraMatch      CameraMatch       `json:"cameraMatch"`
	MatchAudit       json.RawMessage   `json:"matchAudit"`
	IngestTimestamps IngestTimestamps  `json:"ingestTimestamps"`
	DerivedAssetPaths DerivedAssetPaths `json:"derivedAssetPaths"`
	RentalAudit      json.RawMessage   `json:"rentalAudit,omitempty"`

	// Extra preserves any top-level key this struct does not model, so a
	// rewrite never drops data a future schema version added.
	Extra map[string]json.RawMessage `json:"-"`
}

// Path returns the sidecar file path for a clip under sidecarsDir.
func Path(sidecarsDir, clipID string) string {
	return filepath.Join(sidecarsDir, clipID+".json")
}

// Read loads and parses the sidecar for clipID, preserving unknown
// top-level keys in Extra for a later Write to round-trip.
func Read(sidecarsDir, clipID string) (*Sidecar, error) {
	path := Path(sidecarsDir, clipID)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, camerror.Wrap(camerror.KindIO, "sidecar.read", err)
	}
	return parse(data)
}

func parse(data []byte) (*Sidecar, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, camerror.Wrap(camerror.KindJSON, "sidecar.parse", err)
	}

	var s Sidecar
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, camerror.Wrap(camerror.KindJSON, "sidecar.parse", err)
	}

	s.Extra = map[string]json.RawMessage{}
	for _, known := range knownKeys {
		delete(raw, known)
	}
	for k, v := range raw {
		s.Extra[k] = v
	}
	return &s, nil
}

var knownKeys = []string{
	"originalFilePath", "fileHashBlake3", "rawExifDump", "rawFfprobe",
	"extractionStatus", "metadataSnapshot", "extendedMetadata", "cameraMatch",
	"matchAudit", "ingestTimestamps", "derivedAssetPaths", "rentalAudit",
}

// Write atomically serializes s to sidecarsDir/<clipID>.json, following
// spec.md §4.6's four-step write sequence: serialize + round-trip
// validate, write to a temp file and fsync, atomic rename, best-effort
// directory fsync. Unknown keys from s.Extra are merged back in so a
// rewrite never loses data a prior schema version wrote.
func Write(sidecarsDir, clipID string, s *Sidecar) error {
	if err := os.MkdirAll(sidecarsDir, 0o755); err != nil {
		return camerror.Wrap(camerror.KindIO, "sidecar.write.mkdir", err)
	}

	data, err := marshalWithExtra(s)
	if err != nil {
		return camerror.Wrap(camerror.KindJSON, "sidecar.write.marshal", err)
	}

	// Round-trip parse to validate before touching disk.
	if _, err := parse(data); err != nil {
		return camerror.Wrap(camerror.KindJSON, "sidecar.write.validate", err)
	}

	path := Path(sidecarsDir, clipID)
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return camerror.Wrap(camerror.KindIO, "sidecar.write.atomicRename", err)
	}

	if dir, err := os.Open(sidecarsDir); err == nil {
		_ = dir.Sync()
		_ = dir.Close()
	}

	return nil
}

// marshalWithExtra serializes s's known fields and merges s.Extra's
// unknown keys into the resulting top-level object.
func marshalWithExtra(s *Sidecar) ([]byte, error) {
	knownData, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	if len(s.Extra) == 0 {
		return knownData, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(knownData, &merged); err != nil {
		return nil, err
	}
	for k, v := range s.Extra {
		merged[k] = v
	}
	return json.MarshalIndent(merged, "", "  ")
}

// New builds a fresh Sidecar ready for its first write.
func New(originalFilePath, fileHashBlake3 string) *Sidecar {
	return &Sidecar{
		OriginalFilePath: originalFilePath,
		FileHashBlake3:   fileHashBlake3,
		Extra:            map[string]json.RawMessage{},
	}
}
