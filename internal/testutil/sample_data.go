// Package testutil provides test utilities including sample data generation.
package testutil

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/jmylchreest/camvault/internal/models"
)

// Camera makes and models used for generating fictional but plausible
// sample clips. Real manufacturer names are used here only as match targets
// for camera-matching rule tests, never as licensed brand assets.
var (
	CameraMakes = []string{
		"GoPro",
		"DJI",
		"Sony",
		"Canon",
		"Insta360",
	}

	CameraModels = map[string][]string{
		"GoPro":    {"HERO11", "HERO10", "HERO9"},
		"DJI":      {"Osmo Action 4", "Pocket 2"},
		"Sony":     {"FDR-AX53", "HDR-CX405"},
		"Canon":    {"VIXIA HF R800"},
		"Insta360": {"ONE X2", "ONE RS"},
	}

	VideoCodecs     = []string{"h264", "hevc"}
	Containers      = []string{"mp4", "mov", "mts"}
	VideoExtensions = []string{".mp4", ".mov", ".mts", ".m2ts"}

	// FolderNamePatterns mimics common camera SD-card folder conventions
	// (DCIM-style and date-stamped), used to exercise folder-date fallback.
	FolderNamePatterns = []string{
		"DCIM/100GOPRO",
		"DCIM/101MEDIA",
		"2026-03-12",
		"20260312",
	}
)

// SampleClip represents a generated sample clip for testing the ingest and
// camera-matching pipelines without touching real media files.
type SampleClip struct {
	RelativePath string
	SizeBytes    int64
	CameraMake   string
	CameraModel  string
	Codec        string
	Container    string
	Width        int
	Height       int
	FPS          float64
	DurationMs   int64
	RecordedAt   time.Time
	SourceFolder string
}

// ToManifestEntry converts a SampleClip to a pending models.ManifestEntry
// for a given ingest session.
func (s *SampleClip) ToManifestEntry(sessionID models.ULID) *models.ManifestEntry {
	return &models.ManifestEntry{
		SessionID:    sessionID,
		RelativePath: s.RelativePath,
		SizeBytes:    s.SizeBytes,
		EntryType:    models.ManifestEntryTypeMedia,
		Result:       models.ManifestResultPending,
	}
}

// ToClip converts a SampleClip to a models.Clip linked to the given library
// and original asset.
func (s *SampleClip) ToClip(libraryID, originalAssetID models.ULID) *models.Clip {
	fps := s.FPS
	width := s.Width
	height := s.Height
	duration := s.DurationMs
	recordedAt := models.Time(s.RecordedAt)

	return &models.Clip{
		LibraryID:       libraryID,
		OriginalAssetID: originalAssetID,
		DurationMs:      &duration,
		Width:           &width,
		Height:          &height,
		FPS:             &fps,
		Codec:           s.Codec,
		RecordedAt:      &recordedAt,
		TimestampSource: models.TimestampSourceMetadata,
		SourceFolder:    s.SourceFolder,
		MetadataStatus:  models.MetadataStatusExtracted,
	}
}

// SampleDataGenerator generates realistic but fictional clip/camera data for
// tests, mirroring a deterministic, seedable random source so test
// expectations stay stable across runs.
type SampleDataGenerator struct {
	rng *rand.Rand
}

// NewSampleDataGenerator creates a new sample data generator with a random seed.
func NewSampleDataGenerator() *SampleDataGenerator {
	return &SampleDataGenerator{
		rng: rand.New(rand.NewSource(rand.Int63())),
	}
}

// NewSampleDataGeneratorWithSeed creates a new generator with a fixed seed for reproducibility.
func NewSampleDataGeneratorWithSeed(seed int64) *SampleDataGenerator {
	return &SampleDataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// RandomCameraMake returns a random camera manufacturer name.
func (g *SampleDataGenerator) RandomCameraMake() string {
	return CameraMakes[g.rng.Intn(len(CameraMakes))]
}

// RandomCameraModel returns a random model for the given make.
func (g *SampleDataGenerator) RandomCameraModel(make string) string {
	models, ok := CameraModels[make]
	if !ok || len(models) == 0 {
		return "Unknown"
	}
	return models[g.rng.Intn(len(models))]
}

// RandomCodec returns a random video codec.
func (g *SampleDataGenerator) RandomCodec() string {
	return VideoCodecs[g.rng.Intn(len(VideoCodecs))]
}

// RandomContainer returns a random container extension (without the dot).
func (g *SampleDataGenerator) RandomContainer() string {
	return Containers[g.rng.Intn(len(Containers))]
}

// RandomFolderPattern returns a random source folder pattern.
func (g *SampleDataGenerator) RandomFolderPattern() string {
	return FolderNamePatterns[g.rng.Intn(len(FolderNamePatterns))]
}

// ClipGenerateOptions configures clip generation.
type ClipGenerateOptions struct {
	CameraMake  string // fixed make, or "" for random
	CameraModel string // fixed model, or "" for random (given make)
	AnchorTime  time.Time
	MinSizeMB   int64
	MaxSizeMB   int64
}

// DefaultClipGenerateOptions returns default clip generation options.
func DefaultClipGenerateOptions() ClipGenerateOptions {
	return ClipGenerateOptions{
		AnchorTime: time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC),
		MinSizeMB:  50,
		MaxSizeMB:  4000,
	}
}

// GenerateSampleClips generates multiple sample clips for testing, laid out
// as if copied off a single SD card under sequential DCIM-style names.
func (g *SampleDataGenerator) GenerateSampleClips(count int, opts ClipGenerateOptions) []SampleClip {
	clips := make([]SampleClip, count)
	current := opts.AnchorTime

	for i := 0; i < count; i++ {
		make := opts.CameraMake
		if make == "" {
			make = g.RandomCameraMake()
		}
		model := opts.CameraModel
		if model == "" {
			model = g.RandomCameraModel(make)
		}

		container := g.RandomContainer()
		folder := g.RandomFolderPattern()
		sizeRange := opts.MaxSizeMB - opts.MinSizeMB
		if sizeRange <= 0 {
			sizeRange = 1
		}
		sizeMB := opts.MinSizeMB + g.rng.Int63n(sizeRange)
		durationSec := 10 + g.rng.Intn(600)

		clips[i] = SampleClip{
			RelativePath: fmt.Sprintf("%s/GX%06d.%s", folder, 10000+i, container),
			SizeBytes:    sizeMB * 1024 * 1024,
			CameraMake:   make,
			CameraModel:  model,
			Codec:        g.RandomCodec(),
			Container:    container,
			Width:        1920,
			Height:       1080,
			FPS:          29.97,
			DurationMs:   int64(durationSec) * 1000,
			RecordedAt:   current,
			SourceFolder: folder,
		}

		current = current.Add(time.Duration(durationSec) * time.Second).Add(time.Minute)
	}

	return clips
}

// GenerateClipsForCamera generates clips all attributed to a single camera
// make/model, for testing camera-matching grouping.
func (g *SampleDataGenerator) GenerateClipsForCamera(count int, make, model string) []SampleClip {
	opts := DefaultClipGenerateOptions()
	opts.CameraMake = make
	opts.CameraModel = model
	return g.GenerateSampleClips(count, opts)
}

// SampleCameraDevice represents a generated sample registered device.
type SampleCameraDevice struct {
	FleetLabel     string
	Serial         string
	USBFingerprint string
}

// ToCameraDevice converts a SampleCameraDevice to a models.CameraDevice.
func (s *SampleCameraDevice) ToCameraDevice() *models.CameraDevice {
	return &models.CameraDevice{
		FleetLabel:     s.FleetLabel,
		Serial:         s.Serial,
		USBFingerprint: s.USBFingerprint,
	}
}

// GenerateSampleDevices generates registered camera devices with unique
// fleet labels and USB fingerprints.
func (g *SampleDataGenerator) GenerateSampleDevices(count int) []SampleCameraDevice {
	devices := make([]SampleCameraDevice, count)
	for i := 0; i < count; i++ {
		devices[i] = SampleCameraDevice{
			FleetLabel:     fmt.Sprintf("camera-%02d", i+1),
			Serial:         fmt.Sprintf("SN%08d", 10000000+i),
			USBFingerprint: fmt.Sprintf("usb:1234:%04x:SN%08d", i, 10000000+i),
		}
	}
	return devices
}
