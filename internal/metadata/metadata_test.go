package metadata

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmylchreest/camvault/internal/probe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectMediaType(t *testing.T) {
	assert.Equal(t, MediaTypeVideo, detectMediaType("/card/clip.mp4"))
	assert.Equal(t, MediaTypeAudio, detectMediaType("/card/track.wav"))
	assert.Equal(t, MediaTypeImage, detectMediaType("/card/photo.jpg"))
	assert.Equal(t, MediaTypeVideo, detectMediaType("/card/unknown.xyz"))
}

func TestParseFolderDate(t *testing.T) {
	tests := []struct {
		name   string
		folder string
		wantOK bool
	}{
		{"iso dashed", "2019-07-04", true},
		{"compact", "20190704", true},
		{"embedded substring", "GOPRO-2019-07-04-beach", true},
		{"not a date", "DCIM", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParseFolderDate(tt.folder)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestApplyFolderOrFilesystemFallback_FolderDate(t *testing.T) {
	dir := t.TempDir()
	dated := filepath.Join(dir, "2019-07-04")
	require.NoError(t, os.MkdirAll(dated, 0o755))
	path := filepath.Join(dated, "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	m := &Media{}
	ApplyFolderOrFilesystemFallback(m, path)

	require.NotNil(t, m.RecordedAt)
	assert.Equal(t, "folder", m.RecordedAtSource)
	assert.Equal(t, 2019, m.RecordedAt.Year())
}

func TestApplyFolderOrFilesystemFallback_FilesystemMtime(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	m := &Media{}
	ApplyFolderOrFilesystemFallback(m, path)

	require.NotNil(t, m.RecordedAt)
	assert.Equal(t, "filesystem", m.RecordedAtSource)
}

func TestApplyFolderOrFilesystemFallback_SkipsWhenAlreadySet(t *testing.T) {
	existing := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	m := &Media{RecordedAt: &existing, RecordedAtSource: "ffprobe"}

	ApplyFolderOrFilesystemFallback(m, "/nonexistent/clip.mp4")

	assert.Equal(t, existing, *m.RecordedAt)
	assert.Equal(t, "ffprobe", m.RecordedAtSource)
}

func TestMergeFfprobe_PopulatesVideoAndAudio(t *testing.T) {
	r := &probe.Result{
		Format: probe.Format{
			FormatName: "mov,mp4,m4a,3gp,3g2,mj2",
			Duration:   "12.5",
		},
		Streams: []probe.Stream{
			{CodecType: "video", CodecName: "h264", Width: 1920, Height: 1080, AvgFrameRate: "30000/1001"},
			{CodecType: "audio", CodecName: "aac", Channels: 2},
		},
	}

	m := &Media{}
	mergeFfprobe(m, r)

	require.NotNil(t, m.Width)
	assert.Equal(t, 1920, *m.Width)
	require.NotNil(t, m.Height)
	assert.Equal(t, 1080, *m.Height)
	assert.Equal(t, "h264", m.Codec)
	assert.Equal(t, "aac", m.AudioCodec)
	require.NotNil(t, m.AudioChannels)
	assert.Equal(t, 2, *m.AudioChannels)
	require.NotNil(t, m.DurationMs)
	assert.Equal(t, int64(12500), *m.DurationMs)
}

func TestMergeExif_OnlyFillsEmptyFields(t *testing.T) {
	m := &Media{CameraMake: "AlreadySet"}
	r := &probe.ExifResult{Make: "GoPro", Model: "HERO11", SerialNumber: "SN123"}

	mergeExif(m, r)

	assert.Equal(t, "AlreadySet", m.CameraMake)
	assert.Equal(t, "HERO11", m.CameraModel)
	assert.Equal(t, "SN123", m.SerialNumber)
}

func TestMergeExif_RecordedAtFromDateTimeOriginal(t *testing.T) {
	m := &Media{}
	r := &probe.ExifResult{DateTimeOriginal: "2023:07:04 10:15:00"}

	mergeExif(m, r)

	require.NotNil(t, m.RecordedAt)
	assert.Equal(t, "exiftool", m.RecordedAtSource)
	assert.Equal(t, 2023, m.RecordedAt.Year())
}
