package models

import (
	"encoding/json"

	"gorm.io/gorm"
)

// TimestampSource records which layer supplied a clip's recorded-at time.
type TimestampSource string

const (
	TimestampSourceMetadata   TimestampSource = "metadata"
	TimestampSourceFolder     TimestampSource = "folder"
	TimestampSourceFilesystem TimestampSource = "filesystem"
)

// MetadataStatus tracks where a clip is in the extraction lifecycle.
type MetadataStatus string

const (
	MetadataStatusPending           MetadataStatus = "pending"
	MetadataStatusExtracting        MetadataStatus = "extracting"
	MetadataStatusExtracted         MetadataStatus = "extracted"
	MetadataStatusExtractionFailed  MetadataStatus = "extraction_failed"
)

// GenericFallbackProfileRef is the sentinel camera reference assigned
// when no profile or device matches a clip.
const GenericFallbackProfileRef = "generic-fallback"

// Clip is a single piece of media tracked by the library. It has exactly
// one original asset and zero or more derived assets linked through
// ClipAsset.
type Clip struct {
	BaseModel

	LibraryID       ULID `gorm:"not null;type:varchar(26);index" json:"library_id"`
	OriginalAssetID ULID `gorm:"not null;type:varchar(26);index" json:"original_asset_id"`

	DurationMs      *int64   `json:"duration_ms,omitempty"`
	Width           *int     `json:"width,omitempty"`
	Height          *int     `json:"height,omitempty"`
	FPS             *float64 `json:"fps,omitempty"`
	Codec           string   `gorm:"size:64" json:"codec,omitempty"`
	AudioCodec      string   `gorm:"size:64" json:"audio_codec,omitempty"`
	AudioChannels   *int     `json:"audio_channels,omitempty"`
	AudioSampleRate *int     `json:"audio_sample_rate,omitempty"`

	RecordedAt      *Time           `json:"recorded_at,omitempty"`
	TimestampSource TimestampSource `gorm:"size:20" json:"timestamp_source,omitempty"`

	// CameraProfileType distinguishes bundled/app profiles from
	// registered devices ("profile" or "device").
	CameraProfileType string `gorm:"size:20" json:"camera_profile_type,omitempty"`
	CameraProfileRef  string `gorm:"size:255;index" json:"camera_profile_ref,omitempty"`
	DeviceUUID        string `gorm:"size:36;index" json:"device_uuid,omitempty"`

	MetadataStatus MetadataStatus `gorm:"not null;size:20;default:'pending';index" json:"metadata_status"`

	// SourceFolder is the source-relative parent directory at ingest
	// time, retained for folder-date fallback and rematch input.
	SourceFolder string `gorm:"size:1024" json:"source_folder,omitempty"`

	// Tags holds user-curated key/value annotations as a JSON object,
	// set via toggle_tag/set_tag on the command surface. Stored opaque
	// since the tag set is open-ended and user-defined, mirroring how
	// Asset/Job persist free-form data as string blobs rather than
	// normalized tables.
	Tags string `gorm:"size:2048" json:"tags,omitempty"`
}

// TableName returns the table name for Clip.
func (Clip) TableName() string {
	return "clips"
}

// TagMap decodes Tags into a key/value map. An empty or unset Tags field
// decodes to an empty map rather than an error.
func (c *Clip) TagMap() (map[string]string, error) {
	if c.Tags == "" {
		return map[string]string{}, nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(c.Tags), &m); err != nil {
		return nil, err
	}
	return m, nil
}

// SetTag sets tag to value and re-encodes Tags.
func (c *Clip) SetTag(tag, value string) error {
	m, err := c.TagMap()
	if err != nil {
		return err
	}
	m[tag] = value
	return c.encodeTags(m)
}

// ToggleTag flips tag between present ("true") and absent, returning the
// resulting state.
func (c *Clip) ToggleTag(tag string) (bool, error) {
	m, err := c.TagMap()
	if err != nil {
		return false, err
	}
	_, present := m[tag]
	if present {
		delete(m, tag)
	} else {
		m[tag] = "true"
	}
	if err := c.encodeTags(m); err != nil {
		return false, err
	}
	return !present, nil
}

func (c *Clip) encodeTags(m map[string]string) error {
	if len(m) == 0 {
		c.Tags = ""
		return nil
	}
	encoded, err := json.Marshal(m)
	if err != nil {
		return err
	}
	c.Tags = string(encoded)
	return nil
}

// HasGenericFallback reports whether the clip has no real camera match.
func (c *Clip) HasGenericFallback() bool {
	return c.CameraProfileRef == "" || c.CameraProfileRef == GenericFallbackProfileRef
}

// Validate performs basic validation on the clip.
func (c *Clip) Validate() error {
	if c.OriginalAssetID.IsZero() {
		return ErrOriginalAssetRequired
	}
	return nil
}

// BeforeCreate generates a ULID and validates the clip.
func (c *Clip) BeforeCreate(tx *gorm.DB) error {
	if err := c.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	if c.MetadataStatus == "" {
		c.MetadataStatus = MetadataStatusPending
	}
	return c.Validate()
}

// BeforeUpdate validates the clip before update.
func (c *Clip) BeforeUpdate(tx *gorm.DB) error {
	return c.Validate()
}
