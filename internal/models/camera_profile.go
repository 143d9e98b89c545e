package models

import "gorm.io/gorm"

// MatchRules enumerates the accepted values for each rule category the
// camera matcher's rule engine evaluates. A category is satisfied if any
// of its listed values matches (case-insensitive substring for make/model).
type MatchRules struct {
	Make       []string `json:"make,omitempty"`
	Model      []string `json:"model,omitempty"`
	Codec      []string `json:"codec,omitempty"`
	Container  []string `json:"container,omitempty"`
	Width      []int    `json:"width,omitempty"`
	Height     []int    `json:"height,omitempty"`
	FPS        []float64 `json:"fps,omitempty"`
	FolderPath []string `json:"folderPath,omitempty"` // regex patterns
	Filename   []string `json:"filename,omitempty"`   // regex patterns
}

// TransformRules carries profile-specific derivation hints (e.g. proxy or
// thumbnail defaults); opaque to the matcher itself.
type TransformRules struct {
	ProxyCodec     string `json:"proxyCodec,omitempty"`
	ProxyContainer string `json:"proxyContainer,omitempty"`
}

// CameraProfile is a named, versioned set of match rules the camera
// matcher evaluates against a clip's extracted metadata and folder path.
// Profiles are data, not code: a new profile is a JSON object, never a
// plugin.
type CameraProfile struct {
	BaseModel

	// Name is the profile slug, unique within the library.
	Name    string `gorm:"not null;uniqueIndex;size:255" json:"name"`
	Version int    `gorm:"not null;default:1" json:"version"`

	MatchRules     MatchRules     `gorm:"type:text;serializer:json" json:"match_rules"`
	TransformRules TransformRules `gorm:"type:text;serializer:json" json:"transform_rules"`
}

// TableName returns the table name for CameraProfile.
func (CameraProfile) TableName() string {
	return "camera_profiles"
}

// Validate performs basic validation on the camera profile.
func (p *CameraProfile) Validate() error {
	if p.Name == "" {
		return ErrProfileNameRequired
	}
	return nil
}

// BeforeCreate generates a ULID and validates the profile.
func (p *CameraProfile) BeforeCreate(tx *gorm.DB) error {
	if err := p.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	if p.Version == 0 {
		p.Version = 1
	}
	return p.Validate()
}

// BeforeUpdate validates the profile before update.
func (p *CameraProfile) BeforeUpdate(tx *gorm.DB) error {
	return p.Validate()
}
