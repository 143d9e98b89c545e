package models

import "gorm.io/gorm"

// IngestSession records one run of the copy-verify pipeline against a
// single source root, from manifest creation through the rescan gate.
type IngestSession struct {
	BaseModel

	JobID ULID `gorm:"type:varchar(26);index" json:"job_id,omitempty"`

	SourceRoot       string `gorm:"not null;size:2048" json:"source_root"`
	DeviceSerial     string `gorm:"size:255" json:"device_serial,omitempty"`
	DeviceLabel      string `gorm:"size:255" json:"device_label,omitempty"`
	DeviceMountPoint string `gorm:"size:1024" json:"device_mount_point,omitempty"`

	// ManifestHash is BLAKE3 over the sorted "<relpath>|<size>|<mtime>"
	// lines of every manifest entry, computed once the manifest is sealed.
	ManifestHash string `gorm:"not null;size:128" json:"manifest_hash"`

	// RescanHash is the same computation re-run after ingest completes,
	// for comparison against ManifestHash.
	RescanHash string `gorm:"size:128" json:"rescan_hash,omitempty"`

	// SafeToWipeAt is non-null iff every manifest entry verified AND the
	// rescan found an identical relpath set.
	SafeToWipeAt *Time `json:"safe_to_wipe_at,omitempty"`

	// Accumulated per-session counters, updated as entries are processed.
	Processed     int `gorm:"default:0" json:"processed"`
	Skipped       int `gorm:"default:0" json:"skipped"`
	Failed        int `gorm:"default:0" json:"failed"`
	SidecarCount  int `gorm:"default:0" json:"sidecar_count"`
	SidecarFailed int `gorm:"default:0" json:"sidecar_failed"`
}

// TableName returns the table name for IngestSession.
func (IngestSession) TableName() string {
	return "ingest_sessions"
}

// IsSafeToWipe reports whether the session has cleared the rescan gate.
func (s *IngestSession) IsSafeToWipe() bool {
	return s.SafeToWipeAt != nil
}

// Validate performs basic validation on the ingest session.
func (s *IngestSession) Validate() error {
	if s.SourceRoot == "" {
		return ErrSourceRootRequired
	}
	return nil
}

// BeforeCreate generates a ULID and validates the session.
func (s *IngestSession) BeforeCreate(tx *gorm.DB) error {
	if err := s.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return s.Validate()
}

// BeforeUpdate validates the session before update.
func (s *IngestSession) BeforeUpdate(tx *gorm.DB) error {
	return s.Validate()
}
