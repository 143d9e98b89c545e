package models

import "gorm.io/gorm"

// IngestMode controls whether ingest copies source bytes into the library
// or only records a reference to them.
type IngestMode string

const (
	// IngestModeCopy streams source bytes into the library's originals tree.
	IngestModeCopy IngestMode = "copy"
	// IngestModeReference records a path into the source without copying.
	IngestModeReference IngestMode = "reference"
)

// Library is the root of a single on-disk video library: one embedded
// database, one .dadcam/ subtree, one ingest mode.
type Library struct {
	BaseModel

	// RootPath is the absolute path to the library root on disk.
	RootPath string `gorm:"not null;uniqueIndex;size:1024" json:"root_path"`

	// Name is a human-readable label for the library.
	Name string `gorm:"not null;size:255" json:"name"`

	// IngestMode is the default copy/reference mode for new ingests.
	IngestMode IngestMode `gorm:"not null;size:20;default:'copy'" json:"ingest_mode"`

	// UUID is a stable identifier for this library, independent of its
	// on-disk path, used for cross-library device/profile registries.
	UUID string `gorm:"not null;uniqueIndex;size:36" json:"uuid"`
}

// TableName returns the table name for Library.
func (Library) TableName() string {
	return "libraries"
}

// Validate performs basic validation on the library.
func (l *Library) Validate() error {
	if l.RootPath == "" {
		return ErrRootPathRequired
	}
	switch l.IngestMode {
	case IngestModeCopy, IngestModeReference, "":
	default:
		return ErrInvalidIngestMode
	}
	return nil
}

// BeforeCreate generates a ULID and UUID, and validates the library.
func (l *Library) BeforeCreate(tx *gorm.DB) error {
	if err := l.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	if l.IngestMode == "" {
		l.IngestMode = IngestModeCopy
	}
	if l.UUID == "" {
		l.UUID = NewULID().String()
	}
	return l.Validate()
}

// BeforeUpdate validates the library before update.
func (l *Library) BeforeUpdate(tx *gorm.DB) error {
	return l.Validate()
}
