package models

import "gorm.io/gorm"

// ManifestEntryType classifies a manifest entry as primary media or a
// companion sidecar file.
type ManifestEntryType string

const (
	ManifestEntryTypeMedia   ManifestEntryType = "media"
	ManifestEntryTypeSidecar ManifestEntryType = "sidecar"
)

// ManifestEntryResult is the terminal (or pending) outcome of processing
// one manifest entry through the copy-verify pipeline.
type ManifestEntryResult string

const (
	ManifestResultPending        ManifestEntryResult = "pending"
	ManifestResultCopiedVerified ManifestEntryResult = "copied_verified"
	ManifestResultDedupVerified  ManifestEntryResult = "dedup_verified"
	ManifestResultChanged        ManifestEntryResult = "changed"
	ManifestResultFailed         ManifestEntryResult = "failed"
	ManifestResultSkipped        ManifestEntryResult = "skipped"
)

// Error codes surfaced via ManifestEntry.ErrorCode.
const (
	ErrorCodeSourceMissing       = "SOURCE_MISSING"
	ErrorCodeChangedSinceManifest = "CHANGED_SINCE_MANIFEST"
	ErrorCodeCopyHashMismatch    = "COPY_HASH_MISMATCH"
	ErrorCodeCancelled           = "CANCELLED"
)

// ManifestEntry is one file the engine intends to process as part of an
// ingest session, captured before any copy begins. Entries are immutable
// baseline once the manifest is sealed; only Result, hashes, and AssetID
// mutate afterward.
type ManifestEntry struct {
	BaseModel

	SessionID ULID `gorm:"not null;type:varchar(26);index" json:"session_id"`

	// RelativePath is source-root-relative, forward-slash normalized.
	RelativePath string  `gorm:"not null;size:2048;index" json:"relative_path"`
	SizeBytes    int64   `gorm:"not null" json:"size_bytes"`
	Mtime        *string `gorm:"size:32" json:"mtime,omitempty"`

	EntryType ManifestEntryType `gorm:"not null;size:20;index" json:"entry_type"`

	// ParentEntryID links a sidecar to its paired media entry; orphan
	// sidecars leave it nil.
	ParentEntryID *ULID `gorm:"type:varchar(26);index" json:"parent_entry_id,omitempty"`

	HashFast string `gorm:"size:128" json:"hash_fast,omitempty"`
	HashFull string `gorm:"size:128" json:"hash_full,omitempty"`

	AssetID *ULID `gorm:"type:varchar(26);index" json:"asset_id,omitempty"`

	Result      ManifestEntryResult `gorm:"not null;size:20;default:'pending';index" json:"result"`
	ErrorCode   string              `gorm:"size:64" json:"error_code,omitempty"`
	ErrorDetail string              `gorm:"size:2048" json:"error_detail,omitempty"`
}

// TableName returns the table name for ManifestEntry.
func (ManifestEntry) TableName() string {
	return "manifest_entries"
}

// IsTerminal reports whether the entry reached a terminal, verified state.
func (m *ManifestEntry) IsTerminal() bool {
	return m.Result == ManifestResultCopiedVerified || m.Result == ManifestResultDedupVerified
}

// IsOrphanSidecar reports whether this is a sidecar with no paired media.
func (m *ManifestEntry) IsOrphanSidecar() bool {
	return m.EntryType == ManifestEntryTypeSidecar && m.ParentEntryID == nil
}

// Validate performs basic validation on the manifest entry.
func (m *ManifestEntry) Validate() error {
	if m.RelativePath == "" {
		return ErrRelativePathRequired
	}
	return nil
}

// BeforeCreate generates a ULID and validates the entry.
func (m *ManifestEntry) BeforeCreate(tx *gorm.DB) error {
	if err := m.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	if m.Result == "" {
		m.Result = ManifestResultPending
	}
	return m.Validate()
}

// BeforeUpdate validates the entry before update.
func (m *ManifestEntry) BeforeUpdate(tx *gorm.DB) error {
	return m.Validate()
}
