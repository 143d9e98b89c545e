package models

import "gorm.io/gorm"

// AssetType classifies what role a file plays in the library.
type AssetType string

const (
	AssetTypeOriginal AssetType = "original"
	AssetTypeSidecar  AssetType = "sidecar"
	AssetTypeProxy    AssetType = "proxy"
	AssetTypeThumb    AssetType = "thumb"
	AssetTypeSprite   AssetType = "sprite"
)

// VerificationMethod records how an asset's hash was established.
type VerificationMethod string

const (
	// VerificationCopyReadback means the destination was re-hashed after
	// copy and compared to the streaming hash computed during copy.
	VerificationCopyReadback VerificationMethod = "copy_readback"
	// VerificationHashOnly means the file was never copied (reference
	// mode); only a full hash of the source was computed.
	VerificationHashOnly VerificationMethod = "hash_only"
)

// Asset is a single file tracked by the library: an original, a sidecar,
// or a derived asset (proxy/thumb/sprite).
type Asset struct {
	BaseModel

	LibraryID ULID      `gorm:"not null;type:varchar(26);index" json:"library_id"`
	AssetType AssetType `gorm:"not null;size:20;index" json:"asset_type"`

	// Path is library-relative for copied assets, or "ref:<absolute>" for
	// reference-mode originals.
	Path string `gorm:"not null;size:2048" json:"path"`

	// SourceURI is the absolute source path, set only in reference mode.
	SourceURI string `gorm:"size:2048" json:"source_uri,omitempty"`

	SizeBytes int64 `gorm:"not null" json:"size_bytes"`

	// HashFast uniquely identifies copy-mode originals within a library
	// for dedup purposes; HashFull is authoritative.
	HashFast       string `gorm:"size:128;index:idx_asset_hash_fast" json:"hash_fast,omitempty"`
	HashFastScheme string `gorm:"size:64" json:"hash_fast_scheme,omitempty"`
	HashFull       string `gorm:"size:128;index" json:"hash_full,omitempty"`

	VerifiedAt         *Time              `json:"verified_at,omitempty"`
	VerificationMethod VerificationMethod `gorm:"size:20" json:"verification_method,omitempty"`

	// PipelineVersion stamps which version of the extraction/derivation
	// pipeline produced this asset; bumping the constant makes background
	// rematch/reextract jobs pick up stale rows over time.
	PipelineVersion int `gorm:"default:0" json:"pipeline_version"`
}

// TableName returns the table name for Asset.
func (Asset) TableName() string {
	return "assets"
}

// IsReference reports whether this asset's bytes live outside the library.
func (a *Asset) IsReference() bool {
	return len(a.Path) > 4 && a.Path[:4] == "ref:"
}

// Validate performs basic validation on the asset.
func (a *Asset) Validate() error {
	switch a.AssetType {
	case AssetTypeOriginal, AssetTypeSidecar, AssetTypeProxy, AssetTypeThumb, AssetTypeSprite:
	default:
		return ErrInvalidAssetType
	}
	if a.Path == "" {
		return ErrAssetPathRequired
	}
	return nil
}

// BeforeCreate generates a ULID and validates the asset.
func (a *Asset) BeforeCreate(tx *gorm.DB) error {
	if err := a.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return a.Validate()
}

// BeforeUpdate validates the asset before update.
func (a *Asset) BeforeUpdate(tx *gorm.DB) error {
	return a.Validate()
}

// ClipAssetRole describes the role a linked asset plays for a clip.
type ClipAssetRole string

const (
	ClipAssetRoleOriginal ClipAssetRole = "original"
	ClipAssetRoleSidecar  ClipAssetRole = "sidecar"
	ClipAssetRoleProxy    ClipAssetRole = "proxy"
	ClipAssetRoleThumb    ClipAssetRole = "thumb"
	ClipAssetRoleSprite   ClipAssetRole = "sprite"
)

// ClipAsset is the join row linking a clip to one of its assets. It is
// the only cross-link between clips and assets; sidecar-to-clip
// resolution for orphan detection walks ManifestEntry.ParentEntryID ->
// AssetID -> ClipAsset instead of a direct foreign key, keeping the
// schema a DAG with no in-memory cycles.
type ClipAsset struct {
	ClipID  ULID          `gorm:"primarykey;type:varchar(26)" json:"clip_id"`
	AssetID ULID          `gorm:"primarykey;type:varchar(26)" json:"asset_id"`
	Role    ClipAssetRole `gorm:"not null;size:20" json:"role"`
}

// TableName returns the table name for ClipAsset.
func (ClipAsset) TableName() string {
	return "clip_assets"
}
