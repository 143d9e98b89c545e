package models

import (
	"errors"
	"fmt"
)

// ErrValidation represents a validation error with field and message.
type ErrValidation struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ErrValidation) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// Common validation errors for models.
var (
	// ErrRootPathRequired indicates a library's root path is empty.
	ErrRootPathRequired = errors.New("root_path is required")

	// ErrInvalidIngestMode indicates an ingest mode other than copy/reference.
	ErrInvalidIngestMode = errors.New("invalid ingest mode: must be 'copy' or 'reference'")

	// ErrInvalidAssetType indicates an unrecognized asset type.
	ErrInvalidAssetType = errors.New("invalid asset type")

	// ErrAssetPathRequired indicates an asset's path field is empty.
	ErrAssetPathRequired = errors.New("path is required")

	// ErrOriginalAssetRequired indicates a clip has no original asset link.
	ErrOriginalAssetRequired = errors.New("original_asset_id is required")

	// ErrSourceRootRequired indicates an ingest session has no source root.
	ErrSourceRootRequired = errors.New("source_root is required")

	// ErrRelativePathRequired indicates a manifest entry has no relative path.
	ErrRelativePathRequired = errors.New("relative_path is required")

	// ErrProfileNameRequired indicates a camera profile has no name/slug.
	ErrProfileNameRequired = errors.New("name is required")

	// ErrDeviceUUIDRequired indicates a camera device has no UUID.
	ErrDeviceUUIDRequired = errors.New("uuid is required")

	// ErrJobTypeRequired indicates a job was created without a type.
	ErrJobTypeRequired = errors.New("job type is required")
)
