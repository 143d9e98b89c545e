// Package camerror provides the ingest engine's error-kind taxonomy.
//
// Go has no sum-type enums, so this generalizes the teacher's
// models.ErrValidation sentinel-plus-struct idiom into a single typed
// wrapper: a Kind names the category, Op names the failing operation, and
// Err carries the underlying cause for Unwrap.
package camerror

import "errors"

// Kind names a category of failure the engine can surface to a caller.
// These mirror spec §7's error-kind list, not Go type names.
type Kind string

const (
	KindDatabase          Kind = "Database"
	KindIO                Kind = "Io"
	KindJSON              Kind = "Json"
	KindLibraryNotFound   Kind = "LibraryNotFound"
	KindLibraryExists     Kind = "LibraryExists"
	KindClipNotFound      Kind = "ClipNotFound"
	KindAssetNotFound     Kind = "AssetNotFound"
	KindJobNotFound       Kind = "JobNotFound"
	KindInvalidPath       Kind = "InvalidPath"
	KindFFprobe           Kind = "FFprobe"
	KindExifTool          Kind = "ExifTool"
	KindFFmpeg            Kind = "FFmpeg"
	KindHash              Kind = "Hash"
	KindIngest            Kind = "Ingest"
	KindFileNotFound      Kind = "FileNotFound"
	KindDuplicateFile     Kind = "DuplicateFile"
	KindUnsupportedFormat Kind = "UnsupportedFormat"
	KindConfig            Kind = "Config"
	KindScoring           Kind = "Scoring"
	KindOther             Kind = "Other"
)

// Error is the engine's typed error. Op names the failing operation (e.g.
// "ingest.copyVerify", "camera.match") for log correlation; Err carries the
// underlying cause, if any.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind) + ": " + e.Op
	}
	return string(e.Kind) + ": " + e.Op + ": " + e.Err.Error()
}

// Unwrap returns the wrapped error, allowing errors.Is/As to see through it.
func (e *Error) Unwrap() error {
	return e.Err
}

// New constructs an Error with no wrapped cause.
func New(kind Kind, op string) *Error {
	return &Error{Kind: kind, Op: op}
}

// Wrap constructs an Error wrapping err under the given kind and operation.
// Returns nil if err is nil, so callers can write `return camerror.Wrap(...)`
// unconditionally at the end of a function.
func Wrap(kind Kind, op string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err is a *Error of the given kind, looking through any
// wrapping via errors.As.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// KindOf returns the Kind of err if it is (or wraps) a *Error, and ok=false
// otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return "", false
	}
	return e.Kind, true
}
