package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"
)

// ExifResult is one exiftool JSON object (exiftool -j emits an array
// with one element per input file; callers pass a single path so the
// slice always has length 1 on success).
type ExifResult struct {
	SourceFile      string `json:"SourceFile"`
	Make            string `json:"Make,omitempty"`
	Model           string `json:"Model,omitempty"`
	SerialNumber    string `json:"SerialNumber,omitempty"`
	LensModel       string `json:"LensModel,omitempty"`
	CreateDate      string `json:"CreateDate,omitempty"`
	DateTimeOriginal string `json:"DateTimeOriginal,omitempty"`
	GPSLatitude     string `json:"GPSLatitude,omitempty"`
	GPSLongitude    string `json:"GPSLongitude,omitempty"`
	ISO             int    `json:"ISO,omitempty"`
	FNumber         string `json:"FNumber,omitempty"`
	ExposureTime    string `json:"ExposureTime,omitempty"`
	ColorSpace      string `json:"ColorSpace,omitempty"`

	// Extra holds every field exiftool returned that isn't named above,
	// so extended-metadata callers (sidecar's extendedMetadata) don't
	// lose camera-specific tags this struct doesn't enumerate.
	Extra map[string]json.RawMessage `json:"-"`
}

// UnmarshalJSON captures named fields normally, then keeps everything
// else in Extra so sidecar writers can preserve the full exif dump.
func (e *ExifResult) UnmarshalJSON(data []byte) error {
	type alias ExifResult
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*e = ExifResult(a)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	known := map[string]bool{
		"SourceFile": true, "Make": true, "Model": true, "SerialNumber": true,
		"LensModel": true, "CreateDate": true, "DateTimeOriginal": true,
		"GPSLatitude": true, "GPSLongitude": true, "ISO": true, "FNumber": true,
		"ExposureTime": true, "ColorSpace": true,
	}
	e.Extra = make(map[string]json.RawMessage, len(raw))
	for k, v := range raw {
		if !known[k] {
			e.Extra[k] = v
		}
	}
	return nil
}

// ExifTool invokes the exiftool binary.
type ExifTool struct {
	path    string
	timeout time.Duration
}

// NewExifTool creates a new ExifTool wrapper. path is the resolved
// binary path; timeout defaults to 30s.
func NewExifTool(path string) *ExifTool {
	return &ExifTool{path: path, timeout: 30 * time.Second}
}

// WithTimeout sets the per-invocation timeout.
func (e *ExifTool) WithTimeout(timeout time.Duration) *ExifTool {
	e.timeout = timeout
	return e
}

// Extract runs `exiftool -j <path>` and returns the single-file result.
func (e *ExifTool) Extract(ctx context.Context, path string) (*ExifResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.path, "-j", path)
	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("exiftool timeout after %v", e.timeout)
		}
		return nil, fmt.Errorf("exiftool failed: %w", err)
	}

	var results []ExifResult
	if err := json.Unmarshal(output, &results); err != nil {
		return nil, fmt.Errorf("parsing exiftool output: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("exiftool returned no results for %s", path)
	}
	return &results[0], nil
}
