package models

import "gorm.io/gorm"

// CameraDevice is a registered physical device, identified by a stable
// UUID independent of any single library. Devices outrank profiles in the
// matcher's priority cascade: a clip that matches both a device and a
// profile is attributed to the device.
type CameraDevice struct {
	BaseModel

	// UUID is the stable cross-library identifier for this device.
	UUID string `gorm:"not null;uniqueIndex;size:36" json:"uuid"`

	FleetLabel string `gorm:"not null;size:255" json:"fleet_label"`

	ProfileID *ULID `gorm:"type:varchar(26);index" json:"profile_id,omitempty"`

	// Serial is the device's reported serial number, when available.
	Serial string `gorm:"size:255;index" json:"serial,omitempty"`

	// USBFingerprint is the highest-confidence match signal: a composite of
	// USB vendor/product/serial identifiers captured at mount time.
	USBFingerprint string `gorm:"size:255;uniqueIndex" json:"usb_fingerprint,omitempty"`
}

// TableName returns the table name for CameraDevice.
func (CameraDevice) TableName() string {
	return "camera_devices"
}

// Validate performs basic validation on the camera device.
func (d *CameraDevice) Validate() error {
	if d.UUID == "" {
		return ErrDeviceUUIDRequired
	}
	return nil
}

// BeforeCreate generates a ULID, assigns a UUID if missing, and validates
// the device.
func (d *CameraDevice) BeforeCreate(tx *gorm.DB) error {
	if err := d.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	if d.UUID == "" {
		d.UUID = NewULID().String()
	}
	return d.Validate()
}

// BeforeUpdate validates the device before update.
func (d *CameraDevice) BeforeUpdate(tx *gorm.DB) error {
	return d.Validate()
}
