package repository

import (
	"context"
	"fmt"

	"github.com/jmylchreest/camvault/internal/models"
	"gorm.io/gorm"
)

// cameraProfileRepo implements CameraProfileRepository using GORM.
type cameraProfileRepo struct {
	db *gorm.DB
}

// NewCameraProfileRepository creates a new CameraProfileRepository.
func NewCameraProfileRepository(db *gorm.DB) *cameraProfileRepo {
	return &cameraProfileRepo{db: db}
}

// Create creates a new camera profile.
func (r *cameraProfileRepo) Create(ctx context.Context, profile *models.CameraProfile) error {
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		return fmt.Errorf("creating camera profile: %w", err)
	}
	return nil
}

// GetByID retrieves a profile by ID.
func (r *cameraProfileRepo) GetByID(ctx context.Context, id models.ULID) (*models.CameraProfile, error) {
	var profile models.CameraProfile
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting camera profile by ID: %w", err)
	}
	return &profile, nil
}

// GetByName retrieves a profile by its slug.
func (r *cameraProfileRepo) GetByName(ctx context.Context, name string) (*models.CameraProfile, error) {
	var profile models.CameraProfile
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&profile).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting camera profile by name: %w", err)
	}
	return &profile, nil
}

// GetAll retrieves all profiles, ordered by version descending then name
// ascending, matching the matcher's tie-break order.
func (r *cameraProfileRepo) GetAll(ctx context.Context) ([]*models.CameraProfile, error) {
	var profiles []*models.CameraProfile
	if err := r.db.WithContext(ctx).Order("version DESC, name ASC").Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("getting all camera profiles: %w", err)
	}
	return profiles, nil
}

// Update updates an existing profile.
func (r *cameraProfileRepo) Update(ctx context.Context, profile *models.CameraProfile) error {
	if err := r.db.WithContext(ctx).Save(profile).Error; err != nil {
		return fmt.Errorf("updating camera profile: %w", err)
	}
	return nil
}

// Delete deletes a profile by ID.
func (r *cameraProfileRepo) Delete(ctx context.Context, id models.ULID) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.CameraProfile{}).Error; err != nil {
		return fmt.Errorf("deleting camera profile: %w", err)
	}
	return nil
}

// Ensure cameraProfileRepo implements CameraProfileRepository at compile time.
var _ CameraProfileRepository = (*cameraProfileRepo)(nil)

// cameraDeviceRepo implements CameraDeviceRepository using GORM.
type cameraDeviceRepo struct {
	db *gorm.DB
}

// NewCameraDeviceRepository creates a new CameraDeviceRepository.
func NewCameraDeviceRepository(db *gorm.DB) *cameraDeviceRepo {
	return &cameraDeviceRepo{db: db}
}

// Create creates a new camera device.
func (r *cameraDeviceRepo) Create(ctx context.Context, device *models.CameraDevice) error {
	if err := r.db.WithContext(ctx).Create(device).Error; err != nil {
		return fmt.Errorf("creating camera device: %w", err)
	}
	return nil
}

// GetByID retrieves a device by ID.
func (r *cameraDeviceRepo) GetByID(ctx context.Context, id models.ULID) (*models.CameraDevice, error) {
	var device models.CameraDevice
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&device).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting camera device by ID: %w", err)
	}
	return &device, nil
}

// GetByUUID retrieves a device by its stable UUID.
func (r *cameraDeviceRepo) GetByUUID(ctx context.Context, uuid string) (*models.CameraDevice, error) {
	var device models.CameraDevice
	if err := r.db.WithContext(ctx).Where("uuid = ?", uuid).First(&device).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting camera device by UUID: %w", err)
	}
	return &device, nil
}

// GetByUSBFingerprint retrieves a device by its USB fingerprint.
func (r *cameraDeviceRepo) GetByUSBFingerprint(ctx context.Context, fingerprint string) (*models.CameraDevice, error) {
	var device models.CameraDevice
	if err := r.db.WithContext(ctx).Where("usb_fingerprint = ?", fingerprint).First(&device).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting camera device by USB fingerprint: %w", err)
	}
	return &device, nil
}

// GetBySerial retrieves a device by its reported serial number.
func (r *cameraDeviceRepo) GetBySerial(ctx context.Context, serial string) (*models.CameraDevice, error) {
	var device models.CameraDevice
	if err := r.db.WithContext(ctx).Where("serial = ?", serial).First(&device).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting camera device by serial: %w", err)
	}
	return &device, nil
}

// GetAll retrieves all registered devices.
func (r *cameraDeviceRepo) GetAll(ctx context.Context) ([]*models.CameraDevice, error) {
	var devices []*models.CameraDevice
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&devices).Error; err != nil {
		return nil, fmt.Errorf("getting all camera devices: %w", err)
	}
	return devices, nil
}

// Update updates an existing device.
func (r *cameraDeviceRepo) Update(ctx context.Context, device *models.CameraDevice) error {
	if err := r.db.WithContext(ctx).Save(device).Error; err != nil {
		return fmt.Errorf("updating camera device: %w", err)
	}
	return nil
}

// Delete deletes a device by ID.
func (r *cameraDeviceRepo) Delete(ctx context.Context, id models.ULID) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.CameraDevice{}).Error; err != nil {
		return fmt.Errorf("deleting camera device: %w", err)
	}
	return nil
}

// Ensure cameraDeviceRepo implements CameraDeviceRepository at compile time.
var _ CameraDeviceRepository = (*cameraDeviceRepo)(nil)
