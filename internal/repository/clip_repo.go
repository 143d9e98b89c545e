package repository

import (
	"context"
	"fmt"

	"github.com/jmylchreest/camvault/internal/models"
	"gorm.io/gorm"
)

// clipRepo implements ClipRepository using GORM.
type clipRepo struct {
	db *gorm.DB
}

// NewClipRepository creates a new ClipRepository.
func NewClipRepository(db *gorm.DB) *clipRepo {
	return &clipRepo{db: db}
}

// Create creates a new clip.
func (r *clipRepo) Create(ctx context.Context, clip *models.Clip) error {
	if err := r.db.WithContext(ctx).Create(clip).Error; err != nil {
		return fmt.Errorf("creating clip: %w", err)
	}
	return nil
}

// GetByID retrieves a clip by ID.
func (r *clipRepo) GetByID(ctx context.Context, id models.ULID) (*models.Clip, error) {
	var clip models.Clip
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&clip).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting clip by ID: %w", err)
	}
	return &clip, nil
}

// GetByLibraryID retrieves all clips for a library.
func (r *clipRepo) GetByLibraryID(ctx context.Context, libraryID models.ULID) ([]*models.Clip, error) {
	var clips []*models.Clip
	if err := r.db.WithContext(ctx).Where("library_id = ?", libraryID).Order("created_at ASC").Find(&clips).Error; err != nil {
		return nil, fmt.Errorf("getting clips by library ID: %w", err)
	}
	return clips, nil
}

// GetByOriginalAssetID retrieves the clip for a given original asset.
func (r *clipRepo) GetByOriginalAssetID(ctx context.Context, assetID models.ULID) (*models.Clip, error) {
	var clip models.Clip
	if err := r.db.WithContext(ctx).Where("original_asset_id = ?", assetID).First(&clip).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting clip by original asset ID: %w", err)
	}
	return &clip, nil
}

// GetWithGenericFallback retrieves clips still carrying the generic fallback
// camera reference.
func (r *clipRepo) GetWithGenericFallback(ctx context.Context, libraryID models.ULID) ([]*models.Clip, error) {
	var clips []*models.Clip
	if err := r.db.WithContext(ctx).
		Where("library_id = ? AND (camera_profile_ref = ? OR camera_profile_ref = '')", libraryID, models.GenericFallbackProfileRef).
		Order("created_at ASC").
		Find(&clips).Error; err != nil {
		return nil, fmt.Errorf("getting clips with generic fallback: %w", err)
	}
	return clips, nil
}

// Update updates an existing clip.
func (r *clipRepo) Update(ctx context.Context, clip *models.Clip) error {
	if err := r.db.WithContext(ctx).Save(clip).Error; err != nil {
		return fmt.Errorf("updating clip: %w", err)
	}
	return nil
}

// Delete deletes a clip by ID.
func (r *clipRepo) Delete(ctx context.Context, id models.ULID) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Clip{}).Error; err != nil {
		return fmt.Errorf("deleting clip: %w", err)
	}
	return nil
}

// AddAsset links an asset to a clip with the given role.
func (r *clipRepo) AddAsset(ctx context.Context, clipID, assetID models.ULID, role models.ClipAssetRole) error {
	link := models.ClipAsset{ClipID: clipID, AssetID: assetID, Role: role}
	if err := r.db.WithContext(ctx).Create(&link).Error; err != nil {
		return fmt.Errorf("linking asset to clip: %w", err)
	}
	return nil
}

// GetAssets retrieves all assets linked to a clip.
func (r *clipRepo) GetAssets(ctx context.Context, clipID models.ULID) ([]*models.Asset, error) {
	var assets []*models.Asset
	if err := r.db.WithContext(ctx).
		Joins("JOIN clip_assets ON clip_assets.asset_id = assets.id").
		Where("clip_assets.clip_id = ?", clipID).
		Find(&assets).Error; err != nil {
		return nil, fmt.Errorf("getting assets for clip: %w", err)
	}
	return assets, nil
}

// GetAssetByRole retrieves the asset linked to a clip for a specific role.
func (r *clipRepo) GetAssetByRole(ctx context.Context, clipID models.ULID, role models.ClipAssetRole) (*models.Asset, error) {
	var asset models.Asset
	if err := r.db.WithContext(ctx).
		Joins("JOIN clip_assets ON clip_assets.asset_id = assets.id").
		Where("clip_assets.clip_id = ? AND clip_assets.role = ?", clipID, role).
		First(&asset).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting asset by role for clip: %w", err)
	}
	return &asset, nil
}

// Ensure clipRepo implements ClipRepository at compile time.
var _ ClipRepository = (*clipRepo)(nil)
