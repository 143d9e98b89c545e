package repository

import (
	"context"
	"fmt"

	"github.com/jmylchreest/camvault/internal/models"
	"gorm.io/gorm"
)

// assetRepo implements AssetRepository using GORM.
type assetRepo struct {
	db *gorm.DB
}

// NewAssetRepository creates a new AssetRepository.
func NewAssetRepository(db *gorm.DB) *assetRepo {
	return &assetRepo{db: db}
}

// Create creates a new asset.
func (r *assetRepo) Create(ctx context.Context, asset *models.Asset) error {
	if err := r.db.WithContext(ctx).Create(asset).Error; err != nil {
		return fmt.Errorf("creating asset: %w", err)
	}
	return nil
}

// GetByID retrieves an asset by ID.
func (r *assetRepo) GetByID(ctx context.Context, id models.ULID) (*models.Asset, error) {
	var asset models.Asset
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&asset).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting asset by ID: %w", err)
	}
	return &asset, nil
}

// GetByLibraryID retrieves all assets for a library.
func (r *assetRepo) GetByLibraryID(ctx context.Context, libraryID models.ULID) ([]*models.Asset, error) {
	var assets []*models.Asset
	if err := r.db.WithContext(ctx).Where("library_id = ?", libraryID).Order("created_at ASC").Find(&assets).Error; err != nil {
		return nil, fmt.Errorf("getting assets by library ID: %w", err)
	}
	return assets, nil
}

// GetByHashFast looks up an asset by its fast hash within a library.
func (r *assetRepo) GetByHashFast(ctx context.Context, libraryID models.ULID, hashFast string) (*models.Asset, error) {
	var asset models.Asset
	if err := r.db.WithContext(ctx).
		Where("library_id = ? AND hash_fast = ?", libraryID, hashFast).
		First(&asset).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting asset by fast hash: %w", err)
	}
	return &asset, nil
}

// GetByHashFull looks up an asset by its full hash within a library.
func (r *assetRepo) GetByHashFull(ctx context.Context, libraryID models.ULID, hashFull string) (*models.Asset, error) {
	var asset models.Asset
	if err := r.db.WithContext(ctx).
		Where("library_id = ? AND hash_full = ?", libraryID, hashFull).
		First(&asset).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting asset by full hash: %w", err)
	}
	return &asset, nil
}

// Update updates an existing asset.
func (r *assetRepo) Update(ctx context.Context, asset *models.Asset) error {
	if err := r.db.WithContext(ctx).Save(asset).Error; err != nil {
		return fmt.Errorf("updating asset: %w", err)
	}
	return nil
}

// Delete deletes an asset by ID.
func (r *assetRepo) Delete(ctx context.Context, id models.ULID) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Asset{}).Error; err != nil {
		return fmt.Errorf("deleting asset: %w", err)
	}
	return nil
}

// GetStalePipelineVersion retrieves assets whose pipeline version is below
// the given current version.
func (r *assetRepo) GetStalePipelineVersion(ctx context.Context, libraryID models.ULID, currentVersion int) ([]*models.Asset, error) {
	var assets []*models.Asset
	if err := r.db.WithContext(ctx).
		Where("library_id = ? AND pipeline_version < ?", libraryID, currentVersion).
		Order("created_at ASC").
		Find(&assets).Error; err != nil {
		return nil, fmt.Errorf("getting stale pipeline version assets: %w", err)
	}
	return assets, nil
}

// Ensure assetRepo implements AssetRepository at compile time.
var _ AssetRepository = (*assetRepo)(nil)
