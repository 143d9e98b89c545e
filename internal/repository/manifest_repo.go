package repository

import (
	"context"
	"fmt"

	"github.com/jmylchreest/camvault/internal/models"
	"gorm.io/gorm"
)

// manifestRepo implements ManifestEntryRepository using GORM.
type manifestRepo struct {
	db *gorm.DB
}

// NewManifestEntryRepository creates a new ManifestEntryRepository.
func NewManifestEntryRepository(db *gorm.DB) *manifestRepo {
	return &manifestRepo{db: db}
}

// Create creates a new manifest entry.
func (r *manifestRepo) Create(ctx context.Context, entry *models.ManifestEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("creating manifest entry: %w", err)
	}
	return nil
}

// CreateBatch creates multiple manifest entries in a single batch.
func (r *manifestRepo) CreateBatch(ctx context.Context, entries []*models.ManifestEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(entries, 200).Error; err != nil {
		return fmt.Errorf("creating manifest entry batch: %w", err)
	}
	return nil
}

// GetByID retrieves a manifest entry by ID.
func (r *manifestRepo) GetByID(ctx context.Context, id models.ULID) (*models.ManifestEntry, error) {
	var entry models.ManifestEntry
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting manifest entry by ID: %w", err)
	}
	return &entry, nil
}

// GetBySessionID retrieves all manifest entries for a session.
func (r *manifestRepo) GetBySessionID(ctx context.Context, sessionID models.ULID) ([]*models.ManifestEntry, error) {
	var entries []*models.ManifestEntry
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("relative_path ASC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("getting manifest entries by session ID: %w", err)
	}
	return entries, nil
}

// GetPendingBySessionID retrieves entries for a session still awaiting
// processing.
func (r *manifestRepo) GetPendingBySessionID(ctx context.Context, sessionID models.ULID) ([]*models.ManifestEntry, error) {
	var entries []*models.ManifestEntry
	if err := r.db.WithContext(ctx).
		Where("session_id = ? AND result = ?", sessionID, models.ManifestResultPending).
		Order("relative_path ASC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("getting pending manifest entries: %w", err)
	}
	return entries, nil
}

// GetByRelativePath retrieves an entry for a session by its relative path.
func (r *manifestRepo) GetByRelativePath(ctx context.Context, sessionID models.ULID, relativePath string) (*models.ManifestEntry, error) {
	var entry models.ManifestEntry
	if err := r.db.WithContext(ctx).
		Where("session_id = ? AND relative_path = ?", sessionID, relativePath).
		First(&entry).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting manifest entry by relative path: %w", err)
	}
	return &entry, nil
}

// Update updates an existing manifest entry.
func (r *manifestRepo) Update(ctx context.Context, entry *models.ManifestEntry) error {
	if err := r.db.WithContext(ctx).Save(entry).Error; err != nil {
		return fmt.Errorf("updating manifest entry: %w", err)
	}
	return nil
}

// AllTerminal reports whether every entry for a session reached a terminal,
// verified result.
func (r *manifestRepo) AllTerminal(ctx context.Context, sessionID models.ULID) (bool, error) {
	var nonTerminal int64
	if err := r.db.WithContext(ctx).
		Model(&models.ManifestEntry{}).
		Where("session_id = ? AND result NOT IN (?, ?)", sessionID,
			models.ManifestResultCopiedVerified, models.ManifestResultDedupVerified).
		Count(&nonTerminal).Error; err != nil {
		return false, fmt.Errorf("counting non-terminal manifest entries: %w", err)
	}
	return nonTerminal == 0, nil
}

// Ensure manifestRepo implements ManifestEntryRepository at compile time.
var _ ManifestEntryRepository = (*manifestRepo)(nil)
