package repository

import (
	"context"
	"fmt"

	"github.com/jmylchreest/camvault/internal/models"
	"gorm.io/gorm"
)

// sessionRepo implements IngestSessionRepository using GORM.
type sessionRepo struct {
	db *gorm.DB
}

// NewIngestSessionRepository creates a new IngestSessionRepository.
func NewIngestSessionRepository(db *gorm.DB) *sessionRepo {
	return &sessionRepo{db: db}
}

// Create creates a new ingest session.
func (r *sessionRepo) Create(ctx context.Context, session *models.IngestSession) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("creating ingest session: %w", err)
	}
	return nil
}

// GetByID retrieves a session by ID.
func (r *sessionRepo) GetByID(ctx context.Context, id models.ULID) (*models.IngestSession, error) {
	var session models.IngestSession
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting ingest session by ID: %w", err)
	}
	return &session, nil
}

// GetBySourceRoot retrieves the most recent session for a source root.
func (r *sessionRepo) GetBySourceRoot(ctx context.Context, sourceRoot string) (*models.IngestSession, error) {
	var session models.IngestSession
	if err := r.db.WithContext(ctx).
		Where("source_root = ?", sourceRoot).
		Order("created_at DESC").
		First(&session).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting ingest session by source root: %w", err)
	}
	return &session, nil
}

// GetAll retrieves all ingest sessions, most recent first.
func (r *sessionRepo) GetAll(ctx context.Context) ([]*models.IngestSession, error) {
	var sessions []*models.IngestSession
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("getting all ingest sessions: %w", err)
	}
	return sessions, nil
}

// GetPendingWipe retrieves sessions that have cleared the rescan gate
// (safeToWipeAt set), oldest first; it does not filter out sessions whose
// source was already wiped.
func (r *sessionRepo) GetPendingWipe(ctx context.Context) ([]*models.IngestSession, error) {
	var sessions []*models.IngestSession
	if err := r.db.WithContext(ctx).
		Where("safe_to_wipe_at IS NOT NULL").
		Order("safe_to_wipe_at ASC").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("getting sessions pending wipe: %w", err)
	}
	return sessions, nil
}

// Update updates an existing session.
func (r *sessionRepo) Update(ctx context.Context, session *models.IngestSession) error {
	if err := r.db.WithContext(ctx).Save(session).Error; err != nil {
		return fmt.Errorf("updating ingest session: %w", err)
	}
	return nil
}

// Delete deletes a session by ID.
func (r *sessionRepo) Delete(ctx context.Context, id models.ULID) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.IngestSession{}).Error; err != nil {
		return fmt.Errorf("deleting ingest session: %w", err)
	}
	return nil
}

// Ensure sessionRepo implements IngestSessionRepository at compile time.
var _ IngestSessionRepository = (*sessionRepo)(nil)
