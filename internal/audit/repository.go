package audit

import (
	"context"

	"gorm.io/gorm"

	"github.com/assetdesk/assetdesk-backend/pkg/db/models"
)

// Repository exposes audit log persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an audit repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Insert appends one entry to the audit log.
func (r *Repository) Insert(ctx context.Context, entry *models.AuditEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListRecent returns the newest entries first, capped at limit.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// DeleteAll removes every audit entry. Irreversible.
func (r *Repository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Where("1 = 1").
		Delete(&models.AuditEntry{}).Error
}
