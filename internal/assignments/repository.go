package assignments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/assetdesk/assetdesk-backend/pkg/db/models"
)

// Repository exposes custody ledger persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an assignments repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// ListAll returns the full ledger, newest assignment first.
func (r *Repository) ListAll(ctx context.Context) ([]models.Assignment, error) {
	var rows []models.Assignment
	err := r.db.WithContext(ctx).
		Order("assigned_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Insert opens a new custody row.
func (r *Repository) Insert(ctx context.Context, assignment *models.Assignment) (*models.Assignment, error) {
	if err := r.db.WithContext(ctx).Create(assignment).Error; err != nil {
		return nil, err
	}
	return assignment, nil
}

// Close stamps the custody row as returned, including the returned_by column.
func (r *Repository) Close(ctx context.Context, id uuid.UUID, returnedAt time.Time, returnedBy uuid.UUID, notes *string) error {
	return r.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"returned_at": returnedAt,
			"returned_by": returnedBy,
			"notes":       notes,
		}).Error
}

// CloseWithoutReturnedBy stamps the custody row as returned for schemas that
// predate the returned_by column. The note payload carries the returner.
func (r *Repository) CloseWithoutReturnedBy(ctx context.Context, id uuid.UUID, returnedAt time.Time, notes *string) error {
	return r.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"returned_at": returnedAt,
			"notes":       notes,
		}).Error
}
