package assets

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/assetdesk/assetdesk-backend/pkg/db/models"
	"github.com/assetdesk/assetdesk-backend/pkg/enums"
)

// Repository exposes asset persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an assets repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// ListAll returns every asset ordered by name.
func (r *Repository) ListAll(ctx context.Context) ([]models.Asset, error) {
	var assets []models.Asset
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&assets).Error; err != nil {
		return nil, err
	}
	return assets, nil
}

// FindByID loads a single asset row.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Asset, error) {
	var asset models.Asset
	if err := r.db.WithContext(ctx).First(&asset, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &asset, nil
}

// Insert persists a new asset and returns the stored row.
func (r *Repository) Insert(ctx context.Context, asset *models.Asset) (*models.Asset, error) {
	if err := r.db.WithContext(ctx).Create(asset).Error; err != nil {
		return nil, err
	}
	return asset, nil
}

// Update saves the full asset row.
func (r *Repository) Update(ctx context.Context, asset *models.Asset) (*models.Asset, error) {
	if err := r.db.WithContext(ctx).Save(asset).Error; err != nil {
		return nil, err
	}
	return asset, nil
}

// Delete removes the asset row. Dependent assignments and comments are not
// cascaded here; orphaned references degrade to sentinels at read time.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Asset{}, "id = ?", id).Error
}

// UpdateStatus mutates only the cached status projection.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.AssetStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Asset{}).
		Where("id = ?", id).
		Update("status", status).Error
}
