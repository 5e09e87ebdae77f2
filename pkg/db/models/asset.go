package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/assetdesk/assetdesk-backend/pkg/enums"
)

// Asset is a loanable equipment or vehicle record. Status is a cached
// projection of the assignment ledger, not independently trustworthy.
type Asset struct {
	ID             uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Kind           enums.AssetKind   `gorm:"type:asset_kind;not null" json:"kind"`
	Name           string            `gorm:"type:text;not null;uniqueIndex:idx_assets_name" json:"name"`
	SerialNumber   *string           `gorm:"column:serial_number;type:text" json:"serialNumber,omitempty"`
	Status         enums.AssetStatus `gorm:"type:asset_status;not null;default:'available'" json:"status"`
	Category       *string           `gorm:"type:text" json:"category,omitempty"`
	Brand          *string           `gorm:"type:text" json:"brand,omitempty"`
	Model          *string           `gorm:"type:text" json:"model,omitempty"`
	Location       *string           `gorm:"type:text" json:"location,omitempty"`
	PurchaseDate   *time.Time        `gorm:"column:purchase_date;type:date" json:"purchaseDate,omitempty"`
	WarrantyExpiry *time.Time        `gorm:"column:warranty_expiry;type:date" json:"warrantyExpiry,omitempty"`
	Description    *string           `gorm:"type:text" json:"description,omitempty"`
	Tags           pq.StringArray    `gorm:"type:text[]" json:"tags,omitempty"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName keeps the plural table naming used across the schema.
func (Asset) TableName() string { return "assets" }
