package models

import (
	"time"

	"github.com/google/uuid"
)

// Assignment is one custody period of an asset. A null ReturnedAt marks the
// active assignment; closed rows are never deleted.
type Assignment struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AssetID    uuid.UUID  `gorm:"column:asset_id;type:uuid;not null;index" json:"assetId"`
	UserID     uuid.UUID  `gorm:"column:user_id;type:uuid;not null" json:"userId"`
	AssignedBy uuid.UUID  `gorm:"column:assigned_by;type:uuid;not null" json:"assignedBy"`
	AssignedAt time.Time  `gorm:"column:assigned_at;type:timestamptz;not null;default:now()" json:"assignedAt"`
	ReturnedAt *time.Time `gorm:"column:returned_at;type:timestamptz" json:"returnedAt,omitempty"`
	ReturnedBy *uuid.UUID `gorm:"column:returned_by;type:uuid" json:"returnedBy,omitempty"`
	Notes      *string    `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

// TableName keeps the plural table naming used across the schema.
func (Assignment) TableName() string { return "assignments" }

// Active reports whether this assignment still holds custody.
func (a Assignment) Active() bool { return a.ReturnedAt == nil }
