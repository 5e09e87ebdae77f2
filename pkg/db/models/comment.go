package models

import (
	"time"

	"github.com/google/uuid"
)

// Comment is a free-text note attached to an asset.
type Comment struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AssetID   uuid.UUID `gorm:"column:asset_id;type:uuid;not null;index" json:"assetId"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null" json:"userId"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

// TableName keeps the plural table naming used across the schema.
func (Comment) TableName() string { return "comments" }
