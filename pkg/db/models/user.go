package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/assetdesk/assetdesk-backend/pkg/enums"
)

// User is a directory entry. Placeholder rows represent people who can hold
// assets but never log in (contractors, shared pool accounts).
type User struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email         *string        `gorm:"type:text;uniqueIndex" json:"email,omitempty"`
	PasswordHash  *string        `gorm:"column:password_hash" json:"-"`
	FirstName     string         `gorm:"column:first_name;not null" json:"firstName"`
	LastName      string         `gorm:"column:last_name;not null" json:"lastName"`
	Department    *string        `gorm:"type:text" json:"department,omitempty"`
	Role          enums.UserRole `gorm:"type:user_role;not null;default:'member'" json:"role"`
	IsPlaceholder bool           `gorm:"column:is_placeholder;not null;default:false" json:"isPlaceholder"`
	IsActive      bool           `gorm:"column:is_active;not null;default:true" json:"isActive"`
	LastLoginAt   *time.Time     `gorm:"column:last_login_at" json:"lastLoginAt,omitempty"`
	CreatedAt     time.Time      `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName keeps the plural table naming used across the schema.
func (User) TableName() string { return "users" }

// DisplayName joins first and last name for directory listings.
func (u User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
