package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/assetdesk/assetdesk-backend/pkg/db/models"
	"github.com/assetdesk/assetdesk-backend/pkg/enums"
)

// UserDTO is the directory entry shape returned over the API.
type UserDTO struct {
	ID            uuid.UUID      `json:"id"`
	Email         *string        `json:"email,omitempty"`
	FirstName     string         `json:"firstName"`
	LastName      string         `json:"lastName"`
	DisplayName   string         `json:"displayName"`
	Department    *string        `json:"department,omitempty"`
	Role          enums.UserRole `json:"role"`
	IsPlaceholder bool           `json:"isPlaceholder"`
	IsActive      bool           `json:"isActive"`
	LastLoginAt   *time.Time     `json:"lastLoginAt,omitempty"`
}

// FromModel converts a stored user into its API shape.
func FromModel(user *models.User) *UserDTO {
	if user == nil {
		return nil
	}
	return &UserDTO{
		ID:            user.ID,
		Email:         user.Email,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		DisplayName:   user.DisplayName(),
		Department:    user.Department,
		Role:          user.Role,
		IsPlaceholder: user.IsPlaceholder,
		IsActive:      user.IsActive,
		LastLoginAt:   user.LastLoginAt,
	}
}
