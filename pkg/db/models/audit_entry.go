package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/assetdesk/assetdesk-backend/pkg/enums"
)

// AuditEntry is an immutable lifecycle log record. AssetID and every user
// reference are nullable: the referenced rows may be deleted after the fact.
type AuditEntry struct {
	ID                uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AssetID           *uuid.UUID        `gorm:"column:asset_id;type:uuid" json:"assetId,omitempty"`
	Action            enums.AuditAction `gorm:"column:action;type:audit_action;not null" json:"action"`
	UserID            *uuid.UUID        `gorm:"column:user_id;type:uuid" json:"userId,omitempty"`
	AssignedToUserID  *uuid.UUID        `gorm:"column:assigned_to_user_id;type:uuid" json:"assignedToUserId,omitempty"`
	PerformedByUserID *uuid.UUID        `gorm:"column:performed_by_user_id;type:uuid" json:"performedByUserId,omitempty"`
	PreviousUserID    *uuid.UUID        `gorm:"column:previous_user_id;type:uuid" json:"previousUserId,omitempty"`
	Details           string            `gorm:"type:text" json:"details"`
	Metadata          json.RawMessage   `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

// TableName pins the audit table name branched on by the recorder.
func (AuditEntry) TableName() string { return "audit_log" }
