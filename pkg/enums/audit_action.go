package enums

import "fmt"

// AuditAction maps to the audit_action enum in Postgres.
type AuditAction string

const (
	AuditActionCreated     AuditAction = "created"
	AuditActionUpdated     AuditAction = "updated"
	AuditActionDeleted     AuditAction = "deleted"
	AuditActionAssigned    AuditAction = "assigned"
	AuditActionReturned    AuditAction = "returned"
	AuditActionTransferred AuditAction = "transferred"
)

var validAuditActions = []AuditAction{
	AuditActionCreated,
	AuditActionUpdated,
	AuditActionDeleted,
	AuditActionAssigned,
	AuditActionReturned,
	AuditActionTransferred,
}

// String renders the enum for logging and storage.
func (a AuditAction) String() string {
	return string(a)
}

// IsValid checks whether the given action matches the canonical enum.
func (a AuditAction) IsValid() bool {
	for _, candidate := range validAuditActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAuditAction converts raw strings into AuditAction.
func ParseAuditAction(value string) (AuditAction, error) {
	for _, candidate := range validAuditActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit action %q", value)
}
