package enums

import "fmt"

// ResourceEventType describes the change-feed mutation kinds.
type ResourceEventType string

const (
	ResourceEventInsert ResourceEventType = "insert"
	ResourceEventUpdate ResourceEventType = "update"
	ResourceEventDelete ResourceEventType = "delete"
)

var validResourceEventTypes = []ResourceEventType{
	ResourceEventInsert,
	ResourceEventUpdate,
	ResourceEventDelete,
}

// String renders the enum for logging and transport.
func (e ResourceEventType) String() string {
	return string(e)
}

// IsValid checks whether the given event type matches the canonical enum.
func (e ResourceEventType) IsValid() bool {
	for _, candidate := range validResourceEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// Resource names the collections watched by the change feed.
type Resource string

const (
	ResourceAssets      Resource = "assets"
	ResourceAssignments Resource = "assignments"
	ResourceComments    Resource = "comments"
	ResourceAuditLog    Resource = "audit_log"
	ResourceUsers       Resource = "users"
)

var validResources = []Resource{
	ResourceAssets,
	ResourceAssignments,
	ResourceComments,
	ResourceAuditLog,
	ResourceUsers,
}

// String renders the enum for logging and transport.
func (r Resource) String() string {
	return string(r)
}

// IsValid checks whether the given resource matches a watched collection.
func (r Resource) IsValid() bool {
	for _, candidate := range validResources {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseResource converts raw strings into Resource.
func ParseResource(value string) (Resource, error) {
	for _, candidate := range validResources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid resource %q", value)
}
