package enums

import "fmt"

// AssetStatus maps to the asset_status enum in Postgres.
type AssetStatus string

const (
	AssetStatusAvailable   AssetStatus = "available"
	AssetStatusAssigned    AssetStatus = "assigned"
	AssetStatusMaintenance AssetStatus = "maintenance"
)

var validAssetStatuses = []AssetStatus{
	AssetStatusAvailable,
	AssetStatusAssigned,
	AssetStatusMaintenance,
}

// String renders the enum for logging and storage.
func (s AssetStatus) String() string {
	return string(s)
}

// IsValid checks whether the given status matches the canonical enum.
func (s AssetStatus) IsValid() bool {
	for _, candidate := range validAssetStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseAssetStatus converts raw strings into AssetStatus.
func ParseAssetStatus(value string) (AssetStatus, error) {
	for _, candidate := range validAssetStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid asset status %q", value)
}
