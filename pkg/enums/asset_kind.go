package enums

import "fmt"

// AssetKind distinguishes the two loanable asset populations.
type AssetKind string

const (
	AssetKindEquipment AssetKind = "equipment"
	AssetKindVehicle   AssetKind = "vehicle"
)

var validAssetKinds = []AssetKind{
	AssetKindEquipment,
	AssetKindVehicle,
}

// String renders the enum for logging and storage.
func (k AssetKind) String() string {
	return string(k)
}

// IsValid checks whether the given kind matches the canonical enum.
func (k AssetKind) IsValid() bool {
	for _, candidate := range validAssetKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseAssetKind converts raw strings into AssetKind.
func ParseAssetKind(value string) (AssetKind, error) {
	for _, candidate := range validAssetKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid asset kind %q", value)
}
