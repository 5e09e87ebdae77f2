package audit

import (
	"github.com/google/uuid"

	"github.com/assetdesk/assetdesk-backend/pkg/db/models"
)

// Sentinels rendered when an id cannot be resolved from the current
// snapshots. A row that still exists in storage but is absent from the
// loaded snapshot renders the same way.
const (
	UnknownAsset = "Unknown Asset"
	UnknownUser  = "Unknown User"
)

// EnrichedEntry is the denormalized display shape of one audit entry.
type EnrichedEntry struct {
	Entry        models.AuditEntry `json:"entry"`
	AssetName    string            `json:"assetName"`
	SerialNumber string            `json:"serialNumber"`
	AssetKind    string            `json:"assetKind"`
	Brand        string            `json:"brand"`
	Model        string            `json:"model"`
	User         string            `json:"user,omitempty"`
	AssignedTo   string            `json:"assignedTo,omitempty"`
	PreviousUser string            `json:"previousUser,omitempty"`
	PerformedBy  string            `json:"performedBy,omitempty"`
}

// Enrich resolves every reference against the registry and directory
// snapshots only. No remote lookups: a deleted or unloaded row degrades to a
// sentinel, never to an error.
func (r *recorder) Enrich(entries []models.AuditEntry) []EnrichedEntry {
	out := make([]EnrichedEntry, 0, len(entries))
	for _, entry := range entries {
		enriched := EnrichedEntry{
			Entry:        entry,
			AssetName:    UnknownAsset,
			User:         r.userName(entry.UserID),
			AssignedTo:   r.userName(entry.AssignedToUserID),
			PreviousUser: r.userName(entry.PreviousUserID),
			PerformedBy:  r.userName(entry.PerformedByUserID),
		}
		if entry.AssetID != nil {
			if asset, ok := r.assets.AssetByID(*entry.AssetID); ok {
				enriched.AssetName = asset.Name
				enriched.AssetKind = asset.Kind.String()
				enriched.SerialNumber = deref(asset.SerialNumber)
				enriched.Brand = deref(asset.Brand)
				enriched.Model = deref(asset.Model)
			}
		}
		out = append(out, enriched)
	}
	return out
}

// userName maps nil to empty (no reference recorded) and an unresolvable id
// to the sentinel.
func (r *recorder) userName(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	if user, ok := r.users.UserByID(*id); ok {
		return user.DisplayName()
	}
	return UnknownUser
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
