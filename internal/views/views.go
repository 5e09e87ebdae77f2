// Package views derives read-only projections from the in-memory registry,
// ledger, and directory snapshots. Everything here is a pure function; no
// storage access, no mutation.
package views

import (
	"github.com/google/uuid"

	"github.com/assetdesk/assetdesk-backend/pkg/db/models"
	"github.com/assetdesk/assetdesk-backend/pkg/enums"
)

// Holding joins an active custody row to its asset and holder. Holder is the
// zero value when the user is absent from the directory snapshot.
type Holding struct {
	Asset      models.Asset      `json:"asset"`
	Assignment models.Assignment `json:"assignment"`
	Holder     models.User       `json:"holder"`
}

// Filters narrows ActiveHoldings by set membership. An empty slice applies no
// filtering, and a selection covering every value present in the snapshots is
// treated the same as empty.
type Filters struct {
	Categories  []string    `json:"categories,omitempty"`
	Departments []string    `json:"departments,omitempty"`
	UserIDs     []uuid.UUID `json:"userIds,omitempty"`
}

// StatusCounts is the status partition of the registry snapshot.
type StatusCounts struct {
	Available   int `json:"available"`
	Assigned    int `json:"assigned"`
	Maintenance int `json:"maintenance"`
}

// selection is a normalized multi-select filter. nil means no filtering.
type selection[T comparable] map[T]struct{}

// newSelection builds a filter from the chosen values. Empty choices and
// choices covering the whole universe both normalize to nil.
func newSelection[T comparable](chosen []T, universe map[T]struct{}) selection[T] {
	if len(chosen) == 0 {
		return nil
	}
	set := make(selection[T], len(chosen))
	for _, c := range chosen {
		set[c] = struct{}{}
	}
	for u := range universe {
		if _, ok := set[u]; !ok {
			return set
		}
	}
	return nil
}

func (s selection[T]) allows(v T) bool {
	if s == nil {
		return true
	}
	_, ok := s[v]
	return ok
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Available returns the assets currently marked available.
func Available(assets []models.Asset) []models.Asset {
	return byStatus(assets, enums.AssetStatusAvailable)
}

// InMaintenance returns the assets currently marked as in maintenance.
func InMaintenance(assets []models.Asset) []models.Asset {
	return byStatus(assets, enums.AssetStatusMaintenance)
}

func byStatus(assets []models.Asset, status enums.AssetStatus) []models.Asset {
	out := make([]models.Asset, 0, len(assets))
	for _, a := range assets {
		if a.Status == status {
			out = append(out, a)
		}
	}
	return out
}

// Counts partitions the registry snapshot by status.
func Counts(assets []models.Asset) StatusCounts {
	var c StatusCounts
	for _, a := range assets {
		switch a.Status {
		case enums.AssetStatusAvailable:
			c.Available++
		case enums.AssetStatusAssigned:
			c.Assigned++
		case enums.AssetStatusMaintenance:
			c.Maintenance++
		}
	}
	return c
}

// ActiveHoldings joins every open custody row to its asset and holder,
// applying the multi-select filters. Input ordering of the ledger snapshot is
// preserved.
func ActiveHoldings(assets []models.Asset, assignments []models.Assignment, users []models.User, f Filters) []Holding {
	assetByID := make(map[uuid.UUID]models.Asset, len(assets))
	categories := make(map[string]struct{}, len(assets))
	for _, a := range assets {
		assetByID[a.ID] = a
		categories[deref(a.Category)] = struct{}{}
	}

	userByID := make(map[uuid.UUID]models.User, len(users))
	departments := make(map[string]struct{}, len(users))
	userIDs := make(map[uuid.UUID]struct{}, len(users))
	for _, u := range users {
		userByID[u.ID] = u
		departments[deref(u.Department)] = struct{}{}
		userIDs[u.ID] = struct{}{}
	}

	categoryFilter := newSelection(f.Categories, categories)
	departmentFilter := newSelection(f.Departments, departments)
	userFilter := newSelection(f.UserIDs, userIDs)

	out := make([]Holding, 0, len(assignments))
	for _, row := range assignments {
		if !row.Active() {
			continue
		}
		asset, ok := assetByID[row.AssetID]
		if !ok {
			continue
		}
		holder := userByID[row.UserID]
		if !categoryFilter.allows(deref(asset.Category)) {
			continue
		}
		if !departmentFilter.allows(deref(holder.Department)) {
			continue
		}
		if !userFilter.allows(row.UserID) {
			continue
		}
		out = append(out, Holding{Asset: asset, Assignment: row, Holder: holder})
	}
	return out
}

// AssetsForUser returns the assets a user currently holds, joined to their
// open custody rows.
func AssetsForUser(userID uuid.UUID, assets []models.Asset, assignments []models.Assignment) []Holding {
	assetByID := make(map[uuid.UUID]models.Asset, len(assets))
	for _, a := range assets {
		assetByID[a.ID] = a
	}

	out := make([]Holding, 0, 4)
	for _, row := range assignments {
		if !row.Active() || row.UserID != userID {
			continue
		}
		asset, ok := assetByID[row.AssetID]
		if !ok {
			continue
		}
		out = append(out, Holding{Asset: asset, Assignment: row})
	}
	return out
}

// UsersWithAssets returns the directory entries holding at least one asset,
// preserving directory order.
func UsersWithAssets(users []models.User, assignments []models.Assignment) []models.User {
	holders := make(map[uuid.UUID]struct{}, len(assignments))
	for _, row := range assignments {
		if row.Active() {
			holders[row.UserID] = struct{}{}
		}
	}

	out := make([]models.User, 0, len(holders))
	for _, u := range users {
		if _, ok := holders[u.ID]; ok {
			out = append(out, u)
		}
	}
	return out
}
