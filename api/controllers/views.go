package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/assetdesk/assetdesk-backend/api/responses"
	"github.com/assetdesk/assetdesk-backend/internal/assets"
	"github.com/assetdesk/assetdesk-backend/internal/assignments"
	"github.com/assetdesk/assetdesk-backend/internal/users"
	"github.com/assetdesk/assetdesk-backend/internal/views"
	pkgerrors "github.com/assetdesk/assetdesk-backend/pkg/errors"
	"github.com/assetdesk/assetdesk-backend/pkg/logger"
)

// multiParam collects a repeatable query parameter, also splitting
// comma-separated values within a single occurrence.
func multiParam(r *http.Request, name string) []string {
	var out []string
	for _, raw := range r.URL.Query()[name] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func holdingFilters(r *http.Request) (views.Filters, error) {
	f := views.Filters{
		Categories:  multiParam(r, "categories"),
		Departments: multiParam(r, "departments"),
	}
	for _, raw := range multiParam(r, "userIds") {
		id, err := uuid.Parse(raw)
		if err != nil {
			return views.Filters{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid user id filter").
				WithDetails(map[string]any{"field": "userIds", "value": raw})
		}
		f.UserIDs = append(f.UserIDs, id)
	}
	return f, nil
}

// ViewsCounts returns the status partition of the registry.
func ViewsCounts(assetSvc assets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, views.Counts(assetSvc.Snapshot()))
	}
}

// ViewsAvailable returns assets currently marked available.
func ViewsAvailable(assetSvc assets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, views.Available(assetSvc.Snapshot()))
	}
}

// ViewsMaintenance returns assets currently marked as in maintenance.
func ViewsMaintenance(assetSvc assets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, views.InMaintenance(assetSvc.Snapshot()))
	}
}

// ViewsHoldings joins every open custody row to its asset and holder. The
// categories, departments, and userIds query parameters narrow the result by
// set membership.
func ViewsHoldings(assetSvc assets.Service, assignSvc assignments.Service, userSvc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filters, err := holdingFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		holdings := views.ActiveHoldings(assetSvc.Snapshot(), assignSvc.Snapshot(), userSvc.Directory(), filters)
		responses.WriteSuccess(w, holdings)
	}
}

// ViewsUserAssets returns the assets a user currently holds.
func ViewsUserAssets(assetSvc assets.Service, assignSvc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := pathUUID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, views.AssetsForUser(userID, assetSvc.Snapshot(), assignSvc.Snapshot()))
	}
}

// ViewsUsersWithAssets returns the directory entries holding at least one
// asset, in directory order.
func ViewsUsersWithAssets(assignSvc assignments.Service, userSvc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		holders := views.UsersWithAssets(userSvc.Directory(), assignSvc.Snapshot())
		out := make([]*users.UserDTO, 0, len(holders))
		for i := range holders {
			out = append(out, users.FromModel(&holders[i]))
		}
		responses.WriteSuccess(w, out)
	}
}
