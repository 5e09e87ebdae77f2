package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/assetdesk/assetdesk-backend/api/responses"
	"github.com/assetdesk/assetdesk-backend/api/validators"
	"github.com/assetdesk/assetdesk-backend/internal/assignments"
	"github.com/assetdesk/assetdesk-backend/pkg/logger"
)

type assignRequest struct {
	UserID uuid.UUID `json:"userId" validate:"required"`
}

// AssignmentList returns the full custody ledger, newest first.
func AssignmentList(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, svc.Snapshot())
	}
}

// AssetAssign gives custody of an asset to a user. Assigning over a live
// holder transfers it.
func AssetAssign(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actingUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		assetID, err := pathUUID(r, "assetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body assignRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Assign(r.Context(), assetID, body.UserID, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		current, _ := svc.CurrentAssignment(assetID)
		responses.WriteSuccess(w, current)
	}
}

// AssetReturn closes the asset's open custody row. No-op when nothing is open.
func AssetReturn(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actingUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		assetID, err := pathUUID(r, "assetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Return(r.Context(), assetID, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "returned"})
	}
}
