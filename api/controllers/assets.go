package controllers

import (
	"net/http"
	"time"

	"github.com/assetdesk/assetdesk-backend/api/responses"
	"github.com/assetdesk/assetdesk-backend/api/validators"
	"github.com/assetdesk/assetdesk-backend/internal/assets"
	"github.com/assetdesk/assetdesk-backend/pkg/enums"
	pkgerrors "github.com/assetdesk/assetdesk-backend/pkg/errors"
	"github.com/assetdesk/assetdesk-backend/pkg/logger"
)

// assetRequest is the wire shape for add and edit. Status is optional on add;
// an empty status on edit keeps the current one.
type assetRequest struct {
	Kind           string     `json:"kind" validate:"required"`
	Name           string     `json:"name" validate:"required,max=200"`
	SerialNumber   *string    `json:"serialNumber,omitempty"`
	Status         string     `json:"status,omitempty"`
	Category       *string    `json:"category,omitempty"`
	Brand          *string    `json:"brand,omitempty"`
	Model          *string    `json:"model,omitempty"`
	Location       *string    `json:"location,omitempty"`
	PurchaseDate   *time.Time `json:"purchaseDate,omitempty"`
	WarrantyExpiry *time.Time `json:"warrantyExpiry,omitempty"`
	Description    *string    `json:"description,omitempty"`
	Tags           []string   `json:"tags,omitempty"`
}

type assetStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (req assetRequest) toDraft() (assets.Draft, error) {
	kind, err := enums.ParseAssetKind(req.Kind)
	if err != nil {
		return assets.Draft{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid asset kind").
			WithDetails(map[string]any{"field": "kind"})
	}

	var status enums.AssetStatus
	if req.Status != "" {
		status, err = enums.ParseAssetStatus(req.Status)
		if err != nil {
			return assets.Draft{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid asset status").
				WithDetails(map[string]any{"field": "status"})
		}
	}

	return assets.Draft{
		Kind:           kind,
		Name:           req.Name,
		SerialNumber:   req.SerialNumber,
		Status:         status,
		Category:       req.Category,
		Brand:          req.Brand,
		Model:          req.Model,
		Location:       req.Location,
		PurchaseDate:   req.PurchaseDate,
		WarrantyExpiry: req.WarrantyExpiry,
		Description:    req.Description,
		Tags:           req.Tags,
	}, nil
}

// AssetList returns the registry snapshot, sorted by name.
func AssetList(svc assets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, svc.Snapshot())
	}
}

// AssetCreate adds an asset to the registry.
func AssetCreate(svc assets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actingUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body assetRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		draft, err := body.toDraft()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Add(r.Context(), actor, draft)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// AssetUpdate edits an asset, re-checking uniqueness only for changed fields.
func AssetUpdate(svc assets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actingUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "assetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body assetRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		draft, err := body.toDraft()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Edit(r.Context(), actor, id, draft)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

// AssetDelete removes an asset. Dependent rows are not cascaded.
func AssetDelete(svc assets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actingUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "assetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Remove(r.Context(), actor, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// AssetSetStatus flips an asset's status directly, outside the ledger. Used
// for the manual available/maintenance toggle.
func AssetSetStatus(svc assets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "assetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body assetStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseAssetStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid asset status").
					WithDetails(map[string]any{"field": "status"}))
			return
		}

		if err := svc.SetStatus(r.Context(), id, status); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": status.String()})
	}
}
