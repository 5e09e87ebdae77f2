package controllers

import (
	"net/http"

	"github.com/assetdesk/assetdesk-backend/api/responses"
	"github.com/assetdesk/assetdesk-backend/internal/users"
	pkgerrors "github.com/assetdesk/assetdesk-backend/pkg/errors"
	"github.com/assetdesk/assetdesk-backend/pkg/logger"
)

// UserDirectory returns the merged directory, sorted by display name.
func UserDirectory(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		directory := svc.Directory()
		out := make([]*users.UserDTO, 0, len(directory))
		for i := range directory {
			out = append(out, users.FromModel(&directory[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// UserDetail returns a single directory entry from the snapshot.
func UserDetail(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, ok := svc.UserByID(id)
		if !ok {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeNotFound, "user not found"))
			return
		}
		responses.WriteSuccess(w, users.FromModel(&user))
	}
}
