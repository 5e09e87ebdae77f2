package controllers

import (
	"net/http"

	"github.com/assetdesk/assetdesk-backend/api/responses"
	"github.com/assetdesk/assetdesk-backend/api/validators"
	"github.com/assetdesk/assetdesk-backend/internal/audit"
	"github.com/assetdesk/assetdesk-backend/pkg/logger"
)

// AuditList reloads the recent audit window and returns it enriched from the
// in-memory snapshots. An optional limit query parameter narrows the window
// further.
func AuditList(recorder audit.Recorder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 500)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := recorder.LoadRecent(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries := recorder.Enrich(recorder.Recent())
		if limit > 0 && len(entries) > limit {
			entries = entries[:limit]
		}
		responses.WriteSuccess(w, entries)
	}
}

// AuditExportCSV streams the enriched audit window as a CSV attachment.
func AuditExportCSV(recorder audit.Recorder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := recorder.LoadRecent(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		csv, err := audit.ExportCSV(recorder.Enrich(recorder.Recent()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="audit_log.csv"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(csv))
	}
}

// AuditClear deletes every audit entry. Admin only, irreversible.
func AuditClear(recorder audit.Recorder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := recorder.ClearAll(r.Context(), actingRole(r)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cleared"})
	}
}
