package audit

import (
	"encoding/csv"
	"fmt"
	"strings"
)

var csvHeader = []string{
	"Date", "Time", "Action", "Asset Name", "Serial Number", "Type",
	"Brand", "Model", "Assigned To", "Previous User", "Performed By", "Details",
}

// ExportCSV renders enriched entries as a CSV document with a header row.
// Pure formatting: no I/O, standard quote escaping.
func ExportCSV(entries []EnrichedEntry) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	if err := w.Write(csvHeader); err != nil {
		return "", fmt.Errorf("writing csv header: %w", err)
	}
	for _, e := range entries {
		createdAt := e.Entry.CreatedAt.UTC()
		row := []string{
			createdAt.Format("2006-01-02"),
			createdAt.Format("15:04:05"),
			e.Entry.Action.String(),
			e.AssetName,
			e.SerialNumber,
			e.AssetKind,
			e.Brand,
			e.Model,
			e.AssignedTo,
			e.PreviousUser,
			e.PerformedBy,
			e.Entry.Details,
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("writing csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flushing csv: %w", err)
	}
	return sb.String(), nil
}
