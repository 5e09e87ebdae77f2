package assignments

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/assetdesk/assetdesk-backend/pkg/db/models"
)

// returnNote is the structured payload embedded in the assignment notes field
// on return. It doubles as the returner record for schemas missing the
// returned_by column.
type returnNote struct {
	Message        string    `json:"message"`
	ReturnedByID   string    `json:"returnedById,omitempty"`
	ReturnedByName string    `json:"returnedByName,omitempty"`
	ReturnedAt     time.Time `json:"returnedAt"`
}

// transferNote is the structured payload embedded when an active custody row
// is closed because the asset moved directly to another holder.
type transferNote struct {
	Message         string    `json:"message"`
	TransferredToID string    `json:"transferredToId"`
	TransferredByID string    `json:"transferredById"`
	TransferredAt   time.Time `json:"transferredAt"`
}

func encodeNote(v any) *string {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	s := string(raw)
	return &s
}

// ReturnedBy derives who returned a closed assignment for display: the
// dedicated column when populated, else a tolerant parse of the note-embedded
// fallback. Malformed or non-JSON notes degrade to unknown, never an error.
func ReturnedBy(a models.Assignment) (uuid.UUID, string, bool) {
	if a.ReturnedBy != nil {
		return *a.ReturnedBy, "", true
	}
	if a.Notes == nil {
		return uuid.Nil, "", false
	}

	var note returnNote
	if err := json.Unmarshal([]byte(*a.Notes), &note); err != nil {
		return uuid.Nil, "", false
	}
	if note.ReturnedByID == "" {
		return uuid.Nil, note.ReturnedByName, note.ReturnedByName != ""
	}
	id, err := uuid.Parse(note.ReturnedByID)
	if err != nil {
		return uuid.Nil, note.ReturnedByName, note.ReturnedByName != ""
	}
	return id, note.ReturnedByName, true
}
