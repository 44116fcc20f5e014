package wizard

import (
	"encoding/json"

	"taxqual-backend/internal/application/qualifications"

	"github.com/google/uuid"
)

// Mode separates a create flow from an edit flow in the same session.
type Mode string

const (
	ModeCreate Mode = "crear"
	ModeEdit   Mode = "editar"
)

// Draft is the state a user builds across the wizard steps. Amounts hold 2-decimal text,
// Factors hold 8-decimal text as produced by factors.NormalizeInput.
type Draft struct {
	Basics    *qualifications.Basics `json:"basics,omitempty"`
	Amounts   map[int]string         `json:"amounts,omitempty"`
	Factors   map[int]string         `json:"factors,omitempty"`
	EditingID *uuid.UUID             `json:"editing_id,omitempty"`
}

// Encode is the only conversion from a Draft to its stored form.
func (d *Draft) Encode() ([]byte, error) {
	return json.Marshal(d)
}

// DecodeDraft is the only conversion from the stored form back to a Draft.
func DecodeDraft(b []byte) (*Draft, error) {
	var d Draft
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, err
	}
	return &d, nil
}
