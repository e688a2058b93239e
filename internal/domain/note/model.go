package note

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ClinicalNote maps to the clinical_note table. Notes follow the SOAP
// structure; the free-text field carries unstructured entries.
type ClinicalNote struct {
	ID         uuid.UUID        `db:"id" json:"id"`
	PatientID  uuid.UUID        `db:"patient_id" json:"patient_id"`
	AuthorID   uuid.UUID        `db:"author_id" json:"author_id"`
	NoteDate   time.Time        `db:"note_date" json:"note_date"`
	Subjective *string          `db:"subjective" json:"subjective,omitempty"`
	Objective  *string          `db:"objective" json:"objective,omitempty"`
	Assessment *string          `db:"assessment" json:"assessment,omitempty"`
	Plan       *string          `db:"plan" json:"plan,omitempty"`
	NoteText   *string          `db:"note_text" json:"note_text,omitempty"`
	VitalSigns *json.RawMessage `db:"vital_signs" json:"vital_signs,omitempty"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time        `db:"updated_at" json:"updated_at"`
}

// Summary returns a short display line for the note: the assessment when
// present, otherwise the free text, otherwise the subjective entry.
func (n *ClinicalNote) Summary() string {
	switch {
	case n.Assessment != nil && *n.Assessment != "":
		return *n.Assessment
	case n.NoteText != nil && *n.NoteText != "":
		return *n.NoteText
	case n.Subjective != nil && *n.Subjective != "":
		return *n.Subjective
	}
	return ""
}
