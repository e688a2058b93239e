package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patient table.
type Patient struct {
	ID        uuid.UUID `db:"id" json:"id"`
	MRN       string    `db:"mrn" json:"mrn"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	Hospital  string    `db:"hospital" json:"hospital"`
	Service   string    `db:"service" json:"service"`
	Ward      *string   `db:"ward" json:"ward,omitempty"`
	BedNumber *string   `db:"bed_number" json:"bed_number,omitempty"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// FullName returns the patient's display name.
func (p *Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}

// Bed returns the bed number or an empty string when unassigned.
func (p *Patient) Bed() string {
	if p.BedNumber == nil {
		return ""
	}
	return *p.BedNumber
}
