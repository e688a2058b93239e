package note

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type NoteRepository interface {
	Create(ctx context.Context, n *ClinicalNote) error
	GetByID(ctx context.Context, id uuid.UUID) (*ClinicalNote, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*ClinicalNote, int, error)

	// CountSince counts notes for the patient dated at or after since.
	CountSince(ctx context.Context, patientID uuid.UUID, since time.Time) (int, error)
	// LatestByPatient returns the most recent note, or nil when none exists.
	LatestByPatient(ctx context.Context, patientID uuid.UUID) (*ClinicalNote, error)
}
