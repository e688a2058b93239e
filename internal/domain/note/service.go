package note

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	notes NoteRepository
}

func NewService(notes NoteRepository) *Service {
	return &Service{notes: notes}
}

func (s *Service) CreateNote(ctx context.Context, n *ClinicalNote) error {
	if n.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if n.AuthorID == uuid.Nil {
		return fmt.Errorf("author_id is required")
	}
	if n.NoteDate.IsZero() {
		n.NoteDate = time.Now().UTC()
	}
	if n.Summary() == "" {
		return fmt.Errorf("note must have at least one content field")
	}
	return s.notes.Create(ctx, n)
}

func (s *Service) GetNote(ctx context.Context, id uuid.UUID) (*ClinicalNote, error) {
	return s.notes.GetByID(ctx, id)
}

func (s *Service) ListNotesByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*ClinicalNote, int, error) {
	return s.notes.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) CountNotesSince(ctx context.Context, patientID uuid.UUID, since time.Time) (int, error) {
	return s.notes.CountSince(ctx, patientID, since)
}

func (s *Service) LatestNote(ctx context.Context, patientID uuid.UUID) (*ClinicalNote, error) {
	return s.notes.LatestByPatient(ctx, patientID)
}
