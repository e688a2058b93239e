package patient

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	patients PatientRepository
}

func NewService(patients PatientRepository) *Service {
	return &Service{patients: patients}
}

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if p.MRN == "" {
		return fmt.Errorf("mrn is required")
	}
	if p.FirstName == "" || p.LastName == "" {
		return fmt.Errorf("first_name and last_name are required")
	}
	if p.Hospital == "" {
		return fmt.Errorf("hospital is required")
	}
	return s.patients.Create(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) GetPatients(ctx context.Context, ids []uuid.UUID) ([]*Patient, error) {
	return s.patients.GetByIDs(ctx, ids)
}

func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		return fmt.Errorf("id is required")
	}
	return s.patients.Update(ctx, p)
}

func (s *Service) ListPatientsByService(ctx context.Context, hospital, service string, limit, offset int) ([]*Patient, int, error) {
	return s.patients.ListByService(ctx, hospital, service, limit, offset)
}

func (s *Service) ListPatients(ctx context.Context, hospital string, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, hospital, limit, offset)
}
