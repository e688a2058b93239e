package patient

import (
	"context"

	"github.com/google/uuid"
)

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	// GetByIDs returns the patients that resolve; missing IDs are skipped.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*Patient, error)
	Update(ctx context.Context, p *Patient) error
	ListByService(ctx context.Context, hospital, service string, limit, offset int) ([]*Patient, int, error)
	List(ctx context.Context, hospital string, limit, offset int) ([]*Patient, int, error)
}
