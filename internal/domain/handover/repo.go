package handover

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows handover listings.
type ListFilter struct {
	Hospital  string
	Service   string
	Status    string
	ShiftDate *time.Time
}

type HandoverRepository interface {
	Create(ctx context.Context, h *Handover) error
	GetByID(ctx context.Context, id uuid.UUID) (*Handover, error)
	// Update writes the handover guarded by its pre-increment version: the
	// row is written only when the stored version still matches h.Version,
	// and h.Version is bumped on success. Returns ConflictError when another
	// writer got there first and NotFoundError when the row is gone.
	Update(ctx context.Context, h *Handover) error
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Handover, int, error)
}
