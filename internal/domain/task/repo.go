package task

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type TaskRepository interface {
	Create(ctx context.Context, t *Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*Task, error)
	// GetByIDs returns the tasks that resolve; missing IDs are skipped.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*Task, error)
	Update(ctx context.Context, t *Task) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Task, int, error)
	ListByAssignee(ctx context.Context, assigneeID uuid.UUID, limit, offset int) ([]*Task, int, error)

	// Signal counts consumed by critical-patient detection.
	CountOpenUrgent(ctx context.Context, patientID uuid.UUID) (int, error)
	CountOverdueHigh(ctx context.Context, patientID uuid.UUID, now time.Time) (int, error)
}
