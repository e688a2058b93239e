package task

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	tasks TaskRepository
}

func NewService(tasks TaskRepository) *Service {
	return &Service{tasks: tasks}
}

var validTaskStatuses = map[string]bool{
	StatusPending:    true,
	StatusInProgress: true,
	StatusCompleted:  true,
	StatusCancelled:  true,
}

var validTaskPriorities = map[string]bool{
	PriorityLow:    true,
	PriorityMedium: true,
	PriorityHigh:   true,
	PriorityUrgent: true,
}

func (s *Service) CreateTask(ctx context.Context, t *Task) error {
	if t.Description == "" {
		return fmt.Errorf("description is required")
	}
	if t.Status == "" {
		t.Status = StatusPending
	}
	if !validTaskStatuses[t.Status] {
		return fmt.Errorf("invalid status: %s", t.Status)
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if !validTaskPriorities[t.Priority] {
		return fmt.Errorf("invalid priority: %s", t.Priority)
	}
	return s.tasks.Create(ctx, t)
}

func (s *Service) GetTask(ctx context.Context, id uuid.UUID) (*Task, error) {
	return s.tasks.GetByID(ctx, id)
}

func (s *Service) GetTasks(ctx context.Context, ids []uuid.UUID) ([]*Task, error) {
	return s.tasks.GetByIDs(ctx, ids)
}

func (s *Service) UpdateTask(ctx context.Context, t *Task) error {
	if t.Status != "" && !validTaskStatuses[t.Status] {
		return fmt.Errorf("invalid status: %s", t.Status)
	}
	if t.Priority != "" && !validTaskPriorities[t.Priority] {
		return fmt.Errorf("invalid priority: %s", t.Priority)
	}
	return s.tasks.Update(ctx, t)
}

func (s *Service) DeleteTask(ctx context.Context, id uuid.UUID) error {
	return s.tasks.Delete(ctx, id)
}

func (s *Service) ListTasksByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Task, int, error) {
	return s.tasks.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListTasksByAssignee(ctx context.Context, assigneeID uuid.UUID, limit, offset int) ([]*Task, int, error) {
	return s.tasks.ListByAssignee(ctx, assigneeID, limit, offset)
}

func (s *Service) CountOpenUrgent(ctx context.Context, patientID uuid.UUID) (int, error) {
	return s.tasks.CountOpenUrgent(ctx, patientID)
}

func (s *Service) CountOverdueHigh(ctx context.Context, patientID uuid.UUID, now time.Time) (int, error) {
	return s.tasks.CountOverdueHigh(ctx, patientID, now)
}
