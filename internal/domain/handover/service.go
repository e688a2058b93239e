package handover

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/ehr/handover/internal/domain/note"
	"github.com/ehr/handover/internal/domain/patient"
	"github.com/ehr/handover/internal/domain/task"
	"github.com/ehr/handover/internal/platform/db"
)

// PatientSource is the patient lookup capability the service consumes.
// Satisfied by patient.PatientRepository.
type PatientSource interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*patient.Patient, error)
}

// TaskSource is the task lookup capability. Satisfied by task.TaskRepository.
type TaskSource interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*task.Task, error)
}

// NoteSource is the note lookup capability. Satisfied by note.NoteRepository.
type NoteSource interface {
	LatestByPatient(ctx context.Context, patientID uuid.UUID) (*note.ClinicalNote, error)
}

// Service owns the handover lifecycle: creation, mutation, critical-patient
// detection and finalization. All collaborators are injected; the service
// holds no mutable state of its own.
type Service struct {
	handovers HandoverRepository
	patients  PatientSource
	tasks     TaskSource
	notes     NoteSource
	signals   SignalSource
	pool      *pgxpool.Pool
	logger    zerolog.Logger
}

func NewService(handovers HandoverRepository, patients PatientSource, tasks TaskSource, notes NoteSource, signals SignalSource, pool *pgxpool.Pool, logger zerolog.Logger) *Service {
	return &Service{
		handovers: handovers,
		patients:  patients,
		tasks:     tasks,
		notes:     notes,
		signals:   signals,
		pool:      pool,
		logger:    logger,
	}
}

// CreateInput carries the fields required to open a handover.
type CreateInput struct {
	Hospital           string      `json:"hospital"`
	Service            string      `json:"service"`
	ShiftType          string      `json:"shift_type"`
	ShiftDate          time.Time   `json:"shift_date"`
	StartTime          *time.Time  `json:"start_time,omitempty"`
	Status             string      `json:"status,omitempty"`
	IncludedPatientIDs []uuid.UUID `json:"included_patient_ids,omitempty"`
	IncludedTaskIDs    []uuid.UUID `json:"included_task_ids,omitempty"`
	GeneralNotes       *string     `json:"general_notes,omitempty"`
	CreatedBy          uuid.UUID   `json:"created_by"`
}

// Create opens a new handover at version 1. The initial status defaults to
// DRAFT; a caller may open directly in IN_PROGRESS but never FINALIZED.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Handover, error) {
	if in.Hospital == "" {
		return nil, validationErrorf("hospital is required")
	}
	if in.Service == "" {
		return nil, validationErrorf("service is required")
	}
	if !validShiftTypes[in.ShiftType] {
		return nil, validationErrorf("invalid shift_type: %q", in.ShiftType)
	}
	if in.ShiftDate.IsZero() {
		return nil, validationErrorf("shift_date is required")
	}
	if in.CreatedBy == uuid.Nil {
		return nil, validationErrorf("created_by is required")
	}
	status := in.Status
	if status == "" {
		status = StatusDraft
	}
	if !validStatuses[status] {
		return nil, validationErrorf("invalid status: %q", status)
	}
	if status == StatusFinalized {
		return nil, validationErrorf("a handover cannot be created already finalized")
	}

	start := time.Now().UTC()
	if in.StartTime != nil {
		start = *in.StartTime
	}

	h := &Handover{
		Hospital:           in.Hospital,
		Service:            in.Service,
		ShiftType:          in.ShiftType,
		ShiftDate:          in.ShiftDate,
		StartTime:          start,
		Status:             status,
		IncludedPatientIDs: addUnique(nil, in.IncludedPatientIDs...),
		IncludedTaskIDs:    addUnique(nil, in.IncludedTaskIDs...),
		ChecklistItems:     []ChecklistItem{},
		CriticalPatients:   []CriticalPatientEntry{},
		GeneralNotes:       in.GeneralNotes,
		Version:            1,
		CreatedBy:          in.CreatedBy,
	}
	if err := s.handovers.Create(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// UpdatePatch describes a partial mutation of a non-finalized handover.
// Slice-replacement fields are pointers so "absent" and "set to empty" are
// distinguishable. CriticalPatients is always replaced wholesale, never
// merged, so entries for recovered patients cannot linger.
type UpdatePatch struct {
	Status           *string                 `json:"status,omitempty"`
	EndTime          *time.Time              `json:"end_time,omitempty"`
	AddPatientIDs    []uuid.UUID             `json:"add_patient_ids,omitempty"`
	RemovePatientIDs []uuid.UUID             `json:"remove_patient_ids,omitempty"`
	AddTaskIDs       []uuid.UUID             `json:"add_task_ids,omitempty"`
	RemoveTaskIDs    []uuid.UUID             `json:"remove_task_ids,omitempty"`
	ChecklistItems   *[]ChecklistItem        `json:"checklist_items,omitempty"`
	CriticalPatients *[]CriticalPatientEntry `json:"critical_patients,omitempty"`
	GeneralNotes     *string                 `json:"general_notes,omitempty"`
}

// Update applies a patch to a non-finalized handover and bumps its version
// by exactly one. A finalized handover is write-once and rejects all
// mutation with InvalidStateError.
func (s *Service) Update(ctx context.Context, id uuid.UUID, patch UpdatePatch) (*Handover, error) {
	h, err := s.handovers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if h.IsFinalized() {
		return nil, &InvalidStateError{Msg: "handover is finalized and cannot be modified"}
	}

	if patch.Status != nil {
		if !validStatuses[*patch.Status] {
			return nil, validationErrorf("invalid status: %q", *patch.Status)
		}
		if *patch.Status == StatusFinalized {
			return nil, validationErrorf("use finalize to close a handover")
		}
		h.Status = *patch.Status
	}
	if patch.EndTime != nil {
		h.EndTime = patch.EndTime
	}
	h.IncludedPatientIDs = addUnique(h.IncludedPatientIDs, patch.AddPatientIDs...)
	h.IncludedPatientIDs = removeIDs(h.IncludedPatientIDs, patch.RemovePatientIDs...)
	h.IncludedTaskIDs = addUnique(h.IncludedTaskIDs, patch.AddTaskIDs...)
	h.IncludedTaskIDs = removeIDs(h.IncludedTaskIDs, patch.RemoveTaskIDs...)
	if patch.ChecklistItems != nil {
		h.ChecklistItems = *patch.ChecklistItems
	}
	if patch.CriticalPatients != nil {
		h.CriticalPatients = *patch.CriticalPatients
	}
	if patch.GeneralNotes != nil {
		h.GeneralNotes = patch.GeneralNotes
	}

	if err := s.handovers.Update(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// Finalize closes the handover: it aggregates the referenced data, generates
// the summary, stamps finalized_at, flips the status to FINALIZED and bumps
// the version, all in one committed write. A second Finalize on the same
// handover fails with InvalidStateError and changes nothing.
func (s *Service) Finalize(ctx context.Context, id uuid.UUID) (*Handover, error) {
	if s.pool == nil {
		return s.finalize(ctx, id)
	}

	txCtx, tx, err := db.WithTx(ctx, s.pool)
	if err != nil {
		return nil, &DataSourceError{Op: "begin finalize transaction", Err: err}
	}
	h, err := s.finalize(txCtx, id)
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, &DataSourceError{Op: "commit finalize transaction", Err: err}
	}
	return h, nil
}

func (s *Service) finalize(ctx context.Context, id uuid.UUID) (*Handover, error) {
	h, err := s.handovers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if h.IsFinalized() {
		return nil, &InvalidStateError{Msg: "handover is already finalized"}
	}

	view, err := s.buildView(ctx, h)
	if err != nil {
		return nil, err
	}

	summary := GenerateSummary(view)
	now := time.Now().UTC()

	h.GeneratedSummary = &summary
	h.Status = StatusFinalized
	h.FinalizedAt = &now
	if h.EndTime == nil {
		h.EndTime = &now
	}

	if err := s.handovers.Update(ctx, h); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("handover_id", h.ID.String()).
		Int("version", h.Version).
		Int("patients", view.PatientCount).
		Int("critical", len(view.CriticalPatients)).
		Msg("handover finalized")

	return h, nil
}

// Aggregate builds the denormalized view of the handover's referenced
// patients and tasks.
func (s *Service) Aggregate(ctx context.Context, id uuid.UUID) (*AggregatedView, error) {
	h, err := s.handovers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.buildView(ctx, h)
}

func (s *Service) buildView(ctx context.Context, h *Handover) (*AggregatedView, error) {
	patients, err := s.patients.GetByIDs(ctx, h.IncludedPatientIDs)
	if err != nil {
		return nil, &DataSourceError{Op: "fetch handover patients", Err: err}
	}
	tasks, err := s.tasks.GetByIDs(ctx, h.IncludedTaskIDs)
	if err != nil {
		return nil, &DataSourceError{Op: "fetch handover tasks", Err: err}
	}

	latest := make(map[uuid.UUID]*note.ClinicalNote, len(patients))
	for _, p := range patients {
		n, err := s.notes.LatestByPatient(ctx, p.ID)
		if err != nil {
			return nil, &DataSourceError{Op: "fetch latest note", Err: err}
		}
		if n != nil {
			latest[p.ID] = n
		}
	}

	return buildAggregatedView(h, patients, tasks, latest), nil
}

// DetectCritical resolves the given patients, fetches their signals and runs
// the detection rules. Patients that do not resolve, or whose signal fetch
// failed, are excluded rather than failing the batch. An empty roster is a
// valid outcome, distinct from an error.
func (s *Service) DetectCritical(ctx context.Context, patientIDs []uuid.UUID, now time.Time) ([]CriticalPatientEntry, error) {
	patients, err := s.patients.GetByIDs(ctx, addUnique(nil, patientIDs...))
	if err != nil {
		return nil, &DataSourceError{Op: "resolve patients for detection", Err: err}
	}
	if len(patients) == 0 {
		return []CriticalPatientEntry{}, nil
	}

	ids := make([]uuid.UUID, 0, len(patients))
	for _, p := range patients {
		ids = append(ids, p.ID)
	}
	signals, err := s.signals.FetchSignals(ctx, ids, now)
	if err != nil {
		return nil, err
	}

	summaries := make([]PatientSummary, 0, len(patients))
	for _, p := range patients {
		sig, ok := signals[p.ID]
		if !ok {
			continue
		}
		summaries = append(summaries, PatientSummary{Patient: p, Signals: sig})
	}

	return Detect(now, summaries), nil
}

// RefreshCriticalRoster recomputes the critical roster for the handover's
// included patients and attaches it, replacing the previous roster wholesale
// and bumping the version. Recomputation is idempotent for unchanged
// underlying signal data.
func (s *Service) RefreshCriticalRoster(ctx context.Context, id uuid.UUID, now time.Time) (*Handover, error) {
	h, err := s.handovers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if h.IsFinalized() {
		return nil, &InvalidStateError{Msg: "handover is finalized and cannot be modified"}
	}

	roster, err := s.DetectCritical(ctx, h.IncludedPatientIDs, now)
	if err != nil {
		return nil, err
	}

	return s.Update(ctx, id, UpdatePatch{CriticalPatients: &roster})
}

// Get returns the handover by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Handover, error) {
	return s.handovers.GetByID(ctx, id)
}

// List returns handovers matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Handover, int, error) {
	return s.handovers.List(ctx, filter, limit, offset)
}
