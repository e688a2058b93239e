package handover

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/handover/internal/domain/note"
	"github.com/ehr/handover/internal/domain/patient"
	"github.com/ehr/handover/internal/domain/task"
)

// -- Mock Repositories --

type mockHandoverRepo struct {
	store map[uuid.UUID]*Handover
}

func newMockHandoverRepo() *mockHandoverRepo {
	return &mockHandoverRepo{store: make(map[uuid.UUID]*Handover)}
}

func cloneHandover(h *Handover) *Handover {
	c := *h
	c.IncludedPatientIDs = append([]uuid.UUID(nil), h.IncludedPatientIDs...)
	c.IncludedTaskIDs = append([]uuid.UUID(nil), h.IncludedTaskIDs...)
	c.ChecklistItems = append([]ChecklistItem(nil), h.ChecklistItems...)
	c.CriticalPatients = append([]CriticalPatientEntry(nil), h.CriticalPatients...)
	return &c
}

func (m *mockHandoverRepo) Create(_ context.Context, h *Handover) error {
	h.ID = uuid.New()
	h.CreatedAt = time.Now().UTC()
	h.UpdatedAt = h.CreatedAt
	m.store[h.ID] = cloneHandover(h)
	return nil
}

func (m *mockHandoverRepo) GetByID(_ context.Context, id uuid.UUID) (*Handover, error) {
	h, ok := m.store[id]
	if !ok {
		return nil, &NotFoundError{Entity: "handover", ID: id.String()}
	}
	return cloneHandover(h), nil
}

func (m *mockHandoverRepo) Update(_ context.Context, h *Handover) error {
	cur, ok := m.store[h.ID]
	if !ok {
		return &NotFoundError{Entity: "handover", ID: h.ID.String()}
	}
	if cur.Version != h.Version {
		return &ConflictError{Msg: fmt.Sprintf("handover %s version %d is stale", h.ID, h.Version)}
	}
	h.Version++
	h.UpdatedAt = time.Now().UTC()
	m.store[h.ID] = cloneHandover(h)
	return nil
}

func (m *mockHandoverRepo) List(_ context.Context, filter ListFilter, limit, offset int) ([]*Handover, int, error) {
	var all []*Handover
	for _, h := range m.store {
		if filter.Hospital != "" && h.Hospital != filter.Hospital {
			continue
		}
		if filter.Status != "" && h.Status != filter.Status {
			continue
		}
		all = append(all, cloneHandover(h))
	}
	return all, len(all), nil
}

type mockPatientSource struct {
	store map[uuid.UUID]*patient.Patient
	err   error
}

func newMockPatientSource() *mockPatientSource {
	return &mockPatientSource{store: make(map[uuid.UUID]*patient.Patient)}
}

func (m *mockPatientSource) add(p *patient.Patient) { m.store[p.ID] = p }

func (m *mockPatientSource) GetByIDs(_ context.Context, ids []uuid.UUID) ([]*patient.Patient, error) {
	if m.err != nil {
		return nil, m.err
	}
	var r []*patient.Patient
	for _, id := range ids {
		if p, ok := m.store[id]; ok {
			r = append(r, p)
		}
	}
	return r, nil
}

type mockTaskSource struct {
	store map[uuid.UUID]*task.Task
}

func newMockTaskSource() *mockTaskSource {
	return &mockTaskSource{store: make(map[uuid.UUID]*task.Task)}
}

func (m *mockTaskSource) add(t *task.Task) { m.store[t.ID] = t }

func (m *mockTaskSource) GetByIDs(_ context.Context, ids []uuid.UUID) ([]*task.Task, error) {
	var r []*task.Task
	for _, id := range ids {
		if t, ok := m.store[id]; ok {
			r = append(r, t)
		}
	}
	return r, nil
}

type mockNoteSource struct {
	latest map[uuid.UUID]*note.ClinicalNote
}

func newMockNoteSource() *mockNoteSource {
	return &mockNoteSource{latest: make(map[uuid.UUID]*note.ClinicalNote)}
}

func (m *mockNoteSource) LatestByPatient(_ context.Context, patientID uuid.UUID) (*note.ClinicalNote, error) {
	return m.latest[patientID], nil
}

type mockSignalSource struct {
	signals map[uuid.UUID]Signals
	err     error
}

func (m *mockSignalSource) FetchSignals(_ context.Context, patientIDs []uuid.UUID, _ time.Time) (map[uuid.UUID]Signals, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[uuid.UUID]Signals)
	for _, id := range patientIDs {
		if sig, ok := m.signals[id]; ok {
			out[id] = sig
		}
	}
	return out, nil
}

type serviceFixture struct {
	svc       *Service
	handovers *mockHandoverRepo
	patients  *mockPatientSource
	tasks     *mockTaskSource
	notes     *mockNoteSource
	signals   *mockSignalSource
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		handovers: newMockHandoverRepo(),
		patients:  newMockPatientSource(),
		tasks:     newMockTaskSource(),
		notes:     newMockNoteSource(),
		signals:   &mockSignalSource{signals: make(map[uuid.UUID]Signals)},
	}
	f.svc = NewService(f.handovers, f.patients, f.tasks, f.notes, f.signals, nil, zerolog.Nop())
	return f
}

func validCreateInput() CreateInput {
	return CreateInput{
		Hospital:  "Hospital Central",
		Service:   "UCI",
		ShiftType: ShiftMorning,
		ShiftDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		CreatedBy: uuid.New(),
	}
}

// -- Create --

func TestCreateDefaults(t *testing.T) {
	f := newServiceFixture()

	h, err := f.svc.Create(context.Background(), validCreateInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Status != StatusDraft {
		t.Errorf("status: got %q, want %q", h.Status, StatusDraft)
	}
	if h.Version != 1 {
		t.Errorf("version: got %d, want 1", h.Version)
	}
	if h.ID == uuid.Nil {
		t.Error("id not assigned")
	}
	if h.GeneratedSummary != nil || h.FinalizedAt != nil {
		t.Error("new handover must not carry a summary or finalized timestamp")
	}
}

func TestCreateValidation(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{"missing hospital", func(in *CreateInput) { in.Hospital = "" }},
		{"missing service", func(in *CreateInput) { in.Service = "" }},
		{"bad shift type", func(in *CreateInput) { in.ShiftType = "EVENING" }},
		{"zero shift date", func(in *CreateInput) { in.ShiftDate = time.Time{} }},
		{"missing creator", func(in *CreateInput) { in.CreatedBy = uuid.Nil }},
		{"bad status", func(in *CreateInput) { in.Status = "OPEN" }},
		{"finalized at birth", func(in *CreateInput) { in.Status = StatusFinalized }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validCreateInput()
			tc.mutate(&in)
			_, err := f.svc.Create(ctx, in)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestCreateDeduplicatesInitialSelection(t *testing.T) {
	f := newServiceFixture()
	pid := uuid.New()

	in := validCreateInput()
	in.IncludedPatientIDs = []uuid.UUID{pid, pid, pid}

	h, err := f.svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.IncludedPatientIDs) != 1 {
		t.Errorf("expected 1 unique patient id, got %d", len(h.IncludedPatientIDs))
	}
}

// -- Update --

func TestUpdateBumpsVersionByOne(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	h, _ := f.svc.Create(ctx, validCreateInput())

	notes := "pendiente revisar labs"
	updated, err := f.svc.Update(ctx, h.ID, UpdatePatch{GeneralNotes: &notes})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Version != 2 {
		t.Errorf("version: got %d, want 2", updated.Version)
	}

	updated, err = f.svc.Update(ctx, h.ID, UpdatePatch{AddPatientIDs: []uuid.UUID{uuid.New()}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Version != 3 {
		t.Errorf("version: got %d, want 3", updated.Version)
	}
}

func TestUpdatePatientSelectionMerge(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	a, b := uuid.New(), uuid.New()
	in := validCreateInput()
	in.IncludedPatientIDs = []uuid.UUID{a}
	h, _ := f.svc.Create(ctx, in)

	// Adding an already-included id is a no-op; removal by value.
	updated, err := f.svc.Update(ctx, h.ID, UpdatePatch{
		AddPatientIDs:    []uuid.UUID{a, b},
		RemovePatientIDs: []uuid.UUID{a},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(updated.IncludedPatientIDs) != 1 || updated.IncludedPatientIDs[0] != b {
		t.Errorf("selection: got %v, want [%s]", updated.IncludedPatientIDs, b)
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	h, _ := f.svc.Create(ctx, validCreateInput())

	inProgress := StatusInProgress
	updated, err := f.svc.Update(ctx, h.ID, UpdatePatch{Status: &inProgress})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != StatusInProgress {
		t.Errorf("status: got %q", updated.Status)
	}

	// Moving back to DRAFT is allowed; both states are mutable.
	draft := StatusDraft
	if _, err := f.svc.Update(ctx, h.ID, UpdatePatch{Status: &draft}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// FINALIZED cannot be reached through a plain update.
	finalized := StatusFinalized
	_, err = f.svc.Update(ctx, h.ID, UpdatePatch{Status: &finalized})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestUpdateFinalizedRejected(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	h, _ := f.svc.Create(ctx, validCreateInput())
	if _, err := f.svc.Finalize(ctx, h.ID); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	notes := "tarde"
	_, err := f.svc.Update(ctx, h.ID, UpdatePatch{GeneralNotes: &notes})
	var serr *InvalidStateError
	if !errors.As(err, &serr) {
		t.Fatalf("expected InvalidStateError, got %v", err)
	}
}

func TestUpdateCriticalRosterReplacedWholesale(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	h, _ := f.svc.Create(ctx, validCreateInput())

	first := []CriticalPatientEntry{
		{PatientID: uuid.New(), PatientName: "Ana García", Reason: "1 tarea(s) URGENTE", PendingTasksCount: 1, UrgentTasksCount: 1},
		{PatientID: uuid.New(), PatientName: "Luis Pérez", Reason: "Sin nota SOAP en 24h"},
	}
	if _, err := f.svc.Update(ctx, h.ID, UpdatePatch{CriticalPatients: &first}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := []CriticalPatientEntry{first[0]}
	updated, err := f.svc.Update(ctx, h.ID, UpdatePatch{CriticalPatients: &second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(updated.CriticalPatients) != 1 {
		t.Fatalf("roster must be replaced, not merged: got %d entries", len(updated.CriticalPatients))
	}

	// An explicit empty roster clears the previous one.
	empty := []CriticalPatientEntry{}
	updated, err = f.svc.Update(ctx, h.ID, UpdatePatch{CriticalPatients: &empty})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(updated.CriticalPatients) != 0 {
		t.Errorf("empty roster must clear entries, got %d", len(updated.CriticalPatients))
	}
}

func TestUpdateNotFound(t *testing.T) {
	f := newServiceFixture()
	_, err := f.svc.Update(context.Background(), uuid.New(), UpdatePatch{})
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

// -- Finalize --

func TestFinalize(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	p := testPatient("Ana", "García", "203-A")
	f.patients.add(p)

	in := validCreateInput()
	in.IncludedPatientIDs = []uuid.UUID{p.ID}
	h, _ := f.svc.Create(ctx, in)

	done, err := f.svc.Finalize(ctx, h.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if done.Status != StatusFinalized {
		t.Errorf("status: got %q", done.Status)
	}
	if done.FinalizedAt == nil {
		t.Error("finalized_at not stamped")
	}
	if done.GeneratedSummary == nil || *done.GeneratedSummary == "" {
		t.Error("summary not generated")
	}
	if done.Version != 2 {
		t.Errorf("version: got %d, want 2", done.Version)
	}
	if done.EndTime == nil {
		t.Error("end_time must default to finalization time")
	}
}

func TestFinalizeNotIdempotent(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	h, _ := f.svc.Create(ctx, validCreateInput())
	first, err := f.svc.Finalize(ctx, h.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = f.svc.Finalize(ctx, h.ID)
	var serr *InvalidStateError
	if !errors.As(err, &serr) {
		t.Fatalf("expected InvalidStateError, got %v", err)
	}

	// The stored document is untouched by the failed second attempt.
	stored, _ := f.svc.Get(ctx, h.ID)
	if stored.Version != first.Version {
		t.Errorf("version changed by failed finalize: got %d, want %d", stored.Version, first.Version)
	}
	if !stored.FinalizedAt.Equal(*first.FinalizedAt) {
		t.Errorf("finalized_at changed by failed finalize")
	}
}

func TestFinalizeAbortsWhenAggregationFails(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	h, _ := f.svc.Create(ctx, validCreateInput())
	f.patients.err = fmt.Errorf("datastore down")

	_, err := f.svc.Finalize(ctx, h.ID)
	var dse *DataSourceError
	if !errors.As(err, &dse) {
		t.Fatalf("expected DataSourceError, got %v", err)
	}

	stored, _ := f.svc.Get(ctx, h.ID)
	if stored.IsFinalized() || stored.Version != 1 || stored.GeneratedSummary != nil {
		t.Errorf("failed finalize must leave the handover untouched: %+v", stored)
	}
}

// -- Detection --

func TestDetectCritical(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	p1 := testPatient("Ana", "García", "1")
	p2 := testPatient("Luis", "Pérez", "2")
	f.patients.add(p1)
	f.patients.add(p2)
	f.signals.signals[p1.ID] = Signals{UrgentOpenTasks: 2, RecentNotes: 1}
	f.signals.signals[p2.ID] = Signals{RecentNotes: 1}

	roster, err := f.svc.DetectCritical(ctx, []uuid.UUID{p1.ID, p2.ID}, time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(roster) != 1 || roster[0].PatientID != p1.ID {
		t.Fatalf("roster: got %+v", roster)
	}
}

func TestDetectCriticalUnknownPatientsExcluded(t *testing.T) {
	f := newServiceFixture()

	roster, err := f.svc.DetectCritical(context.Background(), []uuid.UUID{uuid.New()}, time.Now().UTC())
	if err != nil {
		t.Fatalf("unresolved patients must not fail the batch: %v", err)
	}
	if len(roster) != 0 {
		t.Fatalf("expected empty roster, got %d", len(roster))
	}
}

func TestRefreshCriticalRoster(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	p := testPatient("Marta", "Ruiz", "7")
	f.patients.add(p)
	f.signals.signals[p.ID] = Signals{OverdueHighTasks: 1, RecentNotes: 1}

	in := validCreateInput()
	in.IncludedPatientIDs = []uuid.UUID{p.ID}
	h, _ := f.svc.Create(ctx, in)

	updated, err := f.svc.RefreshCriticalRoster(ctx, h.ID, time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(updated.CriticalPatients) != 1 {
		t.Fatalf("roster: got %d entries, want 1", len(updated.CriticalPatients))
	}
	if updated.Version != 2 {
		t.Errorf("version: got %d, want 2", updated.Version)
	}

	// Patient recovers. Refresh replaces the roster with an empty one.
	f.signals.signals[p.ID] = Signals{RecentNotes: 1}
	updated, err = f.svc.RefreshCriticalRoster(ctx, h.ID, time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(updated.CriticalPatients) != 0 {
		t.Errorf("recovered patient must drop off the roster, got %d entries", len(updated.CriticalPatients))
	}
}

func TestRefreshCriticalRosterFinalizedRejected(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	h, _ := f.svc.Create(ctx, validCreateInput())
	if _, err := f.svc.Finalize(ctx, h.ID); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	_, err := f.svc.RefreshCriticalRoster(ctx, h.ID, time.Now().UTC())
	var serr *InvalidStateError
	if !errors.As(err, &serr) {
		t.Fatalf("expected InvalidStateError, got %v", err)
	}
}

// -- Optimistic concurrency --

func TestConcurrentWriterConflict(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	h, _ := f.svc.Create(ctx, validCreateInput())

	// Simulate a competing writer committing between read and write by
	// bumping the stored version underneath a stale copy.
	stale, _ := f.handovers.GetByID(ctx, h.ID)
	winner, _ := f.handovers.GetByID(ctx, h.ID)
	if err := f.handovers.Update(ctx, winner); err != nil {
		t.Fatalf("winner update: %v", err)
	}

	err := f.handovers.Update(ctx, stale)
	var cerr *ConflictError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}
