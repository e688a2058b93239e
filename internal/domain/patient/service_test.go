package patient

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
)

// -- Mock Repository --

type mockPatientRepo struct {
	store map[uuid.UUID]*Patient
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{store: make(map[uuid.UUID]*Patient)}
}

func (m *mockPatientRepo) Create(_ context.Context, p *Patient) error {
	p.ID = uuid.New()
	m.store[p.ID] = p
	return nil
}

func (m *mockPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.store[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return p, nil
}

func (m *mockPatientRepo) GetByIDs(_ context.Context, ids []uuid.UUID) ([]*Patient, error) {
	var r []*Patient
	for _, id := range ids {
		if p, ok := m.store[id]; ok {
			r = append(r, p)
		}
	}
	return r, nil
}

func (m *mockPatientRepo) Update(_ context.Context, p *Patient) error {
	if _, ok := m.store[p.ID]; !ok {
		return fmt.Errorf("not found")
	}
	m.store[p.ID] = p
	return nil
}

func (m *mockPatientRepo) ListByService(_ context.Context, hospital, service string, limit, offset int) ([]*Patient, int, error) {
	var r []*Patient
	for _, p := range m.store {
		if p.Hospital == hospital && p.Service == service && p.Active {
			r = append(r, p)
		}
	}
	return r, len(r), nil
}

func (m *mockPatientRepo) List(_ context.Context, hospital string, limit, offset int) ([]*Patient, int, error) {
	var r []*Patient
	for _, p := range m.store {
		if p.Hospital == hospital {
			r = append(r, p)
		}
	}
	return r, len(r), nil
}

func newTestService() *Service {
	return NewService(newMockPatientRepo())
}

// -- Service Tests --

func TestCreatePatient_Success(t *testing.T) {
	svc := newTestService()
	p := &Patient{MRN: "MRN-001", FirstName: "Ana", LastName: "Lopez", Hospital: "general", Service: "medicina", Active: true}
	if err := svc.CreatePatient(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Error("expected ID to be set")
	}
}

func TestCreatePatient_MissingMRN(t *testing.T) {
	svc := newTestService()
	p := &Patient{FirstName: "Ana", LastName: "Lopez", Hospital: "general"}
	if err := svc.CreatePatient(context.Background(), p); err == nil {
		t.Fatal("expected error for missing mrn")
	}
}

func TestCreatePatient_MissingName(t *testing.T) {
	svc := newTestService()
	p := &Patient{MRN: "MRN-001", Hospital: "general"}
	if err := svc.CreatePatient(context.Background(), p); err == nil {
		t.Fatal("expected error for missing name")
	}
}

func TestGetPatients_SkipsMissingIDs(t *testing.T) {
	svc := newTestService()
	p := &Patient{MRN: "MRN-001", FirstName: "Ana", LastName: "Lopez", Hospital: "general", Active: true}
	svc.CreatePatient(context.Background(), p)

	got, err := svc.GetPatients(context.Background(), []uuid.UUID{p.ID, uuid.New()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 patient, got %d", len(got))
	}
	if got[0].ID != p.ID {
		t.Error("unexpected patient returned")
	}
}

func TestListPatientsByService(t *testing.T) {
	svc := newTestService()
	svc.CreatePatient(context.Background(), &Patient{MRN: "1", FirstName: "A", LastName: "B", Hospital: "general", Service: "medicina", Active: true})
	svc.CreatePatient(context.Background(), &Patient{MRN: "2", FirstName: "C", LastName: "D", Hospital: "general", Service: "cirugia", Active: true})

	items, total, err := svc.ListPatientsByService(context.Background(), "general", "medicina", 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Errorf("expected 1 patient in service, got %d", total)
	}
}

func TestPatient_FullNameAndBed(t *testing.T) {
	bed := "12A"
	p := &Patient{FirstName: "Ana", LastName: "Lopez", BedNumber: &bed}
	if p.FullName() != "Ana Lopez" {
		t.Errorf("unexpected full name: %s", p.FullName())
	}
	if p.Bed() != "12A" {
		t.Errorf("unexpected bed: %s", p.Bed())
	}

	p.BedNumber = nil
	if p.Bed() != "" {
		t.Errorf("expected empty bed, got %s", p.Bed())
	}
}
