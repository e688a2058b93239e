package handover

import (
	"sort"

	"github.com/ehr/handover/internal/domain/note"
	"github.com/ehr/handover/internal/domain/patient"
	"github.com/ehr/handover/internal/domain/task"
	"github.com/google/uuid"
)

// PatientDetail is one patient's denormalized slice of the handover view.
type PatientDetail struct {
	Patient    *patient.Patient   `json:"patient"`
	LatestNote *note.ClinicalNote `json:"latest_note,omitempty"`
	Tasks      []*task.Task       `json:"tasks"`
}

// AggregatedView is the flat, denormalized view of a handover's referenced
// patients and tasks, joined with the critical roster for rendering.
type AggregatedView struct {
	Handover         *Handover              `json:"handover"`
	Patients         []PatientDetail        `json:"patients"`
	UnassignedTasks  []*task.Task           `json:"unassigned_tasks"`
	CriticalPatients []CriticalPatientEntry `json:"critical_patients"`
	PatientCount     int                    `json:"patient_count"`
	TaskCount        int                    `json:"task_count"`
}

// buildAggregatedView joins resolved patients, tasks and latest notes into
// the denormalized view. Patient IDs that did not resolve are excluded
// without error; tasks that are not scoped to an included patient are kept
// in the unassigned list rather than dropped.
func buildAggregatedView(h *Handover, patients []*patient.Patient, tasks []*task.Task, latestNotes map[uuid.UUID]*note.ClinicalNote) *AggregatedView {
	// Row order from the store is not guaranteed; sort so the view (and the
	// summary rendered from it) is reproducible for identical input.
	patients = append([]*patient.Patient(nil), patients...)
	sort.Slice(patients, func(i, j int) bool {
		if patients[i].LastName != patients[j].LastName {
			return patients[i].LastName < patients[j].LastName
		}
		if patients[i].FirstName != patients[j].FirstName {
			return patients[i].FirstName < patients[j].FirstName
		}
		return patients[i].ID.String() < patients[j].ID.String()
	})
	tasks = append([]*task.Task(nil), tasks...)
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		}
		return tasks[i].ID.String() < tasks[j].ID.String()
	})

	included := make(map[uuid.UUID]bool, len(patients))
	for _, p := range patients {
		included[p.ID] = true
	}

	tasksByPatient := make(map[uuid.UUID][]*task.Task)
	var unassigned []*task.Task
	for _, t := range tasks {
		if t.PatientID != nil && included[*t.PatientID] {
			tasksByPatient[*t.PatientID] = append(tasksByPatient[*t.PatientID], t)
			continue
		}
		unassigned = append(unassigned, t)
	}

	details := make([]PatientDetail, 0, len(patients))
	for _, p := range patients {
		details = append(details, PatientDetail{
			Patient:    p,
			LatestNote: latestNotes[p.ID],
			Tasks:      tasksByPatient[p.ID],
		})
	}

	return &AggregatedView{
		Handover:         h,
		Patients:         details,
		UnassignedTasks:  unassigned,
		CriticalPatients: h.CriticalPatients,
		PatientCount:     len(details),
		TaskCount:        len(tasks),
	}
}
