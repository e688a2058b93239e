package handover

import (
	"time"

	"github.com/google/uuid"
)

// Handover statuses. DRAFT and IN_PROGRESS are both mutable; FINALIZED is
// terminal and the document becomes write-once.
const (
	StatusDraft      = "DRAFT"
	StatusInProgress = "IN_PROGRESS"
	StatusFinalized  = "FINALIZED"
)

// Shift types.
const (
	ShiftMorning   = "MORNING"
	ShiftAfternoon = "AFTERNOON"
	ShiftNight     = "NIGHT"
)

// ChecklistItem is a caller-ordered item on the handover checklist.
type ChecklistItem struct {
	ID          uuid.UUID  `json:"id"`
	Description string     `json:"description"`
	IsCompleted bool       `json:"is_completed"`
	CompletedBy *uuid.UUID `json:"completed_by,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Order       int        `json:"order"`
}

// CriticalPatientEntry is one row of the computed critical-patient roster.
// It is embedded in the handover document, never persisted on its own.
type CriticalPatientEntry struct {
	PatientID              uuid.UUID  `json:"patient_id"`
	PatientName            string     `json:"patient_name"`
	BedNumber              string     `json:"bed_number"`
	Reason                 string     `json:"reason"`
	PendingTasksCount      int        `json:"pending_tasks_count"`
	UrgentTasksCount       int        `json:"urgent_tasks_count"`
	HighOverdueTasksCount  int        `json:"high_overdue_tasks_count"`
	LastSoapDate           *time.Time `json:"last_soap_date,omitempty"`
}

// Handover maps to the handover table. It is the aggregate root of the
// shift-handover lifecycle.
type Handover struct {
	ID                 uuid.UUID              `db:"id" json:"id"`
	Hospital           string                 `db:"hospital" json:"hospital"`
	Service            string                 `db:"service" json:"service"`
	ShiftType          string                 `db:"shift_type" json:"shift_type"`
	ShiftDate          time.Time              `db:"shift_date" json:"shift_date"`
	StartTime          time.Time              `db:"start_time" json:"start_time"`
	EndTime            *time.Time             `db:"end_time" json:"end_time,omitempty"`
	Status             string                 `db:"status" json:"status"`
	IncludedPatientIDs []uuid.UUID            `db:"included_patient_ids" json:"included_patient_ids"`
	IncludedTaskIDs    []uuid.UUID            `db:"included_task_ids" json:"included_task_ids"`
	ChecklistItems     []ChecklistItem        `db:"checklist_items" json:"checklist_items"`
	CriticalPatients   []CriticalPatientEntry `db:"critical_patients" json:"critical_patients"`
	GeneralNotes       *string                `db:"general_notes" json:"general_notes,omitempty"`
	GeneratedSummary   *string                `db:"generated_summary" json:"generated_summary,omitempty"`
	Version            int                    `db:"version" json:"version"`
	FinalizedAt        *time.Time             `db:"finalized_at" json:"finalized_at,omitempty"`
	CreatedBy          uuid.UUID              `db:"created_by" json:"created_by"`
	CreatedAt          time.Time              `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time              `db:"updated_at" json:"updated_at"`
}

// IsFinalized reports whether the handover has reached its terminal state.
func (h *Handover) IsFinalized() bool {
	return h.Status == StatusFinalized
}

// addUnique appends ids to set, skipping any already present. Membership is
// what matters; insertion order is preserved only for stable serialization.
func addUnique(set []uuid.UUID, ids ...uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(set))
	for _, id := range set {
		seen[id] = true
	}
	for _, id := range ids {
		if !seen[id] {
			set = append(set, id)
			seen[id] = true
		}
	}
	return set
}

// removeIDs returns set without the given ids.
func removeIDs(set []uuid.UUID, ids ...uuid.UUID) []uuid.UUID {
	drop := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	out := set[:0]
	for _, id := range set {
		if !drop[id] {
			out = append(out, id)
		}
	}
	return out
}

var validShiftTypes = map[string]bool{
	ShiftMorning:   true,
	ShiftAfternoon: true,
	ShiftNight:     true,
}

var validStatuses = map[string]bool{
	StatusDraft:      true,
	StatusInProgress: true,
	StatusFinalized:  true,
}
