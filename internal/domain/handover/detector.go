package handover

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ehr/handover/internal/domain/patient"
)

// reasonSeparator joins the individual causes in a roster entry's reason.
const reasonSeparator = " • "

// PatientSummary pairs a resolved patient with its detection signals.
type PatientSummary struct {
	Patient *patient.Patient
	Signals Signals
}

// Detect evaluates the detection rules over a batch of patient summaries and
// returns the ranked critical-patient roster. It is a pure function: for a
// fixed input it always produces the same list in the same order.
//
// A patient is critical iff at least one rule fires:
//  1. open URGENT tasks exist,
//  2. overdue HIGH tasks exist,
//  3. no clinical note in the last 24h.
//
// The rules are evaluated in that fixed order so the reason string is
// reproducible. PendingTasksCount is always the sum of the two task-derived
// counters; rule 3 contributes only to the reason text.
//
// Ranking: PendingTasksCount descending, ties broken by patient ID ascending
// so output is deterministic regardless of input order.
func Detect(now time.Time, summaries []PatientSummary) []CriticalPatientEntry {
	var roster []CriticalPatientEntry

	for _, s := range summaries {
		if s.Patient == nil {
			continue
		}
		sig := s.Signals

		var reasons []string
		if sig.UrgentOpenTasks > 0 {
			reasons = append(reasons, fmt.Sprintf("%d tarea(s) URGENTE", sig.UrgentOpenTasks))
		}
		if sig.OverdueHighTasks > 0 {
			reasons = append(reasons, fmt.Sprintf("%d tarea(s) HIGH vencida(s)", sig.OverdueHighTasks))
		}
		if sig.RecentNotes == 0 {
			reasons = append(reasons, "Sin nota SOAP en 24h")
		}

		if len(reasons) == 0 {
			continue
		}

		entry := CriticalPatientEntry{
			PatientID:             s.Patient.ID,
			PatientName:           s.Patient.FullName(),
			BedNumber:             s.Patient.Bed(),
			Reason:                strings.Join(reasons, reasonSeparator),
			UrgentTasksCount:      sig.UrgentOpenTasks,
			HighOverdueTasksCount: sig.OverdueHighTasks,
			PendingTasksCount:     sig.UrgentOpenTasks + sig.OverdueHighTasks,
		}
		if sig.RecentNotes > 0 {
			t := now
			entry.LastSoapDate = &t
		}
		roster = append(roster, entry)
	}

	sort.Slice(roster, func(i, j int) bool {
		if roster[i].PendingTasksCount != roster[j].PendingTasksCount {
			return roster[i].PendingTasksCount > roster[j].PendingTasksCount
		}
		return roster[i].PatientID.String() < roster[j].PatientID.String()
	})

	return roster
}
