package handover

import (
	"fmt"
	"strings"
	"time"
)

const summaryDateFormat = "2006-01-02"
const summaryTimeFormat = "2006-01-02 15:04"

// GenerateSummary renders the aggregated view as a single human-readable
// text block. It is side-effect free and deterministic: byte-identical input
// produces byte-identical output, which is what makes regenerate-and-diff
// verification possible.
func GenerateSummary(view *AggregatedView) string {
	var b strings.Builder
	h := view.Handover

	b.WriteString("RESUMEN DE ENTREGA DE TURNO\n")
	b.WriteString(fmt.Sprintf("Hospital: %s | Servicio: %s\n", h.Hospital, h.Service))
	b.WriteString(fmt.Sprintf("Turno: %s | Fecha: %s\n", h.ShiftType, h.ShiftDate.Format(summaryDateFormat)))
	b.WriteString(fmt.Sprintf("Pacientes: %d | Tareas: %d | Pacientes críticos: %d\n",
		view.PatientCount, view.TaskCount, len(view.CriticalPatients)))

	b.WriteString("\nPACIENTES CRÍTICOS:\n")
	if len(view.CriticalPatients) == 0 {
		b.WriteString("  (ninguno)\n")
	}
	for _, cp := range view.CriticalPatients {
		bed := cp.BedNumber
		if bed == "" {
			bed = "sin cama"
		}
		b.WriteString(fmt.Sprintf("  - %s (%s): %s [pendientes: %d]\n",
			cp.PatientName, bed, cp.Reason, cp.PendingTasksCount))
	}

	b.WriteString("\nDETALLE POR PACIENTE:\n")
	if len(view.Patients) == 0 {
		b.WriteString("  (ninguno)\n")
	}
	for _, pd := range view.Patients {
		bed := pd.Patient.Bed()
		if bed == "" {
			bed = "sin cama"
		}
		b.WriteString(fmt.Sprintf("  %s (%s)\n", pd.Patient.FullName(), bed))
		if pd.LatestNote != nil {
			b.WriteString(fmt.Sprintf("    Última nota (%s): %s\n",
				pd.LatestNote.NoteDate.UTC().Format(summaryTimeFormat), pd.LatestNote.Summary()))
		} else {
			b.WriteString("    Sin notas registradas\n")
		}
		b.WriteString(fmt.Sprintf("    Tareas (%d):\n", len(pd.Tasks)))
		for _, t := range pd.Tasks {
			b.WriteString(fmt.Sprintf("      - [%s/%s] %s%s\n",
				t.Status, t.Priority, t.Description, formatDue(t.DueDate)))
		}
	}

	if len(view.UnassignedTasks) > 0 {
		b.WriteString("\nTAREAS SIN PACIENTE ASIGNADO:\n")
		for _, t := range view.UnassignedTasks {
			b.WriteString(fmt.Sprintf("  - [%s/%s] %s%s\n",
				t.Status, t.Priority, t.Description, formatDue(t.DueDate)))
		}
	}

	return b.String()
}

func formatDue(due *time.Time) string {
	if due == nil {
		return ""
	}
	return fmt.Sprintf(" (vence %s)", due.UTC().Format(summaryTimeFormat))
}
