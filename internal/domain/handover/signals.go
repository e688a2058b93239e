package handover

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// recentNoteWindow is how far back a clinical note counts as "recent" for
// critical-patient detection.
const recentNoteWindow = 24 * time.Hour

// maxSignalFetches bounds concurrent per-patient signal queries.
const maxSignalFetches = 8

// Signals is the minimal per-patient signal set consumed by detection.
type Signals struct {
	UrgentOpenTasks  int
	OverdueHighTasks int
	RecentNotes      int
}

// TaskCounter is the task-side query capability the signal reader consumes.
// Satisfied by task.TaskRepository.
type TaskCounter interface {
	CountOpenUrgent(ctx context.Context, patientID uuid.UUID) (int, error)
	CountOverdueHigh(ctx context.Context, patientID uuid.UUID, now time.Time) (int, error)
}

// NoteCounter is the note-side query capability the signal reader consumes.
// Satisfied by note.NoteRepository.
type NoteCounter interface {
	CountSince(ctx context.Context, patientID uuid.UUID, since time.Time) (int, error)
}

// SignalSource fetches detection signals for a batch of patients. The
// returned map contains an entry per patient whose signals resolved; a
// patient whose queries failed is omitted so the batch can progress under
// partial data-source degradation.
type SignalSource interface {
	FetchSignals(ctx context.Context, patientIDs []uuid.UUID, now time.Time) (map[uuid.UUID]Signals, error)
}

// SignalReader is the default SignalSource over the task and note stores.
// The three counts per patient are independent reads and are issued
// concurrently; no ordering between them is assumed.
type SignalReader struct {
	tasks  TaskCounter
	notes  NoteCounter
	logger zerolog.Logger
}

func NewSignalReader(tasks TaskCounter, notes NoteCounter, logger zerolog.Logger) *SignalReader {
	return &SignalReader{tasks: tasks, notes: notes, logger: logger}
}

// FetchSignals reads the signal set for each patient. Datastore failures are
// not retried here: the failing patient is dropped from the result and
// logged, and the rest of the batch proceeds.
func (r *SignalReader) FetchSignals(ctx context.Context, patientIDs []uuid.UUID, now time.Time) (map[uuid.UUID]Signals, error) {
	results := make(map[uuid.UUID]Signals, len(patientIDs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxSignalFetches)

	for _, id := range patientIDs {
		id := id
		g.Go(func() error {
			sig, err := r.readPatient(gctx, id, now)
			if err != nil {
				r.logger.Warn().
					Err(err).
					Str("patient_id", id.String()).
					Msg("signal fetch failed; patient excluded from detection")
				return nil
			}
			mu.Lock()
			results[id] = sig
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// readPatient issues the three count queries for one patient in parallel.
func (r *SignalReader) readPatient(ctx context.Context, patientID uuid.UUID, now time.Time) (Signals, error) {
	var sig Signals
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := r.tasks.CountOpenUrgent(gctx, patientID)
		if err != nil {
			return &DataSourceError{Op: "count open urgent tasks", Err: err}
		}
		sig.UrgentOpenTasks = n
		return nil
	})
	g.Go(func() error {
		n, err := r.tasks.CountOverdueHigh(gctx, patientID, now)
		if err != nil {
			return &DataSourceError{Op: "count overdue high tasks", Err: err}
		}
		sig.OverdueHighTasks = n
		return nil
	})
	g.Go(func() error {
		n, err := r.notes.CountSince(gctx, patientID, now.Add(-recentNoteWindow))
		if err != nil {
			return &DataSourceError{Op: "count recent notes", Err: err}
		}
		sig.RecentNotes = n
		return nil
	})

	if err := g.Wait(); err != nil {
		return Signals{}, err
	}
	return sig, nil
}
