package handover

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/handover/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type handoverRepoPG struct{ pool *pgxpool.Pool }

func NewHandoverRepoPG(pool *pgxpool.Pool) HandoverRepository {
	return &handoverRepoPG{pool: pool}
}

func (r *handoverRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const handoverCols = `id, hospital, service, shift_type, shift_date, start_time, end_time,
	status, included_patient_ids, included_task_ids, checklist_items, critical_patients,
	general_notes, generated_summary, version, finalized_at, created_by, created_at, updated_at`

func (r *handoverRepoPG) scanHandover(row pgx.Row) (*Handover, error) {
	var h Handover
	var checklist, critical []byte
	err := row.Scan(&h.ID, &h.Hospital, &h.Service, &h.ShiftType, &h.ShiftDate,
		&h.StartTime, &h.EndTime, &h.Status, &h.IncludedPatientIDs, &h.IncludedTaskIDs,
		&checklist, &critical, &h.GeneralNotes, &h.GeneratedSummary,
		&h.Version, &h.FinalizedAt, &h.CreatedBy, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(checklist) > 0 {
		if err := json.Unmarshal(checklist, &h.ChecklistItems); err != nil {
			return nil, fmt.Errorf("unmarshal checklist items: %w", err)
		}
	}
	if len(critical) > 0 {
		if err := json.Unmarshal(critical, &h.CriticalPatients); err != nil {
			return nil, fmt.Errorf("unmarshal critical patients: %w", err)
		}
	}
	return &h, nil
}

func marshalDoc(h *Handover) (checklist, critical []byte, err error) {
	checklist, err = json.Marshal(h.ChecklistItems)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal checklist items: %w", err)
	}
	critical, err = json.Marshal(h.CriticalPatients)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal critical patients: %w", err)
	}
	return checklist, critical, nil
}

func (r *handoverRepoPG) Create(ctx context.Context, h *Handover) error {
	h.ID = uuid.New()
	checklist, critical, err := marshalDoc(h)
	if err != nil {
		return err
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO handover (id, hospital, service, shift_type, shift_date, start_time, end_time,
			status, included_patient_ids, included_task_ids, checklist_items, critical_patients,
			general_notes, generated_summary, version, finalized_at, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		h.ID, h.Hospital, h.Service, h.ShiftType, h.ShiftDate, h.StartTime, h.EndTime,
		h.Status, h.IncludedPatientIDs, h.IncludedTaskIDs, checklist, critical,
		h.GeneralNotes, h.GeneratedSummary, h.Version, h.FinalizedAt, h.CreatedBy)
	return err
}

func (r *handoverRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Handover, error) {
	h, err := r.scanHandover(r.conn(ctx).QueryRow(ctx, `SELECT `+handoverCols+` FROM handover WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Entity: "handover", ID: id.String()}
	}
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (r *handoverRepoPG) Update(ctx context.Context, h *Handover) error {
	checklist, critical, err := marshalDoc(h)
	if err != nil {
		return err
	}
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE handover SET shift_type=$3, shift_date=$4, start_time=$5, end_time=$6,
			status=$7, included_patient_ids=$8, included_task_ids=$9,
			checklist_items=$10, critical_patients=$11, general_notes=$12,
			generated_summary=$13, finalized_at=$14, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2`,
		h.ID, h.Version, h.ShiftType, h.ShiftDate, h.StartTime, h.EndTime,
		h.Status, h.IncludedPatientIDs, h.IncludedTaskIDs, checklist, critical,
		h.GeneralNotes, h.GeneratedSummary, h.FinalizedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM handover WHERE id = $1)`, h.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return &NotFoundError{Entity: "handover", ID: h.ID.String()}
		}
		return &ConflictError{Msg: fmt.Sprintf("handover %s version %d is stale", h.ID, h.Version)}
	}
	h.Version++
	return nil
}

func (r *handoverRepoPG) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Handover, int, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	n := 0
	add := func(clause string, v interface{}) {
		n++
		where += fmt.Sprintf(" AND %s = $%d", clause, n)
		args = append(args, v)
	}
	if filter.Hospital != "" {
		add("hospital", filter.Hospital)
	}
	if filter.Service != "" {
		add("service", filter.Service)
	}
	if filter.Status != "" {
		add("status", filter.Status)
	}
	if filter.ShiftDate != nil {
		add("shift_date", *filter.ShiftDate)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM handover `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM handover %s ORDER BY shift_date DESC, created_at DESC LIMIT $%d OFFSET $%d`,
		handoverCols, where, n+1, n+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Handover
	for rows.Next() {
		h, err := r.scanHandover(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, h)
	}
	return items, total, rows.Err()
}
