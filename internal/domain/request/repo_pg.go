package request

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bloodbank/bloodbank/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const requestCols = `id, requester_id, blood_type, component, units_required, reason,
	status, attachment_id, assigned_by, appointment_date, fulfilled_at,
	completed_at, rejection_reason, created_at, updated_at`

func (r *repoPG) scanRequest(row pgx.Row) (*NeedRequest, error) {
	var req NeedRequest
	err := row.Scan(&req.ID, &req.RequesterID, &req.BloodType, &req.Component,
		&req.UnitsRequired, &req.Reason, &req.Status, &req.AttachmentID,
		&req.AssignedBy, &req.AppointmentDate, &req.FulfilledAt,
		&req.CompletedAt, &req.RejectionReason, &req.CreatedAt, &req.UpdatedAt)
	return &req, err
}

func (r *repoPG) Create(ctx context.Context, req *NeedRequest) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO need_requests (id, requester_id, blood_type, component,
			units_required, reason, status, attachment_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		req.ID, req.RequesterID, req.BloodType, req.Component,
		req.UnitsRequired, req.Reason, req.Status, req.AttachmentID)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*NeedRequest, error) {
	return r.scanRequest(r.conn(ctx).QueryRow(ctx, `SELECT `+requestCols+` FROM need_requests WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, req *NeedRequest) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE need_requests
		SET blood_type=$2, component=$3, units_required=$4, reason=$5, updated_at=NOW()
		WHERE id = $1`,
		req.ID, req.BloodType, req.Component, req.UnitsRequired, req.Reason)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM need_requests WHERE id = $1`, id)
	return err
}

func (r *repoPG) MarkAssigned(ctx context.Context, id uuid.UUID, assignedBy string, appointment time.Time) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE need_requests
		SET status=$2, assigned_by=$3, appointment_date=$4, updated_at=NOW()
		WHERE id = $1 AND status = $5`,
		id, StatusAssigned, assignedBy, appointment, StatusPending)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repoPG) MarkFulfilled(ctx context.Context, id uuid.UUID, at time.Time) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE need_requests SET status=$2, fulfilled_at=$3, updated_at=NOW()
		WHERE id = $1 AND status = $4`,
		id, StatusFulfilled, at, StatusAssigned)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repoPG) MarkRejected(ctx context.Context, id uuid.UUID, fromStatuses []string, reason string) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE need_requests SET status=$2, rejection_reason=$3, updated_at=NOW()
		WHERE id = $1 AND status = ANY($4)`,
		id, StatusRejected, reason, fromStatuses)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repoPG) MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE need_requests SET status=$2, completed_at=$3, updated_at=NOW()
		WHERE id = $1 AND status = $4`,
		id, StatusCompleted, at, StatusFulfilled)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repoPG) SweepFulfilled(ctx context.Context, olderThan time.Time, now time.Time) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE need_requests SET status=$1, completed_at=$2, updated_at=NOW()
		WHERE status = $3 AND fulfilled_at < $4`,
		StatusCompleted, now, StatusFulfilled, olderThan)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repoPG) ListByRequester(ctx context.Context, requesterID uuid.UUID, status string, limit, offset int) ([]*NeedRequest, int, error) {
	return r.list(ctx, `requester_id = $1`, []interface{}{requesterID}, status, limit, offset)
}

func (r *repoPG) List(ctx context.Context, status string, limit, offset int) ([]*NeedRequest, int, error) {
	return r.list(ctx, `1=1`, nil, status, limit, offset)
}

func (r *repoPG) list(ctx context.Context, where string, args []interface{}, status string, limit, offset int) ([]*NeedRequest, int, error) {
	if status != "" {
		args = append(args, status)
		where += ` AND status = $` + strconv.Itoa(len(args))
	}
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM need_requests WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, limit, offset)
	query := `SELECT ` + requestCols + ` FROM need_requests WHERE ` + where +
		` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*NeedRequest
	for rows.Next() {
		req, err := r.scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, req)
	}
	return items, total, nil
}
